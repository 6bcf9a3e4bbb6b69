package mailbox

import (
	"bytes"
	"strings"
	"testing"

	goimap "github.com/emersion/go-imap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMessage_PlainText(t *testing.T) {
	headerSection, textSection := bodySections(100000)
	msg := newFakeMessage(7, testHeader, testBody, []string{goimap.SeenFlag})

	email, err := parseMessage(msg, headerSection, textSection, 100000)

	require.NoError(t, err)
	assert.Equal(t, uint32(7), email.UID)
	assert.Equal(t, "Quarterly report", email.Subject)
	assert.Equal(t, "Alice Smith", email.FromName)
	assert.Equal(t, "alice@example.com", email.FromAddress)
	assert.False(t, email.Unread)
	assert.False(t, email.HasAttachment)
	assert.Contains(t, email.BodyText, "The report is ready.")
}

func TestParseMessage_HTMLOnlyFallsBackToText(t *testing.T) {
	header := "From: alice@example.com\r\n" +
		"Subject: Newsletter\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: text/html; charset=utf-8\r\n"
	body := "<html><body><p>Hello <b>World</b></p></body></html>\r\n"

	headerSection, textSection := bodySections(100000)
	msg := newFakeMessage(1, header, body, nil)

	email, err := parseMessage(msg, headerSection, textSection, 100000)

	require.NoError(t, err)
	assert.Contains(t, email.BodyText, "Hello")
	assert.Contains(t, email.BodyText, "World")
	assert.NotContains(t, email.BodyText, "<p>")
}

func TestParseMessage_MultipartWithAttachment(t *testing.T) {
	header := "From: alice@example.com\r\n" +
		"Subject: Files\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: multipart/mixed; boundary=\"XYZ\"\r\n"
	body := "--XYZ\r\n" +
		"Content-Type: text/plain\r\n" +
		"\r\n" +
		"See attached.\r\n" +
		"--XYZ\r\n" +
		"Content-Type: application/pdf; name=\"doc.pdf\"\r\n" +
		"Content-Disposition: attachment; filename=\"doc.pdf\"\r\n" +
		"Content-Transfer-Encoding: base64\r\n" +
		"\r\n" +
		"JVBERi0=\r\n" +
		"--XYZ--\r\n"

	headerSection, textSection := bodySections(100000)
	msg := newFakeMessage(1, header, body, nil)

	email, err := parseMessage(msg, headerSection, textSection, 100000)

	require.NoError(t, err)
	assert.True(t, email.HasAttachment)
	assert.Contains(t, email.BodyText, "See attached.")
}

func TestParseMessage_LegacyFullBodyResponse(t *testing.T) {
	raw := testHeader + "\r\n" + testBody
	headerSection, textSection := bodySections(100000)

	fullSection := new(goimap.BodySectionName)
	msg := &goimap.Message{
		SeqNum: 3,
		Uid:    3,
		Body: map[*goimap.BodySectionName]goimap.Literal{
			fullSection: bytes.NewBufferString(raw),
		},
	}

	email, err := parseMessage(msg, headerSection, textSection, 100000)

	require.NoError(t, err)
	assert.Equal(t, "Quarterly report", email.Subject)
	assert.Contains(t, email.BodyText, "The report is ready.")
}

func TestParseMessage_NoBodySections(t *testing.T) {
	headerSection, textSection := bodySections(100000)
	msg := &goimap.Message{SeqNum: 9}

	_, err := parseMessage(msg, headerSection, textSection, 100000)

	assert.Error(t, err)
}

func TestParseMessage_TruncatesOversizedBody(t *testing.T) {
	long := strings.Repeat("The quick brown fox jumps over the lazy dog. ", 100)
	headerSection, textSection := bodySections(100000)
	msg := newFakeMessage(1, testHeader, long, nil)

	email, err := parseMessage(msg, headerSection, textSection, 200)

	require.NoError(t, err)
	assert.LessOrEqual(t, len(email.BodyText), 200)
	assert.LessOrEqual(t, len(email.Snippet), 100)
}
