package mailbox

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	goimap "github.com/emersion/go-imap"
	"github.com/jaytaylor/html2text"
	"github.com/jhillyerd/enmime"

	"github.com/inboxkeep/mailclerk/internal/models"
	"github.com/inboxkeep/mailclerk/internal/utils"
)

const snippetLength = 100

// parseMessage reconstructs a full RFC 5322 message from the partial header
// and text fetches and parses it. Servers that ignore the sectioned fetch and
// return a single BODY[] literal are handled too.
func parseMessage(msg *goimap.Message, headerSection, textSection *goimap.BodySectionName, maxBodySize int) (*models.EmailMessage, error) {
	raw, err := reassembleMessage(msg, headerSection, textSection)
	if err != nil {
		return nil, err
	}

	envelope, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("parsing MIME envelope: %w", err)
	}

	body := envelope.Text
	if body == "" && envelope.HTML != "" {
		if text, err := html2text.FromString(envelope.HTML, html2text.Options{TextOnly: true}); err == nil {
			body = text
		}
	}
	body = utils.TruncateString(body, maxBodySize)

	fromName, fromAddress := parseFrom(envelope)

	email := &models.EmailMessage{
		UID:         msg.Uid,
		Subject:     envelope.GetHeader("Subject"),
		FromName:    fromName,
		FromAddress: fromAddress,
		ToAddresses: parseRecipients(envelope),
		BodyText:    body,
		Snippet:     utils.TruncateString(strings.TrimSpace(body), snippetLength),
		ReceivedAt:  msg.InternalDate,
		Flags:       msg.Flags,
		Size:        msg.Size,
		Unread:      !utils.IsStringInSlice(goimap.SeenFlag, msg.Flags),
	}
	email.HasAttachment = len(envelope.Attachments) > 0 || len(envelope.Inlines) > 0

	return email, nil
}

func reassembleMessage(msg *goimap.Message, headerSection, textSection *goimap.BodySectionName) ([]byte, error) {
	header := readSection(msg, headerSection)
	text := readSection(msg, textSection)

	if header == nil && text == nil {
		// Legacy servers may answer a sectioned fetch with plain BODY[].
		if full := readSection(msg, &goimap.BodySectionName{}); full != nil {
			return full, nil
		}
		return nil, fmt.Errorf("message %d has no body sections", msg.SeqNum)
	}

	var buf bytes.Buffer
	buf.Write(header)
	buf.WriteString("\r\n")
	buf.Write(text)
	return buf.Bytes(), nil
}

func readSection(msg *goimap.Message, section *goimap.BodySectionName) []byte {
	literal := msg.GetBody(section)
	if literal == nil {
		return nil
	}
	data, err := io.ReadAll(literal)
	if err != nil {
		return nil
	}
	return data
}

func parseFrom(envelope *enmime.Envelope) (name, address string) {
	addrs, err := envelope.AddressList("From")
	if err != nil || len(addrs) == 0 {
		return "", envelope.GetHeader("From")
	}
	return addrs[0].Name, addrs[0].Address
}

func parseRecipients(envelope *enmime.Envelope) []string {
	addrs, err := envelope.AddressList("To")
	if err != nil {
		return nil
	}
	recipients := make([]string, 0, len(addrs))
	for _, addr := range addrs {
		recipients = append(recipients, addr.Address)
	}
	return recipients
}
