package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateNanoIDWithPrefix(t *testing.T) {
	id := GenerateNanoIDWithPrefix("evt", 24)

	assert.True(t, strings.HasPrefix(id, "evt_"))
	assert.Len(t, id, len("evt_")+24)

	// IDs must be unique.
	assert.NotEqual(t, id, GenerateNanoIDWithPrefix("evt", 24))
}

func TestHashEmail(t *testing.T) {
	hash := HashEmail("user@example.com")

	assert.Len(t, hash, 12)
	assert.NotContains(t, hash, "@")
	assert.Equal(t, hash, HashEmail("user@example.com"))
	assert.NotEqual(t, hash, HashEmail("other@example.com"))
}

func TestTruncateString(t *testing.T) {
	assert.Equal(t, "abc", TruncateString("abc", 10))
	assert.Equal(t, "abcde", TruncateString("abcdefgh", 5))
	assert.Equal(t, "", TruncateString("", 5))
}
