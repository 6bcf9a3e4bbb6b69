package utils

import (
	"crypto/sha256"
	"encoding/hex"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

const nanoidAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// GenerateNanoIDWithPrefix returns an id like "evt_x7k2m9..." for audit records.
func GenerateNanoIDWithPrefix(prefix string, length int) string {
	id, err := gonanoid.Generate(nanoidAlphabet, length)
	if err != nil {
		// gonanoid only errors on invalid alphabet/length
		panic(err)
	}
	return prefix + "_" + id
}

// HashEmail returns a short sha256 prefix of an email address, enabling log
// and audit correlation without storing the address itself.
func HashEmail(email string) string {
	sum := sha256.Sum256([]byte(email))
	return hex.EncodeToString(sum[:])[:12]
}

// TruncateString cuts s to at most max bytes.
func TruncateString(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

func IsStringInSlice(needle string, haystack []string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}
