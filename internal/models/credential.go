package models

import (
	"regexp"
	"strings"
	"time"
	"unicode"

	apperrors "github.com/inboxkeep/mailclerk/internal/errors"
	"github.com/inboxkeep/mailclerk/internal/utils"
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

const passwordSpecialChars = "!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~"

// Credential holds an email address and a securely held password.
//
// The password lives in a private byte buffer so it can be wiped explicitly
// rather than waiting on garbage-collector timing. Callers are expected to
// `defer cred.Clear()` after constructing one; authentication failure wipes
// it as well.
type Credential struct {
	Email     string
	password  []byte
	CreatedAt time.Time
	LastUsed  *time.Time
}

// NewCredential validates the email format and password shape and returns a
// credential holding the password in a wipeable buffer.
//
// Two mutually exclusive password paths are accepted:
//   - app password: exactly 16 alphabetic characters after removing spaces,
//     all lowercase
//   - general password: 12-64 characters, at least 3 of {upper, lower, digit,
//     punctuation}, no run of 3+ identical characters
func NewCredential(email, password string) (*Credential, error) {
	if !emailPattern.MatchString(email) {
		return nil, apperrors.NewValidationError("invalid email format: %s", email)
	}
	if err := validatePassword(password); err != nil {
		return nil, err
	}
	return &Credential{
		Email:     email,
		password:  []byte(password),
		CreatedAt: utils.Now(),
	}, nil
}

// Password returns the plaintext password. Fails once the buffer has been
// cleared.
func (c *Credential) Password() (string, error) {
	if len(c.password) == 0 {
		return "", apperrors.NewValidationError("password has been cleared from memory")
	}
	return string(c.password), nil
}

// Clear overwrites the password buffer with zeros and empties it. Idempotent.
func (c *Credential) Clear() {
	for i := range c.password {
		c.password[i] = 0
	}
	c.password = c.password[:0]
}

// Touch records a successful use of the credential.
func (c *Credential) Touch() {
	c.LastUsed = utils.NowPtr()
}

func validatePassword(password string) error {
	// App password path: 16 letters once spaces are stripped.
	clean := strings.ReplaceAll(password, " ", "")
	if len(clean) == 16 && isAlphabetic(clean) {
		if clean != strings.ToLower(clean) {
			return apperrors.NewValidationError(
				"app passwords must be lowercase; generate a new app password at https://myaccount.google.com/apppasswords")
		}
		return nil
	}

	if len(password) > 64 {
		return apperrors.NewValidationError("password must not exceed 64 characters")
	}
	if len(password) < 12 {
		return apperrors.NewValidationError(
			"regular passwords must be at least 12 characters; consider using an app password instead: https://myaccount.google.com/apppasswords")
	}

	var hasUpper, hasLower, hasDigit, hasSpecial bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case strings.ContainsRune(passwordSpecialChars, r):
			hasSpecial = true
		}
	}
	complexity := 0
	for _, present := range []bool{hasUpper, hasLower, hasDigit, hasSpecial} {
		if present {
			complexity++
		}
	}
	if complexity < 3 {
		return apperrors.NewValidationError(
			"password must contain at least 3 of: uppercase, lowercase, digits, special characters")
	}

	if hasRepeatedRun(password, 3) {
		return apperrors.NewValidationError("password contains too many repeated characters")
	}
	return nil
}

func isAlphabetic(s string) bool {
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return len(s) > 0
}

// hasRepeatedRun reports whether s contains a run of at least n identical runes.
func hasRepeatedRun(s string, n int) bool {
	runes := []rune(s)
	run := 1
	for i := 1; i < len(runes); i++ {
		if runes[i] == runes[i-1] {
			run++
			if run >= n {
				return true
			}
		} else {
			run = 1
		}
	}
	return false
}
