package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/inboxkeep/mailclerk/interfaces"
	"github.com/inboxkeep/mailclerk/internal/enum"
	"github.com/inboxkeep/mailclerk/internal/utils"
)

// Session is a logical authenticated IMAP connection with explicit lifecycle
// state. Exactly one Session ever owns a given client handle.
type Session struct {
	ID             string
	Email          string
	Client         interfaces.IMAPClient
	SelectedFolder string
	ConnectedAt    time.Time
	LastActivity   time.Time
	State          enum.SessionState
	RetryCount     int
}

func NewSession(email string) *Session {
	now := utils.Now()
	return &Session{
		ID:           uuid.NewString(),
		Email:        email,
		ConnectedAt:  now,
		LastActivity: now,
		State:        enum.SessionConnecting,
	}
}

func (s *Session) UpdateActivity() {
	s.LastActivity = utils.Now()
}

// IsStale reports whether the session has been inactive beyond timeout.
func (s *Session) IsStale(timeout time.Duration) bool {
	return utils.Now().Sub(s.LastActivity) > timeout
}
