package models

import (
	"time"

	"github.com/inboxkeep/mailclerk/internal/enum"
	"github.com/inboxkeep/mailclerk/internal/utils"
)

// EmailMessage is the normalized record produced by the retriever and
// consumed by the classification pipeline. Body text is size-bounded at
// fetch time; attachment payloads are never carried.
type EmailMessage struct {
	UID           uint32
	Subject       string
	FromAddress   string
	FromName      string
	ToAddresses   []string
	BodyText      string
	Snippet       string
	ReceivedAt    time.Time
	Flags         []string
	Size          uint32
	Unread        bool
	HasAttachment bool
}

// DisplaySender returns the sender name when present, the address otherwise.
func (e *EmailMessage) DisplaySender() string {
	if e.FromName != "" {
		return e.FromName
	}
	return e.FromAddress
}

// ActivityEvent is a derived audit record persisted locally. Email addresses
// are stored only as short hashes.
type ActivityEvent struct {
	ID        string            `db:"id"`
	EmailHash string            `db:"email_hash"`
	Kind      enum.ActivityKind `db:"kind"`
	Detail    string            `db:"detail"`
	CreatedAt time.Time         `db:"created_at"`
}

func NewActivityEvent(email string, kind enum.ActivityKind, detail string) *ActivityEvent {
	return &ActivityEvent{
		ID:        utils.GenerateNanoIDWithPrefix("evt", 24),
		EmailHash: utils.HashEmail(email),
		Kind:      kind,
		Detail:    detail,
		CreatedAt: utils.Now(),
	}
}
