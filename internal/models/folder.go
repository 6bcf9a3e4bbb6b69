package models

import "github.com/inboxkeep/mailclerk/internal/enum"

// Folder represents an IMAP mailbox folder (Gmail label).
type Folder struct {
	Name        string
	DisplayName string
	Type        enum.FolderType
	Selectable  bool
	Delimiter   string
}

// FolderCounts carries the counters returned by SELECT.
type FolderCounts struct {
	MessageCount uint32
	RecentCount  uint32
	UnreadCount  uint32
}

// FolderStatus carries the counters returned by STATUS.
type FolderStatus struct {
	MessageCount uint32
	UnreadCount  uint32
}
