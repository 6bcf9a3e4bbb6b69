package interfaces

import (
	"context"

	"github.com/emersion/go-imap"
)

// IMAPClient is the seam to the wire-protocol library. The production
// implementation wraps an emersion/go-imap client with per-operation
// timeouts; tests substitute fakes.
type IMAPClient interface {
	Login(username, password string) error
	Logout() error
	Noop() error
	ListFolders() ([]*imap.MailboxInfo, error)
	Select(name string, readOnly bool) (*imap.MailboxStatus, error)
	Status(name string, items []imap.StatusItem) (*imap.MailboxStatus, error)
	Search(criteria *imap.SearchCriteria) ([]uint32, error)
	Fetch(seqSet *imap.SeqSet, items []imap.FetchItem) ([]*imap.Message, error)
	CloseFolder() error
}

// IMAPDialer opens a TLS connection to an IMAP server. Hostname and
// certificate verification are mandatory and cannot be disabled.
type IMAPDialer interface {
	Dial(ctx context.Context, host string, port int) (IMAPClient, error)
}
