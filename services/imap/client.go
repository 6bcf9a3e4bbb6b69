package imap

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"time"

	goimap "github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"

	"github.com/inboxkeep/mailclerk/interfaces"
)

const operationTimeout = 30 * time.Second

// Dialer opens TLS connections to IMAP servers. Certificate and hostname
// verification are always on; there is no insecure mode.
type Dialer struct{}

func NewDialer() *Dialer {
	return &Dialer{}
}

func (d *Dialer) Dial(ctx context.Context, host string, port int) (interfaces.IMAPClient, error) {
	serverAddr := fmt.Sprintf("%s:%d", host, port)

	// Set up connection with timeout
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	if deadline, ok := ctx.Deadline(); ok {
		dialer.Deadline = deadline
	}

	tlsConfig := &tls.Config{
		ServerName: host,
		MinVersion: tls.VersionTLS12,
	}

	c, err := client.DialWithDialerTLS(dialer, serverAddr, tlsConfig)
	if err != nil {
		return nil, fmt.Errorf("connection error: %w", err)
	}

	return &clientWrapper{c: c}, nil
}

// clientWrapper adapts a go-imap client to the IMAPClient interface.
// Every command sets a deadline for its duration and resets it afterwards,
// so a wedged server cannot hang a caller indefinitely.
type clientWrapper struct {
	c *client.Client
}

func (w *clientWrapper) Login(username, password string) error {
	w.c.Timeout = operationTimeout
	defer func() { w.c.Timeout = 0 }()
	return w.c.Login(username, password)
}

func (w *clientWrapper) Logout() error {
	w.c.Timeout = 5 * time.Second
	return w.c.Logout()
}

func (w *clientWrapper) Noop() error {
	w.c.Timeout = 10 * time.Second
	defer func() { w.c.Timeout = 0 }()
	return w.c.Noop()
}

func (w *clientWrapper) ListFolders() ([]*goimap.MailboxInfo, error) {
	w.c.Timeout = operationTimeout
	defer func() { w.c.Timeout = 0 }()

	mailboxes := make(chan *goimap.MailboxInfo, 20)
	done := make(chan error, 1)
	go func() {
		done <- w.c.List("", "*", mailboxes)
	}()

	var folders []*goimap.MailboxInfo
	for m := range mailboxes {
		folders = append(folders, m)
	}

	if err := <-done; err != nil {
		return nil, fmt.Errorf("error listing folders: %w", err)
	}
	return folders, nil
}

func (w *clientWrapper) Select(name string, readOnly bool) (*goimap.MailboxStatus, error) {
	w.c.Timeout = operationTimeout
	defer func() { w.c.Timeout = 0 }()
	return w.c.Select(name, readOnly)
}

func (w *clientWrapper) Status(name string, items []goimap.StatusItem) (*goimap.MailboxStatus, error) {
	w.c.Timeout = operationTimeout
	defer func() { w.c.Timeout = 0 }()
	return w.c.Status(name, items)
}

func (w *clientWrapper) Search(criteria *goimap.SearchCriteria) ([]uint32, error) {
	w.c.Timeout = operationTimeout
	defer func() { w.c.Timeout = 0 }()
	return w.c.Search(criteria)
}

func (w *clientWrapper) Fetch(seqSet *goimap.SeqSet, items []goimap.FetchItem) ([]*goimap.Message, error) {
	w.c.Timeout = 60 * time.Second
	defer func() { w.c.Timeout = 0 }()

	messages := make(chan *goimap.Message, 10)
	done := make(chan error, 1)
	go func() {
		done <- w.c.Fetch(seqSet, items, messages)
	}()

	var collected []*goimap.Message
	for msg := range messages {
		collected = append(collected, msg)
	}

	if err := <-done; err != nil {
		return nil, fmt.Errorf("fetch error: %w", err)
	}
	return collected, nil
}

func (w *clientWrapper) CloseFolder() error {
	w.c.Timeout = operationTimeout
	defer func() { w.c.Timeout = 0 }()
	return w.c.Close()
}
