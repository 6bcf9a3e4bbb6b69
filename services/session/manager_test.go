package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	goimap "github.com/emersion/go-imap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inboxkeep/mailclerk/config"
	"github.com/inboxkeep/mailclerk/interfaces"
	"github.com/inboxkeep/mailclerk/internal/enum"
	apperrors "github.com/inboxkeep/mailclerk/internal/errors"
	"github.com/inboxkeep/mailclerk/internal/models"
)

type fakeClient struct {
	mu         sync.Mutex
	loginErr   error
	noopErr    error
	logoutErr  error
	loginCalls int
	logoutOut  bool
}

func (f *fakeClient) Login(username, password string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loginCalls++
	return f.loginErr
}

func (f *fakeClient) Logout() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logoutOut = true
	return f.logoutErr
}

func (f *fakeClient) Noop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.noopErr
}

func (f *fakeClient) ListFolders() ([]*goimap.MailboxInfo, error) { return nil, nil }
func (f *fakeClient) Select(name string, readOnly bool) (*goimap.MailboxStatus, error) {
	return nil, nil
}
func (f *fakeClient) Status(name string, items []goimap.StatusItem) (*goimap.MailboxStatus, error) {
	return nil, nil
}
func (f *fakeClient) Search(criteria *goimap.SearchCriteria) ([]uint32, error) { return nil, nil }
func (f *fakeClient) Fetch(seqSet *goimap.SeqSet, items []goimap.FetchItem) ([]*goimap.Message, error) {
	return nil, nil
}
func (f *fakeClient) CloseFolder() error { return nil }

func (f *fakeClient) loggedOut() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.logoutOut
}

// fakeDialer hands out preset clients, or errors, one per Dial call. The last
// entry repeats once the script runs out.
type fakeDialer struct {
	mu      sync.Mutex
	clients []*fakeClient
	errs    []error
	calls   int
}

func (d *fakeDialer) Dial(ctx context.Context, host string, port int) (interfaces.IMAPClient, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	i := d.calls
	d.calls++
	if i >= len(d.clients) {
		i = len(d.clients) - 1
	}
	if d.errs[i] != nil {
		return nil, d.errs[i]
	}
	return d.clients[i], nil
}

func (d *fakeDialer) dialCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

func testConfig() *config.Config {
	return &config.Config{
		IMAPConfig: &config.IMAPConfig{Host: "imap.example.com", Port: 993},
		SessionConfig: &config.SessionConfig{
			MaxRetries:         3,
			BackoffBase:        time.Millisecond,
			BackoffCap:         5 * time.Millisecond,
			StaleTimeout:       25 * time.Minute,
			ReaperInterval:     5 * time.Minute,
			MaxSessionsPerUser: 2,
		},
		RateLimitConfig: &config.RateLimitConfig{
			FailureWindow: 15 * time.Minute,
			MaxFailures:   5,
		},
	}
}

func newTestManager(dialer *fakeDialer) *Manager {
	cfg := testConfig()
	log := testLogger()
	return NewManager(cfg, log, dialer, NewRateLimiter(cfg.RateLimitConfig, log), nil)
}

func testCredential(t *testing.T) *models.Credential {
	t.Helper()
	cred, err := models.NewCredential("user@example.com", "abcd efgh ijkl mnop")
	require.NoError(t, err)
	return cred
}

func TestAuthenticate_Success(t *testing.T) {
	client := &fakeClient{}
	dialer := &fakeDialer{clients: []*fakeClient{client}, errs: []error{nil}}
	m := newTestManager(dialer)

	sess, err := m.Authenticate(context.Background(), testCredential(t))

	require.NoError(t, err)
	assert.Equal(t, enum.SessionConnected, sess.State)
	assert.Equal(t, 0, sess.RetryCount)
	assert.NotEmpty(t, sess.ID)

	got, err := m.GetSession(sess.ID)
	require.NoError(t, err)
	assert.Same(t, sess, got)
}

func TestAuthenticate_RejectionFailsFastAndWipesPassword(t *testing.T) {
	client := &fakeClient{loginErr: errors.New("NO [AUTHENTICATIONFAILED] Invalid credentials")}
	dialer := &fakeDialer{clients: []*fakeClient{client}, errs: []error{nil}}
	m := newTestManager(dialer)
	cred := testCredential(t)

	_, err := m.Authenticate(context.Background(), cred)

	require.Error(t, err)
	var authErr *apperrors.AuthenticationError
	require.ErrorAs(t, err, &authErr)
	assert.Contains(t, authErr.Error(), "apppasswords")

	// No retry on a credential rejection.
	assert.Equal(t, 1, dialer.dialCount())
	assert.True(t, client.loggedOut())

	// Password wiped from memory.
	_, err = cred.Password()
	assert.Error(t, err)
}

func TestAuthenticate_TransportFailureIsNotARejection(t *testing.T) {
	client := &fakeClient{loginErr: errors.New("read tcp 10.0.0.1:993: TLS handshake failed")}
	dialer := &fakeDialer{clients: []*fakeClient{client}, errs: []error{nil}}
	m := newTestManager(dialer)
	cred := testCredential(t)

	_, err := m.Authenticate(context.Background(), cred)

	// "failed" alone is not a credential rejection: the attempt is retried and
	// surfaces as a connection error.
	require.Error(t, err)
	var connErr *apperrors.ConnectionError
	require.ErrorAs(t, err, &connErr)
	assert.Equal(t, "SSL/TLS connection error", connErr.Message)
	assert.Equal(t, 3, dialer.dialCount())

	// Password stays intact so the caller can retry later.
	_, err = cred.Password()
	assert.NoError(t, err)
}

func TestAuthenticate_TransportErrorRetriesThenSucceeds(t *testing.T) {
	client := &fakeClient{}
	dialer := &fakeDialer{
		clients: []*fakeClient{nil, client},
		errs:    []error{errors.New("dial tcp: connection refused"), nil},
	}
	m := newTestManager(dialer)

	sess, err := m.Authenticate(context.Background(), testCredential(t))

	require.NoError(t, err)
	assert.Equal(t, 1, sess.RetryCount)
	assert.Equal(t, 2, dialer.dialCount())
}

func TestAuthenticate_TransportErrorExhaustsRetries(t *testing.T) {
	dialer := &fakeDialer{
		clients: []*fakeClient{nil},
		errs:    []error{errors.New("dial tcp: connection refused")},
	}
	m := newTestManager(dialer)

	_, err := m.Authenticate(context.Background(), testCredential(t))

	require.Error(t, err)
	var connErr *apperrors.ConnectionError
	require.ErrorAs(t, err, &connErr)
	assert.Equal(t, "Connection error", connErr.Message)
	assert.Equal(t, 3, dialer.dialCount())
}

func TestAuthenticate_TLSErrorsAreCategorized(t *testing.T) {
	dialer := &fakeDialer{
		clients: []*fakeClient{nil},
		errs:    []error{errors.New("x509: certificate signed by unknown authority")},
	}
	m := newTestManager(dialer)

	_, err := m.Authenticate(context.Background(), testCredential(t))

	require.Error(t, err)
	var connErr *apperrors.ConnectionError
	require.ErrorAs(t, err, &connErr)
	assert.Equal(t, "SSL/TLS connection error", connErr.Message)
}

func TestAuthenticate_RateLimitedAfterRepeatedRejections(t *testing.T) {
	client := &fakeClient{loginErr: errors.New("NO [AUTHENTICATIONFAILED] Invalid credentials")}
	dialer := &fakeDialer{clients: []*fakeClient{client}, errs: []error{nil}}
	m := newTestManager(dialer)

	for i := 0; i < 5; i++ {
		_, err := m.Authenticate(context.Background(), testCredential(t))
		require.Error(t, err)
	}

	_, err := m.Authenticate(context.Background(), testCredential(t))

	var rateErr *apperrors.RateLimitError
	require.ErrorAs(t, err, &rateErr)
	assert.Greater(t, rateErr.RetryAfter, time.Duration(0))
}

func TestAuthenticate_EvictsOldestSessionAtCap(t *testing.T) {
	clients := []*fakeClient{{}, {}, {}}
	dialer := &fakeDialer{clients: clients, errs: []error{nil, nil, nil}}
	m := newTestManager(dialer)

	first, err := m.Authenticate(context.Background(), testCredential(t))
	require.NoError(t, err)
	second, err := m.Authenticate(context.Background(), testCredential(t))
	require.NoError(t, err)
	third, err := m.Authenticate(context.Background(), testCredential(t))
	require.NoError(t, err)

	// Cap is 2: the oldest session was evicted and logged out.
	_, err = m.GetSession(first.ID)
	assert.ErrorIs(t, err, apperrors.ErrSessionNotFound)
	assert.True(t, clients[0].loggedOut())

	_, err = m.GetSession(second.ID)
	assert.NoError(t, err)
	_, err = m.GetSession(third.ID)
	assert.NoError(t, err)
}

func TestDisconnect_RemovesSessionEvenWhenLogoutFails(t *testing.T) {
	client := &fakeClient{logoutErr: errors.New("connection reset")}
	dialer := &fakeDialer{clients: []*fakeClient{client}, errs: []error{nil}}
	m := newTestManager(dialer)

	sess, err := m.Authenticate(context.Background(), testCredential(t))
	require.NoError(t, err)

	err = m.Disconnect(context.Background(), sess.ID)

	assert.NoError(t, err)
	assert.Equal(t, enum.SessionDisconnected, sess.State)
	_, err = m.GetSession(sess.ID)
	assert.ErrorIs(t, err, apperrors.ErrSessionNotFound)
}

func TestDisconnect_UnknownSession(t *testing.T) {
	m := newTestManager(&fakeDialer{clients: []*fakeClient{{}}, errs: []error{nil}})

	err := m.Disconnect(context.Background(), "missing")

	assert.ErrorIs(t, err, apperrors.ErrSessionNotFound)
}

func TestIsAlive_FailedProbeFlipsStateToError(t *testing.T) {
	client := &fakeClient{}
	dialer := &fakeDialer{clients: []*fakeClient{client}, errs: []error{nil}}
	m := newTestManager(dialer)

	sess, err := m.Authenticate(context.Background(), testCredential(t))
	require.NoError(t, err)
	assert.True(t, m.IsAlive(sess.ID))

	client.mu.Lock()
	client.noopErr = errors.New("connection closed")
	client.mu.Unlock()

	assert.False(t, m.IsAlive(sess.ID))
	assert.Equal(t, enum.SessionError, sess.State)
}

func TestKeepAlive_RefreshesActivity(t *testing.T) {
	client := &fakeClient{}
	dialer := &fakeDialer{clients: []*fakeClient{client}, errs: []error{nil}}
	m := newTestManager(dialer)

	sess, err := m.Authenticate(context.Background(), testCredential(t))
	require.NoError(t, err)

	before := sess.LastActivity
	time.Sleep(2 * time.Millisecond)

	require.NoError(t, m.KeepAlive(sess.ID))
	assert.True(t, sess.LastActivity.After(before))
}

func TestSweepStale_RemovesIdleSessions(t *testing.T) {
	clients := []*fakeClient{{}, {}}
	dialer := &fakeDialer{clients: clients, errs: []error{nil, nil}}
	m := newTestManager(dialer)

	stale, err := m.Authenticate(context.Background(), testCredential(t))
	require.NoError(t, err)
	fresh, err := m.Authenticate(context.Background(), testCredential(t))
	require.NoError(t, err)

	stale.LastActivity = stale.LastActivity.Add(-30 * time.Minute)

	removed := m.SweepStale(context.Background())

	assert.Equal(t, 1, removed)
	_, err = m.GetSession(stale.ID)
	assert.ErrorIs(t, err, apperrors.ErrSessionNotFound)
	_, err = m.GetSession(fresh.ID)
	assert.NoError(t, err)
	assert.True(t, clients[0].loggedOut())
}

func TestStats_GroupsByHashedAccount(t *testing.T) {
	clients := []*fakeClient{{}, {}}
	dialer := &fakeDialer{clients: clients, errs: []error{nil, nil}}
	m := newTestManager(dialer)

	_, err := m.Authenticate(context.Background(), testCredential(t))
	require.NoError(t, err)
	_, err = m.Authenticate(context.Background(), testCredential(t))
	require.NoError(t, err)

	stats := m.Stats()

	assert.Equal(t, 2, stats.TotalSessions)
	assert.Len(t, stats.ByAccount, 1)
	for account, count := range stats.ByAccount {
		assert.NotContains(t, account, "@")
		assert.Equal(t, 2, count)
	}
	assert.Equal(t, 2, stats.ByState["connected"])
}
