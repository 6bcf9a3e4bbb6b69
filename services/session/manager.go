package session

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/inboxkeep/mailclerk/config"
	"github.com/inboxkeep/mailclerk/interfaces"
	"github.com/inboxkeep/mailclerk/internal/enum"
	"github.com/inboxkeep/mailclerk/internal/errors"
	"github.com/inboxkeep/mailclerk/internal/logger"
	"github.com/inboxkeep/mailclerk/internal/models"
	"github.com/inboxkeep/mailclerk/internal/repository"
	"github.com/inboxkeep/mailclerk/internal/utils"
)

// authRejectionKeywords mark server responses that mean the credentials were
// refused rather than the connection failing. Rejections are never retried.
// Anchored on full response-code phrases so transport errors that merely
// mention "failed" are not mistaken for rejections.
var authRejectionKeywords = []string{"authenticationfailed", "invalid credentials", "login failed", "authorization failed"}

const appPasswordGuidance = "Authentication credentials rejected. " +
	"Gmail accounts require an app password: https://myaccount.google.com/apppasswords"

type SessionStats struct {
	TotalSessions int
	ByAccount     map[string]int
	ByState       map[string]int
}

// Manager owns the registry of live IMAP sessions. All access to the registry
// goes through the manager; sessions are handed out by ID.
type Manager struct {
	cfg          *config.Config
	log          logger.Logger
	dialer       interfaces.IMAPDialer
	rateLimiter  *RateLimiter
	activityRepo repository.ActivityRepository

	mu       sync.Mutex
	sessions map[string]*models.Session
}

func NewManager(
	cfg *config.Config,
	log logger.Logger,
	dialer interfaces.IMAPDialer,
	rateLimiter *RateLimiter,
	activityRepo repository.ActivityRepository,
) *Manager {
	return &Manager{
		cfg:          cfg,
		log:          log,
		dialer:       dialer,
		rateLimiter:  rateLimiter,
		activityRepo: activityRepo,
		sessions:     make(map[string]*models.Session),
	}
}

// Authenticate connects to the IMAP server and logs in with the given
// credential. Transport failures are retried with exponential backoff;
// credential rejections fail immediately and wipe the password from memory.
// On success the returned session is registered and ready for use.
func (m *Manager) Authenticate(ctx context.Context, cred *models.Credential) (*models.Session, error) {
	emailHash := utils.HashEmail(cred.Email)

	if err := m.rateLimiter.Check(cred.Email); err != nil {
		m.audit(ctx, cred.Email, enum.ActivityRateLimited, err.Error())
		return nil, err
	}

	password, err := cred.Password()
	if err != nil {
		return nil, err
	}

	sess := models.NewSession(cred.Email)
	maxRetries := m.cfg.SessionConfig.MaxRetries

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			delay := calculateBackoff(attempt-1, m.cfg.SessionConfig.BackoffBase, m.cfg.SessionConfig.BackoffCap)
			m.log.Infof("retrying connection for %s in %s (attempt %d/%d)",
				emailHash, delay.Round(time.Millisecond), attempt+1, maxRetries)
			select {
			case <-ctx.Done():
				sess.State = enum.SessionError
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		client, err := m.dialer.Dial(ctx, m.cfg.IMAPConfig.Host, m.cfg.IMAPConfig.Port)
		if err != nil {
			lastErr = err
			continue
		}

		if err := client.Login(cred.Email, password); err != nil {
			client.Logout()
			if isAuthRejection(err) {
				m.rateLimiter.RecordFailure(cred.Email)
				cred.Clear()
				sess.State = enum.SessionError
				m.audit(ctx, cred.Email, enum.ActivityAuthFailure, "credentials rejected")
				m.log.Warnf("authentication rejected for %s", emailHash)
				return nil, &errors.AuthenticationError{Message: appPasswordGuidance, Cause: err}
			}
			lastErr = err
			continue
		}

		// The server accepted the login; verify the connection actually works
		// before handing the session out.
		if err := client.Noop(); err != nil {
			client.Logout()
			lastErr = err
			continue
		}

		m.rateLimiter.Reset(cred.Email)
		cred.Touch()

		sess.Client = client
		sess.State = enum.SessionConnected
		sess.RetryCount = attempt
		sess.UpdateActivity()

		m.register(sess)
		m.audit(ctx, cred.Email, enum.ActivityAuthSuccess, "session "+sess.ID)
		m.log.Infof("session %s established for %s", sess.ID, emailHash)
		return sess, nil
	}

	sess.State = enum.SessionError
	m.audit(ctx, cred.Email, enum.ActivityAuthFailure, "connection failed")
	m.log.Errorf("connection failed for %s after %d attempts: %s", emailHash, maxRetries, sanitizeConnError(lastErr))
	return nil, &errors.ConnectionError{Message: sanitizeConnError(lastErr), Cause: lastErr}
}

// register adds the session to the registry, evicting the account's oldest
// session first when the per-account cap is reached.
func (m *Manager) register(sess *models.Session) {
	var evicted *models.Session

	m.mu.Lock()
	count := 0
	var oldest *models.Session
	for _, existing := range m.sessions {
		if existing.Email != sess.Email {
			continue
		}
		count++
		if oldest == nil || existing.ConnectedAt.Before(oldest.ConnectedAt) {
			oldest = existing
		}
	}
	if count >= m.cfg.SessionConfig.MaxSessionsPerUser && oldest != nil {
		delete(m.sessions, oldest.ID)
		evicted = oldest
	}
	m.sessions[sess.ID] = sess
	m.mu.Unlock()

	if evicted != nil {
		m.log.Infof("evicting oldest session %s for %s", evicted.ID, utils.HashEmail(evicted.Email))
		m.closeSession(evicted)
	}
}

// Disconnect logs the session out and removes it from the registry. The
// session is removed even when the logout itself fails.
func (m *Manager) Disconnect(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	sess, ok := m.sessions[sessionID]
	if ok {
		delete(m.sessions, sessionID)
	}
	m.mu.Unlock()

	if !ok {
		return errors.ErrSessionNotFound
	}

	m.closeSession(sess)
	m.log.Infof("session %s disconnected", sessionID)
	return nil
}

func (m *Manager) closeSession(sess *models.Session) {
	if sess.Client != nil {
		if sess.SelectedFolder != "" {
			if err := sess.Client.CloseFolder(); err != nil {
				m.log.Warnf("closing folder failed for session %s: %v", sess.ID, err)
			}
		}
		if err := sess.Client.Logout(); err != nil {
			m.log.Warnf("logout failed for session %s: %v", sess.ID, err)
		}
	}
	sess.State = enum.SessionDisconnected
}

// GetSession returns the session by ID, or ErrSessionNotFound.
func (m *Manager) GetSession(sessionID string) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[sessionID]
	if !ok {
		return nil, errors.ErrSessionNotFound
	}
	return sess, nil
}

// IsAlive probes the session's connection with a NOOP. A failed probe flips
// the session into the error state.
func (m *Manager) IsAlive(sessionID string) bool {
	sess, err := m.GetSession(sessionID)
	if err != nil || sess.State != enum.SessionConnected || sess.Client == nil {
		return false
	}
	if err := sess.Client.Noop(); err != nil {
		sess.State = enum.SessionError
		return false
	}
	sess.UpdateActivity()
	return true
}

// KeepAlive refreshes the session's activity timestamp via a NOOP probe.
func (m *Manager) KeepAlive(sessionID string) error {
	sess, err := m.GetSession(sessionID)
	if err != nil {
		return err
	}
	if sess.Client == nil || sess.State != enum.SessionConnected {
		return errors.ErrNoConnection
	}
	if err := sess.Client.Noop(); err != nil {
		sess.State = enum.SessionError
		return errors.NewSessionError(err, "keepalive failed for session %s", sessionID)
	}
	sess.UpdateActivity()
	return nil
}

// SweepStale disconnects every session idle past the stale timeout and
// returns how many were removed. Sessions are removed even when their logout
// fails; a dead connection must never pin registry state.
func (m *Manager) SweepStale(ctx context.Context) int {
	timeout := m.cfg.SessionConfig.StaleTimeout

	m.mu.Lock()
	var stale []*models.Session
	for id, sess := range m.sessions {
		if sess.IsStale(timeout) {
			delete(m.sessions, id)
			stale = append(stale, sess)
		}
	}
	m.mu.Unlock()

	for _, sess := range stale {
		m.closeSession(sess)
		m.log.Infof("reaped stale session %s for %s", sess.ID, utils.HashEmail(sess.Email))
	}

	if len(stale) > 0 {
		m.audit(ctx, "", enum.ActivityReaperSweep, utils.TruncateString(
			"removed "+strings.Join(sessionIDs(stale), ","), 500))
	}
	return len(stale)
}

// Stats summarizes the registry for the status command. Account keys are
// hashed, never raw addresses.
func (m *Manager) Stats() SessionStats {
	m.mu.Lock()
	defer m.mu.Unlock()

	stats := SessionStats{
		TotalSessions: len(m.sessions),
		ByAccount:     make(map[string]int),
		ByState:       make(map[string]int),
	}
	for _, sess := range m.sessions {
		stats.ByAccount[utils.HashEmail(sess.Email)]++
		stats.ByState[sess.State.String()]++
	}
	return stats
}

func (m *Manager) audit(ctx context.Context, email string, kind enum.ActivityKind, detail string) {
	if m.activityRepo == nil {
		return
	}
	event := models.NewActivityEvent(email, kind, detail)
	if err := m.activityRepo.SaveEvent(ctx, event); err != nil {
		m.log.Warnf("failed to save activity event: %v", err)
	}
}

func sessionIDs(sessions []*models.Session) []string {
	ids := make([]string, 0, len(sessions))
	for _, sess := range sessions {
		ids = append(ids, sess.ID)
	}
	return ids
}

func isAuthRejection(err error) bool {
	msg := strings.ToLower(err.Error())
	for _, keyword := range authRejectionKeywords {
		if strings.Contains(msg, keyword) {
			return true
		}
	}
	return false
}

// sanitizeConnError maps transport errors to generic categories so server
// internals and addresses never reach user-facing output.
func sanitizeConnError(err error) string {
	if err == nil {
		return "Connection error"
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "tls") || strings.Contains(msg, "ssl") || strings.Contains(msg, "certificate") || strings.Contains(msg, "x509") {
		return "SSL/TLS connection error"
	}
	return "Connection error"
}
