package session

import (
	"sync"
	"time"

	"github.com/inboxkeep/mailclerk/config"
	"github.com/inboxkeep/mailclerk/internal/errors"
	"github.com/inboxkeep/mailclerk/internal/logger"
	"github.com/inboxkeep/mailclerk/internal/utils"
)

// RateLimiter throttles authentication attempts per account. Failures inside
// a sliding window trigger a lockout whose length doubles with each failure
// past the threshold, capped at 64 minutes. The lockout expiry is stored
// separately from the failure list, so a long lockout keeps holding even
// after the failures that earned it age out of the window.
type RateLimiter struct {
	cfg *config.RateLimitConfig
	log logger.Logger

	mu          sync.Mutex
	failures    map[string][]time.Time
	lockedUntil map[string]time.Time
}

func NewRateLimiter(cfg *config.RateLimitConfig, log logger.Logger) *RateLimiter {
	return &RateLimiter{
		cfg:         cfg,
		log:         log,
		failures:    make(map[string][]time.Time),
		lockedUntil: make(map[string]time.Time),
	}
}

// Check reports whether the account may attempt authentication right now.
// Returns a RateLimitError with the remaining wait when locked out. A check
// that finds the failure threshold still met inside the window refreshes the
// stored lockout.
func (rl *RateLimiter) Check(email string) error {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := utils.Now()
	if until, ok := rl.lockedUntil[email]; ok {
		if now.Before(until) {
			return rl.lockoutErrLocked(email, until.Sub(now))
		}
		delete(rl.lockedUntil, email)
	}

	recent := rl.pruneLocked(email, now)
	if len(recent) < rl.cfg.MaxFailures {
		return nil
	}

	until := now.Add(lockoutDuration(len(recent), rl.cfg.MaxFailures))
	rl.lockedUntil[email] = until
	return rl.lockoutErrLocked(email, until.Sub(now))
}

// RecordFailure registers a failed authentication attempt for the account.
// Crossing the failure threshold sets the lockout expiry; each further
// failure recomputes and extends it.
func (rl *RateLimiter) RecordFailure(email string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := utils.Now()
	recent := append(rl.pruneLocked(email, now), now)
	rl.failures[email] = recent

	if len(recent) >= rl.cfg.MaxFailures {
		rl.lockedUntil[email] = now.Add(lockoutDuration(len(recent), rl.cfg.MaxFailures))
	}
}

// Reset clears all recorded failures and any active lockout for the account.
// Called on successful authentication so past mistakes never penalize a
// recovered user.
func (rl *RateLimiter) Reset(email string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	delete(rl.failures, email)
	delete(rl.lockedUntil, email)
}

func (rl *RateLimiter) lockoutErrLocked(email string, retryAfter time.Duration) error {
	rl.log.Warnf("account %s locked out for %s after %d failed attempts",
		utils.HashEmail(email), retryAfter.Round(time.Second), len(rl.failures[email]))
	return &errors.RateLimitError{RetryAfter: retryAfter}
}

// pruneLocked drops failures outside the sliding window. Caller holds mu.
func (rl *RateLimiter) pruneLocked(email string, now time.Time) []time.Time {
	cutoff := now.Add(-rl.cfg.FailureWindow)
	var recent []time.Time
	for _, t := range rl.failures[email] {
		if t.After(cutoff) {
			recent = append(recent, t)
		}
	}
	if len(recent) == 0 {
		delete(rl.failures, email)
	} else {
		rl.failures[email] = recent
	}
	return recent
}

// lockoutDuration doubles with each failure past the threshold: 2, 4, 8 ...
// minutes, capped at 64.
func lockoutDuration(failureCount, maxFailures int) time.Duration {
	exponent := failureCount - maxFailures + 1
	if exponent > 6 {
		exponent = 6
	}
	if exponent < 0 {
		exponent = 0
	}
	return time.Duration(1<<exponent) * time.Minute
}
