package session

import (
	"strconv"
	"time"
)

// lockoutState tracks failed authentication attempts for one subject.
// Created lazily on the first failure; guarded by the manager mutex.
type lockoutState struct {
	attempts    int
	lockedUntil time.Time
}

// IsAccountLocked reports whether the subject is currently locked out.
// An elapsed lockout is cleared lazily, together with the failure
// counter, so the next attempt starts fresh.
func (m *Manager) IsAccountLocked(subject string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.isLockedLocked(subject)
}

// isLockedLocked is the lock-held form of IsAccountLocked.
func (m *Manager) isLockedLocked(subject string) bool {
	state, ok := m.lockouts[subject]
	if !ok || state.lockedUntil.IsZero() {
		return false
	}

	if !time.Now().Before(state.lockedUntil) {
		delete(m.lockouts, subject)
		return false
	}

	return true
}

// FailedAttempts returns the current failure count for the subject.
func (m *Manager) FailedAttempts(subject string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if state, ok := m.lockouts[subject]; ok {
		return state.attempts
	}
	return 0
}

// recordFailedAttempt increments the counter and transitions the subject
// into lockout when the configured maximum is reached.
func (m *Manager) recordFailedAttempt(subject string) {
	m.mu.Lock()
	state, ok := m.lockouts[subject]
	if !ok {
		state = &lockoutState{}
		m.lockouts[subject] = state
	}
	state.attempts++
	attempts := state.attempts
	locked := attempts >= m.opts.MaxFailedAttempts
	if locked {
		state.lockedUntil = time.Now().Add(m.opts.LockoutDuration)
	}
	m.mu.Unlock()

	if locked {
		m.audit.Record("ACCOUNT_LOCKOUT", "Account locked after repeated failed attempts", map[string]string{
			"subject":          subject,
			"failed_attempts":  strconv.Itoa(attempts),
			"lockout_duration": m.opts.LockoutDuration.String(),
		})
	}
}

// clearFailedAttempts resets the failure counter and any lockout.
func (m *Manager) clearFailedAttempts(subject string) {
	m.mu.Lock()
	delete(m.lockouts, subject)
	m.mu.Unlock()
}
