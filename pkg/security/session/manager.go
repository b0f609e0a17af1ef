package session

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/kart-io/logger"

	securityopts "github.com/kart-io/guardian/pkg/options/security"
	"github.com/kart-io/guardian/pkg/security/audit"
	"github.com/kart-io/guardian/pkg/utils/errors"
)

// CredentialVerifier validates a subject's credential against durable
// storage. Implementations may fail on connectivity problems.
type CredentialVerifier interface {
	Verify(ctx context.Context, subject, credential string) (bool, error)
}

// AuthResult is the outcome of an authentication attempt. Denials are
// results, not errors; the message is safe to show the caller.
type AuthResult struct {
	Success   bool
	Message   string
	SessionID string
}

// Manager owns the session table and lockout table. All methods are
// safe for concurrent use.
type Manager struct {
	opts     *securityopts.Options
	audit    *audit.Log
	verifier CredentialVerifier

	mu       sync.RWMutex
	sessions map[string]*Session
	lockouts map[string]*lockoutState
}

// NewManager creates a session manager.
func NewManager(opts *securityopts.Options, auditLog *audit.Log, verifier CredentialVerifier) *Manager {
	if opts == nil {
		opts = securityopts.NewOptions()
	}
	if auditLog == nil {
		auditLog = audit.New(audit.WithEnabled(false))
	}

	return &Manager{
		opts:     opts,
		audit:    auditLog,
		verifier: verifier,
		sessions: make(map[string]*Session),
		lockouts: make(map[string]*lockoutState),
	}
}

// AuthenticateUser validates the credential for subject and, on success,
// opens a bound session. Lockout is checked before the credential so a
// locked account leaks nothing about credential correctness.
func (m *Manager) AuthenticateUser(ctx context.Context, subject, credential, clientAddress, clientSignature string) (*AuthResult, error) {
	if subject == "" {
		return nil, errors.ErrInvalidParam.WithMessage("subject is required")
	}

	meta := map[string]string{
		"subject":        subject,
		"client_address": clientAddress,
	}

	if m.IsAccountLocked(subject) {
		m.audit.RecordAuthentication("AUTHENTICATION_BLOCKED", "Account locked due to failed attempts",
			subject, clientAddress, clientSignature, false, meta)
		return &AuthResult{Success: false, Message: "Account is temporarily locked"}, nil
	}

	ok, err := m.verifier.Verify(ctx, subject, credential)
	if err != nil {
		// Collaborator failure: fail safe without counting it as a
		// wrong credential.
		logger.Errorw("credential verification failed", "subject", subject, "error", err)
		m.audit.RecordAuthentication("AUTHENTICATION_ERROR", "Authentication process failed",
			subject, clientAddress, clientSignature, false, meta)
		return &AuthResult{Success: false, Message: "Authentication process failed"}, nil
	}

	if !ok {
		m.recordFailedAttempt(subject)
		m.audit.RecordAuthentication("AUTHENTICATION_FAILED", "Invalid credentials provided",
			subject, clientAddress, clientSignature, false, meta)
		return &AuthResult{Success: false, Message: "Invalid credentials"}, nil
	}

	m.clearFailedAttempts(subject)

	sessionID, err := m.CreateSession(subject, clientAddress, clientSignature)
	if err != nil {
		return nil, err
	}

	m.audit.RecordAuthentication("AUTHENTICATION_SUCCESS", "User successfully authenticated",
		subject, clientAddress, clientSignature, true, meta)

	return &AuthResult{Success: true, Message: "Authentication successful", SessionID: sessionID}, nil
}

// CreateSession opens an authenticated session bound to the client.
// When the subject already holds the configured maximum of concurrent
// sessions, the oldest sessions are evicted first so the live count
// never exceeds the bound.
func (m *Manager) CreateSession(subject, clientAddress, clientSignature string) (string, error) {
	if subject == "" {
		return "", errors.ErrInvalidParam.WithMessage("subject is required")
	}

	id, err := generateSessionID()
	if err != nil {
		return "", errors.ErrInternal.WithCause(err).WithMessage("failed to generate session id")
	}

	sess := newSession(id, subject, clientAddress, clientSignature)

	var evicted []*Session
	m.mu.Lock()
	for _, old := range m.oldestSessionsLocked(subject, m.opts.MaxConcurrentSessions-1) {
		delete(m.sessions, old.ID)
		evicted = append(evicted, old)
	}
	m.sessions[id] = sess
	m.mu.Unlock()

	for _, old := range evicted {
		m.audit.Record("SESSION_INVALIDATED", "Concurrent session limit exceeded", map[string]string{
			"subject":    subject,
			"session_id": old.ID,
		})
	}

	m.audit.Record("SESSION_CREATED", "Secure session created", map[string]string{
		"subject":        subject,
		"session_id":     id,
		"client_address": clientAddress,
		"success":        "true",
	})
	logger.Debugw("session created", "subject", subject, "session_id", id)

	return id, nil
}

// oldestSessionsLocked returns the subject's sessions beyond keep, oldest
// first. Caller holds the write lock.
func (m *Manager) oldestSessionsLocked(subject string, keep int) []*Session {
	var own []*Session
	for _, s := range m.sessions {
		if s.Subject == subject {
			own = append(own, s)
		}
	}
	if keep < 0 {
		keep = 0
	}
	if len(own) <= keep {
		return nil
	}

	sort.Slice(own, func(i, j int) bool { return own[i].CreatedAt.Before(own[j].CreatedAt) })
	return own[:len(own)-keep]
}

// ValidateSession reports whether sessionID names a live, unexpired
// session bound to the supplied client details. A binding mismatch
// destroys the session and records a hijacking event.
func (m *Manager) ValidateSession(sessionID, clientAddress, clientSignature string) bool {
	m.mu.RLock()
	sess, ok := m.sessions[sessionID]
	m.mu.RUnlock()

	if !ok {
		m.audit.Record("SESSION_NOT_FOUND", "Session not found", map[string]string{
			"session_id":     sessionID,
			"client_address": clientAddress,
		})
		return false
	}

	if sess.IsExpired(m.opts.SessionTimeout) {
		m.InvalidateSession(sessionID, "Session timeout")
		return false
	}

	if !sess.validBinding(clientAddress, clientSignature) {
		m.InvalidateSession(sessionID, "Token binding mismatch")
		m.audit.Record("SESSION_HIJACKING_DETECTED", "Token binding mismatch detected", map[string]string{
			"subject":          sess.Subject,
			"session_id":       sessionID,
			"original_address": sess.ClientAddress,
			"current_address":  clientAddress,
		})
		return false
	}

	sess.touch()
	return true
}

// InvalidateSession destroys the session if it exists.
func (m *Manager) InvalidateSession(sessionID, reason string) {
	m.mu.Lock()
	sess, ok := m.sessions[sessionID]
	if ok {
		delete(m.sessions, sessionID)
	}
	m.mu.Unlock()

	if !ok {
		return
	}

	m.audit.Record("SESSION_INVALIDATED", "Session invalidated", map[string]string{
		"subject":    sess.Subject,
		"session_id": sessionID,
		"reason":     reason,
	})
	logger.Debugw("session invalidated", "subject", sess.Subject, "session_id", sessionID, "reason", reason)
}

// GetSession returns the live session for id, or nil.
func (m *Manager) GetSession(sessionID string) *Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sessions[sessionID]
}

// SubjectSessions returns the subject's live sessions.
func (m *Manager) SubjectSessions(subject string) []*Session {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*Session
	for _, s := range m.sessions {
		if s.Subject == subject {
			out = append(out, s)
		}
	}
	return out
}

// CleanupExpiredSessions removes idle sessions. Expiry is also checked
// lazily on validation; the sweep only reclaims memory earlier.
func (m *Manager) CleanupExpiredSessions() int {
	timeout := m.opts.SessionTimeout

	m.mu.RLock()
	var expired []string
	for id, s := range m.sessions {
		if s.IsExpired(timeout) {
			expired = append(expired, id)
		}
	}
	m.mu.RUnlock()

	removed := 0
	for _, id := range expired {
		m.mu.Lock()
		sess, ok := m.sessions[id]
		if ok && sess.IsExpired(timeout) {
			delete(m.sessions, id)
		} else {
			ok = false
		}
		m.mu.Unlock()

		if ok {
			m.audit.Record("SESSION_INVALIDATED", "Session expired during cleanup", map[string]string{
				"subject":    sess.Subject,
				"session_id": id,
			})
			removed++
		}
	}

	if removed > 0 {
		logger.Infow("cleaned up expired sessions", "count", removed)
	}
	return removed
}

// SweepLoop runs CleanupExpiredSessions on the given interval until ctx
// is cancelled.
func (m *Manager) SweepLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.CleanupExpiredSessions()
		case <-ctx.Done():
			return
		}
	}
}
