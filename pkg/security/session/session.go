// Package session provides credential validation, account lockout and
// secure session lifecycle management.
//
// Sessions are bound to the client that created them: the session
// identifier alone is not sufficient to resume a session from a
// different network address or client signature.
package session

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"sync/atomic"
	"time"
)

// Session is a live authenticated session. All fields are immutable
// after creation; last-activity time is updated on successful validation.
type Session struct {
	// ID is the high-entropy session identifier.
	ID string

	// Subject is the authenticated principal.
	Subject string

	// ClientAddress is the network address recorded at creation.
	ClientAddress string

	// ClientSignature is the client fingerprint recorded at creation.
	ClientSignature string

	// CreatedAt is the creation time.
	CreatedAt time.Time

	// binding is the token-binding hash of address and signature.
	binding string

	// lastActivity is unix nanos of the last successful validation.
	lastActivity atomic.Int64
}

func newSession(id, subject, clientAddress, clientSignature string) *Session {
	s := &Session{
		ID:              id,
		Subject:         subject,
		ClientAddress:   clientAddress,
		ClientSignature: clientSignature,
		CreatedAt:       time.Now(),
		binding:         tokenBinding(clientAddress, clientSignature),
	}
	s.lastActivity.Store(s.CreatedAt.UnixNano())
	return s
}

// LastActivity returns the time of the last successful validation.
func (s *Session) LastActivity() time.Time {
	return time.Unix(0, s.lastActivity.Load())
}

// touch records activity on the session.
func (s *Session) touch() {
	s.lastActivity.Store(time.Now().UnixNano())
}

// IsExpired reports whether the session has been idle longer than
// timeout. A non-positive timeout always reports expired.
func (s *Session) IsExpired(timeout time.Duration) bool {
	if timeout <= 0 {
		return true
	}
	return time.Since(s.LastActivity()) >= timeout
}

// validBinding reports whether the supplied client details hash to the
// binding recorded at creation.
func (s *Session) validBinding(clientAddress, clientSignature string) bool {
	return s.binding != "" && s.binding == tokenBinding(clientAddress, clientSignature)
}

// tokenBinding hashes the client address and signature into the value a
// session is bound to. A stolen identifier replayed from another origin
// produces a different binding.
func tokenBinding(clientAddress, clientSignature string) string {
	sum := sha256.Sum256([]byte(clientAddress + "|" + clientSignature))
	return base64.StdEncoding.EncodeToString(sum[:])
}

// generateSessionID returns a fresh 256-bit identifier encoded as
// unpadded URL-safe base64 (43 characters).
func generateSessionID() (string, error) {
	var buf [32]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf[:]), nil
}
