// Package audit provides security event logging and audit trail
// maintenance for authentication, authorization and session operations.
//
// Events are risk-classified, privacy-redacted before storage, and kept
// in an insertion-ordered bounded trail that can be searched and
// exported. Running counters back the operational metrics view.
//
// Usage:
//
//	log := audit.New(audit.WithMaxTrailSize(10000))
//	defer log.Close()
//
//	log.RecordAuthentication("AUTHENTICATION_FAILED", "Invalid credentials",
//	    "alice", "10.0.0.1", "cli/1.0", false, nil)
//
//	metrics := log.Metrics()
package audit

import (
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bytedance/sonic"
	"github.com/oklog/ulid/v2"
)

// RiskLevel classifies the severity of a recorded event.
type RiskLevel string

const (
	// RiskLow is the default classification.
	RiskLow RiskLevel = "LOW"

	// RiskMedium marks events worth correlating, like failed session checks.
	RiskMedium RiskLevel = "MEDIUM"

	// RiskHigh marks failed authentication/authorization and lockouts.
	RiskHigh RiskLevel = "HIGH"

	// RiskCritical marks hijacking, injection, violation and breach events.
	RiskCritical RiskLevel = "CRITICAL"
)

// sensitiveKeys are metadata key fragments whose values are masked
// before an event becomes retrievable.
var sensitiveKeys = []string{"password", "secret", "token", "key", "credential", "pin"}

// Event is a single audit record. Events are immutable once recorded.
type Event struct {
	ID            string            `json:"id"`
	Type          string            `json:"type"`
	Description   string            `json:"description"`
	Subject       string            `json:"subject,omitempty"`
	ClientAddress string            `json:"client_address,omitempty"`
	ClientAgent   string            `json:"client_agent,omitempty"`
	Resource      string            `json:"resource,omitempty"`
	Action        string            `json:"action,omitempty"`
	Success       bool              `json:"success"`
	Risk          RiskLevel         `json:"risk"`
	Metadata      map[string]string `json:"metadata,omitempty"`
	Timestamp     time.Time         `json:"timestamp"`
}

// Metrics is a snapshot of the running audit counters.
type Metrics struct {
	TotalEvents          int64            `json:"total_events"`
	AuthenticationEvents int64            `json:"authentication_events"`
	AuthorizationEvents  int64            `json:"authorization_events"`
	SecurityViolations   int64            `json:"security_violations"`
	SuspiciousActivities int64            `json:"suspicious_activities"`
	EventTypeCounts      map[string]int64 `json:"event_type_counts"`
	TrailSize            int              `json:"trail_size"`
}

// Filter selects events in Search. Zero-valued fields match everything.
type Filter struct {
	Subject   string
	EventType string
	From      time.Time
	To        time.Time
}

// Log is an append-only, risk-classified security audit log.
// All methods are safe for concurrent use.
type Log struct {
	enabled      bool
	maxTrailSize int
	notifier     *Notifier

	totalEvents          atomic.Int64
	authenticationEvents atomic.Int64
	authorizationEvents  atomic.Int64
	securityViolations   atomic.Int64
	suspiciousActivities atomic.Int64

	mu              sync.RWMutex
	trail           []Event
	eventTypeCounts map[string]int64
}

// Option is a functional option for Log.
type Option func(*Log)

// WithEnabled toggles audit recording. A disabled log records nothing.
func WithEnabled(enabled bool) Option {
	return func(l *Log) {
		l.enabled = enabled
	}
}

// WithMaxTrailSize bounds the in-memory trail. Oldest events are dropped first.
func WithMaxTrailSize(n int) Option {
	return func(l *Log) {
		if n > 0 {
			l.maxTrailSize = n
		}
	}
}

// WithNotifier attaches a notifier that receives CRITICAL events.
func WithNotifier(n *Notifier) Option {
	return func(l *Log) {
		l.notifier = n
	}
}

// New creates a new audit log.
func New(opts ...Option) *Log {
	l := &Log{
		enabled:         true,
		maxTrailSize:    10000,
		eventTypeCounts: make(map[string]int64),
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Close releases the attached notifier, if any.
func (l *Log) Close() error {
	if l.notifier != nil {
		return l.notifier.Close()
	}
	return nil
}

// RecordAuthentication records an authentication event.
func (l *Log) RecordAuthentication(eventType, description, subject, clientAddress, clientAgent string, success bool, metadata map[string]string) {
	if !l.enabled {
		return
	}

	l.authenticationEvents.Add(1)

	risk := classifyRisk(eventType, success, metadata)
	if risk == RiskHigh || risk == RiskCritical {
		l.suspiciousActivities.Add(1)
	}

	l.append(Event{
		Type:          eventType,
		Description:   description,
		Subject:       subject,
		ClientAddress: clientAddress,
		ClientAgent:   clientAgent,
		Action:        "AUTHENTICATE",
		Success:       success,
		Risk:          risk,
		Metadata:      redactMetadata(metadata),
	})
}

// RecordAuthorization records an authorization decision event.
// Failed authorizations count as security violations.
func (l *Log) RecordAuthorization(eventType, description, subject, resource, action string, success bool, metadata map[string]string) {
	if !l.enabled {
		return
	}

	l.authorizationEvents.Add(1)
	if !success {
		l.securityViolations.Add(1)
	}

	l.append(Event{
		Type:        eventType,
		Description: description,
		Subject:     subject,
		Resource:    resource,
		Action:      action,
		Success:     success,
		Risk:        classifyRisk(eventType, success, metadata),
		Metadata:    redactMetadata(metadata),
	})
}

// Record records a general security event. Subject, resource and success
// are taken from well-known metadata keys when present.
func (l *Log) Record(eventType, description string, metadata map[string]string) {
	if !l.enabled {
		return
	}

	success := metadata["success"] == "true"

	l.append(Event{
		Type:          eventType,
		Description:   description,
		Subject:       metadata["subject"],
		ClientAddress: metadata["client_address"],
		ClientAgent:   metadata["client_agent"],
		Resource:      metadata["resource"],
		Action:        metadata["action"],
		Success:       success,
		Risk:          classifyRisk(eventType, success, metadata),
		Metadata:      redactMetadata(metadata),
	})
}

// RecordViolation records a security violation. Violations are always
// CRITICAL and increment both the violation and suspicious counters.
func (l *Log) RecordViolation(violationType, description, subject, clientAddress, resource string, metadata map[string]string) {
	if !l.enabled {
		return
	}

	l.securityViolations.Add(1)
	l.suspiciousActivities.Add(1)

	l.append(Event{
		Type:          "SECURITY_VIOLATION_" + violationType,
		Description:   description,
		Subject:       subject,
		ClientAddress: clientAddress,
		Resource:      resource,
		Action:        "VIOLATION",
		Success:       false,
		Risk:          RiskCritical,
		Metadata:      redactMetadata(metadata),
	})
}

// append finalizes and stores an event, then dispatches critical events.
func (l *Log) append(evt Event) {
	evt.ID = ulid.Make().String()
	evt.Timestamp = time.Now()

	l.totalEvents.Add(1)

	l.mu.Lock()
	l.eventTypeCounts[evt.Type]++
	l.trail = append(l.trail, evt)
	if overflow := len(l.trail) - l.maxTrailSize; overflow > 0 {
		l.trail = append(l.trail[:0:0], l.trail[overflow:]...)
	}
	l.mu.Unlock()

	if evt.Risk == RiskCritical && l.notifier != nil {
		l.notifier.dispatch(evt)
	}
}

// Trail returns up to limit most recent events in insertion order.
func (l *Log) Trail(limit int) []Event {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if limit <= 0 || limit > len(l.trail) {
		limit = len(l.trail)
	}
	out := make([]Event, limit)
	copy(out, l.trail[len(l.trail)-limit:])
	return out
}

// Search returns events matching all non-zero filter fields, insertion
// order preserved.
func (l *Log) Search(f Filter) []Event {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []Event
	for _, evt := range l.trail {
		if f.Subject != "" && evt.Subject != f.Subject {
			continue
		}
		if f.EventType != "" && evt.Type != f.EventType {
			continue
		}
		if !f.From.IsZero() && !evt.Timestamp.After(f.From) {
			continue
		}
		if !f.To.IsZero() && !evt.Timestamp.Before(f.To) {
			continue
		}
		out = append(out, evt)
	}
	return out
}

// Metrics returns a snapshot of the running counters.
func (l *Log) Metrics() Metrics {
	l.mu.RLock()
	counts := make(map[string]int64, len(l.eventTypeCounts))
	for k, v := range l.eventTypeCounts {
		counts[k] = v
	}
	trailSize := len(l.trail)
	l.mu.RUnlock()

	return Metrics{
		TotalEvents:          l.totalEvents.Load(),
		AuthenticationEvents: l.authenticationEvents.Load(),
		AuthorizationEvents:  l.authorizationEvents.Load(),
		SecurityViolations:   l.securityViolations.Load(),
		SuspiciousActivities: l.suspiciousActivities.Load(),
		EventTypeCounts:      counts,
		TrailSize:            trailSize,
	}
}

// ExportJSON serializes the current trail for operational tooling.
func (l *Log) ExportJSON() ([]byte, error) {
	return sonic.Marshal(l.Trail(0))
}

// ResetMetrics zeroes all counters. The trail is untouched.
func (l *Log) ResetMetrics() {
	l.totalEvents.Store(0)
	l.authenticationEvents.Store(0)
	l.authorizationEvents.Store(0)
	l.securityViolations.Store(0)
	l.suspiciousActivities.Store(0)

	l.mu.Lock()
	l.eventTypeCounts = make(map[string]int64)
	l.mu.Unlock()
}

// Clear drops all stored events. Counters are untouched.
func (l *Log) Clear() {
	l.mu.Lock()
	l.trail = nil
	l.mu.Unlock()
}

// classifyRisk assigns a risk level from the event characteristics.
func classifyRisk(eventType string, success bool, metadata map[string]string) RiskLevel {
	for _, marker := range []string{"HIJACKING", "INJECTION", "VIOLATION", "BREACH"} {
		if strings.Contains(eventType, marker) {
			return RiskCritical
		}
	}

	if !success && (strings.Contains(eventType, "AUTHENTICATION") || strings.Contains(eventType, "AUTHORIZATION")) {
		return RiskHigh
	}
	for _, marker := range []string{"LOCKOUT", "BLOCKED", "FAILED"} {
		if strings.Contains(eventType, marker) {
			return RiskHigh
		}
	}

	if strings.Contains(eventType, "SESSION") && !success {
		return RiskMedium
	}
	if attempts, err := strconv.Atoi(metadata["failed_attempts"]); err == nil && attempts >= 3 {
		return RiskMedium
	}

	return RiskLow
}

// redactMetadata masks values under sensitive keys. The input map is not
// modified.
func redactMetadata(metadata map[string]string) map[string]string {
	if len(metadata) == 0 {
		return nil
	}

	out := make(map[string]string, len(metadata))
	for k, v := range metadata {
		if isSensitiveKey(k) {
			out[k] = maskValue(v)
		} else {
			out[k] = v
		}
	}
	return out
}

func isSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	for _, s := range sensitiveKeys {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}

// maskValue keeps at most the first and last two characters visible.
func maskValue(v string) string {
	if v == "" {
		return "[EMPTY]"
	}
	if len(v) <= 4 {
		return "[MASKED]"
	}
	return v[:2] + "***" + v[len(v)-2:]
}
