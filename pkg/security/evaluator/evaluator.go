// Package evaluator orchestrates permission and role checks for request
// handlers: decision cache first, durable lookup on miss, fail-safe
// denial when the lookup collaborator fails.
package evaluator

import (
	"context"

	"github.com/kart-io/logger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/kart-io/guardian/pkg/security/audit"
	"github.com/kart-io/guardian/pkg/security/cache"
)

// Lookup is the durable decision source consulted on cache miss. It may
// fail on connectivity problems; failures are treated as denial.
type Lookup interface {
	HasPermission(ctx context.Context, subject, permission string) (bool, error)
	HasRole(ctx context.Context, subject, role string) (bool, error)
}

// Evaluator answers permission and role questions, caching results per
// subject. Every answer is audited; errors never escape as grants.
type Evaluator struct {
	cache  *cache.Decisions
	audit  *audit.Log
	lookup Lookup
	tracer trace.Tracer
}

// New creates an evaluator around the given cache, audit log and
// durable lookup.
func New(decisions *cache.Decisions, auditLog *audit.Log, lookup Lookup) *Evaluator {
	if auditLog == nil {
		auditLog = audit.New(audit.WithEnabled(false))
	}

	return &Evaluator{
		cache:  decisions,
		audit:  auditLog,
		lookup: lookup,
		tracer: otel.Tracer("guardian/evaluator"),
	}
}

// HasPermission reports whether subject holds permission. A blank
// subject is denied before any lookup.
func (e *Evaluator) HasPermission(ctx context.Context, subject, permission string) bool {
	return e.check(ctx, cache.KindPermission, subject, permission)
}

// HasRole reports whether subject holds role. Independent of permission
// checks; cached separately.
func (e *Evaluator) HasRole(ctx context.Context, subject, role string) bool {
	return e.check(ctx, cache.KindRole, subject, role)
}

func (e *Evaluator) check(ctx context.Context, kind cache.Kind, subject, value string) bool {
	if subject == "" || value == "" {
		e.audit.Record("AUTHORIZATION_AUTHENTICATION_ISSUE", "Denied check for unauthenticated or blank input", map[string]string{
			"kind":    string(kind),
			"value":   value,
			"success": "false",
		})
		return false
	}

	if decision, ok := e.cache.Get(subject, kind, value); ok {
		return decision
	}

	decision, err := e.lookupKind(ctx, kind, subject, value)
	if err != nil {
		// Fail safe: an unreachable store must never grant, and the
		// failure must not be cached.
		logger.Errorw("durable lookup failed", "subject", subject, "kind", string(kind), "value", value, "error", err)
		e.audit.Record("DATABASE_ERROR", "Durable lookup failed during authorization check", map[string]string{
			"subject": subject,
			"kind":    string(kind),
			"value":   value,
			"error":   err.Error(),
			"success": "false",
		})
		return false
	}

	e.cache.Put(subject, kind, value, decision)

	eventType := "AUTHORIZATION_GRANTED"
	if !decision {
		eventType = "AUTHORIZATION_DENIED"
	}
	e.audit.RecordAuthorization(eventType, "Authorization check resolved from durable store",
		subject, value, string(kind), decision, nil)

	return decision
}

func (e *Evaluator) lookupKind(ctx context.Context, kind cache.Kind, subject, value string) (bool, error) {
	ctx, span := e.tracer.Start(ctx, "evaluator.lookup",
		trace.WithAttributes(
			attribute.String("guardian.subject", subject),
			attribute.String("guardian.check_kind", string(kind)),
			attribute.String("guardian.check_value", value),
		))
	defer span.End()

	if kind == cache.KindRole {
		return e.lookup.HasRole(ctx, subject, value)
	}
	return e.lookup.HasPermission(ctx, subject, value)
}

// InvalidateSubject drops the subject's cached decisions, forcing the
// next check back to the durable store.
func (e *Evaluator) InvalidateSubject(subject string) {
	e.cache.InvalidateSubject(subject)
}
