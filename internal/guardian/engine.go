// Package guardian assembles the security engine: audit log, session
// manager, authorization manager, decision cache, permission evaluator
// and token service, wired around the durable store.
package guardian

import (
	"context"
	"time"

	"github.com/kart-io/logger"
	"github.com/redis/go-redis/v9"

	"github.com/kart-io/guardian/internal/guardian/store"
	auditopts "github.com/kart-io/guardian/pkg/options/audit"
	cacheopts "github.com/kart-io/guardian/pkg/options/cache"
	dbopts "github.com/kart-io/guardian/pkg/options/db"
	redisopts "github.com/kart-io/guardian/pkg/options/redis"
	securityopts "github.com/kart-io/guardian/pkg/options/security"
	tokenopts "github.com/kart-io/guardian/pkg/options/token"
	"github.com/kart-io/guardian/pkg/security/audit"
	"github.com/kart-io/guardian/pkg/security/authz"
	"github.com/kart-io/guardian/pkg/security/cache"
	"github.com/kart-io/guardian/pkg/security/evaluator"
	"github.com/kart-io/guardian/pkg/security/session"
	"github.com/kart-io/guardian/pkg/security/token"
)

// sweepInterval drives the periodic session and cache sweeps.
const sweepInterval = time.Minute

// Config collects the option groups the engine needs.
type Config struct {
	Security *securityopts.Options
	Cache    *cacheopts.Options
	Audit    *auditopts.Options
	Token    *tokenopts.Options
	Redis    *redisopts.Options
	DB       *dbopts.Options
}

// Engine is the assembled security engine.
type Engine struct {
	Audit     *audit.Log
	Sessions  *session.Manager
	Authz     *authz.Manager
	Cache     *cache.Decisions
	Evaluator *evaluator.Evaluator
	Tokens    *token.Service
	Store     *store.Store

	tokenStore token.Store
}

// New builds an engine from config. The caller owns Close.
func New(cfg *Config) (*Engine, error) {
	auditLog, err := newAuditLog(cfg.Audit)
	if err != nil {
		return nil, err
	}

	st, err := store.Open(cfg.DB.DSN)
	if err != nil {
		return nil, err
	}

	decisions := cache.New(cfg.Cache)

	var tokenStore token.Store
	if cfg.Redis != nil && cfg.Redis.Enabled {
		cli := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.Database,
		})
		tokenStore = token.NewRedisStore(cli)
	} else {
		tokenStore = token.NewMemoryStore(sweepInterval)
	}

	return &Engine{
		Audit:      auditLog,
		Sessions:   session.NewManager(cfg.Security, auditLog, st),
		Authz:      authz.NewManager(auditLog),
		Cache:      decisions,
		Evaluator:  evaluator.New(decisions, auditLog, st),
		Tokens:     token.NewService(cfg.Token, tokenStore),
		Store:      st,
		tokenStore: tokenStore,
	}, nil
}

func newAuditLog(opts *auditopts.Options) (*audit.Log, error) {
	if opts == nil {
		opts = auditopts.NewOptions()
	}

	logOpts := []audit.Option{
		audit.WithEnabled(opts.Enabled),
		audit.WithMaxTrailSize(opts.MaxTrailSize),
	}

	if opts.Enabled && opts.NotifierPoolSize > 0 {
		notifier, err := audit.NewNotifier(opts.NotifierPoolSize)
		if err != nil {
			return nil, err
		}
		notifier.Subscribe(func(evt audit.Event) {
			logger.Warnw("critical security event",
				"event_id", evt.ID,
				"event_type", evt.Type,
				"subject", evt.Subject,
				"description", evt.Description)
		})
		logOpts = append(logOpts, audit.WithNotifier(notifier))
	}

	return audit.New(logOpts...), nil
}

// Run blocks until ctx is cancelled, sweeping expired sessions and
// cache entries in the background.
func (e *Engine) Run(ctx context.Context) error {
	go e.Sessions.SweepLoop(ctx, sweepInterval)

	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	logger.Info("guardian engine running")
	for {
		select {
		case <-ticker.C:
			if n := e.Cache.SweepExpired(); n > 0 {
				logger.Debugw("swept expired cache entries", "count", n)
			}
		case <-ctx.Done():
			logger.Info("guardian engine stopping")
			return nil
		}
	}
}

// Close tears the engine down.
func (e *Engine) Close() error {
	if err := e.tokenStore.Close(); err != nil {
		logger.Warnw("failed to close token store", "error", err)
	}
	if err := e.Audit.Close(); err != nil {
		logger.Warnw("failed to close audit log", "error", err)
	}
	return e.Store.Close()
}
