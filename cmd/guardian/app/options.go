// Package app provides the guardian server application.
package app

import (
	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"

	"github.com/kart-io/guardian/internal/guardian"
	auditopts "github.com/kart-io/guardian/pkg/options/audit"
	cacheopts "github.com/kart-io/guardian/pkg/options/cache"
	dbopts "github.com/kart-io/guardian/pkg/options/db"
	logopts "github.com/kart-io/guardian/pkg/options/log"
	redisopts "github.com/kart-io/guardian/pkg/options/redis"
	securityopts "github.com/kart-io/guardian/pkg/options/security"
	tokenopts "github.com/kart-io/guardian/pkg/options/token"
	traceopts "github.com/kart-io/guardian/pkg/options/trace"
)

// ServerOptions contains the configuration options for the server.
type ServerOptions struct {
	// Log contains logger configuration.
	Log *logopts.Options `json:"log" mapstructure:"log"`

	// Security contains password, lockout and session configuration.
	Security *securityopts.Options `json:"security" mapstructure:"security"`

	// Cache contains decision cache configuration.
	Cache *cacheopts.Options `json:"cache" mapstructure:"cache"`

	// Audit contains audit log configuration.
	Audit *auditopts.Options `json:"audit" mapstructure:"audit"`

	// Token contains access-token configuration.
	Token *tokenopts.Options `json:"token" mapstructure:"token"`

	// Redis contains the optional Redis backend configuration.
	Redis *redisopts.Options `json:"redis" mapstructure:"redis"`

	// DB contains durable store configuration.
	DB *dbopts.Options `json:"db" mapstructure:"db"`

	// Trace contains span export configuration.
	Trace *traceopts.Options `json:"trace" mapstructure:"trace"`
}

// NewServerOptions creates a ServerOptions with default values.
func NewServerOptions() *ServerOptions {
	return &ServerOptions{
		Log:      logopts.NewOptions(),
		Security: securityopts.NewOptions(),
		Cache:    cacheopts.NewOptions(),
		Audit:    auditopts.NewOptions(),
		Token:    tokenopts.NewOptions(),
		Redis:    redisopts.NewOptions(),
		DB:       dbopts.NewOptions(),
		Trace:    traceopts.NewOptions(),
	}
}

// AddFlags adds all option flags to the given FlagSet.
func (o *ServerOptions) AddFlags(fs *pflag.FlagSet) {
	o.Log.AddFlags(fs)
	o.Security.AddFlags(fs)
	o.Cache.AddFlags(fs)
	o.Audit.AddFlags(fs)
	o.Token.AddFlags(fs)
	o.Redis.AddFlags(fs)
	o.DB.AddFlags(fs)
	o.Trace.AddFlags(fs)
}

// Validate validates every option group plus the struct tags.
func (o *ServerOptions) Validate() []error {
	var errs []error
	errs = append(errs, o.Log.Validate()...)
	errs = append(errs, o.Security.Validate()...)
	errs = append(errs, o.Cache.Validate()...)
	errs = append(errs, o.Audit.Validate()...)
	errs = append(errs, o.Token.Validate()...)
	errs = append(errs, o.Redis.Validate()...)
	errs = append(errs, o.DB.Validate()...)
	errs = append(errs, o.Trace.Validate()...)

	if err := validator.New().Struct(o); err != nil {
		errs = append(errs, err)
	}
	return errs
}

// Config converts the options into the engine configuration.
func (o *ServerOptions) Config() *guardian.Config {
	return &guardian.Config{
		Security: o.Security,
		Cache:    o.Cache,
		Audit:    o.Audit,
		Token:    o.Token,
		Redis:    o.Redis,
		DB:       o.DB,
	}
}
