// Package redis provides Redis configuration options.
package redis

import (
	"fmt"

	"github.com/spf13/pflag"

	"github.com/kart-io/guardian/pkg/options"
)

var _ options.IOptions = (*Options)(nil)

// Options configures the optional Redis backend used for distributed
// token revocation.
type Options struct {
	// Enabled switches the token blacklist from memory to Redis.
	Enabled bool `json:"enabled" mapstructure:"enabled"`

	// Addr is the host:port of the Redis server.
	Addr string `json:"addr" mapstructure:"addr"`

	// Password is the Redis password, empty for none.
	Password string `json:"password" mapstructure:"password"`

	// Database is the Redis database index.
	Database int `json:"database" mapstructure:"database" validate:"gte=0"`
}

// NewOptions creates Options with defaults.
func NewOptions() *Options {
	return &Options{
		Enabled: false,
		Addr:    "127.0.0.1:6379",
	}
}

// AddFlags adds Redis flags to the given FlagSet.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.BoolVar(&o.Enabled, "redis.enabled", o.Enabled, "Use Redis for token revocation state")
	fs.StringVar(&o.Addr, "redis.addr", o.Addr, "Redis server address")
	fs.StringVar(&o.Password, "redis.password", o.Password, "Redis password")
	fs.IntVar(&o.Database, "redis.database", o.Database, "Redis database index")
}

// Validate validates the options.
func (o *Options) Validate() []error {
	var errs []error
	if o.Enabled && o.Addr == "" {
		errs = append(errs, fmt.Errorf("redis.addr must not be empty when redis is enabled"))
	}
	if o.Database < 0 {
		errs = append(errs, fmt.Errorf("redis.database must not be negative"))
	}
	return errs
}
