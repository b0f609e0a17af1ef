// Package db provides durable store configuration options.
package db

import (
	"fmt"

	"github.com/spf13/pflag"

	"github.com/kart-io/guardian/pkg/options"
)

var _ options.IOptions = (*Options)(nil)

// Options configures the sqlite-backed durable store.
type Options struct {
	// DSN is a file path or ":memory:".
	DSN string `json:"dsn" mapstructure:"dsn"`
}

// NewOptions creates Options with defaults.
func NewOptions() *Options {
	return &Options{
		DSN: "guardian.db",
	}
}

// AddFlags adds durable store flags to the given FlagSet.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.DSN, "db.dsn", o.DSN, "Database DSN, a file path or :memory:")
}

// Validate validates the options.
func (o *Options) Validate() []error {
	var errs []error
	if o.DSN == "" {
		errs = append(errs, fmt.Errorf("db.dsn must not be empty"))
	}
	return errs
}
