// Package audit provides audit-log configuration options.
package audit

import (
	"fmt"

	"github.com/spf13/pflag"

	"github.com/kart-io/guardian/pkg/options"
)

var _ options.IOptions = (*Options)(nil)

// Options configures the security audit log.
type Options struct {
	// Enabled toggles audit recording. Disabled logs record nothing.
	Enabled bool `json:"enabled" mapstructure:"enabled"`

	// MaxTrailSize bounds the in-memory audit trail.
	MaxTrailSize int `json:"max-trail-size" mapstructure:"max-trail-size" validate:"gt=0"`

	// NotifierPoolSize is the goroutine pool size for critical-event notification.
	NotifierPoolSize int `json:"notifier-pool-size" mapstructure:"notifier-pool-size" validate:"gt=0"`
}

// NewOptions creates default audit options.
func NewOptions() *Options {
	return &Options{
		Enabled:          true,
		MaxTrailSize:     10000,
		NotifierPoolSize: 4,
	}
}

// AddFlags adds flags for audit options to the specified FlagSet.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	p := options.Join(prefixes...)
	fs.BoolVar(&o.Enabled, p+"audit.enabled", o.Enabled, "Enable security audit logging.")
	fs.IntVar(&o.MaxTrailSize, p+"audit.max-trail-size", o.MaxTrailSize, "Maximum in-memory audit trail size.")
	fs.IntVar(&o.NotifierPoolSize, p+"audit.notifier-pool-size", o.NotifierPoolSize, "Goroutine pool size for critical event notification.")
}

// Validate validates the audit options.
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	if o.MaxTrailSize <= 0 {
		errs = append(errs, fmt.Errorf("audit max-trail-size must be positive, got %d", o.MaxTrailSize))
	}
	if o.NotifierPoolSize <= 0 {
		errs = append(errs, fmt.Errorf("audit notifier-pool-size must be positive, got %d", o.NotifierPoolSize))
	}
	return errs
}
