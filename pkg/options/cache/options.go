// Package cache provides decision-cache configuration options.
package cache

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"

	"github.com/kart-io/guardian/pkg/options"
)

var _ options.IOptions = (*Options)(nil)

// Options configures the authorization decision cache.
type Options struct {
	// TTL is how long a cached decision stays valid.
	TTL time.Duration `json:"ttl" mapstructure:"ttl" validate:"gt=0"`

	// MaxSubjects bounds the number of subjects tracked by the cache.
	MaxSubjects int `json:"max-subjects" mapstructure:"max-subjects" validate:"gt=0"`
}

// NewOptions creates default decision-cache options.
func NewOptions() *Options {
	return &Options{
		TTL:         30 * time.Minute,
		MaxSubjects: 1000,
	}
}

// AddFlags adds flags for cache options to the specified FlagSet.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	p := options.Join(prefixes...)
	fs.DurationVar(&o.TTL, p+"cache.ttl", o.TTL, "Decision cache TTL.")
	fs.IntVar(&o.MaxSubjects, p+"cache.max-subjects", o.MaxSubjects, "Maximum subjects tracked by the decision cache.")
}

// Validate validates the cache options.
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	if o.TTL <= 0 {
		errs = append(errs, fmt.Errorf("cache ttl must be positive, got %s", o.TTL))
	}
	if o.MaxSubjects <= 0 {
		errs = append(errs, fmt.Errorf("cache max-subjects must be positive, got %d", o.MaxSubjects))
	}
	return errs
}
