// Package token provides access-token service configuration options.
package token

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"

	"github.com/kart-io/guardian/pkg/options"
)

var _ options.IOptions = (*Options)(nil)

// Options configures the JWT access-token service.
type Options struct {
	// Key is the HMAC signing key. Must be at least 32 bytes.
	Key string `json:"key" mapstructure:"key" validate:"min=32"`

	// Issuer is the token issuer claim.
	Issuer string `json:"issuer" mapstructure:"issuer"`

	// Expired is the access-token lifetime.
	Expired time.Duration `json:"expired" mapstructure:"expired" validate:"gt=0"`

	// MaxRefresh is the window after issuance within which a token may be refreshed.
	MaxRefresh time.Duration `json:"max-refresh" mapstructure:"max-refresh" validate:"gt=0"`
}

// NewOptions creates default token options.
func NewOptions() *Options {
	return &Options{
		Issuer:     "guardian",
		Expired:    2 * time.Hour,
		MaxRefresh: 24 * time.Hour,
	}
}

// AddFlags adds flags for token options to the specified FlagSet.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	p := options.Join(prefixes...)
	fs.StringVar(&o.Key, p+"token.key", o.Key, "HMAC signing key for access tokens (min 32 bytes).")
	fs.StringVar(&o.Issuer, p+"token.issuer", o.Issuer, "Access token issuer.")
	fs.DurationVar(&o.Expired, p+"token.expired", o.Expired, "Access token lifetime.")
	fs.DurationVar(&o.MaxRefresh, p+"token.max-refresh", o.MaxRefresh, "Token refresh window after issuance.")
}

// Validate validates the token options.
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	if len(o.Key) < 32 {
		errs = append(errs, fmt.Errorf("token key must be at least 32 bytes, got %d", len(o.Key)))
	}
	if o.Expired <= 0 {
		errs = append(errs, fmt.Errorf("token expired must be positive, got %s", o.Expired))
	}
	if o.MaxRefresh < o.Expired {
		errs = append(errs, fmt.Errorf("token max-refresh %s is below expired %s", o.MaxRefresh, o.Expired))
	}
	return errs
}
