// Package security provides configuration options for credential and
// session security.
package security

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"

	"github.com/kart-io/guardian/pkg/options"
)

var _ options.IOptions = (*Options)(nil)

// Options configures password complexity, account lockout and session
// lifecycle enforcement.
type Options struct {
	// PasswordMinLength is the minimum accepted password length.
	PasswordMinLength int `json:"password-min-length" mapstructure:"password-min-length" validate:"gt=0"`

	// PasswordMaxLength is the maximum accepted password length.
	PasswordMaxLength int `json:"password-max-length" mapstructure:"password-max-length" validate:"gtefield=PasswordMinLength"`

	// PasswordRequireUppercase requires at least one uppercase letter.
	PasswordRequireUppercase bool `json:"password-require-uppercase" mapstructure:"password-require-uppercase"`

	// PasswordRequireLowercase requires at least one lowercase letter.
	PasswordRequireLowercase bool `json:"password-require-lowercase" mapstructure:"password-require-lowercase"`

	// PasswordRequireDigit requires at least one decimal digit.
	PasswordRequireDigit bool `json:"password-require-digit" mapstructure:"password-require-digit"`

	// PasswordRequireSpecial requires at least one special character.
	PasswordRequireSpecial bool `json:"password-require-special" mapstructure:"password-require-special"`

	// MaxFailedAttempts is the failed-authentication count that triggers a lockout.
	MaxFailedAttempts int `json:"max-failed-attempts" mapstructure:"max-failed-attempts" validate:"gt=0"`

	// LockoutDuration is how long an account stays locked.
	LockoutDuration time.Duration `json:"lockout-duration" mapstructure:"lockout-duration" validate:"gt=0"`

	// SessionTimeout is the idle timeout after which a session expires.
	SessionTimeout time.Duration `json:"session-timeout" mapstructure:"session-timeout"`

	// MaxConcurrentSessions bounds live sessions per subject.
	MaxConcurrentSessions int `json:"max-concurrent-sessions" mapstructure:"max-concurrent-sessions" validate:"gt=0"`
}

// NewOptions creates an Options with default values.
func NewOptions() *Options {
	return &Options{
		PasswordMinLength:        8,
		PasswordMaxLength:        128,
		PasswordRequireUppercase: true,
		PasswordRequireLowercase: true,
		PasswordRequireDigit:     true,
		PasswordRequireSpecial:   true,
		MaxFailedAttempts:        5,
		LockoutDuration:          15 * time.Minute,
		SessionTimeout:           30 * time.Minute,
		MaxConcurrentSessions:    3,
	}
}

// AddFlags adds flags for security options to the specified FlagSet.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	p := options.Join(prefixes...)
	fs.IntVar(&o.PasswordMinLength, p+"security.password-min-length", o.PasswordMinLength, "Minimum password length.")
	fs.IntVar(&o.PasswordMaxLength, p+"security.password-max-length", o.PasswordMaxLength, "Maximum password length.")
	fs.BoolVar(&o.PasswordRequireUppercase, p+"security.password-require-uppercase", o.PasswordRequireUppercase, "Require an uppercase letter in passwords.")
	fs.BoolVar(&o.PasswordRequireLowercase, p+"security.password-require-lowercase", o.PasswordRequireLowercase, "Require a lowercase letter in passwords.")
	fs.BoolVar(&o.PasswordRequireDigit, p+"security.password-require-digit", o.PasswordRequireDigit, "Require a digit in passwords.")
	fs.BoolVar(&o.PasswordRequireSpecial, p+"security.password-require-special", o.PasswordRequireSpecial, "Require a special character in passwords.")
	fs.IntVar(&o.MaxFailedAttempts, p+"security.max-failed-attempts", o.MaxFailedAttempts, "Failed attempts before account lockout.")
	fs.DurationVar(&o.LockoutDuration, p+"security.lockout-duration", o.LockoutDuration, "Account lockout duration.")
	fs.DurationVar(&o.SessionTimeout, p+"security.session-timeout", o.SessionTimeout, "Session idle timeout.")
	fs.IntVar(&o.MaxConcurrentSessions, p+"security.max-concurrent-sessions", o.MaxConcurrentSessions, "Maximum concurrent sessions per subject.")
}

// Validate validates the security options.
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	if o.PasswordMinLength <= 0 {
		errs = append(errs, fmt.Errorf("password-min-length must be positive, got %d", o.PasswordMinLength))
	}
	if o.PasswordMaxLength < o.PasswordMinLength {
		errs = append(errs, fmt.Errorf("password-max-length %d is below password-min-length %d", o.PasswordMaxLength, o.PasswordMinLength))
	}
	if o.MaxFailedAttempts <= 0 {
		errs = append(errs, fmt.Errorf("max-failed-attempts must be positive, got %d", o.MaxFailedAttempts))
	}
	if o.LockoutDuration <= 0 {
		errs = append(errs, fmt.Errorf("lockout-duration must be positive, got %s", o.LockoutDuration))
	}
	if o.MaxConcurrentSessions <= 0 {
		errs = append(errs, fmt.Errorf("max-concurrent-sessions must be positive, got %d", o.MaxConcurrentSessions))
	}
	return errs
}
