// Package options defines the contract every guardian option group
// implements so the server can register flags and validate
// configuration uniformly.
package options

import (
	"strings"

	"github.com/spf13/pflag"
)

// Join builds a flag-name prefix from the given segments, dot-separated
// with a trailing dot when non-empty:
//
//	options.Join("security")            // "security."
//	options.Join("guardian", "token")   // "guardian.token."
//	options.Join()                      // ""
//
// Option groups prepend the result to their flag names, yielding names
// like "security.password-min-length".
func Join(prefixes ...string) string {
	joined := strings.Join(prefixes, ".")
	if joined != "" {
		joined += "."
	}
	return joined
}

// IOptions is implemented by every option group under pkg/options.
type IOptions interface {
	// Validate reports every configuration problem in the group. An
	// empty slice means the group is usable as-is.
	Validate() []error

	// AddFlags registers the group's flags on fs, with flag names
	// prefixed per Join(prefixes...).
	AddFlags(fs *pflag.FlagSet, prefixes ...string)
}
