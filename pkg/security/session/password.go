package session

import (
	"strings"
	"unicode"
)

// specialChars are the characters accepted as the special class.
const specialChars = `!@#$%^&*()_+-=[]{};':"\|,.<>/?`

// IsValidPassword reports whether candidate satisfies the configured
// length bounds and required character classes. Deterministic and pure.
func (m *Manager) IsValidPassword(candidate string) bool {
	if len(candidate) < m.opts.PasswordMinLength || len(candidate) > m.opts.PasswordMaxLength {
		return false
	}

	if m.opts.PasswordRequireUppercase && !containsClass(candidate, unicode.IsUpper) {
		return false
	}
	if m.opts.PasswordRequireLowercase && !containsClass(candidate, unicode.IsLower) {
		return false
	}
	if m.opts.PasswordRequireDigit && !containsClass(candidate, unicode.IsDigit) {
		return false
	}
	if m.opts.PasswordRequireSpecial && !strings.ContainsAny(candidate, specialChars) {
		return false
	}

	return true
}

func containsClass(s string, class func(rune) bool) bool {
	return strings.IndexFunc(s, class) >= 0
}
