package password

import (
	"errors"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Policy violations surfaced to callers. The identity service maps
// these to client errors, so they must stay comparable.
var (
	ErrPasswordTooShort = errors.New("password too short")
	ErrPasswordTooLong  = errors.New("password too long")
	ErrWeakPassword     = errors.New("weak password")
)

// Validate checks password against the configured policy. Length is
// measured in runes so multibyte passwords are not penalized.
func (c Config) Validate(password string) error {
	n := utf8.RuneCountInString(password)

	if n < c.Policy.MinLength {
		return ErrPasswordTooShort
	}
	if n > c.Policy.MaxLength {
		return ErrPasswordTooLong
	}
	if c.Policy.RejectVeryWeak && veryWeak(password) {
		return ErrWeakPassword
	}

	return nil
}

// trivialPasswords is a short denylist, not an estimator. Matched in
// lower case; all-digit and single-rune strings are caught separately.
var trivialPasswords = map[string]struct{}{
	"password":    {},
	"password123": {},
	"qwerty":      {},
	"qwerty123":   {},
	"letmein":     {},
	"iloveyou":    {},
}

// veryWeak rejects single-rune runs, short all-digit strings, and a
// handful of notorious passwords.
func veryWeak(pw string) bool {
	s := strings.TrimSpace(pw)
	if s == "" || singleRune(s) {
		return true
	}
	if digitsOnly(s) && utf8.RuneCountInString(s) < 12 {
		return true
	}
	_, trivial := trivialPasswords[strings.ToLower(s)]
	return trivial
}

func singleRune(s string) bool {
	var first rune
	for i, r := range s {
		if i == 0 {
			first = r
			continue
		}
		if r != first {
			return false
		}
	}
	return true
}

func digitsOnly(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
