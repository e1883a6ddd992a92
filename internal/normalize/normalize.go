// Package normalize canonicalizes display names into the identity keys used for
// brands, perfumes, notes and perfumers.
package normalize

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Func maps a display string to its identity key.
type Func func(string) string

// Key returns the lookup key for a display string: trimmed, lowercased, with
// every whitespace run collapsed to a single space. Code points are otherwise
// kept as given, so existing name_norm values stay valid.
// It never fails; blank input yields "".
func Key(s string) string {
	if s == "" {
		return ""
	}
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// ComposedKey is Key applied after NFC composition, so "e" + U+0301 and U+00E9
// share a key. Switching an existing store to it requires rekeying.
func ComposedKey(s string) string {
	if s == "" {
		return ""
	}
	return Key(norm.NFC.String(s))
}

// For returns the key function selected by configuration.
func For(composeUnicode bool) Func {
	if composeUnicode {
		return ComposedKey
	}
	return Key
}

// IsEmptyKey reports whether s normalizes to the empty key.
func IsEmptyKey(s string) bool {
	return Key(s) == ""
}
