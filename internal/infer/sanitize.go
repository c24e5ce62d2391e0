package infer

import (
	"strings"
	"unicode"
)

// FallbackColumnName is returned by Sanitize when nothing identifier-safe
// survives the cleanup.
const FallbackColumnName = "Column_A"

// Sanitize converts an arbitrary column label into a storage-safe identifier.
//
// Rules, in order:
//   - surrounding whitespace is trimmed
//   - every remaining character that is not alphanumeric or '_' becomes '_'
//     (this covers interior whitespace)
//   - a leading digit gets a "col_" prefix
//   - an empty result becomes FallbackColumnName
//
// Sanitize is total: it never fails, and it is idempotent. Sanitizing an
// already-sanitized name returns it unchanged.
func Sanitize(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))

	for _, r := range strings.TrimSpace(raw) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			b.WriteRune(r)
			continue
		}
		b.WriteByte('_')
	}

	out := b.String()
	if out == "" {
		return FallbackColumnName
	}
	if unicode.IsDigit(rune(out[0])) {
		return "col_" + out
	}
	return out
}
