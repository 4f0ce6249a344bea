// Package textprep converts raw forum HTML into normalized plain text and
// assembles character-budgeted excerpts for model input.
package textprep

import (
	"strings"
	"unicode"
)

// SqueezeWhitespace replaces every maximal run of whitespace characters with a
// single space. It does not trim; callers that want trimmed output trim
// themselves.
func SqueezeWhitespace(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	prevSpace := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			if !prevSpace {
				b.WriteByte(' ')
				prevSpace = true
			}
			continue
		}
		b.WriteRune(r)
		prevSpace = false
	}
	return b.String()
}
