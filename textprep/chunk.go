package textprep

import (
	"strings"
	"unicode/utf8"
)

// PrefixChars returns at most max characters of s, counting Unicode code
// points rather than bytes. The cut never lands inside a multi-byte character.
func PrefixChars(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	n := 0
	for i := range s {
		if n == max {
			return s[:i]
		}
		n++
	}
	return s
}

// BuildChunk assembles a single excerpt from ordered lines, bounded by
// maxChars characters. Each full line is appended with a trailing newline
// while the running character count stays within budget; the first line that
// would overflow is truncated to the remaining characters with no trailing
// newline, and everything after it is dropped. Empty lines contribute
// nothing.
//
// The returned string never exceeds maxChars characters and never splits a
// code point.
func BuildChunk(lines []string, maxChars int) string {
	var b strings.Builder
	used := 0
	for _, line := range lines {
		n := utf8.RuneCountInString(line)
		if used+n+1 > maxChars {
			if remain := maxChars - used; remain > 0 {
				b.WriteString(PrefixChars(line, remain))
			}
			break
		}
		if line == "" {
			continue
		}
		b.WriteString(line)
		b.WriteByte('\n')
		used += n + 1
	}
	return b.String()
}
