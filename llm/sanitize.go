package llm

import (
	"regexp"
	"strings"

	"github.com/c360studio/forumdigest/textprep"
)

// postMarkerRe matches the internal citation anchors injected into chunk
// lines: "[post:<id>]" with an optional trailing annotation such as a
// timestamp. Only this exact grammar is removed; bracket text the model
// invents on its own is left alone.
var postMarkerRe = regexp.MustCompile(`\[post:\d+[^\]]*\]`)

// StripPostMarkers removes echoed post markers from model output. Each line
// is whitespace-squeezed and right-trimmed afterward so the removal never
// leaves doubled spaces, and trailing empty lines are dropped.
func StripPostMarkers(text string) string {
	cleaned := postMarkerRe.ReplaceAllString(text, "")

	lines := strings.Split(cleaned, "\n")
	for i, line := range lines {
		line = textprep.SqueezeWhitespace(line)
		lines[i] = strings.TrimRight(line, " ")
	}
	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return strings.Join(lines, "\n")
}
