package llm

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// Summary is the structured result of one summarization call. Citations align
// positionally with bullets: Citations[i] backs Bullets[i] when present, and
// the model may omit trailing citations entirely.
type Summary struct {
	Headline  string   `json:"headline"`
	Bullets   []string `json:"bullets"`
	Citations []string `json:"citations,omitempty"`
}

// jsonBlockRe matches a JSON object inside a markdown code fence; models
// wrap their output this way often enough that shedding the fence first is
// worth it.
var jsonBlockRe = regexp.MustCompile("(?s)```(?:json)?\\s*\\n?(\\{.*\\})\\s*```")

// jsonObjectRe is the greedy fallback for a bare JSON object.
var jsonObjectRe = regexp.MustCompile(`(?s)\{[\s\S]*\}`)

// extractJSONObject locates the JSON object in raw model output.
func extractJSONObject(content string) string {
	if m := jsonBlockRe.FindStringSubmatch(content); len(m) > 1 {
		return m[1]
	}
	return jsonObjectRe.FindString(content)
}

// ParseSummary parses raw model output as a strict JSON Summary. The content
// may be fenced, but once located the object must unmarshal cleanly; there is
// no partial parse.
func ParseSummary(content string) (*Summary, error) {
	raw := extractJSONObject(content)
	if raw == "" {
		return nil, fmt.Errorf("no JSON object in model output")
	}

	var s Summary
	dec := json.NewDecoder(strings.NewReader(raw))
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("parse summary JSON: %w", err)
	}
	if strings.TrimSpace(s.Headline) == "" && len(s.Bullets) == 0 {
		return nil, fmt.Errorf("summary JSON carries neither headline nor bullets")
	}
	if len(s.Citations) > len(s.Bullets) {
		s.Citations = s.Citations[:len(s.Bullets)]
	}
	return &s, nil
}

// Sanitize strips internal post markers from every text field of the summary.
func (s *Summary) Sanitize() {
	s.Headline = StripPostMarkers(s.Headline)
	for i, b := range s.Bullets {
		s.Bullets[i] = StripPostMarkers(b)
	}
}
