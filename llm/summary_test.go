package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSummary_PlainObject(t *testing.T) {
	s, err := ParseSummary(`{"headline": "h", "bullets": ["a", "b"], "citations": ["post 1"]}`)
	require.NoError(t, err)
	assert.Equal(t, "h", s.Headline)
	assert.Equal(t, []string{"a", "b"}, s.Bullets)
	assert.Equal(t, []string{"post 1"}, s.Citations)
}

func TestParseSummary_FencedObject(t *testing.T) {
	content := "Here you go:\n```json\n{\"headline\": \"h\", \"bullets\": [\"a\"]}\n```\n"
	s, err := ParseSummary(content)
	require.NoError(t, err)
	assert.Equal(t, "h", s.Headline)
}

func TestParseSummary_CitationsOptional(t *testing.T) {
	s, err := ParseSummary(`{"headline": "h", "bullets": ["a", "b"]}`)
	require.NoError(t, err)
	assert.Empty(t, s.Citations)
}

func TestParseSummary_ExcessCitationsTrimmed(t *testing.T) {
	s, err := ParseSummary(`{"headline": "h", "bullets": ["a"], "citations": ["c1", "c2", "c3"]}`)
	require.NoError(t, err)
	assert.Equal(t, []string{"c1"}, s.Citations)
}

func TestParseSummary_InvalidJSONIsHardFailure(t *testing.T) {
	for _, content := range []string{
		"",
		"no json here",
		`{"headline": "unterminated`,
		`{"headline": 42, "bullets": ["a"]}`,
	} {
		_, err := ParseSummary(content)
		assert.Error(t, err, "content %q", content)
	}
}

func TestParseSummary_EmptySummaryRejected(t *testing.T) {
	_, err := ParseSummary(`{}`)
	assert.Error(t, err)
}

func TestHeuristicCounter(t *testing.T) {
	c := HeuristicCounter{}
	assert.Equal(t, 0, c.Count(""))
	assert.Equal(t, 1, c.Count("abc"))
	assert.Equal(t, 2, c.Count("12345678"))
	// Counts runes, not bytes.
	assert.Equal(t, 1, c.Count("猫猫"))
}
