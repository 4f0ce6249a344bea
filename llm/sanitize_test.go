package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStripPostMarkers(t *testing.T) {
	in := "Headline\n- first item [post:123] more\n- second item [post:456 @ 2024-01-01T00:00:00Z]\n"
	want := "Headline\n- first item more\n- second item"
	got := StripPostMarkers(in)
	assert.Equal(t, want, got)
	assert.NotContains(t, got, "[post:")
}

func TestStripPostMarkers_NoDoubledSpaces(t *testing.T) {
	got := StripPostMarkers("before [post:1] after")
	assert.Equal(t, "before after", got)
}

func TestStripPostMarkers_LeavesOtherBrackets(t *testing.T) {
	in := "see [RFC 9110] and [posting rules]"
	assert.Equal(t, in, StripPostMarkers(in))
}

func TestStripPostMarkers_MarkerOnlyLine(t *testing.T) {
	got := StripPostMarkers("kept\n[post:9]\n")
	assert.Equal(t, "kept", got)
}

func TestStripPostMarkers_EmptyInput(t *testing.T) {
	assert.Equal(t, "", StripPostMarkers(""))
}
