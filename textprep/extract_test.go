package textprep

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractText_RemovesMarkupAndSeparatesBlocks(t *testing.T) {
	got := ExtractText("<p>Hello <b>world</b></p><div>more</div>")
	assert.Equal(t, "Hello world more", got)
}

func TestExtractText_InlineElementsConcatenate(t *testing.T) {
	got := ExtractText("<p>Hel<i>lo</i> <b>world</b></p>")
	assert.Equal(t, "Hello world", got)
}

func TestExtractText_DecodesEntitiesAndDropsScriptStyle(t *testing.T) {
	got := ExtractText("<p>Tom &amp; Jerry</p><script>var x = 1;</script><style>body{color:red}</style>")
	assert.Equal(t, "Tom & Jerry", got)
}

func TestExtractText_NestedScriptContentDropped(t *testing.T) {
	got := ExtractText("<div>keep<script>if (a < b) { drop(); }</script></div>")
	assert.Equal(t, "keep", got)
}

func TestExtractText_FastPathMatchesSqueezeTrim(t *testing.T) {
	inputs := []string{
		"plain  text\nwith   runs",
		"  leading and trailing  ",
		"no markup at all",
		"émoji 🐱 and 中文",
	}
	for _, in := range inputs {
		assert.Equal(t, SqueezeWhitespace(strings.TrimSpace(in)), ExtractText(in), "input %q", in)
	}
}

func TestExtractText_MalformedHTMLDegrades(t *testing.T) {
	// Unbalanced tags must not error; parser recovery keeps the text.
	got := ExtractText("<p>open <b>bold<div>next")
	assert.Equal(t, "open bold next", got)
}

func TestExtractText_TableCellsAndBreaks(t *testing.T) {
	got := ExtractText("<table><tr><td>a</td><td>b</td></tr></table>")
	assert.Equal(t, "a b", got)

	got = ExtractText("first<br>second")
	assert.Equal(t, "first second", got)
}

func TestExtractText_ListItemsSeparated(t *testing.T) {
	got := ExtractText("<ul><li>one</li><li>two</li></ul>")
	assert.Equal(t, "one two", got)
}
