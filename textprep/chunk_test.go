package textprep

import (
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestPrefixChars(t *testing.T) {
	assert.Equal(t, "a🐱", PrefixChars("a🐱b", 2))
	assert.Equal(t, "a", PrefixChars("a🐱b", 1))
	assert.Equal(t, "a🐱b", PrefixChars("a🐱b", 3))
	assert.Equal(t, "a🐱b", PrefixChars("a🐱b", 10))
	assert.Equal(t, "", PrefixChars("abc", 0))
	assert.Equal(t, "é😊", PrefixChars("é😊ño", 2))
}

func TestBuildChunk_TruncatesOnCharBoundary(t *testing.T) {
	lines := []string{"12345", "67890", "abcde"}
	assert.Equal(t, "12345\n67890", BuildChunk(lines, 11))
}

func TestBuildChunk_FitsAllLines(t *testing.T) {
	lines := []string{"ab", "cd"}
	assert.Equal(t, "ab\ncd\n", BuildChunk(lines, 10))
}

func TestBuildChunk_SkipsEmptyLines(t *testing.T) {
	lines := []string{"ab", "", "cd"}
	assert.Equal(t, "ab\ncd\n", BuildChunk(lines, 10))
}

func TestBuildChunk_ZeroBudget(t *testing.T) {
	assert.Equal(t, "", BuildChunk([]string{"abc"}, 0))
}

func TestBuildChunk_FirstLineExceedsBudget(t *testing.T) {
	got := BuildChunk([]string{"abcdefgh"}, 4)
	assert.Equal(t, "abcd", got)
}

func TestBuildChunk_MultibyteBudgetNeverViolated(t *testing.T) {
	lines := []string{"ééééé", "😀😀😀😀😀", "中文中文中"}
	for max := 0; max <= 20; max++ {
		chunk := BuildChunk(lines, max)
		assert.LessOrEqual(t, utf8.RuneCountInString(chunk), max, "budget %d", max)
		assert.True(t, utf8.ValidString(chunk), "budget %d produced invalid UTF-8", max)
	}
}

func TestBuildChunk_DropsLinesAfterTruncation(t *testing.T) {
	lines := []string{"aaaa", "bbbb", "cccc"}
	// First line fits (4+1), second truncates at the remaining 3 chars.
	assert.Equal(t, "aaaa\nbbb", BuildChunk(lines, 8))
}
