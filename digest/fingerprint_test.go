package digest

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFingerprint_Deterministic(t *testing.T) {
	a := Fingerprint(42, "qwen2.5", "prompt text")
	b := Fingerprint(42, "qwen2.5", "prompt text")
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
}

func TestFingerprint_SensitiveToEveryInput(t *testing.T) {
	base := Fingerprint(42, "qwen2.5", "prompt text")
	assert.NotEqual(t, base, Fingerprint(43, "qwen2.5", "prompt text"))
	assert.NotEqual(t, base, Fingerprint(42, "qwen2.6", "prompt text"))
	assert.NotEqual(t, base, Fingerprint(42, "qwen2.5", "prompt text!"))
}

func TestFingerprint_FieldsDoNotBleed(t *testing.T) {
	// Moving a character across the model/prompt boundary must change the
	// digest: fields are delimited and the id is fixed-width.
	a := Fingerprint(1, "ab", "c")
	b := Fingerprint(1, "a", "bc")
	assert.NotEqual(t, a, b)
}
