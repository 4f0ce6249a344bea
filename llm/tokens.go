package llm

import (
	"fmt"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
)

// TokenCounter estimates token counts for cost and observability reporting.
// The same counter sizes request payloads and responses so budget decisions
// and reported usage stay consistent. Implementations must be safe for
// concurrent use; counters are constructed once and shared, never lazily
// initialized behind a global.
type TokenCounter interface {
	Count(text string) int
}

// BPECounter counts tokens with the cl100k_base BPE, matching the tokenizer
// family of the models this pipeline targets.
type BPECounter struct {
	enc *tiktoken.Tiktoken
}

// NewBPECounter loads the cl100k_base encoding. Loading can fail when the
// dictionary is unavailable; callers fall back to HeuristicCounter then.
func NewBPECounter() (*BPECounter, error) {
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return nil, fmt.Errorf("load cl100k_base encoding: %w", err)
	}
	return &BPECounter{enc: enc}, nil
}

func (c *BPECounter) Count(text string) int {
	return len(c.enc.Encode(text, nil, nil))
}

// HeuristicCounter approximates tokens as characters divided by four, the
// usual average for GPT-family tokenizers. Used when the BPE dictionary
// cannot be loaded, so usage is estimated rather than reported as zero.
type HeuristicCounter struct{}

func (HeuristicCounter) Count(text string) int {
	if text == "" {
		return 0
	}
	return (utf8.RuneCountInString(text) + 3) / 4
}

// NewTokenCounter returns the BPE counter when available, the heuristic
// otherwise.
func NewTokenCounter() TokenCounter {
	if c, err := NewBPECounter(); err == nil {
		return c
	}
	return HeuristicCounter{}
}
