package digest

import (
	"fmt"
	"time"

	"github.com/c360studio/forumdigest/forum"
	"github.com/c360studio/forumdigest/textprep"
)

// NormalizedLines converts posts into prompt lines, one per post with
// non-empty extracted text, preserving input order. Each line carries the
// internal citation anchor "[post:<id> @ <rfc3339>]" so the model can ground
// bullets in specific posts; the sanitizer strips any anchor the model
// echoes back.
func NormalizedLines(posts []forum.Post) []string {
	lines := make([]string, 0, len(posts))
	for _, p := range posts {
		text := textprep.ExtractText(p.Cooked)
		if text == "" {
			continue
		}
		ts := p.CreatedAt.UTC().Format(time.RFC3339)
		lines = append(lines, fmt.Sprintf("[post:%d @ %s] %s", p.ID, ts, text))
	}
	return lines
}

// BuildPrompt wraps the chunk in the fixed excerpt frame the model is
// prompted against.
func BuildPrompt(topicTitle, chunk string) string {
	return fmt.Sprintf("Thread: %s\n\nContent excerpt:\n---\n%s\n---", topicTitle, chunk)
}
