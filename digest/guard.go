package digest

import "time"

// NeedsReprocessing decides whether a topic must be summarized again.
// latestActivity is the newest post timestamp (nil when the topic has no
// posts); lastProcessed is when a summary was last written (nil when never).
// Equal timestamps count as already current, so a run triggered by the same
// data does not loop.
func NeedsReprocessing(latestActivity, lastProcessed *time.Time) bool {
	switch {
	case latestActivity == nil:
		return false
	case lastProcessed == nil:
		return true
	default:
		return latestActivity.After(*lastProcessed)
	}
}
