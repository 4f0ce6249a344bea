package llm

import (
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryConfig bounds the retry loop for summarization requests.
type RetryConfig struct {
	// InitialInterval is the first backoff delay.
	InitialInterval time.Duration

	// Multiplier grows the delay on each retry.
	Multiplier float64

	// MaxInterval caps an individual backoff delay.
	MaxInterval time.Duration

	// MaxElapsedTime bounds the total time spent retrying. Zero disables
	// the bound (the caller's context is then the only limit).
	MaxElapsedTime time.Duration

	// RetryDecodeFailures treats a malformed summary JSON payload as
	// transient. Models occasionally emit invalid JSON and a retry may get
	// a well-formed generation; HTTP envelope decode failures stay
	// permanent regardless.
	RetryDecodeFailures bool
}

// DefaultRetryConfig returns the retry defaults used for local model servers.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		InitialInterval:     500 * time.Millisecond,
		Multiplier:          2.0,
		MaxInterval:         30 * time.Second,
		MaxElapsedTime:      120 * time.Second,
		RetryDecodeFailures: true,
	}
}

// newBackOff builds the exponential backoff for one Summarize call.
// Randomization is left at the library default so concurrent topics never
// retry in lockstep.
func (c RetryConfig) newBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.InitialInterval
	b.Multiplier = c.Multiplier
	b.MaxInterval = c.MaxInterval
	b.MaxElapsedTime = c.MaxElapsedTime
	b.Reset()
	return b
}
