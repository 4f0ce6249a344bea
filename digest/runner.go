package digest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/c360studio/forumdigest/forum"
	"github.com/c360studio/forumdigest/llm"
	"github.com/c360studio/forumdigest/store"
	"github.com/c360studio/forumdigest/textprep"
)

// Feed lists topics and fetches their post streams.
type Feed interface {
	Latest(ctx context.Context) ([]forum.TopicStub, error)
	Topic(ctx context.Context, id int64) (*forum.Topic, error)
}

// Storage is the persistence surface the pipeline needs.
type Storage interface {
	UpsertTopic(ctx context.Context, id int64, title string) error
	UpsertPosts(ctx context.Context, posts []forum.Post) error
	PostsForTopic(ctx context.Context, topicID int64, limit int) ([]forum.Post, error)
	MaxPostCreatedAt(ctx context.Context, topicID int64) (*time.Time, error)
	LastSummarizedAt(ctx context.Context, topicID int64) (*time.Time, error)
	SummaryFingerprint(ctx context.Context, topicID int64) (model, hash string, err error)
	SaveSummary(ctx context.Context, rec store.SummaryRecord) error
}

// Summarizer performs the external summarization call.
type Summarizer interface {
	Summarize(ctx context.Context, prompt string) (*llm.Result, error)
	Model() string
}

// Options tunes the pipeline.
type Options struct {
	// Concurrency bounds how many topics are processed at once.
	Concurrency int

	// MaxChunkChars is the character budget for one topic's excerpt.
	MaxChunkChars int

	// PostLimit caps how many posts feed one excerpt (first-page cap).
	PostLimit int

	// SummarizeTimeout is the outer per-call ceiling, independent of the
	// client's own retry elapsed-time cap.
	SummarizeTimeout time.Duration
}

// DefaultOptions returns the pipeline defaults tuned for local models.
func DefaultOptions() Options {
	return Options{
		Concurrency:      5,
		MaxChunkChars:    1800,
		PostLimit:        200,
		SummarizeTimeout: 240 * time.Second,
	}
}

// Runner executes the per-topic pipeline across the latest topics.
type Runner struct {
	feed       Feed
	storage    Storage
	summarizer Summarizer
	opts       Options
	logger     *slog.Logger
	metrics    *Metrics
}

// NewRunner creates a pipeline runner. A nil logger uses slog.Default();
// nil metrics are created standalone.
func NewRunner(feed Feed, storage Storage, summarizer Summarizer, opts Options, logger *slog.Logger, metrics *Metrics) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultOptions().Concurrency
	}
	if opts.MaxChunkChars <= 0 {
		opts.MaxChunkChars = DefaultOptions().MaxChunkChars
	}
	if opts.PostLimit <= 0 {
		opts.PostLimit = DefaultOptions().PostLimit
	}
	if opts.SummarizeTimeout <= 0 {
		opts.SummarizeTimeout = DefaultOptions().SummarizeTimeout
	}
	return &Runner{
		feed:       feed,
		storage:    storage,
		summarizer: summarizer,
		opts:       opts,
		logger:     logger,
		metrics:    metrics,
	}
}

// Run processes the latest topics with bounded concurrency. A single topic's
// failure is logged and counted, never propagated: siblings keep going and
// Run only fails when the topic listing itself cannot be fetched.
func (r *Runner) Run(ctx context.Context) error {
	topics, err := r.feed.Latest(ctx)
	if err != nil {
		return fmt.Errorf("list latest topics: %w", err)
	}
	r.logger.Info("fetched topic listing", "topics", len(topics))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Concurrency)
	for _, topic := range topics {
		topic := topic
		g.Go(func() error {
			if err := r.ProcessTopic(gctx, topic); err != nil {
				r.metrics.observeOutcome(OutcomeFailed)
				r.logger.Warn("topic processing failed", "topic_id", topic.ID, "error", err)
			}
			return nil
		})
	}
	return g.Wait()
}

// ProcessTopic runs the full pipeline for one topic: ingest posts, check the
// incremental guard, build the excerpt, and summarize. Nothing is persisted
// for a failed summarization attempt.
func (r *Runner) ProcessTopic(ctx context.Context, stub forum.TopicStub) error {
	logger := r.logger.With("topic_id", stub.ID)

	if err := r.storage.UpsertTopic(ctx, stub.ID, stub.Title); err != nil {
		return err
	}

	topic, err := r.feed.Topic(ctx, stub.ID)
	if err != nil {
		return err
	}
	if err := r.storage.UpsertPosts(ctx, topic.Posts); err != nil {
		return err
	}
	logger.Debug("ingested posts", "posts", len(topic.Posts))

	latest, err := r.storage.MaxPostCreatedAt(ctx, stub.ID)
	if err != nil {
		return err
	}
	last, err := r.storage.LastSummarizedAt(ctx, stub.ID)
	if err != nil {
		return err
	}
	if !NeedsReprocessing(latest, last) {
		r.metrics.observeOutcome(OutcomeSkippedUnchanged)
		logger.Debug("topic unchanged since last summary, skipping")
		return nil
	}

	posts, err := r.storage.PostsForTopic(ctx, stub.ID, r.opts.PostLimit)
	if err != nil {
		return err
	}
	lines := NormalizedLines(posts)
	chunk := textprep.BuildChunk(lines, r.opts.MaxChunkChars)
	if chunk == "" {
		r.metrics.observeOutcome(OutcomeSkippedEmpty)
		logger.Debug("no text content to summarize, skipping")
		return nil
	}

	prompt := BuildPrompt(stub.Title, chunk)
	model := r.summarizer.Model()
	hash := Fingerprint(stub.ID, model, prompt)

	storedModel, storedHash, err := r.storage.SummaryFingerprint(ctx, stub.ID)
	if err != nil {
		return err
	}
	if storedModel == model && storedHash == hash {
		r.metrics.observeOutcome(OutcomeCacheHit)
		logger.Debug("prompt fingerprint unchanged, skipping external call")
		return nil
	}

	callCtx, cancel := context.WithTimeout(ctx, r.opts.SummarizeTimeout)
	defer cancel()

	started := time.Now()
	res, err := r.summarizer.Summarize(callCtx, prompt)
	if err != nil {
		return fmt.Errorf("summarize: %w", err)
	}

	summaryJSON, err := json.Marshal(res.Summary)
	if err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}
	if err := r.storage.SaveSummary(ctx, store.SummaryRecord{
		TopicID:      stub.ID,
		Summary:      string(summaryJSON),
		Model:        model,
		PromptHash:   hash,
		InputTokens:  res.InputTokens,
		OutputTokens: res.OutputTokens,
	}); err != nil {
		return err
	}

	elapsed := time.Since(started)
	r.metrics.observeOutcome(OutcomeSummarized)
	r.metrics.observeSummarize(elapsed.Seconds(), res.InputTokens, res.OutputTokens)
	logger.Info("topic summarized",
		"request_id", res.RequestID,
		"elapsed", elapsed,
		"input_tokens", res.InputTokens,
		"output_tokens", res.OutputTokens)
	return nil
}
