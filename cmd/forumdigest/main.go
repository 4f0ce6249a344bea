// Package main provides the forumdigest binary entry point.
// Forumdigest ingests recent Discourse topics, summarizes them with a
// local or hosted LLM, and renders the results as a static digest.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	// Register LLM providers via init()
	_ "github.com/c360studio/forumdigest/llm/providers"

	"github.com/c360studio/forumdigest/config"
	"github.com/c360studio/forumdigest/digest"
	"github.com/c360studio/forumdigest/forum"
	"github.com/c360studio/forumdigest/llm"
	"github.com/c360studio/forumdigest/render"
	"github.com/c360studio/forumdigest/store"
)

const (
	Version = "0.1.0"
	appName = "forumdigest"
)

func main() {
	// Add panic recovery
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var (
		configPath string
		logLevel   string
	)

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Summarize recent forum activity into a static digest",
		Long: `Forumdigest pulls the latest topics from a Discourse forum, normalizes
their posts to plain text, summarizes each active topic with an LLM, and
renders the results as a static HTML page plus an RSS feed.

Summaries are cached by content fingerprint: a topic is only sent to the
model again when its posts or the prompt actually changed.`,
	}

	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file path (YAML)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	cmd.AddCommand(ingestCmd(&configPath, &logLevel))
	cmd.AddCommand(renderCmd(&configPath, &logLevel))
	cmd.AddCommand(showCmd(&configPath, &logLevel))
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s version %s\n", appName, Version)
		},
	})

	return cmd
}

func ingestCmd(configPath, logLevel *string) *cobra.Command {
	return &cobra.Command{
		Use:   "ingest",
		Short: "Fetch latest topics and summarize changed ones",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, cfg, err := setup(*configPath, *logLevel)
			if err != nil {
				return err
			}
			return runIngest(cmd.Context(), cfg, logger)
		},
	}
}

func renderCmd(configPath, logLevel *string) *cobra.Command {
	return &cobra.Command{
		Use:   "render",
		Short: "Write the digest page and RSS feed from stored summaries",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, cfg, err := setup(*configPath, *logLevel)
			if err != nil {
				return err
			}
			return runRender(cmd.Context(), cfg, logger)
		},
	}
}

func showCmd(configPath, logLevel *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Inspect stored summaries",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "latest [N]",
		Short: "Print the N most recently updated summaries (default 10)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n := 10
			if len(args) == 1 {
				if parsed, err := strconv.Atoi(args[0]); err == nil && parsed > 0 {
					n = parsed
				}
			}
			return withStore(*configPath, *logLevel, func(ctx context.Context, db *store.Store) error {
				cards, err := db.LatestSummaries(ctx, n)
				if err != nil {
					return err
				}
				printCards(cards)
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "id <topic_id>",
		Short: "Print one topic's summary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid topic id %q: %w", args[0], err)
			}
			return withStore(*configPath, *logLevel, func(ctx context.Context, db *store.Store) error {
				card, err := db.SummaryCardByTopic(ctx, id)
				if err != nil {
					return err
				}
				if card == nil {
					fmt.Fprintf(os.Stderr, "No summary for topic %d\n", id)
					return nil
				}
				printCards([]store.SummaryCard{*card})
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "search <query> [N]",
		Short: "Search summaries and titles (default 20 results)",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			n := 20
			if len(args) == 2 {
				if parsed, err := strconv.Atoi(args[1]); err == nil && parsed > 0 {
					n = parsed
				}
			}
			return withStore(*configPath, *logLevel, func(ctx context.Context, db *store.Store) error {
				cards, err := db.SearchSummaries(ctx, args[0], n)
				if err != nil {
					return err
				}
				printCards(cards)
				return nil
			})
		},
	})

	return cmd
}

// withStore runs fn against the configured database.
func withStore(configPath, logLevel string, fn func(context.Context, *store.Store) error) error {
	_, cfg, err := setup(configPath, logLevel)
	if err != nil {
		return err
	}
	db, err := store.Open(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()
	return fn(context.Background(), db)
}

// printCards renders summary cards for the terminal. A summary that is not
// the structured JSON shape is printed raw.
func printCards(cards []store.SummaryCard) {
	for _, c := range cards {
		fmt.Printf("[%d] %s  (%s)\n", c.TopicID, c.Title, c.UpdatedAt.UTC().Format(time.RFC3339))

		var summary llm.Summary
		if err := json.Unmarshal([]byte(c.Summary), &summary); err == nil && summary.Headline != "" {
			fmt.Println(strings.TrimSpace(summary.Headline))
			for i, bullet := range summary.Bullets {
				if i < len(summary.Citations) && strings.TrimSpace(summary.Citations[i]) != "" {
					fmt.Printf(" - %s %s\n", strings.TrimSpace(bullet), strings.TrimSpace(summary.Citations[i]))
				} else {
					fmt.Printf(" - %s\n", strings.TrimSpace(bullet))
				}
			}
		} else {
			fmt.Println(strings.TrimSpace(c.Summary))
		}
		fmt.Println("---")
	}
}

// setup configures logging and loads configuration for a subcommand.
func setup(configPath, logLevel string) (*slog.Logger, *config.Config, error) {
	level := slog.LevelInfo
	switch strings.ToLower(logLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = loadConfigFile(configPath, logger)
	} else {
		cfg, err = config.NewLoader(logger).Load()
	}
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	return logger, cfg, nil
}

// loadConfigFile loads a single explicit config file layered over defaults.
func loadConfigFile(path string, logger *slog.Logger) (*config.Config, error) {
	fileCfg, err := config.LoadFromFile(path)
	if err != nil {
		return nil, err
	}
	cfg := config.DefaultConfig()
	cfg.Merge(fileCfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger.Debug("Loaded config", slog.String("path", path))
	return cfg, nil
}

func runIngest(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	db, err := store.Open(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	feed := forum.NewClient(cfg.Forum.BaseURL,
		forum.WithTimeout(cfg.Forum.Timeout))

	retryCfg := llm.DefaultRetryConfig()
	if cfg.Model.MaxRetryElapsed > 0 {
		retryCfg.MaxElapsedTime = cfg.Model.MaxRetryElapsed
	}
	retryCfg.RetryDecodeFailures = cfg.RetryMalformed()

	client, err := llm.NewClient(cfg.Model.Provider, cfg.Model.Endpoint, cfg.Model.Name,
		llm.WithRetryConfig(retryCfg),
		llm.WithTokenCounter(llm.NewTokenCounter()),
		llm.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("create llm client: %w", err)
	}

	registry := prometheus.NewRegistry()
	metrics := digest.NewMetrics(registry)

	runner := digest.NewRunner(feed, db, client, digest.Options{
		Concurrency:      cfg.Digest.Concurrency,
		MaxChunkChars:    cfg.Digest.MaxChunkChars,
		PostLimit:        cfg.Digest.PostLimit,
		SummarizeTimeout: cfg.Digest.SummarizeTimeout,
	}, logger, metrics)

	started := time.Now()
	if err := runner.Run(ctx); err != nil {
		return err
	}
	logger.Info("ingest complete", "elapsed", time.Since(started))
	return nil
}

func runRender(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	db, err := store.Open(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	since := time.Now().Add(-cfg.Output.Window)
	entries, err := db.RecentTopics(ctx, since)
	if err != nil {
		return fmt.Errorf("load recent topics: %w", err)
	}

	renderer := render.NewRenderer(render.Options{
		Title:        cfg.Output.Title,
		ForumBaseURL: cfg.Forum.BaseURL,
	}, logger)
	return renderer.WriteDigest(cfg.Output.Dir, entries, time.Now())
}
