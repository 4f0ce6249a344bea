// Package store persists topics, posts, and summaries in SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/c360studio/forumdigest/forum"
)

// timeLayout is the fixed-width UTC encoding for timestamp columns. The
// fractional second is always zero-padded to nine digits so SQLite's
// lexicographic comparisons (ORDER BY, MAX, >=) agree with chronological
// order; RFC3339Nano must not be used here because it drops trailing zeros
// and mixed-precision values then sort wrongly ('.' < 'Z').
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Store wraps the SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and applies
// migrations. The parent directory is created when missing.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	dsn := path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// UpsertTopic inserts or updates topic metadata.
func (s *Store) UpsertTopic(ctx context.Context, id int64, title string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO topics (id, title) VALUES (?, ?)
		ON CONFLICT (id) DO UPDATE SET title = excluded.title`,
		id, title)
	if err != nil {
		return fmt.Errorf("upsert topic %d: %w", id, err)
	}
	return nil
}

// UpsertPosts inserts or updates posts in one transaction.
func (s *Store) UpsertPosts(ctx context.Context, posts []forum.Post) error {
	if len(posts) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO posts (id, topic_id, username, cooked, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
		  topic_id = excluded.topic_id,
		  username = excluded.username,
		  cooked = excluded.cooked,
		  created_at = excluded.created_at`)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for _, p := range posts {
		if _, err := stmt.ExecContext(ctx, p.ID, p.TopicID, p.Username, p.Cooked,
			p.CreatedAt.UTC().Format(timeLayout)); err != nil {
			return fmt.Errorf("upsert post %d: %w", p.ID, err)
		}
	}
	return tx.Commit()
}

// PostsForTopic returns up to limit posts for a topic, oldest first. The
// chronological order is load-bearing: extraction, chunking, and
// fingerprinting all depend on it for determinism.
func (s *Store) PostsForTopic(ctx context.Context, topicID int64, limit int) ([]forum.Post, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, topic_id, username, cooked, created_at
		FROM posts WHERE topic_id = ?
		ORDER BY created_at ASC, id ASC LIMIT ?`,
		topicID, limit)
	if err != nil {
		return nil, fmt.Errorf("query posts for topic %d: %w", topicID, err)
	}
	defer rows.Close()

	var posts []forum.Post
	for rows.Next() {
		var p forum.Post
		var created string
		if err := rows.Scan(&p.ID, &p.TopicID, &p.Username, &p.Cooked, &created); err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		p.CreatedAt, err = time.Parse(timeLayout, created)
		if err != nil {
			return nil, fmt.Errorf("parse post %d timestamp: %w", p.ID, err)
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

// MaxPostCreatedAt returns the newest post timestamp for a topic, nil when
// the topic has no posts.
func (s *Store) MaxPostCreatedAt(ctx context.Context, topicID int64) (*time.Time, error) {
	var created sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT MAX(created_at) FROM posts WHERE topic_id = ?`, topicID).Scan(&created)
	if err != nil {
		return nil, fmt.Errorf("max created_at for topic %d: %w", topicID, err)
	}
	if !created.Valid {
		return nil, nil
	}
	t, err := time.Parse(timeLayout, created.String)
	if err != nil {
		return nil, fmt.Errorf("parse max created_at: %w", err)
	}
	return &t, nil
}

// LastSummarizedAt returns when a topic's summary was last written, nil when
// it never was.
func (s *Store) LastSummarizedAt(ctx context.Context, topicID int64) (*time.Time, error) {
	var updated sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT updated_at FROM topic_summaries WHERE topic_id = ?`, topicID).Scan(&updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("last summarized for topic %d: %w", topicID, err)
	}
	if !updated.Valid {
		return nil, nil
	}
	t, err := time.Parse(timeLayout, updated.String)
	if err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	return &t, nil
}

// SummaryRecord is one persisted summarization outcome. Summary holds the
// structured summary as serialized JSON; a record is only ever written whole.
type SummaryRecord struct {
	TopicID      int64
	Summary      string
	Model        string
	PromptHash   string
	InputTokens  int
	OutputTokens int
	UpdatedAt    time.Time
}

// SaveSummary upserts a topic's summary.
func (s *Store) SaveSummary(ctx context.Context, rec SummaryRecord) error {
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO topic_summaries (topic_id, summary, model, prompt_hash, input_tokens, output_tokens, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (topic_id) DO UPDATE SET
		  summary = excluded.summary,
		  model = excluded.model,
		  prompt_hash = excluded.prompt_hash,
		  input_tokens = excluded.input_tokens,
		  output_tokens = excluded.output_tokens,
		  updated_at = excluded.updated_at`,
		rec.TopicID, rec.Summary, rec.Model, rec.PromptHash,
		rec.InputTokens, rec.OutputTokens, rec.UpdatedAt.UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("save summary for topic %d: %w", rec.TopicID, err)
	}
	return nil
}

// SummaryFingerprint returns the stored model and prompt hash for a topic,
// empty strings when no summary exists. The runner uses it to skip the
// external call when the same (topic, model, prompt) triple was already
// summarized.
func (s *Store) SummaryFingerprint(ctx context.Context, topicID int64) (model, hash string, err error) {
	err = s.db.QueryRowContext(ctx,
		`SELECT model, prompt_hash FROM topic_summaries WHERE topic_id = ?`, topicID).Scan(&model, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		return "", "", nil
	}
	if err != nil {
		return "", "", fmt.Errorf("summary fingerprint for topic %d: %w", topicID, err)
	}
	return model, hash, nil
}

// DigestEntry is one topic with recent activity, joined with its summary
// when one exists.
type DigestEntry struct {
	TopicID    int64
	Title      string
	Summary    string // serialized Summary JSON, empty when never summarized
	LastPostAt time.Time
}

// RecentTopics returns topics with posts at or after since, newest activity
// first.
func (s *Store) RecentTopics(ctx context.Context, since time.Time) ([]DigestEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.id, t.title, COALESCE(ts.summary, ''), MAX(p.created_at) AS last_post
		FROM topics t
		JOIN posts p ON t.id = p.topic_id
		LEFT JOIN topic_summaries ts ON t.id = ts.topic_id
		WHERE p.created_at >= ?
		GROUP BY t.id, t.title, ts.summary
		ORDER BY last_post DESC`,
		since.UTC().Format(timeLayout))
	if err != nil {
		return nil, fmt.Errorf("query recent topics: %w", err)
	}
	defer rows.Close()

	var entries []DigestEntry
	for rows.Next() {
		var e DigestEntry
		var lastPost string
		if err := rows.Scan(&e.TopicID, &e.Title, &e.Summary, &lastPost); err != nil {
			return nil, fmt.Errorf("scan digest entry: %w", err)
		}
		e.LastPostAt, err = time.Parse(timeLayout, lastPost)
		if err != nil {
			return nil, fmt.Errorf("parse last_post: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// SummaryCard is one stored summary joined with its topic, for inspection.
type SummaryCard struct {
	TopicID   int64
	Title     string
	Summary   string // serialized Summary JSON
	UpdatedAt time.Time
}

const summaryCardSelect = `
	SELECT t.id, t.title, ts.summary, ts.updated_at
	FROM topics t
	JOIN topic_summaries ts ON t.id = ts.topic_id`

func (s *Store) scanSummaryCards(rows *sql.Rows) ([]SummaryCard, error) {
	var cards []SummaryCard
	for rows.Next() {
		var c SummaryCard
		var updated string
		if err := rows.Scan(&c.TopicID, &c.Title, &c.Summary, &updated); err != nil {
			return nil, fmt.Errorf("scan summary card: %w", err)
		}
		t, err := time.Parse(timeLayout, updated)
		if err != nil {
			return nil, fmt.Errorf("parse updated_at: %w", err)
		}
		c.UpdatedAt = t
		cards = append(cards, c)
	}
	return cards, rows.Err()
}

// LatestSummaries returns up to limit summaries, most recently updated first.
func (s *Store) LatestSummaries(ctx context.Context, limit int) ([]SummaryCard, error) {
	rows, err := s.db.QueryContext(ctx,
		summaryCardSelect+` ORDER BY ts.updated_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query latest summaries: %w", err)
	}
	defer rows.Close()
	return s.scanSummaryCards(rows)
}

// SummaryCardByTopic returns one topic's summary card, nil when the topic was
// never summarized.
func (s *Store) SummaryCardByTopic(ctx context.Context, topicID int64) (*SummaryCard, error) {
	rows, err := s.db.QueryContext(ctx,
		summaryCardSelect+` WHERE t.id = ?`, topicID)
	if err != nil {
		return nil, fmt.Errorf("query summary for topic %d: %w", topicID, err)
	}
	defer rows.Close()

	cards, err := s.scanSummaryCards(rows)
	if err != nil {
		return nil, err
	}
	if len(cards) == 0 {
		return nil, nil
	}
	return &cards[0], nil
}

// SearchSummaries returns up to limit summaries whose title or summary text
// contains the query, case-insensitively, most recently updated first.
func (s *Store) SearchSummaries(ctx context.Context, query string, limit int) ([]SummaryCard, error) {
	pattern := "%" + query + "%"
	rows, err := s.db.QueryContext(ctx,
		summaryCardSelect+`
		WHERE t.title LIKE ? OR ts.summary LIKE ?
		ORDER BY ts.updated_at DESC LIMIT ?`,
		pattern, pattern, limit)
	if err != nil {
		return nil, fmt.Errorf("search summaries: %w", err)
	}
	defer rows.Close()
	return s.scanSummaryCards(rows)
}
