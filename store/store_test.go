package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/forumdigest/forum"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "digest.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func seedTopic(t *testing.T, s *Store, topicID int64, posts ...forum.Post) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, s.UpsertTopic(ctx, topicID, "test topic"))
	require.NoError(t, s.UpsertPosts(ctx, posts))
}

func TestPostsForTopic_OrderedOldestFirst(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	t1 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Hour)
	// Insert newest first to prove ordering comes from the query.
	seedTopic(t, s, 1,
		forum.Post{ID: 11, TopicID: 1, Username: "bob", Cooked: "<div>Second</div>", CreatedAt: t2},
		forum.Post{ID: 10, TopicID: 1, Username: "alice", Cooked: "<p>First</p>", CreatedAt: t1},
	)

	posts, err := s.PostsForTopic(ctx, 1, 200)
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, int64(10), posts[0].ID)
	assert.Equal(t, int64(11), posts[1].ID)
	assert.True(t, posts[0].CreatedAt.Equal(t1))
}

func TestPostsForTopic_LimitApplies(t *testing.T) {
	s := openTestStore(t)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var posts []forum.Post
	for i := 0; i < 5; i++ {
		posts = append(posts, forum.Post{
			ID: int64(i + 1), TopicID: 1, Username: "u", Cooked: "<p>x</p>",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
	}
	seedTopic(t, s, 1, posts...)

	got, err := s.PostsForTopic(context.Background(), 1, 3)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, int64(1), got[0].ID)
}

func TestPostsForTopic_MixedFractionalPrecision(t *testing.T) {
	// Same second, differing sub-second precision. The stored encoding must
	// be fixed-width so SQLite's string ordering matches chronological
	// ordering; an encoding that drops trailing zeros sorts these wrongly.
	s := openTestStore(t)
	ctx := context.Background()

	whole := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	half := time.Date(2024, 1, 1, 12, 0, 0, 500_000_000, time.UTC)
	seedTopic(t, s, 1,
		forum.Post{ID: 2, TopicID: 1, Username: "u", Cooked: "<p>later</p>", CreatedAt: half},
		forum.Post{ID: 1, TopicID: 1, Username: "u", Cooked: "<p>earlier</p>", CreatedAt: whole},
	)

	posts, err := s.PostsForTopic(ctx, 1, 10)
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, int64(1), posts[0].ID, "oldest post must come first")
	assert.Equal(t, int64(2), posts[1].ID)

	max, err := s.MaxPostCreatedAt(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, max)
	assert.True(t, max.Equal(half), "newest timestamp is the sub-second one, got %v", max)
}

func TestRecentTopics_MixedFractionalPrecisionCutoff(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	whole := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	half := whole.Add(500 * time.Millisecond)
	seedTopic(t, s, 1, forum.Post{ID: 1, TopicID: 1, Username: "u", Cooked: "<p>x</p>", CreatedAt: half})

	// A whole-second cutoff must still include the .5s post.
	entries, err := s.RecentTopics(ctx, whole)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, entries[0].LastPostAt.Equal(half))
}

func TestUpsertPosts_Idempotent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	p := forum.Post{ID: 1, TopicID: 1, Username: "alice", Cooked: "<p>v1</p>", CreatedAt: ts}
	seedTopic(t, s, 1, p)

	p.Cooked = "<p>v2</p>"
	require.NoError(t, s.UpsertPosts(ctx, []forum.Post{p}))

	posts, err := s.PostsForTopic(ctx, 1, 10)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, "<p>v2</p>", posts[0].Cooked)
}

func TestGuardTimestamps(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	// No posts yet.
	max, err := s.MaxPostCreatedAt(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, max)

	last, err := s.LastSummarizedAt(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, last)

	postTime := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	seedTopic(t, s, 1, forum.Post{ID: 1, TopicID: 1, Username: "u", Cooked: "<p>hi</p>", CreatedAt: postTime})

	max, err = s.MaxPostCreatedAt(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, max)
	assert.True(t, max.Equal(postTime))

	require.NoError(t, s.SaveSummary(ctx, SummaryRecord{
		TopicID: 1, Summary: `{"headline":"h","bullets":["b"]}`, Model: "m",
		PromptHash: "hash", UpdatedAt: postTime.Add(time.Minute),
	}))

	last, err = s.LastSummarizedAt(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.True(t, last.Equal(postTime.Add(time.Minute)))
}

func TestSummaryFingerprint(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	model, hash, err := s.SummaryFingerprint(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, model)
	assert.Empty(t, hash)

	seedTopic(t, s, 1)
	require.NoError(t, s.SaveSummary(ctx, SummaryRecord{
		TopicID: 1, Summary: "{}", Model: "qwen2.5", PromptHash: "abc123",
	}))

	model, hash, err = s.SummaryFingerprint(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "qwen2.5", model)
	assert.Equal(t, "abc123", hash)
}

func TestSummaryCards(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, s.UpsertTopic(ctx, 1, "Kafka upgrade woes"))
	require.NoError(t, s.UpsertTopic(ctx, 2, "Release party"))
	require.NoError(t, s.UpsertTopic(ctx, 3, "Never summarized"))
	require.NoError(t, s.SaveSummary(ctx, SummaryRecord{
		TopicID: 1, Summary: `{"headline":"Upgrade is rocky","bullets":["broker crashes"]}`,
		Model: "m", PromptHash: "h1", UpdatedAt: base,
	}))
	require.NoError(t, s.SaveSummary(ctx, SummaryRecord{
		TopicID: 2, Summary: `{"headline":"Party planned","bullets":["friday"]}`,
		Model: "m", PromptHash: "h2", UpdatedAt: base.Add(time.Hour),
	}))

	t.Run("latest newest first with limit", func(t *testing.T) {
		cards, err := s.LatestSummaries(ctx, 10)
		require.NoError(t, err)
		require.Len(t, cards, 2)
		assert.Equal(t, int64(2), cards[0].TopicID)
		assert.Equal(t, int64(1), cards[1].TopicID)

		cards, err = s.LatestSummaries(ctx, 1)
		require.NoError(t, err)
		require.Len(t, cards, 1)
		assert.Equal(t, int64(2), cards[0].TopicID)
	})

	t.Run("by topic", func(t *testing.T) {
		card, err := s.SummaryCardByTopic(ctx, 1)
		require.NoError(t, err)
		require.NotNil(t, card)
		assert.Equal(t, "Kafka upgrade woes", card.Title)
		assert.Contains(t, card.Summary, "rocky")
		assert.True(t, card.UpdatedAt.Equal(base))

		card, err = s.SummaryCardByTopic(ctx, 3)
		require.NoError(t, err)
		assert.Nil(t, card)
	})

	t.Run("search matches title and summary text", func(t *testing.T) {
		cards, err := s.SearchSummaries(ctx, "kafka", 10)
		require.NoError(t, err)
		require.Len(t, cards, 1)
		assert.Equal(t, int64(1), cards[0].TopicID)

		cards, err = s.SearchSummaries(ctx, "friday", 10)
		require.NoError(t, err)
		require.Len(t, cards, 1)
		assert.Equal(t, int64(2), cards[0].TopicID)

		cards, err = s.SearchSummaries(ctx, "nothing matches this", 10)
		require.NoError(t, err)
		assert.Empty(t, cards)
	})
}

func TestRecentTopics(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	seedTopic(t, s, 1, forum.Post{ID: 1, TopicID: 1, Username: "u", Cooked: "<p>old</p>", CreatedAt: now.Add(-48 * time.Hour)})
	require.NoError(t, s.UpsertTopic(ctx, 2, "fresh topic"))
	require.NoError(t, s.UpsertPosts(ctx, []forum.Post{
		{ID: 2, TopicID: 2, Username: "u", Cooked: "<p>new</p>", CreatedAt: now.Add(-time.Hour)},
	}))
	require.NoError(t, s.SaveSummary(ctx, SummaryRecord{
		TopicID: 2, Summary: `{"headline":"fresh"}`, Model: "m", PromptHash: "h",
	}))

	entries, err := s.RecentTopics(ctx, now.Add(-24*time.Hour))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, int64(2), entries[0].TopicID)
	assert.Contains(t, entries[0].Summary, "fresh")
}
