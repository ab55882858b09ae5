package dedup

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/postveille/curator/internal/models"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "veille.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func testItem(id, title, sourceType string) models.Item {
	return models.Item{
		ID:         id,
		URL:        "https://example.org/" + id,
		Title:      title,
		SourceName: "Example",
		SourceType: sourceType,
	}
}

func TestIsSeenAndMarkSeen(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	seen, err := store.IsSeen(ctx, "abc123")
	require.NoError(t, err)
	assert.False(t, seen)

	require.NoError(t, store.MarkSeen(ctx, testItem("abc123", "First article", "rss")))

	seen, err = store.IsSeen(ctx, "abc123")
	require.NoError(t, err)
	assert.True(t, seen)
}

func TestMarkSeenUpsertKeepsFirstSeen(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	item := testItem("abc123", "First article", "rss")
	require.NoError(t, store.MarkSeen(ctx, item))

	first, err := store.Get(ctx, "abc123")
	require.NoError(t, err)
	require.NotNil(t, first)

	// Backdate the row so a repeat sighting visibly changes only last_seen_at.
	backdated := time.Now().UTC().Add(-48 * time.Hour).Format(time.RFC3339)
	_, err = store.db.Exec(
		`UPDATE seen_articles SET first_seen_at = ?, last_seen_at = ? WHERE id = ?`,
		backdated, backdated, "abc123",
	)
	require.NoError(t, err)

	require.NoError(t, store.MarkSeen(ctx, item))

	rec, err := store.Get(ctx, "abc123")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.WithinDuration(t, time.Now(), rec.LastSeenAt, time.Minute)
	assert.WithinDuration(t, time.Now().Add(-48*time.Hour), rec.FirstSeenAt, time.Minute)

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Total, "upsert must never duplicate a record")
}

func TestMarkSeenTruncatesTitle(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	long := make([]byte, 300)
	for i := range long {
		long[i] = 'x'
	}
	require.NoError(t, store.MarkSeen(ctx, testItem("abc123", string(long), "rss")))

	rec, err := store.Get(ctx, "abc123")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Len(t, rec.Title, 200)
}

func TestFilterNewIdempotence(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	items := []models.Item{
		testItem("id-1", "One", "rss"),
		testItem("id-2", "Two", "reddit"),
		testItem("id-3", "Three", "rss"),
	}

	fresh, err := store.FilterNew(ctx, items)
	require.NoError(t, err)
	assert.Equal(t, items, fresh, "first pass returns the full set in order")

	again, err := store.FilterNew(ctx, items)
	require.NoError(t, err)
	assert.Empty(t, again, "second pass returns nothing")
}

func TestFilterNewRejectsDuplicateWithinBatch(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	items := []models.Item{
		testItem("id-1", "One", "rss"),
		testItem("id-1", "One again", "jina"),
		testItem("id-2", "Two", "rss"),
	}

	fresh, err := store.FilterNew(ctx, items)
	require.NoError(t, err)
	require.Len(t, fresh, 2)
	assert.Equal(t, "id-1", fresh[0].ID)
	assert.Equal(t, "One", fresh[0].Title)
	assert.Equal(t, "id-2", fresh[1].ID)
}

func TestCleanupRetention(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.MarkSeen(ctx, testItem("old", "Old article", "rss")))
	require.NoError(t, store.MarkSeen(ctx, testItem("recent", "Recent article", "rss")))

	backdate := func(id string, days int) {
		stamp := time.Now().UTC().AddDate(0, 0, -days).Format(time.RFC3339)
		_, err := store.db.Exec(`UPDATE seen_articles SET first_seen_at = ? WHERE id = ?`, stamp, id)
		require.NoError(t, err)
	}
	backdate("old", 8)
	backdate("recent", 6)

	removed, err := store.Cleanup(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	seen, err := store.IsSeen(ctx, "old")
	require.NoError(t, err)
	assert.False(t, seen, "8-day-old record must be gone after cleanup(7)")

	seen, err = store.IsSeen(ctx, "recent")
	require.NoError(t, err)
	assert.True(t, seen, "6-day-old record must survive cleanup(7)")
}

func TestStats(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.MarkSeen(ctx, testItem("a", "A", "rss")))
	require.NoError(t, store.MarkSeen(ctx, testItem("b", "B", "rss")))
	require.NoError(t, store.MarkSeen(ctx, testItem("c", "C", "reddit")))

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, map[string]int{"rss": 2, "reddit": 1}, stats.BySourceType)
}

func TestOpenCreatesParentDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "data", "veille.db")
	store, err := Open(path)
	require.NoError(t, err)
	defer store.Close()

	_, err = store.Stats(context.Background())
	assert.NoError(t, err)
}
