package normalize

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFingerprint(t *testing.T) {
	id := Fingerprint("https://example.org/article")

	assert.Len(t, id, 16)
	assert.Regexp(t, "^[0-9a-f]{16}$", id)
	assert.Equal(t, id, Fingerprint("https://example.org/article"), "same URL, same id")
	assert.NotEqual(t, id, Fingerprint("https://example.org/article?x=1"))
}

func TestItemDefaults(t *testing.T) {
	item := Item(Payload{URL: "https://example.org/a", Title: "A"}, SourceMeta{
		Name: "Example", Type: "rss", Category: "AI News",
	})

	assert.Equal(t, Fingerprint("https://example.org/a"), item.ID)
	assert.Equal(t, "en", item.Language)
	assert.NotNil(t, item.Tags)
	assert.Empty(t, item.Tags)
	assert.NotEmpty(t, item.CollectedAt)
	assert.Equal(t, "rss", item.SourceType)
	assert.Equal(t, "AI News", item.SourceCategory)
	assert.Nil(t, item.Score)
}

func TestItemKeepsProvidedFields(t *testing.T) {
	score := 42
	item := Item(Payload{
		URL:      "https://example.org/b",
		Language: "fr",
		Tags:     []string{"ia"},
		Score:    &score,
	}, SourceMeta{Name: "Reddit", Type: "reddit"})

	assert.Equal(t, "fr", item.Language)
	assert.Equal(t, []string{"ia"}, item.Tags)
	require.NotNil(t, item.Score)
	assert.Equal(t, 42, *item.Score)
}

func TestDecodeJSONL(t *testing.T) {
	input := strings.Join([]string{
		`{"url":"https://example.org/1","title":"One","source_name":"Blog","source_type":"rss"}`,
		``,
		`{"title":"no url, dropped"}`,
		`not json at all`,
		`{"url":"https://example.org/2","title":"Two","id":"bogus-id","collected_at":"2026-08-01T07:00:00Z","unknown_field":true}`,
	}, "\n")

	items, err := DecodeJSONL(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, Fingerprint("https://example.org/1"), items[0].ID)
	assert.Equal(t, "Blog", items[0].SourceName)

	// A stored id never wins over the URL-derived one.
	assert.Equal(t, Fingerprint("https://example.org/2"), items[1].ID)
	assert.Equal(t, "2026-08-01T07:00:00Z", items[1].CollectedAt, "original collection stamp survives")
}

func TestDecodeJSONLEmpty(t *testing.T) {
	items, err := DecodeJSONL(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, items)
}
