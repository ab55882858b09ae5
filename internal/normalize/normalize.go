// Package normalize converts source payloads into canonical Items with a
// deterministic, URL-derived identity.
package normalize

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/postveille/curator/internal/models"
)

// SourceMeta identifies where a payload came from.
type SourceMeta struct {
	Name     string
	Type     string
	Category string
}

// Payload carries the source-specific fields a collector extracted. Only URL
// is required; everything else defaults.
type Payload struct {
	URL         string
	Title       string
	Content     string
	Summary     string
	PublishedAt string
	Language    string
	Author      string
	Tags        []string
	Score       *int
	NumComments *int
}

// Fingerprint derives the stable item identity from the exact URL string.
// Identical URL always yields the identical id, across runs and processes.
func Fingerprint(url string) string {
	sum := sha256.Sum256([]byte(url))
	return hex.EncodeToString(sum[:])[:16]
}

// Item builds a canonical Item from a payload. It never fails on missing
// optional data; an empty URL is the caller's signal to drop the record.
func Item(p Payload, meta SourceMeta) models.Item {
	lang := p.Language
	if lang == "" {
		lang = "en"
	}
	tags := p.Tags
	if tags == nil {
		tags = []string{}
	}

	return models.Item{
		ID:             Fingerprint(p.URL),
		URL:            p.URL,
		Title:          p.Title,
		Content:        p.Content,
		Summary:        p.Summary,
		SourceName:     meta.Name,
		SourceType:     meta.Type,
		SourceCategory: meta.Category,
		PublishedAt:    p.PublishedAt,
		CollectedAt:    time.Now().UTC().Format(time.RFC3339),
		Language:       lang,
		Author:         p.Author,
		Tags:           tags,
		Score:          p.Score,
		NumComments:    p.NumComments,
	}
}

// DecodeJSONL reads one JSON item per line. Records without a url are skipped
// rather than aborting the run; unknown fields are ignored. Already-present
// ids or collected_at stamps are recomputed so identity stays a pure function
// of the URL.
func DecodeJSONL(r io.Reader) ([]models.Item, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var items []models.Item
	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}

		var rec models.Item
		if err := json.Unmarshal(raw, &rec); err != nil {
			logrus.Warnf("Skipping malformed record at line %d: %v", line, err)
			continue
		}
		if rec.URL == "" {
			logrus.Debugf("Skipping record without url at line %d", line)
			continue
		}

		item := Item(Payload{
			URL:         rec.URL,
			Title:       rec.Title,
			Content:     rec.Content,
			Summary:     rec.Summary,
			PublishedAt: rec.PublishedAt,
			Language:    rec.Language,
			Author:      rec.Author,
			Tags:        rec.Tags,
			Score:       rec.Score,
			NumComments: rec.NumComments,
		}, SourceMeta{Name: rec.SourceName, Type: rec.SourceType, Category: rec.SourceCategory})

		if rec.CollectedAt != "" {
			item.CollectedAt = rec.CollectedAt
		}

		items = append(items, item)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read items: %w", err)
	}

	return items, nil
}
