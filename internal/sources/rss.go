package sources

import (
	"context"
	"encoding/xml"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"

	"github.com/postveille/curator/internal/config"
	"github.com/postveille/curator/internal/models"
	"github.com/postveille/curator/internal/normalize"
)

const (
	rssMaxPerFeed  = 15
	rssMaxAgeHours = 72
)

// RSSSource collects configured RSS/Atom feeds.
type RSSSource struct {
	feeds  []config.FeedSource
	client *resty.Client
}

type rssFeed struct {
	Channel struct {
		Items []rssItem `xml:"item"`
	} `xml:"channel"`
	// Atom feeds carry entries at the top level.
	Entries []atomEntry `xml:"entry"`
}

type rssItem struct {
	Title       string   `xml:"title"`
	Link        string   `xml:"link"`
	Description string   `xml:"description"`
	Content     string   `xml:"encoded"`
	PubDate     string   `xml:"pubDate"`
	Creator     string   `xml:"creator"`
	Categories  []string `xml:"category"`
}

type atomEntry struct {
	Title   string `xml:"title"`
	Link    struct {
		Href string `xml:"href,attr"`
	} `xml:"link"`
	Summary string `xml:"summary"`
	Content string `xml:"content"`
	Updated string `xml:"updated"`
	Author  struct {
		Name string `xml:"name"`
	} `xml:"author"`
}

// NewRSSSource creates the RSS collector.
func NewRSSSource(feeds []config.FeedSource) *RSSSource {
	return &RSSSource{
		feeds: feeds,
		client: resty.New().
			SetTimeout(30 * time.Second).
			SetHeader("User-Agent", "post-veille-curator/1.0"),
	}
}

func (r *RSSSource) Name() string { return "rss" }

func (r *RSSSource) Enabled() bool { return len(r.feeds) > 0 }

func (r *RSSSource) Collect(ctx context.Context) ([]models.Item, error) {
	var all []models.Item

	for _, feed := range r.feeds {
		if !feed.IsEnabled() {
			continue
		}

		items, err := r.collectFeed(ctx, feed)
		if err != nil {
			logrus.Warnf("RSS feed %s failed: %v", feed.Name, err)
			continue
		}
		logrus.Infof("RSS %s: %d items", feed.Name, len(items))
		all = append(all, items...)
	}

	return all, nil
}

func (r *RSSSource) collectFeed(ctx context.Context, feed config.FeedSource) ([]models.Item, error) {
	resp, err := r.client.R().SetContext(ctx).Get(feed.URL)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("feed returned status %d", resp.StatusCode())
	}

	var parsed rssFeed
	if err := xml.Unmarshal(resp.Body(), &parsed); err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	meta := normalize.SourceMeta{Name: feed.Name, Type: "rss", Category: feed.Category}
	cutoff := time.Now().Add(-rssMaxAgeHours * time.Hour)

	var items []models.Item
	for _, entry := range parsed.Channel.Items {
		if len(items) >= rssMaxPerFeed {
			break
		}
		published := parseFeedDate(entry.PubDate)
		// Keep undated entries; only drop those provably too old.
		if !published.IsZero() && published.Before(cutoff) {
			continue
		}

		content := entry.Content
		if content == "" {
			content = entry.Description
		}
		summary := entry.Description
		if len(summary) > 500 {
			summary = summary[:500]
		}

		items = append(items, normalize.Item(normalize.Payload{
			URL:         entry.Link,
			Title:       entry.Title,
			Content:     content,
			Summary:     summary,
			PublishedAt: formatFeedDate(published),
			Author:      entry.Creator,
			Tags:        entry.Categories,
		}, meta))
	}

	for _, entry := range parsed.Entries {
		if len(items) >= rssMaxPerFeed {
			break
		}
		published := parseFeedDate(entry.Updated)
		if !published.IsZero() && published.Before(cutoff) {
			continue
		}

		content := entry.Content
		if content == "" {
			content = entry.Summary
		}

		items = append(items, normalize.Item(normalize.Payload{
			URL:         entry.Link.Href,
			Title:       entry.Title,
			Content:     content,
			Summary:     entry.Summary,
			PublishedAt: formatFeedDate(published),
			Author:      entry.Author.Name,
		}, meta))
	}

	// Entries without a link cannot be identified or deduplicated.
	kept := items[:0]
	for _, item := range items {
		if item.URL != "" {
			kept = append(kept, item)
		}
	}
	return kept, nil
}

var feedDateLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	time.RFC3339,
	"2006-01-02T15:04:05Z",
}

func parseFeedDate(value string) time.Time {
	for _, layout := range feedDateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	return time.Time{}
}

func formatFeedDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
