package sources

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"

	"github.com/postveille/curator/internal/config"
	"github.com/postveille/curator/internal/models"
	"github.com/postveille/curator/internal/normalize"
)

const (
	jinaReaderURL     = "https://r.jina.ai"
	jinaRequestDelay  = 3 * time.Second // politeness throttle between sites
	jinaMaxPerSite    = 15
	jinaMinTitleChars = 15
)

var markdownLink = regexp.MustCompile(`\[([^\]]+)\]\((https?://[^)]+)\)`)

// articleURLPatterns mark links that point at individual articles rather
// than navigation or landing pages.
var articleURLPatterns = []string{
	"/p/",       // Beehiiv newsletters
	"/posts/",   // Substack
	"/archive/", // newsletter archives
	"/article/",
	"/news/",
}

var datedURLPattern = regexp.MustCompile(`/\d{4}/\d{2}/`)

// JinaSource reads JavaScript-heavy sites through the Jina reader proxy,
// which renders pages to markdown, then extracts article links from it.
type JinaSource struct {
	sites  []config.FeedSource
	apiKey string
	client *resty.Client
}

// NewJinaSource creates the reader-proxy collector.
func NewJinaSource(sites []config.FeedSource, apiKey string) *JinaSource {
	return &JinaSource{
		sites:  sites,
		apiKey: apiKey,
		client: resty.New().SetTimeout(60 * time.Second),
	}
}

func (j *JinaSource) Name() string { return "jina" }

func (j *JinaSource) Enabled() bool { return len(j.sites) > 0 }

func (j *JinaSource) Collect(ctx context.Context) ([]models.Item, error) {
	var all []models.Item

	for i, site := range j.sites {
		if !site.IsEnabled() {
			continue
		}
		if i > 0 {
			select {
			case <-ctx.Done():
				return all, ctx.Err()
			case <-time.After(jinaRequestDelay):
			}
		}

		markdown, err := j.fetchMarkdown(ctx, site.URL)
		if err != nil {
			logrus.Warnf("Jina fetch for %s failed: %v", site.Name, err)
			continue
		}

		items := extractArticles(markdown, site)
		logrus.Infof("Jina %s: %d items", site.Name, len(items))
		all = append(all, items...)
	}

	return all, nil
}

func (j *JinaSource) fetchMarkdown(ctx context.Context, pageURL string) (string, error) {
	req := j.client.R().
		SetContext(ctx).
		SetHeader("Accept", "text/markdown")
	if j.apiKey != "" {
		req.SetHeader("Authorization", "Bearer "+j.apiKey)
	}

	resp, err := req.Get(fmt.Sprintf("%s/%s", jinaReaderURL, pageURL))
	if err != nil {
		return "", err
	}
	if resp.StatusCode() != 200 {
		return "", fmt.Errorf("reader returned status %d", resp.StatusCode())
	}
	return resp.String(), nil
}

// extractArticles pulls individual article links out of the rendered
// markdown. Newsletters list their stories as markdown links, so the
// heuristic is link shape plus title length.
func extractArticles(markdown string, site config.FeedSource) []models.Item {
	meta := normalize.SourceMeta{Name: site.Name, Type: "jina", Category: site.Category}
	sourceDomain := domainOf(site.URL)

	seen := make(map[string]struct{})
	var items []models.Item

	for _, match := range markdownLink.FindAllStringSubmatch(markdown, -1) {
		title, link := match[1], match[2]

		if strings.HasPrefix(title, "!") || strings.HasPrefix(title, "Image") {
			continue
		}
		if len(title) < 20 {
			continue
		}
		if _, dup := seen[link]; dup {
			continue
		}
		if !isArticleLink(link, site.URL, sourceDomain) {
			continue
		}

		cleaned := cleanTitle(title)
		if len(cleaned) <= jinaMinTitleChars {
			continue
		}

		seen[link] = struct{}{}
		items = append(items, normalize.Item(normalize.Payload{
			URL:   link,
			Title: cleaned,
		}, meta))

		if len(items) == jinaMaxPerSite {
			break
		}
	}

	return items
}

func isArticleLink(link, siteURL, sourceDomain string) bool {
	for _, pattern := range articleURLPatterns {
		if strings.Contains(link, pattern) {
			return true
		}
	}
	if datedURLPattern.MatchString(link) {
		return true
	}
	// Same-domain deep links beyond the landing page count as articles.
	return sourceDomain != "" &&
		strings.Contains(link, sourceDomain) &&
		link != siteURL &&
		len(link) > len(siteURL)+5
}

var decorativeDashes = regexp.MustCompile(`(^-+\s*)|(\s*-+\s*$)`)

func cleanTitle(title string) string {
	return strings.TrimSpace(decorativeDashes.ReplaceAllString(title, ""))
}

func domainOf(pageURL string) string {
	trimmed := strings.TrimPrefix(strings.TrimPrefix(pageURL, "https://"), "http://")
	if idx := strings.Index(trimmed, "/"); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	return trimmed
}
