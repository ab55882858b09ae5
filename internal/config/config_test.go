package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadScoring(t *testing.T) {
	path := writeFile(t, "scoring.yaml", `
scoring_criteria:
  audience_relevance:
    weight: 0.3
    keywords_boost: ["ai", "agents"]
  source_quality:
    weight: 0.2
    tier_1_sources: ["OpenAI"]
    tier_2_sources: ["TechCrunch"]
  timeliness:
    weight: 0.15
categories:
  - name: "LLMs"
    keywords: ["gpt", "llm"]
exclusions:
  negative_keywords: ["crypto scam"]
  clickbait_patterns: ["you won't believe"]
hashtags:
  base: ["#IA"]
  by_category:
    LLMs: ["#LLM"]
thresholds:
  min_score_for_post: 6.5
`)

	cfg, err := LoadScoring(path)
	require.NoError(t, err)

	assert.Equal(t, 0.3, cfg.Criteria.AudienceRelevance.Weight)
	assert.Equal(t, []string{"ai", "agents"}, cfg.Criteria.AudienceRelevance.Keywords)
	assert.Equal(t, []string{"OpenAI"}, cfg.Criteria.SourceQuality.Tier1)
	assert.Equal(t, "LLMs", cfg.Categories[0].Name)
	assert.Equal(t, []string{"#LLM"}, cfg.Hashtags.ByCategory["LLMs"])
	assert.Equal(t, 6.5, cfg.Thresholds.MinScoreForPost)

	// Unset thresholds pick up defaults.
	assert.Equal(t, 30, cfg.Thresholds.MaxArticlesToAnalyze)
	assert.Equal(t, 15, cfg.Thresholds.MaxPostsPerDay)
	assert.Equal(t, 4, cfg.Hashtags.MaxHashtags)
}

func TestLoadScoringErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := LoadScoring(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.True(t, errors.Is(err, ErrInvalidConfig))
	})

	t.Run("malformed yaml", func(t *testing.T) {
		path := writeFile(t, "scoring.yaml", "scoring_criteria: [not: a: mapping")
		_, err := LoadScoring(path)
		assert.True(t, errors.Is(err, ErrInvalidConfig))
	})

	t.Run("negative weight", func(t *testing.T) {
		path := writeFile(t, "scoring.yaml", `
scoring_criteria:
  timeliness:
    weight: -0.5
`)
		_, err := LoadScoring(path)
		assert.True(t, errors.Is(err, ErrInvalidConfig))
	})

	t.Run("unnamed category", func(t *testing.T) {
		path := writeFile(t, "scoring.yaml", `
categories:
  - keywords: ["gpt"]
`)
		_, err := LoadScoring(path)
		assert.True(t, errors.Is(err, ErrInvalidConfig))
	})
}

func TestLoadPreferences(t *testing.T) {
	t.Run("present", func(t *testing.T) {
		path := writeFile(t, "prefs.json", `{"news_focus": "agents in production"}`)
		prefs, err := LoadPreferences(path)
		require.NoError(t, err)
		assert.Equal(t, "agents in production", prefs.NewsFocus)
	})

	t.Run("missing file is empty prefs, not an error", func(t *testing.T) {
		prefs, err := LoadPreferences(filepath.Join(t.TempDir(), "nope.json"))
		require.NoError(t, err)
		assert.Empty(t, prefs.NewsFocus)
	})

	t.Run("malformed json", func(t *testing.T) {
		path := writeFile(t, "prefs.json", `{news_focus}`)
		_, err := LoadPreferences(path)
		assert.True(t, errors.Is(err, ErrInvalidConfig))
	})
}

func TestLoadSources(t *testing.T) {
	path := writeFile(t, "sources.yaml", `
rss:
  - name: "Example Feed"
    url: "https://example.org/feed.xml"
    category: "AI News"
  - name: "Disabled Feed"
    url: "https://example.org/off.xml"
    enabled: false
jina:
  sites:
    - name: "AI Letter"
      url: "https://ailetter.example.com"
reddit:
  subreddits: ["LocalLLaMA"]
youtube:
  - name: "Talk"
    url: "https://www.youtube.com/watch?v=dQw4w9WgXcQ"
`)

	cfg, err := LoadSources(path)
	require.NoError(t, err)

	require.Len(t, cfg.RSS, 2)
	assert.True(t, cfg.RSS[0].IsEnabled(), "missing enabled flag defaults to true")
	assert.False(t, cfg.RSS[1].IsEnabled())
	assert.Len(t, cfg.Jina.Sites, 1)
	assert.Equal(t, []string{"LocalLLaMA"}, cfg.Reddit.Subreddits)
	assert.Equal(t, 25, cfg.Reddit.MaxPosts, "unset max_posts gets the default")
	require.Len(t, cfg.YouTube, 1)
	assert.True(t, cfg.YouTube[0].IsEnabled())
}

func TestConfigValidate(t *testing.T) {
	t.Run("retention must be positive", func(t *testing.T) {
		cfg := &Config{RetentionDays: 0}
		assert.True(t, errors.Is(cfg.validate(), ErrInvalidConfig))
	})

	t.Run("email requires smtp", func(t *testing.T) {
		cfg := &Config{RetentionDays: 7, NotificationEmail: "x@example.org"}
		assert.True(t, errors.Is(cfg.validate(), ErrInvalidConfig))

		cfg.SMTPHost = "smtp.example.org"
		cfg.SMTPUsername = "x"
		cfg.SMTPPassword = "secret"
		assert.NoError(t, cfg.validate())
	})
}
