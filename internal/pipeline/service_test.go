package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/postveille/curator/internal/config"
	"github.com/postveille/curator/internal/dedup"
	"github.com/postveille/curator/internal/models"
	"github.com/postveille/curator/internal/normalize"
	"github.com/postveille/curator/internal/sources"
	"github.com/postveille/curator/internal/storage"
)

type fakeSource struct {
	name    string
	items   []models.Item
	err     error
	enabled bool
}

func (f *fakeSource) Name() string  { return f.name }
func (f *fakeSource) Enabled() bool { return f.enabled }
func (f *fakeSource) Collect(ctx context.Context) ([]models.Item, error) {
	return f.items, f.err
}

func testScoringConfig() *config.ScoringConfig {
	return &config.ScoringConfig{
		Criteria: config.CriteriaConfig{
			AudienceRelevance: config.KeywordCriterion{
				Weight:   0.5,
				Keywords: []string{"agents", "enterprise"},
			},
			Timeliness: config.WeightOnly{Weight: 0.5},
		},
		Categories: []config.CategoryConfig{
			{Name: "Agents", Keywords: []string{"agent"}},
		},
		Hashtags: config.HashtagConfig{Base: []string{"#IA"}, MaxHashtags: 4},
		Thresholds: config.ThresholdConfig{
			MaxArticlesToAnalyze: 30,
			MinScoreForPost:      5,
			MaxPostsPerDay:       15,
		},
	}
}

func newTestService(t *testing.T, srcs []*fakeSource) *Service {
	t.Helper()

	dir := t.TempDir()
	store, err := dedup.Open(filepath.Join(dir, "veille.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	archive, err := storage.NewLocalStorage(filepath.Join(dir, "output"))
	require.NoError(t, err)

	cfg := &config.Config{RetentionDays: 7, OutputDir: filepath.Join(dir, "output")}
	prefs := &config.Preferences{NewsFocus: "agents for the enterprise"}

	wired := make([]sources.Source, 0, len(srcs))
	for _, s := range srcs {
		wired = append(wired, s)
	}

	return NewService(cfg, testScoringConfig(), prefs, store, archive, nil, wired)
}

func collectedItem(url, title string) models.Item {
	return normalize.Item(normalize.Payload{URL: url, Title: title, Content: title}, normalize.SourceMeta{
		Name: "Example", Type: "rss", Category: "AI News",
	})
}

func TestRunIsIdempotentAcrossRuns(t *testing.T) {
	src := &fakeSource{
		name:    "rss",
		enabled: true,
		items: []models.Item{
			collectedItem("https://example.org/1", "Enterprise agents launch"),
			collectedItem("https://example.org/2", "Agents platform update"),
		},
	}
	svc := newTestService(t, []*fakeSource{src})
	ctx := context.Background()

	require.NoError(t, svc.Run(ctx))
	first := svc.metrics
	assert.Equal(t, 2, first.TotalCollected)
	assert.Equal(t, 2, first.TotalNew)
	assert.Equal(t, map[string]int{"rss": 2}, first.SourceMetrics)

	// Same batch again: everything is already in the dedup store.
	require.NoError(t, svc.Run(ctx))
	second := svc.metrics
	assert.Equal(t, 2, second.TotalCollected)
	assert.Equal(t, 0, second.TotalNew)
	assert.Empty(t, second.SourceMetrics)
}

func TestRunAbsorbsSourceFailures(t *testing.T) {
	good := &fakeSource{
		name:    "rss",
		enabled: true,
		items:   []models.Item{collectedItem("https://example.org/1", "Agents news")},
	}
	bad := &fakeSource{name: "reddit", enabled: true, err: errors.New("rate limited")}
	off := &fakeSource{name: "jina", enabled: false, err: errors.New("never called")}

	svc := newTestService(t, []*fakeSource{good, bad, off})

	require.NoError(t, svc.Run(context.Background()))
	assert.Equal(t, 1, svc.metrics.TotalCollected)
	assert.Equal(t, 1, svc.metrics.ErrorCount)
}

func TestRunArchivesRawAndReport(t *testing.T) {
	src := &fakeSource{
		name:    "rss",
		enabled: true,
		items:   []models.Item{collectedItem("https://example.org/1", "Enterprise agents launch")},
	}
	svc := newTestService(t, []*fakeSource{src})

	require.NoError(t, svc.Run(context.Background()))

	raw, err := svc.archive.List("raw/")
	require.NoError(t, err)
	assert.Len(t, raw, 1)

	analyzed, err := svc.archive.List("analyzed/")
	require.NoError(t, err)
	assert.Len(t, analyzed, 1)
}

func TestAnalyzeRankingThresholdAndCap(t *testing.T) {
	svc := newTestService(t, nil)
	svc.scoring.Thresholds.MaxPostsPerDay = 2

	items := []models.Item{
		collectedItem("https://example.org/low", "Weekly gardening roundup"),
		collectedItem("https://example.org/a", "Enterprise agents launch"),
		collectedItem("https://example.org/b", "Agents for enterprise teams"),
		collectedItem("https://example.org/c", "Enterprise agents everywhere"),
	}

	report := svc.Analyze(items, "batch")

	assert.Equal(t, 4, report.TotalArticles)
	assert.Equal(t, 4, report.Analyzed)
	assert.Len(t, report.AllAnalyzed, 4)
	require.NotEmpty(t, report.TopArticles)
	assert.LessOrEqual(t, len(report.TopArticles), 2, "daily cap applies after the threshold")

	for i := 1; i < len(report.AllAnalyzed); i++ {
		assert.GreaterOrEqual(t, report.AllAnalyzed[i-1].FinalScore, report.AllAnalyzed[i].FinalScore)
	}
	for _, item := range report.TopArticles {
		assert.GreaterOrEqual(t, item.FinalScore, report.ThresholdUsed)
	}
}

func TestAnalyzeEmptyBatch(t *testing.T) {
	svc := newTestService(t, nil)

	report := svc.Analyze(nil, "empty")

	assert.Equal(t, 0, report.TotalArticles)
	assert.Equal(t, 0, report.Analyzed)
	assert.Empty(t, report.TopArticles)
	assert.Empty(t, report.AllAnalyzed)
}

func TestAnalyzeFile(t *testing.T) {
	svc := newTestService(t, nil)

	path := filepath.Join(t.TempDir(), "articles.jsonl")
	lines := `{"url":"https://example.org/1","title":"Enterprise agents launch","source_name":"Blog","source_type":"rss"}
{"title":"dropped, no url"}
{"url":"https://example.org/2","title":"Agents update","source_name":"Blog","source_type":"rss"}
`
	require.NoError(t, os.WriteFile(path, []byte(lines), 0o644))

	report, err := svc.AnalyzeFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, report.TotalArticles)
	assert.Equal(t, path, report.InputFile)
}

func TestAnalyzeFileMissing(t *testing.T) {
	svc := newTestService(t, nil)

	_, err := svc.AnalyzeFile(filepath.Join(t.TempDir(), "nope.jsonl"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInput), "missing input file wraps ErrInput, got %v", err)
}

func TestGetMetricsIsValidJSON(t *testing.T) {
	svc := newTestService(t, nil)

	out := svc.GetMetrics()
	assert.Contains(t, out, `"total_collected"`)
	assert.Contains(t, out, fmt.Sprintf(`"error_count": %d`, 0))
}
