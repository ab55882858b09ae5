// Package pipeline composes collection, normalization, deduplication, and
// two-phase scoring into a single run that emits one report.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/postveille/curator/internal/config"
	"github.com/postveille/curator/internal/dedup"
	"github.com/postveille/curator/internal/models"
	"github.com/postveille/curator/internal/normalize"
	"github.com/postveille/curator/internal/notifications"
	"github.com/postveille/curator/internal/scoring"
	"github.com/postveille/curator/internal/sources"
	"github.com/postveille/curator/internal/storage"
)

// ErrInput marks an unreadable or malformed item source. Fatal for the run.
var ErrInput = errors.New("input error")

// Metrics holds counters from the most recent run.
type Metrics struct {
	LastRun         time.Time      `json:"last_run"`
	LastRunDuration string         `json:"last_run_duration"`
	TotalCollected  int            `json:"total_collected"`
	TotalNew        int            `json:"total_new"`
	Analyzed        int            `json:"analyzed"`
	AboveThreshold  int            `json:"above_threshold"`
	SourceMetrics   map[string]int `json:"source_metrics"`
	ErrorCount      int            `json:"error_count"`
}

// Service runs the curation pipeline.
type Service struct {
	cfg      *config.Config
	scoring  *config.ScoringConfig
	prefs    *config.Preferences
	engine   *scoring.Engine
	store    *dedup.Store
	archive  storage.Storage
	notifier notifications.Notifier
	sources  []sources.Source

	mu      sync.RWMutex
	metrics Metrics
}

// NewService wires the pipeline. notifier may be nil when no channel is
// configured; srcs may be empty when the service only analyzes files.
func NewService(
	cfg *config.Config,
	scoringCfg *config.ScoringConfig,
	prefs *config.Preferences,
	store *dedup.Store,
	archive storage.Storage,
	notifier notifications.Notifier,
	srcs []sources.Source,
) *Service {
	return &Service{
		cfg:      cfg,
		scoring:  scoringCfg,
		prefs:    prefs,
		engine:   scoring.New(scoringCfg),
		store:    store,
		archive:  archive,
		notifier: notifier,
		sources:  srcs,
		metrics:  Metrics{SourceMetrics: make(map[string]int)},
	}
}

// Run performs one full pass: collect from every source, dedup-filter,
// analyze, archive the report, and notify. A source failure only reduces the
// input; store and configuration failures abort the run.
func (s *Service) Run(ctx context.Context) error {
	start := time.Now()
	logrus.Info("Starting curation run")

	collected, errCount := s.collect(ctx)
	logrus.Infof("Collected %d items from %d sources", len(collected), len(s.sources))

	// Stale entries must be gone before the first membership check.
	if _, err := s.store.Cleanup(ctx, s.cfg.RetentionDays); err != nil {
		return err
	}

	fresh, err := s.store.FilterNew(ctx, collected)
	if err != nil {
		return err
	}

	if err := s.archiveRaw(fresh); err != nil {
		logrus.Errorf("Failed to archive raw items: %v", err)
	}

	report := s.Analyze(fresh, "collected")
	report.TotalArticles = len(collected)

	if err := s.archiveReport(report); err != nil {
		logrus.Errorf("Failed to archive report: %v", err)
	}

	s.updateMetrics(collected, fresh, report, time.Since(start), errCount)

	if s.notifier != nil {
		if err := s.notifier.SendReport(report); err != nil {
			logrus.Errorf("Failed to send report: %v", err)
		}
	}

	logrus.Infof("Curation run completed in %v", time.Since(start))
	return nil
}

// collect pulls items from every enabled source sequentially. Collector
// faults are absorbed: the pipeline proceeds with whatever it received.
func (s *Service) collect(ctx context.Context) ([]models.Item, int) {
	var all []models.Item
	errCount := 0

	for _, src := range s.sources {
		if !src.Enabled() {
			logrus.Debugf("Source %s disabled, skipping", src.Name())
			continue
		}

		items, err := src.Collect(ctx)
		if err != nil {
			logrus.Errorf("Collection from %s failed: %v", src.Name(), err)
			errCount++
			continue
		}
		logrus.Infof("Collected %d items from %s", len(items), src.Name())
		all = append(all, items...)
	}

	return all, errCount
}

// AnalyzeFile scores a previously collected JSONL file without touching the
// dedup store, mirroring a re-analysis of an existing batch.
func (s *Service) AnalyzeFile(path string) (*models.Report, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInput, err)
	}
	defer f.Close()

	items, err := normalize.DecodeJSONL(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInput, err)
	}

	report := s.Analyze(items, path)
	if err := s.archiveReport(report); err != nil {
		logrus.Errorf("Failed to archive report: %v", err)
	}
	return report, nil
}

// Analyze is the pure scoring stage: phase-1 shortlist, phase-2 scoring,
// stable ranking, threshold and cap. It has no side effects beyond logging.
func (s *Service) Analyze(items []models.Item, inputName string) *models.Report {
	thresholds := s.scoring.Thresholds

	focus := scoring.ExtractFocusKeywords(s.prefs.NewsFocus)
	logrus.Infof("Phase 1: quick-scoring %d titles against %d focus keywords", len(items), len(focus))

	shortlisted := s.engine.Shortlist(items, focus, thresholds.MaxArticlesToAnalyze)

	logrus.Infof("Phase 2: full scoring of %d shortlisted items", len(shortlisted))

	analyzed := make([]models.ScoredItem, 0, len(shortlisted))
	for _, item := range shortlisted {
		analyzed = append(analyzed, s.engine.Score(item))
	}

	sort.SliceStable(analyzed, func(i, j int) bool {
		return analyzed[i].FinalScore > analyzed[j].FinalScore
	})

	var top []models.ScoredItem
	for _, item := range analyzed {
		if item.FinalScore >= thresholds.MinScoreForPost {
			top = append(top, item)
		}
	}
	aboveThreshold := len(top)
	if len(top) > thresholds.MaxPostsPerDay {
		top = top[:thresholds.MaxPostsPerDay]
	}

	return &models.Report{
		Date:           time.Now().UTC().Format("2006-01-02"),
		InputFile:      inputName,
		TotalArticles:  len(items),
		Analyzed:       len(analyzed),
		AboveThreshold: aboveThreshold,
		ThresholdUsed:  thresholds.MinScoreForPost,
		MaxPostsPerDay: thresholds.MaxPostsPerDay,
		TopArticles:    top,
		AllAnalyzed:    analyzed,
	}
}

func (s *Service) archiveRaw(items []models.Item) error {
	if s.archive == nil || len(items) == 0 {
		return nil
	}

	var buf []byte
	for _, item := range items {
		line, err := json.Marshal(item)
		if err != nil {
			return fmt.Errorf("marshal item %s: %w", item.ID, err)
		}
		buf = append(buf, line...)
		buf = append(buf, '\n')
	}

	name := fmt.Sprintf("raw/articles_%s.jsonl", time.Now().UTC().Format("2006-01-02"))
	return s.archive.Store(name, buf)
}

func (s *Service) archiveReport(report *models.Report) error {
	if s.archive == nil {
		return nil
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	name := fmt.Sprintf("analyzed/analyzed_%s.json", report.Date)
	return s.archive.Store(name, data)
}

func (s *Service) updateMetrics(collected, fresh []models.Item, report *models.Report, duration time.Duration, errCount int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.metrics.LastRun = time.Now()
	s.metrics.LastRunDuration = duration.String()
	s.metrics.TotalCollected = len(collected)
	s.metrics.TotalNew = len(fresh)
	s.metrics.Analyzed = report.Analyzed
	s.metrics.AboveThreshold = report.AboveThreshold
	s.metrics.ErrorCount = errCount

	s.metrics.SourceMetrics = make(map[string]int)
	for _, item := range fresh {
		s.metrics.SourceMetrics[item.SourceType]++
	}
}

// GetMetrics returns current metrics as JSON.
func (s *Service) GetMetrics() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, _ := json.MarshalIndent(s.metrics, "", "  ")
	return string(data)
}

// StoreStats exposes dedup store aggregates for the stats endpoint.
func (s *Service) StoreStats(ctx context.Context) (dedup.Stats, error) {
	return s.store.Stats(ctx)
}
