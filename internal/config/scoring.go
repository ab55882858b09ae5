package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig marks configuration that is missing or structurally
// unusable. Callers treat it as fatal before any scoring occurs.
var ErrInvalidConfig = errors.New("invalid configuration")

// ScoringConfig drives both phases of the scoring engine. It mirrors the
// scoring.yaml layout.
type ScoringConfig struct {
	Criteria   CriteriaConfig   `yaml:"scoring_criteria"`
	Categories []CategoryConfig `yaml:"categories"`
	Exclusions ExclusionConfig  `yaml:"exclusions"`
	Hashtags   HashtagConfig    `yaml:"hashtags"`
	Thresholds ThresholdConfig  `yaml:"thresholds"`
}

// CriteriaConfig groups the five scoring dimensions. A criterion with zero
// weight is skipped entirely.
type CriteriaConfig struct {
	AudienceRelevance   KeywordCriterion `yaml:"audience_relevance"`
	EngagementPotential KeywordCriterion `yaml:"engagement_potential"`
	SourceQuality       SourceCriterion  `yaml:"source_quality"`
	Timeliness          WeightOnly       `yaml:"timeliness"`
	Uniqueness          WeightOnly       `yaml:"uniqueness"`
}

// KeywordCriterion scores keyword coverage against a configured list.
type KeywordCriterion struct {
	Weight   float64  `yaml:"weight"`
	Keywords []string `yaml:"keywords_boost"`
}

// SourceCriterion scores source reputation from tier lists.
type SourceCriterion struct {
	Weight float64  `yaml:"weight"`
	Tier1  []string `yaml:"tier_1_sources"`
	Tier2  []string `yaml:"tier_2_sources"`
}

// WeightOnly is a criterion with no keyword configuration.
type WeightOnly struct {
	Weight float64 `yaml:"weight"`
}

// CategoryConfig maps a category name to its detection keywords.
type CategoryConfig struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
}

// ExclusionConfig holds the penalty lists.
type ExclusionConfig struct {
	NegativeKeywords  []string `yaml:"negative_keywords"`
	ClickbaitPatterns []string `yaml:"clickbait_patterns"`
}

// HashtagConfig controls hashtag suggestions.
type HashtagConfig struct {
	Base        []string            `yaml:"base"`
	ByCategory  map[string][]string `yaml:"by_category"`
	MaxHashtags int                 `yaml:"max_hashtags"`
}

// ThresholdConfig bounds the analysis output.
type ThresholdConfig struct {
	MaxArticlesToAnalyze int     `yaml:"max_articles_to_analyze"`
	MinScoreForPost      float64 `yaml:"min_score_for_post"`
	MaxPostsPerDay       int     `yaml:"max_posts_per_day"`
}

// Preferences is the user's free-text description of topics of interest,
// consumed by the phase-1 shortlist.
type Preferences struct {
	NewsFocus string `json:"news_focus"`
}

// LoadScoring reads and validates the scoring configuration file.
func LoadScoring(path string) (*ScoringConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrInvalidConfig, path, err)
	}

	var cfg ScoringConfig
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", ErrInvalidConfig, path, err)
	}

	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *ScoringConfig) applyDefaults() {
	if c.Thresholds.MaxArticlesToAnalyze <= 0 {
		c.Thresholds.MaxArticlesToAnalyze = 30
	}
	if c.Thresholds.MinScoreForPost <= 0 {
		c.Thresholds.MinScoreForPost = 7
	}
	if c.Thresholds.MaxPostsPerDay <= 0 {
		c.Thresholds.MaxPostsPerDay = 15
	}
	if c.Hashtags.MaxHashtags <= 0 {
		c.Hashtags.MaxHashtags = 4
	}
}

func (c *ScoringConfig) validate() error {
	weights := []float64{
		c.Criteria.AudienceRelevance.Weight,
		c.Criteria.EngagementPotential.Weight,
		c.Criteria.SourceQuality.Weight,
		c.Criteria.Timeliness.Weight,
		c.Criteria.Uniqueness.Weight,
	}
	for _, w := range weights {
		if w < 0 {
			return fmt.Errorf("%w: criterion weights must not be negative", ErrInvalidConfig)
		}
	}
	for _, cat := range c.Categories {
		if cat.Name == "" {
			return fmt.Errorf("%w: category without a name", ErrInvalidConfig)
		}
	}
	return nil
}

// LoadPreferences reads the user preference file. A missing file is not an
// error: phase 1 then runs with no focus keywords and ranks on tier bonuses
// alone.
func LoadPreferences(path string) (*Preferences, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Preferences{}, nil
		}
		return nil, fmt.Errorf("%w: read %s: %v", ErrInvalidConfig, path, err)
	}

	var prefs Preferences
	if err := json.Unmarshal(raw, &prefs); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", ErrInvalidConfig, path, err)
	}

	return &prefs, nil
}
