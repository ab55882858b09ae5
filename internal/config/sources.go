package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// SourcesConfig lists the collectors to run, mirroring sources.yaml.
type SourcesConfig struct {
	RSS     []FeedSource  `yaml:"rss"`
	Jina    JinaSources   `yaml:"jina"`
	Reddit  RedditSources `yaml:"reddit"`
	YouTube []VideoSource `yaml:"youtube"`
}

// FeedSource is one RSS/Atom feed.
type FeedSource struct {
	Name     string `yaml:"name"`
	URL      string `yaml:"url"`
	Category string `yaml:"category"`
	Enabled  *bool  `yaml:"enabled"`
}

// JinaSources lists JavaScript-heavy sites read through the Jina reader proxy.
type JinaSources struct {
	Sites []FeedSource `yaml:"sites"`
}

// RedditSources lists subreddits to pull top posts from.
type RedditSources struct {
	Subreddits []string `yaml:"subreddits"`
	MaxPosts   int      `yaml:"max_posts"`
}

// VideoSource is one YouTube video or channel to fetch transcripts for.
type VideoSource struct {
	Name    string `yaml:"name"`
	URL     string `yaml:"url"`
	Enabled *bool  `yaml:"enabled"`
}

// IsEnabled treats a missing enabled flag as true.
func (f FeedSource) IsEnabled() bool {
	return f.Enabled == nil || *f.Enabled
}

// IsEnabled treats a missing enabled flag as true.
func (v VideoSource) IsEnabled() bool {
	return v.Enabled == nil || *v.Enabled
}

// LoadSources reads the collector configuration file.
func LoadSources(path string) (*SourcesConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrInvalidConfig, path, err)
	}

	var cfg SourcesConfig
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", ErrInvalidConfig, path, err)
	}

	if cfg.Reddit.MaxPosts <= 0 {
		cfg.Reddit.MaxPosts = 25
	}

	return &cfg, nil
}
