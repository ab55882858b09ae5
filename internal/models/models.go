package models

// Item is a normalized content unit collected from any source.
type Item struct {
	ID      string `json:"id"`
	URL     string `json:"url"`
	Title   string `json:"title"`
	Content string `json:"content"`
	Summary string `json:"summary,omitempty"`

	SourceName     string `json:"source_name"`
	SourceType     string `json:"source_type"` // "rss", "jina", "reddit", "discord", "youtube"
	SourceCategory string `json:"source_category"`

	PublishedAt string `json:"published_at,omitempty"` // ISO 8601, empty when unknown
	CollectedAt string `json:"collected_at"`

	Language string   `json:"language"`
	Author   string   `json:"author,omitempty"`
	Tags     []string `json:"tags"`

	// Community signals, nil for sources without them.
	Score       *int `json:"score,omitempty"`
	NumComments *int `json:"num_comments,omitempty"`
}

// ScoredItem is an Item with the full phase-2 analysis attached.
type ScoredItem struct {
	Item

	FinalScore        float64            `json:"score"`
	ScoreBreakdown    map[string]float64 `json:"score_breakdown"`
	Categories        []string           `json:"categories"`
	SuggestedAngles   []string           `json:"suggested_angles"`
	SuggestedHashtags []string           `json:"suggested_hashtags"`
	AnalyzedAt        string             `json:"analyzed_at"`
}

// Report is the output of one analysis run.
type Report struct {
	Date           string       `json:"date"`
	InputFile      string       `json:"input_file"`
	TotalArticles  int          `json:"total_articles"`
	Analyzed       int          `json:"analyzed"`
	AboveThreshold int          `json:"above_threshold"`
	ThresholdUsed  float64      `json:"threshold_used"`
	MaxPostsPerDay int          `json:"max_posts_per_day"`
	TopArticles    []ScoredItem `json:"top_articles"`
	AllAnalyzed    []ScoredItem `json:"all_analyzed"`
}
