// Package scoring implements the two-phase scoring engine: a cheap
// title-based shortlist pass followed by full weighted-criteria scoring and
// categorization of the shortlisted items.
package scoring

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/postveille/curator/internal/config"
	"github.com/postveille/curator/internal/models"
)

// Penalty factors applied multiplicatively after the weighted aggregate.
const (
	negativeKeywordPenalty = 0.7
	clickbaitPenalty       = 0.8
)

// defaultCategoryTags backs hashtag suggestion for categories absent from the
// configured by_category table.
var defaultCategoryTags = map[string][]string{
	"LLMs":       {"#LLM", "#ChatGPT", "#Claude"},
	"Enterprise": {"#TransformationDigitale", "#EntrepriseIA"},
	"Tools":      {"#DevTools", "#Productivite"},
	"Safety":     {"#IAResponsable", "#EthiqueIA"},
	"Research":   {"#RechercheIA", "#DeepLearning"},
	"Hardware":   {"#GPU", "#Infrastructure"},
	"Agents":     {"#IAAgents", "#Automation"},
	"Autonomous": {"#Autonomous", "#SelfDriving"},
	"Startup":    {"#Startup", "#FrenchTech"},
}

// Engine scores items against a fixed configuration. It is stateless beyond
// the config, so one engine can serve any number of runs.
type Engine struct {
	cfg *config.ScoringConfig
}

// New creates a scoring engine.
func New(cfg *config.ScoringConfig) *Engine {
	return &Engine{cfg: cfg}
}

// QuickScore is the phase-1 estimate: title matches against the focus
// keywords (2.0 each, capped at 10.0) plus the source tier bonus.
func (e *Engine) QuickScore(item models.Item, focus []string) float64 {
	title := strings.ToLower(item.Title)

	matches := 0
	for _, kw := range focus {
		if strings.Contains(title, kw) {
			matches++
		}
	}
	score := math.Min(float64(matches)*2.0, 10.0)

	quality := e.cfg.Criteria.SourceQuality
	switch {
	case containsAny(item.SourceName, quality.Tier1):
		score += 2.0
	case containsAny(item.SourceName, quality.Tier2):
		score += 1.0
	}

	return score
}

// Shortlist ranks all items by quick score, descending, and returns the top
// limit candidates for phase 2. The sort is stable: ties keep input order.
func (e *Engine) Shortlist(items []models.Item, focus []string, limit int) []models.Item {
	ranked := make([]models.Item, len(items))
	copy(ranked, items)

	scores := make(map[string]float64, len(items))
	for _, item := range ranked {
		scores[item.ID] = e.QuickScore(item, focus)
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return scores[ranked[i].ID] > scores[ranked[j].ID]
	})

	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

// Score runs the full phase-2 evaluation of one item: weighted criteria,
// penalties, categorization, hashtag and angle suggestions. The result is
// immutable once produced.
func (e *Engine) Score(item models.Item) models.ScoredItem {
	fullText := item.Title + " " + item.Content + " " + item.Summary

	breakdown := make(map[string]float64)
	var weightedSum, totalWeight float64

	record := func(name string, score, weight float64) {
		breakdown[name] = score * 10
		weightedSum += score * weight
		totalWeight += weight
	}

	if c := e.cfg.Criteria.AudienceRelevance; c.Weight > 0 {
		score := keywordCoverage(fullText, c.Keywords)
		if keywordCoverage(item.Title, c.Keywords) > 0 {
			score = math.Min(score+0.3, 1.0)
		}
		record("audience_relevance", score, c.Weight)
	}

	if c := e.cfg.Criteria.EngagementPotential; c.Weight > 0 {
		record("engagement_potential", keywordCoverage(item.Title, c.Keywords), c.Weight)
	}

	if c := e.cfg.Criteria.SourceQuality; c.Weight > 0 {
		record("source_quality", e.sourceQuality(item.SourceName), c.Weight)
	}

	if c := e.cfg.Criteria.Timeliness; c.Weight > 0 {
		// No recency signal in this design; fixed neutral-positive value.
		record("timeliness", 0.7, c.Weight)
	}

	if c := e.cfg.Criteria.Uniqueness; c.Weight > 0 {
		// Longer titles tend to be more specific.
		record("uniqueness", math.Min(float64(len(item.Title))/80, 1.0), c.Weight)
	}

	final := 5.0
	if totalWeight > 0 {
		final = weightedSum / totalWeight * 10
	}

	if containsAny(fullText, e.cfg.Exclusions.NegativeKeywords) {
		final *= negativeKeywordPenalty
	}
	if containsAny(item.Title, e.cfg.Exclusions.ClickbaitPatterns) {
		final *= clickbaitPenalty
	}

	final = math.Round(math.Min(math.Max(final, 1), 10)*10) / 10

	categories := e.detectCategories(fullText)

	return models.ScoredItem{
		Item:              item,
		FinalScore:        final,
		ScoreBreakdown:    breakdown,
		Categories:        categories,
		SuggestedAngles:   suggestAngles(item.Title, categories),
		SuggestedHashtags: e.suggestHashtags(categories),
		AnalyzedAt:        time.Now().UTC().Format(time.RFC3339),
	}
}

func (e *Engine) sourceQuality(source string) float64 {
	quality := e.cfg.Criteria.SourceQuality
	switch {
	case containsAny(source, quality.Tier1):
		return 1.0
	case containsAny(source, quality.Tier2):
		return 0.7
	default:
		// Unknown-source floor.
		return 0.4
	}
}

// detectCategories returns every configured category with at least one
// keyword match, in configuration order, truncated to three.
func (e *Engine) detectCategories(fullText string) []string {
	var categories []string
	for _, cat := range e.cfg.Categories {
		if containsAny(fullText, cat.Keywords) {
			categories = append(categories, cat.Name)
			if len(categories) == 3 {
				break
			}
		}
	}
	if len(categories) == 0 {
		return []string{"General"}
	}
	return categories
}

// suggestHashtags builds the hashtag list: configured base tags, then up to
// two per detected category, deduplicated in first-occurrence order and
// capped at max_hashtags.
func (e *Engine) suggestHashtags(categories []string) []string {
	hcfg := e.cfg.Hashtags

	tags := append([]string{}, hcfg.Base...)
	for _, cat := range categories {
		catTags, ok := hcfg.ByCategory[cat]
		if !ok {
			catTags = defaultCategoryTags[cat]
		}
		if len(catTags) > 2 {
			catTags = catTags[:2]
		}
		tags = append(tags, catTags...)
	}

	seen := make(map[string]struct{}, len(tags))
	unique := tags[:0]
	for _, tag := range tags {
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		unique = append(unique, tag)
	}

	if len(unique) > hcfg.MaxHashtags {
		unique = unique[:hcfg.MaxHashtags]
	}
	return unique
}

// suggestAngles produces templated post-angle prompts. Purely presentational.
func suggestAngles(title string, categories []string) []string {
	short := title
	if len(short) > 50 {
		short = short[:50]
	}

	angles := []string{
		fmt.Sprintf("What %q means for your business", short),
	}

	switch {
	case hasCategory(categories, "Enterprise") || hasCategory(categories, "Tools"):
		angles = append(angles, "How to fold this innovation into your workflows")
	case hasCategory(categories, "Research"):
		angles = append(angles, "Why this research will reshape your industry")
	default:
		angles = append(angles, "Three lessons to take away from this story")
	}

	angles = append(angles, "What this signals for the year ahead")
	return angles
}

func hasCategory(categories []string, name string) bool {
	for _, c := range categories {
		if c == name {
			return true
		}
	}
	return false
}
