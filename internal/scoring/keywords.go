package scoring

import (
	"regexp"
	"strings"
)

var tokenPattern = regexp.MustCompile(`[a-zA-ZÀ-ÿ]{3,}`)

// stopWords are ignored when extracting focus keywords from the free-text
// preference description. The set is multilingual because preference text is
// typically written in French, English, or a mix.
var stopWords = map[string]struct{}{
	// French
	"le": {}, "la": {}, "les": {}, "un": {}, "une": {}, "des": {}, "de": {}, "du": {}, "au": {}, "aux": {},
	"je": {}, "tu": {}, "il": {}, "elle": {}, "nous": {}, "vous": {}, "ils": {}, "elles": {},
	"mon": {}, "ma": {}, "mes": {}, "ton": {}, "ta": {}, "tes": {}, "son": {}, "sa": {}, "ses": {},
	"ce": {}, "cette": {}, "ces": {}, "qui": {}, "que": {}, "quoi": {}, "dont": {}, "où": {},
	"et": {}, "ou": {}, "mais": {}, "donc": {}, "car": {}, "ni": {}, "si": {}, "pour": {}, "par": {},
	"sur": {}, "sous": {}, "dans": {}, "avec": {}, "sans": {}, "entre": {}, "vers": {}, "chez": {},
	"être": {}, "avoir": {}, "faire": {}, "pouvoir": {}, "vouloir": {}, "devoir": {}, "aller": {},
	"est": {}, "sont": {}, "était": {}, "peut": {}, "va": {}, "fait": {}, "bien": {}, "plus": {},
	"se": {}, "ne": {}, "pas": {}, "quels": {}, "quel": {}, "quelle": {}, "quelles": {},
	// English
	"the": {}, "is": {}, "are": {}, "was": {}, "were": {}, "been": {},
	"of": {}, "in": {}, "on": {}, "at": {}, "for": {}, "with": {}, "by": {}, "from": {},
	// Preference-text filler
	"cherche": {}, "uniquement": {}, "news": {}, "peuvent": {}, "intéresser": {}, "publique": {},
	"demande": {}, "comment": {}, "pourquoi": {}, "important": {}, "autant": {},
	"sujets": {}, "inclure": {}, "exclure": {}, "éviter": {}, "trop": {}, "techniques": {},
}

// ExtractFocusKeywords tokenizes the preference text into the focus keyword
// set used by the phase-1 shortlist: lowercase alphabetic tokens of at least
// three characters, stop words dropped, deduplicated in first-occurrence
// order so repeated runs rank identically.
func ExtractFocusKeywords(text string) []string {
	words := tokenPattern.FindAllString(strings.ToLower(text), -1)

	seen := make(map[string]struct{}, len(words))
	var keywords []string
	for _, w := range words {
		if _, stop := stopWords[w]; stop {
			continue
		}
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		keywords = append(keywords, w)
	}
	return keywords
}

// keywordCoverage is the matches/total ratio of configured keywords found as
// substrings of the text, capped at 1.0.
func keywordCoverage(text string, keywords []string) float64 {
	if text == "" || len(keywords) == 0 {
		return 0
	}

	lower := strings.ToLower(text)
	matches := 0
	for _, kw := range keywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			matches++
		}
	}

	ratio := float64(matches) / float64(len(keywords))
	if ratio > 1 {
		ratio = 1
	}
	return ratio
}

// containsAny reports whether any needle occurs in the text,
// case-insensitively.
func containsAny(text string, needles []string) bool {
	lower := strings.ToLower(text)
	for _, n := range needles {
		if n == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(n)) {
			return true
		}
	}
	return false
}
