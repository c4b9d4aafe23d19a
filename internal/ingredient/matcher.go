// Package ingredient links free-text recipe steps to the ingredient lines
// they use and rescales ingredient quantities for a serving count.
package ingredient

import (
	"regexp"
	"sort"
	"strings"

	"github.com/hammamikhairi/cookmode/internal/domain"
)

// mediumThreshold is the token overlap above which a match is Medium.
const mediumThreshold = 0.3

var (
	parenRe      = regexp.MustCompile(`\([^)]*\)`)
	commaTailRe  = regexp.MustCompile(`,.*$`)
	fractionRe   = regexp.MustCompile(`\d+\s*/\s*\d+`)
	numberRe     = regexp.MustCompile(`\d+(?:[.,]\d+)?`)
	rangeDashRe  = regexp.MustCompile(`^[\s\-–]+`)
	unitRe       = regexp.MustCompile(`\b(?:cups?|c|tbsps?|tsps?|tablespoons?|teaspoons?|oz|ounces?|lbs?|pounds?|g|grams?|kg|kilograms?|ml|milliliters?|millilitres?|l|liters?|litres?|pinch(?:es)?|dash(?:es)?|bunch(?:es)?|cloves?|cans?|packages?|sticks?|slices?|pieces?)\b\.?`)
	descriptorRe = regexp.MustCompile(`\b(?:fresh|freshly|dried|ground|minced|chopped|diced|sliced|crushed|whole|large|medium|small|thin|thick|boneless|skinless|raw|cooked|melted|softened|room temperature|cold|warm|hot|optional|finely|roughly)\b`)
	nonWordRe    = regexp.MustCompile(`[^\w\s-]`)
	spaceRe      = regexp.MustCompile(`\s+`)
)

const vulgarFractions = "¼½¾⅓⅔⅛⅜⅝⅞"

// fillerWords never count toward overlap.
var fillerWords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true,
	"in": true, "on": true, "to": true, "with": true, "for": true,
	"of": true, "some": true, "more": true, "remaining": true,
	"rest": true, "half": true, "other": true, "additional": true,
	"extra": true,
}

// Name reduces an ingredient line to its canonical name:
// "2 1/2 cups fresh basil leaves (packed), torn" becomes "basil leaves".
func Name(raw string) string {
	s := strings.ToLower(raw)
	s = parenRe.ReplaceAllString(s, " ")
	s = commaTailRe.ReplaceAllString(s, "")
	s = strings.Map(func(r rune) rune {
		if strings.ContainsRune(vulgarFractions, r) {
			return ' '
		}
		return r
	}, s)
	s = fractionRe.ReplaceAllString(s, " ")
	s = numberRe.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)
	s = rangeDashRe.ReplaceAllString(s, "")
	s = strings.TrimPrefix(s, "to ")
	s = unitRe.ReplaceAllString(s, " ")
	s = descriptorRe.ReplaceAllString(s, " ")
	s = spaceRe.ReplaceAllString(s, " ")
	s = strings.Trim(s, " -.")
	s = strings.TrimPrefix(s, "of ")
	return strings.TrimSpace(s)
}

// tokens splits text into distinct lower-case words, dropping filler
// words and single characters. Order of first appearance is kept.
func tokens(text string) []string {
	text = nonWordRe.ReplaceAllString(strings.ToLower(text), " ")
	seen := make(map[string]bool)
	var out []string
	for _, w := range strings.Fields(text) {
		if len(w) <= 1 || fillerWords[w] || seen[w] {
			continue
		}
		seen[w] = true
		out = append(out, w)
	}
	return out
}

// overlap scores how much of the step's vocabulary the name shares.
// Every exact token match counts 1 and every distinct pair where one
// token contains the other counts 0.5, so "eggs" against "egg" earns
// partial credit even when "egg" also matched exactly.
func overlap(step, name []string) float64 {
	if len(step) == 0 || len(name) == 0 {
		return 0
	}
	inName := make(map[string]bool, len(name))
	for _, t := range name {
		inName[t] = true
	}

	var score float64
	for _, t := range step {
		if inName[t] {
			score++
		}
		for _, u := range name {
			if u != t && (strings.Contains(t, u) || strings.Contains(u, t)) {
				score += 0.5
			}
		}
	}
	return score / float64(max(len(step), len(name)))
}

// relevance classifies a single canonical name against a step.
func relevance(lowerStep string, stepTokens []string, name string) (domain.Relevance, bool) {
	if strings.Contains(lowerStep, name) {
		return domain.RelevanceHigh, true
	}

	nameTokens := tokens(name)
	stepSet := make(map[string]bool, len(stepTokens))
	for _, t := range stepTokens {
		stepSet[t] = true
	}
	for _, t := range nameTokens {
		if len(t) > 3 && stepSet[t] {
			return domain.RelevanceMedium, true
		}
	}
	if overlap(stepTokens, nameTokens) > mediumThreshold {
		return domain.RelevanceMedium, true
	}

	for _, t := range nameTokens {
		if len(t) > 3 && strings.Contains(lowerStep, t) {
			return domain.RelevanceLow, true
		}
	}
	return 0, false
}

// Match returns the ingredients a step appears to use, most relevant
// first. Ties keep ingredient order. The result never references an
// index outside ingredients.
func Match(step string, ingredients []string) []domain.IngredientMatch {
	lowerStep := strings.ToLower(strings.TrimSpace(step))
	if lowerStep == "" || len(ingredients) == 0 {
		return nil
	}
	stepTokens := tokens(lowerStep)

	var out []domain.IngredientMatch
	for i, raw := range ingredients {
		name := Name(raw)
		if name == "" {
			continue
		}
		if rel, ok := relevance(lowerStep, stepTokens, name); ok {
			out = append(out, domain.IngredientMatch{Index: i, Relevance: rel})
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Relevance > out[j].Relevance
	})
	return out
}
