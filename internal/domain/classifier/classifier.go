// Package classifier scores query complexity and routes queries to a
// generation tier.
//
// The score is additive:
//   - more than one '?': MultiQuestionWeight
//   - more than LongQueryWords words: LongQueryWeight
//   - any reasoning keyword: ReasoningWeight
//   - any problem keyword: ProblemWeight
//
// A score at or above Threshold is complex, anything else simple. Keywords
// match as case-insensitive substrings.
package classifier

import (
	"strings"

	"github.com/0xcro3dile/docqa-go/internal/domain/entities"
)

// Rules are the tunable inputs of the scoring heuristic.
type Rules struct {
	Threshold           int
	MultiQuestionWeight int
	LongQueryWords      int
	LongQueryWeight     int
	ReasoningKeywords   []string
	ReasoningWeight     int
	ProblemKeywords     []string
	ProblemWeight       int
}

// DefaultRules returns the canonical weights and keyword lists.
func DefaultRules() Rules {
	return Rules{
		Threshold:           2,
		MultiQuestionWeight: 2,
		LongQueryWords:      25,
		LongQueryWeight:     1,
		ReasoningKeywords: []string{
			"how", "why", "compare", "explain", "troubleshoot",
			"setup", "configure", "design", "architecture",
		},
		ReasoningWeight: 1,
		ProblemKeywords: []string{
			"error", "problem", "issue", "not working", "not loading",
			"failed", "fail", "bug", "help",
		},
		ProblemWeight: 2,
	}
}

// TierTable maps a classification to a model identifier.
type TierTable map[entities.Classification]string

// DefaultTiers returns the default model for each classification.
func DefaultTiers() TierTable {
	return TierTable{
		entities.ClassificationSimple:  "llama-3.1-8b-instant",
		entities.ClassificationComplex: "llama-3.3-70b-versatile",
	}
}

// Classifier is stateless; it is safe for concurrent use.
type Classifier struct {
	rules Rules
	tiers TierTable
}

// New creates a Classifier. Missing tier entries fall back to the defaults.
func New(rules Rules, tiers TierTable) *Classifier {
	merged := DefaultTiers()
	for class, model := range tiers {
		if model != "" {
			merged[class] = model
		}
	}
	rules.ReasoningKeywords = lowerAll(rules.ReasoningKeywords)
	rules.ProblemKeywords = lowerAll(rules.ProblemKeywords)
	return &Classifier{rules: rules, tiers: merged}
}

// Score returns the raw complexity score of query.
func (c *Classifier) Score(query string) int {
	score := 0
	q := strings.ToLower(query)

	if strings.Count(query, "?") > 1 {
		score += c.rules.MultiQuestionWeight
	}
	if len(strings.Fields(query)) > c.rules.LongQueryWords {
		score += c.rules.LongQueryWeight
	}
	if containsAny(q, c.rules.ReasoningKeywords) {
		score += c.rules.ReasoningWeight
	}
	if containsAny(q, c.rules.ProblemKeywords) {
		score += c.rules.ProblemWeight
	}
	return score
}

// Classify returns the complexity class of query.
func (c *Classifier) Classify(query string) entities.Classification {
	if c.Score(query) >= c.rules.Threshold {
		return entities.ClassificationComplex
	}
	return entities.ClassificationSimple
}

// Tier returns the model identifier for a classification.
func (c *Classifier) Tier(class entities.Classification) string {
	return c.tiers[class]
}

// Route classifies query and returns the tier it should be served by.
func (c *Classifier) Route(query string) (entities.Classification, string) {
	class := c.Classify(query)
	return class, c.Tier(class)
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if w != "" && strings.Contains(s, w) {
			return true
		}
	}
	return false
}

func lowerAll(words []string) []string {
	out := make([]string, len(words))
	for i, w := range words {
		out[i] = strings.ToLower(w)
	}
	return out
}
