// Package evaluator flags generated answers that are unlikely to be grounded
// in the retrieved chunks.
//
// Three independent checks feed the verdict: no_context (nothing was
// retrieved), refusal (the model declined) and hallucination (the answer
// looks invented). The confidence value is a display heuristic, not a
// calibrated probability.
package evaluator

import (
	"log/slog"
	"regexp"
	"strings"

	"github.com/0xcro3dile/docqa-go/internal/domain/entities"
)

const (
	noContextPenalty     = 0.5
	refusalPenalty       = 0.3
	hallucinationPenalty = 0.4
	contextBonus         = 0.1
	contextBonusMin      = 3
)

var versionPattern = regexp.MustCompile(`v?\d+\.\d+(?:\.\d+)?`)

// Config tunes the heuristics.
type Config struct {
	// HallucinationRatio is the maximum answer/context length ratio.
	HallucinationRatio float64
	RefusalPhrases     []string
	VaguePhrases       []string
}

// DefaultConfig returns the stock lexicons and a 2.0 length ratio.
func DefaultConfig() Config {
	return Config{
		HallucinationRatio: 2.0,
		RefusalPhrases: []string{
			"cannot", "don't know", "not available", "unable",
			"no information", "not found", "outside the scope",
			"i can't", "not mentioned", "beyond my knowledge",
		},
		VaguePhrases: []string{
			"it is known that", "everyone knows", "as we all know",
			"obviously", "clearly", "of course", "needless to say",
		},
	}
}

// Evaluator is stateless after construction and safe for concurrent use.
type Evaluator struct {
	cfg    Config
	logger *slog.Logger
}

// New creates an Evaluator. A non-positive ratio falls back to 2.0.
func New(cfg Config, logger *slog.Logger) *Evaluator {
	if cfg.HallucinationRatio <= 0 {
		cfg.HallucinationRatio = DefaultConfig().HallucinationRatio
	}
	cfg.RefusalPhrases = lowerAll(cfg.RefusalPhrases)
	cfg.VaguePhrases = lowerAll(cfg.VaguePhrases)
	if logger == nil {
		logger = slog.Default()
	}
	return &Evaluator{cfg: cfg, logger: logger}
}

// Evaluate runs every check against answer and the chunks it was built from.
func (e *Evaluator) Evaluate(chunks []entities.ScoredChunk, answer string) entities.EvaluationResult {
	flags := entities.Flags{
		NoContext:     e.CheckNoContext(chunks),
		Refusal:       e.CheckRefusal(answer),
		Hallucination: e.CheckHallucination(chunks, answer),
	}

	result := entities.EvaluationResult{
		Reliable:   !flags.Any(),
		Flags:      flags,
		Confidence: confidence(flags, len(chunks)),
	}
	if !result.Reliable {
		e.logger.Warn("answer flagged unreliable",
			"no_context", flags.NoContext,
			"refusal", flags.Refusal,
			"hallucination", flags.Hallucination,
			"confidence", result.Confidence,
		)
	}
	return result
}

// CheckNoContext reports whether nothing was retrieved.
func (e *Evaluator) CheckNoContext(chunks []entities.ScoredChunk) bool {
	return len(chunks) == 0
}

// CheckRefusal reports whether the answer contains a refusal phrase.
func (e *Evaluator) CheckRefusal(answer string) bool {
	lower := strings.ToLower(answer)
	for _, phrase := range e.cfg.RefusalPhrases {
		if phrase != "" && strings.Contains(lower, phrase) {
			e.logger.Debug("refusal phrase found", "phrase", phrase)
			return true
		}
	}
	return false
}

// CheckHallucination reports whether the answer looks invented. It is
// always false without chunks; CheckNoContext already covers that case.
func (e *Evaluator) CheckHallucination(chunks []entities.ScoredChunk, answer string) bool {
	if len(chunks) == 0 {
		return false
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	context := strings.Join(texts, " ")

	if float64(len(answer)) > e.cfg.HallucinationRatio*float64(len(context)) {
		e.logger.Debug("answer much longer than context", "answer_len", len(answer), "context_len", len(context))
		return true
	}

	lower := strings.ToLower(answer)
	for _, phrase := range e.cfg.VaguePhrases {
		if phrase != "" && strings.Contains(lower, phrase) {
			e.logger.Debug("vague phrase found", "phrase", phrase)
			return true
		}
	}

	if v, ok := unsupportedVersion(lower, strings.ToLower(context)); ok {
		e.logger.Debug("version not present in context", "version", v)
		return true
	}
	return false
}

// unsupportedVersion returns the first version token of answer that is not
// backed by a version token of context. A leading "v" is ignored, and a
// shorter version backs its patch releases ("2.4" is backed by "2.4.1").
func unsupportedVersion(answer, context string) (string, bool) {
	found := versionPattern.FindAllString(answer, -1)
	if len(found) == 0 {
		return "", false
	}
	var known []string
	for _, v := range versionPattern.FindAllString(context, -1) {
		known = append(known, strings.TrimPrefix(v, "v"))
	}
	for _, v := range found {
		if !versionKnown(strings.TrimPrefix(v, "v"), known) {
			return v, true
		}
	}
	return "", false
}

func versionKnown(v string, known []string) bool {
	for _, k := range known {
		if k == v || strings.HasPrefix(k, v+".") {
			return true
		}
	}
	return false
}

func confidence(flags entities.Flags, chunkCount int) float64 {
	score := 1.0
	if flags.NoContext {
		score -= noContextPenalty
	}
	if flags.Refusal {
		score -= refusalPenalty
	}
	if flags.Hallucination {
		score -= hallucinationPenalty
	}
	if chunkCount >= contextBonusMin {
		score += contextBonus
	}
	switch {
	case score < 0:
		return 0
	case score > 1:
		return 1
	}
	return score
}

func lowerAll(words []string) []string {
	out := make([]string, len(words))
	for i, w := range words {
		out[i] = strings.ToLower(w)
	}
	return out
}
