// Package usecases contains the application workflows. They depend only on
// the domain packages and port interfaces; adapters are injected.
package usecases

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/0xcro3dile/docqa-go/internal/domain/classifier"
	"github.com/0xcro3dile/docqa-go/internal/domain/entities"
	"github.com/0xcro3dile/docqa-go/internal/domain/evaluator"
	"github.com/0xcro3dile/docqa-go/internal/domain/ports"
	"github.com/0xcro3dile/docqa-go/internal/domain/retriever"
)

// DefaultSystemPrompt keeps the model inside the retrieved documentation.
const DefaultSystemPrompt = "You are a support assistant. Answer only from the provided documentation. " +
	"If the documentation does not contain the answer, say so explicitly."

// NoDocumentation replaces the documentation section when nothing was retrieved.
const NoDocumentation = "No relevant documentation found."

// QueryConfig holds the tunables of the query pipeline.
type QueryConfig struct {
	TopK          int
	MaxTokens     int
	Temperature   float64
	Timeout       time.Duration
	LogQueryRunes int
	SystemPrompt  string
}

// DefaultQueryConfig returns the production defaults.
func DefaultQueryConfig() QueryConfig {
	return QueryConfig{
		TopK:          5,
		MaxTokens:     500,
		Temperature:   0.3,
		Timeout:       30 * time.Second,
		LogQueryRunes: 100,
		SystemPrompt:  DefaultSystemPrompt,
	}
}

func (c QueryConfig) withDefaults() QueryConfig {
	d := DefaultQueryConfig()
	if c.TopK <= 0 {
		c.TopK = d.TopK
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = d.MaxTokens
	}
	if c.Timeout <= 0 {
		c.Timeout = d.Timeout
	}
	if c.LogQueryRunes <= 0 {
		c.LogQueryRunes = d.LogQueryRunes
	}
	if c.SystemPrompt == "" {
		c.SystemPrompt = d.SystemPrompt
	}
	return c
}

// QueryUseCase runs one query through classify, retrieve, generate,
// evaluate and log.
type QueryUseCase struct {
	corpus     ports.CorpusReader
	retriever  *retriever.Retriever
	classifier *classifier.Classifier
	evaluator  *evaluator.Evaluator
	generator  ports.Generator
	queryLog   ports.QueryLogger
	cfg        QueryConfig
	logger     *slog.Logger

	now func() time.Time
}

// NewQueryUseCase creates a QueryUseCase with injected dependencies.
// queryLog may be nil, in which case nothing is recorded.
func NewQueryUseCase(
	corpus ports.CorpusReader,
	ret *retriever.Retriever,
	cls *classifier.Classifier,
	eval *evaluator.Evaluator,
	gen ports.Generator,
	queryLog ports.QueryLogger,
	cfg QueryConfig,
	logger *slog.Logger,
) *QueryUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &QueryUseCase{
		corpus:     corpus,
		retriever:  ret,
		classifier: cls,
		evaluator:  eval,
		generator:  gen,
		queryLog:   queryLog,
		cfg:        cfg.withDefaults(),
		logger:     logger,
		now:        time.Now,
	}
}

// Ask answers query from the current corpus.
//
// Only validation and generation failures abort the request. A failed log
// append is reported through the logger and the answer is still returned.
func (uc *QueryUseCase) Ask(ctx context.Context, query string) (*entities.Answer, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, &entities.ValidationError{Field: "query", Message: "must not be empty"}
	}

	requestID := RequestIDFrom(ctx)
	if requestID == "" {
		requestID = uuid.NewString()
	}

	class, tier := uc.classifier.Route(query)
	chunks := uc.retriever.Retrieve(query, uc.corpus.Snapshot(), uc.cfg.TopK)

	uc.logger.DebugContext(ctx, "query routed",
		"request_id", requestID,
		"classification", class,
		"tier", tier,
		"chunks", len(chunks),
	)

	req := entities.GenerationRequest{
		SystemPrompt: uc.cfg.SystemPrompt,
		UserPrompt:   BuildUserPrompt(query, chunks),
		Tier:         tier,
		MaxTokens:    uc.cfg.MaxTokens,
		Temperature:  uc.cfg.Temperature,
	}

	start := uc.now()
	gen, err := uc.generate(ctx, req)
	latency := uc.now().Sub(start).Milliseconds()
	if err != nil {
		uc.logger.ErrorContext(ctx, "generation failed",
			"request_id", requestID, "tier", tier, "error", err)
		return nil, err
	}
	if gen.LatencyMs <= 0 {
		gen.LatencyMs = latency
	}

	eval := uc.evaluator.Evaluate(chunks, gen.Text)

	answer := &entities.Answer{
		RequestID:      requestID,
		Query:          query,
		Answer:         gen.Text,
		Classification: class,
		Tier:           tier,
		InputTokens:    gen.InputTokens,
		OutputTokens:   gen.OutputTokens,
		LatencyMs:      gen.LatencyMs,
		Evaluation:     eval,
		Sources:        chunks,
	}

	if err := uc.record(ctx, answer); err != nil {
		uc.logger.WarnContext(ctx, "query log append failed",
			"request_id", requestID, "error", err)
	}

	uc.logger.InfoContext(ctx, "query answered",
		"request_id", requestID,
		"classification", class,
		"tier", tier,
		"latency_ms", answer.LatencyMs,
		"reliable", eval.Reliable,
	)
	return answer, nil
}

// Search retrieves chunks without generation. topK ≤ 0 uses the configured default.
func (uc *QueryUseCase) Search(ctx context.Context, query string, topK int) ([]entities.ScoredChunk, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, &entities.ValidationError{Field: "query", Message: "must not be empty"}
	}
	if topK <= 0 {
		topK = uc.cfg.TopK
	}
	return uc.retriever.Retrieve(query, uc.corpus.Snapshot(), topK), nil
}

// generate calls the generator under the configured timeout and turns any
// failure, including a panic, into a *GenerationError.
func (uc *QueryUseCase) generate(ctx context.Context, req entities.GenerationRequest) (gen entities.Generation, err error) {
	genCtx, cancel := context.WithTimeout(ctx, uc.cfg.Timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			err = &entities.GenerationError{
				Tier: req.Tier,
				Kind: entities.GenerationTransport,
				Err:  fmt.Errorf("generator panic: %v", r),
			}
		}
	}()

	gen, err = uc.generator.Generate(genCtx, req)
	if err == nil && strings.TrimSpace(gen.Text) == "" {
		err = entities.ErrEmptyGeneration
	}
	if err != nil {
		return entities.Generation{}, &entities.GenerationError{
			Tier: req.Tier,
			Kind: generationKind(genCtx, err),
			Err:  err,
		}
	}
	return gen, nil
}

func generationKind(ctx context.Context, err error) entities.GenerationErrorKind {
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(ctx.Err(), context.DeadlineExceeded):
		return entities.GenerationTimeout
	case errors.Is(err, entities.ErrQuotaExceeded):
		return entities.GenerationQuota
	case errors.Is(err, entities.ErrEmptyGeneration):
		return entities.GenerationEmpty
	default:
		return entities.GenerationTransport
	}
}

func (uc *QueryUseCase) record(ctx context.Context, a *entities.Answer) error {
	if uc.queryLog == nil {
		return nil
	}
	entry := entities.LogEntry{
		Timestamp:      uc.now().UTC(),
		RequestID:      a.RequestID,
		Query:          truncateRunes(a.Query, uc.cfg.LogQueryRunes),
		QueryLength:    len(strings.Fields(a.Query)),
		Classification: a.Classification,
		ModelUsed:      a.Tier,
		TokensInput:    a.InputTokens,
		TokensOutput:   a.OutputTokens,
		LatencyMs:      a.LatencyMs,
		Reliable:       a.Evaluation.Reliable,
		Confidence:     a.Evaluation.Confidence,
	}
	// The caller may already be gone; the entry is still written.
	if err := uc.queryLog.Append(context.WithoutCancel(ctx), entry); err != nil {
		return &entities.LogWriteError{Err: err}
	}
	return nil
}

// BuildUserPrompt formats the question and the retrieved chunks.
func BuildUserPrompt(query string, chunks []entities.ScoredChunk) string {
	docs := NoDocumentation
	if len(chunks) > 0 {
		blocks := make([]string, len(chunks))
		for i, c := range chunks {
			blocks[i] = fmt.Sprintf("[%s p%d]\n%s", c.Source, c.Page, c.Text)
		}
		docs = strings.Join(blocks, "\n\n")
	}
	return "Question: " + query + "\n\nDocumentation:\n" + docs
}

func truncateRunes(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
