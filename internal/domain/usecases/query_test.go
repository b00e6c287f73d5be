package usecases

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/0xcro3dile/docqa-go/internal/domain/classifier"
	"github.com/0xcro3dile/docqa-go/internal/domain/entities"
	"github.com/0xcro3dile/docqa-go/internal/domain/evaluator"
	"github.com/0xcro3dile/docqa-go/internal/domain/retriever"
)

// mockCorpus implements ports.CorpusReader for testing
type mockCorpus struct {
	docs []entities.Document
}

func (m *mockCorpus) Snapshot() []entities.Document { return m.docs }

// mockGenerator implements ports.Generator for testing
type mockGenerator struct {
	mu       sync.Mutex
	response string
	err      error
	panicMsg string
	block    bool
	requests []entities.GenerationRequest
}

func (m *mockGenerator) Generate(ctx context.Context, req entities.GenerationRequest) (entities.Generation, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()

	if m.panicMsg != "" {
		panic(m.panicMsg)
	}
	if m.block {
		<-ctx.Done()
		return entities.Generation{}, ctx.Err()
	}
	if m.err != nil {
		return entities.Generation{}, m.err
	}
	text := m.response
	if text == "" {
		text = "mocked answer"
	}
	return entities.Generation{Text: text, InputTokens: 100, OutputTokens: 20, LatencyMs: 15}, nil
}

func (m *mockGenerator) Name() string { return "mock" }

// mockLog implements ports.QueryLogger, writing JSON lines to memory.
type mockLog struct {
	mu    sync.Mutex
	lines []string
	err   error
}

func (m *mockLog) Append(ctx context.Context, e entities.LogEntry) error {
	if m.err != nil {
		return m.err
	}
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.lines = append(m.lines, string(b))
	m.mu.Unlock()
	return nil
}

func corpus() *mockCorpus {
	return &mockCorpus{docs: []entities.Document{{
		ID:         "user_guide.pdf",
		TotalPages: 3,
		Chunks: []entities.Chunk{
			{Text: "To reset your password open Settings and choose Security.", Source: "user_guide.pdf", Page: 2, SequenceID: 1},
			{Text: "Projects can be archived from the project menu.", Source: "user_guide.pdf", Page: 3, SequenceID: 2},
		},
	}}}
}

func newUseCase(c *mockCorpus, gen *mockGenerator, log *mockLog, cfg QueryConfig) *QueryUseCase {
	return NewQueryUseCase(
		c,
		retriever.New(),
		classifier.New(classifier.DefaultRules(), nil),
		evaluator.New(evaluator.DefaultConfig(), nil),
		gen,
		log,
		cfg,
		nil,
	)
}

func TestQueryUseCase_ReturnsAnswer(t *testing.T) {
	gen := &mockGenerator{response: "Open Settings and choose Security to reset your password."}
	log := &mockLog{}
	uc := newUseCase(corpus(), gen, log, DefaultQueryConfig())

	ans, err := uc.Ask(context.Background(), "  how do I reset my password  ")
	if err != nil {
		t.Fatalf("ask failed: %v", err)
	}
	if ans.Answer != gen.response {
		t.Errorf("unexpected answer: %s", ans.Answer)
	}
	if ans.Classification != entities.ClassificationSimple || ans.Tier != "llama-3.1-8b-instant" {
		t.Errorf("unexpected routing: %s %s", ans.Classification, ans.Tier)
	}
	if len(ans.Sources) == 0 || ans.Sources[0].SequenceID != 1 {
		t.Errorf("expected password chunk first, got %+v", ans.Sources)
	}
	if !ans.Evaluation.Reliable {
		t.Errorf("expected reliable answer, flags %+v", ans.Evaluation.Flags)
	}
	if ans.RequestID == "" || ans.InputTokens != 100 || ans.OutputTokens != 20 {
		t.Errorf("unexpected answer metadata: %+v", ans)
	}
	if len(log.lines) != 1 {
		t.Fatalf("expected one log line, got %d", len(log.lines))
	}
}

func TestQueryUseCase_ComplexQueryUsesLargeTier(t *testing.T) {
	gen := &mockGenerator{}
	uc := newUseCase(corpus(), gen, &mockLog{}, DefaultQueryConfig())

	ans, err := uc.Ask(context.Background(), "Error: module not found. How can I troubleshoot this issue?")
	if err != nil {
		t.Fatalf("ask failed: %v", err)
	}
	if ans.Classification != entities.ClassificationComplex || gen.requests[0].Tier != "llama-3.3-70b-versatile" {
		t.Errorf("expected complex tier, got %s %s", ans.Classification, gen.requests[0].Tier)
	}
}

func TestQueryUseCase_PromptFormat(t *testing.T) {
	gen := &mockGenerator{}
	uc := newUseCase(corpus(), gen, &mockLog{}, DefaultQueryConfig())

	if _, err := uc.Ask(context.Background(), "reset password"); err != nil {
		t.Fatalf("ask failed: %v", err)
	}
	req := gen.requests[0]
	if !strings.HasPrefix(req.UserPrompt, "Question: reset password\n\nDocumentation:\n[user_guide.pdf p2]\n") {
		t.Errorf("unexpected prompt: %q", req.UserPrompt)
	}
	if req.MaxTokens != 500 || req.Temperature != 0.3 || req.SystemPrompt != DefaultSystemPrompt {
		t.Errorf("unexpected generation parameters: %+v", req)
	}
}

func TestBuildUserPrompt_NoChunks(t *testing.T) {
	got := BuildUserPrompt("hello", nil)
	want := "Question: hello\n\nDocumentation:\nNo relevant documentation found."
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestQueryUseCase_EmptyStore(t *testing.T) {
	gen := &mockGenerator{response: "I don't know based on the documentation."}
	log := &mockLog{}
	uc := newUseCase(&mockCorpus{}, gen, log, DefaultQueryConfig())

	ans, err := uc.Ask(context.Background(), "what is the meaning of life")
	if err != nil {
		t.Fatalf("should not fail on empty store: %v", err)
	}
	if len(ans.Sources) != 0 {
		t.Error("should have no sources")
	}
	if ans.Evaluation.Reliable || !ans.Evaluation.Flags.NoContext {
		t.Errorf("expected unreliable no-context answer, got %+v", ans.Evaluation)
	}
	if ans.Answer == "" {
		t.Error("answer should still be defined")
	}
	if len(log.lines) != 1 {
		t.Error("unreliable answers are still logged")
	}
}

func TestQueryUseCase_EmptyQuery(t *testing.T) {
	gen := &mockGenerator{}
	uc := newUseCase(corpus(), gen, &mockLog{}, DefaultQueryConfig())

	_, err := uc.Ask(context.Background(), "   ")
	if !entities.IsValidation(err) {
		t.Errorf("expected validation error, got %v", err)
	}
	if len(gen.requests) != 0 {
		t.Error("generator must not be called")
	}
}

func TestQueryUseCase_GenerationErrors(t *testing.T) {
	cases := []struct {
		name string
		gen  *mockGenerator
		want entities.GenerationErrorKind
	}{
		{"transport", &mockGenerator{err: errors.New("connection refused")}, entities.GenerationTransport},
		{"quota", &mockGenerator{err: fmt.Errorf("groq: %w", entities.ErrQuotaExceeded)}, entities.GenerationQuota},
		{"empty", &mockGenerator{response: " "}, entities.GenerationEmpty},
		{"timeout", &mockGenerator{block: true}, entities.GenerationTimeout},
		{"panic", &mockGenerator{panicMsg: "nil map"}, entities.GenerationTransport},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			log := &mockLog{}
			cfg := DefaultQueryConfig()
			cfg.Timeout = 20 * time.Millisecond
			uc := newUseCase(corpus(), c.gen, log, cfg)

			_, err := uc.Ask(context.Background(), "reset password")
			var genErr *entities.GenerationError
			if !errors.As(err, &genErr) {
				t.Fatalf("expected GenerationError, got %v", err)
			}
			if genErr.Kind != c.want || genErr.Tier == "" {
				t.Errorf("unexpected error %+v", genErr)
			}
			if len(log.lines) != 0 {
				t.Error("failed requests are not logged")
			}
		})
	}
}

func TestQueryUseCase_LogFailureDoesNotAbort(t *testing.T) {
	uc := newUseCase(corpus(), &mockGenerator{}, &mockLog{err: errors.New("disk full")}, DefaultQueryConfig())

	ans, err := uc.Ask(context.Background(), "reset password")
	if err != nil || ans == nil {
		t.Fatalf("log failure must not abort the request: %v", err)
	}
}

func TestQueryUseCase_LogEntry(t *testing.T) {
	log := &mockLog{}
	uc := newUseCase(corpus(), &mockGenerator{}, log, QueryConfig{LogQueryRunes: 10})
	uc.now = func() time.Time { return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC) }

	ctx := WithRequestID(context.Background(), "req-123")
	ans, err := uc.Ask(ctx, "héllo wörld how to reset the password")
	if err != nil {
		t.Fatalf("ask failed: %v", err)
	}
	if ans.RequestID != "req-123" {
		t.Errorf("request id not propagated: %s", ans.RequestID)
	}

	var entry entities.LogEntry
	if err := json.Unmarshal([]byte(log.lines[0]), &entry); err != nil {
		t.Fatalf("log line is not valid JSON: %v", err)
	}
	if entry.Query != "héllo wörl" {
		t.Errorf("query should be truncated to 10 runes, got %q", entry.Query)
	}
	if entry.QueryLength != 7 || entry.RequestID != "req-123" || entry.ModelUsed != ans.Tier {
		t.Errorf("unexpected entry: %+v", entry)
	}
	if entry.LatencyMs != 15 || entry.TokensInput != 100 || entry.Reliable != ans.Evaluation.Reliable {
		t.Errorf("unexpected entry: %+v", entry)
	}
}

func TestQueryUseCase_ConcurrentQueriesLogEveryEntry(t *testing.T) {
	log := &mockLog{}
	uc := newUseCase(corpus(), &mockGenerator{}, log, DefaultQueryConfig())

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := uc.Ask(context.Background(), fmt.Sprintf("reset password %d", i)); err != nil {
				t.Errorf("ask failed: %v", err)
			}
		}(i)
	}
	wg.Wait()

	if len(log.lines) != n {
		t.Fatalf("expected %d log lines, got %d", n, len(log.lines))
	}
	for _, line := range log.lines {
		var e entities.LogEntry
		if err := json.Unmarshal([]byte(line), &e); err != nil {
			t.Errorf("unparseable line %q: %v", line, err)
		}
	}
}

func TestQueryUseCase_Search(t *testing.T) {
	gen := &mockGenerator{}
	uc := newUseCase(corpus(), gen, &mockLog{}, DefaultQueryConfig())

	results, err := uc.Search(context.Background(), "archived projects menu", 1)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(results) != 1 || results[0].SequenceID != 2 {
		t.Errorf("unexpected results: %+v", results)
	}
	if len(gen.requests) != 0 {
		t.Error("search must not generate")
	}

	if _, err := uc.Search(context.Background(), "", 5); !entities.IsValidation(err) {
		t.Errorf("expected validation error, got %v", err)
	}
}
