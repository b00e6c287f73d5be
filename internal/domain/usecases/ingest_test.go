package usecases

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/0xcro3dile/docqa-go/internal/domain/entities"
)

// mockParser implements ports.DocumentParser for testing
type mockParser struct {
	pages []string
	err   error
}

func (m *mockParser) Parse(ctx context.Context, data []byte, filename string) ([]string, error) {
	return m.pages, m.err
}

func (m *mockParser) SupportedFormats() []string { return []string{"pdf"} }

// mockWriter implements ports.DocumentWriter for testing
type mockWriter struct {
	docs []entities.Document
}

func (m *mockWriter) Write(ctx context.Context, doc entities.Document) (string, error) {
	m.docs = append(m.docs, doc)
	return "out/" + doc.ID, nil
}

func words(n int, w string) string {
	return strings.TrimSpace(strings.Repeat(w+" ", n))
}

func TestIngestUseCase_ChunksDocument(t *testing.T) {
	parser := &mockParser{pages: []string{
		"Getting started\n\nCreate an account from the sign up page.",
		"",
		"Billing\n\nInvoices are sent monthly.",
	}}
	writer := &mockWriter{}
	uc := NewIngestUseCase(parser, writer, 400, nil)

	doc, path, err := uc.Ingest(context.Background(), "docs/guide.pdf", []byte("pdf"))
	if err != nil {
		t.Fatalf("ingest failed: %v", err)
	}
	if path != "out/guide.pdf" || len(writer.docs) != 1 {
		t.Errorf("expected document to be written, got %q", path)
	}
	if doc.ID != "guide.pdf" || doc.TotalPages != 3 {
		t.Errorf("unexpected document: %+v", doc)
	}
	if len(doc.Chunks) != 1 {
		t.Fatalf("small paragraphs should share one chunk, got %d", len(doc.Chunks))
	}
	if doc.Chunks[0].Page != 1 || doc.Chunks[0].SequenceID != 1 {
		t.Errorf("unexpected chunk: %+v", doc.Chunks[0])
	}
}

func TestIngestUseCase_EmptyDocument(t *testing.T) {
	writer := &mockWriter{}
	uc := NewIngestUseCase(&mockParser{pages: []string{"  ", "\n"}}, writer, 0, nil)

	doc, path, err := uc.Ingest(context.Background(), "blank.pdf", nil)
	if err != nil {
		t.Error("empty doc should not error")
	}
	if len(doc.Chunks) != 0 || path != "" || len(writer.docs) != 0 {
		t.Error("empty doc should produce no output")
	}
}

func TestIngestUseCase_ParseError(t *testing.T) {
	uc := NewIngestUseCase(&mockParser{err: errors.New("encrypted")}, &mockWriter{}, 0, nil)
	if _, _, err := uc.Ingest(context.Background(), "locked.pdf", nil); err == nil {
		t.Error("parse errors should be returned")
	}
}

func TestBuildDocument_PageEstimate(t *testing.T) {
	pages := []string{
		words(300, "alpha"),
		words(300, "beta"),
	}
	doc, err := BuildDocument("a.pdf", pages, 400)
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	// Pages join into one paragraph of 600 words: chunks of 400 and 200.
	if len(doc.Chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(doc.Chunks))
	}
	if doc.Chunks[0].Page != 1 {
		t.Errorf("first chunk should be on page 1, got %d", doc.Chunks[0].Page)
	}
	if doc.Chunks[1].Page != 2 {
		t.Errorf("second chunk starts with beta words, got page %d", doc.Chunks[1].Page)
	}
}

func TestSplitParagraphs(t *testing.T) {
	got := SplitParagraphs("First  line\nsame para.\n \n\nSecond\tpara.\n\n   ")
	if len(got) != 2 || got[0] != "First line same para." || got[1] != "Second para." {
		t.Errorf("unexpected paragraphs: %q", got)
	}
}

func TestChunkParagraphs_RespectsLimit(t *testing.T) {
	paras := []string{words(150, "a"), words(200, "b"), words(100, "c"), words(900, "d")}
	chunks := ChunkParagraphs(paras, 400)

	for i, c := range chunks {
		if n := len(strings.Fields(c)); n > 400 {
			t.Errorf("chunk %d has %d words", i, n)
		}
	}
	// a+b fit together; c starts a new chunk; d is split into 400+400+100.
	if len(chunks) != 5 {
		t.Fatalf("expected 5 chunks, got %d", len(chunks))
	}
	if !strings.HasPrefix(chunks[0], "a") || !strings.HasSuffix(chunks[0], "b") {
		t.Error("first chunk should group the first two paragraphs")
	}
	if chunks[1] != words(100, "c") {
		t.Error("oversized paragraph must not be merged into the preceding chunk")
	}
	if chunks[4] != words(100, "d") {
		t.Errorf("last chunk should be the remainder, got %d words", len(strings.Fields(chunks[4])))
	}
}
