package usecases

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/0xcro3dile/docqa-go/internal/domain/entities"
	"github.com/0xcro3dile/docqa-go/internal/domain/ports"
)

// DefaultMaxChunkWords bounds the size of one chunk.
const DefaultMaxChunkWords = 400

// pageLeadWords is how many leading words locate a chunk's page.
const pageLeadWords = 20

var paragraphBreak = regexp.MustCompile(`\n\s*\n`)

// IngestUseCase turns source documents into corpus documents.
type IngestUseCase struct {
	parser   ports.DocumentParser
	writer   ports.DocumentWriter
	maxWords int
	logger   *slog.Logger
}

// NewIngestUseCase creates an IngestUseCase with injected dependencies.
func NewIngestUseCase(parser ports.DocumentParser, writer ports.DocumentWriter, maxChunkWords int, logger *slog.Logger) *IngestUseCase {
	if maxChunkWords <= 0 {
		maxChunkWords = DefaultMaxChunkWords
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &IngestUseCase{
		parser:   parser,
		writer:   writer,
		maxWords: maxChunkWords,
		logger:   logger,
	}
}

// Ingest parses one file, chunks it and writes the result. It returns the
// document and where it was written. A file with no text is skipped and
// reported with an empty path.
func (uc *IngestUseCase) Ingest(ctx context.Context, filename string, data []byte) (entities.Document, string, error) {
	pages, err := uc.parser.Parse(ctx, data, filename)
	if err != nil {
		return entities.Document{}, "", fmt.Errorf("parsing %s: %w", filename, err)
	}

	doc, err := BuildDocument(filepath.Base(filename), pages, uc.maxWords)
	if err != nil {
		return entities.Document{}, "", err
	}
	if len(doc.Chunks) == 0 {
		uc.logger.WarnContext(ctx, "no text extracted", "file", filename)
		return doc, "", nil
	}

	path, err := uc.writer.Write(ctx, doc)
	if err != nil {
		return entities.Document{}, "", fmt.Errorf("writing %s: %w", filename, err)
	}

	uc.logger.InfoContext(ctx, "document ingested",
		"file", filename,
		"pages", doc.TotalPages,
		"chunks", len(doc.Chunks),
		"output", path,
	)
	return doc, path, nil
}

// BuildDocument chunks page texts into a Document. pages[0] is page 1.
// Blank pages are ignored; TotalPages is the last page that had text.
func BuildDocument(name string, pages []string, maxWords int) (entities.Document, error) {
	if maxWords <= 0 {
		maxWords = DefaultMaxChunkWords
	}

	doc := entities.Document{ID: name}
	var texts []string
	normalized := make(map[int]string)
	for i, p := range pages {
		if strings.TrimSpace(p) == "" {
			continue
		}
		texts = append(texts, p)
		normalized[i+1] = strings.Join(strings.Fields(p), " ")
		doc.TotalPages = i + 1
	}

	chunks := ChunkParagraphs(SplitParagraphs(strings.Join(texts, " ")), maxWords)
	for i, text := range chunks {
		c, err := entities.NewChunk(text, name, estimatePage(text, normalized, doc.TotalPages), i+1)
		if err != nil {
			return entities.Document{}, err
		}
		doc.Chunks = append(doc.Chunks, c)
	}
	return doc, nil
}

// SplitParagraphs splits on blank lines and collapses whitespace inside
// each paragraph. Empty paragraphs are dropped.
func SplitParagraphs(text string) []string {
	var out []string
	for _, p := range paragraphBreak.Split(text, -1) {
		if cleaned := strings.Join(strings.Fields(p), " "); cleaned != "" {
			out = append(out, cleaned)
		}
	}
	return out
}

// ChunkParagraphs groups whole paragraphs into chunks of at most maxWords
// words. A paragraph longer than maxWords is split on word boundaries.
func ChunkParagraphs(paragraphs []string, maxWords int) []string {
	var (
		chunks  []string
		current []string
		count   int
	)
	flush := func() {
		if len(current) > 0 {
			chunks = append(chunks, strings.Join(current, " "))
			current, count = nil, 0
		}
	}

	for _, p := range paragraphs {
		words := strings.Fields(p)
		for len(words) > maxWords {
			flush()
			chunks = append(chunks, strings.Join(words[:maxWords], " "))
			words = words[maxWords:]
		}
		if len(words) == 0 {
			continue
		}
		if count+len(words) > maxWords {
			flush()
		}
		current = append(current, strings.Join(words, " "))
		count += len(words)
	}
	flush()
	return chunks
}

// estimatePage finds the first page containing the chunk's opening words.
func estimatePage(chunk string, pages map[int]string, lastPage int) int {
	words := strings.Fields(chunk)
	if len(words) > pageLeadWords {
		words = words[:pageLeadWords]
	}
	lead := strings.Join(words, " ")
	for page := 1; page <= lastPage; page++ {
		if text, ok := pages[page]; ok && strings.Contains(text, lead) {
			return page
		}
	}
	return 1
}
