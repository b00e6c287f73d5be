// Package loader reads and writes the ingestion output consumed by the
// chunk store: one `<stem>_extracted.json` file per source document.
package loader

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/0xcro3dile/docqa-go/internal/domain/entities"
)

// ExtractedSuffix marks ingestion output files.
const ExtractedSuffix = "_extracted.json"

// DefaultDir is where ingestion output lives when no directory is configured.
const DefaultDir = "./extracted_data"

// ExtractedDocument is the on-disk ingestion format.
type ExtractedDocument struct {
	File       string           `json:"file"`
	TotalPages int              `json:"total_pages"`
	Chunks     []ExtractedChunk `json:"chunks"`
}

// ExtractedChunk is one chunk in the ingestion format.
type ExtractedChunk struct {
	ID        int    `json:"id"`
	Text      string `json:"text"`
	Page      int    `json:"page"`
	WordCount int    `json:"word_count"`
}

// IsExtracted reports whether path names an ingestion output file.
func IsExtracted(path string) bool {
	return strings.HasSuffix(filepath.Base(path), ExtractedSuffix)
}

// ExtractedName returns the output file name for a source document.
func ExtractedName(source string) string {
	base := filepath.Base(source)
	return strings.TrimSuffix(base, filepath.Ext(base)) + ExtractedSuffix
}

// Decode parses one ingestion file. name is used when the file omits its
// own identifier. Chunks without a page are placed on page 1.
func Decode(r io.Reader, name string) (entities.Document, error) {
	var raw ExtractedDocument
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return entities.Document{}, fmt.Errorf("decoding %s: %w", name, err)
	}
	return raw.toDocument(name)
}

func (d ExtractedDocument) toDocument(name string) (entities.Document, error) {
	source := d.File
	if source == "" {
		source = strings.TrimSuffix(filepath.Base(name), ExtractedSuffix)
	}

	doc := entities.Document{
		ID:         source,
		TotalPages: d.TotalPages,
		Chunks:     make([]entities.Chunk, 0, len(d.Chunks)),
	}
	for _, c := range d.Chunks {
		page := c.Page
		if page == 0 {
			page = 1
		}
		chunk, err := entities.NewChunk(c.Text, source, page, c.ID)
		if err != nil {
			return entities.Document{}, err
		}
		doc.Chunks = append(doc.Chunks, chunk)
	}
	return doc, nil
}

// DirSource loads every ingestion file in a local directory.
type DirSource struct {
	dir string
}

// NewDirSource creates a source reading from dir.
func NewDirSource(dir string) *DirSource {
	if dir == "" {
		dir = DefaultDir
	}
	return &DirSource{dir: dir}
}

// Location returns the directory being read.
func (s *DirSource) Location() string {
	return s.dir
}

// Load reads the directory in file name order. A missing directory yields
// no documents and a warning; a bad file is skipped with a warning.
func (s *DirSource) Load(ctx context.Context) ([]entities.Document, []error, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, []error{&entities.CorpusLoadError{Path: s.dir, Err: err}}, nil
		}
		return nil, nil, &entities.CorpusLoadError{Path: s.dir, Err: err}
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && IsExtracted(e.Name()) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	var (
		docs     []entities.Document
		warnings []error
	)
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		path := filepath.Join(s.dir, name)
		doc, err := loadFile(path)
		if err != nil {
			warnings = append(warnings, &entities.CorpusLoadError{Path: path, Err: err})
			continue
		}
		docs = append(docs, doc)
	}
	if len(names) == 0 {
		warnings = append(warnings, &entities.CorpusLoadError{
			Path: s.dir,
			Err:  fmt.Errorf("no *%s files", ExtractedSuffix),
		})
	}
	return docs, warnings, nil
}

func loadFile(path string) (entities.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return entities.Document{}, err
	}
	defer f.Close()
	return Decode(f, filepath.Base(path))
}

// WriteExtracted writes doc into dir as `<stem>_extracted.json` and returns
// the written path.
func WriteExtracted(dir string, doc ExtractedDocument) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating output directory: %w", err)
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding %s: %w", doc.File, err)
	}
	path := filepath.Join(dir, ExtractedName(doc.File))
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return "", fmt.Errorf("renaming %s: %w", path, err)
	}
	return path, nil
}

// FromDocument converts a domain document to the ingestion format.
func FromDocument(doc entities.Document) ExtractedDocument {
	out := ExtractedDocument{
		File:       doc.ID,
		TotalPages: doc.TotalPages,
		Chunks:     make([]ExtractedChunk, len(doc.Chunks)),
	}
	for i, c := range doc.Chunks {
		out.Chunks[i] = ExtractedChunk{
			ID:        c.SequenceID,
			Text:      c.Text,
			Page:      c.Page,
			WordCount: len(strings.Fields(c.Text)),
		}
	}
	return out
}

// DirWriter writes ingestion output into a directory.
type DirWriter struct {
	dir string
}

// NewDirWriter creates a writer for dir.
func NewDirWriter(dir string) *DirWriter {
	if dir == "" {
		dir = DefaultDir
	}
	return &DirWriter{dir: dir}
}

// Write stores doc as `<stem>_extracted.json`.
func (w *DirWriter) Write(ctx context.Context, doc entities.Document) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return WriteExtracted(w.dir, FromDocument(doc))
}
