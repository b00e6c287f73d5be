// Package ports defines interfaces for external dependencies.
// Usecases depend on these abstractions, not concrete implementations.
// Adapters implement these interfaces.
package ports

import (
	"context"

	"github.com/0xcro3dile/docqa-go/internal/domain/entities"
)

// Generator produces an answer from a language model.
// Implementations must not retry; the caller bounds the call with ctx.
type Generator interface {
	Generate(ctx context.Context, req entities.GenerationRequest) (entities.Generation, error)

	// Name identifies the backend for logging (e.g. "groq").
	Name() string
}

// CorpusSource reads the ingestion output into documents.
// Unreadable entries are reported through the returned warnings, not the
// error; the error is reserved for a source that cannot be listed at all.
type CorpusSource interface {
	Load(ctx context.Context) ([]entities.Document, []error, error)

	// Location describes where documents are read from, for logging.
	Location() string
}

// CorpusReader exposes the current immutable corpus snapshot.
type CorpusReader interface {
	Snapshot() []entities.Document
}

// QueryLogger appends completed queries to the query log.
type QueryLogger interface {
	Append(ctx context.Context, entry entities.LogEntry) error
}

// LogSummarizer aggregates the query log.
type LogSummarizer interface {
	Summary(ctx context.Context) (entities.LogSummary, error)
}

// DocumentParser extracts per-page text from binary document formats.
type DocumentParser interface {
	// Parse returns the text of each page; index 0 is page 1.
	Parse(ctx context.Context, data []byte, filename string) ([]string, error)

	// SupportedFormats returns formats this parser handles (e.g., "pdf").
	SupportedFormats() []string
}

// DocumentWriter persists an ingested document for the corpus.
type DocumentWriter interface {
	// Write stores doc and returns where it was written.
	Write(ctx context.Context, doc entities.Document) (string, error)
}

// FileWatcher monitors a directory for changes.
type FileWatcher interface {
	// Watch starts monitoring the directory and emits events.
	Watch(ctx context.Context, dir string) (<-chan FileEvent, error)

	// Stop stops the watcher.
	Stop() error
}

// FileEvent represents a file system change.
type FileEvent struct {
	Path      string
	Operation FileOperation
}

// FileOperation is the type of file change.
type FileOperation int

const (
	FileCreated FileOperation = iota
	FileModified
	FileDeleted
)

func (op FileOperation) String() string {
	switch op {
	case FileCreated:
		return "created"
	case FileModified:
		return "modified"
	case FileDeleted:
		return "deleted"
	default:
		return "unknown"
	}
}
