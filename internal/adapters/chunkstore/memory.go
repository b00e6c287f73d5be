// Package chunkstore holds the document corpus in memory.
// The corpus is an immutable snapshot; reloading builds a new snapshot and
// swaps it in atomically, so readers never see a half-loaded collection.
package chunkstore

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/0xcro3dile/docqa-go/internal/domain/entities"
	"github.com/0xcro3dile/docqa-go/internal/domain/ports"
)

// Stats describes the current snapshot.
type Stats struct {
	Documents int `json:"documents_loaded"`
	Chunks    int `json:"chunks_loaded"`
}

type snapshot struct {
	docs  []entities.Document
	stats Stats
}

func newSnapshot(docs []entities.Document) *snapshot {
	snap := &snapshot{docs: docs, stats: Stats{Documents: len(docs)}}
	for _, d := range docs {
		snap.stats.Chunks += len(d.Chunks)
	}
	return snap
}

// InMemoryStore serves the corpus read by the retriever.
type InMemoryStore struct {
	source  ports.CorpusSource
	logger  *slog.Logger
	current atomic.Pointer[snapshot]
	// reloadMu serializes reloads; readers never take it.
	reloadMu sync.Mutex
}

// NewInMemoryStore creates an empty store backed by source.
func NewInMemoryStore(source ports.CorpusSource, logger *slog.Logger) *InMemoryStore {
	if logger == nil {
		logger = slog.Default()
	}
	s := &InMemoryStore{source: source, logger: logger}
	s.current.Store(&snapshot{})
	return s
}

// Reload replaces the whole corpus with a fresh read of the source.
// Unreadable entries are logged and skipped; if the source cannot be read
// at all, the previous snapshot is kept and the error returned.
func (s *InMemoryStore) Reload(ctx context.Context) (Stats, error) {
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	docs, warnings, err := s.source.Load(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "corpus reload failed, keeping previous corpus",
			"source", s.source.Location(), "error", err)
		return s.Stats(), err
	}
	for _, w := range warnings {
		s.logger.WarnContext(ctx, "corpus entry skipped", "error", w)
	}

	stats := s.Replace(docs)
	s.logger.InfoContext(ctx, "corpus loaded",
		"source", s.source.Location(),
		"documents", stats.Documents,
		"chunks", stats.Chunks,
	)
	return stats, nil
}

// Replace installs docs as the corpus in one atomic swap.
func (s *InMemoryStore) Replace(docs []entities.Document) Stats {
	next := newSnapshot(docs)
	s.current.Store(next)
	return next.stats
}

// Snapshot returns the current corpus. Callers must not modify it.
func (s *InMemoryStore) Snapshot() []entities.Document {
	return s.current.Load().docs
}

// Stats returns counts for the current corpus.
func (s *InMemoryStore) Stats() Stats {
	return s.current.Load().stats
}
