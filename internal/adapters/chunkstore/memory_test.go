package chunkstore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xcro3dile/docqa-go/internal/domain/entities"
)

// stubSource returns a fixed result per call.
type stubSource struct {
	mu       sync.Mutex
	docs     []entities.Document
	warnings []error
	err      error
	calls    int
}

func (s *stubSource) Load(ctx context.Context) ([]entities.Document, []error, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.docs, s.warnings, s.err
}

func (s *stubSource) Location() string { return "stub" }

func makeDocs(n, chunksEach int) []entities.Document {
	docs := make([]entities.Document, n)
	for i := range docs {
		docs[i].ID = fmt.Sprintf("doc%d.pdf", i)
		for j := 0; j < chunksEach; j++ {
			docs[i].Chunks = append(docs[i].Chunks, entities.Chunk{
				Text: "text", Source: docs[i].ID, Page: 1, SequenceID: j + 1,
			})
		}
	}
	return docs
}

func TestInMemoryStore_StartsEmpty(t *testing.T) {
	store := NewInMemoryStore(&stubSource{}, nil)
	assert.Empty(t, store.Snapshot())
	assert.Equal(t, Stats{}, store.Stats())
}

func TestInMemoryStore_Reload(t *testing.T) {
	src := &stubSource{docs: makeDocs(2, 3)}
	store := NewInMemoryStore(src, nil)

	stats, err := store.Reload(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Stats{Documents: 2, Chunks: 6}, stats)
	assert.Len(t, store.Snapshot(), 2)
}

func TestInMemoryStore_ReloadIsFullReplace(t *testing.T) {
	src := &stubSource{docs: makeDocs(3, 1)}
	store := NewInMemoryStore(src, nil)
	_, err := store.Reload(context.Background())
	require.NoError(t, err)

	src.docs = makeDocs(1, 1)
	_, err = store.Reload(context.Background())
	require.NoError(t, err)

	assert.Len(t, store.Snapshot(), 1, "reload replaces, never merges")
}

func TestInMemoryStore_WarningsAreNotFatal(t *testing.T) {
	src := &stubSource{warnings: []error{&entities.CorpusLoadError{Path: "x", Err: errors.New("missing")}}}
	store := NewInMemoryStore(src, nil)

	stats, err := store.Reload(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Documents)
}

func TestInMemoryStore_FailedReloadKeepsPrevious(t *testing.T) {
	src := &stubSource{docs: makeDocs(2, 2)}
	store := NewInMemoryStore(src, nil)
	_, err := store.Reload(context.Background())
	require.NoError(t, err)

	src.docs, src.err = nil, errors.New("permission denied")
	stats, err := store.Reload(context.Background())
	require.Error(t, err)
	assert.Equal(t, 2, stats.Documents)
	assert.Len(t, store.Snapshot(), 2)
}

func TestInMemoryStore_ConcurrentReadersDuringReload(t *testing.T) {
	src := &stubSource{docs: makeDocs(4, 5)}
	store := NewInMemoryStore(src, nil)
	_, err := store.Reload(context.Background())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				snap := store.Snapshot()
				total := 0
				for _, d := range snap {
					total += len(d.Chunks)
				}
				// Every snapshot is one of the two complete corpora.
				if total != 20 && total != 6 {
					t.Errorf("observed partial corpus with %d chunks", total)
					return
				}
			}
		}()
	}
	for i := 0; i < 50; i++ {
		if i%2 == 0 {
			store.Replace(makeDocs(2, 3))
		} else {
			store.Replace(makeDocs(4, 5))
		}
	}
	wg.Wait()
}

func TestInMemoryStore_ReplaceReturnsStats(t *testing.T) {
	store := NewInMemoryStore(&stubSource{}, nil)

	stats := store.Replace(makeDocs(3, 2))
	assert.Equal(t, Stats{Documents: 3, Chunks: 6}, stats)
	assert.Equal(t, stats, store.Stats())
	assert.Len(t, store.Snapshot(), 3)
}
