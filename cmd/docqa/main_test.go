package main

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xcro3dile/docqa-go/internal/config"
	"github.com/0xcro3dile/docqa-go/internal/domain/entities"
)

func TestQuerySinks_JSONLOnly(t *testing.T) {
	cfg := config.Default()
	cfg.QueryLog.Path = filepath.Join(t.TempDir(), "logs.jsonl")
	cfg.QueryLog.SQLitePath = ""

	sink, summarizer, closeLogs, err := querySinks(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	defer closeLogs()

	require.NoError(t, sink.Append(context.Background(), entities.LogEntry{
		Timestamp:      time.Now(),
		Query:          "what is docqa",
		Classification: entities.ClassificationSimple,
		LatencyMs:      10,
		Reliable:       true,
	}))
	summary, err := summarizer.Summary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.TotalQueries)
}

func TestQuerySinks_WithSQLiteMirror(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.QueryLog.Path = filepath.Join(dir, "logs.jsonl")
	cfg.QueryLog.SQLitePath = filepath.Join(dir, "querylog.db")

	sink, summarizer, closeLogs, err := querySinks(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	defer closeLogs()

	for i := 0; i < 3; i++ {
		require.NoError(t, sink.Append(context.Background(), entities.LogEntry{
			Timestamp:      time.Now(),
			Query:          "why does sync fail",
			Classification: entities.ClassificationComplex,
			LatencyMs:      20,
		}))
	}
	summary, err := summarizer.Summary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, summary.TotalQueries)
	assert.Equal(t, 3, summary.ComplexQueries)
	assert.FileExists(t, cfg.QueryLog.Path)
}

func TestCorpusSource_Local(t *testing.T) {
	cfg := config.Default()
	cfg.Corpus.Source = "local"
	cfg.Corpus.Dir = t.TempDir()

	src, err := corpusSource(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, cfg.Corpus.Dir, src.Location())
}
