// Command docqa serves document-grounded answers over HTTP.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/0xcro3dile/docqa-go/internal/adapters/chunkstore"
	"github.com/0xcro3dile/docqa-go/internal/adapters/filewatcher"
	"github.com/0xcro3dile/docqa-go/internal/adapters/llm"
	"github.com/0xcro3dile/docqa-go/internal/adapters/loader"
	"github.com/0xcro3dile/docqa-go/internal/adapters/querylog"
	"github.com/0xcro3dile/docqa-go/internal/config"
	"github.com/0xcro3dile/docqa-go/internal/domain/classifier"
	"github.com/0xcro3dile/docqa-go/internal/domain/evaluator"
	"github.com/0xcro3dile/docqa-go/internal/domain/ports"
	"github.com/0xcro3dile/docqa-go/internal/domain/retriever"
	"github.com/0xcro3dile/docqa-go/internal/domain/usecases"
	httpserver "github.com/0xcro3dile/docqa-go/internal/infrastructure/http"
	"github.com/0xcro3dile/docqa-go/internal/logging"

	"github.com/gin-gonic/gin"
)

func main() {
	cfgPath := flag.String("config", "", "path to YAML config (default $DOCQA_CONFIG or config.yaml)")
	flag.Parse()
	if *cfgPath != "" {
		os.Setenv("DOCQA_CONFIG", *cfgPath)
	}

	cfg, path, err := config.LoadFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading config %s: %v\n", path, err)
		os.Exit(1)
	}
	logger := logging.Setup(os.Stderr, cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("docqa stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	source, err := corpusSource(ctx, cfg)
	if err != nil {
		return err
	}
	store := chunkstore.NewInMemoryStore(source, logger)
	if _, err := store.Reload(ctx); err != nil {
		// An unreadable corpus is not fatal; the service answers with no context.
		logger.Warn("starting with an empty corpus", "error", err)
	}

	sinks, summarizer, closeLogs, err := querySinks(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeLogs()

	gen, err := llm.New(ctx, llm.Options{
		Provider: cfg.Generation.Provider,
		APIKey:   cfg.Generation.APIKey,
		BaseURL:  cfg.Generation.BaseURL,
	})
	if err != nil {
		return fmt.Errorf("creating generator: %w", err)
	}
	logger.Info("generator ready", "provider", gen.Name())

	queryUC := usecases.NewQueryUseCase(
		store,
		retriever.New(),
		classifier.New(cfg.Classifier.Rules(), cfg.Classifier.Tiers()),
		evaluator.New(cfg.Evaluator.Heuristics(), logger),
		gen,
		sinks,
		cfg.Query(),
		logger,
	)

	if cfg.Corpus.Watch && cfg.Corpus.Source == "local" {
		if err := watchCorpus(ctx, cfg, store, logger); err != nil {
			logger.Warn("corpus watcher disabled", "dir", cfg.Corpus.Dir, "error", err)
		}
	}

	gin.SetMode(gin.ReleaseMode)
	server := httpserver.NewServer(queryUC, store, summarizer, httpserver.Options{
		Addr:            ":" + cfg.Server.Port,
		RateLimitRPS:    cfg.Server.RateLimitRPS,
		RateLimitBurst:  cfg.Server.RateLimitBurst,
		CORSOrigin:      cfg.Server.CORSOrigin,
		ShutdownTimeout: time.Duration(cfg.Server.ShutdownTimeoutSecs) * time.Second,
	}, logger)
	return server.Start(ctx)
}

func corpusSource(ctx context.Context, cfg *config.Config) (ports.CorpusSource, error) {
	if cfg.Corpus.Source == "s3" {
		src, err := loader.NewS3Source(ctx, cfg.Corpus.S3Source())
		if err != nil {
			return nil, fmt.Errorf("creating s3 corpus source: %w", err)
		}
		return src, nil
	}
	return loader.NewDirSource(cfg.Corpus.Dir), nil
}

// querySinks opens the JSONL log and, when configured, its SQLite mirror.
// Summaries come from SQLite when it is available.
func querySinks(ctx context.Context, cfg *config.Config, logger *slog.Logger) (ports.QueryLogger, ports.LogSummarizer, func(), error) {
	jsonl, err := querylog.NewJSONLSink(cfg.QueryLog.Path)
	if err != nil {
		return nil, nil, nil, err
	}
	if cfg.QueryLog.SQLitePath == "" {
		return jsonl, jsonl, func() { jsonl.Close() }, nil
	}

	mirror, err := querylog.NewSQLiteSink(cfg.QueryLog.SQLitePath)
	if err != nil {
		jsonl.Close()
		return nil, nil, nil, err
	}
	if n, err := mirror.Count(ctx); err != nil {
		logger.Warn("query log mirror unreadable", "path", cfg.QueryLog.SQLitePath, "error", err)
	} else {
		logger.Info("query log mirror opened", "path", cfg.QueryLog.SQLitePath, "entries", n)
	}
	multi := querylog.NewMulti(mirror, jsonl, mirror)
	return multi, multi, func() {
		jsonl.Close()
		mirror.Close()
	}, nil
}

func watchCorpus(ctx context.Context, cfg *config.Config, store *chunkstore.InMemoryStore, logger *slog.Logger) error {
	watcher, err := filewatcher.NewFSNotifyWatcher(loader.IsExtracted, logger)
	if err != nil {
		return err
	}
	events, err := watcher.Watch(ctx, cfg.Corpus.Dir)
	if err != nil {
		watcher.Stop()
		return err
	}

	go func() {
		defer watcher.Stop()
		filewatcher.Debounce(ctx, events, time.Duration(cfg.Corpus.DebounceMs)*time.Millisecond, func(ctx context.Context) {
			if _, err := store.Reload(ctx); err != nil {
				logger.WarnContext(ctx, "corpus reload after change failed", "error", err)
			}
		})
	}()
	logger.Info("watching corpus for changes", "dir", cfg.Corpus.Dir)
	return nil
}
