// Package http exposes the query pipeline over HTTP.
package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/0xcro3dile/docqa-go/internal/adapters/chunkstore"
	"github.com/0xcro3dile/docqa-go/internal/domain/ports"
	"github.com/0xcro3dile/docqa-go/internal/domain/usecases"
)

// CorpusStore is the part of the chunk store the server manages.
type CorpusStore interface {
	Reload(ctx context.Context) (chunkstore.Stats, error)
	Stats() chunkstore.Stats
}

// Options configures the server.
type Options struct {
	Addr            string
	RateLimitRPS    float64 // ≤ 0 disables rate limiting
	RateLimitBurst  int
	CORSOrigin      string
	ShutdownTimeout time.Duration
}

// Server is the HTTP server for the question answering API.
type Server struct {
	queryUseCase *usecases.QueryUseCase
	store        CorpusStore
	summarizer   ports.LogSummarizer
	opts         Options
	logger       *slog.Logger
	engine       *gin.Engine
}

// NewServer creates a new HTTP server. summarizer may be nil, in which
// case /api/stats reports the log as unavailable.
func NewServer(
	queryUC *usecases.QueryUseCase,
	store CorpusStore,
	summarizer ports.LogSummarizer,
	opts Options,
	logger *slog.Logger,
) *Server {
	if opts.Addr == "" {
		opts.Addr = ":5000"
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 5 * time.Second
	}
	if opts.CORSOrigin == "" {
		opts.CORSOrigin = "*"
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		queryUseCase: queryUC,
		store:        store,
		summarizer:   summarizer,
		opts:         opts,
		logger:       logger,
	}
	s.engine = s.routes()
	return s
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(
		gin.Recovery(),
		requestIDMiddleware(),
		loggingMiddleware(s.logger),
		corsMiddleware(s.opts.CORSOrigin),
		rateLimitMiddleware(s.opts.RateLimitRPS, s.opts.RateLimitBurst),
	)

	r.GET("/health", s.handleHealth)
	r.POST("/chat", s.handleChat)

	api := r.Group("/api")
	{
		api.POST("/search", s.handleSearch)
		api.GET("/stats", s.handleStats)
		api.POST("/reload", s.handleReload)
	}
	return r
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start listens on the configured address and serves until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.opts.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled, then waits up to
// ShutdownTimeout for in-flight requests before returning.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	server := &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		// Generation is bounded separately; leave room for it.
		WriteTimeout: 120 * time.Second,
	}

	s.logger.Info("docqa server starting", "addr", ln.Addr().String())

	stopped := make(chan struct{})
	shutdownDone := make(chan error, 1)
	go func() {
		select {
		case <-ctx.Done():
		case <-stopped:
			shutdownDone <- nil
			return
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
		defer cancel()
		shutdownDone <- server.Shutdown(shutdownCtx)
	}()

	if err := server.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
		close(stopped)
		<-shutdownDone
		return err
	}

	// Serve returns as soon as Shutdown starts; wait for it to drain.
	if err := <-shutdownDone; err != nil {
		s.logger.Warn("server shutdown", "error", err)
		return fmt.Errorf("shutting down: %w", err)
	}
	s.logger.Info("docqa server stopped")
	return nil
}
