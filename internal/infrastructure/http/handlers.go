package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/0xcro3dile/docqa-go/internal/domain/entities"
)

type chatRequest struct {
	Query string `json:"query"`
}

type searchRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k"`
}

type sourceResponse struct {
	Source     string  `json:"source"`
	Page       int     `json:"page"`
	SequenceID int     `json:"chunk_id"`
	Score      float64 `json:"score"`
	Text       string  `json:"text,omitempty"`
}

type chatResponse struct {
	RequestID       string           `json:"request_id"`
	Response        string           `json:"response"`
	ModelUsed       string           `json:"model_used"`
	Classification  string           `json:"classification"`
	TokensInput     int              `json:"tokens_input"`
	TokensOutput    int              `json:"tokens_output"`
	LatencyMs       int64            `json:"latency_ms"`
	IsReliable      bool             `json:"is_reliable"`
	Confidence      float64          `json:"confidence"`
	EvaluationFlags entities.Flags   `json:"evaluation_flags"`
	Sources         []sourceResponse `json:"sources"`
}

func toSources(chunks []entities.ScoredChunk, withText bool) []sourceResponse {
	out := make([]sourceResponse, len(chunks))
	for i, c := range chunks {
		out[i] = sourceResponse{Source: c.Source, Page: c.Page, SequenceID: c.SequenceID, Score: c.Score}
		if withText {
			out[i].Text = c.Text
		}
	}
	return out
}

// handleHealth reports liveness and corpus size.
func (s *Server) handleHealth(c *gin.Context) {
	stats := s.store.Stats()
	c.JSON(http.StatusOK, gin.H{
		"status":           "healthy",
		"documents_loaded": stats.Documents,
		"chunks_loaded":    stats.Chunks,
	})
}

// handleChat runs the full pipeline.
func (s *Server) handleChat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "request body must be JSON with a query field")
		return
	}

	ans, err := s.queryUseCase.Ask(c.Request.Context(), req.Query)
	if err != nil {
		s.writeDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, chatResponse{
		RequestID:       ans.RequestID,
		Response:        ans.Answer,
		ModelUsed:       ans.Tier,
		Classification:  ans.Classification.String(),
		TokensInput:     ans.InputTokens,
		TokensOutput:    ans.OutputTokens,
		LatencyMs:       ans.LatencyMs,
		IsReliable:      ans.Evaluation.Reliable,
		Confidence:      ans.Evaluation.Confidence,
		EvaluationFlags: ans.Evaluation.Flags,
		Sources:         toSources(ans.Sources, false),
	})
}

// handleSearch retrieves without generating.
func (s *Server) handleSearch(c *gin.Context) {
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "request body must be JSON with a query field")
		return
	}

	results, err := s.queryUseCase.Search(c.Request.Context(), req.Query, req.TopK)
	if err != nil {
		s.writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": toSources(results, true)})
}

// handleStats summarizes the query log.
func (s *Server) handleStats(c *gin.Context) {
	if s.summarizer == nil {
		writeError(c, http.StatusServiceUnavailable, "STATS_UNAVAILABLE", "query log is not configured")
		return
	}
	summary, err := s.summarizer.Summary(c.Request.Context())
	if err != nil {
		s.logger.ErrorContext(c.Request.Context(), "summarizing query log", "error", err)
		writeError(c, http.StatusInternalServerError, "INTERNAL", "could not read query log")
		return
	}
	c.JSON(http.StatusOK, summary)
}

// handleReload replaces the corpus with a fresh read of its source.
func (s *Server) handleReload(c *gin.Context) {
	stats, err := s.store.Reload(c.Request.Context())
	if err != nil {
		writeError(c, http.StatusInternalServerError, "RELOAD_FAILED", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":          true,
		"documents_loaded": stats.Documents,
		"chunks_loaded":    stats.Chunks,
	})
}

// writeDomainError maps pipeline errors onto HTTP statuses.
func (s *Server) writeDomainError(c *gin.Context, err error) {
	var genErr *entities.GenerationError
	switch {
	case entities.IsValidation(err):
		writeError(c, http.StatusBadRequest, "EMPTY_QUERY", err.Error())
	case errors.As(err, &genErr):
		switch genErr.Kind {
		case entities.GenerationTimeout:
			writeError(c, http.StatusGatewayTimeout, "GENERATION_TIMEOUT", "the language model did not answer in time")
		case entities.GenerationQuota:
			writeError(c, http.StatusTooManyRequests, "QUOTA_EXCEEDED", "the language model provider is rate limiting requests")
		default:
			writeError(c, http.StatusBadGateway, "GENERATION_FAILED", "the language model request failed")
		}
	default:
		s.logger.ErrorContext(c.Request.Context(), "unexpected pipeline error", "error", err)
		writeError(c, http.StatusInternalServerError, "INTERNAL", "internal error")
	}
}

func writeError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}
