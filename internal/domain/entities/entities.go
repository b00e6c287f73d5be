// Package entities contains core business entities.
// These are pure domain objects with no external dependencies: the corpus
// records, the per-query pipeline results and the query log record.
package entities

import (
	"fmt"
	"math"
	"time"
)

// Chunk is a bounded excerpt of a source document, the unit of retrieval.
// Chunks are immutable once loaded; identity is (Source, SequenceID).
type Chunk struct {
	Text       string
	Source     string // document identifier (file name)
	Page       int    // 1-based
	SequenceID int    // position within Source
}

// NewChunk builds a Chunk, rejecting an empty source or a page below 1.
func NewChunk(text, source string, page, sequenceID int) (Chunk, error) {
	if source == "" {
		return Chunk{}, fmt.Errorf("chunk %d: empty source", sequenceID)
	}
	if page < 1 {
		return Chunk{}, fmt.Errorf("chunk %s#%d: page %d out of range", source, sequenceID, page)
	}
	return Chunk{Text: text, Source: source, Page: page, SequenceID: sequenceID}, nil
}

// Document is one ingested source with its ordered chunks.
type Document struct {
	ID         string
	TotalPages int
	Chunks     []Chunk
}

// ScoredChunk is a Chunk paired with its similarity to one query.
type ScoredChunk struct {
	Chunk
	Score float64
}

// NewScoredChunk pairs a chunk with a score in [0, 1].
func NewScoredChunk(c Chunk, score float64) (ScoredChunk, error) {
	if math.IsNaN(score) || score < 0 || score > 1 {
		return ScoredChunk{}, fmt.Errorf("chunk %s#%d: score %v out of range", c.Source, c.SequenceID, score)
	}
	return ScoredChunk{Chunk: c, Score: score}, nil
}

// Classification is the complexity class assigned to a query.
type Classification string

const (
	ClassificationSimple  Classification = "simple"
	ClassificationComplex Classification = "complex"
)

func (c Classification) String() string { return string(c) }

// Flags are the individual reliability checks raised by the evaluator.
type Flags struct {
	NoContext     bool `json:"no_context"`
	Refusal       bool `json:"refusal"`
	Hallucination bool `json:"hallucination"`
}

// Any reports whether at least one flag is raised.
func (f Flags) Any() bool {
	return f.NoContext || f.Refusal || f.Hallucination
}

// EvaluationResult is the verdict on one candidate answer.
// Confidence is a display heuristic in [0, 1], not a calibrated probability.
type EvaluationResult struct {
	Reliable   bool    `json:"reliable"`
	Flags      Flags   `json:"flags"`
	Confidence float64 `json:"confidence"`
}

// GenerationRequest is what the pipeline hands to a language model.
type GenerationRequest struct {
	SystemPrompt string
	UserPrompt   string
	Tier         string // model identifier chosen by the classifier
	MaxTokens    int
	Temperature  float64
}

// Generation is the raw output of a language model call.
type Generation struct {
	Text         string
	InputTokens  int
	OutputTokens int
	LatencyMs    int64
}

// Answer is the structured result of one query through the pipeline.
type Answer struct {
	RequestID      string
	Query          string
	Answer         string
	Classification Classification
	Tier           string
	InputTokens    int
	OutputTokens   int
	LatencyMs      int64
	Evaluation     EvaluationResult
	Sources        []ScoredChunk
}

// LogEntry is one line of the append-only query log.
type LogEntry struct {
	Timestamp      time.Time      `json:"timestamp"`
	RequestID      string         `json:"request_id,omitempty"`
	Query          string         `json:"query"`
	QueryLength    int            `json:"query_length"`
	Classification Classification `json:"classification"`
	ModelUsed      string         `json:"model_used"`
	TokensInput    int            `json:"tokens_input"`
	TokensOutput   int            `json:"tokens_output"`
	LatencyMs      int64          `json:"latency_ms"`
	Reliable       bool           `json:"reliable"`
	Confidence     float64        `json:"confidence"`
}

// LogSummary aggregates the query log.
type LogSummary struct {
	TotalQueries      int     `json:"total_queries"`
	SimpleQueries     int     `json:"simple_queries"`
	ComplexQueries    int     `json:"complex_queries"`
	SimplePercentage  float64 `json:"simple_percentage"`
	ComplexPercentage float64 `json:"complex_percentage"`
	AverageLatencyMs  float64 `json:"average_latency_ms"`
	ReliableResponses int     `json:"reliable_responses"`
	ReliabilityRate   float64 `json:"reliability_rate"`
}

// Finalize derives the percentage fields from the raw counts.
// totalLatency and latencyCount cover entries that reported a latency.
func (s *LogSummary) Finalize(totalLatency float64, latencyCount int) {
	if latencyCount > 0 {
		s.AverageLatencyMs = math.Round(totalLatency/float64(latencyCount)*100) / 100
	}
	if s.TotalQueries == 0 {
		return
	}
	total := float64(s.TotalQueries)
	s.SimplePercentage = float64(s.SimpleQueries) / total * 100
	s.ComplexPercentage = float64(s.ComplexQueries) / total * 100
	s.ReliabilityRate = float64(s.ReliableResponses) / total * 100
}
