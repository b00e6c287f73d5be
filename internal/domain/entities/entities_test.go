package entities

import (
	"errors"
	"math"
	"testing"
	"time"
)

func TestNewChunk_Valid(t *testing.T) {
	c, err := NewChunk("some text", "guide.pdf", 3, 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Source != "guide.pdf" || c.Page != 3 || c.SequenceID != 7 {
		t.Errorf("fields not set correctly: %+v", c)
	}
}

func TestNewChunk_RejectsBadPage(t *testing.T) {
	for _, page := range []int{0, -1} {
		if _, err := NewChunk("x", "guide.pdf", page, 1); err == nil {
			t.Errorf("page %d should be rejected", page)
		}
	}
}

func TestNewChunk_RejectsEmptySource(t *testing.T) {
	if _, err := NewChunk("x", "", 1, 1); err == nil {
		t.Error("empty source should be rejected")
	}
}

func TestNewScoredChunk_Range(t *testing.T) {
	c := Chunk{Text: "t", Source: "doc.pdf", Page: 1}

	for _, s := range []float64{0, 0.5, 1} {
		if _, err := NewScoredChunk(c, s); err != nil {
			t.Errorf("score %v should be accepted: %v", s, err)
		}
	}
	for _, s := range []float64{-0.1, 1.01, math.NaN()} {
		if _, err := NewScoredChunk(c, s); err == nil {
			t.Errorf("score %v should be rejected", s)
		}
	}
}

func TestFlags_Any(t *testing.T) {
	if (Flags{}).Any() {
		t.Error("zero flags should not report any")
	}
	if !(Flags{Refusal: true}).Any() {
		t.Error("refusal flag should be reported")
	}
}

func TestLogSummary_Finalize(t *testing.T) {
	s := LogSummary{TotalQueries: 4, SimpleQueries: 3, ComplexQueries: 1, ReliableResponses: 2}
	s.Finalize(300, 2)

	if s.AverageLatencyMs != 150 {
		t.Errorf("expected average 150, got %v", s.AverageLatencyMs)
	}
	if s.SimplePercentage != 75 || s.ComplexPercentage != 25 {
		t.Errorf("unexpected percentages: %v / %v", s.SimplePercentage, s.ComplexPercentage)
	}
	if s.ReliabilityRate != 50 {
		t.Errorf("expected reliability 50, got %v", s.ReliabilityRate)
	}
}

func TestLogSummary_FinalizeEmpty(t *testing.T) {
	var s LogSummary
	s.Finalize(0, 0)
	if s.SimplePercentage != 0 || s.AverageLatencyMs != 0 {
		t.Errorf("empty summary should stay zero: %+v", s)
	}
}

func TestLogEntry_Timestamp(t *testing.T) {
	e := LogEntry{Timestamp: time.Now(), Classification: ClassificationComplex}
	if e.Classification.String() != "complex" {
		t.Errorf("unexpected classification %s", e.Classification)
	}
}

func TestGenerationError_Unwrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := error(&GenerationError{Tier: "m", Kind: GenerationTransport, Err: cause})

	if !errors.Is(err, cause) {
		t.Error("generation error should unwrap to its cause")
	}
	var ge *GenerationError
	if !errors.As(err, &ge) || ge.Kind != GenerationTransport {
		t.Error("errors.As should recover the kind")
	}
}

func TestIsValidation(t *testing.T) {
	if !IsValidation(&ValidationError{Field: "query", Message: "empty"}) {
		t.Error("expected validation error")
	}
	if IsValidation(errors.New("other")) {
		t.Error("plain error is not a validation error")
	}
}
