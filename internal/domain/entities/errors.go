package entities

import (
	"errors"
	"fmt"
)

// Sentinels that generator adapters wrap so the pipeline can classify
// failures without knowing the provider.
var (
	ErrQuotaExceeded   = errors.New("provider quota exceeded")
	ErrEmptyGeneration = errors.New("empty generation")
)

// ValidationError rejects a request before it enters the pipeline.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// CorpusLoadError reports a corpus source that could not be read.
// It is never fatal: the store degrades to whatever did load.
type CorpusLoadError struct {
	Path string
	Err  error
}

func (e *CorpusLoadError) Error() string {
	return fmt.Sprintf("loading corpus %s: %v", e.Path, e.Err)
}

func (e *CorpusLoadError) Unwrap() error { return e.Err }

// GenerationErrorKind classifies why a generation call failed.
type GenerationErrorKind string

const (
	GenerationTimeout   GenerationErrorKind = "timeout"
	GenerationQuota     GenerationErrorKind = "quota"
	GenerationTransport GenerationErrorKind = "transport"
	GenerationEmpty     GenerationErrorKind = "empty"
)

// GenerationError is the only error class that aborts a single request.
type GenerationError struct {
	Tier string
	Kind GenerationErrorKind
	Err  error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation with %s failed (%s): %v", e.Tier, e.Kind, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// LogWriteError reports a failed query log append. The response is unaffected.
type LogWriteError struct {
	Err error
}

func (e *LogWriteError) Error() string {
	return fmt.Sprintf("writing query log: %v", e.Err)
}

func (e *LogWriteError) Unwrap() error { return e.Err }

// IsValidation reports whether err is, or wraps, a *ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
