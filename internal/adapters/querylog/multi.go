package querylog

import (
	"context"
	"errors"

	"github.com/0xcro3dile/docqa-go/internal/domain/entities"
	"github.com/0xcro3dile/docqa-go/internal/domain/ports"
)

// Multi fans an entry out to every sink. The first sink is the log of
// record; it is also the one used for summaries unless a summarizer is
// supplied explicitly.
type Multi struct {
	sinks      []ports.QueryLogger
	summarizer ports.LogSummarizer
}

// NewMulti combines sinks. summarizer may be nil.
func NewMulti(summarizer ports.LogSummarizer, sinks ...ports.QueryLogger) *Multi {
	if summarizer == nil && len(sinks) > 0 {
		summarizer, _ = sinks[0].(ports.LogSummarizer)
	}
	return &Multi{sinks: sinks, summarizer: summarizer}
}

// Append writes to every sink, even after a failure, and joins the errors.
func (m *Multi) Append(ctx context.Context, entry entities.LogEntry) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Append(ctx, entry); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Summary delegates to the configured summarizer.
func (m *Multi) Summary(ctx context.Context) (entities.LogSummary, error) {
	if m.summarizer == nil {
		return entities.LogSummary{}, errors.New("query log summary unavailable")
	}
	return m.summarizer.Summary(ctx)
}
