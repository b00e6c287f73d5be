// Package querylog persists completed queries.
//
// The JSONL sink is the log of record: one JSON object per line, appended,
// never rewritten. The SQLite sink mirrors the same entries for cheap
// aggregation.
package querylog

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/0xcro3dile/docqa-go/internal/domain/entities"
)

// JSONLSink appends entries to a line-delimited JSON file.
// Appends are serialized so concurrent writers never interleave a line.
type JSONLSink struct {
	mu   sync.Mutex
	path string
	file *os.File
}

// NewJSONLSink opens path in append mode, creating it and its directory.
func NewJSONLSink(path string) (*JSONLSink, error) {
	if path == "" {
		path = "logs.jsonl"
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating log directory: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening query log: %w", err)
	}
	return &JSONLSink{path: path, file: f}, nil
}

// Path returns the log file location.
func (s *JSONLSink) Path() string {
	return s.path
}

// Append writes entry as a single line.
func (s *JSONLSink) Append(ctx context.Context, entry entities.LogEntry) error {
	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encoding log entry: %w", err)
	}
	line = append(line, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return errors.New("query log closed")
	}
	if _, err := s.file.Write(line); err != nil {
		return fmt.Errorf("appending to %s: %w", s.path, err)
	}
	return nil
}

// Summary scans the whole file. Lines that do not parse are skipped.
func (s *JSONLSink) Summary(ctx context.Context) (entities.LogSummary, error) {
	var summary entities.LogSummary

	f, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return summary, nil
		}
		return summary, fmt.Errorf("opening query log: %w", err)
	}
	defer f.Close()

	var (
		totalLatency float64
		latencyCount int
	)
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		var entry entities.LogEntry
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			continue
		}
		summary.TotalQueries++
		if entry.Classification == entities.ClassificationSimple {
			summary.SimpleQueries++
		} else {
			summary.ComplexQueries++
		}
		if entry.LatencyMs > 0 {
			totalLatency += float64(entry.LatencyMs)
			latencyCount++
		}
		if entry.Reliable {
			summary.ReliableResponses++
		}
	}
	if err := scanner.Err(); err != nil {
		return summary, fmt.Errorf("reading query log: %w", err)
	}

	summary.Finalize(totalLatency, latencyCount)
	return summary, nil
}

// Close closes the underlying file.
func (s *JSONLSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}
