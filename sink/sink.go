// Package sink delivers finished corpus reports.
package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/use-agent/corpus/models"
)

// Encode renders a report in the vectors.json wire shape.
func Encode(report *models.CorpusReport) ([]byte, error) {
	data, err := json.Marshal(report)
	if err != nil {
		return nil, fmt.Errorf("sink: encode report: %w", err)
	}
	return data, nil
}

// FileSink writes the report as vectors.json into Dir.
type FileSink struct {
	Dir string
}

// Path is where the report is written.
func (s FileSink) Path() string {
	return filepath.Join(s.Dir, models.ReportFilename)
}

// Deliver writes the report through a temp file and a rename, so a reader
// never observes a half-written artifact.
func (s FileSink) Deliver(ctx context.Context, report *models.CorpusReport) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := Encode(report)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return fmt.Errorf("sink: create output dir: %w", err)
	}

	tmp, err := os.CreateTemp(s.Dir, ".vectors-*.json")
	if err != nil {
		return fmt.Errorf("sink: create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("sink: write report: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("sink: close report: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.Path()); err != nil {
		return fmt.Errorf("sink: rename report: %w", err)
	}

	slog.Info("report written", "path", s.Path(), "pages", len(report.Pages), "bytes", len(data))
	return nil
}

// MemorySink keeps the encoded report for later download.
// It is safe for concurrent use.
type MemorySink struct {
	mu   sync.RWMutex
	data []byte
}

func (s *MemorySink) Deliver(_ context.Context, report *models.CorpusReport) error {
	data, err := Encode(report)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.data = data
	s.mu.Unlock()
	return nil
}

// Bytes returns the encoded report, or nil before delivery.
func (s *MemorySink) Bytes() []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data
}

// Sink receives a finished report.
type Sink interface {
	Deliver(ctx context.Context, report *models.CorpusReport) error
}

// Multi delivers to every sink and returns the first error.
type Multi []Sink

func (m Multi) Deliver(ctx context.Context, report *models.CorpusReport) error {
	var first error
	for _, s := range m {
		if err := s.Deliver(ctx, report); err != nil && first == nil {
			first = err
		}
	}
	return first
}
