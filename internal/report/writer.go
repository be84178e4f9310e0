package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/nao1215/mailscan/internal/model"
)

// Writer defines the interface for report output.
// Implementations write crawl results in various formats.
//
// Design decision: We use an interface to allow different output formats
// and destinations. This enables writing to files or stdout with the same
// API.
type Writer interface {
	// Write outputs the report to the configured destination.
	// Returns the number of bytes written and any error encountered.
	Write(report *model.CrawlReport) (int, error)
}

// WriterFactory creates a Writer for a destination.
type WriterFactory func(output io.Writer) Writer

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// WriteFile writes report to path with the writer built by newWriter.
// Parent directories are created as needed, and the file is created with
// 0600 permissions because it holds harvested contact data.
func WriteFile(path string, report *model.CrawlReport, newWriter WriterFactory) (int, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return 0, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600) //nolint:gosec // User-provided output path is intentional
	if err != nil {
		return 0, fmt.Errorf("failed to create output file: %w", err)
	}

	n, err := newWriter(f).Write(report)
	if err != nil {
		_ = f.Close()
		return n, fmt.Errorf("failed to write report: %w", err)
	}
	if err := f.Close(); err != nil {
		return n, fmt.Errorf("failed to close output file: %w", err)
	}

	return n, nil
}
