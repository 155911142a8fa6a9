// Package sink writes corpus records as newline-delimited JSON.
package sink

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// DefaultMaxBytes is the byte budget used when none is configured.
const DefaultMaxBytes int64 = 2_000_000_000

// ErrClosed is returned by Write after Close.
var ErrClosed = errors.New("sink closed")

// JSONLWriter appends one JSON object per line to a single file.
//
// When a write would push the bytes written since the last boundary past
// maxBytes, the file is closed and reopened at the same path in append mode
// and the counter is reset. No new segment file is created, so maxBytes does
// not bound the size of the file on disk.
type JSONLWriter struct {
	path     string
	maxBytes int64
	written  int64
	file     *os.File
	closed   bool
	logger   *zap.Logger
}

// Open truncates or creates path and returns a writer for it.
func Open(path string, maxBytes int64, logger *zap.Logger) (*JSONLWriter, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("create sink dir for %s: %w", path, err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644) // #nosec G302 -- corpus files are shared artifacts
	if err != nil {
		return nil, fmt.Errorf("open sink %s: %w", path, err)
	}
	return &JSONLWriter{
		path:     path,
		maxBytes: maxBytes,
		file:     f,
		logger:   logger,
	}, nil
}

// Path returns the file the writer appends to.
func (w *JSONLWriter) Path() string {
	return w.path
}

// Write encodes record as one JSON line and returns the number of bytes
// written including the trailing newline. UTF-8 text is written as is.
func (w *JSONLWriter) Write(record any) (int, error) {
	if w.closed {
		return 0, ErrClosed
	}
	line, err := encodeLine(record)
	if err != nil {
		return 0, err
	}
	if w.written+int64(len(line)) > w.maxBytes {
		if err := w.reopen(); err != nil {
			return 0, err
		}
	}
	n, err := w.file.Write(line)
	w.written += int64(n)
	if err != nil {
		return n, fmt.Errorf("write %s: %w", w.path, err)
	}
	return n, nil
}

func (w *JSONLWriter) reopen() error {
	if err := w.file.Close(); err != nil {
		return fmt.Errorf("close %s for rotation: %w", w.path, err)
	}
	f, err := os.OpenFile(w.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644) // #nosec G302 -- corpus files are shared artifacts
	if err != nil {
		w.closed = true
		return fmt.Errorf("reopen %s: %w", w.path, err)
	}
	w.logger.Debug("sink byte budget reached; reopened in append mode",
		zap.String("path", w.path),
		zap.Int64("written", w.written),
		zap.Int64("max_bytes", w.maxBytes),
	)
	w.file = f
	w.written = 0
	return nil
}

// Close closes the underlying file. Calling it again is a no-op.
func (w *JSONLWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	if err := w.file.Close(); err != nil {
		return fmt.Errorf("close %s: %w", w.path, err)
	}
	return nil
}

func encodeLine(record any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(record); err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}
	return buf.Bytes(), nil
}
