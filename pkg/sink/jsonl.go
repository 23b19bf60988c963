package sink

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"sync"

	gojson "github.com/goccy/go-json"

	"github.com/tideflow-io/tideflow/pkg/errors"
	"github.com/tideflow-io/tideflow/pkg/remote"
)

// JSONLSink writes one newline-delimited JSON file per stream under a
// directory. Files are opened lazily on first write and flushed on
// Close.
type JSONLSink struct {
	dir string

	mu      sync.Mutex
	files   map[string]*os.File
	writers map[string]*bufio.Writer
}

// NewJSONLSink creates a JSONL sink rooted at dir
func NewJSONLSink(dir string) (*JSONLSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeInternal, "failed to create sink directory")
	}
	return &JSONLSink{
		dir:     dir,
		files:   make(map[string]*os.File),
		writers: make(map[string]*bufio.Writer),
	}, nil
}

// Write implements Sink
func (s *JSONLSink) Write(_ context.Context, stream string, rec remote.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, err := s.writer(stream)
	if err != nil {
		return err
	}

	line, err := gojson.Marshal(rec.Fields)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeInternal, "failed to encode record")
	}
	if _, err := w.Write(line); err != nil {
		return errors.Wrap(err, errors.ErrorTypeInternal, "failed to write record")
	}
	if err := w.WriteByte('\n'); err != nil {
		return errors.Wrap(err, errors.ErrorTypeInternal, "failed to write record")
	}
	return nil
}

func (s *JSONLSink) writer(stream string) (*bufio.Writer, error) {
	if w, ok := s.writers[stream]; ok {
		return w, nil
	}

	path := filepath.Join(s.dir, stream+".jsonl")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeInternal, "failed to open sink file")
	}

	w := bufio.NewWriter(f)
	s.files[stream] = f
	s.writers[stream] = w
	return w, nil
}

// Close implements Sink
func (s *JSONLSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var firstErr error
	for stream, w := range s.writers {
		if err := w.Flush(); err != nil && firstErr == nil {
			firstErr = errors.Wrap(err, errors.ErrorTypeInternal, "failed to flush sink file")
		}
		if err := s.files[stream].Close(); err != nil && firstErr == nil {
			firstErr = errors.Wrap(err, errors.ErrorTypeInternal, "failed to close sink file")
		}
	}
	s.writers = make(map[string]*bufio.Writer)
	s.files = make(map[string]*os.File)
	return firstErr
}
