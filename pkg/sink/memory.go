package sink

import (
	"context"
	"sync"

	"github.com/tideflow-io/tideflow/pkg/remote"
)

// MemorySink collects records in memory, for tests and dry runs
type MemorySink struct {
	mu      sync.Mutex
	records map[string][]remote.Record
}

// NewMemorySink creates an empty memory sink
func NewMemorySink() *MemorySink {
	return &MemorySink{records: make(map[string][]remote.Record)}
}

// Write implements Sink
func (s *MemorySink) Write(_ context.Context, stream string, rec remote.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[stream] = append(s.records[stream], rec)
	return nil
}

// Records returns the records collected for a stream
func (s *MemorySink) Records(stream string) []remote.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]remote.Record, len(s.records[stream]))
	copy(out, s.records[stream])
	return out
}

// Close implements Sink
func (s *MemorySink) Close() error {
	return nil
}
