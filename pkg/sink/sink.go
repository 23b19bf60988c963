// Package sink delivers replicated records downstream. The engine only
// depends on the Sink interface; the JSONL sink is the default
// destination and the memory sink backs tests.
package sink

import (
	"context"

	"github.com/tideflow-io/tideflow/pkg/remote"
)

// Sink receives replicated records. Implementations must be safe for
// use from a single consumer goroutine per stream.
type Sink interface {
	// Write delivers one record for a stream
	Write(ctx context.Context, stream string, rec remote.Record) error

	// Close flushes and releases the sink
	Close() error
}
