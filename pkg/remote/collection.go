package remote

import (
	"context"
	"time"

	"github.com/tideflow-io/tideflow/pkg/metrics"
)

// Collection binds a Client to one stream's endpoint and result key,
// giving the replication engine a per-stream fetch surface.
type Collection struct {
	client    Client
	stream    string
	endpoint  string
	resultKey string
}

// NewCollection creates the fetch surface for one stream
func NewCollection(client Client, stream, endpoint, resultKey string) *Collection {
	return &Collection{
		client:    client,
		stream:    stream,
		endpoint:  endpoint,
		resultKey: resultKey,
	}
}

// FetchPage fetches one page of the collection
func (c *Collection) FetchPage(ctx context.Context, req PageRequest) ([]Record, error) {
	start := time.Now()
	records, err := c.client.FetchPage(ctx, c.endpoint, c.resultKey, req)
	metrics.FetchDuration.WithLabelValues(c.stream, "page").Observe(time.Since(start).Seconds())
	return records, err
}

// FetchCount fetches the total result count for the given filters
func (c *Collection) FetchCount(ctx context.Context, req PageRequest) (int64, error) {
	start := time.Now()
	count, err := c.client.FetchCount(ctx, c.endpoint, req)
	metrics.FetchDuration.WithLabelValues(c.stream, "count").Observe(time.Since(start).Seconds())
	return count, err
}
