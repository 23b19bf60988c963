package replicate

import (
	"context"
	"sync"
	"time"

	"github.com/tideflow-io/tideflow/pkg/remote"
)

// funcFetcher scripts remote behavior per test
type funcFetcher struct {
	mu    sync.Mutex
	calls []remote.PageRequest

	page  func(ctx context.Context, req remote.PageRequest) ([]remote.Record, error)
	count func(ctx context.Context, req remote.PageRequest) (int64, error)
}

func (f *funcFetcher) FetchPage(ctx context.Context, req remote.PageRequest) ([]remote.Record, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	f.mu.Unlock()
	return f.page(ctx, req)
}

func (f *funcFetcher) FetchCount(ctx context.Context, req remote.PageRequest) (int64, error) {
	if f.count == nil {
		return 0, nil
	}
	return f.count(ctx, req)
}

func (f *funcFetcher) pageCalls() []remote.PageRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]remote.PageRequest, len(f.calls))
	copy(out, f.calls)
	return out
}

func rec(id int64) remote.Record {
	return remote.Record{
		ID:        id,
		UpdatedAt: time.Date(2023, 1, 1, 12, 0, 0, 0, time.UTC),
		Fields:    map[string]interface{}{"id": id},
	}
}

func recs(ids ...int64) []remote.Record {
	out := make([]remote.Record, 0, len(ids))
	for _, id := range ids {
		out = append(out, rec(id))
	}
	return out
}

// collectEmit returns an EmitFunc appending emitted ids to the slice
func collectEmit(ids *[]int64) EmitFunc {
	var mu sync.Mutex
	return func(_ context.Context, r remote.Record) error {
		mu.Lock()
		defer mu.Unlock()
		*ids = append(*ids, r.ID)
		return nil
	}
}
