package replicate

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/tideflow-io/tideflow/pkg/errors"
	"github.com/tideflow-io/tideflow/pkg/metrics"
	"github.com/tideflow-io/tideflow/pkg/remote"
	"github.com/tideflow-io/tideflow/pkg/state"
)

// ConcurrentPager is the throughput strategy. Given one window it counts
// the result set, derives the page count, and fetches pages through a
// bounded pool sized to the account's concurrency allowance. Chunks of
// budget-many pages run with a full barrier between them; results merge
// in ascending page order so completion order never affects emitted
// record order.
//
// The whole window is fetched and emitted before the single bookmark
// commit, so a failure anywhere discards the window's partial results
// and the next run restarts from the committed cursor.
type ConcurrentPager struct {
	stream   string
	fetcher  Fetcher
	store    state.Store
	budget   int
	pageSize int
	logger   *zap.Logger
	sleep    sleepFunc
}

// NewConcurrentPager creates the concurrent pager for one stream
func NewConcurrentPager(stream string, fetcher Fetcher, store state.Store, budget, pageSize int, logger *zap.Logger) *ConcurrentPager {
	return &ConcurrentPager{
		stream:   stream,
		fetcher:  fetcher,
		store:    store,
		budget:   budget,
		pageSize: pageSize,
		logger:   logger.With(zap.String("stream", stream), zap.String("strategy", string(StrategyConcurrent))),
		sleep:    sleepContext,
	}
}

// Run replicates one window and commits its end cursor
func (p *ConcurrentPager) Run(ctx context.Context, w Window, emit EmitFunc) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	base := remote.PageRequest{
		UpdatedAtMin: w.Start,
		UpdatedAtMax: w.End,
		Limit:        p.pageSize,
		Status:       statusAny,
	}

	count, err := p.fetchCount(ctx, base)
	if err != nil {
		return err
	}
	pageCount := int((count + int64(p.pageSize) - 1) / int64(p.pageSize))
	p.logger.Debug("window sized",
		zap.String("window", w.String()),
		zap.Int64("count", count),
		zap.Int("pages", pageCount))

	results := make(map[int][]remote.Record, pageCount)
	var mu sync.Mutex
	var firstErr error

	for start := 1; start <= pageCount; start += p.budget {
		end := start + p.budget - 1
		if end > pageCount {
			end = pageCount
		}

		var wg sync.WaitGroup
		for page := start; page <= end; page++ {
			wg.Add(1)
			go func(page int) {
				defer wg.Done()

				req := base
				req.Page = page
				records, err := p.fetchPage(ctx, req)

				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					if firstErr == nil {
						firstErr = err
						cancel()
					}
					return
				}
				results[page] = records
			}(page)
		}
		wg.Wait()

		if firstErr != nil {
			return firstErr
		}
	}

	emitted := 0
	for page := 1; page <= pageCount; page++ {
		for _, rec := range results[page] {
			if err := emit(ctx, rec); err != nil {
				return err
			}
			emitted++
		}
	}
	metrics.RecordsEmitted.WithLabelValues(p.stream, string(StrategyConcurrent)).Add(float64(emitted))

	if err := p.store.Commit(ctx, p.stream, w.End, nil); err != nil {
		return err
	}
	metrics.WindowsCommitted.WithLabelValues(p.stream, string(StrategyConcurrent)).Inc()
	p.logger.Debug("window committed", zap.Time("cursor", w.End), zap.Int("records", emitted))
	return nil
}

// fetchPage issues one page request with the strategy's own retry
// handling: rate limits sleep the server-dictated wait and reissue,
// server errors reissue immediately with no backoff and no attempt cap.
// Duplicate page requests are cheap here, but the unbounded server-error
// reissue can spin against a persistently failing remote; cancellation
// through ctx is the only way out.
func (p *ConcurrentPager) fetchPage(ctx context.Context, req remote.PageRequest) ([]remote.Record, error) {
	for attempt := 1; ; attempt++ {
		records, err := p.fetcher.FetchPage(ctx, req)
		if err == nil {
			metrics.PagesFetched.WithLabelValues(p.stream, string(StrategyConcurrent)).Inc()
			return records, nil
		}
		if rerr := p.handleRetryable(ctx, err, req.Page, attempt); rerr != nil {
			return nil, rerr
		}
	}
}

func (p *ConcurrentPager) fetchCount(ctx context.Context, base remote.PageRequest) (int64, error) {
	req := base
	req.Limit = 0
	for attempt := 1; ; attempt++ {
		count, err := p.fetcher.FetchCount(ctx, req)
		if err == nil {
			return count, nil
		}
		if rerr := p.handleRetryable(ctx, err, 0, attempt); rerr != nil {
			return 0, rerr
		}
	}
}

// handleRetryable sleeps or yields for a retryable error and returns nil
// when the caller should reissue the request
func (p *ConcurrentPager) handleRetryable(ctx context.Context, err error, page, attempt int) error {
	switch {
	case errors.IsRateLimit(err):
		wait, ok := errors.RetryAfterOf(err)
		if !ok {
			wait = defaultRetryAfter
		}
		p.logger.Warn("received 429, sleeping",
			zap.Int("page", page),
			zap.Duration("wait", wait))
		metrics.Retries.WithLabelValues(p.stream, "rate_limit").Inc()
		metrics.RateLimitSleepSeconds.WithLabelValues(p.stream).Add(wait.Seconds())
		return p.sleep(ctx, wait)

	case errors.IsType(err, errors.ErrorTypeServer):
		p.logger.Warn("server error, reissuing request",
			zap.Int("page", page),
			zap.Int("attempt", attempt),
			zap.Error(err))
		metrics.Retries.WithLabelValues(p.stream, "server").Inc()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return nil

	default:
		return err
	}
}
