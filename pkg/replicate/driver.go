package replicate

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/tideflow-io/tideflow/pkg/config"
	"github.com/tideflow-io/tideflow/pkg/remote"
	"github.com/tideflow-io/tideflow/pkg/state"
)

// Strategy names a paging strategy
type Strategy string

const (
	// StrategyWindowed is the sequential, time-windowed id-cursor strategy
	StrategyWindowed Strategy = "windowed"
	// StrategyConcurrent is the counted, concurrency-bounded page strategy
	StrategyConcurrent Strategy = "concurrent"
)

// recordBuffer decouples fetching from the sink without letting an
// entire window accumulate in the channel
const recordBuffer = 1024

// RecordStream carries one stream's replicated records to the consumer.
// Records closes when the sync finishes; Errors then yields at most one
// terminal error. The sequence is finite per invocation and restartable
// only from the committed bookmark.
type RecordStream struct {
	Records <-chan remote.Record
	Errors  <-chan error
}

// StreamDriver replicates one stream. It resolves the start cursor from
// the bookmark store, selects a paging strategy, and owns no commit
// logic of its own; the pagers commit at their defined points.
type StreamDriver struct {
	spec      StreamSpec
	fetcher   Fetcher
	store     state.Store
	cfg       *config.Config
	allowance RateAllowance
	logger    *zap.Logger
	now       func() time.Time
}

// NewStreamDriver creates a driver for one stream
func NewStreamDriver(spec StreamSpec, fetcher Fetcher, store state.Store, cfg *config.Config, logger *zap.Logger) *StreamDriver {
	return &StreamDriver{
		spec:      spec,
		fetcher:   fetcher,
		store:     store,
		cfg:       cfg,
		allowance: AllowanceFor(cfg.Plan, cfg.ConcurrencyBudget),
		logger:    logger.With(zap.String("stream", spec.Name)),
		now:       time.Now,
	}
}

// Strategy returns the paging strategy this driver will use. The
// concurrent strategy requires both the global opt-in and the stream's
// own declaration.
func (d *StreamDriver) Strategy() Strategy {
	if d.cfg.UseAsync && d.spec.Async {
		return StrategyConcurrent
	}
	return StrategyWindowed
}

// Sync starts replication and returns the record stream. The sync runs
// until the upper bound is reached, the context is cancelled, or a fatal
// error surfaces. Records already delivered to the channel belong to the
// consumer; a consumer that must gate bookmark commits on its own writes
// should use Run instead.
func (d *StreamDriver) Sync(ctx context.Context) *RecordStream {
	records := make(chan remote.Record, recordBuffer)
	errs := make(chan error, 1)

	emit := func(ctx context.Context, rec remote.Record) error {
		select {
		case records <- rec:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	go func() {
		defer close(records)
		defer close(errs)
		if err := d.Run(ctx, emit); err != nil {
			errs <- err
		}
	}()

	return &RecordStream{Records: records, Errors: errs}
}

// Run replicates the stream, delivering each record synchronously to
// emit. An emit error aborts the sync before the current window's
// commit point, so the bookmark never moves past a record the caller
// failed to handle.
func (d *StreamDriver) Run(ctx context.Context, emit EmitFunc) error {
	cursor, ok, err := d.store.Cursor(ctx, d.spec.Name)
	if err != nil {
		return err
	}
	if !ok {
		cursor, err = d.cfg.StartTime()
		if err != nil {
			return err
		}
	}

	end, err := d.cfg.EndTime()
	if err != nil {
		return err
	}
	var upper time.Time
	if end != nil {
		upper = end.UTC()
	} else {
		upper = d.now().UTC().Truncate(time.Second)
	}

	strategy := d.Strategy()
	d.logger.Info("starting sync",
		zap.String("strategy", string(strategy)),
		zap.Time("cursor", cursor),
		zap.Time("upper_bound", upper))

	switch strategy {
	case StrategyConcurrent:
		start := cursor.UTC().Truncate(time.Second)
		w, ok := nextWindow(cursor, upper.Sub(start), upper)
		if !ok {
			return nil
		}
		pager := NewConcurrentPager(d.spec.Name, d.fetcher, d.store,
			d.allowance.ConcurrencyBudget, d.cfg.PageSize, d.logger)
		return pager.Run(ctx, w, emit)

	default:
		policy := NewRetryPolicy(d.cfg.Retry, d.spec.Name, d.logger)
		pager := NewWindowedCursorPager(d.spec.Name, d.fetcher, d.store,
			policy, d.cfg.PageSize, d.cfg.WindowSize(), d.logger)
		return pager.Run(ctx, cursor, upper, emit)
	}
}
