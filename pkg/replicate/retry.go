package replicate

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/tideflow-io/tideflow/pkg/config"
	"github.com/tideflow-io/tideflow/pkg/errors"
	"github.com/tideflow-io/tideflow/pkg/metrics"
)

// defaultRetryAfter is used when a rate-limit response carries no
// Retry-After value
const defaultRetryAfter = 1 * time.Second

// sleepFunc abstracts the waits between attempts so tests can observe
// them without real time passing
type sleepFunc func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// RetryPolicy wraps a single remote call with classification-driven
// retries:
//
//   - rate-limit responses sleep exactly the server-provided wait and
//     retry without bound; back-pressure from the remote's leaky bucket
//     is not a failure condition
//   - server errors and undecodable bodies retry with exponential
//     backoff; the attempt that reaches MaxAttempts fails with
//     retry_exhausted
//   - everything else fails immediately
type RetryPolicy struct {
	maxAttempts  int
	initialDelay time.Duration
	maxDelay     time.Duration
	multiplier   float64
	stream       string
	logger       *zap.Logger
	sleep        sleepFunc
}

// NewRetryPolicy creates a retry policy for one stream's remote calls
func NewRetryPolicy(cfg config.RetryConfig, stream string, logger *zap.Logger) *RetryPolicy {
	return &RetryPolicy{
		maxAttempts:  cfg.MaxAttempts,
		initialDelay: cfg.InitialDelay,
		maxDelay:     cfg.MaxDelay,
		multiplier:   cfg.Multiplier,
		stream:       stream,
		logger:       logger.With(zap.String("stream", stream)),
		sleep:        sleepContext,
	}
}

// Execute runs f until it succeeds, exhausts its transient-error budget,
// or fails fatally. Rate-limit waits do not count against the budget.
func (p *RetryPolicy) Execute(ctx context.Context, op string, f func(ctx context.Context) error) error {
	failures := 0
	delay := p.initialDelay

	for {
		err := f(ctx)
		if err == nil {
			return nil
		}

		switch {
		case errors.IsRateLimit(err):
			wait, ok := errors.RetryAfterOf(err)
			if !ok {
				wait = defaultRetryAfter
			}
			p.logger.Warn("received 429, sleeping",
				zap.String("operation", op),
				zap.Duration("wait", wait))
			metrics.Retries.WithLabelValues(p.stream, "rate_limit").Inc()
			metrics.RateLimitSleepSeconds.WithLabelValues(p.stream).Add(wait.Seconds())
			if serr := p.sleep(ctx, wait); serr != nil {
				return serr
			}

		case errors.IsTransient(err):
			failures++
			if failures >= p.maxAttempts {
				return errors.Wrap(err, errors.ErrorTypeRetryExhausted, op+" failed").
					WithDetail("attempts", failures)
			}
			class := "server"
			if errors.IsType(err, errors.ErrorTypeDecode) {
				class = "decode"
			}
			p.logger.Warn("transient error, backing off",
				zap.String("operation", op),
				zap.Int("attempt", failures),
				zap.Duration("wait", delay),
				zap.Error(err))
			metrics.Retries.WithLabelValues(p.stream, class).Inc()
			if serr := p.sleep(ctx, delay); serr != nil {
				return serr
			}
			delay = time.Duration(float64(delay) * p.multiplier)
			if delay > p.maxDelay {
				delay = p.maxDelay
			}

		default:
			return err
		}
	}
}
