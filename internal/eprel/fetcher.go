package eprel

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/dvdzapata/EPREL/internal/logger"
	"golang.org/x/time/rate"
)

// PageSource is the raw page-fetch boundary the Fetcher wraps. *Client
// satisfies it; tests substitute stubs.
type PageSource interface {
	FetchPage(ctx context.Context, category string, page, pageSize int) (*Page, error)
}

// RetryPolicy controls backoff behavior for transient fetch failures.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Jitter      bool
}

// DefaultRetryPolicy mirrors the upstream API guidance: three attempts with
// exponential backoff between 2s and 60s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   2 * time.Second,
		MaxDelay:    60 * time.Second,
		Jitter:      true,
	}
}

// delayFor returns the backoff delay preceding the given retry attempt
// (attempt 1 is the first retry).
func (p RetryPolicy) delayFor(attempt int) time.Duration {
	delay := p.BaseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= p.MaxDelay {
			delay = p.MaxDelay
			break
		}
	}
	if delay > p.MaxDelay {
		delay = p.MaxDelay
	}
	if p.Jitter && delay > 0 {
		// up to 25% random spread to avoid thundering herds
		delay += time.Duration(rand.Int63n(int64(delay)/4 + 1))
	}
	return delay
}

// Fetcher wraps a PageSource with a token-based request gate and
// exponential-backoff retries. Transient errors never escape it: they are
// either retried away or escalated to a FatalError once the attempt budget
// is spent.
type Fetcher struct {
	source  PageSource
	limiter *rate.Limiter
	policy  RetryPolicy
	log     *logger.Logger
}

// NewFetcher creates a rate-limited fetcher. A zero delay disables the gate.
func NewFetcher(source PageSource, requestDelay time.Duration, policy RetryPolicy, log *logger.Logger) *Fetcher {
	limit := rate.Inf
	if requestDelay > 0 {
		limit = rate.Every(requestDelay)
	}
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = 1
	}
	if log == nil {
		log = logger.Default()
	}
	return &Fetcher{
		source:  source,
		limiter: rate.NewLimiter(limit, 1),
		policy:  policy,
		log:     log,
	}
}

// FetchPage fetches one page, queueing behind the rate gate and retrying
// transient failures. Page indexes are 0-based. A pageSize outside [1,100]
// is a caller contract violation and fails fatally without a request.
func (f *Fetcher) FetchPage(ctx context.Context, category string, page, pageSize int) (*Page, error) {
	if pageSize < 1 || pageSize > MaxPageSize {
		return nil, &FatalError{Reason: fmt.Sprintf("page size %d outside [1,%d]", pageSize, MaxPageSize)}
	}
	if page < 0 {
		return nil, &FatalError{Reason: fmt.Sprintf("negative page index %d", page)}
	}

	var lastErr error
	for attempt := 1; attempt <= f.policy.MaxAttempts; attempt++ {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, &FatalError{Reason: "canceled while waiting for rate gate", Err: err}
		}

		result, err := f.source.FetchPage(ctx, category, page, pageSize)
		if err == nil {
			return result, nil
		}
		if !IsTransient(err) {
			return nil, err
		}
		lastErr = err

		if attempt == f.policy.MaxAttempts {
			break
		}

		delay := f.policy.delayFor(attempt)
		f.log.WithFields(logger.Fields{
			logger.FieldCategory: category,
			logger.FieldPage:     page,
			"attempt":            attempt,
			"backoff":            delay.String(),
		}).WithError(err).Warn("Transient fetch failure, backing off")

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, &FatalError{Reason: "canceled during retry backoff", Err: ctx.Err()}
		}
	}

	return nil, &FatalError{
		Reason: fmt.Sprintf("retry budget exhausted after %d attempts", f.policy.MaxAttempts),
		Err:    lastErr,
	}
}
