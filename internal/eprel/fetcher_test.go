package eprel

import (
	"context"
	"errors"
	"testing"
	"time"
)

// stubSource fails with the queued errors, in order, then succeeds.
type stubSource struct {
	errs  []error
	calls int
	pages []int
}

func (s *stubSource) FetchPage(_ context.Context, _ string, page, pageSize int) (*Page, error) {
	s.calls++
	s.pages = append(s.pages, page)
	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		return nil, err
	}
	return &Page{Page: page, PageSize: pageSize, TotalItems: 1, TotalPages: 1}, nil
}

func fastPolicy(attempts int) RetryPolicy {
	return RetryPolicy{MaxAttempts: attempts, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}
}

func TestFetcherRetriesTransientFailures(t *testing.T) {
	source := &stubSource{errs: []error{
		&TransientError{Status: 503, Err: errors.New("service unavailable")},
		&TransientError{Status: 429, Err: errors.New("too many requests")},
	}}
	f := NewFetcher(source, 0, fastPolicy(3), nil)

	page, err := f.FetchPage(context.Background(), "dishwashers", 0, 50)
	if err != nil {
		t.Fatal(err)
	}
	if page == nil || source.calls != 3 {
		t.Fatalf("calls = %d, want 3", source.calls)
	}
}

func TestFetcherExhaustsRetryBudget(t *testing.T) {
	source := &stubSource{errs: []error{
		&TransientError{Status: 502},
		&TransientError{Status: 502},
		&TransientError{Status: 502},
	}}
	f := NewFetcher(source, 0, fastPolicy(3), nil)

	_, err := f.FetchPage(context.Background(), "dishwashers", 2, 50)
	if !IsFatal(err) {
		t.Fatalf("err = %v, want fatal after exhausted retries", err)
	}
	if source.calls != 3 {
		t.Fatalf("calls = %d, want exactly the attempt budget", source.calls)
	}

	// The last transient cause stays reachable through the chain.
	var transient *TransientError
	if !errors.As(err, &transient) {
		t.Fatalf("err %v does not wrap the transient cause", err)
	}
}

func TestFetcherDoesNotRetryFatalErrors(t *testing.T) {
	source := &stubSource{errs: []error{
		&FatalError{Status: 404, Reason: "not found"},
	}}
	f := NewFetcher(source, 0, fastPolicy(3), nil)

	_, err := f.FetchPage(context.Background(), "dishwashers", 0, 50)
	if !IsFatal(err) {
		t.Fatalf("err = %v, want fatal", err)
	}
	if source.calls != 1 {
		t.Fatalf("calls = %d, fatal errors must not be retried", source.calls)
	}
}

func TestFetcherRejectsBadPageSize(t *testing.T) {
	source := &stubSource{}
	f := NewFetcher(source, 0, fastPolicy(1), nil)

	for _, size := range []int{0, -1, 101} {
		if _, err := f.FetchPage(context.Background(), "dishwashers", 0, size); !IsFatal(err) {
			t.Fatalf("pageSize %d: err = %v, want fatal", size, err)
		}
	}
	if source.calls != 0 {
		t.Fatalf("calls = %d, precondition failures must not reach the source", source.calls)
	}
}

func TestFetcherRejectsNegativePage(t *testing.T) {
	source := &stubSource{}
	f := NewFetcher(source, 0, fastPolicy(1), nil)

	if _, err := f.FetchPage(context.Background(), "dishwashers", -1, 50); !IsFatal(err) {
		t.Fatalf("err = %v, want fatal", err)
	}
	if source.calls != 0 {
		t.Fatal("negative page must not reach the source")
	}
}

func TestFetcherCancelDuringBackoff(t *testing.T) {
	source := &stubSource{errs: []error{
		&TransientError{Status: 503},
		&TransientError{Status: 503},
	}}
	policy := RetryPolicy{MaxAttempts: 3, BaseDelay: time.Hour, MaxDelay: time.Hour}
	f := NewFetcher(source, 0, policy, nil)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, err := f.FetchPage(ctx, "dishwashers", 0, 50)
	if !IsFatal(err) {
		t.Fatalf("err = %v, want fatal on cancellation", err)
	}
	if time.Since(start) > time.Second {
		t.Fatal("cancellation did not interrupt the backoff sleep")
	}
}

func TestFetcherRateGateSpacesRequests(t *testing.T) {
	source := &stubSource{}
	delay := 20 * time.Millisecond
	f := NewFetcher(source, delay, fastPolicy(1), nil)

	start := time.Now()
	for page := 0; page < 3; page++ {
		if _, err := f.FetchPage(context.Background(), "dishwashers", page, 50); err != nil {
			t.Fatal(err)
		}
	}
	// The first request passes immediately; the next two queue behind the
	// gate for one interval each.
	if elapsed := time.Since(start); elapsed < 2*delay {
		t.Fatalf("3 requests took %v, want at least %v", elapsed, 2*delay)
	}
}

func TestRetryPolicyBackoffDoubling(t *testing.T) {
	p := RetryPolicy{BaseDelay: time.Second, MaxDelay: 5 * time.Second}
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, time.Second},
		{2, 2 * time.Second},
		{3, 4 * time.Second},
		{4, 5 * time.Second},
		{10, 5 * time.Second},
	}
	for _, tt := range tests {
		if got := p.delayFor(tt.attempt); got != tt.want {
			t.Errorf("delayFor(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}
