package ingest

import (
	"context"
	"time"
)

// Policy is an explicit retry policy: total attempt budget plus an
// exponential backoff schedule. It is applied around a single operation,
// not a whole processing loop, so only the network call is retried and
// never the surrounding validation or city iteration.
type Policy struct {
	MaxAttempts int
	InitialWait time.Duration
	MaxWait     time.Duration

	// OnRetry is invoked before each backoff wait with the attempt number
	// that just failed, the wait about to happen, and the error.
	OnRetry func(attempt int, wait time.Duration, err error)

	// sleep is swapped out by tests to observe waits without real delays.
	sleep func(ctx context.Context, d time.Duration) error
}

// DefaultPolicy matches the pipeline's contract with the upstream API:
// 3 total attempts, waits of 2s then 4s, capped at 10s.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		InitialWait: 2 * time.Second,
		MaxWait:     10 * time.Second,
	}
}

// Do runs op until it succeeds, the attempt budget is exhausted, or
// retryable reports the failure as permanent. The last error is returned
// unwrapped so callers see the original cause.
func (p Policy) Do(ctx context.Context, op func() error, retryable func(error) bool) error {
	wait := p.InitialWait

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := op()
		if err == nil {
			return nil
		}
		if attempt >= p.MaxAttempts || !retryable(err) {
			return err
		}

		if p.OnRetry != nil {
			p.OnRetry(attempt, wait, err)
		}
		if err := p.doSleep(ctx, wait); err != nil {
			return err
		}

		wait *= 2
		if p.MaxWait > 0 && wait > p.MaxWait {
			wait = p.MaxWait
		}
	}
}

func (p Policy) doSleep(ctx context.Context, d time.Duration) error {
	if p.sleep != nil {
		return p.sleep(ctx, d)
	}

	timer := time.NewTimer(d)
	select {
	case <-ctx.Done():
		timer.Stop()
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
