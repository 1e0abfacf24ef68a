package retry

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/noema-protocol/registry-client/pkg/retry/backoff"
)

// Strategy decides whether a failed action is attempted again. attempts
// counts the attempts made so far, starting at 1. Strategies may block.
type Strategy func(ctx context.Context, attempts uint, err error) bool

// Limit caps the total number of attempts, including the first.
func Limit(maxAttempts uint) Strategy {
	return func(_ context.Context, attempts uint, _ error) bool {
		return attempts < maxAttempts
	}
}

// RetriableErrors only retries errors matching one of retriable via errors.Is.
func RetriableErrors(retriable ...error) Strategy {
	return func(_ context.Context, _ uint, err error) bool {
		for _, target := range retriable {
			if errors.Is(err, target) {
				return true
			}
		}
		return false
	}
}

// Backoff waits for the delay produced by strategy, capped at maxBackoff,
// before the next attempt. jitter spreads the capped delay uniformly by that
// fraction in either direction, so 0.1 turns 100ms into 90ms to 110ms. The
// wait ends early, declining the retry, when ctx is done.
func Backoff(strategy backoff.Strategy, maxBackoff time.Duration, jitter float64) Strategy {
	return func(ctx context.Context, attempts uint, _ error) bool {
		delay := min(strategy(attempts), maxBackoff)
		if jitter > 0 {
			delay = time.Duration(float64(delay) * (1 + jitter*(2*rand.Float64()-1)))
		}
		return sleep(ctx, delay)
	}
}

var sleep = realSleep

func realSleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
