// Package retry re-runs actions that fail with transient errors.
package retry

import "context"

// Action is a function to be performed in a retriable manner.
type Action func() error

// Retrier retries actions according to a fixed set of strategies.
type Retrier interface {
	// Retry runs action until it succeeds, a strategy declines another
	// attempt, or ctx is done. It returns the number of attempts made along
	// with the last error.
	Retry(ctx context.Context, action Action) (uint, error)

	// With returns a Retrier that evaluates the provided strategies ahead of
	// the existing ones.
	With(strategies ...Strategy) Retrier
}

type retrier []Strategy

// NewRetrier returns a Retrier evaluating strategies in order after every
// failed attempt. Strategies that delay should come last. With no strategies
// the action is retried until it succeeds or ctx is done.
func NewRetrier(strategies ...Strategy) Retrier {
	return retrier(strategies)
}

func (r retrier) Retry(ctx context.Context, action Action) (uint, error) {
	return Retry(ctx, action, r...)
}

func (r retrier) With(strategies ...Strategy) Retrier {
	combined := make(retrier, 0, len(strategies)+len(r))
	combined = append(combined, strategies...)
	return append(combined, r...)
}

// Retry is the functional form of Retrier.Retry.
func Retry(ctx context.Context, action Action, strategies ...Strategy) (uint, error) {
	for attempt := uint(1); ; attempt++ {
		err := action()
		if err == nil {
			return attempt, nil
		}
		if ctx.Err() != nil {
			return attempt, err
		}

		for _, s := range strategies {
			if !s(ctx, attempt, err) {
				return attempt, err
			}
		}
	}
}
