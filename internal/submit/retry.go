// Package submit sends creative specs to the ad platform with bounded retry
// on transient failures.
package submit

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fpang/meta-ad-uploader/internal/metaads"
)

// Default retry policy: three attempts with 1s then 2s between them.
const (
	DefaultAttempts  = 3
	DefaultBaseDelay = time.Second
)

// Policy controls Retry.
type Policy struct {
	Attempts  int
	BaseDelay time.Duration
	// Retryable decides whether an error is worth another attempt.
	// Defaults to metaads.IsTransient.
	Retryable func(error) bool
	// OnRetry is called before each backoff sleep.
	OnRetry func(attempt int, err error)
}

// DefaultPolicy returns the standard submission policy.
func DefaultPolicy() Policy {
	return Policy{Attempts: DefaultAttempts, BaseDelay: DefaultBaseDelay}
}

func (p Policy) normalized() Policy {
	if p.Attempts < 1 {
		p.Attempts = 1
	}
	if p.BaseDelay < 0 {
		p.BaseDelay = 0
	}
	if p.Retryable == nil {
		p.Retryable = metaads.IsTransient
	}
	return p
}

// Retry calls fn until it succeeds, returns a non-retryable error, or the
// attempts are exhausted. The delay doubles after each failed attempt.
func Retry[T any](ctx context.Context, p Policy, fn func(context.Context) (T, error)) (T, error) {
	p = p.normalized()

	var zero T
	delay := p.BaseDelay
	for attempt := 1; ; attempt++ {
		v, err := fn(ctx)
		if err == nil {
			return v, nil
		}
		if attempt >= p.Attempts || !p.Retryable(err) {
			return zero, err
		}

		log.Warn().Err(err).
			Int("attempt", attempt).
			Int("maxAttempts", p.Attempts).
			Dur("backoff", delay).
			Msg("Transient platform error, retrying")
		if p.OnRetry != nil {
			p.OnRetry(attempt, err)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}
		delay *= 2
	}
}
