package retry

import (
	"math"
	"math/rand"
	"time"

	"github.com/dogmatiq/linger"
	"github.com/dogmatiq/linger/backoff"
)

// Policy determines when a message whose delivery failed is next attempted.
type Policy interface {
	// NextRetry returns the time at which a message should be redelivered.
	//
	// attempt is the number of deliveries that have already failed, starting
	// at zero. cause holds the errors that caused those failures, if known.
	NextRetry(now time.Time, attempt int, cause []error) time.Time
}

// DefaultPolicy is the policy used when none is configured.
var DefaultPolicy Policy = BackoffPolicy{
	Strategy: backoff.WithTransforms(
		backoff.Exponential(1*time.Second),
		linger.FullJitter,
		linger.Limiter(0, 1*time.Hour),
	),
}

// ExponentialBackoff is a retry policy that doubles the delay after each
// failed attempt.
type ExponentialBackoff struct {
	// Min is the delay used after the first failure.
	Min time.Duration

	// Max is the upper bound of the delay, before jitter is applied.
	Max time.Duration

	// Jitter is the proportion of the delay that is randomly added to it, in
	// the range [0, 1].
	Jitter float64
}

// NextRetry returns the time at which the message should next be retried.
func (p ExponentialBackoff) NextRetry(
	now time.Time,
	attempt int,
	_ []error,
) time.Time {
	return now.Add(p.delay(attempt))
}

func (p ExponentialBackoff) delay(n int) time.Duration {
	s := math.Pow(2, float64(n)) * p.Min.Seconds()

	if s > p.Max.Seconds() {
		s = p.Max.Seconds()
	}

	s *= 1 + (rand.Float64() * p.Jitter)

	return time.Duration(s * float64(time.Second))
}

// BackoffPolicy is a retry policy that computes the delay using a linger
// backoff strategy.
type BackoffPolicy struct {
	// Strategy computes the delay. If it is nil, backoff.DefaultStrategy is
	// used.
	Strategy backoff.Strategy
}

// NextRetry returns the time at which the message should next be retried.
func (p BackoffPolicy) NextRetry(
	now time.Time,
	attempt int,
	cause []error,
) time.Time {
	s := p.Strategy
	if s == nil {
		s = backoff.DefaultStrategy
	}

	var err error
	if len(cause) > 0 {
		err = cause[len(cause)-1]
	}

	if attempt < 0 {
		attempt = 0
	}

	return now.Add(s(err, uint(attempt)+1))
}

// Fixed is a retry policy that always waits for the same delay.
type Fixed time.Duration

// NextRetry returns the time at which the message should next be retried.
func (p Fixed) NextRetry(now time.Time, _ int, _ []error) time.Time {
	return now.Add(time.Duration(p))
}
