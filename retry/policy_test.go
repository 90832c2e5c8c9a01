package retry_test

import (
	"errors"
	"math"
	"time"

	"github.com/dogmatiq/linger/backoff"
	. "github.com/kakkerlakgly/adapterkit/retry"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("type ExponentialBackoff", func() {
	var (
		now   time.Time
		rp    ExponentialBackoff
		cause []error
	)

	BeforeEach(func() {
		now = time.Now()
		rp = ExponentialBackoff{
			Min: 100 * time.Millisecond,
			Max: 1 * time.Hour,
		}
		cause = []error{
			errors.New("<error>"),
		}
	})

	It("uses the minimum delay on the first failure", func() {
		next := rp.NextRetry(now, 0, cause)
		Expect(next.Sub(now)).To(Equal(100 * time.Millisecond))
	})

	It("increases the delay with subsequent failures", func() {
		var next time.Time

		for attempt := 0; attempt <= 5; attempt++ {
			n := rp.NextRetry(now, attempt, cause)
			Expect(n).To(BeTemporally(">", next))

			next = n
		}
	})

	It("caps the delay at the maximum delay", func() {
		next := rp.NextRetry(now, math.MaxUint32, cause)
		Expect(next.Sub(now)).To(Equal(1 * time.Hour))
	})

	It("supports random jitter", func() {
		rp.Jitter = 0.1

		next := rp.NextRetry(now, 0, cause)
		Expect(next).To(BeTemporally("~", now.Add(100*time.Millisecond), 10*time.Millisecond))

		for i := 0; i < 100; i++ {
			n := rp.NextRetry(now, 0, cause)
			if !n.Equal(next) {
				return
			}
		}

		Fail("100 iterations returned results with no jitter")
	})
})

var _ = Describe("type BackoffPolicy", func() {
	It("uses the delay computed by the strategy", func() {
		now := time.Now()
		rp := BackoffPolicy{
			Strategy: backoff.Constant(10 * time.Second),
		}

		Expect(rp.NextRetry(now, 3, nil)).To(Equal(now.Add(10 * time.Second)))
	})

	It("passes the most recent cause to the strategy", func() {
		var (
			now    = time.Now()
			causes = []error{errors.New("<first>"), errors.New("<last>")}
			seen   error
			n      uint
		)

		rp := BackoffPolicy{
			Strategy: func(err error, i uint) time.Duration {
				seen, n = err, i
				return time.Second
			},
		}

		rp.NextRetry(now, 1, causes)

		Expect(seen).To(MatchError("<last>"))
		Expect(n).To(BeEquivalentTo(2))
	})

	It("uses the default strategy if none is provided", func() {
		now := time.Now()
		next := BackoffPolicy{}.NextRetry(now, 0, nil)
		Expect(next).To(BeTemporally(">=", now))
	})
})

var _ = Describe("type Fixed", func() {
	It("always returns the same delay", func() {
		now := time.Now()
		rp := Fixed(5 * time.Minute)

		Expect(rp.NextRetry(now, 0, nil)).To(Equal(now.Add(5 * time.Minute)))
		Expect(rp.NextRetry(now, 10, nil)).To(Equal(now.Add(5 * time.Minute)))
	})
})
