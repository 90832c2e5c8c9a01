package semaphore_test

import (
	"context"
	"time"

	. "github.com/kakkerlakgly/adapterkit/semaphore"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("type Semaphore", func() {
	When("the semaphore is the zero-value", func() {
		It("imposes no limit", func() {
			var s Semaphore

			Expect(s.Limit()).To(Equal(0))

			for i := 0; i < 100; i++ {
				Expect(s.Acquire(context.Background())).To(Succeed())
			}

			Expect(s.TryAcquire()).To(BeTrue())
		})
	})

	When("the semaphore has a limit", func() {
		It("blocks once the limit is reached", func() {
			s := New(1)
			Expect(s.Limit()).To(Equal(1))

			err := s.Acquire(context.Background())
			Expect(err).ShouldNot(HaveOccurred())
			Expect(s.TryAcquire()).To(BeFalse())

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
			defer cancel()

			err = s.Acquire(ctx)
			Expect(err).To(Equal(context.DeadlineExceeded))

			s.Release()
			Expect(s.TryAcquire()).To(BeTrue())
		})
	})

	It("treats a non-positive limit as unlimited", func() {
		s := New(0)
		Expect(s.Limit()).To(Equal(0))
	})
})
