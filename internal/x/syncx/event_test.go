package syncx_test

import (
	"context"
	"time"

	. "github.com/kakkerlakgly/adapterkit/internal/x/syncx"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("type Event", func() {
	It("is unset by default", func() {
		var e Event
		Expect(e.IsSet()).To(BeFalse())
	})

	It("stays set", func() {
		var e Event
		e.Set()
		e.Set()
		Expect(e.IsSet()).To(BeTrue())
		Eventually(e.Done()).Should(BeClosed())
	})

	Describe("func Wait()", func() {
		It("returns when the event is set", func() {
			var e Event

			go func() {
				time.Sleep(5 * time.Millisecond)
				e.Set()
			}()

			err := e.Wait(context.Background())
			Expect(err).ShouldNot(HaveOccurred())
		})

		It("returns an error if the context is canceled", func() {
			var e Event

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
			defer cancel()

			err := e.Wait(ctx)
			Expect(err).To(Equal(context.DeadlineExceeded))
		})
	})
})
