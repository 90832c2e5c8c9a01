package gate_test

import (
	"context"
	"runtime"
	"sync"
	"time"

	. "github.com/kakkerlakgly/adapterkit/gate"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("type Gate", func() {
	var g *Gate

	BeforeEach(func() {
		g = &Gate{}
	})

	Describe("func Admit()", func() {
		It("admits activities while the gate is open", func() {
			Expect(g.Admit()).To(BeTrue())
			Expect(g.Admit()).To(BeTrue())
			Expect(g.Count()).To(Equal(2))
		})

		It("refuses activities after Drain() has returned", func() {
			g.Drain()

			Expect(g.Admit()).To(BeFalse())
			Expect(g.Count()).To(Equal(0))
		})

		It("refuses activities while Drain() is blocked", func() {
			Expect(g.Admit()).To(BeTrue())

			go g.Drain()
			Eventually(g.IsDraining).Should(BeTrue())

			Expect(g.Admit()).To(BeFalse())
			g.Release()
		})
	})

	Describe("func AdmitN()", func() {
		It("admits all of the activities at once", func() {
			Expect(g.AdmitN(3)).To(BeTrue())
			Expect(g.Count()).To(Equal(3))
		})

		It("admits nothing when the gate is draining", func() {
			g.Drain()

			Expect(g.AdmitN(3)).To(BeFalse())
			Expect(g.Count()).To(Equal(0))
		})
	})

	Describe("func Release()", func() {
		It("panics if there is no matching admission", func() {
			Expect(func() {
				g.Release()
			}).To(PanicWith("activity gate released more times than it was admitted"))
		})

		It("never allows the count to go negative", func() {
			var wg sync.WaitGroup

			for i := 0; i < 100; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					if g.Admit() {
						Expect(g.Count()).To(BeNumerically(">", 0))
						g.Release()
					}
				}()
			}

			wg.Wait()
			Expect(g.Count()).To(Equal(0))
		})
	})

	Describe("func Drain()", func() {
		It("returns immediately when there are no in-flight activities", func() {
			done := make(chan struct{})

			go func() {
				defer close(done)
				g.Drain()
			}()

			Eventually(done).Should(BeClosed())
		})

		It("blocks until the last in-flight activity is released", func() {
			Expect(g.Admit()).To(BeTrue())
			Expect(g.Admit()).To(BeTrue())

			done := make(chan struct{})

			go func() {
				defer close(done)
				g.Drain()
			}()

			Eventually(g.IsDraining).Should(BeTrue())

			g.Release()
			Consistently(done, 20*time.Millisecond).ShouldNot(BeClosed())

			g.Release()
			Eventually(done).Should(BeClosed())
		})

		It("wakes every concurrent caller", func() {
			Expect(g.Admit()).To(BeTrue())

			var wg sync.WaitGroup
			for i := 0; i < 3; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					g.Drain()
				}()
			}

			done := make(chan struct{})
			go func() {
				wg.Wait()
				close(done)
			}()

			Eventually(g.IsDraining).Should(BeTrue())
			g.Release()

			Eventually(done).Should(BeClosed())
		})
	})

	Describe("func DrainContext()", func() {
		It("returns the context error if activities are still in-flight", func() {
			Expect(g.Admit()).To(BeTrue())
			defer g.Release()

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
			defer cancel()

			err := g.DrainContext(ctx)
			Expect(err).To(Equal(context.DeadlineExceeded))
			Expect(g.IsDraining()).To(BeTrue())
		})

		It("stops waiting when the context is canceled", func() {
			Expect(g.Admit()).To(BeTrue())
			defer g.Release()

			before := runtime.NumGoroutine()

			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			err := g.DrainContext(ctx)
			Expect(err).To(Equal(context.Canceled))
			Eventually(runtime.NumGoroutine).Should(BeNumerically("<=", before))
		})

		It("returns nil if the gate is idle, even if the context is canceled", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			err := g.DrainContext(ctx)
			Expect(err).ShouldNot(HaveOccurred())
		})

		It("returns nil once all activities are released", func() {
			Expect(g.Admit()).To(BeTrue())

			go func() {
				time.Sleep(5 * time.Millisecond)
				g.Release()
			}()

			err := g.DrainContext(context.Background())
			Expect(err).ShouldNot(HaveOccurred())
		})
	})

	Describe("func IsDraining()", func() {
		It("never reverts to false", func() {
			Expect(g.IsDraining()).To(BeFalse())
			g.Drain()
			Expect(g.IsDraining()).To(BeTrue())
			Expect(g.Admit()).To(BeFalse())
			Expect(g.IsDraining()).To(BeTrue())
		})
	})
})
