package dispatch_test

import (
	"context"
	"errors"
	"time"

	. "github.com/kakkerlakgly/adapterkit/dispatch"
	. "github.com/kakkerlakgly/adapterkit/fixtures"
	"github.com/kakkerlakgly/adapterkit/message"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("type Transmitter", func() {
	var (
		ctx         context.Context
		cancel      context.CancelFunc
		opened      []Parameters
		disposed    int
		reuse       bool
		transmitter *Transmitter
	)

	BeforeEach(func() {
		ctx, cancel = context.WithTimeout(context.Background(), 2*time.Second)
		opened = nil
		disposed = 0
		reuse = false

		transmitter = &Transmitter{
			Config: "<config>",
			NewEndpoint: func() Endpoint {
				return &EndpointStub{
					OpenFunc: func(_ context.Context, p Parameters, config any) error {
						Expect(config).To(Equal("<config>"))
						opened = append(opened, p)
						return nil
					},
					ReuseEndpointFunc: func() bool {
						return reuse
					},
					DisposeFunc: func() error {
						disposed++
						return nil
					},
				}
			},
		}
	})

	AfterEach(func() {
		cancel()
	})

	Describe("func Endpoint()", func() {
		It("opens the endpoint with parameters derived from the outbound location", func() {
			m := NewOutboundMessage("m1", "<addr>", 0, 0)

			_, release, err := transmitter.Endpoint(ctx, m)
			Expect(err).ShouldNot(HaveOccurred())
			release()

			Expect(opened).To(Equal([]Parameters{
				{SessionKey: "<addr>", OutboundLocation: "<addr>"},
			}))
		})

		It("uses the custom parameters function if one is set", func() {
			transmitter.Parameters = func(*message.Message) Parameters {
				return Parameters{SessionKey: "<key>"}
			}

			_, release, err := transmitter.Endpoint(ctx, NewMessage("m1"))
			Expect(err).ShouldNot(HaveOccurred())
			release()

			Expect(opened).To(Equal([]Parameters{{SessionKey: "<key>"}}))
		})

		It("disposes of an endpoint that is not reusable when it is released", func() {
			m := NewOutboundMessage("m1", "<addr>", 0, 0)

			for i := 0; i < 2; i++ {
				_, release, err := transmitter.Endpoint(ctx, m)
				Expect(err).ShouldNot(HaveOccurred())
				release()
			}

			Expect(opened).To(HaveLen(2))
			Expect(disposed).To(Equal(2))
		})

		It("reuses an endpoint that opts in to being reused", func() {
			reuse = true
			m := NewOutboundMessage("m1", "<addr>", 0, 0)

			ep1, release, err := transmitter.Endpoint(ctx, m)
			Expect(err).ShouldNot(HaveOccurred())
			release()

			ep2, release, err := transmitter.Endpoint(ctx, m)
			Expect(err).ShouldNot(HaveOccurred())
			release()

			Expect(ep2).To(BeIdenticalTo(ep1))
			Expect(opened).To(HaveLen(1))
			Expect(disposed).To(Equal(0))
		})

		It("does not share endpoints between session keys", func() {
			reuse = true

			ep1, release, err := transmitter.Endpoint(ctx, NewOutboundMessage("m1", "<addr-1>", 0, 0))
			Expect(err).ShouldNot(HaveOccurred())
			release()

			ep2, release, err := transmitter.Endpoint(ctx, NewOutboundMessage("m2", "<addr-2>", 0, 0))
			Expect(err).ShouldNot(HaveOccurred())
			release()

			Expect(ep2).NotTo(BeIdenticalTo(ep1))
		})

		It("blocks until the session's endpoint has been released", func() {
			m := NewOutboundMessage("m1", "<addr>", 0, 0)

			_, release, err := transmitter.Endpoint(ctx, m)
			Expect(err).ShouldNot(HaveOccurred())

			waitCtx, waitCancel := context.WithTimeout(ctx, 10*time.Millisecond)
			defer waitCancel()

			_, _, err = transmitter.Endpoint(waitCtx, m)
			Expect(err).To(Equal(context.DeadlineExceeded))

			release()

			_, release, err = transmitter.Endpoint(ctx, m)
			Expect(err).ShouldNot(HaveOccurred())
			release()
		})

		It("returns an error if the endpoint can not be opened", func() {
			transmitter.NewEndpoint = func() Endpoint {
				return &EndpointStub{
					OpenFunc: func(context.Context, Parameters, any) error {
						return errors.New("<error>")
					},
				}
			}

			_, _, err := transmitter.Endpoint(ctx, NewMessage("m1"))
			Expect(err).To(MatchError("<error>"))

			// The session must have been unlocked.
			_, _, err = transmitter.Endpoint(ctx, NewMessage("m1"))
			Expect(err).To(MatchError("<error>"))
		})

		It("disposes of an endpoint that can not be opened", func() {
			transmitter.NewEndpoint = func() Endpoint {
				return &EndpointStub{
					OpenFunc: func(context.Context, Parameters, any) error {
						return errors.New("<open error>")
					},
					DisposeFunc: func() error {
						disposed++
						return errors.New("<dispose error>")
					},
				}
			}

			_, _, err := transmitter.Endpoint(ctx, NewMessage("m1"))
			Expect(err).To(MatchError(ContainSubstring("<open error>")))
			Expect(err).To(MatchError(ContainSubstring("<dispose error>")))
			Expect(disposed).To(Equal(1))

			Expect(transmitter.Close()).To(Succeed())
			Expect(disposed).To(Equal(1))
		})

		It("returns an error if there is no endpoint factory", func() {
			transmitter.NewEndpoint = nil

			_, _, err := transmitter.Endpoint(ctx, NewMessage("m1"))
			Expect(err).To(MatchError("transmitter has no endpoint factory"))
		})
	})

	Describe("func Close()", func() {
		It("disposes of the cached endpoints", func() {
			reuse = true

			for _, addr := range []string{"<addr-1>", "<addr-2>"} {
				_, release, err := transmitter.Endpoint(ctx, NewOutboundMessage("m", addr, 0, 0))
				Expect(err).ShouldNot(HaveOccurred())
				release()
			}

			Expect(transmitter.Close()).To(Succeed())
			Expect(disposed).To(Equal(2))
		})

		It("returns the errors from disposing of the endpoints", func() {
			transmitter.NewEndpoint = func() Endpoint {
				return &EndpointStub{
					ReuseEndpointFunc: func() bool { return true },
					DisposeFunc: func() error {
						return errors.New("<error>")
					},
				}
			}

			_, release, err := transmitter.Endpoint(ctx, NewMessage("m1"))
			Expect(err).ShouldNot(HaveOccurred())
			release()

			Expect(transmitter.Close()).To(MatchError("<error>"))
		})

		It("prevents further endpoints from being obtained", func() {
			Expect(transmitter.Close()).To(Succeed())

			_, _, err := transmitter.Endpoint(ctx, NewMessage("m1"))
			Expect(err).To(MatchError(ErrClosed))
		})
	})
})
