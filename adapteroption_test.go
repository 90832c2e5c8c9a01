package adapterkit

import (
	"time"

	"github.com/dogmatiq/dodeca/logging"
	"github.com/kakkerlakgly/adapterkit/dispatch"
	"github.com/kakkerlakgly/adapterkit/engine/memoryengine"
	"github.com/kakkerlakgly/adapterkit/fixtures"
	"github.com/kakkerlakgly/adapterkit/message"
	"github.com/kakkerlakgly/adapterkit/retry"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("func WithEngine()", func() {
	It("sets the engine", func() {
		e := &memoryengine.Engine{}

		opts := resolveOptions(
			WithEngine(e),
		)

		Expect(opts.Engine).To(BeIdenticalTo(e))
	})

	It("uses a new in-memory engine if the engine is nil", func() {
		opts := resolveOptions(
			WithEngine(nil),
		)

		Expect(opts.Engine).To(BeAssignableToTypeOf(&memoryengine.Engine{}))
	})
})

var _ = Describe("func WithLogger()", func() {
	It("sets the logger", func() {
		l := &logging.BufferedLogger{}

		opts := resolveOptions(
			WithLogger(l),
		)

		Expect(opts.Logger).To(BeIdenticalTo(l))
	})

	It("uses the default if the logger is nil", func() {
		opts := resolveOptions(
			WithLogger(nil),
		)

		Expect(opts.Logger).To(Equal(DefaultLogger))
	})
})

var _ = Describe("func WithCascadeDepth()", func() {
	It("sets the cascade depth", func() {
		opts := resolveOptions(
			WithCascadeDepth(3),
		)

		Expect(*opts.CascadeDepth).To(Equal(3))
	})

	It("allows retries to be disabled", func() {
		opts := resolveOptions(
			WithCascadeDepth(0),
		)

		Expect(*opts.CascadeDepth).To(Equal(0))
	})

	It("uses the default if the option is omitted", func() {
		opts := resolveOptions()

		Expect(*opts.CascadeDepth).To(Equal(DefaultCascadeDepth))
	})

	It("panics if the depth is less than zero", func() {
		Expect(func() {
			WithCascadeDepth(-1)
		}).To(Panic())
	})
})

var _ = Describe("func WithConcurrencyLimit()", func() {
	It("sets the concurrency limit", func() {
		opts := resolveOptions(
			WithConcurrencyLimit(10),
		)

		Expect(opts.ConcurrencyLimit).To(BeEquivalentTo(10))
	})

	It("uses the default if the limit is zero", func() {
		opts := resolveOptions(
			WithConcurrencyLimit(0),
		)

		Expect(opts.ConcurrencyLimit).To(Equal(DefaultConcurrencyLimit))
	})
})

var _ = Describe("func WithRetryPolicy()", func() {
	It("sets the retry policy", func() {
		p := retry.Fixed(10 * time.Second)

		opts := resolveOptions(
			WithRetryPolicy(p),
		)

		now := time.Now()
		Expect(opts.RetryPolicy.NextRetry(now, 0, nil)).To(Equal(now.Add(10 * time.Second)))
	})

	It("uses the default if the policy is nil", func() {
		opts := resolveOptions(
			WithRetryPolicy(nil),
		)

		Expect(opts.RetryPolicy).To(BeAssignableToTypeOf(DefaultRetryPolicy))
	})
})

var _ = Describe("func WithEndpointFactory()", func() {
	It("sets the endpoint factory", func() {
		ep := &fixtures.EndpointStub{}

		opts := resolveOptions(
			WithEndpointFactory(func() dispatch.Endpoint {
				return ep
			}),
		)

		Expect(opts.NewEndpoint()).To(BeIdenticalTo(ep))
	})
})

var _ = Describe("func WithEndpointParameters()", func() {
	It("sets the endpoint parameters function", func() {
		opts := resolveOptions(
			WithEndpointParameters(func(*message.Message) dispatch.Parameters {
				return dispatch.Parameters{SessionKey: "<key>"}
			}),
		)

		p := opts.EndpointParameters(fixtures.NewMessage("m1"))
		Expect(p.SessionKey).To(Equal("<key>"))
	})

	It("keys endpoints by outbound location by default", func() {
		opts := resolveOptions()

		m := fixtures.NewOutboundMessage("m1", "<addr>", 0, 0)
		p := opts.EndpointParameters(m)
		Expect(p.SessionKey).To(Equal("<addr>"))
	})
})

var _ = Describe("func WithEndpointConfig()", func() {
	It("sets the endpoint configuration", func() {
		opts := resolveOptions(
			WithEndpointConfig("<config>"),
		)

		Expect(opts.EndpointConfig).To(Equal("<config>"))
	})
})

var _ = Describe("func WithMaxBatchSize()", func() {
	It("sets the maximum batch size", func() {
		opts := resolveOptions(
			WithMaxBatchSize(5),
		)

		Expect(opts.MaxBatchSize).To(Equal(5))
	})

	It("uses the default if the size is zero", func() {
		opts := resolveOptions(
			WithMaxBatchSize(0),
		)

		Expect(opts.MaxBatchSize).To(Equal(DefaultMaxBatchSize))
	})

	It("panics if the size is less than zero", func() {
		Expect(func() {
			WithMaxBatchSize(-1)
		}).To(Panic())
	})
})
