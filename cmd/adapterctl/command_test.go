package main

import (
	"bytes"
	"context"
	"time"

	"github.com/fatih/color"
	"github.com/kakkerlakgly/adapterkit/engine"
	"github.com/kakkerlakgly/adapterkit/engine/boltengine"
	"github.com/kakkerlakgly/adapterkit/fixtures"
	"github.com/kakkerlakgly/adapterkit/internal/testing/boltdbtest"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("adapterctl", func() {
	var (
		ctx     context.Context
		cancel  context.CancelFunc
		path    string
		remove  func()
		noColor bool
	)

	BeforeEach(func() {
		ctx, cancel = context.WithTimeout(context.Background(), 5*time.Second)

		noColor = color.NoColor
		color.NoColor = true

		path, remove = boltdbtest.TempFile()

		eng, err := boltengine.Open(ctx, path)
		Expect(err).ShouldNot(HaveOccurred())

		m1 := fixtures.NewOutboundMessage("m1", "<addr>", 0, 0)
		m2 := fixtures.NewMessage("m2")
		m2.SetFailureCount(3)

		Expect(eng.Enqueue(ctx, m1)).To(Succeed())
		Expect(eng.Enqueue(ctx, m2)).To(Succeed())

		b, err := eng.NewBatch(func(engine.Outcome) {})
		Expect(err).ShouldNot(HaveOccurred())
		Expect(b.MoveToSuspend(m2)).To(Succeed())
		_, err = b.Done(ctx, nil)
		Expect(err).ShouldNot(HaveOccurred())

		eng.Wait()
		Expect(eng.Close()).To(Succeed())
	})

	AfterEach(func() {
		color.NoColor = noColor
		remove()
		cancel()
	})

	run := func(args ...string) (string, error) {
		var out bytes.Buffer

		cmd := newRootCommand()
		cmd.SetArgs(append([]string{"--db", path}, args...))
		cmd.SetOut(&out)
		cmd.SetErr(&out)

		err := cmd.ExecuteContext(ctx)
		return out.String(), err
	}

	Describe("buckets", func() {
		It("shows the number of messages in each bucket", func() {
			out, err := run("buckets")
			Expect(err).ShouldNot(HaveOccurred())
			Expect(out).To(ContainSubstring("inbound          1\n"))
			Expect(out).To(ContainSubstring("suspended        1\n"))
			Expect(out).To(ContainSubstring("submitted        0\n"))
		})
	})

	Describe("list", func() {
		It("lists the messages in a bucket", func() {
			out, err := run("list", boltengine.InboundBucket)
			Expect(err).ShouldNot(HaveOccurred())
			Expect(out).To(Equal("<m1-id>  to <addr>  4 byte(s)\n"))
		})

		It("shows the failure count", func() {
			out, err := run("list", boltengine.SuspendedBucket)
			Expect(err).ShouldNot(HaveOccurred())
			Expect(out).To(Equal("<m2-id>  failures=3  4 byte(s)\n"))
		})

		It("shows properties when requested", func() {
			out, err := run("list", "--properties", boltengine.InboundBucket)
			Expect(err).ShouldNot(HaveOccurred())
			Expect(out).To(ContainSubstring("    OutboundTransportLocation = <addr>\n"))
		})

		It("reports an empty bucket", func() {
			out, err := run("list", boltengine.SubmittedBucket)
			Expect(err).ShouldNot(HaveOccurred())
			Expect(out).To(Equal("(no messages)\n"))
		})

		It("returns an error if the bucket does not exist", func() {
			_, err := run("list", "<unknown>")
			Expect(err).To(MatchError(boltengine.ErrUnknownBucket))
		})
	})

	Describe("purge", func() {
		It("removes every message from the bucket", func() {
			out, err := run("purge", boltengine.SuspendedBucket)
			Expect(err).ShouldNot(HaveOccurred())
			Expect(out).To(Equal("purged 1 message(s) from suspended\n"))

			out, err = run("list", boltengine.SuspendedBucket)
			Expect(err).ShouldNot(HaveOccurred())
			Expect(out).To(Equal("(no messages)\n"))
		})
	})
})
