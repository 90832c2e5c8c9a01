package txn_test

import (
	"context"
	"errors"
	"time"

	"github.com/kakkerlakgly/adapterkit/batch"
	"github.com/kakkerlakgly/adapterkit/engine"
	"github.com/kakkerlakgly/adapterkit/engine/memoryengine"
	"github.com/kakkerlakgly/adapterkit/gate"
	"github.com/kakkerlakgly/adapterkit/message"
	. "github.com/kakkerlakgly/adapterkit/txn"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("type Batch", func() {
	var (
		ctx    context.Context
		cancel context.CancelFunc
		eng    *memoryengine.Engine
		tx     *LocalTransaction
		g      *gate.Gate
		event  *Event
		m1, m2 *message.Message
	)

	BeforeEach(func() {
		ctx, cancel = context.WithTimeout(context.Background(), 2*time.Second)
		eng = &memoryengine.Engine{}
		tx = NewLocalTransaction()
		g = &gate.Gate{}
		event = &Event{}

		m1 = message.NewBytes([]byte("<m1>"))
		m2 = message.NewBytes([]byte("<m2>"))
	})

	AfterEach(func() {
		eng.Wait()
		cancel()
	})

	failSubmitsOf := func(messages ...*message.Message) {
		eng.Fault = func(k engine.Kind, m *message.Message) engine.Status {
			for _, x := range messages {
				if k == engine.Submit && m == x {
					return engine.StatusFailed
				}
			}
			return engine.StatusOK
		}
	}

	submit := func(p Policy, messages ...*message.Message) *Batch {
		b, err := New(eng, tx, g, p, WithOrderedEvent(event))
		Expect(err).ShouldNot(HaveOccurred())

		for _, m := range messages {
			Expect(b.AddSubmit(m, nil)).To(Succeed())
		}

		Expect(b.Done(ctx)).To(Succeed())

		return b
	}

	wait := func(b *Batch) State {
		s, err := b.Wait(ctx)
		Expect(err).ShouldNot(HaveOccurred())
		eng.Wait()
		return s
	}

	expectSettled := func() {
		Expect(g.Count()).To(Equal(0))
		Expect(event.IsSet()).To(BeTrue())
	}

	Describe("func Done()", func() {
		It("holds an activity permit until the transaction is resolved", func() {
			eng.Latency = 20 * time.Millisecond

			b := submit(AbortOnAnyFailure(nil), m1)
			Expect(g.Count()).To(Equal(1))

			wait(b)
			expectSettled()
		})

		It("returns an error if the gate is draining", func() {
			g.Drain()

			b, err := New(eng, tx, g, AbortOnAnyFailure(nil))
			Expect(err).ShouldNot(HaveOccurred())
			Expect(b.AddSubmit(m1, nil)).To(Succeed())

			err = b.Done(ctx)
			Expect(err).To(Equal(gate.ErrDraining))
			Expect(eng.Batches()).To(Equal(0))
		})

		It("rolls back the transaction and releases the permit if the engine refuses the batch", func() {
			eng.DoneFault = func([]memoryengine.Operation) error {
				return errors.New("<error>")
			}

			b, err := New(eng, tx, g, AbortOnAnyFailure(nil), WithOrderedEvent(event))
			Expect(err).ShouldNot(HaveOccurred())
			Expect(b.AddSubmit(m1, nil)).To(Succeed())

			err = b.Done(ctx)
			Expect(err).To(MatchError("<error>"))

			Expect(wait(b)).To(Equal(Abort))
			Expect(tx.Calls()).To(Equal([]string{"rollback"}))
			Expect(eng.Confirmations()).To(BeEmpty())
			expectSettled()
		})
	})

	Describe("func AbortOnAnyFailure()", func() {
		It("commits the transaction if every message succeeded", func() {
			aborted := false
			b := submit(AbortOnAnyFailure(func() { aborted = true }), m1, m2)

			Expect(wait(b)).To(Equal(Commit))
			Expect(aborted).To(BeFalse())
			Expect(tx.Calls()).To(Equal([]string{"prepare", "commit"}))
			Expect(eng.Confirmations()).To(Equal([]bool{true}))
			Expect(eng.Submitted()).To(Equal([]*message.Message{m1, m2}))
			expectSettled()
		})

		It("aborts the transaction if any message failed", func() {
			failSubmitsOf(m2)

			aborted := false
			b := submit(AbortOnAnyFailure(func() { aborted = true }), m1, m2)

			Expect(wait(b)).To(Equal(Abort))
			Expect(aborted).To(BeTrue())
			Expect(tx.Calls()).To(Equal([]string{"rollback"}))
			Expect(eng.Confirmations()).To(Equal([]bool{false}))
			Expect(eng.Submitted()).To(BeEmpty())
			expectSettled()
		})

		It("aborts the transaction if a message was rejected", func() {
			eng.Fault = func(_ engine.Kind, m *message.Message) engine.Status {
				if m == m2 {
					return engine.StatusRejected
				}
				return engine.StatusOK
			}

			b := submit(AbortOnAnyFailure(nil), m1, m2)

			Expect(wait(b)).To(Equal(Abort))
		})
	})

	Describe("func AbortOnHardFailureOnly()", func() {
		It("commits the transaction if a message was rejected", func() {
			eng.Fault = func(_ engine.Kind, m *message.Message) engine.Status {
				if m == m2 {
					return engine.StatusRejected
				}
				return engine.StatusOK
			}

			stopped := false
			b := submit(AbortOnHardFailureOnly(func() { stopped = true }), m1, m2)

			Expect(wait(b)).To(Equal(Commit))
			Expect(stopped).To(BeFalse())
			Expect(eng.Submitted()).To(Equal([]*message.Message{m1}))
		})

		It("aborts the transaction if the batch failed", func() {
			failSubmitsOf(m1)

			stopped := false
			b := submit(AbortOnHardFailureOnly(func() { stopped = true }), m1, m2)

			Expect(wait(b)).To(Equal(Abort))
			Expect(stopped).To(BeTrue())
			Expect(eng.Confirmations()).To(Equal([]bool{false}))
		})
	})

	Describe("func SingleMessageRetryToSuspend()", func() {
		It("commits the transaction if the message is submitted", func() {
			b := submit(SingleMessageRetryToSuspend(), m1)

			Expect(wait(b)).To(Equal(Commit))
			Expect(eng.Batches()).To(Equal(1))
			Expect(eng.Confirmations()).To(Equal([]bool{true}))
			expectSettled()
		})

		It("moves the message to the suspended queue if the submission fails", func() {
			failSubmitsOf(m1)

			b := submit(SingleMessageRetryToSuspend(), m1)

			Expect(wait(b)).To(Equal(Commit))

			h := eng.History()
			Expect(h).To(HaveLen(2))
			Expect(h[1].Count(engine.MoveToSuspend)).To(Equal(1))
			Expect(h[1].Operations[0].Message).To(BeIdenticalTo(m1))

			Expect(tx.Calls()).To(Equal([]string{"prepare", "commit"}))
			Expect(eng.Confirmations()).To(Equal([]bool{true}))
			Expect(eng.Suspended()).To(Equal([]*message.Message{m1}))
			expectSettled()
		})

		It("defers the resolution until the suspend batch completes", func() {
			failSubmitsOf(m1)
			eng.Latency = 100 * time.Millisecond

			b := submit(SingleMessageRetryToSuspend(), m1)

			Eventually(eng.Batches).Should(Equal(1))
			Consistently(b.Resolved(), 20*time.Millisecond).ShouldNot(BeClosed())
			Expect(g.Count()).To(Equal(1))

			Expect(wait(b)).To(Equal(Commit))
			expectSettled()
		})

		It("aborts the transaction if the message can not be suspended", func() {
			eng.Fault = func(engine.Kind, *message.Message) engine.Status {
				return engine.StatusFailed
			}

			b := submit(SingleMessageRetryToSuspend(), m1)

			Expect(wait(b)).To(Equal(Abort))
			Expect(eng.Batches()).To(Equal(2))
			Expect(tx.Calls()).To(Equal([]string{"rollback"}))
			Expect(eng.Confirmations()).To(Equal([]bool{false}))
			expectSettled()
		})

		It("aborts the transaction if the suspend batch can not be submitted", func() {
			failSubmitsOf(m1)
			eng.DoneFault = func(ops []memoryengine.Operation) error {
				if ops[0].Kind == engine.MoveToSuspend {
					return errors.New("<error>")
				}
				return nil
			}

			b := submit(SingleMessageRetryToSuspend(), m1)

			Expect(wait(b)).To(Equal(Abort))
			Expect(eng.Confirmations()).To(Equal([]bool{false}))
			expectSettled()
		})

		It("rejects a batch that does not contain exactly one message", func() {
			b, err := New(eng, tx, g, SingleMessageRetryToSuspend())
			Expect(err).ShouldNot(HaveOccurred())
			Expect(b.AddSubmit(m1, nil)).To(Succeed())
			Expect(b.AddSubmit(m2, nil)).To(Succeed())

			err = b.Done(ctx)
			Expect(err).To(MatchError(ErrNotSingleMessage))

			var v batch.ContractViolation
			Expect(errors.As(err, &v)).To(BeTrue())
			Expect(g.Count()).To(Equal(0))
		})
	})

	When("the transaction can not be resolved", func() {
		It("aborts the transaction if the commit fails", func() {
			tx.CommitError = errors.New("<error>")

			b := submit(AbortOnAnyFailure(nil), m1)

			Expect(wait(b)).To(Equal(Abort))
			Expect(tx.Calls()).To(Equal([]string{"prepare", "commit", "rollback"}))
			Expect(eng.Confirmations()).To(Equal([]bool{false}))
			expectSettled()
		})

		It("reports a negative confirmation if the positive confirmation fails", func() {
			eng.ConfirmFault = func(committed bool) error {
				if committed {
					return errors.New("<error>")
				}
				return nil
			}

			b := submit(AbortOnAnyFailure(nil), m1)

			Expect(wait(b)).To(Equal(Commit))
			Expect(eng.Confirmations()).To(Equal([]bool{false}))
			expectSettled()
		})

		It("swallows the failure of the negative confirmation", func() {
			eng.ConfirmFault = func(bool) error {
				return errors.New("<error>")
			}

			b := submit(AbortOnAnyFailure(nil), m1)

			Expect(wait(b)).To(Equal(Commit))
			Expect(eng.Confirmations()).To(BeEmpty())
			expectSettled()
		})
	})

	It("resolves the transaction exactly once across follow-up batches", func() {
		failSubmitsOf(m1)

		depth := 0
		var policy Policy
		policy = PolicyFunc(func(ctx context.Context, b *Batch, r batch.Result) Decision {
			if depth == 3 {
				return Decision{State: Commit}
			}
			depth++

			f, err := b.FollowUp(policy)
			Expect(err).ShouldNot(HaveOccurred())
			Expect(f.AddDelete(m2, nil)).To(Succeed())
			Expect(f.Done(ctx)).To(Succeed())

			return Decision{State: Abort, Pending: true}
		})

		b := submit(policy, m1)

		Expect(wait(b)).To(Equal(Commit))
		Expect(eng.Batches()).To(Equal(4))
		Expect(tx.Calls()).To(Equal([]string{"prepare", "commit"}))
		Expect(eng.Confirmations()).To(Equal([]bool{true}))
		expectSettled()
	})
})

var _ = Describe("type LocalTransaction", func() {
	It("can not be used after it has ended", func() {
		tx := NewLocalTransaction()
		Expect(tx.ID()).NotTo(BeEmpty())

		Expect(tx.Rollback(context.Background())).To(Succeed())
		Expect(tx.RolledBack()).To(BeTrue())

		err := tx.Rollback(context.Background())
		Expect(err).To(Equal(ErrTransactionEnded))

		err = tx.Prepare(context.Background())
		Expect(err).To(Equal(ErrTransactionEnded))
		Expect(tx.Committed()).To(BeFalse())
	})

	It("requires prepare before commit", func() {
		tx := NewLocalTransaction()

		err := tx.Commit(context.Background())
		Expect(err).To(HaveOccurred())

		Expect(tx.Prepare(context.Background())).To(Succeed())
		Expect(tx.Commit(context.Background())).To(Succeed())
		Expect(tx.Committed()).To(BeTrue())
	})
})

var _ = Describe("type State", func() {
	It("has a human readable name", func() {
		Expect(Undecided.String()).To(Equal("undecided"))
		Expect(Commit.String()).To(Equal("commit"))
		Expect(Abort.String()).To(Equal("abort"))
	})
})
