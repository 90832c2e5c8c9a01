package boltengine

import (
	"time"

	"github.com/kakkerlakgly/adapterkit/engine"
	"github.com/kakkerlakgly/adapterkit/internal/x/bboltx"
	"go.etcd.io/bbolt"
)

// operation is an operation staged in a batch.
type operation struct {
	kind engine.Kind
	key  string // message ID, or correlation token for cancel-request
	due  time.Time
	data []byte
}

// apply applies the operation within tx and returns its per-message status.
func (op operation) apply(tx *bbolt.Tx) engine.Status {
	bucket := func(n string) *bbolt.Bucket {
		return bboltx.Bucket(tx, []byte(n))
	}

	// move stores the record in the destination bucket and removes the
	// message from the inbound queue, if it is there.
	move := func(n string, k []byte) {
		bboltx.Delete(bucket(InboundBucket), []byte(op.key))
		bboltx.Put(bucket(n), k, op.data)
	}

	switch op.kind {
	case engine.Submit:
		bboltx.Put(bucket(SubmittedBucket), []byte(op.key), op.data)

	case engine.SubmitRequest:
		bboltx.Put(bucket(SubmittedBucket), []byte(op.key), op.data)
		bboltx.Put(bucket(RequestsBucket), []byte(unmarshalRecord(op.data).Token), op.data)

	case engine.Delete:
		if !bboltx.Delete(bucket(InboundBucket), []byte(op.key)) {
			return engine.StatusFailed
		}

	case engine.Resubmit:
		move(ResubmitBucket, dueKey(op.due, op.key))

	case engine.MoveToSuspend:
		move(SuspendedBucket, []byte(op.key))

	case engine.MoveToNextTransport:
		move(NextTransportBucket, []byte(op.key))

	case engine.CancelRequest:
		if !bboltx.Delete(bucket(RequestsBucket), []byte(op.key)) {
			return engine.StatusFailed
		}

	case engine.SubmitResponse:
		bboltx.Put(bucket(ResponsesBucket), []byte(op.key), op.data)
	}

	return engine.StatusOK
}
