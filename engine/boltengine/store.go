package boltengine

import (
	"context"
	"time"

	"github.com/kakkerlakgly/adapterkit/internal/x/bboltx"
	"github.com/kakkerlakgly/adapterkit/message"
	"go.etcd.io/bbolt"
)

// Entry is a message stored in a bucket.
type Entry struct {
	// Key is the key the message is stored under.
	Key string

	// Message is the stored message.
	Message *message.Message

	// Due is the time at which a resubmitted message is redelivered. It is
	// the zero value for messages in other buckets.
	Due time.Time
}

// List returns the messages in the named bucket, in key order.
func (e *Engine) List(ctx context.Context, bucket string) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var entries []Entry

	err := bboltx.View(e.db, func(tx *bbolt.Tx) {
		b := bboltx.Bucket(tx, []byte(bucket))
		if b == nil {
			bboltx.Must(ErrUnknownBucket)
		}

		bboltx.Must(b.ForEach(func(k, v []byte) error {
			r := unmarshalRecord(v)
			e := Entry{
				Key:     string(k),
				Message: r.Message(),
			}
			if r.Due != 0 {
				e.Due = time.Unix(0, r.Due)
			}
			entries = append(entries, e)
			return nil
		}))
	})

	return entries, err
}

// Purge removes every message from the named bucket and returns the number
// of messages removed.
func (e *Engine) Purge(ctx context.Context, bucket string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	var n int

	err := bboltx.Update(e.db, func(tx *bbolt.Tx) {
		b := bboltx.Bucket(tx, []byte(bucket))
		if b == nil {
			bboltx.Must(ErrUnknownBucket)
		}

		n = bboltx.Clear(b)
	})

	return n, err
}

// Counts returns the number of messages in each bucket.
func (e *Engine) Counts(ctx context.Context) (map[string]int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	counts := map[string]int{}

	err := bboltx.View(e.db, func(tx *bbolt.Tx) {
		for _, n := range BucketNames {
			counts[n] = bboltx.Bucket(tx, []byte(n)).Stats().KeyN
		}
	})

	return counts, err
}
