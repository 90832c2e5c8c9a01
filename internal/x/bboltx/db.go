package bboltx

import (
	"context"
	"os"

	"github.com/dogmatiq/linger"
	"go.etcd.io/bbolt"
)

// Open creates and opens a database at the given path.
//
// If mode is zero, 0600 is used. The deadline from ctx, if any, limits how
// long Open() waits for the file lock held by another process.
func Open(
	ctx context.Context,
	path string,
	mode os.FileMode,
	opts *bbolt.Options,
) (*bbolt.DB, error) {
	if mode == 0 {
		mode = 0600
	}

	if ctx.Err() != nil {
		// A non-positive timeout in the BoltDB options means "use the default
		// timeout", so bail early if the context has already ended.
		return nil, ctx.Err()
	}

	if timeout, ok := linger.FromContextDeadline(ctx); ok {
		clone := *bbolt.DefaultOptions
		if opts != nil {
			clone = *opts
		}

		if clone.Timeout == 0 || clone.Timeout > timeout {
			clone.Timeout = timeout
		}

		opts = &clone
	}

	db, err := bbolt.Open(path, mode, opts)

	if err == bbolt.ErrTimeout {
		err = context.DeadlineExceeded
	}

	return db, err
}

// Update executes fn within a read-write transaction.
//
// Panics caused by Must() within fn are returned as errors and cause the
// transaction to be rolled back.
func Update(db *bbolt.DB, fn func(tx *bbolt.Tx)) error {
	return db.Update(
		func(tx *bbolt.Tx) (err error) {
			defer Recover(&err)
			fn(tx)
			return nil
		},
	)
}

// View executes fn within a read-only transaction.
//
// Panics caused by Must() within fn are returned as errors.
func View(db *bbolt.DB, fn func(tx *bbolt.Tx)) error {
	return db.View(
		func(tx *bbolt.Tx) (err error) {
			defer Recover(&err)
			fn(tx)
			return nil
		},
	)
}
