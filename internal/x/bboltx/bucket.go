package bboltx

import "go.etcd.io/bbolt"

// BucketParent is a transaction or bucket that holds named buckets. The
// engine keeps one top-level bucket per message destination.
type BucketParent interface {
	CreateBucketIfNotExists([]byte) (*bbolt.Bucket, error)
	Bucket([]byte) *bbolt.Bucket
}

var (
	_ BucketParent = (*bbolt.Tx)(nil)
	_ BucketParent = (*bbolt.Bucket)(nil)
)

// CreateBucketIfNotExists creates nested buckets with names given by the
// elements of path.
func CreateBucketIfNotExists(p BucketParent, path ...[]byte) *bbolt.Bucket {
	if len(path) == 0 {
		panic("at least one path element must be provided")
	}

	var (
		b   *bbolt.Bucket
		err error
	)

	for _, n := range path {
		b, err = p.CreateBucketIfNotExists(n)
		Must(err)

		p = b
	}

	return b
}

// Bucket gets nested buckets with names given by the elements of path.
//
// It returns nil if any of the nested buckets does not exist.
func Bucket(p BucketParent, path ...[]byte) (b *bbolt.Bucket) {
	if len(path) == 0 {
		panic("at least one path element must be provided")
	}

	for _, n := range path {
		b = p.Bucket(n)
		if b == nil {
			return nil
		}

		p = b
	}

	return b
}

// Put writes a value to a bucket.
func Put(b *bbolt.Bucket, k, v []byte) {
	Must(b.Put(k, v))
}

// Delete removes a key from a bucket.
//
// It returns false if the key did not exist.
func Delete(b *bbolt.Bucket, k []byte) bool {
	if b.Get(k) == nil {
		return false
	}

	Must(b.Delete(k))

	return true
}

// Clear removes every key in a bucket and returns the number of keys
// removed.
func Clear(b *bbolt.Bucket) int {
	var keys [][]byte

	Must(b.ForEach(func(k, _ []byte) error {
		keys = append(keys, k)
		return nil
	}))

	for _, k := range keys {
		Must(b.Delete(k))
	}

	return len(keys)
}
