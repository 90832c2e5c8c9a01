package boltdbtest

import (
	"os"
	"sync"

	"go.etcd.io/bbolt"
)

// Open opens a BoltDB database using a temporary file.
//
// The returned function must be used to close the database, instead of
// DB.Close().
func Open() (*bbolt.DB, func()) {
	filename, remove := TempFile()

	db, err := bbolt.Open(filename, 0600, nil)
	if err != nil {
		remove()
		panic(err)
	}

	return db, func() {
		db.Close()
		remove()
	}
}

// TempFile returns the name of a temporary file to be used for a BoltDB
// database. The file itself does not exist, so that the code under test is
// the one to create it.
//
// It returns a function that deletes the file. It is safe to call the
// function more than once.
func TempFile() (string, func()) {
	f, err := os.CreateTemp("", "*.boltdb")
	if err != nil {
		panic(err)
	}

	file := f.Name()

	if err := f.Close(); err != nil {
		panic(err)
	}

	if err := os.Remove(file); err != nil {
		panic(err)
	}

	var once sync.Once
	return file, func() {
		once.Do(func() {
			os.Remove(file)
		})
	}
}
