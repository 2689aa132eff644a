// Package store provides a simple, goroutine safe key-value interface where
// values are streams instead of opaque byte arrays. The file records and the
// node payloads kept by the pstore service are both persisted through this
// interface, which keeps the choice of storage engine outside of the core.
//
// The FileSystem store is the one to use in production. The others are for
// testing or specialized deployments.
package store

import (
	"io"
)

// ReadAtCloser combines the io.ReaderAt and io.Closer interfaces.
type ReadAtCloser interface {
	io.ReaderAt
	io.Closer
}

// Store is the basic stream based key-value store. Values are immutable
// once written; to replace one, delete the key and create it again.
//
// The FileSystem store uses keys as file names, so keys must not contain
// a forward slash.
type Store interface {
	ROStore
	Create(key string) (io.WriteCloser, error)
	Delete(key string) error
}

// ROStore is the read-only part of a Store.
type ROStore interface {
	List() <-chan string
	ListPrefix(prefix string) ([]string, error)
	Open(key string) (ReadAtCloser, int64, error)
}

// NewReader converts an io.ReaderAt into an io.Reader reading from offset 0.
func NewReader(r io.ReaderAt) io.Reader {
	return &reader{r: r}
}

type reader struct {
	r   io.ReaderAt
	off int64
}

func (r *reader) Read(p []byte) (n int, err error) {
	n, err = r.r.ReadAt(p, r.off)
	r.off += int64(n)
	if err == io.EOF && n > 0 {
		// a short read is not an error for an io.Reader
		err = nil
	}
	return
}
