package pstore

import (
	"io"

	"github.com/permastore/pstore/store"
)

// nodeReader is an io.ReadCloser spanning a list of node keys. Each node is
// opened and closed in turn, so at most one is open at a time.
type nodeReader struct {
	s    store.Store // the store holding the payloads
	keys []string    // next one to open is at index 0
	r    store.ReadAtCloser
	off  int64 // offset into r to read from next
}

func (nr *nodeReader) Read(p []byte) (int, error) {
	for len(nr.keys) > 0 || nr.r != nil {
		var err error
		if nr.r == nil {
			nr.r, _, err = nr.s.Open(nr.keys[0])
			if err != nil {
				return 0, err
			}
			nr.off = 0
			nr.keys = nr.keys[1:]
		}
		n, err := nr.r.ReadAt(p, nr.off)
		nr.off += int64(n)
		if err == io.EOF {
			// check the remaining nodes before reporting EOF
			err = nr.r.Close()
			nr.r = nil
		}
		if n > 0 || err != nil {
			return n, err
		}
	}
	return 0, io.EOF
}

func (nr *nodeReader) Close() error {
	if nr.r != nil {
		return nr.r.Close()
	}
	return nil
}
