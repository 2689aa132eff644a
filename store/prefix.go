package store

import (
	"io"
	"strings"
)

// NewWithPrefix wraps the store s with one prefixing every key by prefix.
// It lets several collections, such as file records and node payloads,
// share one underlying store without colliding.
func NewWithPrefix(s Store, prefix string) Store {
	return prefixstore{s: s, p: prefix}
}

type prefixstore struct {
	s Store
	p string
}

func (ps prefixstore) List() <-chan string {
	out := make(chan string)
	go func() {
		for key := range ps.s.List() {
			if strings.HasPrefix(key, ps.p) {
				out <- key[len(ps.p):]
			}
		}
		close(out)
	}()
	return out
}

func (ps prefixstore) ListPrefix(prefix string) ([]string, error) {
	var result []string
	keys, err := ps.s.ListPrefix(ps.p + prefix)
	for _, key := range keys {
		if strings.HasPrefix(key, ps.p) {
			result = append(result, key[len(ps.p):])
		}
	}
	return result, err
}

func (ps prefixstore) Open(key string) (ReadAtCloser, int64, error) {
	return ps.s.Open(ps.p + key)
}

func (ps prefixstore) Create(key string) (io.WriteCloser, error) {
	return ps.s.Create(ps.p + key)
}

func (ps prefixstore) Delete(key string) error {
	return ps.s.Delete(ps.p + key)
}
