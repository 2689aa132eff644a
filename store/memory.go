package store

import (
	"io"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

// Memory is an in-memory Store. It is intended for testing and for running
// a throwaway server without touching the disk.
type Memory struct {
	m     sync.RWMutex
	store map[string][]byte
}

var _ Store = &Memory{}

// ErrNoKey is returned by Open when the key is not in the store.
var ErrNoKey = errors.New("key does not exist")

// NewMemory returns a new, empty memory store.
func NewMemory() *Memory {
	return &Memory{store: make(map[string][]byte)}
}

// List returns a channel giving every key in the store.
func (ms *Memory) List() <-chan string {
	c := make(chan string)
	go func() {
		ms.m.RLock()
		keys := make([]string, 0, len(ms.store))
		for k := range ms.store {
			keys = append(keys, k)
		}
		ms.m.RUnlock()
		for _, k := range keys {
			c <- k
		}
		close(c)
	}()
	return c
}

// ListPrefix returns every key beginning with the given prefix.
func (ms *Memory) ListPrefix(prefix string) ([]string, error) {
	var result []string
	ms.m.RLock()
	for k := range ms.store {
		if strings.HasPrefix(k, prefix) {
			result = append(result, k)
		}
	}
	ms.m.RUnlock()
	return result, nil
}

// Open returns a reader over the value of the given key, along with its size.
func (ms *Memory) Open(key string) (ReadAtCloser, int64, error) {
	ms.m.RLock()
	v, ok := ms.store[key]
	ms.m.RUnlock()
	if !ok {
		return nil, 0, errors.Wrap(ErrNoKey, key)
	}
	return membuf(v), int64(len(v)), nil
}

// membuf is a snapshot of a value. Readers are unaffected by later
// deletes or replacements of the key.
type membuf []byte

func (b membuf) ReadAt(p []byte, off int64) (int, error) {
	if off >= int64(len(b)) {
		return 0, io.EOF
	}
	n := copy(p, b[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (b membuf) Close() error { return nil }

// Create makes a new entry in the store and returns a writer for its value.
// The value becomes visible to Open once the writer is closed.
func (ms *Memory) Create(key string) (io.WriteCloser, error) {
	ms.m.Lock()
	defer ms.m.Unlock()
	if _, ok := ms.store[key]; ok {
		return nil, errors.Wrap(ErrKeyExists, key)
	}
	// reserve the key so concurrent Creates fail
	ms.store[key] = nil
	return &memwriter{parent: ms, key: key}, nil
}

type memwriter struct {
	parent *Memory
	key    string
	b      []byte
}

func (w *memwriter) Write(p []byte) (int, error) {
	w.b = append(w.b, p...)
	return len(p), nil
}

func (w *memwriter) Close() error {
	w.parent.m.Lock()
	w.parent.store[w.key] = w.b
	w.parent.m.Unlock()
	return nil
}

// Delete removes the given key. It is not an error to delete a key that
// does not exist.
func (ms *Memory) Delete(key string) error {
	ms.m.Lock()
	delete(ms.store, key)
	ms.m.Unlock()
	return nil
}
