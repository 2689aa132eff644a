package store

import (
	"io"
	"testing"
)

func TestMemoryRoundTrip(t *testing.T) {
	ms := NewMemory()
	w, err := ms.Create("hello")
	if err != nil {
		t.Fatalf("received %s, expected nil", err)
	}
	w.Write([]byte("some "))
	w.Write([]byte("data"))
	w.Close()

	r, size, err := ms.Open("hello")
	if err != nil {
		t.Fatalf("received %s, expected nil", err)
	}
	if size != 9 {
		t.Errorf("received size %d, expected 9", size)
	}
	result, _ := io.ReadAll(NewReader(r))
	r.Close()
	if string(result) != "some data" {
		t.Errorf("read %q, expected %q", result, "some data")
	}

	if _, err = ms.Create("hello"); err == nil {
		t.Errorf("duplicate create succeeded, expected error")
	}

	if err = ms.Delete("hello"); err != nil {
		t.Fatalf("received %s, expected nil", err)
	}
	if _, _, err = ms.Open("hello"); err == nil {
		t.Errorf("open after delete succeeded, expected error")
	}
	// deleting a missing key is fine
	if err = ms.Delete("hello"); err != nil {
		t.Errorf("received %s, expected nil", err)
	}
}

func TestMemoryListPrefix(t *testing.T) {
	ms := NewMemory()
	for _, key := range []string{"mda", "mdb", "fa", "fb"} {
		w, _ := ms.Create(key)
		w.Write([]byte("x"))
		w.Close()
	}
	keys, err := ms.ListPrefix("md")
	if err != nil {
		t.Fatalf("received %s, expected nil", err)
	}
	if len(keys) != 2 {
		t.Errorf("received %v, expected 2 keys", keys)
	}
	var count int
	for range ms.List() {
		count++
	}
	if count != 4 {
		t.Errorf("List gave %d keys, expected 4", count)
	}
}

func TestPrefixStore(t *testing.T) {
	ms := NewMemory()
	ps := NewWithPrefix(ms, "n")
	w, err := ps.Create("abc")
	if err != nil {
		t.Fatalf("received %s, expected nil", err)
	}
	w.Write([]byte("zzz"))
	w.Close()

	// visible through the prefix wrapper under the short name
	if _, _, err := ps.Open("abc"); err != nil {
		t.Errorf("received %s, expected nil", err)
	}
	// and through the base store under the long name
	if _, _, err := ms.Open("nabc"); err != nil {
		t.Errorf("received %s, expected nil", err)
	}
	keys, _ := ps.ListPrefix("")
	if len(keys) != 1 || keys[0] != "abc" {
		t.Errorf("received %v, expected [abc]", keys)
	}
	if err := ps.Delete("abc"); err != nil {
		t.Fatalf("received %s, expected nil", err)
	}
	if _, _, err := ms.Open("nabc"); err == nil {
		t.Errorf("base key survived delete through wrapper")
	}
}
