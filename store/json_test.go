package store

import (
	"testing"
)

type jrecord struct {
	Name  string
	Count int
}

func TestJSONStoreRoundTrip(t *testing.T) {
	js := NewJSON(NewMemory())
	in := jrecord{Name: "abc", Count: 3}
	if err := js.Save("abc", &in); err != nil {
		t.Fatalf("received %s, expected nil", err)
	}
	var out jrecord
	if err := js.Open("abc", &out); err != nil {
		t.Fatalf("received %s, expected nil", err)
	}
	if out != in {
		t.Errorf("received %#v, expected %#v", out, in)
	}

	// Save must replace, not append
	in.Count = 5
	if err := js.Save("abc", &in); err != nil {
		t.Fatalf("received %s, expected nil", err)
	}
	if err := js.Open("abc", &out); err != nil {
		t.Fatalf("received %s, expected nil", err)
	}
	if out.Count != 5 {
		t.Errorf("received count %d, expected 5", out.Count)
	}

	// a completed Save leaves no staging key behind
	keys, err := js.Store.ListPrefix("")
	if err != nil {
		t.Fatalf("received %s, expected nil", err)
	}
	if len(keys) != 1 || keys[0] != "abc" {
		t.Errorf("received %v, expected [abc]", keys)
	}
}

func TestJSONStoreStagedRecovery(t *testing.T) {
	ms := NewMemory()
	js := NewJSON(ms)

	// pretend a Save was interrupted after staging but before the live
	// document was rewritten
	w, err := ms.Create("abc" + stagingSuffix)
	if err != nil {
		t.Fatalf("received %s, expected nil", err)
	}
	w.Write([]byte(`{"Name":"abc","Count":7}`))
	w.Close()

	var out jrecord
	if err := js.Open("abc", &out); err != nil {
		t.Fatalf("received %s, expected nil", err)
	}
	if out.Count != 7 {
		t.Errorf("received count %d, expected 7", out.Count)
	}

	// the staged copy lists under its document key, once
	keys, err := js.ListPrefix("")
	if err != nil {
		t.Fatalf("received %s, expected nil", err)
	}
	if len(keys) != 1 || keys[0] != "abc" {
		t.Errorf("received %v, expected [abc]", keys)
	}

	// Delete clears the staged copy too
	if err := js.Delete("abc"); err != nil {
		t.Fatalf("received %s, expected nil", err)
	}
	if err := js.Open("abc", &out); err == nil {
		t.Error("open after delete succeeded, expected error")
	}
}
