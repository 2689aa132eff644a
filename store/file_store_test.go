package store

import (
	"io"
	"testing"
)

func TestFileSystemRoundTrip(t *testing.T) {
	fs := NewFileSystem(t.TempDir())
	w, err := fs.Create("qwerty")
	if err != nil {
		t.Fatalf("received %s, expected nil", err)
	}
	w.Write([]byte("file data"))
	if err = w.Close(); err != nil {
		t.Fatalf("received %s, expected nil", err)
	}

	r, size, err := fs.Open("qwerty")
	if err != nil {
		t.Fatalf("received %s, expected nil", err)
	}
	if size != 9 {
		t.Errorf("received size %d, expected 9", size)
	}
	result, _ := io.ReadAll(NewReader(r))
	r.Close()
	if string(result) != "file data" {
		t.Errorf("read %q, expected %q", result, "file data")
	}

	if _, err = fs.Create("qwerty"); err == nil {
		t.Errorf("duplicate create succeeded, expected error")
	}

	keys, err := fs.ListPrefix("qw")
	if err != nil {
		t.Fatalf("received %s, expected nil", err)
	}
	if len(keys) != 1 || keys[0] != "qwerty" {
		t.Errorf("received %v, expected [qwerty]", keys)
	}

	if err = fs.Delete("qwerty"); err != nil {
		t.Fatalf("received %s, expected nil", err)
	}
	if err = fs.Delete("qwerty"); err != nil {
		t.Errorf("received %s, expected nil", err)
	}
}

func TestFileSystemBadKeys(t *testing.T) {
	fs := NewFileSystem(t.TempDir())
	for _, key := range []string{"", "a/b"} {
		if _, err := fs.Create(key); err == nil {
			t.Errorf("Create(%q) succeeded, expected error", key)
		}
		if _, _, err := fs.Open(key); err == nil {
			t.Errorf("Open(%q) succeeded, expected error", key)
		}
	}
}

func TestKeySubdir(t *testing.T) {
	var table = []struct{ key, dir string }{
		{"a", "a"},
		{"ab", "ab"},
		{"abc", "ab/c"},
		{"abcd", "ab/cd"},
		{"abcdefg", "ab/cd"},
	}
	for _, test := range table {
		if d := keySubdir(test.key); d != test.dir {
			t.Errorf("keySubdir(%q) = %q, expected %q", test.key, d, test.dir)
		}
	}
}
