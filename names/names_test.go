package names

import "testing"

func TestParseRoundTrip(t *testing.T) {
	var table = []string{
		"a",
		"abc",
		"alice",
		"foo.bar",
		"pstore",
		"a.b.c",
		"zzzzzzzzzzzz",
		"aaaaaaaaaaaaj", // 13 characters, last in the nibble range
		"12345",
	}
	for _, s := range table {
		n, err := Parse(s)
		if err != nil {
			t.Fatalf("Parse(%q) returned %s, expected nil", s, err)
		}
		if n.String() != s {
			t.Errorf("round trip of %q gave %q", s, n.String())
		}
		if n.Length() != len(s) {
			t.Errorf("Length(%q) = %d, expected %d", s, n.Length(), len(s))
		}
	}
}

func TestParseErrors(t *testing.T) {
	var table = []struct {
		s   string
		err error
	}{
		{"aaaaaaaaaaaaaa", ErrTooLong},
		{"UPPER", ErrBadChar},
		{"with space", ErrBadChar},
		{"nine9", ErrBadChar},
		{".abc", ErrLeadingDot},
		{"aaaaaaaaaaaaz", ErrBadChar}, // 13th character out of nibble range
	}
	for _, test := range table {
		_, err := Parse(test.s)
		if err != test.err {
			t.Errorf("Parse(%q) returned %v, expected %v", test.s, err, test.err)
		}
	}
}

func TestParseTrailingPad(t *testing.T) {
	a, err := Parse("abc.")
	if err != nil {
		t.Fatalf("received %s, expected nil", err)
	}
	b := MustParse("abc")
	if a != b {
		t.Errorf("Parse(\"abc.\") = %#x, expected %#x", uint64(a), uint64(b))
	}
}

func TestHasVisibleDot(t *testing.T) {
	var table = []struct {
		s   string
		dot bool
	}{
		{"a", false},
		{"abc", false},
		{"alice", false},
		{"zzzzzzzzzzzz", false},
		{"foo.bar", true},
		{"a.b", true},
		{"some.suffix", true},
		{"aaaaaaaaaa.b", true}, // dot near the end of the packed range
		{"a.bbbbbbbbbb", true},
	}
	for _, test := range table {
		n := MustParse(test.s)
		got := HasVisibleDot(uint64(n), n.Length())
		if got != test.dot {
			t.Errorf("HasVisibleDot(%q) = %v, expected %v", test.s, got, test.dot)
		}
	}
}

func TestSuffix(t *testing.T) {
	var table = []struct {
		s      string
		suffix string
	}{
		{"abc", "abc"},
		{"foo.bar", "bar"},
		{"a.b.c", "c"},
		{"deep.sub.name", "name"},
	}
	for _, test := range table {
		got := MustParse(test.s).Suffix()
		if got != MustParse(test.suffix) {
			t.Errorf("Suffix(%q) = %q, expected %q", test.s, got.String(), test.suffix)
		}
	}
}

func TestEmpty(t *testing.T) {
	n, err := Parse("")
	if err != nil {
		t.Fatalf("received %s, expected nil", err)
	}
	if !n.Empty() || n.Length() != 0 || n.String() != "" {
		t.Errorf("empty name misbehaves: %v %d %q", n.Empty(), n.Length(), n.String())
	}
}
