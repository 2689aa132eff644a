package pstore

import (
	"testing"

	"github.com/permastore/pstore/bids"
	"github.com/permastore/pstore/names"
)

func TestAuthorityUndotted(t *testing.T) {
	a := Authority{}
	// no dot, no registry: anyone may claim
	if err := a.MayClaim(names.MustParse("short"), dave); err != nil {
		t.Errorf("received %v, expected nil", err)
	}
	if err := a.MayClaim(names.MustParse("zzzzzzzzzzzz"), dave); err != nil {
		t.Errorf("received %v, expected nil", err)
	}
}

func TestAuthorityNilRegistry(t *testing.T) {
	// with no registry a dotted name is claimable only by its suffix
	a := Authority{}
	if err := a.MayClaim(names.MustParse("foo.bar"), dave); err != ErrSuffixRequired {
		t.Errorf("received %v, expected ErrSuffixRequired", err)
	}
	if err := a.MayClaim(names.MustParse("foo.bar"), names.MustParse("bar")); err != nil {
		t.Errorf("received %v, expected nil", err)
	}
}

func TestAuthorityBidStates(t *testing.T) {
	registry := bids.NewMemory()
	registry.Put(bids.Bid{Name: names.MustParse("sold"), HighBidder: carol, HighBid: -1})
	registry.Put(bids.Bid{Name: names.MustParse("open"), HighBidder: carol, HighBid: 1})
	a := Authority{Bids: registry}

	var table = []struct {
		filename string
		claimant names.Name
		err      error
	}{
		{"x.sold", carol, nil},
		{"x.sold", dave, ErrSuffixNotOwned},
		{"x.open", carol, ErrSuffixNotSold},
		{"x.open", dave, ErrSuffixNotSold},
		{"x.other", dave, ErrSuffixRequired},
		{"a.b.sold", carol, nil}, // only the final suffix matters
	}
	for _, test := range table {
		err := a.MayClaim(names.MustParse(test.filename), test.claimant)
		if err != test.err {
			t.Errorf("MayClaim(%q, %s) = %v, expected %v",
				test.filename, test.claimant, err, test.err)
		}
	}
}

func TestAuthorityDisabled(t *testing.T) {
	registry := bids.NewMemory()
	registry.Put(bids.Bid{Name: names.MustParse("sold"), HighBidder: carol, HighBid: -1})
	a := Authority{Bids: registry, Disabled: true}
	if err := a.MayClaim(names.MustParse("x.sold"), dave); err != nil {
		t.Errorf("received %v, expected nil", err)
	}
}

func TestOwner(t *testing.T) {
	o := OwnerOf(alice)
	if !o.Is(alice) || o.Is(bob) {
		t.Error("account owner misbehaves")
	}
	if NoOwner.Is(alice) || NoOwner.Is(0) {
		t.Error("revoked owner matched an account")
	}
	// the revoked owner is distinct from any account owner, including
	// one holding the zero name
	if NoOwner == OwnerOf(0) {
		t.Error("revoked owner equals an account owner")
	}
}
