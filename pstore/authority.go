package pstore

import (
	"github.com/pkg/errors"

	"github.com/permastore/pstore/bids"
	"github.com/permastore/pstore/names"
)

// Authority decides whether an account may claim a file name.
//
// Names without a visible dot are first come, first served. A dotted name
// is controlled by its suffix, the part after the last dot: if the suffix
// was auctioned, only the winner of a closed auction may claim the name;
// if it never was, only the account whose name equals the suffix may.
//
// Whether the suffix rule is enforced at all is a deployment choice; see
// Disabled.
type Authority struct {
	// Bids is the read-only auction registry consulted for dotted names.
	// A nil registry behaves as if no name was ever auctioned.
	Bids bids.Registry

	// Disabled turns off suffix authorization entirely, making every name
	// first come, first served.
	Disabled bool
}

// MayClaim returns nil if claimant may create a file named filename.
func (a Authority) MayClaim(filename, claimant names.Name) error {
	if a.Disabled || !filename.HasDot() {
		return nil
	}
	suffix := filename.Suffix()
	var bid *bids.Bid
	if a.Bids != nil {
		var err error
		bid, err = a.Bids.Lookup(suffix)
		if err != nil {
			return errors.Wrap(err, "bid lookup")
		}
	}
	if bid == nil {
		// never auctioned: an account always controls names suffixed
		// with its own identifier
		if claimant != suffix {
			return ErrSuffixRequired
		}
		return nil
	}
	if !bid.Sold() {
		return ErrSuffixNotSold
	}
	if bid.HighBidder != claimant {
		return ErrSuffixNotOwned
	}
	return nil
}
