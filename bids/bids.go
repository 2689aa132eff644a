// Package bids gives read access to the name auction registry. The registry
// records, for each auctioned name, the current high bidder, the high bid
// amount, and the time of the last bid; a negative high bid means the
// auction has closed and the name was sold to the high bidder.
//
// The registry is owned by an external system. The service only ever reads
// it, through the Registry interface; the MySQL and QL backends are filled
// by whatever process mirrors the auction state into them.
package bids

import (
	"sync"
	"time"

	"github.com/permastore/pstore/names"
)

// Bid is one auction entry, keyed by the auctioned name.
type Bid struct {
	Name        names.Name
	HighBidder  names.Name
	HighBid     int64 // negative once the auction has closed
	LastBidTime time.Time
}

// Sold reports whether the auction for this name has closed.
func (b Bid) Sold() bool { return b.HighBid < 0 }

// Registry is a read-only lookup of auction entries.
type Registry interface {
	// Lookup returns the entry for the exact given name, or nil if the
	// name was never auctioned. The error is for lookup failures only.
	Lookup(name names.Name) (*Bid, error)
}

// Memory is a Registry held in a map. It is intended for testing and for
// seeding a development server.
type Memory struct {
	m    sync.RWMutex
	bids map[names.Name]Bid
}

var _ Registry = &Memory{}

// NewMemory returns a new, empty in-memory registry.
func NewMemory() *Memory {
	return &Memory{bids: make(map[names.Name]Bid)}
}

// Put inserts or replaces the entry for b.Name.
func (m *Memory) Put(b Bid) {
	m.m.Lock()
	m.bids[b.Name] = b
	m.m.Unlock()
}

// Lookup implements Registry.
func (m *Memory) Lookup(name names.Name) (*Bid, error) {
	m.m.RLock()
	defer m.m.RUnlock()
	b, ok := m.bids[name]
	if !ok {
		return nil, nil
	}
	return &b, nil
}
