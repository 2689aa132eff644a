package bids

import (
	"database/sql"
	"log"
	"time"

	_ "github.com/cznic/ql/driver"

	"github.com/permastore/pstore/names"
)

// A QlRegistry keeps the auction mirror in the QL embedded database. It is
// intended for development servers which have no MySQL at hand. Since the
// database is private to this process, the registry also exposes Put so
// seeding tools can fill it.
type QlRegistry struct {
	db *sql.DB
}

var _ Registry = &QlRegistry{}

const qlBidsInit = `
	CREATE TABLE IF NOT EXISTS name_bids (
		name string,
		high_bidder string,
		high_bid int64,
		last_bid_time time
	);
	CREATE INDEX IF NOT EXISTS bidname ON name_bids (name);
`

// NewQlRegistry opens a QL backed registry stored in the given file. The
// special filename "memory" keeps everything in this process's memory.
func NewQlRegistry(filename string) (*QlRegistry, error) {
	var db *sql.DB
	var err error
	if filename == "memory" {
		db, err = sql.Open("ql-mem", "bids.db")
	} else {
		db, err = sql.Open("ql", filename)
	}
	if err == nil {
		_, err = performExec(db, qlBidsInit)
	}
	if err != nil {
		log.Printf("Open QL: %s", err.Error())
		return nil, err
	}
	return &QlRegistry{db: db}, nil
}

func (r *QlRegistry) Lookup(name names.Name) (*Bid, error) {
	const query = `
		SELECT high_bidder, high_bid, last_bid_time
		FROM name_bids
		WHERE name == ?1
		LIMIT 1`

	var bidder string
	var amount int64
	var lastBid time.Time
	err := r.db.QueryRow(query, name.String()).Scan(&bidder, &amount, &lastBid)
	if err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	highBidder, err := names.Parse(bidder)
	if err != nil {
		return nil, err
	}
	return &Bid{
		Name:        name,
		HighBidder:  highBidder,
		HighBid:     amount,
		LastBidTime: lastBid,
	}, nil
}

// Put inserts or replaces the entry for b.Name.
func (r *QlRegistry) Put(b Bid) error {
	const update = `
		UPDATE name_bids
		SET high_bidder = ?2, high_bid = ?3, last_bid_time = ?4
		WHERE name == ?1`
	const insert = `INSERT INTO name_bids VALUES (?1, ?2, ?3, ?4)`

	result, err := performExec(r.db, update,
		b.Name.String(), b.HighBidder.String(), b.HighBid, b.LastBidTime)
	if err != nil {
		return err
	}
	nrows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if nrows == 0 {
		// record didn't exist. create it
		_, err = performExec(r.db, insert,
			b.Name.String(), b.HighBidder.String(), b.HighBid, b.LastBidTime)
	}
	return err
}

func performExec(db *sql.DB, query string, args ...interface{}) (sql.Result, error) {
	tx, err := db.Begin()
	if err != nil {
		return nil, err
	}
	var result sql.Result
	result, err = tx.Exec(query, args...)
	if err != nil {
		_ = tx.Rollback()
		return nil, err
	}
	err = tx.Commit()
	return result, err
}
