package bids

import (
	"database/sql"
	"log"
	"time"

	"github.com/BurntSushi/migration"
	_ "github.com/go-sql-driver/mysql"

	"github.com/permastore/pstore/names"
)

// A mysqlRegistry reads auction entries from a MySQL table kept current by
// an external syncer. Use this in production.
type mysqlRegistry struct {
	db *sql.DB
}

var _ Registry = &mysqlRegistry{}

// List of migrations to perform. Add new ones to the end.
// DO NOT change the order of items already in this list.
var mysqlMigrations = []migration.Migrator{
	mysqlschema1,
}

// Version bookkeeping for the migration package, kept in its own table.
// The table may not exist yet on a fresh database, so Get treats any
// failure as version 0 and Set creates the table on demand.

func schemaVersion(tx migration.LimitedTx) (int, error) {
	var version int
	r := tx.QueryRow(`SELECT max(version) FROM migration_version`)
	if err := r.Scan(&version); err != nil {
		log.Println(err.Error())
		return 0, nil
	}
	return version, nil
}

func setSchemaVersion(tx migration.LimitedTx, version int) error {
	if err := insertVersion(tx, version); err != nil {
		_, err = tx.Exec(`CREATE TABLE migration_version (version INTEGER, applied datetime)`)
		if err != nil {
			return err
		}
		if err = insertVersion(tx, 0); err != nil {
			return err
		}
		return insertVersion(tx, version)
	}
	return nil
}

func insertVersion(tx migration.LimitedTx, version int) error {
	_, err := tx.Exec(`INSERT INTO migration_version (version, applied) VALUES (?, now())`, version)
	return err
}

func mysqlschema1(tx migration.LimitedTx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS name_bids (
			name VARCHAR(13) NOT NULL,
			high_bidder VARCHAR(13) NOT NULL,
			high_bid BIGINT NOT NULL,
			last_bid_time DATETIME NOT NULL,
			PRIMARY KEY (name)
		)`)
	return err
}

// NewMysqlRegistry connects to a MySQL database holding the mirrored
// auction table. The dial string has the usual driver form, e.g.
// "user:password@tcp(localhost:3306)/dbname".
func NewMysqlRegistry(dial string) (Registry, error) {
	db, err := migration.OpenWith(
		"mysql",
		dial,
		mysqlMigrations,
		schemaVersion,
		setSchemaVersion)
	if err != nil {
		log.Printf("Open Mysql: %s", err.Error())
		return nil, err
	}
	return &mysqlRegistry{db: db}, nil
}

func (r *mysqlRegistry) Lookup(name names.Name) (*Bid, error) {
	const query = `
		SELECT high_bidder, high_bid, last_bid_time
		FROM name_bids
		WHERE name = ?
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
