// Copyright (c) 2026 The Credence developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package eventdb persists emitted contract events to sqlite for off-chain
// observers. Events are an output-only channel; nothing here is ever read
// back by the contracts.
package eventdb

import (
	"database/sql"
	"encoding/json"

	sqlite3 "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"

	"github.com/credence-net/credence/credence"
	"github.com/credence-net/credence/xenv"
)

const schema = `CREATE TABLE IF NOT EXISTS event (
	seq INTEGER PRIMARY KEY,
	address BLOB(20) NOT NULL,
	name TEXT NOT NULL,
	args TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS event_address ON event(address);
CREATE INDEX IF NOT EXISTS event_name ON event(name);`

// EventDB is the sqlite-backed event sink.
type EventDB struct {
	db *sql.DB
}

// New opens or creates the event database at path.
func New(path string) (*EventDB, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_synchronous=NORMAL")
	if err != nil {
		return nil, err
	}
	return newEventDB(db)
}

// NewMem creates an in-memory event database, for tests and tooling.
func NewMem() (*EventDB, error) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		return nil, err
	}
	return newEventDB(db)
}

func newEventDB(db *sql.DB) (*EventDB, error) {
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "create schema")
	}
	return &EventDB{db: db}, nil
}

// Close closes the underlying database.
func (e *EventDB) Close() error {
	return e.db.Close()
}

// Write appends events in one transaction. Re-writing an already stored
// sequence number is an error; the log is append-only.
func (e *EventDB) Write(events []xenv.Event) (err error) {
	if len(events) == 0 {
		return nil
	}
	tx, err := e.db.Begin()
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()
	stmt, err := tx.Prepare("INSERT INTO event(seq, address, name, args) VALUES(?,?,?,?)")
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, ev := range events {
		args, jerr := json.Marshal(ev.Args)
		if jerr != nil {
			return jerr
		}
		if _, err = stmt.Exec(ev.Seq, ev.Address.Bytes(), ev.Name, string(args)); err != nil {
			if serr, ok := err.(sqlite3.Error); ok && serr.Code == sqlite3.ErrConstraint {
				return errors.Wrapf(err, "duplicate event seq %d", ev.Seq)
			}
			return err
		}
	}
	return tx.Commit()
}

// FilterOptions narrows a Filter query. Zero-value fields are ignored.
type FilterOptions struct {
	Address *credence.Address
	Name    string
	FromSeq uint64
	Limit   uint64
}

// Filter returns stored events in sequence order, narrowed by opts.
func (e *EventDB) Filter(opts *FilterOptions) ([]xenv.Event, error) {
	query := "SELECT seq, address, name, args FROM event WHERE seq >= ?"
	args := []any{uint64(0)}
	if opts != nil {
		args[0] = opts.FromSeq
		if opts.Address != nil {
			query += " AND address = ?"
			args = append(args, opts.Address.Bytes())
		}
		if opts.Name != "" {
			query += " AND name = ?"
			args = append(args, opts.Name)
		}
	}
	query += " ORDER BY seq"
	if opts != nil && opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
	}
	rows, err := e.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []xenv.Event
	for rows.Next() {
		var (
			ev      xenv.Event
			addr    []byte
			rawArgs string
		)
		if err := rows.Scan(&ev.Seq, &addr, &ev.Name, &rawArgs); err != nil {
			return nil, err
		}
		ev.Address = credence.BytesToAddress(addr)
		if err := json.Unmarshal([]byte(rawArgs), &ev.Args); err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}
