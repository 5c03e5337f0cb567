package sideindex

import (
	"database/sql"
	"log"

	_ "github.com/cznic/ql/driver"
)

// This file implements the side-index on top of the QL embedded
// database. It is intended to be used only in development.

type qlIndex struct {
	db *sql.DB
}

var _ Index = &qlIndex{}

const qlIndexInit = `
	CREATE TABLE IF NOT EXISTS sideindex (
		skey string,
		field string,
		value blob
	);
	CREATE INDEX IF NOT EXISTS sideindexkey ON sideindex (skey);
`

// NewQl makes a QL-backed side-index. filename is the name of the file
// to save the database to. The filename "memory" means to keep
// everything in memory.
func NewQl(filename string) *qlIndex {
	var db *sql.DB
	var err error
	if filename == "memory" {
		db, err = sql.Open("ql-mem", "sideindex.db")
	} else {
		db, err = sql.Open("ql", filename)
	}
	if err == nil {
		_, err = performExec(db, qlIndexInit)
	}
	if err != nil {
		log.Printf("Open QL: %s", err.Error())
		return nil
	}
	return &qlIndex{db: db}
}

func (qi *qlIndex) HashSet(key, field string, value []byte) error {
	const dbUpdate = `UPDATE sideindex SET value = ?3 WHERE skey == ?1 AND field == ?2`
	const dbInsert = `INSERT INTO sideindex VALUES (?1, ?2, ?3)`

	result, err := performExec(qi.db, dbUpdate, key, field, value)
	if err != nil {
		return err
	}
	nrows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if nrows == 0 {
		// record didn't exist. create it
		_, err = performExec(qi.db, dbInsert, key, field, value)
	}
	return err
}

func (qi *qlIndex) HashGet(key, field string) ([]byte, error) {
	const dbLookup = `SELECT value FROM sideindex WHERE skey == ?1 AND field == ?2 LIMIT 1`

	var value []byte
	err := qi.db.QueryRow(dbLookup, key, field).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	} else if err != nil {
		log.Printf("Side-index QL: %s", err.Error())
		return nil, err
	}
	return value, nil
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
