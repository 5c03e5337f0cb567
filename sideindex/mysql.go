package sideindex

import (
	"database/sql"
	"log"

	"github.com/BurntSushi/migration"
	_ "github.com/go-sql-driver/mysql"
)

// This file implements the side-index using MySQL as the storage
// medium.

type msqlIndex struct {
	db *sql.DB
}

var _ Index = &msqlIndex{}

// List of migrations to perform. Add new ones to the end.
// DO NOT change the order of items already in this list.
var mysqlMigrations = []migration.Migrator{
	mysqlschema1,
}

// Adapt the schema versioning for MySQL

var mysqlVersioning = dbVersion{
	GetSQL:    `SELECT max(version) FROM migration_version`,
	SetSQL:    `INSERT INTO migration_version (version, applied) VALUES (?, now())`,
	CreateSQL: `CREATE TABLE migration_version (version INTEGER, applied datetime)`,
}

func mysqlschema1(tx migration.LimitedTx) error {
	const s = `
	CREATE TABLE IF NOT EXISTS sideindex (
		skey varchar(191) NOT NULL,
		field varchar(64) NOT NULL,
		value mediumblob,
		PRIMARY KEY (skey, field)
	)`

	_, err := tx.Exec(s)
	return err
}

// NewMysql connects to a MySQL database and returns a side-index backed
// by it. dial has the usual form, e.g.
// "user:password@tcp(localhost:5555)/dbname".
func NewMysql(dial string) (*msqlIndex, error) {
	db, err := migration.OpenWith(
		"mysql",
		dial,
		mysqlMigrations,
		mysqlVersioning.Get,
		mysqlVersioning.Set)
	if err != nil {
		log.Printf("Open Mysql: %s", err.Error())
		return nil, err
	}
	return &msqlIndex{db: db}, nil
}

func (ms *msqlIndex) HashSet(key, field string, value []byte) error {
	const stmt = `INSERT INTO sideindex (skey, field, value) VALUES (?, ?, ?) ON DUPLICATE KEY UPDATE value = ?`

	_, err := ms.db.Exec(stmt, key, field, value, value)
	if err != nil {
		log.Printf("Side-index MySQL: %s", err.Error())
	}
	return err
}

func (ms *msqlIndex) HashGet(key, field string) ([]byte, error) {
	const query = `SELECT value FROM sideindex WHERE skey = ? AND field = ? LIMIT 1`

	var value []byte
	err := ms.db.QueryRow(query, key, field).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	} else if err != nil {
		log.Printf("Side-index MySQL: %s", err.Error())
		return nil, err
	}
	return value, nil
}
