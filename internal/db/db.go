// Package db is the SQLite catalog of render runs and the lakes each run
// detected.
package db

import (
	"database/sql"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/banshee-data/topomap/internal/monitoring"
)

type DB struct {
	*sql.DB
}

// pragmas are applied by the driver to every new connection.
const pragmas = "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"

// OpenDB opens the database without touching its schema.
func OpenDB(path string) (*DB, error) {
	dsn := path + "?" + pragmas
	if strings.Contains(path, "?") {
		dsn = path + "&" + pragmas
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// SQLite allows one writer; a single connection also keeps ":memory:"
	// databases alive across queries.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}
	return &DB{db}, nil
}

// NewDB opens the database and applies every pending migration.
func NewDB(path string) (*DB, error) {
	db, err := OpenDB(path)
	if err != nil {
		return nil, err
	}
	if err := db.MigrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	version, _, err := db.MigrateVersion()
	if err != nil {
		db.Close()
		return nil, err
	}
	monitoring.Logf("catalog %s at schema version %d", path, version)
	return db, nil
}
