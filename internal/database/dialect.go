package database

import (
	"database/sql"

	"github.com/Notifuse/extfields/config"
)

// Dialect selects the store-specific statements a repository issues
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

// DialectFor returns the dialect spoken by a configured driver
func DialectFor(driver string) Dialect {
	if driver == config.DriverSQLite {
		return DialectSQLite
	}
	return DialectPostgres
}

// SnapshotTxOptions returns the options of a read-only transaction seeing one consistent snapshot.
// SQLite transactions are serializable already and reject explicit isolation levels.
func (d Dialect) SnapshotTxOptions() *sql.TxOptions {
	if d == DialectSQLite {
		return &sql.TxOptions{ReadOnly: true}
	}
	return &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}
}
