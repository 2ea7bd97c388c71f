package database

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

// PostgreSQL SQLSTATE codes
const (
	codeUniqueViolation = "23505"
	codeDuplicateColumn = "42701"
	codeUndefinedTable  = "42P01"
)

// postgresCode extracts the SQLSTATE from lib/pq and pgx errors
func postgresCode(err error) (string, bool) {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code), true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code, true
	}

	return "", false
}

func sqliteError(err error) (sqlite3.Error, bool) {
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr, true
	}
	return sqlite3.Error{}, false
}

// IsUniqueViolation reports whether err is a unique constraint violation
func IsUniqueViolation(err error) bool {
	if code, ok := postgresCode(err); ok {
		return code == codeUniqueViolation
	}
	if liteErr, ok := sqliteError(err); ok {
		return liteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			liteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

// IsDuplicateColumn reports whether err rejects adding a column that already exists
func IsDuplicateColumn(err error) bool {
	if code, ok := postgresCode(err); ok {
		return code == codeDuplicateColumn
	}
	if liteErr, ok := sqliteError(err); ok {
		return strings.Contains(liteErr.Error(), "duplicate column name")
	}
	return false
}

// IsUndefinedTable reports whether err is caused by a missing table
func IsUndefinedTable(err error) bool {
	if code, ok := postgresCode(err); ok {
		return code == codeUndefinedTable
	}
	if liteErr, ok := sqliteError(err); ok {
		return strings.Contains(liteErr.Error(), "no such table")
	}
	return false
}
