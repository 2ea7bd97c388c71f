package database

import (
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"time"

	"contrib.go.opencensus.io/integrations/ocsql"
	"github.com/lib/pq"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver, registered as "pgx"
	_ "github.com/mattn/go-sqlite3"    // SQLite driver

	"github.com/Notifuse/extfields/config"
)

// sqliteBusyTimeout is how long a SQLite writer waits for the database lock, in milliseconds
const sqliteBusyTimeout = 5000

// GetConnectionPoolSettings returns connection pool settings based on environment
func GetConnectionPoolSettings() (maxOpen, maxIdle int, maxLifetime time.Duration) {
	environment := os.Getenv("ENVIRONMENT")

	// Use smaller pools for test environment to conserve connections
	if environment == "test" || os.Getenv("INTEGRATION_TESTS") == "true" {
		return 10, 5, 2 * time.Minute
	}

	// Production settings
	return 25, 25, 20 * time.Minute
}

// GetSystemDSN returns the DSN of the configured database
func GetSystemDSN(cfg *config.DatabaseConfig) string {
	if cfg.Driver == config.DriverSQLite {
		return GetSQLiteDSN(cfg.Path)
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		url.QueryEscape(cfg.User),
		url.QueryEscape(cfg.Password),
		cfg.Host,
		cfg.Port,
		cfg.DBName,
		cfg.SSLMode,
	)
}

// GetPostgresDSN returns the DSN for connecting to PostgreSQL server without specifying a database
func GetPostgresDSN(cfg *config.DatabaseConfig) string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/postgres?sslmode=%s",
		url.QueryEscape(cfg.User),
		url.QueryEscape(cfg.Password),
		cfg.Host,
		cfg.Port,
		cfg.SSLMode,
	)
}

// GetSQLiteDSN returns a SQLite DSN where writers take the lock when their transaction begins
// and wait for it instead of failing with SQLITE_BUSY
func GetSQLiteDSN(path string) string {
	return fmt.Sprintf("file:%s?_busy_timeout=%d&_txlock=immediate&_foreign_keys=on", path, sqliteBusyTimeout)
}

// Open opens the configured database, wrapping its driver with OpenCensus when tracing is on
func Open(cfg *config.DatabaseConfig, tracingEnabled bool) (*sql.DB, error) {
	driverName := cfg.Driver
	if driverName == "" {
		driverName = config.DriverPostgres
	}

	if tracingEnabled {
		var err error
		driverName, err = ocsql.Register(driverName, ocsql.WithAllTraceOptions())
		if err != nil {
			return nil, fmt.Errorf("failed to register opencensus sql driver: %w", err)
		}
	}

	db, err := sql.Open(driverName, GetSystemDSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Test database connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	ConfigurePool(db, DialectFor(cfg.Driver))

	return db, nil
}

// ConfigurePool applies connection pool settings. SQLite serializes writers, so it keeps one
// connection.
func ConfigurePool(db *sql.DB, dialect Dialect) {
	if dialect == DialectSQLite {
		db.SetMaxOpenConns(1)
		return
	}

	maxOpen, maxIdle, maxLifetime := GetConnectionPoolSettings()
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxLifetime(maxLifetime)
	db.SetConnMaxIdleTime(maxLifetime / 2)
}

// EnsureSystemDatabaseExists creates the PostgreSQL database if it doesn't exist
func EnsureSystemDatabaseExists(driverName, dsn, dbName string) error {
	// Connect to PostgreSQL server without specifying a database
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return fmt.Errorf("failed to connect to PostgreSQL server: %w", err)
	}
	defer db.Close()

	// Test the connection
	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to ping PostgreSQL server: %w", err)
	}

	return ensureDatabase(db, dbName)
}

func ensureDatabase(db *sql.DB, dbName string) error {
	// Check if database exists
	var exists bool
	query := "SELECT EXISTS(SELECT 1 FROM pg_database WHERE datname = $1)"
	if err := db.QueryRow(query, dbName).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check if database exists: %w", err)
	}

	// Create database if it doesn't exist
	if !exists {
		// Proper quoting to prevent SQL injection
		createDBQuery := fmt.Sprintf("CREATE DATABASE %s", pq.QuoteIdentifier(dbName))

		if _, err := db.Exec(createDBQuery); err != nil {
			return fmt.Errorf("failed to create database: %w", err)
		}
	}

	return nil
}
