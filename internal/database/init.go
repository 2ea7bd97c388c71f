package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Notifuse/extfields/internal/database/schema"
	"github.com/Notifuse/extfields/internal/domain"
)

// InitializeDatabase creates the catalog tables if they don't exist and seeds the schema version row
func InitializeDatabase(ctx context.Context, db *sql.DB, actor string) error {
	// Run all table creation queries
	for _, query := range schema.TableDefinitions {
		if _, err := db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	if actor == "" {
		actor = "system"
	}

	if _, err := db.ExecContext(ctx, schema.SeedSchemaVersion, domain.SchemaVersionRecordID, time.Now().UTC(), actor); err != nil {
		return fmt.Errorf("failed to seed schema version: %w", err)
	}

	return nil
}

// CleanDatabase drops the catalog tables in reverse order. Extension columns on host tables are
// left in place.
func CleanDatabase(ctx context.Context, db *sql.DB) error {
	for i := len(schema.TableNames) - 1; i >= 0; i-- {
		query := fmt.Sprintf("DROP TABLE IF EXISTS %s", schema.TableNames[i])
		if _, err := db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to drop table %s: %w", schema.TableNames[i], err)
		}
	}
	return nil
}
