package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Notifuse/extfields/internal/database"
	"github.com/Notifuse/extfields/internal/domain"
)

// SchemaVersionRepository implements domain.SchemaVersionRepository
type SchemaVersionRepository struct {
	systemDB *sql.DB
}

// NewSchemaVersionRepository creates a new SchemaVersionRepository
func NewSchemaVersionRepository(db *sql.DB) domain.SchemaVersionRepository {
	return &SchemaVersionRepository{
		systemDB: db,
	}
}

// GetVersion returns the current schema version
func (r *SchemaVersionRepository) GetVersion(ctx context.Context) (int64, error) {
	var version int64
	err := r.systemDB.QueryRowContext(ctx,
		`SELECT version FROM custom_field_schema_version WHERE id = $1`,
		domain.SchemaVersionRecordID,
	).Scan(&version)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || database.IsUndefinedTable(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get schema version: %w", err)
	}

	return version, nil
}

// Get returns the version record
func (r *SchemaVersionRepository) Get(ctx context.Context) (*domain.SchemaVersion, error) {
	query := `
		SELECT version, last_modified, last_modified_by
		FROM custom_field_schema_version
		WHERE id = $1
	`

	var record domain.SchemaVersion
	var modifiedBy sql.NullString

	err := r.systemDB.QueryRowContext(ctx, query, domain.SchemaVersionRecordID).Scan(
		&record.Version,
		&record.LastModified,
		&modifiedBy,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || database.IsUndefinedTable(err) {
			return &domain.SchemaVersion{}, nil
		}
		return nil, fmt.Errorf("failed to get schema version: %w", err)
	}

	record.LastModified = record.LastModified.UTC()
	record.LastModifiedBy = modifiedBy.String

	return &record, nil
}

// IncrementTx adds one to the version within a transaction. The single UPDATE relies on the
// row lock of the version row so concurrent increments serialize.
func (r *SchemaVersionRepository) IncrementTx(ctx context.Context, tx *sql.Tx, modifiedBy string, modifiedAt time.Time) (int64, error) {
	query := `
		UPDATE custom_field_schema_version
		SET version = version + 1, last_modified = $1, last_modified_by = $2
		WHERE id = $3
		RETURNING version
	`

	var version int64
	err := tx.QueryRowContext(ctx, query, modifiedAt.UTC(), modifiedBy, domain.SchemaVersionRecordID).Scan(&version)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, fmt.Errorf("schema version row is missing, the catalog is not initialized")
		}
		return 0, fmt.Errorf("failed to increment schema version: %w", err)
	}

	return version, nil
}
