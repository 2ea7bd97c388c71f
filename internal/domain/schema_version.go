package domain

import (
	"context"
	"database/sql"
	"time"
)

//go:generate mockgen -destination mocks/mock_schema_version_repository.go -package mocks github.com/Notifuse/extfields/internal/domain SchemaVersionRepository

// SchemaVersionRecordID is the fixed identity of the single version row
const SchemaVersionRecordID = 1

// SchemaVersion is the durable counter signalling catalog changes to every process
type SchemaVersion struct {
	Version        int64     `json:"version"`
	LastModified   time.Time `json:"last_modified"`
	LastModifiedBy string    `json:"last_modified_by"`
}

// SchemaVersionRepository reads and bumps the schema version row
type SchemaVersionRepository interface {
	// GetVersion returns the current version, or 0 when the version table does not exist yet
	GetVersion(ctx context.Context) (int64, error)

	// Get returns the full version record
	Get(ctx context.Context) (*SchemaVersion, error)

	// IncrementTx atomically adds one to the version and returns the new value
	IncrementTx(ctx context.Context, tx *sql.Tx, modifiedBy string, modifiedAt time.Time) (int64, error)
}
