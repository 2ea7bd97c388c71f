package domain

import (
	"context"
	"database/sql"
	"strings"
)

//go:generate mockgen -destination mocks/mock_column_repository.go -package mocks github.com/Notifuse/extfields/internal/domain ColumnRepository

// PhysicalColumn is a column as reported by the store's own schema introspection
type PhysicalColumn struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Nullable bool   `json:"nullable"`
}

// ColumnRepository executes DDL against host tables and introspects them
type ColumnRepository interface {
	// AddColumnTx adds a column inside tx. A store rejection yields an *ExecutionError.
	AddColumnTx(ctx context.Context, tx *sql.Tx, entity EntityType, column, columnType string) error

	// ListColumns returns the physical columns of the entity's table
	ListColumns(ctx context.Context, entity EntityType) ([]PhysicalColumn, error)
}

// OrphanColumn is an extension-prefixed physical column the catalog has no row for
type OrphanColumn struct {
	EntityType   string   `json:"entity_type"`
	ColumnName   string   `json:"column_name"`
	PhysicalType string   `json:"physical_type"`
	DataType     DataType `json:"data_type,omitempty"`
	Nullable     bool     `json:"nullable"`
	MaxLength    *int     `json:"max_length,omitempty"`
	Adoptable    bool     `json:"adoptable"`
}

// ReconcileReport is the drift found between the catalog and the physical schema
type ReconcileReport struct {
	SchemaVersion int64              `json:"schema_version"`
	Orphans       []OrphanColumn     `json:"orphans"`
	Missing       []*FieldDefinition `json:"missing"`
}

// Clean reports whether no drift was found
func (r *ReconcileReport) Clean() bool {
	return len(r.Orphans) == 0 && len(r.Missing) == 0
}

// AdoptRequest registers an orphan column in the catalog without issuing DDL
type AdoptRequest struct {
	EntityType string `json:"entity_type"`
	ColumnName string `json:"column_name"`
	// Retire records the column as soft-deleted so its name is never reused
	Retire bool   `json:"retire,omitempty"`
	Actor  string `json:"actor,omitempty"`
}

// Validate validates the adopt request
func (r *AdoptRequest) Validate() error {
	if strings.TrimSpace(r.EntityType) == "" {
		return NewValidationError("entity type is required")
	}
	if !IsExtensionColumn(r.ColumnName) {
		return NewValidationError("column name must carry the " + ExtensionColumnPrefix + " prefix")
	}
	return nil
}
