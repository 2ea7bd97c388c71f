package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/Notifuse/extfields/internal/database"
	"github.com/Notifuse/extfields/internal/domain"
)

// ColumnRepository implements domain.ColumnRepository
type ColumnRepository struct {
	systemDB *sql.DB
	dialect  database.Dialect
}

// NewColumnRepository creates a new ColumnRepository
func NewColumnRepository(db *sql.DB, dialect database.Dialect) domain.ColumnRepository {
	return &ColumnRepository{
		systemDB: db,
		dialect:  dialect,
	}
}

// AddColumnTx issues ALTER TABLE ... ADD COLUMN inside tx. Identifiers are quoted, the column type
// comes from domain.BuildColumnType.
func (r *ColumnRepository) AddColumnTx(ctx context.Context, tx *sql.Tx, entity domain.EntityType, column, columnType string) error {
	statement := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s",
		entity.QualifiedTable(),
		pq.QuoteIdentifier(column),
		columnType,
	)

	if _, err := tx.ExecContext(ctx, statement); err != nil {
		intent := fmt.Sprintf("add extension field %s to %s", column, entity.Name)
		if database.IsDuplicateColumn(err) {
			intent += " (column already exists and is not tracked by the catalog)"
		}
		return &domain.ExecutionError{Intent: intent, Err: err}
	}

	return nil
}

// ListColumns returns the physical columns of the entity's table in declaration order
func (r *ColumnRepository) ListColumns(ctx context.Context, entity domain.EntityType) ([]domain.PhysicalColumn, error) {
	if r.dialect == database.DialectSQLite {
		return r.listSQLiteColumns(ctx, entity)
	}
	return r.listPostgresColumns(ctx, entity)
}

func (r *ColumnRepository) listPostgresColumns(ctx context.Context, entity domain.EntityType) ([]domain.PhysicalColumn, error) {
	query := `
		SELECT column_name, data_type, character_maximum_length, is_nullable
		FROM information_schema.columns
		WHERE table_schema = COALESCE(NULLIF($1, ''), current_schema()) AND table_name = $2
		ORDER BY ordinal_position
	`

	rows, err := r.systemDB.QueryContext(ctx, query, entity.Schema, entity.Table)
	if err != nil {
		return nil, fmt.Errorf("failed to list columns of %s: %w", entity.QualifiedName(), err)
	}
	defer rows.Close()

	var columns []domain.PhysicalColumn
	for rows.Next() {
		var (
			name       string
			dataType   string
			maxLength  sql.NullInt64
			isNullable string
		)
		if err := rows.Scan(&name, &dataType, &maxLength, &isNullable); err != nil {
			return nil, fmt.Errorf("failed to scan column: %w", err)
		}

		if maxLength.Valid {
			dataType = fmt.Sprintf("%s(%d)", dataType, maxLength.Int64)
		}

		columns = append(columns, domain.PhysicalColumn{
			Name:     name,
			Type:     dataType,
			Nullable: isNullable == "YES",
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating columns: %w", err)
	}

	if len(columns) == 0 {
		return nil, &domain.ErrNotFound{Entity: "table", ID: entity.QualifiedName()}
	}

	return columns, nil
}

func (r *ColumnRepository) listSQLiteColumns(ctx context.Context, entity domain.EntityType) ([]domain.PhysicalColumn, error) {
	query := `SELECT name, type, "notnull" FROM pragma_table_info($1) ORDER BY cid`

	rows, err := r.systemDB.QueryContext(ctx, query, entity.Table)
	if err != nil {
		return nil, fmt.Errorf("failed to list columns of %s: %w", entity.QualifiedName(), err)
	}
	defer rows.Close()

	var columns []domain.PhysicalColumn
	for rows.Next() {
		var (
			name    string
			colType string
			notNull int64
		)
		if err := rows.Scan(&name, &colType, &notNull); err != nil {
			return nil, fmt.Errorf("failed to scan column: %w", err)
		}

		columns = append(columns, domain.PhysicalColumn{
			Name:     name,
			Type:     colType,
			Nullable: notNull == 0,
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating columns: %w", err)
	}

	if len(columns) == 0 {
		return nil, &domain.ErrNotFound{Entity: "table", ID: entity.QualifiedName()}
	}

	return columns, nil
}
