package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/Notifuse/extfields/internal/database"
	"github.com/Notifuse/extfields/internal/database/schema"
	"github.com/Notifuse/extfields/internal/domain"
)

var fieldColumns = []string{
	"id",
	"entity_type",
	"field_name",
	"column_name",
	"data_type",
	"max_length",
	"is_required",
	"default_value",
	"display_name",
	"description",
	"created_at",
	"created_by",
	"is_deleted",
	"deleted_at",
}

// CustomFieldRepository implements domain.CustomFieldRepository on the catalog tables
type CustomFieldRepository struct {
	systemDB *sql.DB
	dialect  database.Dialect
}

// NewCustomFieldRepository creates a new CustomFieldRepository
func NewCustomFieldRepository(db *sql.DB, dialect database.Dialect) domain.CustomFieldRepository {
	return &CustomFieldRepository{
		systemDB: db,
		dialect:  dialect,
	}
}

// WithTransaction executes a function within a transaction.
// Catalog writes, the version increment and the DDL of a field mutation all go through the same
// transaction so they commit or roll back together.
func (r *CustomFieldRepository) WithTransaction(ctx context.Context, fn func(*sql.Tx) error) error {
	// Begin a transaction
	tx, err := r.systemDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	// Defer rollback - this will be a no-op if we successfully commit
	defer tx.Rollback()

	// Execute the provided function with the transaction
	if err := fn(tx); err != nil {
		return err
	}

	// Commit the transaction
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// CreateTx inserts a catalog row within a transaction
func (r *CustomFieldRepository) CreateTx(ctx context.Context, tx *sql.Tx, field *domain.FieldDefinition) error {
	if field.ID == "" {
		field.ID = uuid.New().String()
	}
	if field.CreatedAt.IsZero() {
		field.CreatedAt = time.Now().UTC()
	}
	field.CreatedAt = field.CreatedAt.UTC()

	var deletedAt *time.Time
	if field.DeletedAt != nil {
		utc := field.DeletedAt.UTC()
		deletedAt = &utc
	}

	psql := sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	query, args, err := psql.Insert(schema.FieldDefinitionsTable).
		Columns(fieldColumns...).
		Values(
			field.ID,
			field.EntityType,
			field.FieldName,
			field.ColumnName,
			string(field.DataType),
			field.MaxLength,
			field.IsRequired,
			field.DefaultValue,
			field.DisplayName,
			field.Description,
			field.CreatedAt,
			field.CreatedBy,
			field.IsDeleted,
			deletedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build query: %w", err)
	}

	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		if database.IsUniqueViolation(err) {
			return &domain.ConflictError{
				EntityType: field.EntityType,
				ColumnName: field.ColumnName,
			}
		}
		return fmt.Errorf("failed to insert custom field: %w", err)
	}

	return nil
}

// GetActiveByIDTx retrieves an active field by ID within a transaction
func (r *CustomFieldRepository) GetActiveByIDTx(ctx context.Context, tx *sql.Tx, id string) (*domain.FieldDefinition, error) {
	// ids are UUIDs, anything else cannot exist
	if _, err := uuid.Parse(id); err != nil {
		return nil, &domain.ErrNotFound{Entity: "custom field", ID: id}
	}

	psql := sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	query, args, err := psql.Select(fieldColumns...).
		From(schema.FieldDefinitionsTable).
		Where(sq.Eq{"id": id, "is_deleted": false}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	field, err := scanField(tx.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &domain.ErrNotFound{Entity: "custom field", ID: id}
		}
		return nil, fmt.Errorf("failed to get custom field: %w", err)
	}

	return field, nil
}

// SoftDeleteTx marks an active field deleted within a transaction
func (r *CustomFieldRepository) SoftDeleteTx(ctx context.Context, tx *sql.Tx, id string, deletedAt time.Time) error {
	if _, err := uuid.Parse(id); err != nil {
		return &domain.ErrNotFound{Entity: "custom field", ID: id}
	}

	// placeholders appear in numeric order, SQLite numbers them by position
	query := `
		UPDATE custom_field_definitions
		SET is_deleted = true, deleted_at = $1
		WHERE id = $2 AND is_deleted = false
	`

	result, err := tx.ExecContext(ctx, query, deletedAt.UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to delete custom field: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return &domain.ErrNotFound{Entity: "custom field", ID: id}
	}

	return nil
}

// FindByColumn returns every catalog row, active or deleted, that uses a column of an entity type
func (r *CustomFieldRepository) FindByColumn(ctx context.Context, entityType, columnName string) ([]*domain.FieldDefinition, error) {
	psql := sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	builder := psql.Select(fieldColumns...).
		From(schema.FieldDefinitionsTable).
		Where(sq.Eq{"entity_type": entityType, "column_name": columnName}).
		OrderBy("created_at ASC", "id ASC")

	return r.queryFields(ctx, r.systemDB, builder)
}

// List returns the fields of an entity type in creation order
func (r *CustomFieldRepository) List(ctx context.Context, entityType string, includeDeleted bool) ([]*domain.FieldDefinition, error) {
	psql := sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	builder := psql.Select(fieldColumns...).
		From(schema.FieldDefinitionsTable).
		Where(sq.Eq{"entity_type": entityType})

	if !includeDeleted {
		builder = builder.Where(sq.Eq{"is_deleted": false})
	}

	builder = builder.OrderBy("created_at ASC", "id ASC")

	return r.queryFields(ctx, r.systemDB, builder)
}

// ListAll returns the fields of every entity type in creation order
func (r *CustomFieldRepository) ListAll(ctx context.Context, includeDeleted bool) ([]*domain.FieldDefinition, error) {
	psql := sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	builder := psql.Select(fieldColumns...).
		From(schema.FieldDefinitionsTable)

	if !includeDeleted {
		builder = builder.Where(sq.Eq{"is_deleted": false})
	}

	builder = builder.OrderBy("created_at ASC", "id ASC")

	fields, err := r.queryFields(ctx, r.systemDB, builder)
	if err != nil && database.IsUndefinedTable(err) {
		return nil, nil
	}
	return fields, err
}

// Snapshot reads the schema version and the active catalog inside one read-only transaction so
// the returned version never understates the returned fields
func (r *CustomFieldRepository) Snapshot(ctx context.Context) (int64, []*domain.FieldDefinition, error) {
	tx, err := r.systemDB.BeginTx(ctx, r.dialect.SnapshotTxOptions())
	if err != nil {
		return 0, nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var version int64
	err = tx.QueryRowContext(ctx,
		`SELECT version FROM custom_field_schema_version WHERE id = $1`,
		domain.SchemaVersionRecordID,
	).Scan(&version)
	if err != nil {
		switch {
		case database.IsUndefinedTable(err):
			// catalog not initialized yet
			return 0, nil, nil
		case errors.Is(err, sql.ErrNoRows):
			version = 0
		default:
			return 0, nil, fmt.Errorf("failed to read schema version: %w", err)
		}
	}

	psql := sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	builder := psql.Select(fieldColumns...).
		From(schema.FieldDefinitionsTable).
		Where(sq.Eq{"is_deleted": false}).
		OrderBy("created_at ASC", "id ASC")

	fields, err := r.queryFields(ctx, tx, builder)
	if err != nil {
		if database.IsUndefinedTable(err) {
			return version, nil, nil
		}
		return 0, nil, err
	}

	if err := tx.Commit(); err != nil {
		return 0, nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return version, fields, nil
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

func (r *CustomFieldRepository) queryFields(ctx context.Context, q queryer, builder sq.SelectBuilder) ([]*domain.FieldDefinition, error) {
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query custom fields: %w", err)
	}
	defer rows.Close()

	fields := make([]*domain.FieldDefinition, 0)
	for rows.Next() {
		field, err := scanField(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan custom field: %w", err)
		}
		fields = append(fields, field)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating custom field rows: %w", err)
	}

	return fields, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanField(row scanner) (*domain.FieldDefinition, error) {
	var (
		field        domain.FieldDefinition
		dataType     string
		maxLength    sql.NullInt64
		defaultValue sql.NullString
		displayName  sql.NullString
		description  sql.NullString
		createdBy    sql.NullString
		deletedAt    sql.NullTime
	)

	err := row.Scan(
		&field.ID,
		&field.EntityType,
		&field.FieldName,
		&field.ColumnName,
		&dataType,
		&maxLength,
		&field.IsRequired,
		&defaultValue,
		&displayName,
		&description,
		&field.CreatedAt,
		&createdBy,
		&field.IsDeleted,
		&deletedAt,
	)
	if err != nil {
		return nil, err
	}

	field.DataType = domain.DataType(dataType)
	field.CreatedAt = field.CreatedAt.UTC()

	if maxLength.Valid {
		length := int(maxLength.Int64)
		field.MaxLength = &length
	}
	if defaultValue.Valid {
		field.DefaultValue = &defaultValue.String
	}
	if displayName.Valid {
		field.DisplayName = &displayName.String
	}
	if description.Valid {
		field.Description = &description.String
	}
	if createdBy.Valid {
		field.CreatedBy = &createdBy.String
	}
	if deletedAt.Valid {
		t := deletedAt.Time.UTC()
		field.DeletedAt = &t
	}

	return &field, nil
}
