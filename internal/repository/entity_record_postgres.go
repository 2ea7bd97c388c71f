package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"github.com/Notifuse/extfields/internal/domain"
)

// EntityRecordRepository implements domain.EntityRecordRepository on host tables. Statements are
// built from the entity metadata of the caller's model, so deleted extension columns are never read
// or written.
type EntityRecordRepository struct {
	systemDB *sql.DB
}

// NewEntityRecordRepository creates a new EntityRecordRepository
func NewEntityRecordRepository(db *sql.DB) domain.EntityRecordRepository {
	return &EntityRecordRepository{
		systemDB: db,
	}
}

func quoteColumns(columns []string) []string {
	quoted := make([]string, len(columns))
	for i, column := range columns {
		quoted[i] = pq.QuoteIdentifier(column)
	}
	return quoted
}

// Get loads one row with its core columns and every active extension column
func (r *EntityRecordRepository) Get(ctx context.Context, entity *domain.EntityMetadata, id interface{}) (*domain.Record, error) {
	columns := entity.Columns()

	psql := sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	query, args, err := psql.Select(quoteColumns(columns)...).
		From(entity.Entity.QualifiedTable()).
		Where(sq.Eq{pq.QuoteIdentifier(entity.Entity.PrimaryKey): id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	raw := make([]interface{}, len(columns))
	dest := make([]interface{}, len(columns))
	for i := range raw {
		dest[i] = &raw[i]
	}

	if err := r.systemDB.QueryRowContext(ctx, query, args...).Scan(dest...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &domain.ErrNotFound{Entity: entity.Entity.Name, ID: fmt.Sprint(id)}
		}
		return nil, fmt.Errorf("failed to get %s: %w", entity.Entity.Name, err)
	}

	record := domain.NewRecord(entity.Entity.Name, id)
	for i, column := range columns {
		value := raw[i]

		if property, ok := entity.Extension(column); ok {
			decoded, err := property.Codec.Decode(value)
			if err != nil {
				return nil, fmt.Errorf("failed to decode %s.%s: %w", entity.Entity.Name, column, err)
			}
			value = decoded
		} else if b, ok := value.([]byte); ok {
			value = string(b)
		}

		record.SetLoaded(column, value)
	}

	return record, nil
}

// Insert writes a new row from the staged values. Omitted extension columns take their defaults.
func (r *EntityRecordRepository) Insert(ctx context.Context, entity *domain.EntityMetadata, record *domain.Record) error {
	pk := entity.Entity.PrimaryKey

	var columns []string
	var values []interface{}

	if _, staged := record.Value(pk); !staged && record.ID != nil {
		columns = append(columns, pk)
		values = append(values, record.ID)
	}

	for _, column := range record.ChangedColumns() {
		if !entity.HasColumn(column) {
			continue
		}
		value, _ := record.Value(column)
		columns = append(columns, column)
		values = append(values, value)
	}

	if len(columns) == 0 {
		return domain.NewValidationError(fmt.Sprintf("%s record has no values to insert", entity.Entity.Name))
	}

	psql := sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	query, args, err := psql.Insert(entity.Entity.QualifiedTable()).
		Columns(quoteColumns(columns)...).
		Values(values...).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build query: %w", err)
	}

	if _, err := r.systemDB.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to insert %s: %w", entity.Entity.Name, err)
	}

	if id, ok := record.Value(pk); ok {
		record.ID = id
	}
	record.MarkPersisted()

	return nil
}

// Update writes the staged values of an existing row
func (r *EntityRecordRepository) Update(ctx context.Context, entity *domain.EntityMetadata, record *domain.Record) error {
	pk := entity.Entity.PrimaryKey

	psql := sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	builder := psql.Update(entity.Entity.QualifiedTable())

	changed := 0
	for _, column := range record.ChangedColumns() {
		if column == pk || !entity.HasColumn(column) {
			continue
		}
		value, _ := record.Value(column)
		builder = builder.Set(pq.QuoteIdentifier(column), value)
		changed++
	}

	if changed == 0 {
		record.MarkPersisted()
		return nil
	}

	query, args, err := builder.
		Where(sq.Eq{pq.QuoteIdentifier(pk): record.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build query: %w", err)
	}

	result, err := r.systemDB.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update %s: %w", entity.Entity.Name, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return &domain.ErrNotFound{Entity: entity.Entity.Name, ID: fmt.Sprint(record.ID)}
	}

	record.MarkPersisted()
	return nil
}
