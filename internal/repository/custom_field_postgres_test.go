package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Notifuse/extfields/internal/database"
	"github.com/Notifuse/extfields/internal/domain"
)

const testFieldID = "4b1a7f0e-6f5c-4c2e-9a3d-2f1f0a9c1e11"

func fieldRows() *sqlmock.Rows {
	return sqlmock.NewRows(fieldColumns)
}

func addFieldRow(rows *sqlmock.Rows, id, entityType, fieldName, columnName string, createdAt time.Time) *sqlmock.Rows {
	return rows.AddRow(
		id, entityType, fieldName, columnName, "string",
		20, false, nil, fieldName, nil,
		createdAt, "admin", false, nil,
	)
}

func TestCustomFieldRepository_CreateTx(t *testing.T) {
	ctx := context.Background()
	maxLength := 20
	actor := "admin"

	newField := func() *domain.FieldDefinition {
		return &domain.FieldDefinition{
			EntityType: "Customer",
			FieldName:  "Loyalty Tier",
			ColumnName: "ext_loyalty_tier",
			DataType:   domain.DataTypeString,
			MaxLength:  &maxLength,
			CreatedBy:  &actor,
		}
	}

	t.Run("inserts row and generates id", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		repo := NewCustomFieldRepository(db, database.DialectPostgres)

		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO custom_field_definitions (id,entity_type,field_name,column_name,data_type,max_length,is_required,default_value,display_name,description,created_at,created_by,is_deleted,deleted_at)")).
			WithArgs(sqlmock.AnyArg(), "Customer", "Loyalty Tier", "ext_loyalty_tier", "string",
				20, false, nil, nil, nil, sqlmock.AnyArg(), "admin", false, nil).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectCommit()

		field := newField()
		err = repo.WithTransaction(ctx, func(tx *sql.Tx) error {
			return repo.CreateTx(ctx, tx, field)
		})
		require.NoError(t, err)
		assert.NotEmpty(t, field.ID)
		assert.False(t, field.CreatedAt.IsZero())
		assert.Equal(t, time.UTC, field.CreatedAt.Location())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unique violation becomes conflict", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		repo := NewCustomFieldRepository(db, database.DialectPostgres)

		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO custom_field_definitions").
			WillReturnError(&pq.Error{Code: "23505"})
		mock.ExpectRollback()

		err = repo.WithTransaction(ctx, func(tx *sql.Tx) error {
			return repo.CreateTx(ctx, tx, newField())
		})
		require.Error(t, err)
		assert.True(t, domain.IsConflict(err))

		var conflict *domain.ConflictError
		require.True(t, errors.As(err, &conflict))
		assert.Equal(t, "ext_loyalty_tier", conflict.ColumnName)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("other errors are wrapped", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		repo := NewCustomFieldRepository(db, database.DialectPostgres)

		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO custom_field_definitions").
			WillReturnError(errors.New("connection lost"))
		mock.ExpectRollback()

		err = repo.WithTransaction(ctx, func(tx *sql.Tx) error {
			return repo.CreateTx(ctx, tx, newField())
		})
		require.Error(t, err)
		assert.False(t, domain.IsConflict(err))
		assert.Contains(t, err.Error(), "failed to insert custom field")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestCustomFieldRepository_WithTransaction(t *testing.T) {
	ctx := context.Background()

	t.Run("begin failure", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		repo := NewCustomFieldRepository(db, database.DialectPostgres)
		mock.ExpectBegin().WillReturnError(errors.New("too many connections"))

		err = repo.WithTransaction(ctx, func(tx *sql.Tx) error { return nil })
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to begin transaction")
	})

	t.Run("commit failure", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		repo := NewCustomFieldRepository(db, database.DialectPostgres)
		mock.ExpectBegin()
		mock.ExpectCommit().WillReturnError(errors.New("serialization failure"))

		err = repo.WithTransaction(ctx, func(tx *sql.Tx) error { return nil })
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to commit transaction")
	})
}

func TestCustomFieldRepository_GetActiveByIDTx(t *testing.T) {
	ctx := context.Background()
	createdAt := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	t.Run("found", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		repo := NewCustomFieldRepository(db, database.DialectPostgres)

		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta("FROM custom_field_definitions WHERE id = $1 AND is_deleted = $2")).
			WithArgs(testFieldID, false).
			WillReturnRows(addFieldRow(fieldRows(), testFieldID, "Customer", "Loyalty Tier", "ext_loyalty_tier", createdAt))
		mock.ExpectCommit()

		var field *domain.FieldDefinition
		err = repo.WithTransaction(ctx, func(tx *sql.Tx) error {
			var err error
			field, err = repo.GetActiveByIDTx(ctx, tx, testFieldID)
			return err
		})
		require.NoError(t, err)
		assert.Equal(t, testFieldID, field.ID)
		assert.Equal(t, domain.DataTypeString, field.DataType)
		require.NotNil(t, field.MaxLength)
		assert.Equal(t, 20, *field.MaxLength)
		require.NotNil(t, field.DisplayName)
		assert.Equal(t, "Loyalty Tier", *field.DisplayName)
		assert.Nil(t, field.DefaultValue)
		assert.Nil(t, field.DeletedAt)
		assert.Equal(t, createdAt, field.CreatedAt)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		repo := NewCustomFieldRepository(db, database.DialectPostgres)

		mock.ExpectBegin()
		mock.ExpectQuery("FROM custom_field_definitions").
			WithArgs(testFieldID, false).
			WillReturnRows(fieldRows())
		mock.ExpectRollback()

		err = repo.WithTransaction(ctx, func(tx *sql.Tx) error {
			_, err := repo.GetActiveByIDTx(ctx, tx, testFieldID)
			return err
		})
		require.Error(t, err)
		assert.True(t, domain.IsNotFound(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("malformed id is not found without a query", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		repo := NewCustomFieldRepository(db, database.DialectPostgres)

		mock.ExpectBegin()
		mock.ExpectRollback()

		err = repo.WithTransaction(ctx, func(tx *sql.Tx) error {
			_, err := repo.GetActiveByIDTx(ctx, tx, "not-a-uuid")
			return err
		})
		require.Error(t, err)
		assert.True(t, domain.IsNotFound(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestCustomFieldRepository_SoftDeleteTx(t *testing.T) {
	ctx := context.Background()
	deletedAt := time.Date(2024, 5, 2, 8, 30, 0, 0, time.UTC)

	t.Run("marks row deleted", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		repo := NewCustomFieldRepository(db, database.DialectPostgres)

		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta("UPDATE custom_field_definitions")).
			WithArgs(deletedAt, testFieldID).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err = repo.WithTransaction(ctx, func(tx *sql.Tx) error {
			return repo.SoftDeleteTx(ctx, tx, testFieldID, deletedAt)
		})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("already deleted is not found", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		repo := NewCustomFieldRepository(db, database.DialectPostgres)

		mock.ExpectBegin()
		mock.ExpectExec("UPDATE custom_field_definitions").
			WithArgs(deletedAt, testFieldID).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		err = repo.WithTransaction(ctx, func(tx *sql.Tx) error {
			return repo.SoftDeleteTx(ctx, tx, testFieldID, deletedAt)
		})
		require.Error(t, err)
		assert.True(t, domain.IsNotFound(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestCustomFieldRepository_List(t *testing.T) {
	ctx := context.Background()
	first := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	second := first.Add(time.Hour)

	t.Run("active only", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		repo := NewCustomFieldRepository(db, database.DialectPostgres)

		rows := fieldRows()
		addFieldRow(rows, testFieldID, "Customer", "Loyalty Tier", "ext_loyalty_tier", first)
		addFieldRow(rows, "9d3b3f5a-1c2d-4e5f-8a9b-0c1d2e3f4a5b", "Customer", "Region", "ext_region", second)

		mock.ExpectQuery(regexp.QuoteMeta("FROM custom_field_definitions WHERE entity_type = $1 AND is_deleted = $2 ORDER BY created_at ASC, id ASC")).
			WithArgs("Customer", false).
			WillReturnRows(rows)

		fields, err := repo.List(ctx, "Customer", false)
		require.NoError(t, err)
		require.Len(t, fields, 2)
		assert.Equal(t, "ext_loyalty_tier", fields[0].ColumnName)
		assert.Equal(t, "ext_region", fields[1].ColumnName)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("include deleted", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		repo := NewCustomFieldRepository(db, database.DialectPostgres)

		deletedAt := second
		rows := fieldRows().AddRow(
			testFieldID, "Customer", "Loyalty Tier", "ext_loyalty_tier", "string",
			nil, false, nil, nil, nil,
			first, nil, true, deletedAt,
		)

		mock.ExpectQuery(regexp.QuoteMeta("FROM custom_field_definitions WHERE entity_type = $1 ORDER BY")).
			WithArgs("Customer").
			WillReturnRows(rows)

		fields, err := repo.List(ctx, "Customer", true)
		require.NoError(t, err)
		require.Len(t, fields, 1)
		assert.True(t, fields[0].IsDeleted)
		require.NotNil(t, fields[0].DeletedAt)
		assert.Equal(t, deletedAt, *fields[0].DeletedAt)
		assert.Nil(t, fields[0].MaxLength)
		assert.Nil(t, fields[0].CreatedBy)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("empty result is an empty slice", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		repo := NewCustomFieldRepository(db, database.DialectPostgres)

		mock.ExpectQuery("FROM custom_field_definitions").
			WithArgs("Order", false).
			WillReturnRows(fieldRows())

		fields, err := repo.List(ctx, "Order", false)
		require.NoError(t, err)
		assert.NotNil(t, fields)
		assert.Empty(t, fields)
	})

	t.Run("query error", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		repo := NewCustomFieldRepository(db, database.DialectPostgres)

		mock.ExpectQuery("FROM custom_field_definitions").
			WillReturnError(errors.New("boom"))

		_, err = repo.List(ctx, "Customer", false)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to query custom fields")
	})
}

func TestCustomFieldRepository_FindByColumn(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewCustomFieldRepository(db, database.DialectPostgres)

	// squirrel orders Eq keys alphabetically
	mock.ExpectQuery(regexp.QuoteMeta("WHERE column_name = $1 AND entity_type = $2")).
		WithArgs("ext_loyalty_tier", "Customer").
		WillReturnRows(addFieldRow(fieldRows(), testFieldID, "Customer", "Loyalty Tier", "ext_loyalty_tier", time.Now().UTC()))

	fields, err := repo.FindByColumn(context.Background(), "Customer", "ext_loyalty_tier")
	require.NoError(t, err)
	require.Len(t, fields, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCustomFieldRepository_ListAll(t *testing.T) {
	t.Run("missing catalog yields nothing", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		repo := NewCustomFieldRepository(db, database.DialectPostgres)

		mock.ExpectQuery("FROM custom_field_definitions").
			WillReturnError(&pq.Error{Code: "42P01"})

		fields, err := repo.ListAll(context.Background(), false)
		require.NoError(t, err)
		assert.Empty(t, fields)
	})
}

func TestCustomFieldRepository_Snapshot(t *testing.T) {
	ctx := context.Background()
	createdAt := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	t.Run("reads version and active fields in one transaction", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		repo := NewCustomFieldRepository(db, database.DialectPostgres)

		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta("SELECT version FROM custom_field_schema_version WHERE id = $1")).
			WithArgs(1).
			WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow(int64(4)))
		mock.ExpectQuery(regexp.QuoteMeta("FROM custom_field_definitions WHERE is_deleted = $1 ORDER BY created_at ASC, id ASC")).
			WithArgs(false).
			WillReturnRows(addFieldRow(fieldRows(), testFieldID, "Customer", "Loyalty Tier", "ext_loyalty_tier", createdAt))
		mock.ExpectCommit()

		version, fields, err := repo.Snapshot(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(4), version)
		require.Len(t, fields, 1)
		assert.Equal(t, "ext_loyalty_tier", fields[0].ColumnName)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing catalog is version zero", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		repo := NewCustomFieldRepository(db, database.DialectSQLite)

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT version FROM custom_field_schema_version").
			WillReturnError(&pq.Error{Code: "42P01"})
		mock.ExpectRollback()

		version, fields, err := repo.Snapshot(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(0), version)
		assert.Empty(t, fields)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing version row is version zero", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		repo := NewCustomFieldRepository(db, database.DialectPostgres)

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT version FROM custom_field_schema_version").
			WillReturnRows(sqlmock.NewRows([]string{"version"}))
		mock.ExpectQuery("FROM custom_field_definitions").
			WillReturnRows(fieldRows())
		mock.ExpectCommit()

		version, fields, err := repo.Snapshot(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(0), version)
		assert.Empty(t, fields)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("read error", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		repo := NewCustomFieldRepository(db, database.DialectPostgres)

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT version FROM custom_field_schema_version").
			WillReturnError(errors.New("connection reset"))
		mock.ExpectRollback()

		_, _, err = repo.Snapshot(ctx)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to read schema version")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
