package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Notifuse/extfields/internal/database"
	"github.com/Notifuse/extfields/internal/domain"
)

var customerEntity = domain.EntityType{
	Name:       "Customer",
	Schema:     "public",
	Table:      "customers",
	PrimaryKey: "id",
	Columns:    []string{"id", "name"},
}

func TestColumnRepository_AddColumnTx(t *testing.T) {
	ctx := context.Background()

	t.Run("quotes identifiers", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		repo := NewColumnRepository(db, database.DialectPostgres)

		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta(`ALTER TABLE "public"."customers" ADD COLUMN "ext_loyalty_tier" VARCHAR(20) NULL`)).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectCommit()

		tx, err := db.Begin()
		require.NoError(t, err)
		err = repo.AddColumnTx(ctx, tx, customerEntity, "ext_loyalty_tier", "VARCHAR(20) NULL")
		require.NoError(t, err)
		require.NoError(t, tx.Commit())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("store rejection is an execution error", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		repo := NewColumnRepository(db, database.DialectPostgres)
		cause := &pq.Error{Code: "42501", Message: "permission denied for table customers"}

		mock.ExpectBegin()
		mock.ExpectExec("ALTER TABLE").WillReturnError(cause)
		mock.ExpectRollback()

		tx, err := db.Begin()
		require.NoError(t, err)
		err = repo.AddColumnTx(ctx, tx, customerEntity, "ext_loyalty_tier", "TEXT NULL")
		require.Error(t, err)
		assert.True(t, domain.IsExecutionError(err))
		assert.NotContains(t, err.Error(), "permission denied")

		var pqErr *pq.Error
		assert.True(t, errors.As(err, &pqErr), "driver error stays reachable")
		require.NoError(t, tx.Rollback())
	})

	t.Run("untracked column already present", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		repo := NewColumnRepository(db, database.DialectPostgres)

		mock.ExpectBegin()
		mock.ExpectExec("ALTER TABLE").WillReturnError(&pq.Error{Code: "42701"})
		mock.ExpectRollback()

		tx, err := db.Begin()
		require.NoError(t, err)
		err = repo.AddColumnTx(ctx, tx, customerEntity, "ext_loyalty_tier", "TEXT NULL")
		require.Error(t, err)
		assert.True(t, domain.IsExecutionError(err))
		assert.Contains(t, err.Error(), "not tracked by the catalog")
		require.NoError(t, tx.Rollback())
	})
}

func TestColumnRepository_ListColumns(t *testing.T) {
	ctx := context.Background()

	t.Run("postgres information schema", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		repo := NewColumnRepository(db, database.DialectPostgres)

		mock.ExpectQuery(regexp.QuoteMeta("FROM information_schema.columns")).
			WithArgs("public", "customers").
			WillReturnRows(sqlmock.NewRows([]string{"column_name", "data_type", "character_maximum_length", "is_nullable"}).
				AddRow("id", "uuid", nil, "NO").
				AddRow("ext_loyalty_tier", "character varying", int64(20), "YES").
				AddRow("ext_score", "integer", nil, "NO"))

		columns, err := repo.ListColumns(ctx, customerEntity)
		require.NoError(t, err)
		require.Len(t, columns, 3)
		assert.Equal(t, domain.PhysicalColumn{Name: "id", Type: "uuid", Nullable: false}, columns[0])
		assert.Equal(t, domain.PhysicalColumn{Name: "ext_loyalty_tier", Type: "character varying(20)", Nullable: true}, columns[1])
		assert.False(t, columns[2].Nullable)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("sqlite table info", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		repo := NewColumnRepository(db, database.DialectSQLite)

		mock.ExpectQuery(regexp.QuoteMeta("FROM pragma_table_info($1)")).
			WithArgs("customers").
			WillReturnRows(sqlmock.NewRows([]string{"name", "type", "notnull"}).
				AddRow("id", "TEXT", int64(1)).
				AddRow("ext_balance", "DECIMAL(18, 2)", int64(0)))

		columns, err := repo.ListColumns(ctx, customerEntity)
		require.NoError(t, err)
		require.Len(t, columns, 2)
		assert.Equal(t, "DECIMAL(18, 2)", columns[1].Type)
		assert.True(t, columns[1].Nullable)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing table", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		repo := NewColumnRepository(db, database.DialectPostgres)

		mock.ExpectQuery("FROM information_schema.columns").
			WillReturnRows(sqlmock.NewRows([]string{"column_name", "data_type", "character_maximum_length", "is_nullable"}))

		_, err = repo.ListColumns(ctx, customerEntity)
		require.Error(t, err)
		assert.True(t, domain.IsNotFound(err))
	})

	t.Run("query error", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		repo := NewColumnRepository(db, database.DialectPostgres)

		mock.ExpectQuery("FROM information_schema.columns").
			WillReturnError(sql.ErrConnDone)

		_, err = repo.ListColumns(ctx, customerEntity)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to list columns of public.customers")
	})
}
