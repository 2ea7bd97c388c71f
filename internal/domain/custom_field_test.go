package domain

import (
	"regexp"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(i int) *int {
	return &i
}

func strPtr(s string) *string {
	return &s
}

func TestGenerateColumnName(t *testing.T) {
	tests := []struct {
		name      string
		fieldName string
		expected  string
	}{
		{name: "spaces become underscores", fieldName: "Loyalty Tier", expected: "ext_loyalty_tier"},
		{name: "lower cased", fieldName: "VIP", expected: "ext_vip"},
		{name: "underscores kept", fieldName: "account_manager", expected: "ext_account_manager"},
		{name: "other characters dropped", fieldName: "Order #2", expected: "ext_order_2"},
		{name: "leading digit", fieldName: "123abc", expected: "ext_f_123abc"},
		{name: "leading underscore", fieldName: "_hidden", expected: "ext_f__hidden"},
		{name: "nothing left", fieldName: "###", expected: "ext_f_"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, GenerateColumnName(tt.fieldName))
		})
	}
}

func TestGenerateColumnName_LongNames(t *testing.T) {
	base := strings.Repeat("a", 100)

	first := GenerateColumnName(base + " one")
	second := GenerateColumnName(base + " two")

	assert.Len(t, first, MaxColumnNameLength)
	assert.Len(t, second, MaxColumnNameLength)
	assert.True(t, strings.HasPrefix(first, "ext_aaaa"))
	assert.NotEqual(t, first, second)
	assert.Equal(t, first, GenerateColumnName(base+" one"))

	// exactly at the limit nothing is hashed
	exact := strings.Repeat("b", MaxColumnNameLength-len(ExtensionColumnPrefix))
	assert.Equal(t, ExtensionColumnPrefix+exact, GenerateColumnName(exact))
}

func TestProperty_GenerateColumnName(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	identifier := regexp.MustCompile(`^ext_[a-z][a-z0-9_]*$`)

	properties.Property("column names are deterministic, prefixed, bounded identifiers", prop.ForAll(
		func(fieldName string) bool {
			column := GenerateColumnName(fieldName)
			return column == GenerateColumnName(fieldName) &&
				IsExtensionColumn(column) &&
				len(column) <= MaxColumnNameLength &&
				(identifier.MatchString(column) || column == "ext_f_")
		},
		gen.AnyString(),
	))

	properties.Property("case and spacing variants share a column", prop.ForAll(
		func(words []string) bool {
			name := strings.Join(words, " ")
			return GenerateColumnName(name) == GenerateColumnName(strings.ToUpper(name))
		},
		gen.SliceOf(gen.AlphaString()),
	))

	properties.TestingRun(t)
}

func TestBuildColumnType(t *testing.T) {
	tests := []struct {
		name         string
		dataType     DataType
		maxLength    *int
		isRequired   bool
		defaultValue *string
		expected     string
	}{
		{name: "unbounded string", dataType: DataTypeString, expected: "TEXT NULL"},
		{name: "bounded required string", dataType: DataTypeString, maxLength: intPtr(50), isRequired: true, defaultValue: strPtr("'none'"), expected: "VARCHAR(50) NOT NULL DEFAULT 'none'"},
		{name: "int", dataType: DataTypeInt, expected: "INTEGER NULL"},
		{name: "long", dataType: DataTypeLong, isRequired: true, defaultValue: strPtr("0"), expected: "BIGINT NOT NULL DEFAULT 0"},
		{name: "decimal", dataType: DataTypeDecimal, expected: "DECIMAL(18, 2) NULL"},
		{name: "bool", dataType: DataTypeBool, expected: "BOOLEAN NULL"},
		{name: "date", dataType: DataTypeDate, expected: "DATE NULL"},
		{name: "datetime", dataType: DataTypeDateTime, expected: "TIMESTAMP NULL"},
		{name: "guid", dataType: DataTypeGUID, expected: "UUID NULL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, BuildColumnType(tt.dataType, tt.maxLength, tt.isRequired, tt.defaultValue))
		})
	}
}

func TestFieldDefinition_ColumnType(t *testing.T) {
	field := &FieldDefinition{DataType: DataTypeString, MaxLength: intPtr(20)}
	assert.Equal(t, "VARCHAR(20) NULL", field.ColumnType())
}

func TestDataType_Validate(t *testing.T) {
	for _, dataType := range ValidDataTypes {
		assert.NoError(t, dataType.Validate())
	}

	err := DataType("money").Validate()
	require.Error(t, err)
	assert.True(t, IsValidationError(err))
	assert.Contains(t, err.Error(), "must be one of: string, int, long, decimal, bool, date, datetime, guid")
}

func TestValidateFieldName(t *testing.T) {
	valid := []string{"Tier", "Loyalty Tier", "account_manager", "Phone2"}
	for _, name := range valid {
		assert.NoError(t, ValidateFieldName(name), name)
	}

	invalid := []string{"", "   ", "2fa", "_private", "e-mail", "tier;", strings.Repeat("a", MaxFieldNameLength+1)}
	for _, name := range invalid {
		err := ValidateFieldName(name)
		assert.True(t, IsValidationError(err), "expected %q to be rejected", name)
	}
}

func TestCreateFieldRequest_Validate(t *testing.T) {
	t.Run("valid request", func(t *testing.T) {
		req := &CreateFieldRequest{EntityType: "Customer", FieldName: "Tier", DataType: DataTypeString, MaxLength: intPtr(20)}
		require.NoError(t, req.Validate())
		assert.Equal(t, 20, *req.MaxLength)
	})

	t.Run("missing entity type", func(t *testing.T) {
		req := &CreateFieldRequest{EntityType: " ", FieldName: "Tier", DataType: DataTypeString}
		err := req.Validate()
		assert.EqualError(t, err, "validation error: entity type is required")
	})

	t.Run("invalid data type", func(t *testing.T) {
		req := &CreateFieldRequest{EntityType: "Customer", FieldName: "Tier", DataType: "json"}
		assert.True(t, IsValidationError(req.Validate()))
	})

	t.Run("non-positive max length", func(t *testing.T) {
		req := &CreateFieldRequest{EntityType: "Customer", FieldName: "Tier", DataType: DataTypeString, MaxLength: intPtr(0)}
		assert.EqualError(t, req.Validate(), "validation error: max length must be positive for string types")
	})

	t.Run("max length dropped for non-strings", func(t *testing.T) {
		req := &CreateFieldRequest{EntityType: "Customer", FieldName: "Visits", DataType: DataTypeInt, MaxLength: intPtr(-3)}
		require.NoError(t, req.Validate())
		assert.Nil(t, req.MaxLength)
	})

	t.Run("blank default dropped", func(t *testing.T) {
		req := &CreateFieldRequest{EntityType: "Customer", FieldName: "Tier", DataType: DataTypeString, DefaultValue: strPtr("   ")}
		require.NoError(t, req.Validate())
		assert.Nil(t, req.DefaultValue)
	})

	t.Run("default trimmed", func(t *testing.T) {
		req := &CreateFieldRequest{EntityType: "Customer", FieldName: "Visits", DataType: DataTypeInt, DefaultValue: strPtr(" 5 ")}
		require.NoError(t, req.Validate())
		assert.Equal(t, "5", *req.DefaultValue)
	})

	t.Run("default must be a single expression", func(t *testing.T) {
		for _, value := range []string{"0; DROP TABLE customers", "0 -- comment"} {
			req := &CreateFieldRequest{EntityType: "Customer", FieldName: "Visits", DataType: DataTypeInt, DefaultValue: strPtr(value)}
			assert.EqualError(t, req.Validate(), "validation error: default value must be a single expression")
		}
	})
}

func TestInferDataType(t *testing.T) {
	tests := []struct {
		physical  string
		dataType  DataType
		maxLength *int
		ok        bool
	}{
		{physical: "character varying(30)", dataType: DataTypeString, maxLength: intPtr(30), ok: true},
		{physical: "character varying", dataType: DataTypeString, ok: true},
		{physical: "VARCHAR(8)", dataType: DataTypeString, maxLength: intPtr(8), ok: true},
		{physical: "text", dataType: DataTypeString, ok: true},
		{physical: "integer", dataType: DataTypeInt, ok: true},
		{physical: "INT4", dataType: DataTypeInt, ok: true},
		{physical: "bigint", dataType: DataTypeLong, ok: true},
		{physical: "numeric(18,2)", dataType: DataTypeDecimal, ok: true},
		{physical: "DECIMAL(18, 2)", dataType: DataTypeDecimal, ok: true},
		{physical: "boolean", dataType: DataTypeBool, ok: true},
		{physical: "date", dataType: DataTypeDate, ok: true},
		{physical: "timestamp without time zone", dataType: DataTypeDateTime, ok: true},
		{physical: "uuid", dataType: DataTypeGUID, ok: true},
		{physical: "bytea"},
		{physical: "jsonb"},
	}

	for _, tt := range tests {
		t.Run(tt.physical, func(t *testing.T) {
			dataType, maxLength, ok := InferDataType(tt.physical)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.dataType, dataType)
			assert.Equal(t, tt.maxLength, maxLength)
		})
	}
}

func TestFieldNameFromColumn(t *testing.T) {
	assert.Equal(t, "legacy code", FieldNameFromColumn("ext_legacy_code"))
	assert.Equal(t, "123abc", FieldNameFromColumn("ext_f_123abc"))
	assert.Equal(t, "tier", FieldNameFromColumn(GenerateColumnName("Tier")))
}

func TestIsExtensionColumn(t *testing.T) {
	assert.True(t, IsExtensionColumn("ext_tier"))
	assert.False(t, IsExtensionColumn("external_id"))
	assert.False(t, IsExtensionColumn("tier"))
}
