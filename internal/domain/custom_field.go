package domain

import (
	"context"
	"database/sql"
	"fmt"
	"hash/fnv"
	"regexp"
	"strings"
	"time"

	"github.com/asaskevich/govalidator"
)

//go:generate mockgen -destination mocks/mock_custom_field_repository.go -package mocks github.com/Notifuse/extfields/internal/domain CustomFieldRepository

// ExtensionColumnPrefix namespaces every runtime-added column so it can never collide with a
// core column of the host table
const ExtensionColumnPrefix = "ext_"

const (
	// MaxFieldNameLength is the maximum length of a human-entered field name
	MaxFieldNameLength = 200
	// MaxColumnNameLength is the identifier limit of PostgreSQL (NAMEDATALEN - 1)
	MaxColumnNameLength = 63
)

const fieldNamePattern = "^[a-zA-Z][a-zA-Z0-9_ ]*$"

var nonColumnChars = regexp.MustCompile(`[^a-z0-9_]`)

// DataType is the abstract type of an extension field
type DataType string

const (
	DataTypeString   DataType = "string"
	DataTypeInt      DataType = "int"
	DataTypeLong     DataType = "long"
	DataTypeDecimal  DataType = "decimal"
	DataTypeBool     DataType = "bool"
	DataTypeDate     DataType = "date"
	DataTypeDateTime DataType = "datetime"
	DataTypeGUID     DataType = "guid"
)

// ValidDataTypes lists every supported data type, in documentation order
var ValidDataTypes = []DataType{
	DataTypeString,
	DataTypeInt,
	DataTypeLong,
	DataTypeDecimal,
	DataTypeBool,
	DataTypeDate,
	DataTypeDateTime,
	DataTypeGUID,
}

// Validate checks the data type against the fixed enumeration
func (t DataType) Validate() error {
	for _, valid := range ValidDataTypes {
		if t == valid {
			return nil
		}
	}

	names := make([]string, len(ValidDataTypes))
	for i, valid := range ValidDataTypes {
		names[i] = string(valid)
	}
	return NewValidationError(fmt.Sprintf("invalid data type %q, must be one of: %s", string(t), strings.Join(names, ", ")))
}

// FieldDefinition is one catalog row describing an extension field
type FieldDefinition struct {
	ID           string     `json:"id"`
	EntityType   string     `json:"entity_type"`
	FieldName    string     `json:"field_name"`
	ColumnName   string     `json:"column_name"`
	DataType     DataType   `json:"data_type"`
	MaxLength    *int       `json:"max_length,omitempty"`
	IsRequired   bool       `json:"is_required"`
	DefaultValue *string    `json:"default_value,omitempty"`
	DisplayName  *string    `json:"display_name,omitempty"`
	Description  *string    `json:"description,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	CreatedBy    *string    `json:"created_by,omitempty"`
	IsDeleted    bool       `json:"is_deleted"`
	DeletedAt    *time.Time `json:"deleted_at,omitempty"`
}

// ColumnType returns the store-level type expression for this field
func (f *FieldDefinition) ColumnType() string {
	return BuildColumnType(f.DataType, f.MaxLength, f.IsRequired, f.DefaultValue)
}

// CreateFieldRequest carries the input of CustomFieldService.CreateField
type CreateFieldRequest struct {
	EntityType   string   `json:"entity_type"`
	FieldName    string   `json:"field_name"`
	DataType     DataType `json:"data_type"`
	MaxLength    *int     `json:"max_length,omitempty"`
	IsRequired   bool     `json:"is_required,omitempty"`
	DefaultValue *string  `json:"default_value,omitempty"`
	DisplayName  *string  `json:"display_name,omitempty"`
	Description  *string  `json:"description,omitempty"`
	Actor        string   `json:"actor,omitempty"`
}

// Validate validates the request and normalizes optional values
func (r *CreateFieldRequest) Validate() error {
	if strings.TrimSpace(r.EntityType) == "" {
		return NewValidationError("entity type is required")
	}

	if err := ValidateFieldName(r.FieldName); err != nil {
		return err
	}

	if err := r.DataType.Validate(); err != nil {
		return err
	}

	if r.MaxLength != nil {
		if r.DataType != DataTypeString {
			// only meaningful for strings
			r.MaxLength = nil
		} else if *r.MaxLength <= 0 {
			return NewValidationError("max length must be positive for string types")
		}
	}

	if r.DefaultValue != nil {
		trimmed := strings.TrimSpace(*r.DefaultValue)
		if trimmed == "" {
			r.DefaultValue = nil
		} else if strings.Contains(trimmed, ";") || strings.Contains(trimmed, "--") {
			return NewValidationError("default value must be a single expression")
		} else {
			r.DefaultValue = &trimmed
		}
	}

	return nil
}

// ValidateFieldName checks a human-entered field name
func ValidateFieldName(fieldName string) error {
	if strings.TrimSpace(fieldName) == "" {
		return NewValidationError("field name cannot be empty")
	}

	if len(fieldName) > MaxFieldNameLength {
		return NewValidationError(fmt.Sprintf("field name is too long (max %d characters)", MaxFieldNameLength))
	}

	if !govalidator.Matches(fieldName, fieldNamePattern) {
		return NewValidationError("field name must start with a letter and contain only letters, numbers, spaces, and underscores")
	}

	return nil
}

// GenerateColumnName derives the physical column identifier for a field name.
// It is pure: the same field name always yields the same column name.
func GenerateColumnName(fieldName string) string {
	sanitized := strings.ReplaceAll(strings.ToLower(fieldName), " ", "_")
	sanitized = nonColumnChars.ReplaceAllString(sanitized, "")

	if sanitized == "" || sanitized[0] < 'a' || sanitized[0] > 'z' {
		sanitized = "f_" + sanitized
	}

	column := ExtensionColumnPrefix + sanitized
	if len(column) <= MaxColumnNameLength {
		return column
	}

	// PostgreSQL would silently truncate, so shorten deterministically and keep a hash of the
	// full name to avoid collisions between long names sharing a prefix
	h := fnv.New32a()
	_, _ = h.Write([]byte(column))
	suffix := fmt.Sprintf("_%08x", h.Sum32())

	return column[:MaxColumnNameLength-len(suffix)] + suffix
}

// IsExtensionColumn reports whether a column name carries the extension namespace prefix
func IsExtensionColumn(columnName string) bool {
	return strings.HasPrefix(columnName, ExtensionColumnPrefix)
}

// BuildColumnType maps an abstract data type to a store-level column type expression
func BuildColumnType(dataType DataType, maxLength *int, isRequired bool, defaultValue *string) string {
	var sqlType string

	switch dataType {
	case DataTypeString:
		if maxLength != nil {
			sqlType = fmt.Sprintf("VARCHAR(%d)", *maxLength)
		} else {
			sqlType = "TEXT"
		}
	case DataTypeInt:
		sqlType = "INTEGER"
	case DataTypeLong:
		sqlType = "BIGINT"
	case DataTypeDecimal:
		sqlType = "DECIMAL(18, 2)"
	case DataTypeBool:
		sqlType = "BOOLEAN"
	case DataTypeDate:
		sqlType = "DATE"
	case DataTypeDateTime:
		sqlType = "TIMESTAMP"
	case DataTypeGUID:
		sqlType = "UUID"
	default:
		sqlType = "TEXT"
	}

	if isRequired {
		sqlType += " NOT NULL"
	} else {
		sqlType += " NULL"
	}

	if defaultValue != nil {
		sqlType += " DEFAULT " + *defaultValue
	}

	return sqlType
}

// InferDataType maps a physical column type reported by the store back to a data type.
// It returns false when the physical type has no extension-field equivalent.
func InferDataType(physicalType string) (DataType, *int, bool) {
	normalized := strings.ToLower(strings.TrimSpace(physicalType))

	switch {
	case strings.HasPrefix(normalized, "character varying"), strings.HasPrefix(normalized, "varchar"):
		if open := strings.Index(normalized, "("); open >= 0 {
			var length int
			if _, err := fmt.Sscanf(normalized[open+1:], "%d", &length); err == nil && length > 0 {
				return DataTypeString, &length, true
			}
		}
		return DataTypeString, nil, true
	case normalized == "text":
		return DataTypeString, nil, true
	case normalized == "integer", normalized == "int", normalized == "int4":
		return DataTypeInt, nil, true
	case normalized == "bigint", normalized == "int8":
		return DataTypeLong, nil, true
	case strings.HasPrefix(normalized, "numeric"), strings.HasPrefix(normalized, "decimal"):
		return DataTypeDecimal, nil, true
	case normalized == "boolean", normalized == "bool":
		return DataTypeBool, nil, true
	case normalized == "date":
		return DataTypeDate, nil, true
	case strings.HasPrefix(normalized, "timestamp"), normalized == "datetime":
		return DataTypeDateTime, nil, true
	case normalized == "uuid":
		return DataTypeGUID, nil, true
	}

	return "", nil, false
}

// FieldNameFromColumn reverses the column naming convention as far as it is reversible,
// for registering columns the catalog does not know about
func FieldNameFromColumn(columnName string) string {
	name := strings.TrimPrefix(columnName, ExtensionColumnPrefix)
	name = strings.TrimPrefix(name, "f_")
	return strings.ReplaceAll(name, "_", " ")
}

// CustomFieldRepository persists the extension-field catalog
type CustomFieldRepository interface {
	// WithTransaction runs fn inside a transaction that is committed when fn returns nil
	WithTransaction(ctx context.Context, fn func(*sql.Tx) error) error

	// CreateTx inserts a catalog row. A duplicate active (entity_type, column_name) pair
	// yields a *ConflictError.
	CreateTx(ctx context.Context, tx *sql.Tx, field *FieldDefinition) error

	// GetActiveByIDTx returns an active field, or *ErrNotFound
	GetActiveByIDTx(ctx context.Context, tx *sql.Tx, id string) (*FieldDefinition, error)

	// SoftDeleteTx marks an active field deleted, or returns *ErrNotFound
	SoftDeleteTx(ctx context.Context, tx *sql.Tx, id string, deletedAt time.Time) error

	// FindByColumn returns every row (active or deleted) using the column for an entity type
	FindByColumn(ctx context.Context, entityType, columnName string) ([]*FieldDefinition, error)

	// List returns the fields of an entity type ordered by creation
	List(ctx context.Context, entityType string, includeDeleted bool) ([]*FieldDefinition, error)

	// ListAll returns every catalog row of every entity type ordered by creation
	ListAll(ctx context.Context, includeDeleted bool) ([]*FieldDefinition, error)

	// Snapshot reads the schema version and the active catalog in one consistent read.
	// A missing catalog yields version 0 and no fields.
	Snapshot(ctx context.Context) (int64, []*FieldDefinition, error)
}

// CustomFieldService manages extension fields
type CustomFieldService interface {
	CreateField(ctx context.Context, req *CreateFieldRequest) (*FieldDefinition, error)
	DeleteField(ctx context.Context, fieldID string, actor string) error
	ListFields(ctx context.Context, entityType string, includeDeleted bool) ([]*FieldDefinition, error)
	GetSchemaVersion(ctx context.Context) (int64, error)
}
