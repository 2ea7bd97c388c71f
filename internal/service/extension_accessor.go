package service

import (
	"sort"

	"github.com/Notifuse/extfields/internal/domain"
)

// ExtensionAccessor reads and stages extension values on records, addressed by column name.
// It resolves columns against one model, so it never sees fields created or deleted after that
// model was loaded.
type ExtensionAccessor struct {
	model *domain.Model
}

func NewExtensionAccessor(model *domain.Model) *ExtensionAccessor {
	return &ExtensionAccessor{model: model}
}

// Model returns the model the accessor resolves against
func (a *ExtensionAccessor) Model() *domain.Model {
	return a.model
}

func (a *ExtensionAccessor) property(record *domain.Record, column string) (*domain.ExtensionProperty, bool) {
	if record == nil || !domain.IsExtensionColumn(column) {
		return nil, false
	}
	return a.model.Extension(record.EntityType, column)
}

// GetValue returns the value of an extension column. A column that is not part of the model
// yields nil and false.
func (a *ExtensionAccessor) GetValue(record *domain.Record, column string) (interface{}, bool) {
	if _, ok := a.property(record, column); !ok {
		return nil, false
	}
	value, _ := record.Value(column)
	return value, true
}

// SetValue validates value against the column's type and stages it on the record. Nothing is
// written until the record is saved.
func (a *ExtensionAccessor) SetValue(record *domain.Record, column string, value interface{}) error {
	property, ok := a.property(record, column)
	if !ok {
		entityType := ""
		if record != nil {
			entityType = record.EntityType
		}
		return &domain.ErrNotFound{Entity: "extension field", ID: entityType + "." + column}
	}

	normalized, err := property.Normalize(value)
	if err != nil {
		return err
	}

	record.Stage(column, normalized)
	return nil
}

// GetAllExtensionValues returns the values of every extension column of the record's entity
func (a *ExtensionAccessor) GetAllExtensionValues(record *domain.Record) map[string]interface{} {
	values := make(map[string]interface{})
	if record == nil {
		return values
	}

	entity, ok := a.model.Entity(record.EntityType)
	if !ok {
		return values
	}

	for _, property := range entity.Extensions {
		column := property.ColumnName()
		if !domain.IsExtensionColumn(column) {
			continue
		}
		value, _ := record.Value(column)
		values[column] = value
	}
	return values
}

// SetMany stages several values. Columns missing from the model are skipped. Values are validated
// up front: an invalid value stages nothing.
func (a *ExtensionAccessor) SetMany(record *domain.Record, values map[string]interface{}) ([]string, error) {
	columns := make([]string, 0, len(values))
	for column := range values {
		columns = append(columns, column)
	}
	sort.Strings(columns)

	staged := make(map[string]interface{}, len(values))
	var skipped []string
	for _, column := range columns {
		property, ok := a.property(record, column)
		if !ok {
			skipped = append(skipped, column)
			continue
		}

		normalized, err := property.Normalize(values[column])
		if err != nil {
			return nil, err
		}
		staged[column] = normalized
	}

	for column, value := range staged {
		record.Stage(column, value)
	}

	return skipped, nil
}

// HasExtensionField reports whether the entity type has an active extension column
func (a *ExtensionAccessor) HasExtensionField(entityType, column string) bool {
	_, ok := a.model.Extension(entityType, column)
	return ok
}

// GetValueAs returns an extension value converted to T. It reports false when the column is
// unknown, NULL or holds another type.
func GetValueAs[T any](a *ExtensionAccessor, record *domain.Record, column string) (T, bool) {
	var zero T

	value, ok := a.GetValue(record, column)
	if !ok || value == nil {
		return zero, false
	}

	typed, ok := value.(T)
	if !ok {
		return zero, false
	}
	return typed, true
}
