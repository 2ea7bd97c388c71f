package domain

import (
	"context"
	"fmt"
	"sort"

	"github.com/asaskevich/govalidator"
	"github.com/lib/pq"
)

//go:generate mockgen -destination mocks/mock_entity_record_repository.go -package mocks github.com/Notifuse/extfields/internal/domain EntityRecordRepository

const identifierPattern = "^[a-zA-Z_][a-zA-Z0-9_]*$"

// DefaultPrimaryKey is used when an entity mapping does not name its key column
const DefaultPrimaryKey = "id"

// EntityType describes a host table that extension fields can be attached to
type EntityType struct {
	Name       string   `json:"name"`
	Schema     string   `json:"schema,omitempty"`
	Table      string   `json:"table"`
	PrimaryKey string   `json:"primary_key"`
	Columns    []string `json:"columns,omitempty"` // core columns, primary key included
}

// QualifiedName returns schema.table, or table when no schema is set
func (e EntityType) QualifiedName() string {
	if e.Schema == "" {
		return e.Table
	}
	return e.Schema + "." + e.Table
}

// QualifiedTable returns the quoted, schema-qualified table identifier for statements
func (e EntityType) QualifiedTable() string {
	if e.Schema == "" {
		return pq.QuoteIdentifier(e.Table)
	}
	return pq.QuoteIdentifier(e.Schema) + "." + pq.QuoteIdentifier(e.Table)
}

// Validate checks identifiers so they are safe to splice into statements
func (e *EntityType) Validate() error {
	if e.Name == "" {
		return fmt.Errorf("invalid entity type: name is required")
	}
	if !govalidator.Matches(e.Table, identifierPattern) {
		return fmt.Errorf("invalid entity type %s: table %q is not a valid identifier", e.Name, e.Table)
	}
	if e.Schema != "" && !govalidator.Matches(e.Schema, identifierPattern) {
		return fmt.Errorf("invalid entity type %s: schema %q is not a valid identifier", e.Name, e.Schema)
	}
	if e.PrimaryKey == "" {
		e.PrimaryKey = DefaultPrimaryKey
	}
	if !govalidator.Matches(e.PrimaryKey, identifierPattern) {
		return fmt.Errorf("invalid entity type %s: primary key %q is not a valid identifier", e.Name, e.PrimaryKey)
	}

	hasKey := false
	for _, column := range e.Columns {
		if !govalidator.Matches(column, identifierPattern) {
			return fmt.Errorf("invalid entity type %s: column %q is not a valid identifier", e.Name, column)
		}
		if column == e.PrimaryKey {
			hasKey = true
		}
	}
	if !hasKey {
		e.Columns = append([]string{e.PrimaryKey}, e.Columns...)
	}

	return nil
}

// EntityRegistry is the structural registry of host entity types. It is built once at startup
// and read-only afterwards.
type EntityRegistry struct {
	entities map[string]EntityType
	order    []string
}

// NewEntityRegistry validates and indexes entity types by name
func NewEntityRegistry(entities ...EntityType) (*EntityRegistry, error) {
	registry := &EntityRegistry{
		entities: make(map[string]EntityType, len(entities)),
	}

	for _, entity := range entities {
		if err := entity.Validate(); err != nil {
			return nil, err
		}
		if _, exists := registry.entities[entity.Name]; exists {
			return nil, fmt.Errorf("entity type %s registered twice", entity.Name)
		}
		registry.entities[entity.Name] = entity
		registry.order = append(registry.order, entity.Name)
	}

	return registry, nil
}

// Lookup returns the entity type registered under name
func (r *EntityRegistry) Lookup(name string) (EntityType, bool) {
	entity, ok := r.entities[name]
	return entity, ok
}

// All returns the registered entity types in registration order
func (r *EntityRegistry) All() []EntityType {
	all := make([]EntityType, 0, len(r.order))
	for _, name := range r.order {
		all = append(all, r.entities[name])
	}
	return all
}

// Record is one entity instance: the column values read from its table plus the changes
// staged for the next write
type Record struct {
	EntityType string
	ID         interface{}

	values  map[string]interface{}
	changes map[string]interface{}
}

// NewRecord creates an empty record
func NewRecord(entityType string, id interface{}) *Record {
	return &Record{
		EntityType: entityType,
		ID:         id,
		values:     make(map[string]interface{}),
		changes:    make(map[string]interface{}),
	}
}

// SetLoaded records a value read from the store
func (r *Record) SetLoaded(column string, value interface{}) {
	if r.values == nil {
		r.values = make(map[string]interface{})
	}
	r.values[column] = value
}

// Value returns the staged value of a column if any, otherwise the loaded one
func (r *Record) Value(column string) (interface{}, bool) {
	if value, ok := r.changes[column]; ok {
		return value, true
	}
	value, ok := r.values[column]
	return value, ok
}

// Stage records a pending change
func (r *Record) Stage(column string, value interface{}) {
	if r.changes == nil {
		r.changes = make(map[string]interface{})
	}
	r.changes[column] = value
}

// HasChanges reports whether anything is staged
func (r *Record) HasChanges() bool {
	return len(r.changes) > 0
}

// ChangedColumns returns the staged column names sorted
func (r *Record) ChangedColumns() []string {
	columns := make([]string, 0, len(r.changes))
	for column := range r.changes {
		columns = append(columns, column)
	}
	sort.Strings(columns)
	return columns
}

// MarkPersisted folds the staged changes into the loaded values
func (r *Record) MarkPersisted() {
	if r.values == nil {
		r.values = make(map[string]interface{}, len(r.changes))
	}
	for column, value := range r.changes {
		r.values[column] = value
	}
	r.changes = make(map[string]interface{})
}

// EntityRecordRepository reads and writes entity rows, core and extension columns alike
type EntityRecordRepository interface {
	Get(ctx context.Context, entity *EntityMetadata, id interface{}) (*Record, error)
	Insert(ctx context.Context, entity *EntityMetadata, record *Record) error
	Update(ctx context.Context, entity *EntityMetadata, record *Record) error
}
