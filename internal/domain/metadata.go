package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// decimalScale matches the DECIMAL(18, 2) column type
const decimalScale = 2

var maxDecimal = decimal.New(1, 18-decimalScale)

// ValueCodec converts values of one data type between the store and the host.
// Decode turns a driver value into the host type, Encode coerces a caller value into the host
// type the column will hold after a write.
type ValueCodec struct {
	Decode func(raw interface{}) (interface{}, error)
	Encode func(value interface{}) (interface{}, error)
}

var codecs = map[DataType]ValueCodec{
	DataTypeString:   {Decode: decodeString, Encode: encodeString},
	DataTypeInt:      {Decode: decodeInt, Encode: decodeInt},
	DataTypeLong:     {Decode: decodeLong, Encode: decodeLong},
	DataTypeDecimal:  {Decode: decodeDecimal, Encode: encodeDecimal},
	DataTypeBool:     {Decode: decodeBool, Encode: decodeBool},
	DataTypeDate:     {Decode: decodeDate, Encode: decodeDate},
	DataTypeDateTime: {Decode: decodeDateTime, Encode: decodeDateTime},
	DataTypeGUID:     {Decode: decodeGUID, Encode: decodeGUID},
}

// CodecFor returns the codec of a data type
func CodecFor(dataType DataType) (ValueCodec, bool) {
	codec, ok := codecs[dataType]
	return codec, ok
}

// ExtensionProperty is one runtime-added column of an entity in a loaded model
type ExtensionProperty struct {
	Field *FieldDefinition
	Codec ValueCodec
}

// ColumnName returns the physical column of the property
func (p *ExtensionProperty) ColumnName() string {
	return p.Field.ColumnName
}

// Normalize validates a value for this column and returns it in host representation
func (p *ExtensionProperty) Normalize(value interface{}) (interface{}, error) {
	if value == nil {
		if p.Field.IsRequired {
			return nil, NewValidationError(fmt.Sprintf("%s is required", p.Field.ColumnName))
		}
		return nil, nil
	}

	normalized, err := p.Codec.Encode(value)
	if err != nil {
		return nil, NewValidationError(fmt.Sprintf("invalid value for %s: %v", p.Field.ColumnName, err))
	}

	if s, ok := normalized.(string); ok && p.Field.MaxLength != nil && len([]rune(s)) > *p.Field.MaxLength {
		return nil, NewValidationError(fmt.Sprintf("%s exceeds max length %d", p.Field.ColumnName, *p.Field.MaxLength))
	}

	return normalized, nil
}

// EntityMetadata is the structure of one entity type at a given schema version
type EntityMetadata struct {
	Entity     EntityType
	Extensions []*ExtensionProperty

	core     map[string]struct{}
	byColumn map[string]*ExtensionProperty
}

// NewEntityMetadata creates metadata holding only the core columns of an entity type
func NewEntityMetadata(entity EntityType) *EntityMetadata {
	core := make(map[string]struct{}, len(entity.Columns))
	for _, column := range entity.Columns {
		core[column] = struct{}{}
	}
	return &EntityMetadata{
		Entity:   entity,
		core:     core,
		byColumn: make(map[string]*ExtensionProperty),
	}
}

// AddExtension attaches an extension field
func (m *EntityMetadata) AddExtension(field *FieldDefinition) error {
	codec, ok := CodecFor(field.DataType)
	if !ok {
		return fmt.Errorf("field %s has unsupported data type %s", field.ID, field.DataType)
	}
	if _, isCore := m.core[field.ColumnName]; isCore {
		return fmt.Errorf("field %s shadows core column %s of %s", field.ID, field.ColumnName, m.Entity.Name)
	}
	if _, exists := m.byColumn[field.ColumnName]; exists {
		return fmt.Errorf("field %s duplicates column %s of %s", field.ID, field.ColumnName, m.Entity.Name)
	}

	property := &ExtensionProperty{Field: field, Codec: codec}
	m.Extensions = append(m.Extensions, property)
	m.byColumn[field.ColumnName] = property
	return nil
}

// Extension returns the runtime-added property stored in column
func (m *EntityMetadata) Extension(column string) (*ExtensionProperty, bool) {
	property, ok := m.byColumn[column]
	return property, ok
}

// IsCoreColumn reports whether column belongs to the static table structure
func (m *EntityMetadata) IsCoreColumn(column string) bool {
	_, ok := m.core[column]
	return ok
}

// HasColumn reports whether column is core or an active extension
func (m *EntityMetadata) HasColumn(column string) bool {
	if m.IsCoreColumn(column) {
		return true
	}
	_, ok := m.byColumn[column]
	return ok
}

// Columns returns the core columns followed by the extension columns in creation order
func (m *EntityMetadata) Columns() []string {
	columns := make([]string, 0, len(m.Entity.Columns)+len(m.Extensions))
	columns = append(columns, m.Entity.Columns...)
	for _, property := range m.Extensions {
		columns = append(columns, property.ColumnName())
	}
	return columns
}

// Model is the complete entity metadata rebuilt from the catalog for one schema version
type Model struct {
	Version  int64
	LoadedAt time.Time
	Entities map[string]*EntityMetadata
}

// NewModel creates an empty model for a version
func NewModel(version int64) *Model {
	return &Model{
		Version:  version,
		LoadedAt: time.Now().UTC(),
		Entities: make(map[string]*EntityMetadata),
	}
}

// Entity returns the metadata of an entity type
func (m *Model) Entity(name string) (*EntityMetadata, bool) {
	entity, ok := m.Entities[name]
	return entity, ok
}

// Extension returns the extension property of an entity type column
func (m *Model) Extension(entityType, column string) (*ExtensionProperty, bool) {
	entity, ok := m.Entities[entityType]
	if !ok {
		return nil, false
	}
	return entity.Extension(column)
}

// FieldCount returns the number of active extension fields across all entity types
func (m *Model) FieldCount() int {
	count := 0
	for _, entity := range m.Entities {
		count += len(entity.Extensions)
	}
	return count
}

func decodeString(raw interface{}) (interface{}, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	default:
		return fmt.Sprintf("%v", v), nil
	}
}

func encodeString(value interface{}) (interface{}, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	default:
		return nil, fmt.Errorf("expected string, got %T", value)
	}
}

func toInt64(raw interface{}) (int64, error) {
	switch v := raw.(type) {
	case int64:
		return v, nil
	case int32:
		return int64(v), nil
	case int:
		return int64(v), nil
	case int16:
		return int64(v), nil
	case int8:
		return int64(v), nil
	case uint32:
		return int64(v), nil
	case uint16:
		return int64(v), nil
	case uint8:
		return int64(v), nil
	case float64:
		// float64(math.MaxInt64) rounds up to 2^63, which int64 cannot hold
		if v != math.Trunc(v) || v >= math.MaxInt64 || v < math.MinInt64 {
			return 0, fmt.Errorf("%v is not an integer", v)
		}
		return int64(v), nil
	case []byte:
		return strconv.ParseInt(strings.TrimSpace(string(v)), 10, 64)
	case string:
		return strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	default:
		return 0, fmt.Errorf("expected integer, got %T", raw)
	}
}

func decodeInt(raw interface{}) (interface{}, error) {
	if raw == nil {
		return nil, nil
	}
	n, err := toInt64(raw)
	if err != nil {
		return nil, err
	}
	if n > math.MaxInt32 || n < math.MinInt32 {
		return nil, fmt.Errorf("%d overflows a 32-bit integer", n)
	}
	return int32(n), nil
}

func decodeLong(raw interface{}) (interface{}, error) {
	if raw == nil {
		return nil, nil
	}
	n, err := toInt64(raw)
	if err != nil {
		return nil, err
	}
	return n, nil
}

func toDecimal(raw interface{}) (decimal.Decimal, error) {
	switch v := raw.(type) {
	case decimal.Decimal:
		return v, nil
	case *decimal.Decimal:
		if v == nil {
			return decimal.Zero, fmt.Errorf("nil decimal")
		}
		return *v, nil
	case float64:
		return decimal.NewFromFloat(v), nil
	case float32:
		return decimal.NewFromFloat32(v), nil
	case []byte:
		return decimal.NewFromString(strings.TrimSpace(string(v)))
	case string:
		return decimal.NewFromString(strings.TrimSpace(v))
	default:
		n, err := toInt64(raw)
		if err != nil {
			return decimal.Zero, fmt.Errorf("expected decimal, got %T", raw)
		}
		return decimal.NewFromInt(n), nil
	}
}

func decodeDecimal(raw interface{}) (interface{}, error) {
	if raw == nil {
		return nil, nil
	}
	return toDecimal(raw)
}

func encodeDecimal(value interface{}) (interface{}, error) {
	d, err := toDecimal(value)
	if err != nil {
		return nil, err
	}
	d = d.Round(decimalScale)
	if d.Abs().GreaterThanOrEqual(maxDecimal) {
		return nil, fmt.Errorf("%s does not fit DECIMAL(18, 2)", d.String())
	}
	return d, nil
}

func decodeBool(raw interface{}) (interface{}, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case bool:
		return v, nil
	case []byte:
		return strconv.ParseBool(strings.TrimSpace(string(v)))
	case string:
		return strconv.ParseBool(strings.TrimSpace(v))
	default:
		n, err := toInt64(raw)
		if err != nil || (n != 0 && n != 1) {
			return nil, fmt.Errorf("expected boolean, got %T", raw)
		}
		return n == 1, nil
	}
}

var dateTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func toTime(raw interface{}) (time.Time, error) {
	switch v := raw.(type) {
	case time.Time:
		return v, nil
	case *time.Time:
		if v == nil {
			return time.Time{}, fmt.Errorf("nil time")
		}
		return *v, nil
	case []byte:
		return parseTime(string(v))
	case string:
		return parseTime(v)
	default:
		return time.Time{}, fmt.Errorf("expected time, got %T", raw)
	}
}

func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse %q as a time", s)
}

func decodeDate(raw interface{}) (interface{}, error) {
	if raw == nil {
		return nil, nil
	}
	t, err := toTime(raw)
	if err != nil {
		return nil, err
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
}

func decodeDateTime(raw interface{}) (interface{}, error) {
	if raw == nil {
		return nil, nil
	}
	t, err := toTime(raw)
	if err != nil {
		return nil, err
	}
	// TIMESTAMP keeps microseconds
	return t.UTC().Truncate(time.Microsecond), nil
}

func decodeGUID(raw interface{}) (interface{}, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case uuid.UUID:
		return v, nil
	case [16]byte:
		return uuid.UUID(v), nil
	case []byte:
		if len(v) == 16 {
			return uuid.FromBytes(v)
		}
		return uuid.ParseBytes(v)
	case string:
		return uuid.Parse(v)
	default:
		return nil, fmt.Errorf("expected uuid, got %T", raw)
	}
}
