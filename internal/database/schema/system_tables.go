package schema

// Table names of the extension-field catalog
const (
	FieldDefinitionsTable = "custom_field_definitions"
	SchemaVersionTable    = "custom_field_schema_version"
)

// TableNames lists the catalog tables in creation order
var TableNames = []string{
	FieldDefinitionsTable,
	SchemaVersionTable,
}

// TableDefinitions contains all the SQL statements to create the catalog tables.
// Statements must stay valid for both PostgreSQL and SQLite.
var TableDefinitions = []string{
	`CREATE TABLE IF NOT EXISTS custom_field_definitions (
		id UUID PRIMARY KEY,
		entity_type VARCHAR(100) NOT NULL,
		field_name VARCHAR(200) NOT NULL,
		column_name VARCHAR(100) NOT NULL,
		data_type VARCHAR(50) NOT NULL,
		max_length INTEGER,
		is_required BOOLEAN NOT NULL DEFAULT FALSE,
		default_value TEXT,
		display_name VARCHAR(200),
		description VARCHAR(1000),
		created_at TIMESTAMP NOT NULL,
		created_by VARCHAR(100),
		is_deleted BOOLEAN NOT NULL DEFAULT FALSE,
		deleted_at TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS custom_field_schema_version (
		id INTEGER PRIMARY KEY,
		version BIGINT NOT NULL DEFAULT 0,
		last_modified TIMESTAMP NOT NULL,
		last_modified_by VARCHAR(100)
	)`,
	// Active (entity_type, column_name) pairs are unique, soft-deleted rows are not constrained
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_custom_field_definitions_active_column
		ON custom_field_definitions (entity_type, column_name) WHERE is_deleted = false`,
	`CREATE INDEX IF NOT EXISTS idx_custom_field_definitions_entity_type
		ON custom_field_definitions (entity_type)`,
}

// SeedSchemaVersion inserts the single version row when it is missing
const SeedSchemaVersion = `INSERT INTO custom_field_schema_version (id, version, last_modified, last_modified_by)
	VALUES ($1, 0, $2, $3)
	ON CONFLICT (id) DO NOTHING`
