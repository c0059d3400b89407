package types

// DefaultSchema is the namespace assumed for tables that carry no explicit
// schema. It matches SQLite's primary database name.
const DefaultSchema = "main"

// Table object types.
const (
	ObjectTypeTable = "table"
	ObjectTypeView  = "view"
)

// SchemaInfo is a fully materialized snapshot of one database namespace.
//
// Snapshots are produced by the dbschema readers (or loaded from persisted
// snapshot files) and consumed by the comparison and migration layers. A
// snapshot never holds a live database handle: once read, it is a plain
// value that can be compared, serialized, and diffed without any I/O.
type SchemaInfo struct {
	Name   string      `json:"name"`
	Tables []TableInfo `json:"tables"`
	Views  []TableInfo `json:"views"`
}

// TableInfo describes the complete structure of one table or view.
//
// SQL carries the original DDL text as captured from the database, when
// available. The migration planner prefers this text verbatim when it has to
// regenerate indexes and triggers, since it preserves dialect nuances
// (partial indexes, WHEN clauses) that cannot be re-derived from the
// structured fields.
type TableInfo struct {
	Name        string           `json:"name"`
	Schema      string           `json:"schema"`
	Type        string           `json:"type"` // "table" or "view"
	Columns     []ColumnInfo     `json:"columns"`
	PrimaryKey  []string         `json:"primary_key"` // ordered, possibly composite
	ForeignKeys []ForeignKeyInfo `json:"foreign_keys"`
	Indexes     []IndexInfo      `json:"indexes"`
	Triggers    []TriggerInfo    `json:"triggers"`
	RowCount    int64            `json:"row_count"`
	SQL         string           `json:"sql"`
}

// Key returns the identity of the table across schema snapshots, in the form
// "schema.name". An empty schema defaults to "main".
func (t TableInfo) Key() string {
	schema := t.Schema
	if schema == "" {
		schema = DefaultSchema
	}
	return schema + "." + t.Name
}

// Column returns the column with the given name, or nil if the table has no
// such column.
func (t TableInfo) Column(name string) *ColumnInfo {
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			return &t.Columns[i]
		}
	}
	return nil
}

// ColumnInfo describes a single table column. Type is the raw type string as
// reported by the database and is intentionally not normalized.
type ColumnInfo struct {
	Name         string  `json:"name"`
	Type         string  `json:"type"`
	Nullable     bool    `json:"nullable"`
	DefaultValue *string `json:"default_value"` // nil when the column has no default
	IsPrimaryKey bool    `json:"is_primary_key"`
}

// ForeignKeyInfo describes a single-column foreign key. The owning column
// name is the identity of the constraint within its table; the model assumes
// at most one foreign key per column.
type ForeignKeyInfo struct {
	Column           string `json:"column"`
	ReferencedTable  string `json:"referenced_table"`
	ReferencedColumn string `json:"referenced_column"`
	OnDelete         string `json:"on_delete"`
	OnUpdate         string `json:"on_update"`
}

// IndexInfo describes a database index. Name is the identity within the
// table; SQL carries the original CREATE INDEX text when captured.
type IndexInfo struct {
	Name     string   `json:"name"`
	Columns  []string `json:"columns"` // ordered
	IsUnique bool     `json:"is_unique"`
	SQL      string   `json:"sql"`
}

// Trigger timing values.
const (
	TriggerBefore    = "BEFORE"
	TriggerAfter     = "AFTER"
	TriggerInsteadOf = "INSTEAD OF"
)

// TriggerInfo describes a trigger attached to a table. SQL carries the full
// original CREATE TRIGGER text when captured.
type TriggerInfo struct {
	Name      string `json:"name"`
	TableName string `json:"table_name"`
	Timing    string `json:"timing"` // BEFORE, AFTER, INSTEAD OF
	Event     string `json:"event"`  // INSERT, UPDATE, DELETE
	SQL       string `json:"sql"`
}

// SchemaReader reads complete schema snapshots from a database.
type SchemaReader interface {
	ReadSchema() ([]SchemaInfo, error)
}
