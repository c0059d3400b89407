// Package postgres reads schema snapshots from PostgreSQL databases via the
// information_schema and pg_catalog views.
package postgres

import (
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/kverlan/seshat/dbschema/types"
)

// Reader reads schema snapshots from a PostgreSQL database.
type Reader struct {
	db     *sql.DB
	schema string
}

// NewReader creates a new PostgreSQL schema reader. An empty schema name
// defaults to "public".
func NewReader(db *sql.DB, schema string) *Reader {
	if schema == "" {
		schema = "public"
	}
	return &Reader{
		db:     db,
		schema: schema,
	}
}

// ReadSchema reads the complete schema snapshot: tables and views with
// columns, primary keys, foreign keys, indexes, and triggers.
//
// Only one target dialect is supported for DDL generation, but comparison
// is dialect-agnostic, so PostgreSQL snapshots can still be diffed against
// each other or against persisted snapshot files.
func (r *Reader) ReadSchema() ([]types.SchemaInfo, error) {
	schema := types.SchemaInfo{Name: r.schema}

	tables, err := r.readTables("BASE TABLE")
	if err != nil {
		return nil, fmt.Errorf("failed to read tables: %w", err)
	}
	for i := range tables {
		if err := r.fillTableDetails(&tables[i]); err != nil {
			return nil, fmt.Errorf("failed to read table %s: %w", tables[i].Name, err)
		}
	}
	schema.Tables = tables

	views, err := r.readTables("VIEW")
	if err != nil {
		return nil, fmt.Errorf("failed to read views: %w", err)
	}
	for i := range views {
		if err := r.readColumns(&views[i]); err != nil {
			return nil, fmt.Errorf("failed to read view %s: %w", views[i].Name, err)
		}
	}
	schema.Views = views

	return []types.SchemaInfo{schema}, nil
}

func (r *Reader) fillTableDetails(t *types.TableInfo) error {
	if err := r.readColumns(t); err != nil {
		return err
	}
	if err := r.readPrimaryKey(t); err != nil {
		return err
	}
	if err := r.readForeignKeys(t); err != nil {
		return err
	}
	if err := r.readIndexes(t); err != nil {
		return err
	}
	if err := r.readTriggers(t); err != nil {
		return err
	}
	return r.readRowCount(t)
}

func (r *Reader) readTables(tableType string) ([]types.TableInfo, error) {
	rows, err := r.db.Query(`
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = $1 AND table_type = $2
		ORDER BY table_name`, r.schema, tableType)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	objectType := types.ObjectTypeTable
	if tableType == "VIEW" {
		objectType = types.ObjectTypeView
	}

	var tables []types.TableInfo
	for rows.Next() {
		var t types.TableInfo
		if err := rows.Scan(&t.Name); err != nil {
			return nil, err
		}
		t.Schema = r.schema
		t.Type = objectType
		tables = append(tables, t)
	}
	return tables, rows.Err()
}

func (r *Reader) readColumns(t *types.TableInfo) error {
	rows, err := r.db.Query(`
		SELECT column_name, data_type, is_nullable, column_default
		FROM information_schema.columns
		WHERE table_schema = $1 AND table_name = $2
		ORDER BY ordinal_position`, r.schema, t.Name)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			name, dataType, nullable string
			dflt                     sql.NullString
		)
		if err := rows.Scan(&name, &dataType, &nullable, &dflt); err != nil {
			return err
		}
		col := types.ColumnInfo{
			Name:     name,
			Type:     dataType,
			Nullable: nullable == "YES",
		}
		if dflt.Valid {
			value := dflt.String
			col.DefaultValue = &value
		}
		t.Columns = append(t.Columns, col)
	}
	return rows.Err()
}

func (r *Reader) readPrimaryKey(t *types.TableInfo) error {
	rows, err := r.db.Query(`
		SELECT kcu.column_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
			ON tc.constraint_name = kcu.constraint_name
			AND tc.table_schema = kcu.table_schema
		WHERE tc.table_schema = $1 AND tc.table_name = $2
			AND tc.constraint_type = 'PRIMARY KEY'
		ORDER BY kcu.ordinal_position`, r.schema, t.Name)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var column string
		if err := rows.Scan(&column); err != nil {
			return err
		}
		t.PrimaryKey = append(t.PrimaryKey, column)
		if col := t.Column(column); col != nil {
			col.IsPrimaryKey = true
		}
	}
	return rows.Err()
}

func (r *Reader) readForeignKeys(t *types.TableInfo) error {
	rows, err := r.db.Query(`
		SELECT kcu.column_name, ccu.table_name, ccu.column_name, rc.delete_rule, rc.update_rule
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
			ON tc.constraint_name = kcu.constraint_name
			AND tc.table_schema = kcu.table_schema
		JOIN information_schema.constraint_column_usage ccu
			ON tc.constraint_name = ccu.constraint_name
			AND tc.table_schema = ccu.table_schema
		JOIN information_schema.referential_constraints rc
			ON tc.constraint_name = rc.constraint_name
			AND tc.table_schema = rc.constraint_schema
		WHERE tc.table_schema = $1 AND tc.table_name = $2
			AND tc.constraint_type = 'FOREIGN KEY'`, r.schema, t.Name)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var fk types.ForeignKeyInfo
		if err := rows.Scan(&fk.Column, &fk.ReferencedTable, &fk.ReferencedColumn, &fk.OnDelete, &fk.OnUpdate); err != nil {
			return err
		}
		t.ForeignKeys = append(t.ForeignKeys, fk)
	}
	return rows.Err()
}

func (r *Reader) readIndexes(t *types.TableInfo) error {
	rows, err := r.db.Query(`
		SELECT i.relname, ix.indisunique, a.attname, pg_get_indexdef(ix.indexrelid)
		FROM pg_class c
		JOIN pg_index ix ON c.oid = ix.indrelid
		JOIN pg_class i ON i.oid = ix.indexrelid
		JOIN pg_namespace n ON n.oid = c.relnamespace
		JOIN pg_attribute a ON a.attrelid = c.oid AND a.attnum = ANY(ix.indkey)
		WHERE n.nspname = $1 AND c.relname = $2 AND NOT ix.indisprimary
		ORDER BY i.relname, a.attnum`, r.schema, t.Name)
	if err != nil {
		return err
	}
	defer rows.Close()

	byName := make(map[string]*types.IndexInfo)
	var order []string
	for rows.Next() {
		var (
			name, column, definition string
			unique                   bool
		)
		if err := rows.Scan(&name, &unique, &column, &definition); err != nil {
			return err
		}
		idx, ok := byName[name]
		if !ok {
			idx = &types.IndexInfo{Name: name, IsUnique: unique, SQL: definition}
			byName[name] = idx
			order = append(order, name)
		}
		idx.Columns = append(idx.Columns, column)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, name := range order {
		t.Indexes = append(t.Indexes, *byName[name])
	}
	return nil
}

func (r *Reader) readTriggers(t *types.TableInfo) error {
	rows, err := r.db.Query(`
		SELECT trigger_name, action_timing, event_manipulation, action_statement
		FROM information_schema.triggers
		WHERE trigger_schema = $1 AND event_object_table = $2
		ORDER BY trigger_name`, r.schema, t.Name)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var trg types.TriggerInfo
		if err := rows.Scan(&trg.Name, &trg.Timing, &trg.Event, &trg.SQL); err != nil {
			return err
		}
		trg.TableName = t.Name
		t.Triggers = append(t.Triggers, trg)
	}
	return rows.Err()
}

func (r *Reader) readRowCount(t *types.TableInfo) error {
	// Identifier quoting is required here: table names flow into the query
	// text, not into bind parameters.
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s.%s",
		pq.QuoteIdentifier(r.schema), pq.QuoteIdentifier(t.Name))
	return r.db.QueryRow(query).Scan(&t.RowCount)
}
