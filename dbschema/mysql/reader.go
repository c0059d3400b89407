// Package mysql reads schema snapshots from MySQL and MariaDB databases via
// the information_schema views.
package mysql

import (
	"database/sql"
	"fmt"

	"github.com/kverlan/seshat/dbschema/types"
)

// Reader reads schema snapshots from a MySQL database.
type Reader struct {
	db     *sql.DB
	schema string
}

// NewReader creates a new MySQL schema reader. An empty schema name uses
// the connection's current database.
func NewReader(db *sql.DB, schema string) *Reader {
	return &Reader{db: db, schema: schema}
}

// ReadSchema reads the complete schema snapshot: tables and views with
// columns, primary keys, foreign keys, indexes, and triggers.
func (r *Reader) ReadSchema() ([]types.SchemaInfo, error) {
	schema := r.schema
	if schema == "" {
		if err := r.db.QueryRow("SELECT DATABASE()").Scan(&schema); err != nil {
			return nil, fmt.Errorf("failed to resolve current database: %w", err)
		}
	}

	info := types.SchemaInfo{Name: schema}

	tables, err := r.readTables(schema)
	if err != nil {
		return nil, fmt.Errorf("failed to read tables: %w", err)
	}
	for i := range tables {
		if err := r.fillTableDetails(schema, &tables[i]); err != nil {
			return nil, fmt.Errorf("failed to read table %s: %w", tables[i].Name, err)
		}
		if tables[i].Type == types.ObjectTypeView {
			info.Views = append(info.Views, tables[i])
		} else {
			info.Tables = append(info.Tables, tables[i])
		}
	}

	return []types.SchemaInfo{info}, nil
}

func (r *Reader) readTables(schema string) ([]types.TableInfo, error) {
	rows, err := r.db.Query(`
		SELECT table_name, table_type
		FROM information_schema.tables
		WHERE table_schema = ?
		ORDER BY table_name`, schema)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tables []types.TableInfo
	for rows.Next() {
		var t types.TableInfo
		var tableType string
		if err := rows.Scan(&t.Name, &tableType); err != nil {
			return nil, err
		}
		t.Schema = schema
		t.Type = types.ObjectTypeTable
		if tableType == "VIEW" {
			t.Type = types.ObjectTypeView
		}
		tables = append(tables, t)
	}
	return tables, rows.Err()
}

func (r *Reader) fillTableDetails(schema string, t *types.TableInfo) error {
	if err := r.readColumns(schema, t); err != nil {
		return err
	}
	if t.Type == types.ObjectTypeView {
		return nil
	}
	if err := r.readForeignKeys(schema, t); err != nil {
		return err
	}
	if err := r.readIndexes(schema, t); err != nil {
		return err
	}
	if err := r.readTriggers(schema, t); err != nil {
		return err
	}
	return r.readRowCount(schema, t)
}

func (r *Reader) readColumns(schema string, t *types.TableInfo) error {
	rows, err := r.db.Query(`
		SELECT column_name, column_type, is_nullable, column_default, column_key
		FROM information_schema.columns
		WHERE table_schema = ? AND table_name = ?
		ORDER BY ordinal_position`, schema, t.Name)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			name, colType, nullable, key string
			dflt                         sql.NullString
		)
		if err := rows.Scan(&name, &colType, &nullable, &dflt, &key); err != nil {
			return err
		}
		col := types.ColumnInfo{
			Name:         name,
			Type:         colType,
			Nullable:     nullable == "YES",
			IsPrimaryKey: key == "PRI",
		}
		if dflt.Valid {
			value := dflt.String
			col.DefaultValue = &value
		}
		t.Columns = append(t.Columns, col)
		if col.IsPrimaryKey {
			t.PrimaryKey = append(t.PrimaryKey, name)
		}
	}
	return rows.Err()
}

func (r *Reader) readForeignKeys(schema string, t *types.TableInfo) error {
	rows, err := r.db.Query(`
		SELECT kcu.column_name, kcu.referenced_table_name, kcu.referenced_column_name,
			rc.delete_rule, rc.update_rule
		FROM information_schema.key_column_usage kcu
		JOIN information_schema.referential_constraints rc
			ON kcu.constraint_name = rc.constraint_name
			AND kcu.table_schema = rc.constraint_schema
		WHERE kcu.table_schema = ? AND kcu.table_name = ?
			AND kcu.referenced_table_name IS NOT NULL`, schema, t.Name)
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

func (r *Reader) readIndexes(schema string, t *types.TableInfo) error {
	rows, err := r.db.Query(`
		SELECT index_name, non_unique, column_name
		FROM information_schema.statistics
		WHERE table_schema = ? AND table_name = ? AND index_name != 'PRIMARY'
		ORDER BY index_name, seq_in_index`, schema, t.Name)
	if err != nil {
		return err
	}
	defer rows.Close()

	byName := make(map[string]*types.IndexInfo)
	var order []string
	for rows.Next() {
		var (
			name, column string
			nonUnique    int
		)
		if err := rows.Scan(&name, &nonUnique, &column); err != nil {
			return err
		}
		idx, ok := byName[name]
		if !ok {
			idx = &types.IndexInfo{Name: name, IsUnique: nonUnique == 0}
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

func (r *Reader) readTriggers(schema string, t *types.TableInfo) error {
	rows, err := r.db.Query(`
		SELECT trigger_name, action_timing, event_manipulation, action_statement
		FROM information_schema.triggers
		WHERE trigger_schema = ? AND event_object_table = ?
		ORDER BY trigger_name`, schema, t.Name)
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

func (r *Reader) readRowCount(schema string, t *types.TableInfo) error {
	return r.db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM `%s`.`%s`", schema, t.Name)).Scan(&t.RowCount)
}
