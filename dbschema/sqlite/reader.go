// Package sqlite reads schema snapshots from SQLite databases using the
// catalog table and PRAGMA introspection.
package sqlite

import (
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"github.com/kverlan/seshat/dbschema/types"
)

// Reader reads schema snapshots from a SQLite database.
type Reader struct {
	db *sql.DB
}

// NewReader creates a new SQLite schema reader over an open connection.
func NewReader(db *sql.DB) *Reader {
	return &Reader{db: db}
}

// ReadSchema reads the complete schema of the main database: all tables and
// views with their columns, primary keys, foreign keys, indexes, triggers,
// row counts, and the original DDL text from sqlite_master.
func (r *Reader) ReadSchema() ([]types.SchemaInfo, error) {
	schema := types.SchemaInfo{Name: types.DefaultSchema}

	tables, err := r.readObjects("table")
	if err != nil {
		return nil, fmt.Errorf("failed to read tables: %w", err)
	}
	for i := range tables {
		if err := r.fillTableDetails(&tables[i]); err != nil {
			return nil, fmt.Errorf("failed to read table %s: %w", tables[i].Name, err)
		}
	}
	schema.Tables = tables

	views, err := r.readObjects("view")
	if err != nil {
		return nil, fmt.Errorf("failed to read views: %w", err)
	}
	schema.Views = views

	triggers, err := r.readTriggers()
	if err != nil {
		return nil, fmt.Errorf("failed to read triggers: %w", err)
	}
	attachTriggers(schema.Tables, triggers)
	attachTriggers(schema.Views, triggers)

	return []types.SchemaInfo{schema}, nil
}

// readObjects lists tables or views from sqlite_master, skipping the
// engine's internal sqlite_* objects.
func (r *Reader) readObjects(objectType string) ([]types.TableInfo, error) {
	rows, err := r.db.Query(
		`SELECT name, COALESCE(sql, '') FROM sqlite_master WHERE type = ? AND name NOT LIKE 'sqlite_%' ORDER BY name`,
		objectType)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var objects []types.TableInfo
	for rows.Next() {
		var t types.TableInfo
		if err := rows.Scan(&t.Name, &t.SQL); err != nil {
			return nil, err
		}
		t.Schema = types.DefaultSchema
		t.Type = objectType
		objects = append(objects, t)
	}
	return objects, rows.Err()
}

func (r *Reader) fillTableDetails(t *types.TableInfo) error {
	if err := r.readColumns(t); err != nil {
		return err
	}
	if err := r.readForeignKeys(t); err != nil {
		return err
	}
	if err := r.readIndexes(t); err != nil {
		return err
	}
	return r.readRowCount(t)
}

// readColumns scans PRAGMA table_info. The pk column is the 1-based
// position of the column within the primary key, which yields the ordered
// (possibly composite) primary key list.
func (r *Reader) readColumns(t *types.TableInfo) error {
	rows, err := r.db.Query(fmt.Sprintf("PRAGMA table_info(%q)", t.Name))
	if err != nil {
		return err
	}
	defer rows.Close()

	type pkCol struct {
		name string
		pos  int
	}
	var pk []pkCol

	for rows.Next() {
		var (
			cid, notNull, pkPos int
			name, colType       string
			dflt                sql.NullString
		)
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dflt, &pkPos); err != nil {
			return err
		}

		col := types.ColumnInfo{
			Name:         name,
			Type:         colType,
			Nullable:     notNull == 0,
			IsPrimaryKey: pkPos > 0,
		}
		if dflt.Valid {
			value := dflt.String
			col.DefaultValue = &value
		}
		t.Columns = append(t.Columns, col)

		if pkPos > 0 {
			pk = append(pk, pkCol{name: name, pos: pkPos})
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	sort.Slice(pk, func(i, j int) bool { return pk[i].pos < pk[j].pos })
	for _, c := range pk {
		t.PrimaryKey = append(t.PrimaryKey, c.name)
	}
	return nil
}

// readForeignKeys scans PRAGMA foreign_key_list. Only the first column of a
// multi-column foreign key is kept, matching the one-key-per-column model.
func (r *Reader) readForeignKeys(t *types.TableInfo) error {
	rows, err := r.db.Query(fmt.Sprintf("PRAGMA foreign_key_list(%q)", t.Name))
	if err != nil {
		return err
	}
	defer rows.Close()

	seen := make(map[int]bool)
	for rows.Next() {
		var (
			id, seq                                   int
			refTable, from, onUpdate, onDelete, match string
			to                                        sql.NullString
		)
		if err := rows.Scan(&id, &seq, &refTable, &from, &to, &onUpdate, &onDelete, &match); err != nil {
			return err
		}
		if seen[id] {
			continue
		}
		seen[id] = true

		fk := types.ForeignKeyInfo{
			Column:           from,
			ReferencedTable:  refTable,
			ReferencedColumn: to.String,
			OnDelete:         onDelete,
			OnUpdate:         onUpdate,
		}
		t.ForeignKeys = append(t.ForeignKeys, fk)
	}
	return rows.Err()
}

// readIndexes scans PRAGMA index_list and index_info, skipping indexes the
// engine created implicitly for primary keys and UNIQUE column constraints.
// The original CREATE INDEX text is looked up from sqlite_master.
func (r *Reader) readIndexes(t *types.TableInfo) error {
	rows, err := r.db.Query(fmt.Sprintf("PRAGMA index_list(%q)", t.Name))
	if err != nil {
		return err
	}
	defer rows.Close()

	type indexEntry struct {
		name   string
		unique bool
	}
	var entries []indexEntry
	for rows.Next() {
		var (
			seq, unique, partial int
			name, origin         string
		)
		if err := rows.Scan(&seq, &name, &unique, &origin, &partial); err != nil {
			return err
		}
		if origin != "c" {
			// "pk" and "u" indexes are implicit - recreated by the engine
			// from the table definition itself.
			continue
		}
		entries = append(entries, indexEntry{name: name, unique: unique == 1})
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, entry := range entries {
		idx := types.IndexInfo{Name: entry.name, IsUnique: entry.unique}
		if err := r.readIndexColumns(&idx); err != nil {
			return err
		}
		if err := r.db.QueryRow(
			`SELECT COALESCE(sql, '') FROM sqlite_master WHERE type = 'index' AND name = ?`, entry.name,
		).Scan(&idx.SQL); err != nil && err != sql.ErrNoRows {
			return err
		}
		t.Indexes = append(t.Indexes, idx)
	}
	return nil
}

func (r *Reader) readIndexColumns(idx *types.IndexInfo) error {
	rows, err := r.db.Query(fmt.Sprintf("PRAGMA index_info(%q)", idx.Name))
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var seqno, cid int
		var name sql.NullString
		if err := rows.Scan(&seqno, &cid, &name); err != nil {
			return err
		}
		if name.Valid {
			idx.Columns = append(idx.Columns, name.String)
		}
	}
	return rows.Err()
}

func (r *Reader) readRowCount(t *types.TableInfo) error {
	return r.db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %q", t.Name)).Scan(&t.RowCount)
}

// readTriggers lists all triggers from sqlite_master with their owning
// table; timing and event are recovered from the DDL text since SQLite
// exposes no structured trigger catalog.
func (r *Reader) readTriggers() ([]types.TriggerInfo, error) {
	rows, err := r.db.Query(
		`SELECT name, tbl_name, COALESCE(sql, '') FROM sqlite_master WHERE type = 'trigger' ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var triggers []types.TriggerInfo
	for rows.Next() {
		var trg types.TriggerInfo
		if err := rows.Scan(&trg.Name, &trg.TableName, &trg.SQL); err != nil {
			return nil, err
		}
		trg.Timing, trg.Event = parseTriggerClause(trg.SQL)
		triggers = append(triggers, trg)
	}
	return triggers, rows.Err()
}

// parseTriggerClause recovers the timing and event keywords from a CREATE
// TRIGGER statement. Best effort: an unrecognized statement yields AFTER
// semantics, which is also SQLite's default when the timing is omitted.
func parseTriggerClause(ddl string) (timing, event string) {
	upper := strings.ToUpper(ddl)

	timing = types.TriggerAfter
	switch {
	case strings.Contains(upper, "INSTEAD OF"):
		timing = types.TriggerInsteadOf
	case strings.Contains(upper, "BEFORE"):
		timing = types.TriggerBefore
	}

	event = "UPDATE"
	// The event keyword precedes ON; checking order avoids matching the
	// body's statements.
	for _, candidate := range []string{"INSERT", "DELETE", "UPDATE"} {
		if pos := strings.Index(upper, candidate); pos >= 0 {
			if on := strings.Index(upper, " ON "); on > pos {
				event = candidate
				break
			}
		}
	}
	return timing, event
}

func attachTriggers(tables []types.TableInfo, triggers []types.TriggerInfo) {
	for i := range tables {
		for _, trg := range triggers {
			if trg.TableName == tables[i].Name {
				tables[i].Triggers = append(tables[i].Triggers, trg)
			}
		}
	}
}
