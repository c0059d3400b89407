package sqlite

import (
	"fmt"
	"strings"

	"github.com/kverlan/seshat/core/sqlutil"
	"github.com/kverlan/seshat/dbschema/types"
	difftypes "github.com/kverlan/seshat/migration/schemadiff/types"
)

const (
	// DialectName is the SQLite dialect identifier
	DialectName = "sqlite"
)

// Planner implements migration planning for the recreate-table dialect
// family: SQL engines with no DROP COLUMN, no MODIFY COLUMN, and no ALTER of
// constraints, where the only in-place change is ADD COLUMN and everything
// else requires a whole-table rebuild.
//
// The Planner converts a set of table diffs into an ordered list of DDL
// statements plus human-readable warnings about unsafe or lossy operations.
//
// # Statement Order
//
// Statements are emitted in a fixed dependency order:
//  1. Drop triggers (removed tables, and removed/modified triggers on
//     surviving tables)
//  2. Drop indexes (removed tables, and removed/modified indexes on tables
//     outside the recreation set - recreated tables lose theirs with the
//     table itself)
//  3. Drop removed tables (only with drop statements enabled)
//  4. ALTER TABLE ADD COLUMN on modified tables outside the recreation set
//  5. Four-statement recreation sequences (create copy, insert, drop,
//     rename) for tables in the recreation set
//  6. Create new tables, including their indexes and triggers
//  7. Recreate views whose definition changed
//  8. Create added/modified indexes, then triggers
//
// # Thread Safety
//
// The Planner is stateless and safe for concurrent use across multiple
// goroutines. Each call to GenerateMigration operates independently.
type Planner struct {
}

func New() *Planner {
	return &Planner{}
}

// plan accumulates the ordered statement list and the warnings produced
// alongside it.
type plan struct {
	statements []string
	warnings   []string
}

func (p *plan) add(stmt string) {
	p.statements = append(p.statements, stmt)
}

func (p *plan) warnf(format string, args ...any) {
	p.warnings = append(p.warnings, fmt.Sprintf(format, args...))
}

// GenerateMigration produces the ordered DDL statements and warnings that
// transform the source side of the given diffs into the target side.
//
// includeDrops enables destructive statements: dropping removed tables and
// rebuilding tables to drop removed columns. Without it, removed tables
// produce no SQL at all, and removed columns are surfaced only as warnings.
//
// The statements are returned unterminated; callers join them with
// sqlutil.JoinStatements to obtain an executable script. The four-statement
// recreation sequences must be executed as an atomic unit - the planner does
// not wrap them in a transaction itself, that contract is the executor's.
func (p *Planner) GenerateMigration(diffs []difftypes.TableDiff, includeDrops bool) (statements, warnings []string) {
	out := &plan{}

	// 1. Drop triggers that are going away or being replaced
	p.dropTriggers(out, diffs, includeDrops)

	// 2. Determine which tables need a full rebuild
	recreate := recreationSet(diffs, includeDrops)

	// 3. Drop indexes (recreated tables lose theirs with the table)
	p.dropIndexes(out, diffs, includeDrops, recreate)

	// 4. Drop removed tables (destructive)
	p.dropRemovedTables(out, diffs, includeDrops)

	// 5. In-place column additions on tables that survive as-is
	p.alterTables(out, diffs, recreate)

	// 6. Full recreation sequences
	p.recreateTables(out, diffs, recreate)

	// 7. Brand new tables, with their indexes and triggers
	p.createAddedTables(out, diffs)

	// 8. Views whose definition changed
	p.recreateModifiedViews(out, diffs)

	// 9. Added and modified indexes, then triggers, on surviving tables
	p.createIndexes(out, diffs, recreate)
	p.createTriggers(out, diffs, recreate)

	return out.statements, out.warnings
}

// recreationSet computes up front which modified tables cannot be migrated
// in place. A table needs recreation when drop statements are enabled and a
// column was removed, when any column was modified, when the primary key
// changed, or when a foreign key was removed or modified. Views are never
// recreated through the table rebuild path.
func recreationSet(diffs []difftypes.TableDiff, includeDrops bool) map[string]bool {
	needs := make(map[string]bool)
	for _, d := range diffs {
		if d.DiffType != difftypes.DiffModified || isView(d) {
			continue
		}

		var colRemoved, colModified, fkChanged bool
		for _, c := range d.ColumnDiffs {
			switch c.DiffType {
			case difftypes.DiffRemoved:
				colRemoved = true
			case difftypes.DiffModified:
				colModified = true
			}
		}
		for _, fk := range d.ForeignKeyDiffs {
			if fk.DiffType == difftypes.DiffRemoved || fk.DiffType == difftypes.DiffModified {
				fkChanged = true
			}
		}

		if (includeDrops && colRemoved) || colModified || d.PrimaryKeyChanges != nil || fkChanged {
			needs[d.Key] = true
		}
	}
	return needs
}

func (p *Planner) dropTriggers(out *plan, diffs []difftypes.TableDiff, includeDrops bool) {
	for _, d := range diffs {
		switch d.DiffType {
		case difftypes.DiffRemoved:
			if !includeDrops {
				continue
			}
			for _, trg := range d.Source.Triggers {
				out.add("DROP TRIGGER " + sqlutil.QualifiedName(d.Source.Schema, trg.Name))
			}
		case difftypes.DiffModified:
			for _, td := range d.TriggerDiffs {
				if td.DiffType == difftypes.DiffRemoved || td.DiffType == difftypes.DiffModified {
					out.add("DROP TRIGGER " + sqlutil.QualifiedName(d.Source.Schema, td.Source.Name))
				}
			}
		}
	}
}

func (p *Planner) dropIndexes(out *plan, diffs []difftypes.TableDiff, includeDrops bool, recreate map[string]bool) {
	for _, d := range diffs {
		switch d.DiffType {
		case difftypes.DiffRemoved:
			if !includeDrops {
				continue
			}
			for _, idx := range d.Source.Indexes {
				out.add("DROP INDEX " + sqlutil.QualifiedName(d.Source.Schema, idx.Name))
			}
		case difftypes.DiffModified:
			if recreate[d.Key] {
				continue
			}
			for _, id := range d.IndexDiffs {
				if id.DiffType == difftypes.DiffRemoved || id.DiffType == difftypes.DiffModified {
					out.add("DROP INDEX " + sqlutil.QualifiedName(d.Source.Schema, id.Source.Name))
				}
			}
		}
	}
}

func (p *Planner) dropRemovedTables(out *plan, diffs []difftypes.TableDiff, includeDrops bool) {
	if !includeDrops {
		// Removed tables without drop statements produce no SQL and no
		// warning: nothing was requested.
		return
	}
	for _, d := range diffs {
		if d.DiffType != difftypes.DiffRemoved {
			continue
		}
		name := sqlutil.QualifiedName(d.Source.Schema, d.Source.Name)
		if d.Source.Type == types.ObjectTypeView {
			out.add("DROP VIEW " + name)
			continue
		}
		out.add("DROP TABLE " + name)
		out.warnf("Dropping table %s is destructive: all of its rows will be lost", name)
	}
}

// alterTables handles modified tables outside the recreation set. The only
// in-place operation the dialect supports is ADD COLUMN; removed and
// modified columns that land here are surfaced as warnings and omitted.
func (p *Planner) alterTables(out *plan, diffs []difftypes.TableDiff, recreate map[string]bool) {
	for _, d := range diffs {
		if d.DiffType != difftypes.DiffModified || recreate[d.Key] || isView(d) {
			continue
		}
		name := sqlutil.QualifiedName(d.Target.Schema, d.Target.Name)
		for _, c := range d.ColumnDiffs {
			switch c.DiffType {
			case difftypes.DiffAdded:
				out.add("ALTER TABLE " + name + " ADD COLUMN " + columnDefinition(*c.Target, false))
			case difftypes.DiffRemoved:
				out.warnf("Cannot drop column %s.%s: SQLite has no DROP COLUMN; enable drop statements to rebuild the table", name, c.Source.Name)
			case difftypes.DiffModified:
				out.warnf("Cannot modify column %s.%s in place: SQLite has no MODIFY COLUMN; the table must be recreated", name, c.Target.Name)
			}
		}
	}
}

// recreateTables emits the create-copy-drop-rename sequence for every table
// in the recreation set. The four statements must never be split or
// reordered; data in columns present on both sides is carried over, removed
// columns are silently dropped, and added columns take their default or
// NULL.
func (p *Planner) recreateTables(out *plan, diffs []difftypes.TableDiff, recreate map[string]bool) {
	for _, d := range diffs {
		if !recreate[d.Key] {
			continue
		}

		target := *d.Target
		name := sqlutil.QualifiedName(target.Schema, target.Name)
		tmpName := target.Name + "_new"
		tmpQualified := sqlutil.QualifiedName(target.Schema, tmpName)

		out.warnf("Table %s requires full recreation (%s): SQLite cannot alter columns or constraints in place", name, recreationReason(d))

		out.add(createTableSQL(target, tmpName))

		common := commonColumns(*d.Source, target)
		if len(common) > 0 {
			cols := strings.Join(common, ", ")
			out.add(fmt.Sprintf("INSERT INTO %s (%s) SELECT %s FROM %s", tmpQualified, cols, cols, name))
		}

		out.add("DROP TABLE " + name)
		out.add(fmt.Sprintf("ALTER TABLE %s RENAME TO %s", tmpQualified, target.Name))

		// The DROP TABLE above destroyed every index and trigger on the
		// table, including unchanged ones; restore the full target set.
		for _, idx := range target.Indexes {
			out.add(createIndexSQL(target, idx))
		}
		for _, trg := range target.Triggers {
			p.addTrigger(out, target, trg)
		}
	}
}

// recreationReason names what forced the rebuild, for the warning message.
func recreationReason(d difftypes.TableDiff) string {
	var reasons []string
	var removed, modified []string
	for _, c := range d.ColumnDiffs {
		switch c.DiffType {
		case difftypes.DiffRemoved:
			removed = append(removed, c.Source.Name)
		case difftypes.DiffModified:
			modified = append(modified, c.Target.Name)
		}
	}
	if len(modified) > 0 {
		reasons = append(reasons, "modified columns: "+strings.Join(modified, ", "))
	}
	if len(removed) > 0 {
		reasons = append(reasons, "removed columns: "+strings.Join(removed, ", "))
	}
	if d.PrimaryKeyChanges != nil {
		reasons = append(reasons, "primary key changed")
	}
	for _, fk := range d.ForeignKeyDiffs {
		if fk.DiffType == difftypes.DiffRemoved || fk.DiffType == difftypes.DiffModified {
			reasons = append(reasons, "foreign keys changed")
			break
		}
	}
	return strings.Join(reasons, "; ")
}

// commonColumns returns the column names present in both tables, preserving
// target ordering.
func commonColumns(source, target types.TableInfo) []string {
	inSource := make(map[string]bool, len(source.Columns))
	for _, c := range source.Columns {
		inSource[c.Name] = true
	}
	var common []string
	for _, c := range target.Columns {
		if inSource[c.Name] {
			common = append(common, c.Name)
		}
	}
	return common
}

func (p *Planner) createAddedTables(out *plan, diffs []difftypes.TableDiff) {
	for _, d := range diffs {
		if d.DiffType != difftypes.DiffAdded {
			continue
		}
		target := *d.Target
		if target.Type == types.ObjectTypeView {
			p.addView(out, target)
			continue
		}
		out.add(createTableSQL(target, target.Name))
		for _, idx := range target.Indexes {
			out.add(createIndexSQL(target, idx))
		}
		for _, trg := range target.Triggers {
			p.addTrigger(out, target, trg)
		}
	}
}

// recreateModifiedViews replaces a view whose structure changed by dropping
// and recreating it from its captured definition. Views hold no data, so
// this is safe without the drop-statements flag.
func (p *Planner) recreateModifiedViews(out *plan, diffs []difftypes.TableDiff) {
	for _, d := range diffs {
		if d.DiffType != difftypes.DiffModified || !isView(d) {
			continue
		}
		out.add("DROP VIEW " + sqlutil.QualifiedName(d.Source.Schema, d.Source.Name))
		p.addView(out, *d.Target)
	}
}

func (p *Planner) addView(out *plan, view types.TableInfo) {
	name := sqlutil.QualifiedName(view.Schema, view.Name)
	if strings.TrimSpace(view.SQL) == "" {
		out.warnf("Cannot create view %s: its original SQL was not captured in the snapshot", name)
		return
	}
	out.add(strings.TrimSuffix(strings.TrimSpace(view.SQL), ";"))
}

func (p *Planner) createIndexes(out *plan, diffs []difftypes.TableDiff, recreate map[string]bool) {
	for _, d := range diffs {
		if d.DiffType != difftypes.DiffModified || recreate[d.Key] || isView(d) {
			continue
		}
		for _, id := range d.IndexDiffs {
			if id.DiffType == difftypes.DiffAdded || id.DiffType == difftypes.DiffModified {
				out.add(createIndexSQL(*d.Target, *id.Target))
			}
		}
	}
}

func (p *Planner) createTriggers(out *plan, diffs []difftypes.TableDiff, recreate map[string]bool) {
	for _, d := range diffs {
		if d.DiffType != difftypes.DiffModified || recreate[d.Key] || isView(d) {
			continue
		}
		for _, td := range d.TriggerDiffs {
			if td.DiffType == difftypes.DiffAdded || td.DiffType == difftypes.DiffModified {
				p.addTrigger(out, *d.Target, *td.Target)
			}
		}
	}
}

// addTrigger emits a trigger, preferring the captured original SQL. When no
// SQL was captured, a syntactically valid trigger with an empty body is
// synthesized and an explicit warning is raised, since the body cannot be
// re-derived from the structured fields.
func (p *Planner) addTrigger(out *plan, table types.TableInfo, trg types.TriggerInfo) {
	if strings.TrimSpace(trg.SQL) != "" {
		out.add(strings.TrimSuffix(strings.TrimSpace(trg.SQL), ";"))
		return
	}
	name := sqlutil.QualifiedName(table.Schema, trg.Name)
	out.add(fmt.Sprintf("CREATE TRIGGER %s %s %s ON %s\nBEGIN\nEND", name, trg.Timing, trg.Event, table.Name))
	out.warnf("Trigger %s was emitted with an empty body: its original SQL was not captured in the snapshot", name)
}

// createTableSQL synthesizes a full CREATE TABLE statement from the table
// definition. A single-column primary key is emitted inline on the column;
// composite primary keys and all foreign keys become table constraints.
func createTableSQL(t types.TableInfo, name string) string {
	pk := primaryKeyColumns(t)

	defs := make([]string, 0, len(t.Columns)+len(t.ForeignKeys)+1)
	for _, col := range t.Columns {
		inline := len(pk) == 1 && pk[0] == col.Name
		defs = append(defs, columnDefinition(col, inline))
	}
	if len(pk) > 1 {
		defs = append(defs, "PRIMARY KEY ("+strings.Join(pk, ", ")+")")
	}
	for _, fk := range t.ForeignKeys {
		def := fmt.Sprintf("FOREIGN KEY (%s) REFERENCES %s(%s)", fk.Column, fk.ReferencedTable, fk.ReferencedColumn)
		if fk.OnDelete != "" {
			def += " ON DELETE " + fk.OnDelete
		}
		if fk.OnUpdate != "" {
			def += " ON UPDATE " + fk.OnUpdate
		}
		defs = append(defs, def)
	}

	return "CREATE TABLE " + sqlutil.QualifiedName(t.Schema, name) + " (\n  " + strings.Join(defs, ",\n  ") + "\n)"
}

// primaryKeyColumns returns the table's primary key column list, falling
// back to per-column flags when the snapshot did not carry an explicit list.
func primaryKeyColumns(t types.TableInfo) []string {
	if len(t.PrimaryKey) > 0 {
		return t.PrimaryKey
	}
	var pk []string
	for _, col := range t.Columns {
		if col.IsPrimaryKey {
			pk = append(pk, col.Name)
		}
	}
	return pk
}

func columnDefinition(col types.ColumnInfo, inlinePK bool) string {
	def := col.Name
	if col.Type != "" {
		def += " " + col.Type
	}
	if inlinePK {
		def += " PRIMARY KEY"
	}
	if !col.Nullable {
		def += " NOT NULL"
	}
	if col.DefaultValue != nil {
		def += " DEFAULT " + *col.DefaultValue
	}
	return def
}

// createIndexSQL prefers the captured original DDL (which preserves partial
// index clauses and other nuances) and synthesizes a plain CREATE INDEX
// otherwise.
func createIndexSQL(t types.TableInfo, idx types.IndexInfo) string {
	if strings.TrimSpace(idx.SQL) != "" {
		return strings.TrimSuffix(strings.TrimSpace(idx.SQL), ";")
	}
	unique := ""
	if idx.IsUnique {
		unique = "UNIQUE "
	}
	return fmt.Sprintf("CREATE %sINDEX %s ON %s (%s)",
		unique, sqlutil.QualifiedName(t.Schema, idx.Name), t.Name, strings.Join(idx.Columns, ", "))
}

func isView(d difftypes.TableDiff) bool {
	if d.Target != nil {
		return d.Target.Type == types.ObjectTypeView
	}
	return d.Source != nil && d.Source.Type == types.ObjectTypeView
}
