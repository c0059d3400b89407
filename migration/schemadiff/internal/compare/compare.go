package compare

import (
	"slices"
	"sort"
	"strings"

	"github.com/kverlan/seshat/config"
	"github.com/kverlan/seshat/dbschema/types"
	difftypes "github.com/kverlan/seshat/migration/schemadiff/types"
)

// Schemas performs the complete table-level comparison between a source and
// a target snapshot set.
//
// # Comparison Process
//
// The function performs comparison in three phases:
//  1. **Flattening**: Tables and views from every schema on each side are
//     flattened into a lookup map keyed by "schema.name". Tables and views
//     share the same identity-key space and the same diff path; the object
//     type is carried on the table record itself.
//  2. **Classification**: The union of keys from both maps is computed. A
//     key absent in the source is added; absent in the target is removed;
//     present in both delegates to Table(), which resolves to modified or
//     unchanged.
//  3. **Ordering**: Table diffs are sorted by key so that output is
//     deterministic across runs regardless of map iteration order.
//
// # Parameters
//
//   - source: schema snapshots describing the current state
//   - target: schema snapshots describing the desired state
//   - opts: comparison options (nil uses defaults; ignored tables are
//     excluded from both sides before classification)
//
// Pure function of its inputs: no I/O and no mutation of the snapshots.
func Schemas(source, target []types.SchemaInfo, opts *config.CompareOptions) []difftypes.TableDiff {
	if opts == nil {
		opts = config.DefaultCompareOptions()
	}

	sourceTables := flatten(source, opts)
	targetTables := flatten(target, opts)

	keys := make([]string, 0, len(sourceTables)+len(targetTables))
	for key := range sourceTables {
		keys = append(keys, key)
	}
	for key := range targetTables {
		if _, seen := sourceTables[key]; !seen {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	diffs := make([]difftypes.TableDiff, 0, len(keys))
	for _, key := range keys {
		src, inSource := sourceTables[key]
		tgt, inTarget := targetTables[key]
		switch {
		case !inSource:
			diffs = append(diffs, difftypes.TableDiff{
				Key:      key,
				DiffType: difftypes.DiffAdded,
				Target:   ptr(tgt),
			})
		case !inTarget:
			diffs = append(diffs, difftypes.TableDiff{
				Key:      key,
				DiffType: difftypes.DiffRemoved,
				Source:   ptr(src),
			})
		default:
			diffs = append(diffs, Table(src, tgt))
		}
	}
	return diffs
}

// flatten merges the tables and views of every schema into one map keyed by
// table identity, dropping ignored tables.
func flatten(schemas []types.SchemaInfo, opts *config.CompareOptions) map[string]types.TableInfo {
	tables := make(map[string]types.TableInfo)
	for _, schema := range schemas {
		for _, t := range schema.Tables {
			if !opts.IsTableIgnored(t.Name) {
				tables[t.Key()] = t
			}
		}
		for _, v := range schema.Views {
			if !opts.IsTableIgnored(v.Name) {
				tables[v.Key()] = v
			}
		}
	}
	return tables
}

// Table compares two tables that exist on both sides and produces their
// full recursive diff.
//
// Columns, indexes, foreign keys and triggers are each diffed independently
// with the same added/removed/modified-or-unchanged pattern; the primary key
// column set is compared order-insensitively. The table classifies as
// modified if any nested diff is non-unchanged or the primary key changed,
// otherwise as unchanged.
//
// Nested diff ordering is deterministic: entries follow the target-side
// declaration order, with removed entries appended afterwards in source
// order.
func Table(src, tgt types.TableInfo) difftypes.TableDiff {
	diff := difftypes.TableDiff{
		Key:    tgt.Key(),
		Source: ptr(src),
		Target: ptr(tgt),
	}

	diff.ColumnDiffs = compareColumns(src.Columns, tgt.Columns)
	diff.IndexDiffs = compareIndexes(src.Indexes, tgt.Indexes)
	diff.ForeignKeyDiffs = compareForeignKeys(src.ForeignKeys, tgt.ForeignKeys)
	diff.TriggerDiffs = compareTriggers(src.Triggers, tgt.Triggers)
	diff.PrimaryKeyChanges = PrimaryKeys(src.PrimaryKey, tgt.PrimaryKey)

	if hasNestedChanges(diff) || viewDefinitionChanged(src, tgt) {
		diff.DiffType = difftypes.DiffModified
	} else {
		diff.DiffType = difftypes.DiffUnchanged
	}
	return diff
}

// viewDefinitionChanged detects view modifications. A view's structure lives
// in its captured definition rather than in column metadata, so the
// definition text decides whether it changed.
func viewDefinitionChanged(src, tgt types.TableInfo) bool {
	if tgt.Type != types.ObjectTypeView {
		return false
	}
	return strings.TrimSpace(src.SQL) != strings.TrimSpace(tgt.SQL)
}

func hasNestedChanges(diff difftypes.TableDiff) bool {
	if diff.PrimaryKeyChanges != nil {
		return true
	}
	for _, d := range diff.ColumnDiffs {
		if d.DiffType != difftypes.DiffUnchanged {
			return true
		}
	}
	for _, d := range diff.IndexDiffs {
		if d.DiffType != difftypes.DiffUnchanged {
			return true
		}
	}
	for _, d := range diff.ForeignKeyDiffs {
		if d.DiffType != difftypes.DiffUnchanged {
			return true
		}
	}
	for _, d := range diff.TriggerDiffs {
		if d.DiffType != difftypes.DiffUnchanged {
			return true
		}
	}
	return false
}

func compareColumns(src, tgt []types.ColumnInfo) []difftypes.ColumnDiff {
	srcByName := make(map[string]types.ColumnInfo, len(src))
	for _, c := range src {
		srcByName[c.Name] = c
	}
	tgtNames := make(map[string]bool, len(tgt))

	var diffs []difftypes.ColumnDiff
	for _, t := range tgt {
		tgtNames[t.Name] = true
		if s, ok := srcByName[t.Name]; ok {
			diffs = append(diffs, Column(s, t))
		} else {
			diffs = append(diffs, difftypes.ColumnDiff{DiffType: difftypes.DiffAdded, Target: ptr(t)})
		}
	}
	for _, s := range src {
		if !tgtNames[s.Name] {
			diffs = append(diffs, difftypes.ColumnDiff{DiffType: difftypes.DiffRemoved, Source: ptr(s)})
		}
	}
	return diffs
}

// Column compares each relevant field of two same-named columns pairwise
// and builds a change record containing only the differing fields. If zero
// fields differ the diff is unchanged, so a modified column diff always has
// a non-empty Changes map.
func Column(src, tgt types.ColumnInfo) difftypes.ColumnDiff {
	changes := make(map[string]difftypes.FieldChange)

	if src.Type != tgt.Type {
		changes["type"] = difftypes.FieldChange{From: src.Type, To: tgt.Type}
	}
	if src.Nullable != tgt.Nullable {
		changes["nullable"] = difftypes.FieldChange{From: src.Nullable, To: tgt.Nullable}
	}
	if !equalDefault(src.DefaultValue, tgt.DefaultValue) {
		changes["defaultValue"] = difftypes.FieldChange{From: defaultVal(src.DefaultValue), To: defaultVal(tgt.DefaultValue)}
	}
	if src.IsPrimaryKey != tgt.IsPrimaryKey {
		changes["isPrimaryKey"] = difftypes.FieldChange{From: src.IsPrimaryKey, To: tgt.IsPrimaryKey}
	}

	return difftypes.ColumnDiff{
		DiffType: diffTypeForChanges(changes),
		Source:   ptr(src),
		Target:   ptr(tgt),
		Changes:  emptyToNil(changes),
	}
}

func compareIndexes(src, tgt []types.IndexInfo) []difftypes.IndexDiff {
	srcByName := make(map[string]types.IndexInfo, len(src))
	for _, i := range src {
		srcByName[i.Name] = i
	}
	tgtNames := make(map[string]bool, len(tgt))

	var diffs []difftypes.IndexDiff
	for _, t := range tgt {
		tgtNames[t.Name] = true
		if s, ok := srcByName[t.Name]; ok {
			diffs = append(diffs, Index(s, t))
		} else {
			diffs = append(diffs, difftypes.IndexDiff{DiffType: difftypes.DiffAdded, Target: ptr(t)})
		}
	}
	for _, s := range src {
		if !tgtNames[s.Name] {
			diffs = append(diffs, difftypes.IndexDiff{DiffType: difftypes.DiffRemoved, Source: ptr(s)})
		}
	}
	return diffs
}

// Index compares the column list (order-sensitive) and uniqueness of two
// same-named indexes. The captured DDL text is not compared: it is an
// artifact of how the snapshot was taken, not a structural property.
func Index(src, tgt types.IndexInfo) difftypes.IndexDiff {
	changes := make(map[string]difftypes.FieldChange)

	if !slices.Equal(src.Columns, tgt.Columns) {
		changes["columns"] = difftypes.FieldChange{From: src.Columns, To: tgt.Columns}
	}
	if src.IsUnique != tgt.IsUnique {
		changes["isUnique"] = difftypes.FieldChange{From: src.IsUnique, To: tgt.IsUnique}
	}

	return difftypes.IndexDiff{
		DiffType: diffTypeForChanges(changes),
		Source:   ptr(src),
		Target:   ptr(tgt),
		Changes:  emptyToNil(changes),
	}
}

func compareForeignKeys(src, tgt []types.ForeignKeyInfo) []difftypes.ForeignKeyDiff {
	srcByColumn := make(map[string]types.ForeignKeyInfo, len(src))
	for _, fk := range src {
		srcByColumn[fk.Column] = fk
	}
	tgtColumns := make(map[string]bool, len(tgt))

	var diffs []difftypes.ForeignKeyDiff
	for _, t := range tgt {
		tgtColumns[t.Column] = true
		if s, ok := srcByColumn[t.Column]; ok {
			diffs = append(diffs, ForeignKey(s, t))
		} else {
			diffs = append(diffs, difftypes.ForeignKeyDiff{DiffType: difftypes.DiffAdded, Target: ptr(t)})
		}
	}
	for _, s := range src {
		if !tgtColumns[s.Column] {
			diffs = append(diffs, difftypes.ForeignKeyDiff{DiffType: difftypes.DiffRemoved, Source: ptr(s)})
		}
	}
	return diffs
}

// ForeignKey compares two foreign keys owned by the same column.
func ForeignKey(src, tgt types.ForeignKeyInfo) difftypes.ForeignKeyDiff {
	changes := make(map[string]difftypes.FieldChange)

	if src.ReferencedTable != tgt.ReferencedTable {
		changes["referencedTable"] = difftypes.FieldChange{From: src.ReferencedTable, To: tgt.ReferencedTable}
	}
	if src.ReferencedColumn != tgt.ReferencedColumn {
		changes["referencedColumn"] = difftypes.FieldChange{From: src.ReferencedColumn, To: tgt.ReferencedColumn}
	}
	if src.OnDelete != tgt.OnDelete {
		changes["onDelete"] = difftypes.FieldChange{From: src.OnDelete, To: tgt.OnDelete}
	}
	if src.OnUpdate != tgt.OnUpdate {
		changes["onUpdate"] = difftypes.FieldChange{From: src.OnUpdate, To: tgt.OnUpdate}
	}

	return difftypes.ForeignKeyDiff{
		DiffType: diffTypeForChanges(changes),
		Source:   ptr(src),
		Target:   ptr(tgt),
		Changes:  emptyToNil(changes),
	}
}

func compareTriggers(src, tgt []types.TriggerInfo) []difftypes.TriggerDiff {
	srcByName := make(map[string]types.TriggerInfo, len(src))
	for _, t := range src {
		srcByName[t.Name] = t
	}
	tgtNames := make(map[string]bool, len(tgt))

	var diffs []difftypes.TriggerDiff
	for _, t := range tgt {
		tgtNames[t.Name] = true
		if s, ok := srcByName[t.Name]; ok {
			diffs = append(diffs, Trigger(s, t))
		} else {
			diffs = append(diffs, difftypes.TriggerDiff{DiffType: difftypes.DiffAdded, Target: ptr(t)})
		}
	}
	for _, s := range src {
		if !tgtNames[s.Name] {
			diffs = append(diffs, difftypes.TriggerDiff{DiffType: difftypes.DiffRemoved, Source: ptr(s)})
		}
	}
	return diffs
}

// Trigger compares two same-named triggers. The trigger body is compared
// through its captured DDL text with surrounding whitespace ignored.
func Trigger(src, tgt types.TriggerInfo) difftypes.TriggerDiff {
	changes := make(map[string]difftypes.FieldChange)

	if src.Timing != tgt.Timing {
		changes["timing"] = difftypes.FieldChange{From: src.Timing, To: tgt.Timing}
	}
	if src.Event != tgt.Event {
		changes["event"] = difftypes.FieldChange{From: src.Event, To: tgt.Event}
	}
	if strings.TrimSpace(src.SQL) != strings.TrimSpace(tgt.SQL) {
		changes["sql"] = difftypes.FieldChange{From: src.SQL, To: tgt.SQL}
	}

	return difftypes.TriggerDiff{
		DiffType: diffTypeForChanges(changes),
		Source:   ptr(src),
		Target:   ptr(tgt),
		Changes:  emptyToNil(changes),
	}
}

// PrimaryKeys compares two primary key column sets order-insensitively.
// Returns nil when they are equal as sets, so a composite key reordering
// alone is not reported as a change.
func PrimaryKeys(src, tgt []string) *difftypes.PrimaryKeyChange {
	srcSorted := append([]string(nil), src...)
	tgtSorted := append([]string(nil), tgt...)
	sort.Strings(srcSorted)
	sort.Strings(tgtSorted)

	if slices.Equal(srcSorted, tgtSorted) {
		return nil
	}
	return &difftypes.PrimaryKeyChange{
		From: append([]string(nil), src...),
		To:   append([]string(nil), tgt...),
	}
}

// Summarize aggregates per-table statuses and nested change counts in a
// single pass over the table diffs. Nested totals count entity diffs whose
// type is not unchanged.
func Summarize(diffs []difftypes.TableDiff) difftypes.Summary {
	var s difftypes.Summary
	for _, d := range diffs {
		switch d.DiffType {
		case difftypes.DiffAdded:
			s.TablesAdded++
		case difftypes.DiffRemoved:
			s.TablesRemoved++
		case difftypes.DiffModified:
			s.TablesModified++
		case difftypes.DiffUnchanged:
			s.TablesUnchanged++
		}
		for _, c := range d.ColumnDiffs {
			if c.DiffType != difftypes.DiffUnchanged {
				s.TotalColumnChanges++
			}
		}
		for _, i := range d.IndexDiffs {
			if i.DiffType != difftypes.DiffUnchanged {
				s.TotalIndexChanges++
			}
		}
		for _, fk := range d.ForeignKeyDiffs {
			if fk.DiffType != difftypes.DiffUnchanged {
				s.TotalForeignKeyChanges++
			}
		}
		for _, t := range d.TriggerDiffs {
			if t.DiffType != difftypes.DiffUnchanged {
				s.TotalTriggerChanges++
			}
		}
	}
	return s
}

func diffTypeForChanges(changes map[string]difftypes.FieldChange) difftypes.DiffType {
	if len(changes) > 0 {
		return difftypes.DiffModified
	}
	return difftypes.DiffUnchanged
}

// emptyToNil keeps the "changes present only when modified" invariant: an
// unchanged entity carries no Changes map at all.
func emptyToNil(changes map[string]difftypes.FieldChange) map[string]difftypes.FieldChange {
	if len(changes) == 0 {
		return nil
	}
	return changes
}

func equalDefault(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func defaultVal(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}

func ptr[T any](v T) *T {
	return &v
}
