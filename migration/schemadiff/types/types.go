package types

import (
	"time"

	"github.com/kverlan/seshat/dbschema/types"
)

// DiffType classifies a structural difference between two schema snapshots.
//
// Every diff entity carries exactly one of these values as its tag:
//   - DiffAdded: the object exists only in the target (Source is nil)
//   - DiffRemoved: the object exists only in the source (Target is nil)
//   - DiffModified: the object exists in both with differing fields; Changes
//     is present and non-empty
//   - DiffUnchanged: the object exists in both and no field differs
//
// The constructors in the compare package are the only producers of diff
// entities, which is what enforces the "Changes present only when modified"
// invariant in a language without sum types.
type DiffType string

const (
	DiffAdded     DiffType = "added"
	DiffRemoved   DiffType = "removed"
	DiffModified  DiffType = "modified"
	DiffUnchanged DiffType = "unchanged"
)

// FieldChange records a single differing field as its before and after
// values. A nil From or To represents an absent value (for example a column
// gaining a default where none existed).
type FieldChange struct {
	From any `json:"from"`
	To   any `json:"to"`
}

// ColumnDiff describes the difference for one column identified by name.
type ColumnDiff struct {
	DiffType DiffType               `json:"diff_type"`
	Source   *types.ColumnInfo      `json:"source"` // nil when added
	Target   *types.ColumnInfo      `json:"target"` // nil when removed
	Changes  map[string]FieldChange `json:"changes,omitempty"`
}

// IndexDiff describes the difference for one index identified by name.
type IndexDiff struct {
	DiffType DiffType               `json:"diff_type"`
	Source   *types.IndexInfo       `json:"source"`
	Target   *types.IndexInfo       `json:"target"`
	Changes  map[string]FieldChange `json:"changes,omitempty"`
}

// ForeignKeyDiff describes the difference for one foreign key identified by
// its owning column name.
type ForeignKeyDiff struct {
	DiffType DiffType               `json:"diff_type"`
	Source   *types.ForeignKeyInfo  `json:"source"`
	Target   *types.ForeignKeyInfo  `json:"target"`
	Changes  map[string]FieldChange `json:"changes,omitempty"`
}

// TriggerDiff describes the difference for one trigger identified by name.
type TriggerDiff struct {
	DiffType DiffType               `json:"diff_type"`
	Source   *types.TriggerInfo     `json:"source"`
	Target   *types.TriggerInfo     `json:"target"`
	Changes  map[string]FieldChange `json:"changes,omitempty"`
}

// PrimaryKeyChange records a change of the table's primary key column set.
// The comparison that produces it is order-insensitive: reordering the
// columns of a composite key alone is not a change.
type PrimaryKeyChange struct {
	From []string `json:"from"`
	To   []string `json:"to"`
}

// TableDiff describes the difference for one table or view, identified by
// its "schema.name" key. Nested entity diffs (including unchanged entries)
// are populated only when the table exists on both sides; for added and
// removed tables the Source/Target snapshots carry the full definition.
type TableDiff struct {
	Key      string           `json:"key"`
	DiffType DiffType         `json:"diff_type"`
	Source   *types.TableInfo `json:"source"` // nil when added
	Target   *types.TableInfo `json:"target"` // nil when removed

	ColumnDiffs       []ColumnDiff      `json:"column_diffs,omitempty"`
	IndexDiffs        []IndexDiff       `json:"index_diffs,omitempty"`
	ForeignKeyDiffs   []ForeignKeyDiff  `json:"foreign_key_diffs,omitempty"`
	TriggerDiffs      []TriggerDiff     `json:"trigger_diffs,omitempty"`
	PrimaryKeyChanges *PrimaryKeyChange `json:"primary_key_changes,omitempty"`
}

// TableName returns the bare table name from whichever side of the diff is
// populated.
func (d TableDiff) TableName() string {
	if d.Target != nil {
		return d.Target.Name
	}
	if d.Source != nil {
		return d.Source.Name
	}
	return ""
}

// HasChanges returns true if the table diff represents any structural
// difference.
func (d TableDiff) HasChanges() bool {
	return d.DiffType != DiffUnchanged
}

// Endpoint types describing where a compared schema snapshot came from.
// They are labels for display and reporting only; comparison behavior is
// identical for both.
const (
	EndpointTypeConnection = "connection"
	EndpointTypeSnapshot   = "snapshot"
)

// Endpoint identifies one side of a comparison: a live connection or a
// persisted snapshot.
type Endpoint struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"` // "connection" or "snapshot"
}

// Summary aggregates per-table statuses and nested change counts over a
// whole comparison. Nested totals count entity diffs whose type is not
// unchanged.
type Summary struct {
	TablesAdded     int `json:"tables_added"`
	TablesRemoved   int `json:"tables_removed"`
	TablesModified  int `json:"tables_modified"`
	TablesUnchanged int `json:"tables_unchanged"`

	TotalColumnChanges     int `json:"total_column_changes"`
	TotalIndexChanges      int `json:"total_index_changes"`
	TotalForeignKeyChanges int `json:"total_foreign_key_changes"`
	TotalTriggerChanges    int `json:"total_trigger_changes"`
}

// ComparisonResult is the complete outcome of comparing two schema
// snapshots. It is an immutable value: the migration generator consumes it
// (possibly direction-reversed) without ever re-reading the original
// schemas except through the Source/Target table snapshots it carries.
type ComparisonResult struct {
	Source     Endpoint    `json:"source"`
	Target     Endpoint    `json:"target"`
	ComparedAt time.Time   `json:"compared_at"`
	TableDiffs []TableDiff `json:"table_diffs"`
	Summary    Summary     `json:"summary"`
}

// HasChanges returns true if the comparison found any schema differences
// requiring migration.
func (r *ComparisonResult) HasChanges() bool {
	return r.Summary.TablesAdded > 0 ||
		r.Summary.TablesRemoved > 0 ||
		r.Summary.TablesModified > 0
}
