package sqlite_test

import (
	"strings"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/kverlan/seshat/dbschema/types"
	"github.com/kverlan/seshat/migration/planner/dialects/sqlite"
	"github.com/kverlan/seshat/migration/schemadiff"
	difftypes "github.com/kverlan/seshat/migration/schemadiff/types"
)

func strPtr(s string) *string {
	return &s
}

// diffsBetween runs a full comparison of two table sets and returns the
// resulting table diffs, the planner's input.
func diffsBetween(source, target []types.TableInfo) []difftypes.TableDiff {
	result := schemadiff.Compare(
		[]types.SchemaInfo{{Name: "main", Tables: source}},
		[]types.SchemaInfo{{Name: "main", Tables: target}},
		difftypes.Endpoint{ID: "s", Name: "source", Type: difftypes.EndpointTypeSnapshot},
		difftypes.Endpoint{ID: "t", Name: "target", Type: difftypes.EndpointTypeSnapshot},
	)
	return result.TableDiffs
}

func TestGenerateMigration_AddNullableColumn(t *testing.T) {
	c := qt.New(t)

	source := []types.TableInfo{{
		Name:       "users",
		PrimaryKey: []string{"id"},
		Columns: []types.ColumnInfo{
			{Name: "id", Type: "INTEGER", IsPrimaryKey: true},
		},
	}}
	target := []types.TableInfo{{
		Name:       "users",
		PrimaryKey: []string{"id"},
		Columns: []types.ColumnInfo{
			{Name: "id", Type: "INTEGER", IsPrimaryKey: true},
			{Name: "email", Type: "TEXT", Nullable: true},
		},
	}}

	statements, warnings := sqlite.New().GenerateMigration(diffsBetween(source, target), false)

	c.Assert(statements, qt.DeepEquals, []string{"ALTER TABLE users ADD COLUMN email TEXT"})
	c.Assert(warnings, qt.HasLen, 0)
}

func TestGenerateMigration_AddColumnWithDefault(t *testing.T) {
	c := qt.New(t)

	source := []types.TableInfo{{
		Name:    "users",
		Columns: []types.ColumnInfo{{Name: "id", Type: "INTEGER"}},
	}}
	target := []types.TableInfo{{
		Name: "users",
		Columns: []types.ColumnInfo{
			{Name: "id", Type: "INTEGER"},
			{Name: "active", Type: "INTEGER", DefaultValue: strPtr("1")},
		},
	}}

	statements, _ := sqlite.New().GenerateMigration(diffsBetween(source, target), false)

	c.Assert(statements, qt.DeepEquals, []string{
		"ALTER TABLE users ADD COLUMN active INTEGER NOT NULL DEFAULT 1",
	})
}

func TestGenerateMigration_RemovedColumnWithoutDropsWarnsOnly(t *testing.T) {
	c := qt.New(t)

	source := []types.TableInfo{{
		Name: "users",
		Columns: []types.ColumnInfo{
			{Name: "id", Type: "INTEGER"},
			{Name: "email", Type: "TEXT", Nullable: true},
		},
	}}
	target := []types.TableInfo{{
		Name:    "users",
		Columns: []types.ColumnInfo{{Name: "id", Type: "INTEGER"}},
	}}

	statements, warnings := sqlite.New().GenerateMigration(diffsBetween(source, target), false)

	c.Assert(statements, qt.HasLen, 0)
	c.Assert(warnings, qt.HasLen, 1)
	c.Assert(strings.Contains(warnings[0], "email"), qt.IsTrue)
	c.Assert(strings.Contains(warnings[0], "DROP COLUMN"), qt.IsTrue)
}

func TestGenerateMigration_RemovedColumnWithDropsRecreatesTable(t *testing.T) {
	c := qt.New(t)

	source := []types.TableInfo{{
		Name:       "users",
		PrimaryKey: []string{"id"},
		Columns: []types.ColumnInfo{
			{Name: "id", Type: "INTEGER", IsPrimaryKey: true},
			{Name: "email", Type: "TEXT", Nullable: true},
		},
	}}
	target := []types.TableInfo{{
		Name:       "users",
		PrimaryKey: []string{"id"},
		Columns: []types.ColumnInfo{
			{Name: "id", Type: "INTEGER", IsPrimaryKey: true},
		},
	}}

	statements, warnings := sqlite.New().GenerateMigration(diffsBetween(source, target), true)

	c.Assert(statements, qt.HasLen, 4)
	c.Assert(strings.HasPrefix(statements[0], "CREATE TABLE users_new ("), qt.IsTrue)
	c.Assert(statements[1], qt.Equals, "INSERT INTO users_new (id) SELECT id FROM users")
	c.Assert(statements[2], qt.Equals, "DROP TABLE users")
	c.Assert(statements[3], qt.Equals, "ALTER TABLE users_new RENAME TO users")
	// The dropped column must not reappear in the new table definition.
	c.Assert(strings.Contains(statements[0], "email"), qt.IsFalse)

	c.Assert(warnings, qt.HasLen, 1)
	c.Assert(strings.Contains(warnings[0], "users"), qt.IsTrue)
	c.Assert(strings.Contains(warnings[0], "recreation"), qt.IsTrue)
}

func TestGenerateMigration_ModifiedColumnTypeRecreatesTable(t *testing.T) {
	c := qt.New(t)

	source := []types.TableInfo{{
		Name: "orders",
		Columns: []types.ColumnInfo{
			{Name: "id", Type: "INTEGER"},
			{Name: "total", Type: "INTEGER"},
		},
	}}
	target := []types.TableInfo{{
		Name: "orders",
		Columns: []types.ColumnInfo{
			{Name: "id", Type: "INTEGER"},
			{Name: "total", Type: "TEXT"},
		},
	}}

	// Type changes force a rebuild even without drop statements.
	statements, warnings := sqlite.New().GenerateMigration(diffsBetween(source, target), false)

	c.Assert(statements, qt.HasLen, 4)
	c.Assert(strings.HasPrefix(statements[0], "CREATE TABLE orders_new ("), qt.IsTrue)
	c.Assert(strings.Contains(statements[0], "total TEXT"), qt.IsTrue)
	c.Assert(statements[1], qt.Equals, "INSERT INTO orders_new (id, total) SELECT id, total FROM orders")
	c.Assert(statements[2], qt.Equals, "DROP TABLE orders")
	c.Assert(statements[3], qt.Equals, "ALTER TABLE orders_new RENAME TO orders")

	c.Assert(warnings, qt.HasLen, 1)
	c.Assert(strings.Contains(warnings[0], "orders"), qt.IsTrue)
}

func TestGenerateMigration_RecreationWithNoCommonColumnsOmitsInsert(t *testing.T) {
	c := qt.New(t)

	source := []types.TableInfo{{
		Name:    "settings",
		Columns: []types.ColumnInfo{{Name: "old_key", Type: "TEXT"}},
	}}
	target := []types.TableInfo{{
		Name:    "settings",
		Columns: []types.ColumnInfo{{Name: "new_key", Type: "TEXT"}},
	}}

	statements, _ := sqlite.New().GenerateMigration(diffsBetween(source, target), true)

	c.Assert(statements, qt.HasLen, 3)
	c.Assert(strings.HasPrefix(statements[0], "CREATE TABLE settings_new ("), qt.IsTrue)
	c.Assert(statements[1], qt.Equals, "DROP TABLE settings")
	c.Assert(statements[2], qt.Equals, "ALTER TABLE settings_new RENAME TO settings")
	for _, stmt := range statements {
		c.Assert(strings.Contains(stmt, "INSERT"), qt.IsFalse)
	}
}

func TestGenerateMigration_RecreationRestoresUnchangedIndexesAndTriggers(t *testing.T) {
	c := qt.New(t)

	index := types.IndexInfo{
		Name:    "idx_users_email",
		Columns: []string{"email"},
		SQL:     "CREATE INDEX idx_users_email ON users (email)",
	}
	trigger := types.TriggerInfo{
		Name:      "users_updated",
		TableName: "users",
		Timing:    types.TriggerAfter,
		Event:     "UPDATE",
		SQL:       "CREATE TRIGGER users_updated AFTER UPDATE ON users BEGIN SELECT 1; END",
	}

	source := []types.TableInfo{{
		Name: "users",
		Columns: []types.ColumnInfo{
			{Name: "id", Type: "INTEGER"},
			{Name: "email", Type: "TEXT", Nullable: true},
		},
		Indexes:  []types.IndexInfo{index},
		Triggers: []types.TriggerInfo{trigger},
	}}
	target := []types.TableInfo{{
		Name: "users",
		Columns: []types.ColumnInfo{
			{Name: "id", Type: "TEXT"}, // forces recreation
			{Name: "email", Type: "TEXT", Nullable: true},
		},
		Indexes:  []types.IndexInfo{index},
		Triggers: []types.TriggerInfo{trigger},
	}}

	statements, _ := sqlite.New().GenerateMigration(diffsBetween(source, target), false)

	c.Assert(statements, qt.HasLen, 6)
	c.Assert(statements[3], qt.Equals, "ALTER TABLE users_new RENAME TO users")
	c.Assert(statements[4], qt.Equals, "CREATE INDEX idx_users_email ON users (email)")
	c.Assert(statements[5], qt.Equals, "CREATE TRIGGER users_updated AFTER UPDATE ON users BEGIN SELECT 1; END")
}

func TestGenerateMigration_AddedTable(t *testing.T) {
	c := qt.New(t)

	target := []types.TableInfo{{
		Name:       "products",
		PrimaryKey: []string{"id"},
		Columns: []types.ColumnInfo{
			{Name: "id", Type: "INTEGER", IsPrimaryKey: true},
			{Name: "name", Type: "TEXT"},
		},
	}}

	statements, warnings := sqlite.New().GenerateMigration(diffsBetween(nil, target), false)

	c.Assert(statements, qt.HasLen, 1)
	c.Assert(strings.HasPrefix(statements[0], "CREATE TABLE products ("), qt.IsTrue)
	c.Assert(strings.Contains(statements[0], "id INTEGER PRIMARY KEY"), qt.IsTrue)
	c.Assert(strings.Contains(statements[0], "name TEXT NOT NULL"), qt.IsTrue)
	c.Assert(warnings, qt.HasLen, 0)
}

func TestGenerateMigration_AddedTableWithIndexAndForeignKey(t *testing.T) {
	c := qt.New(t)

	target := []types.TableInfo{{
		Name:       "orders",
		PrimaryKey: []string{"id"},
		Columns: []types.ColumnInfo{
			{Name: "id", Type: "INTEGER", IsPrimaryKey: true},
			{Name: "user_id", Type: "INTEGER"},
		},
		ForeignKeys: []types.ForeignKeyInfo{{
			Column:           "user_id",
			ReferencedTable:  "users",
			ReferencedColumn: "id",
			OnDelete:         "CASCADE",
		}},
		Indexes: []types.IndexInfo{{
			Name:     "idx_orders_user",
			Columns:  []string{"user_id"},
			IsUnique: false,
		}},
	}}

	statements, _ := sqlite.New().GenerateMigration(diffsBetween(nil, target), false)

	c.Assert(statements, qt.HasLen, 2)
	c.Assert(strings.Contains(statements[0], "FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE"), qt.IsTrue)
	c.Assert(statements[1], qt.Equals, "CREATE INDEX idx_orders_user ON orders (user_id)")
}

func TestGenerateMigration_CompositePrimaryKeyAsTableConstraint(t *testing.T) {
	c := qt.New(t)

	target := []types.TableInfo{{
		Name:       "memberships",
		PrimaryKey: []string{"user_id", "group_id"},
		Columns: []types.ColumnInfo{
			{Name: "user_id", Type: "INTEGER", IsPrimaryKey: true},
			{Name: "group_id", Type: "INTEGER", IsPrimaryKey: true},
		},
	}}

	statements, _ := sqlite.New().GenerateMigration(diffsBetween(nil, target), false)

	c.Assert(statements, qt.HasLen, 1)
	c.Assert(strings.Contains(statements[0], "PRIMARY KEY (user_id, group_id)"), qt.IsTrue)
	// No inline PRIMARY KEY on either column.
	c.Assert(strings.Contains(statements[0], "user_id INTEGER NOT NULL"), qt.IsTrue)
	c.Assert(strings.Contains(statements[0], "group_id INTEGER NOT NULL"), qt.IsTrue)
}

func TestGenerateMigration_RemovedTable(t *testing.T) {
	c := qt.New(t)

	source := []types.TableInfo{{
		Name:    "legacy",
		Columns: []types.ColumnInfo{{Name: "id", Type: "INTEGER"}},
	}}

	// Without drop statements there is no SQL and no warning.
	statements, warnings := sqlite.New().GenerateMigration(diffsBetween(source, nil), false)
	c.Assert(statements, qt.HasLen, 0)
	c.Assert(warnings, qt.HasLen, 0)

	// With drop statements the table is dropped and flagged destructive.
	statements, warnings = sqlite.New().GenerateMigration(diffsBetween(source, nil), true)
	c.Assert(statements, qt.DeepEquals, []string{"DROP TABLE legacy"})
	c.Assert(warnings, qt.HasLen, 1)
	c.Assert(strings.Contains(warnings[0], "destructive"), qt.IsTrue)
}

func TestGenerateMigration_RemovedTableDropsItsIndexesAndTriggers(t *testing.T) {
	c := qt.New(t)

	source := []types.TableInfo{{
		Name:    "legacy",
		Columns: []types.ColumnInfo{{Name: "id", Type: "INTEGER"}},
		Indexes: []types.IndexInfo{{Name: "idx_legacy_id", Columns: []string{"id"}}},
		Triggers: []types.TriggerInfo{{
			Name: "legacy_audit", TableName: "legacy",
			Timing: types.TriggerAfter, Event: "INSERT",
		}},
	}}

	statements, _ := sqlite.New().GenerateMigration(diffsBetween(source, nil), true)

	c.Assert(statements, qt.DeepEquals, []string{
		"DROP TRIGGER legacy_audit",
		"DROP INDEX idx_legacy_id",
		"DROP TABLE legacy",
	})
}

func TestGenerateMigration_IndexChanges(t *testing.T) {
	c := qt.New(t)

	source := []types.TableInfo{{
		Name:    "users",
		Columns: []types.ColumnInfo{{Name: "email", Type: "TEXT"}},
		Indexes: []types.IndexInfo{
			{Name: "idx_gone", Columns: []string{"email"}},
			{Name: "idx_changed", Columns: []string{"email"}},
		},
	}}
	target := []types.TableInfo{{
		Name:    "users",
		Columns: []types.ColumnInfo{{Name: "email", Type: "TEXT"}},
		Indexes: []types.IndexInfo{
			{Name: "idx_changed", Columns: []string{"email"}, IsUnique: true},
			{Name: "idx_fresh", Columns: []string{"email"}},
		},
	}}

	statements, _ := sqlite.New().GenerateMigration(diffsBetween(source, target), false)

	// Nested diffs follow target order with removed entries appended, so the
	// modified index is dropped before the one that disappeared.
	c.Assert(statements, qt.DeepEquals, []string{
		"DROP INDEX idx_changed",
		"DROP INDEX idx_gone",
		"CREATE UNIQUE INDEX idx_changed ON users (email)",
		"CREATE INDEX idx_fresh ON users (email)",
	})
}

func TestGenerateMigration_ModifiedViewDroppedAndRecreated(t *testing.T) {
	c := qt.New(t)

	sourceView := types.TableInfo{
		Name: "active_users",
		Type: types.ObjectTypeView,
		SQL:  "CREATE VIEW active_users AS SELECT id FROM users WHERE active = 1",
	}
	targetView := types.TableInfo{
		Name: "active_users",
		Type: types.ObjectTypeView,
		SQL:  "CREATE VIEW active_users AS SELECT id, name FROM users WHERE active = 1",
	}

	source := []types.SchemaInfo{{Name: "main", Views: []types.TableInfo{sourceView}}}
	target := []types.SchemaInfo{{Name: "main", Views: []types.TableInfo{targetView}}}
	result := schemadiff.Compare(source, target,
		difftypes.Endpoint{ID: "s", Name: "source", Type: difftypes.EndpointTypeSnapshot},
		difftypes.Endpoint{ID: "t", Name: "target", Type: difftypes.EndpointTypeSnapshot},
	)

	statements, warnings := sqlite.New().GenerateMigration(result.TableDiffs, false)

	c.Assert(statements, qt.DeepEquals, []string{
		"DROP VIEW active_users",
		"CREATE VIEW active_users AS SELECT id, name FROM users WHERE active = 1",
	})
	c.Assert(warnings, qt.HasLen, 0)
}

func TestGenerateMigration_TriggerWithoutCapturedSQL(t *testing.T) {
	c := qt.New(t)

	source := []types.TableInfo{{
		Name:    "users",
		Columns: []types.ColumnInfo{{Name: "id", Type: "INTEGER"}},
	}}
	target := []types.TableInfo{{
		Name:    "users",
		Columns: []types.ColumnInfo{{Name: "id", Type: "INTEGER"}},
		Triggers: []types.TriggerInfo{{
			Name: "users_audit", TableName: "users",
			Timing: types.TriggerAfter, Event: "INSERT",
		}},
	}}

	statements, warnings := sqlite.New().GenerateMigration(diffsBetween(source, target), false)

	c.Assert(statements, qt.HasLen, 1)
	c.Assert(statements[0], qt.Equals, "CREATE TRIGGER users_audit AFTER INSERT ON users\nBEGIN\nEND")
	c.Assert(warnings, qt.HasLen, 1)
	c.Assert(strings.Contains(warnings[0], "empty body"), qt.IsTrue)
}

func TestGenerateMigration_UnchangedDiffsProduceNothing(t *testing.T) {
	c := qt.New(t)

	tables := []types.TableInfo{{
		Name:       "users",
		PrimaryKey: []string{"id"},
		Columns:    []types.ColumnInfo{{Name: "id", Type: "INTEGER", IsPrimaryKey: true}},
		Indexes:    []types.IndexInfo{{Name: "idx_users_id", Columns: []string{"id"}}},
	}}

	statements, warnings := sqlite.New().GenerateMigration(diffsBetween(tables, tables), true)

	c.Assert(statements, qt.HasLen, 0)
	c.Assert(warnings, qt.HasLen, 0)
}
