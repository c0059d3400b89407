package schemadiff_test

import (
	"testing"
	"time"

	qt "github.com/frankban/quicktest"

	"github.com/kverlan/seshat/config"
	"github.com/kverlan/seshat/dbschema/types"
	"github.com/kverlan/seshat/migration/schemadiff"
	difftypes "github.com/kverlan/seshat/migration/schemadiff/types"
)

func endpoints() (difftypes.Endpoint, difftypes.Endpoint) {
	src := difftypes.Endpoint{ID: "src-1", Name: "app.db", Type: difftypes.EndpointTypeConnection}
	dst := difftypes.Endpoint{ID: "dst-1", Name: "snapshots/v2.json", Type: difftypes.EndpointTypeSnapshot}
	return src, dst
}

func TestCompare_ResultShape(t *testing.T) {
	c := qt.New(t)

	source := []types.SchemaInfo{{Name: "main", Tables: []types.TableInfo{
		{Name: "users", Columns: []types.ColumnInfo{{Name: "id", Type: "INTEGER", IsPrimaryKey: true}}},
	}}}
	target := []types.SchemaInfo{{Name: "main", Tables: []types.TableInfo{
		{Name: "users", Columns: []types.ColumnInfo{{Name: "id", Type: "INTEGER", IsPrimaryKey: true}}},
		{Name: "orders", Columns: []types.ColumnInfo{{Name: "id", Type: "INTEGER", IsPrimaryKey: true}}},
	}}}

	src, dst := endpoints()
	before := time.Now().UTC()
	result := schemadiff.Compare(source, target, src, dst)

	c.Assert(result.Source, qt.DeepEquals, src)
	c.Assert(result.Target, qt.DeepEquals, dst)
	c.Assert(result.ComparedAt.Before(before), qt.IsFalse)
	c.Assert(result.TableDiffs, qt.HasLen, 2)
	c.Assert(result.Summary.TablesAdded, qt.Equals, 1)
	c.Assert(result.Summary.TablesUnchanged, qt.Equals, 1)
	c.Assert(result.HasChanges(), qt.IsTrue)
}

func TestCompare_IdenticalSchemasHaveNoChanges(t *testing.T) {
	c := qt.New(t)

	schemas := []types.SchemaInfo{{Name: "main", Tables: []types.TableInfo{
		{
			Name:       "users",
			PrimaryKey: []string{"id"},
			Columns: []types.ColumnInfo{
				{Name: "id", Type: "INTEGER", IsPrimaryKey: true},
				{Name: "name", Type: "TEXT", Nullable: true},
			},
			Indexes: []types.IndexInfo{{Name: "idx_users_name", Columns: []string{"name"}}},
		},
	}}}

	src, dst := endpoints()
	result := schemadiff.Compare(schemas, schemas, src, dst)

	c.Assert(result.HasChanges(), qt.IsFalse)
	c.Assert(result.Summary.TablesUnchanged, qt.Equals, 1)
	c.Assert(result.Summary.TotalColumnChanges, qt.Equals, 0)
}

func TestCompareWithOptions_CustomIgnoreList(t *testing.T) {
	c := qt.New(t)

	source := []types.SchemaInfo{{Name: "main", Tables: []types.TableInfo{
		{Name: "users", Columns: []types.ColumnInfo{{Name: "id", Type: "INTEGER"}}},
		{Name: "audit_log", Columns: []types.ColumnInfo{{Name: "id", Type: "INTEGER"}}},
	}}}
	target := []types.SchemaInfo{{Name: "main", Tables: []types.TableInfo{
		{Name: "users", Columns: []types.ColumnInfo{{Name: "id", Type: "INTEGER"}}},
	}}}

	src, dst := endpoints()
	result := schemadiff.CompareWithOptions(source, target, src, dst,
		config.WithIgnoredTables("audit_log"))

	c.Assert(result.HasChanges(), qt.IsFalse)
	c.Assert(result.Summary.TablesRemoved, qt.Equals, 0)
}

func TestCompareWithOptions_EverySideKeyAppearsOnce(t *testing.T) {
	c := qt.New(t)

	source := []types.SchemaInfo{{Name: "main", Tables: []types.TableInfo{
		{Name: "a"}, {Name: "b"}, {Name: "c"},
	}}}
	target := []types.SchemaInfo{{Name: "main", Tables: []types.TableInfo{
		{Name: "b"}, {Name: "c"}, {Name: "d"},
	}}}

	src, dst := endpoints()
	result := schemadiff.CompareWithOptions(source, target, src, dst, nil)

	seen := make(map[string]int)
	for _, d := range result.TableDiffs {
		seen[d.Key]++
	}
	c.Assert(result.TableDiffs, qt.HasLen, 4)
	for key, count := range seen {
		c.Assert(count, qt.Equals, 1, qt.Commentf("key %s", key))
	}

	total := result.Summary.TablesAdded + result.Summary.TablesRemoved +
		result.Summary.TablesModified + result.Summary.TablesUnchanged
	c.Assert(total, qt.Equals, len(result.TableDiffs))
}
