package types_test

import (
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/kverlan/seshat/dbschema/types"
)

func TestTableInfo_Key(t *testing.T) {
	c := qt.New(t)

	tests := []struct {
		name  string
		table types.TableInfo
		want  string
	}{
		{name: "explicit schema", table: types.TableInfo{Schema: "archive", Name: "users"}, want: "archive.users"},
		{name: "default schema", table: types.TableInfo{Schema: "main", Name: "users"}, want: "main.users"},
		{name: "missing schema defaults", table: types.TableInfo{Name: "users"}, want: "main.users"},
	}

	for _, tt := range tests {
		c.Run(tt.name, func(c *qt.C) {
			c.Assert(tt.table.Key(), qt.Equals, tt.want)
		})
	}
}

func TestTableInfo_Column(t *testing.T) {
	c := qt.New(t)

	table := types.TableInfo{
		Name: "users",
		Columns: []types.ColumnInfo{
			{Name: "id", Type: "INTEGER"},
			{Name: "email", Type: "TEXT"},
		},
	}

	col := table.Column("email")
	c.Assert(col, qt.IsNotNil)
	c.Assert(col.Type, qt.Equals, "TEXT")

	c.Assert(table.Column("missing"), qt.IsNil)
}
