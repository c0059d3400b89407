package sqlutil_test

import (
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/kverlan/seshat/core/sqlutil"
)

func TestQualifiedName(t *testing.T) {
	c := qt.New(t)

	tests := []struct {
		name   string
		schema string
		table  string
		want   string
	}{
		{name: "empty schema", schema: "", table: "users", want: "users"},
		{name: "default schema", schema: "main", table: "users", want: "users"},
		{name: "attached schema", schema: "archive", table: "users", want: "archive.users"},
	}

	for _, tt := range tests {
		c.Run(tt.name, func(c *qt.C) {
			c.Assert(sqlutil.QualifiedName(tt.schema, tt.table), qt.Equals, tt.want)
		})
	}
}

func TestJoinStatements(t *testing.T) {
	c := qt.New(t)

	tests := []struct {
		name       string
		statements []string
		want       string
	}{
		{name: "empty list", statements: nil, want: ""},
		{name: "single statement", statements: []string{"DROP TABLE t"}, want: "DROP TABLE t;"},
		{
			name:       "multiple statements",
			statements: []string{"DROP TABLE a", "DROP TABLE b"},
			want:       "DROP TABLE a;\n\nDROP TABLE b;",
		},
	}

	for _, tt := range tests {
		c.Run(tt.name, func(c *qt.C) {
			c.Assert(sqlutil.JoinStatements(tt.statements), qt.Equals, tt.want)
		})
	}
}

func TestStripComments(t *testing.T) {
	c := qt.New(t)

	tests := []struct {
		name string
		sql  string
		want string
	}{
		{name: "no comments", sql: "SELECT 1", want: "SELECT 1"},
		{name: "line comment", sql: "SELECT 1 -- trailing\n", want: "SELECT 1 \n"},
		{name: "block comment", sql: "SELECT /* inline */ 1", want: "SELECT  1"},
		{
			name: "comment marker inside string literal",
			sql:  "INSERT INTO t VALUES ('a -- not a comment')",
			want: "INSERT INTO t VALUES ('a -- not a comment')",
		},
		{
			name: "escaped quote inside string literal",
			sql:  "INSERT INTO t VALUES ('it''s -- fine')",
			want: "INSERT INTO t VALUES ('it''s -- fine')",
		},
		{name: "only a comment", sql: "-- nothing here", want: ""},
	}

	for _, tt := range tests {
		c.Run(tt.name, func(c *qt.C) {
			c.Assert(sqlutil.StripComments(tt.sql), qt.Equals, tt.want)
		})
	}
}

func TestHasStatements(t *testing.T) {
	c := qt.New(t)

	tests := []struct {
		name       string
		statements []string
		want       bool
	}{
		{name: "empty list", statements: nil, want: false},
		{name: "real statement", statements: []string{"DROP TABLE t"}, want: true},
		{name: "only comments", statements: []string{"-- nothing", "/* still nothing */"}, want: false},
		{name: "whitespace only", statements: []string{"   ", "\n"}, want: false},
		{name: "mixed", statements: []string{"-- header", "SELECT 1"}, want: true},
	}

	for _, tt := range tests {
		c.Run(tt.name, func(c *qt.C) {
			c.Assert(sqlutil.HasStatements(tt.statements), qt.Equals, tt.want)
		})
	}
}
