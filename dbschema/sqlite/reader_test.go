package sqlite_test

import (
	"database/sql"
	"path/filepath"
	"strings"
	"testing"

	qt "github.com/frankban/quicktest"
	_ "modernc.org/sqlite"

	"github.com/kverlan/seshat/dbschema/sqlite"
	"github.com/kverlan/seshat/dbschema/types"
)

func openTestDB(c *qt.C, ddl ...string) *sql.DB {
	db, err := sql.Open("sqlite", filepath.Join(c.TempDir(), "test.db"))
	c.Assert(err, qt.IsNil)
	c.Cleanup(func() { db.Close() })

	for _, stmt := range ddl {
		_, err := db.Exec(stmt)
		c.Assert(err, qt.IsNil, qt.Commentf("ddl: %s", stmt))
	}
	return db
}

func findTable(c *qt.C, schema types.SchemaInfo, name string) types.TableInfo {
	for _, t := range schema.Tables {
		if t.Name == name {
			return t
		}
	}
	c.Fatalf("table %s not found", name)
	return types.TableInfo{}
}

func TestReadSchema_TablesAndColumns(t *testing.T) {
	c := qt.New(t)

	db := openTestDB(c,
		`CREATE TABLE users (
			id INTEGER PRIMARY KEY,
			email TEXT,
			active INTEGER NOT NULL DEFAULT 1
		)`,
	)

	schemas, err := sqlite.NewReader(db).ReadSchema()
	c.Assert(err, qt.IsNil)
	c.Assert(schemas, qt.HasLen, 1)
	c.Assert(schemas[0].Name, qt.Equals, "main")

	users := findTable(c, schemas[0], "users")
	c.Assert(users.Type, qt.Equals, types.ObjectTypeTable)
	c.Assert(users.Schema, qt.Equals, "main")
	c.Assert(users.PrimaryKey, qt.DeepEquals, []string{"id"})
	c.Assert(users.Columns, qt.HasLen, 3)

	id := users.Column("id")
	c.Assert(id, qt.IsNotNil)
	c.Assert(id.Type, qt.Equals, "INTEGER")
	c.Assert(id.IsPrimaryKey, qt.IsTrue)

	email := users.Column("email")
	c.Assert(email, qt.IsNotNil)
	c.Assert(email.Nullable, qt.IsTrue)
	c.Assert(email.DefaultValue, qt.IsNil)

	active := users.Column("active")
	c.Assert(active, qt.IsNotNil)
	c.Assert(active.Nullable, qt.IsFalse)
	c.Assert(active.DefaultValue, qt.IsNotNil)
	c.Assert(*active.DefaultValue, qt.Equals, "1")
}

func TestReadSchema_CompositePrimaryKeyOrder(t *testing.T) {
	c := qt.New(t)

	db := openTestDB(c,
		`CREATE TABLE memberships (
			group_id INTEGER,
			user_id INTEGER,
			PRIMARY KEY (user_id, group_id)
		)`,
	)

	schemas, err := sqlite.NewReader(db).ReadSchema()
	c.Assert(err, qt.IsNil)

	m := findTable(c, schemas[0], "memberships")
	// PRAGMA table_info reports the position within the key, not the
	// declaration order of the columns.
	c.Assert(m.PrimaryKey, qt.DeepEquals, []string{"user_id", "group_id"})
}

func TestReadSchema_ForeignKeys(t *testing.T) {
	c := qt.New(t)

	db := openTestDB(c,
		`CREATE TABLE users (id INTEGER PRIMARY KEY)`,
		`CREATE TABLE orders (
			id INTEGER PRIMARY KEY,
			user_id INTEGER REFERENCES users(id) ON DELETE CASCADE
		)`,
	)

	schemas, err := sqlite.NewReader(db).ReadSchema()
	c.Assert(err, qt.IsNil)

	orders := findTable(c, schemas[0], "orders")
	c.Assert(orders.ForeignKeys, qt.HasLen, 1)
	fk := orders.ForeignKeys[0]
	c.Assert(fk.Column, qt.Equals, "user_id")
	c.Assert(fk.ReferencedTable, qt.Equals, "users")
	c.Assert(fk.ReferencedColumn, qt.Equals, "id")
	c.Assert(fk.OnDelete, qt.Equals, "CASCADE")
}

func TestReadSchema_IndexesSkipAutoIndexes(t *testing.T) {
	c := qt.New(t)

	db := openTestDB(c,
		`CREATE TABLE users (id INTEGER PRIMARY KEY, email TEXT UNIQUE)`,
		`CREATE UNIQUE INDEX idx_users_email ON users (email)`,
		`CREATE INDEX idx_users_id_email ON users (id, email)`,
	)

	schemas, err := sqlite.NewReader(db).ReadSchema()
	c.Assert(err, qt.IsNil)

	users := findTable(c, schemas[0], "users")
	// The UNIQUE constraint's implicit index is not an explicitly created
	// one and is not reported.
	c.Assert(users.Indexes, qt.HasLen, 2)

	byName := make(map[string]types.IndexInfo)
	for _, idx := range users.Indexes {
		byName[idx.Name] = idx
	}

	unique := byName["idx_users_email"]
	c.Assert(unique.IsUnique, qt.IsTrue)
	c.Assert(unique.Columns, qt.DeepEquals, []string{"email"})
	c.Assert(strings.Contains(unique.SQL, "CREATE UNIQUE INDEX"), qt.IsTrue)

	multi := byName["idx_users_id_email"]
	c.Assert(multi.IsUnique, qt.IsFalse)
	c.Assert(multi.Columns, qt.DeepEquals, []string{"id", "email"})
}

func TestReadSchema_TriggersAndViews(t *testing.T) {
	c := qt.New(t)

	db := openTestDB(c,
		`CREATE TABLE users (id INTEGER PRIMARY KEY, updated_at TEXT)`,
		`CREATE TRIGGER users_touch AFTER UPDATE ON users
		 BEGIN
			UPDATE users SET updated_at = datetime('now') WHERE id = NEW.id;
		 END`,
		`CREATE VIEW user_ids AS SELECT id FROM users`,
	)

	schemas, err := sqlite.NewReader(db).ReadSchema()
	c.Assert(err, qt.IsNil)

	users := findTable(c, schemas[0], "users")
	c.Assert(users.Triggers, qt.HasLen, 1)
	trg := users.Triggers[0]
	c.Assert(trg.Name, qt.Equals, "users_touch")
	c.Assert(trg.TableName, qt.Equals, "users")
	c.Assert(trg.Timing, qt.Equals, types.TriggerAfter)
	c.Assert(trg.Event, qt.Equals, "UPDATE")
	c.Assert(strings.Contains(trg.SQL, "CREATE TRIGGER"), qt.IsTrue)

	c.Assert(schemas[0].Views, qt.HasLen, 1)
	view := schemas[0].Views[0]
	c.Assert(view.Name, qt.Equals, "user_ids")
	c.Assert(view.Type, qt.Equals, types.ObjectTypeView)
	c.Assert(strings.Contains(view.SQL, "CREATE VIEW"), qt.IsTrue)
}

func TestReadSchema_RowCount(t *testing.T) {
	c := qt.New(t)

	db := openTestDB(c,
		`CREATE TABLE users (id INTEGER PRIMARY KEY)`,
		`INSERT INTO users (id) VALUES (1), (2), (3)`,
	)

	schemas, err := sqlite.NewReader(db).ReadSchema()
	c.Assert(err, qt.IsNil)

	users := findTable(c, schemas[0], "users")
	c.Assert(users.RowCount, qt.Equals, int64(3))
}
