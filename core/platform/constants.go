package platform

import (
	"strings"
)

const (
	SQLite   = "sqlite"
	Postgres = "postgres"
	MySQL    = "mysql"
)

func NormalizeDialect(dialect string) string {
	switch strings.ToLower(dialect) {
	case "sqlite", "sqlite3", "file":
		return SQLite
	case "pgx", "postgresql", "postgres":
		return Postgres
	case "mysql":
		return MySQL
	default:
		return ""
	}
}
