// Package planner turns schema comparison results into ordered DDL
// statement lists for a concrete dialect.
package planner

import (
	"fmt"

	"github.com/kverlan/seshat/core/platform"
	"github.com/kverlan/seshat/migration/planner/dialects/sqlite"
	difftypes "github.com/kverlan/seshat/migration/schemadiff/types"
)

// GenerateMigrationStatements converts the table diffs of a comparison
// result into an ordered statement list plus warnings for the named dialect.
// Statements are returned unterminated; join them with
// sqlutil.JoinStatements to obtain an executable script.
func GenerateMigrationStatements(result *difftypes.ComparisonResult, dialect string, includeDrops bool) (statements, warnings []string, err error) {
	switch platform.NormalizeDialect(dialect) {
	case platform.SQLite:
		statements, warnings = sqlite.New().GenerateMigration(result.TableDiffs, includeDrops)
		return statements, warnings, nil
	default:
		return nil, nil, fmt.Errorf("unsupported dialect for migration generation: %s", dialect)
	}
}
