package schemadiff

import (
	"time"

	"github.com/kverlan/seshat/config"
	"github.com/kverlan/seshat/dbschema/types"
	"github.com/kverlan/seshat/migration/schemadiff/internal/compare"
	difftypes "github.com/kverlan/seshat/migration/schemadiff/types"
)

// Compare performs a structural comparison between two schema snapshot sets
// using default options. For custom configuration, use CompareWithOptions.
func Compare(source, target []types.SchemaInfo, src, dst difftypes.Endpoint) *difftypes.ComparisonResult {
	return CompareWithOptions(source, target, src, dst, nil)
}

// CompareWithOptions performs a structural comparison between two schema
// snapshot sets with custom configuration options.
//
// Every table or view key appearing in either side shows up exactly once in
// the resulting TableDiffs, classified as added, removed, modified, or
// unchanged, with the nested column/index/foreign-key/trigger diffs and
// order-insensitive primary key comparison described in the compare package.
//
// Parameters:
//   - source: snapshots of the current schema state
//   - target: snapshots of the desired schema state
//   - src, dst: identity labels for reporting; snapshot provenance does not
//     affect comparison behavior
//   - opts: comparison options (nil uses defaults, which ignore SQLite's
//     internal bookkeeping tables)
//
// The function is pure and safe for concurrent use: it performs no I/O and
// does not mutate its inputs.
//
// Example usage:
//
//	result := schemadiff.CompareWithOptions(live, saved,
//		difftypes.Endpoint{ID: connID, Name: "app.db", Type: difftypes.EndpointTypeConnection},
//		difftypes.Endpoint{ID: snapID, Name: "v12", Type: difftypes.EndpointTypeSnapshot},
//		config.WithIgnoredTables("sqlite_sequence", "audit_log"))
//	if result.HasChanges() {
//		// feed result into migration generation
//	}
func CompareWithOptions(source, target []types.SchemaInfo, src, dst difftypes.Endpoint, opts *config.CompareOptions) *difftypes.ComparisonResult {
	diffs := compare.Schemas(source, target, opts)

	return &difftypes.ComparisonResult{
		Source:     src,
		Target:     dst,
		ComparedAt: time.Now().UTC(),
		TableDiffs: diffs,
		Summary:    compare.Summarize(diffs),
	}
}
