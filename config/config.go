// Package config provides configuration options for the Seshat schema
// comparison and migration system.
//
// This package provides a simple, programmatic API for configuring schema
// comparison and migration SQL generation when using Seshat as a library.
// It focuses on clean Go APIs rather than external configuration file
// management (the CLI layers file/env handling on top of these options).
package config

// CompareOptions contains configuration options for schema comparison
// operations. These options control which objects participate in the diff.
type CompareOptions struct {
	// IgnoredTables is a list of table names that should be excluded from
	// schema comparison. Ignored tables:
	// - Never appear in the comparison result
	// - Never produce migration statements
	//
	// Common tables to ignore include engine-internal bookkeeping tables
	// such as sqlite_sequence (AUTOINCREMENT state).
	IgnoredTables []string
}

// DefaultCompareOptions returns the default comparison options. The default
// configuration ignores SQLite's internal bookkeeping tables, which exist as
// a side effect of other DDL and cannot be migrated directly.
func DefaultCompareOptions() *CompareOptions {
	return &CompareOptions{
		IgnoredTables: []string{
			"sqlite_sequence", // AUTOINCREMENT bookkeeping - managed by the engine
		},
	}
}

// WithIgnoredTables returns a new CompareOptions with the specified ignored
// tables. This completely replaces the default ignored table list.
//
// Example:
//
//	opts := config.WithIgnoredTables("sqlite_sequence", "audit_log")
func WithIgnoredTables(tables ...string) *CompareOptions {
	return &CompareOptions{
		IgnoredTables: tables,
	}
}

// IsTableIgnored checks if the given table name should be excluded from
// comparison based on the current configuration.
func (c *CompareOptions) IsTableIgnored(tableName string) bool {
	for _, ignored := range c.IgnoredTables {
		if ignored == tableName {
			return true
		}
	}
	return false
}

// GenerateOptions contains configuration options for migration SQL
// generation. Both flags default to false.
type GenerateOptions struct {
	// Reverse generates the migration in the opposite direction: the diff is
	// mirrored (source and target swapped, additions and removals flipped)
	// before any SQL is produced.
	Reverse bool

	// IncludeDropStatements enables destructive statements. Without it,
	// removed tables produce no SQL at all, and removed columns are only
	// surfaced as warnings instead of triggering a table rebuild.
	IncludeDropStatements bool
}

// DefaultGenerateOptions returns generation options with both flags off,
// which yields a purely additive migration.
func DefaultGenerateOptions() *GenerateOptions {
	return &GenerateOptions{}
}
