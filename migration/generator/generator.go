// Package generator produces migration SQL from schema comparison results.
//
// It is the orchestration layer above the dialect planners: it applies the
// optional direction reversal, delegates statement emission, joins the
// statements into an executable script, and converts any unexpected failure
// into an error result instead of a panic.
package generator

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/kverlan/seshat/core/sqlutil"
	"github.com/kverlan/seshat/migration/planner"
	"github.com/kverlan/seshat/migration/planner/dialects/sqlite"
	difftypes "github.com/kverlan/seshat/migration/schemadiff/types"
)

// GenerateMigrationSQLRequest carries a comparison result and the two
// generation flags.
type GenerateMigrationSQLRequest struct {
	// ComparisonResult is the diff to generate SQL for. Required.
	ComparisonResult *difftypes.ComparisonResult
	// Reverse mirrors the diff before generation, producing the migration
	// that undoes the forward direction.
	Reverse bool
	// IncludeDropStatements enables destructive statements (dropping
	// removed tables, rebuilding tables to drop removed columns).
	IncludeDropStatements bool
}

// GenerateMigrationSQLResult is the outcome of a generation call. Either
// Success is true and SQL/Statements/Warnings are populated, or Success is
// false and Error describes the failure. There is no partial-success mode.
type GenerateMigrationSQLResult struct {
	Success    bool     `json:"success"`
	SQL        string   `json:"sql"`
	Statements []string `json:"statements"`
	Warnings   []string `json:"warnings"`
	Error      string   `json:"error,omitempty"`
}

// GenerateMigrationSQL generates the ordered DDL statement list that
// transforms the comparison's source schema into its target schema.
//
// Warnings are informational: the migration is still usable, but some
// operations were either destructive (and are flagged) or impossible for
// the dialect (and were omitted). Any unexpected failure during generation
// is caught and converted into an error result; the function never panics
// into its caller.
func GenerateMigrationSQL(req GenerateMigrationSQLRequest) (result GenerateMigrationSQLResult) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("migration generation failed", "panic", r)
			result = GenerateMigrationSQLResult{
				Success: false,
				Error:   fmt.Sprintf("migration generation failed: %v", r),
			}
		}
	}()

	if req.ComparisonResult == nil {
		return GenerateMigrationSQLResult{Success: false, Error: "comparison result is required"}
	}

	comparison := req.ComparisonResult
	if req.Reverse {
		comparison = ReverseComparisonResult(comparison)
	}

	statements, warnings, err := planner.GenerateMigrationStatements(comparison, sqlite.DialectName, req.IncludeDropStatements)
	if err != nil {
		return GenerateMigrationSQLResult{Success: false, Error: err.Error()}
	}

	slog.Debug("generated migration statements",
		"statements", len(statements), "warnings", len(warnings), "reverse", req.Reverse)

	return GenerateMigrationSQLResult{
		Success:    true,
		SQL:        sqlutil.JoinStatements(statements),
		Statements: statements,
		Warnings:   warnings,
	}
}

// MigrationFiles represents the generated migration file pair.
type MigrationFiles struct {
	UpFile   string // Path to the up migration file
	DownFile string // Path to the down migration file
	Version  int64  // Migration version (timestamp)
}

// WriteMigrationFilesOptions contains options for migration file emission.
type WriteMigrationFilesOptions struct {
	// ComparisonResult is the diff to render. Required.
	ComparisonResult *difftypes.ComparisonResult
	// MigrationName names the migration (defaults to "migration").
	MigrationName string
	// OutputDir is the directory where the files are written.
	OutputDir string
	// IncludeDropStatements is forwarded to generation of both directions.
	IncludeDropStatements bool
}

// WriteMigrationFiles renders a comparison result into an up/down migration
// file pair. The down file is generated from the mirrored diff, so applying
// it conceptually undoes the up file. Returns nil when the comparison
// produced no actual SQL in the up direction - a successful no-op.
func WriteMigrationFiles(opts WriteMigrationFilesOptions) (*MigrationFiles, error) {
	if opts.MigrationName == "" {
		opts.MigrationName = "migration"
	}

	up := GenerateMigrationSQL(GenerateMigrationSQLRequest{
		ComparisonResult:      opts.ComparisonResult,
		IncludeDropStatements: opts.IncludeDropStatements,
	})
	if !up.Success {
		return nil, fmt.Errorf("error generating up migration SQL: %s", up.Error)
	}
	if !sqlutil.HasStatements(up.Statements) {
		return nil, nil
	}

	down := GenerateMigrationSQL(GenerateMigrationSQLRequest{
		ComparisonResult:      opts.ComparisonResult,
		Reverse:               true,
		IncludeDropStatements: opts.IncludeDropStatements,
	})
	if !down.Success {
		return nil, fmt.Errorf("error generating down migration SQL: %s", down.Error)
	}

	if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	version := time.Now().Unix()
	upPath := filepath.Join(opts.OutputDir, migrationFileName(version, opts.MigrationName, "up"))
	downPath := filepath.Join(opts.OutputDir, migrationFileName(version, opts.MigrationName, "down"))

	// Bump the version until the file name is free so repeated runs in the
	// same second never overwrite an existing migration.
	for {
		info, err := os.Stat(upPath)
		if err != nil || info.Size() == 0 {
			break
		}
		version++
		upPath = filepath.Join(opts.OutputDir, migrationFileName(version, opts.MigrationName, "up"))
		downPath = filepath.Join(opts.OutputDir, migrationFileName(version, opts.MigrationName, "down"))
	}

	if err := os.WriteFile(upPath, []byte(migrationFileContent("UP", up)), 0o644); err != nil { //nolint:gosec // 0644 is fine
		return nil, fmt.Errorf("failed to write up migration file: %w", err)
	}
	if err := os.WriteFile(downPath, []byte(migrationFileContent("DOWN", down)), 0o644); err != nil { //nolint:gosec // 0644 is fine
		return nil, fmt.Errorf("failed to write down migration file: %w", err)
	}

	slog.Debug("wrote migration files", "up", upPath, "down", downPath, "version", version)

	return &MigrationFiles{
		UpFile:   upPath,
		DownFile: downPath,
		Version:  version,
	}, nil
}

func migrationFileName(version int64, name, direction string) string {
	return fmt.Sprintf("%d_%s.%s.sql", version, name, direction)
}

func migrationFileContent(direction string, result GenerateMigrationSQLResult) string {
	header := fmt.Sprintf("-- Migration generated from schema differences\n-- Generated on: %s\n-- Direction: %s\n",
		time.Now().Format(time.RFC3339), direction)
	for _, w := range result.Warnings {
		header += "-- WARNING: " + w + "\n"
	}
	if result.SQL == "" {
		return header + "\n-- No operations needed\n"
	}
	return header + "\n" + result.SQL + "\n"
}
