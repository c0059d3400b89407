package migrate

import (
	"fmt"
	"strings"

	"github.com/go-extras/cobraflags"
	"github.com/spf13/cobra"

	"github.com/kverlan/seshat/config"
	"github.com/kverlan/seshat/migration/generator"
	"github.com/kverlan/seshat/migration/workflow"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Generate migration SQL from a schema comparison",
	Long: `Compare two endpoints and generate the SQL migration that transforms
the source schema into the target schema.

By default the SQL is printed to stdout. With --output-dir, a pair of
timestamped up/down migration files is written instead.

Examples:
  seshat migrate --source app.db --target new.db
  seshat migrate --source app.db --target new.db --include-drops
  seshat migrate --source app.db --target new.db --output-dir ./migrations --name add_users
  seshat migrate --source snapshots/v1.json --target app.db --reverse`,
	RunE: migrateCommand,
}

const (
	sourceFlag       = "source"
	targetFlag       = "target"
	ignoreTablesFlag = "ignore-tables"
	reverseFlag      = "reverse"
	includeDropsFlag = "include-drops"
	nameFlag         = "name"
	outputDirFlag    = "output-dir"
)

var migrateFlags = map[string]cobraflags.Flag{
	sourceFlag: &cobraflags.StringFlag{
		Name:  sourceFlag,
		Value: "",
		Usage: "Source endpoint: database URL or snapshot file (required)",
	},
	targetFlag: &cobraflags.StringFlag{
		Name:  targetFlag,
		Value: "",
		Usage: "Target endpoint: database URL or snapshot file (required)",
	},
	ignoreTablesFlag: &cobraflags.StringFlag{
		Name:  ignoreTablesFlag,
		Value: "",
		Usage: "Comma-separated list of table names to ignore",
	},
	reverseFlag: &cobraflags.BoolFlag{
		Name:  reverseFlag,
		Value: false,
		Usage: "Generate the reverse migration (target back to source)",
	},
	includeDropsFlag: &cobraflags.BoolFlag{
		Name:  includeDropsFlag,
		Value: false,
		Usage: "Include destructive statements (DROP TABLE, column removal rebuilds)",
	},
	nameFlag: &cobraflags.StringFlag{
		Name:  nameFlag,
		Value: "migration",
		Usage: "Name for generated migration files",
	},
	outputDirFlag: &cobraflags.StringFlag{
		Name:  outputDirFlag,
		Value: "",
		Usage: "Write up/down migration files to this directory instead of printing SQL",
	},
}

func NewMigrateCommand() *cobra.Command {
	cobraflags.RegisterMap(migrateCmd, migrateFlags)
	return migrateCmd
}

func migrateCommand(_ *cobra.Command, _ []string) error {
	sourceRef := migrateFlags[sourceFlag].GetString()
	targetRef := migrateFlags[targetFlag].GetString()
	if sourceRef == "" || targetRef == "" {
		return fmt.Errorf("both --source and --target are required")
	}

	var opts *config.CompareOptions
	if ignoreList := migrateFlags[ignoreTablesFlag].GetString(); ignoreList != "" {
		tables := config.DefaultCompareOptions().IgnoredTables
		for _, name := range strings.Split(ignoreList, ",") {
			if name = strings.TrimSpace(name); name != "" {
				tables = append(tables, name)
			}
		}
		opts = config.WithIgnoredTables(tables...)
	}

	result, err := workflow.New().Compare(sourceRef, targetRef, opts)
	if err != nil {
		return err
	}

	if !result.HasChanges() {
		fmt.Println("-- No schema changes detected")
		return nil
	}

	includeDrops := migrateFlags[includeDropsFlag].GetBool()

	if outputDir := migrateFlags[outputDirFlag].GetString(); outputDir != "" {
		files, err := generator.WriteMigrationFiles(generator.WriteMigrationFilesOptions{
			ComparisonResult:      result,
			MigrationName:         migrateFlags[nameFlag].GetString(),
			OutputDir:             outputDir,
			IncludeDropStatements: includeDrops,
		})
		if err != nil {
			return fmt.Errorf("error writing migration files: %w", err)
		}
		if files == nil {
			fmt.Println("No migration statements generated, nothing written.")
			return nil
		}
		fmt.Printf("Generated migration files:\n")
		fmt.Printf("  UP:   %s\n", files.UpFile)
		fmt.Printf("  DOWN: %s\n", files.DownFile)
		fmt.Printf("  Version: %d\n", files.Version)
		return nil
	}

	gen := generator.GenerateMigrationSQL(generator.GenerateMigrationSQLRequest{
		ComparisonResult:      result,
		Reverse:               migrateFlags[reverseFlag].GetBool(),
		IncludeDropStatements: includeDrops,
	})
	if !gen.Success {
		return fmt.Errorf("error generating migration SQL: %s", gen.Error)
	}

	for _, warning := range gen.Warnings {
		fmt.Printf("-- WARNING: %s\n", warning)
	}
	if len(gen.Warnings) > 0 {
		fmt.Println()
	}
	if gen.SQL == "" {
		fmt.Println("-- No migration statements generated")
		return nil
	}
	fmt.Println(gen.SQL)

	return nil
}
