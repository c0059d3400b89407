package compare

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/go-extras/cobraflags"
	"github.com/spf13/cobra"

	"github.com/kverlan/seshat/config"
	"github.com/kverlan/seshat/dbschema"
	difftypes "github.com/kverlan/seshat/migration/schemadiff/types"
	"github.com/kverlan/seshat/migration/workflow"
)

var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Compare schemas of two databases or snapshots",
	Long: `Compare the schemas of two endpoints and report the differences.

An endpoint is either a database URL or a path to a JSON snapshot file
(anything ending in .json). The source endpoint represents the current
state, the target endpoint the desired state.

Examples:
  seshat compare --source app.db --target sqlite://new.db
  seshat compare --source snapshots/prod.json --target app.db --output json
  seshat compare --source app.db --target new.db --save-target snapshots/new.json`,
	RunE: compareCommand,
}

const (
	sourceFlag       = "source"
	targetFlag       = "target"
	ignoreTablesFlag = "ignore-tables"
	outputFlag       = "output"
	saveSourceFlag   = "save-source"
	saveTargetFlag   = "save-target"
)

var compareFlags = map[string]cobraflags.Flag{
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
	outputFlag: &cobraflags.StringFlag{
		Name:  outputFlag,
		Value: "text",
		Usage: "Report format: text or json",
	},
	saveSourceFlag: &cobraflags.StringFlag{
		Name:  saveSourceFlag,
		Value: "",
		Usage: "Save the source schema as a JSON snapshot to this path",
	},
	saveTargetFlag: &cobraflags.StringFlag{
		Name:  saveTargetFlag,
		Value: "",
		Usage: "Save the target schema as a JSON snapshot to this path",
	},
}

func NewCompareCommand() *cobra.Command {
	cobraflags.RegisterMap(compareCmd, compareFlags)
	return compareCmd
}

func compareCommand(_ *cobra.Command, _ []string) error {
	sourceRef := compareFlags[sourceFlag].GetString()
	targetRef := compareFlags[targetFlag].GetString()
	if sourceRef == "" || targetRef == "" {
		return fmt.Errorf("both --source and --target are required")
	}

	opts := buildCompareOptions(compareFlags[ignoreTablesFlag].GetString())

	wf := workflow.New()
	source, err := wf.ResolveEndpoint(sourceRef)
	if err != nil {
		return fmt.Errorf("failed to resolve source endpoint: %w", err)
	}
	defer source.Close()

	target, err := wf.ResolveEndpoint(targetRef)
	if err != nil {
		return fmt.Errorf("failed to resolve target endpoint: %w", err)
	}
	defer target.Close()

	if path := compareFlags[saveSourceFlag].GetString(); path != "" {
		if err := dbschema.SaveSnapshot(path, source.Schemas); err != nil {
			return err
		}
		fmt.Printf("Saved source snapshot: %s\n", path)
	}
	if path := compareFlags[saveTargetFlag].GetString(); path != "" {
		if err := dbschema.SaveSnapshot(path, target.Schemas); err != nil {
			return err
		}
		fmt.Printf("Saved target snapshot: %s\n", path)
	}

	result, err := wf.CompareEndpoints(source, target, opts)
	if err != nil {
		return err
	}

	switch compareFlags[outputFlag].GetString() {
	case "json":
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode comparison result: %w", err)
		}
		fmt.Println(string(data))
	case "text":
		printTextReport(result)
	default:
		return fmt.Errorf("unsupported output format: %s", compareFlags[outputFlag].GetString())
	}

	return nil
}

func buildCompareOptions(ignoreList string) *config.CompareOptions {
	if ignoreList == "" {
		return nil
	}
	tables := config.DefaultCompareOptions().IgnoredTables
	for _, name := range strings.Split(ignoreList, ",") {
		if name = strings.TrimSpace(name); name != "" {
			tables = append(tables, name)
		}
	}
	return config.WithIgnoredTables(tables...)
}

func printTextReport(result *difftypes.ComparisonResult) {
	fmt.Printf("Schema comparison: %s -> %s\n", result.Source.Name, result.Target.Name)
	fmt.Println(strings.Repeat("=", 60))
	fmt.Println()

	if !result.HasChanges() {
		fmt.Println("Schemas are identical.")
		return
	}

	for _, diff := range result.TableDiffs {
		switch diff.DiffType {
		case difftypes.DiffAdded:
			fmt.Printf("+ %s\n", diff.Key)
		case difftypes.DiffRemoved:
			fmt.Printf("- %s\n", diff.Key)
		case difftypes.DiffModified:
			fmt.Printf("~ %s\n", diff.Key)
			printTableDetails(&diff)
		default:
			continue
		}
	}

	fmt.Println()
	fmt.Printf("Summary: %d added, %d removed, %d modified, %d unchanged\n",
		result.Summary.TablesAdded,
		result.Summary.TablesRemoved,
		result.Summary.TablesModified,
		result.Summary.TablesUnchanged)
	fmt.Printf("Changes: %d columns, %d indexes, %d foreign keys, %d triggers\n",
		result.Summary.TotalColumnChanges,
		result.Summary.TotalIndexChanges,
		result.Summary.TotalForeignKeyChanges,
		result.Summary.TotalTriggerChanges)
}

func printTableDetails(diff *difftypes.TableDiff) {
	for _, cd := range diff.ColumnDiffs {
		name := ""
		switch {
		case cd.Target != nil:
			name = cd.Target.Name
		case cd.Source != nil:
			name = cd.Source.Name
		}
		switch cd.DiffType {
		case difftypes.DiffAdded:
			fmt.Printf("    + column %s\n", name)
		case difftypes.DiffRemoved:
			fmt.Printf("    - column %s\n", name)
		case difftypes.DiffModified:
			fmt.Printf("    ~ column %s (%s)\n", name, changedFields(cd.Changes))
		}
	}
	for _, id := range diff.IndexDiffs {
		name := ""
		switch {
		case id.Target != nil:
			name = id.Target.Name
		case id.Source != nil:
			name = id.Source.Name
		}
		switch id.DiffType {
		case difftypes.DiffAdded:
			fmt.Printf("    + index %s\n", name)
		case difftypes.DiffRemoved:
			fmt.Printf("    - index %s\n", name)
		case difftypes.DiffModified:
			fmt.Printf("    ~ index %s (%s)\n", name, changedFields(id.Changes))
		}
	}
	for _, fd := range diff.ForeignKeyDiffs {
		col := ""
		switch {
		case fd.Target != nil:
			col = fd.Target.Column
		case fd.Source != nil:
			col = fd.Source.Column
		}
		switch fd.DiffType {
		case difftypes.DiffAdded:
			fmt.Printf("    + foreign key on %s\n", col)
		case difftypes.DiffRemoved:
			fmt.Printf("    - foreign key on %s\n", col)
		case difftypes.DiffModified:
			fmt.Printf("    ~ foreign key on %s (%s)\n", col, changedFields(fd.Changes))
		}
	}
	for _, td := range diff.TriggerDiffs {
		name := ""
		switch {
		case td.Target != nil:
			name = td.Target.Name
		case td.Source != nil:
			name = td.Source.Name
		}
		switch td.DiffType {
		case difftypes.DiffAdded:
			fmt.Printf("    + trigger %s\n", name)
		case difftypes.DiffRemoved:
			fmt.Printf("    - trigger %s\n", name)
		case difftypes.DiffModified:
			fmt.Printf("    ~ trigger %s (%s)\n", name, changedFields(td.Changes))
		}
	}
	if diff.PrimaryKeyChanges != nil {
		fmt.Printf("    ~ primary key %v -> %v\n", diff.PrimaryKeyChanges.From, diff.PrimaryKeyChanges.To)
	}
}

func changedFields(changes map[string]difftypes.FieldChange) string {
	fields := make([]string, 0, len(changes))
	for field := range changes {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return strings.Join(fields, ", ")
}
