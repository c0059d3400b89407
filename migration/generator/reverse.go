package generator

import (
	difftypes "github.com/kverlan/seshat/migration/schemadiff/types"
)

// ReverseComparisonResult mirrors a comparison result so that generating
// migration SQL from it undoes the forward migration: source and target are
// swapped at every level, added and removed flip, and every recorded change
// swaps its from/to values. Modified and unchanged classifications are
// preserved.
//
// The transform is pure and structure-preserving; applying it twice yields
// a result equivalent to the original.
func ReverseComparisonResult(result *difftypes.ComparisonResult) *difftypes.ComparisonResult {
	reversed := &difftypes.ComparisonResult{
		Source:     result.Target,
		Target:     result.Source,
		ComparedAt: result.ComparedAt,
		TableDiffs: make([]difftypes.TableDiff, len(result.TableDiffs)),
	}
	for i, d := range result.TableDiffs {
		reversed.TableDiffs[i] = reverseTableDiff(d)
	}
	reversed.Summary = reverseSummary(result.Summary)
	return reversed
}

func reverseTableDiff(d difftypes.TableDiff) difftypes.TableDiff {
	out := difftypes.TableDiff{
		Key:      d.Key,
		DiffType: flip(d.DiffType),
		Source:   d.Target,
		Target:   d.Source,
	}
	if d.PrimaryKeyChanges != nil {
		out.PrimaryKeyChanges = &difftypes.PrimaryKeyChange{
			From: d.PrimaryKeyChanges.To,
			To:   d.PrimaryKeyChanges.From,
		}
	}
	for _, c := range d.ColumnDiffs {
		out.ColumnDiffs = append(out.ColumnDiffs, difftypes.ColumnDiff{
			DiffType: flip(c.DiffType), Source: c.Target, Target: c.Source, Changes: swapChanges(c.Changes),
		})
	}
	for _, i := range d.IndexDiffs {
		out.IndexDiffs = append(out.IndexDiffs, difftypes.IndexDiff{
			DiffType: flip(i.DiffType), Source: i.Target, Target: i.Source, Changes: swapChanges(i.Changes),
		})
	}
	for _, fk := range d.ForeignKeyDiffs {
		out.ForeignKeyDiffs = append(out.ForeignKeyDiffs, difftypes.ForeignKeyDiff{
			DiffType: flip(fk.DiffType), Source: fk.Target, Target: fk.Source, Changes: swapChanges(fk.Changes),
		})
	}
	for _, t := range d.TriggerDiffs {
		out.TriggerDiffs = append(out.TriggerDiffs, difftypes.TriggerDiff{
			DiffType: flip(t.DiffType), Source: t.Target, Target: t.Source, Changes: swapChanges(t.Changes),
		})
	}
	return out
}

// flip exchanges added and removed; modified and unchanged are their own
// mirror images.
func flip(dt difftypes.DiffType) difftypes.DiffType {
	switch dt {
	case difftypes.DiffAdded:
		return difftypes.DiffRemoved
	case difftypes.DiffRemoved:
		return difftypes.DiffAdded
	default:
		return dt
	}
}

func swapChanges(changes map[string]difftypes.FieldChange) map[string]difftypes.FieldChange {
	if changes == nil {
		return nil
	}
	swapped := make(map[string]difftypes.FieldChange, len(changes))
	for field, change := range changes {
		swapped[field] = difftypes.FieldChange{From: change.To, To: change.From}
	}
	return swapped
}

func reverseSummary(s difftypes.Summary) difftypes.Summary {
	s.TablesAdded, s.TablesRemoved = s.TablesRemoved, s.TablesAdded
	return s
}
