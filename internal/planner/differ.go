package planner

import "github.com/axonops/mygrate/internal/schema"

// SplitDiff is the partitioned form of a table diff: FK drops, the
// column/key "kitchen sink", and FK adds/changes kept apart so the planner
// can defer FK work independently of everything else (spec.md §4.3).
type SplitDiff struct {
	RemovedFKs  *AlterTable
	KitchenSink *AlterTable
	FKs         *AlterTable
}

// DiffTablesSplit compares source to target and returns the three-way
// split AlterTable bundle. Empty groups are nil.
func DiffTablesSplit(source, target *schema.Table) SplitDiff {
	kitchenSink := NewAlterTable(source.Name())
	fks := NewAlterTable(source.Name())
	removedFKs := NewAlterTable(source.Name())

	addedCols, removedCols, overlapCols := source.DiffColumns(target)
	for _, name := range addedCols {
		col, _ := target.Column(name)
		pos, err := target.ColumnBefore(name)
		if err != nil {
			pos = schema.ColumnPositionEnd()
		}
		kitchenSink.Add(&AddColumn{Column: col, Position: pos})
	}
	for _, name := range overlapCols {
		before, _ := source.Column(name)
		after, _ := target.Column(name)
		if before.String() == after.String() {
			continue
		}
		kitchenSink.Add(&ChangeColumn{Column: after})
	}
	for _, name := range removedCols {
		col, _ := source.Column(name)
		kitchenSink.Add(&DropColumn{Column: col})
	}

	addedKeys, removedKeys, overlapKeys := source.DiffIndexes(target)
	for _, name := range addedKeys {
		idx, _ := target.Index(name)
		kitchenSink.Add(&AddKey{Index: idx})
	}
	for _, name := range removedKeys {
		idx, _ := source.Index(name)
		kitchenSink.Add(&DropKey{Index: idx})
	}
	for _, name := range overlapKeys {
		before, _ := source.Index(name)
		after, _ := target.Index(name)
		if before.String() == after.String() {
			continue
		}
		kitchenSink.Add(&ChangeKey{Index: after})
	}

	addedConstraints, removedConstraints, overlapConstraints := source.DiffConstraints(target)
	for _, name := range removedConstraints {
		c, _ := source.Constraint(name)
		removedFKs.Add(&DropConstraint{Constraint: c})
	}
	for _, name := range addedConstraints {
		c, _ := target.Constraint(name)
		fks.Add(&AddConstraint{Constraint: c})
	}
	for _, name := range overlapConstraints {
		before, _ := source.Constraint(name)
		after, _ := target.Constraint(name)
		if before.String() == after.String() {
			continue
		}
		fks.Add(&ChangeConstraint{Constraint: after})
	}

	diff := SplitDiff{}
	if !removedFKs.IsEmpty() {
		diff.RemovedFKs = removedFKs
	}
	if !kitchenSink.IsEmpty() {
		diff.KitchenSink = kitchenSink
	}
	if !fks.IsEmpty() {
		diff.FKs = fks
	}
	return diff
}

// DiffTables compares source to target and returns a single flattened
// AlterTable (sub-operations in the order kitchen_sink, fks, removed_fks —
// which is exactly the nine-step order spec.md §4.2 pins), or nil if
// nothing changed.
func DiffTables(source, target *schema.Table) *AlterTable {
	split := DiffTablesSplit(source, target)
	combined := NewAlterTable(source.Name())
	combined.Extend(split.KitchenSink)
	combined.Extend(split.FKs)
	combined.Extend(split.RemovedFKs)
	if combined.IsEmpty() {
		return nil
	}
	return combined
}
