// Package planner computes an ordered list of DDL operations that
// transforms a source MySQL schema into a target schema, keeping every
// intermediate state free of foreign-key violations (MySQL error 1215).
package planner

import (
	"fmt"
	"strings"

	"github.com/axonops/mygrate/internal/schema"
)

// Operation is a top-level DDL step: CreateTable, DropTable, or AlterTable.
// It knows how to render itself back to SQL and how to apply itself to a
// tracking Database, keeping the tracking schema in sync with what has
// actually been emitted.
type Operation interface {
	fmt.Stringer
	Apply(db *schema.Database) error
}

// subOperation is one column/key/constraint change inside an AlterTable.
type subOperation interface {
	fmt.Stringer
	apply(t *schema.Table) error
}

// Kind returns a short, stable label identifying op's type — "create_table",
// "drop_table", or "alter_table" — for use as a Prometheus label value by
// internal/metrics.
func Kind(op Operation) string {
	switch op.(type) {
	case *CreateTable:
		return "create_table"
	case *DropTable:
		return "drop_table"
	case *AlterTable:
		return "alter_table"
	default:
		return "unknown"
	}
}

// CreateTable emits CREATE TABLE for a complete table definition.
type CreateTable struct {
	Table *schema.Table
}

func (op *CreateTable) String() string { return op.Table.CreateStatement() }

func (op *CreateTable) Apply(db *schema.Database) error {
	return db.AddTable(op.Table.Clone())
}

// DropTable emits DROP TABLE.
type DropTable struct {
	Name string
}

func (op *DropTable) String() string { return fmt.Sprintf("DROP TABLE `%s`;", op.Name) }

func (op *DropTable) Apply(db *schema.Database) error {
	return db.RemoveTable(op.Name)
}

// AlterTable groups zero or more sub-operations against one table. An empty
// AlterTable is falsy (IsEmpty reports true) and the planner never emits
// one.
type AlterTable struct {
	TableName string
	ops       []subOperation
}

// NewAlterTable returns an empty AlterTable for the named table.
func NewAlterTable(tableName string) *AlterTable {
	return &AlterTable{TableName: tableName}
}

// Add appends a sub-operation.
func (op *AlterTable) Add(sub subOperation) { op.ops = append(op.ops, sub) }

// Extend appends another AlterTable's sub-operations, in order.
func (op *AlterTable) Extend(other *AlterTable) {
	if other == nil {
		return
	}
	op.ops = append(op.ops, other.ops...)
}

// IsEmpty reports whether the AlterTable carries no sub-operations.
func (op *AlterTable) IsEmpty() bool { return len(op.ops) == 0 }

func (op *AlterTable) String() string {
	parts := make([]string, len(op.ops))
	for i, sub := range op.ops {
		parts[i] = sub.String()
	}
	return fmt.Sprintf("ALTER TABLE `%s` %s", op.TableName, strings.Join(parts, ", "))
}

func (op *AlterTable) Apply(db *schema.Database) error {
	t, ok := db.Table(op.TableName)
	if !ok {
		return fmt.Errorf("alter table %q: %w", op.TableName, schema.ErrNotFound)
	}
	for _, sub := range op.ops {
		if err := sub.apply(t); err != nil {
			return fmt.Errorf("alter table %q: %w", op.TableName, err)
		}
	}
	return nil
}

// --- column sub-operations ---

// AddColumn adds a new column, placed per Position.
type AddColumn struct {
	Column   *schema.Column
	Position schema.ColumnPosition
}

func (s *AddColumn) String() string {
	suffix := ""
	switch {
	case s.Position.IsFirst():
		suffix = " FIRST"
	default:
		if after, ok := s.Position.AfterName(); ok {
			suffix = fmt.Sprintf(" AFTER `%s`", after)
		}
	}
	return fmt.Sprintf("ADD %s%s", s.Column.String(), suffix)
}

func (s *AddColumn) apply(t *schema.Table) error { return t.AddColumn(s.Column, s.Position) }

// ChangeColumn replaces an existing column's definition (name unchanged;
// renames are modeled as drop+add per spec.md §9).
type ChangeColumn struct {
	Column *schema.Column
}

func (s *ChangeColumn) String() string {
	return fmt.Sprintf("CHANGE `%s` %s", s.Column.Name, s.Column.String())
}

func (s *ChangeColumn) apply(t *schema.Table) error { return t.ChangeColumn(s.Column) }

// DropColumn removes a column.
type DropColumn struct {
	Column *schema.Column
}

func (s *DropColumn) String() string { return fmt.Sprintf("DROP `%s`", s.Column.Name) }

func (s *DropColumn) apply(t *schema.Table) error { return t.RemoveColumn(s.Column.Name) }

// --- key sub-operations ---

// AddKey adds a new index.
type AddKey struct {
	Index *schema.Index
}

func (s *AddKey) String() string { return "ADD " + s.Index.String() }

func (s *AddKey) apply(t *schema.Table) error { return t.AddIndex(s.Index) }

// DropKey removes an index.
type DropKey struct {
	Index *schema.Index
}

func (s *DropKey) String() string {
	if s.Index.Type == schema.IndexPrimary {
		return "DROP PRIMARY KEY"
	}
	return fmt.Sprintf("DROP KEY `%s`", s.Index.Name)
}

func (s *DropKey) apply(t *schema.Table) error { return t.RemoveIndex(s.Index.Name) }

// ChangeKey replaces an existing index's definition.
type ChangeKey struct {
	Index *schema.Index
}

func (s *ChangeKey) String() string {
	return fmt.Sprintf("DROP KEY `%s`, ADD %s", s.Index.Name, s.Index.String())
}

func (s *ChangeKey) apply(t *schema.Table) error { return t.ChangeIndex(s.Index) }

// --- constraint sub-operations ---

// AddConstraint adds a new foreign key.
type AddConstraint struct {
	Constraint *schema.Constraint
}

func (s *AddConstraint) String() string { return "ADD " + s.Constraint.String() }

func (s *AddConstraint) apply(t *schema.Table) error { return t.AddConstraint(s.Constraint) }

// ChangeConstraint replaces an existing foreign key's definition. Since
// MySQL has no ALTER on a constraint in place, this renders as a drop
// followed by an add.
type ChangeConstraint struct {
	Constraint *schema.Constraint
}

func (s *ChangeConstraint) String() string {
	return fmt.Sprintf("DROP FOREIGN KEY `%s`, ADD %s", s.Constraint.Name, s.Constraint.String())
}

func (s *ChangeConstraint) apply(t *schema.Table) error { return t.ChangeConstraint(s.Constraint) }

// DropConstraint removes a foreign key.
type DropConstraint struct {
	Constraint *schema.Constraint
}

func (s *DropConstraint) String() string {
	return fmt.Sprintf("DROP FOREIGN KEY `%s`", s.Constraint.Name)
}

func (s *DropConstraint) apply(t *schema.Table) error { return t.RemoveConstraint(s.Constraint.Name) }
