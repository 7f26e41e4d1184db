package schema

import (
	"fmt"
	"strings"
)

// IndexType enumerates the kinds of index the schema model supports. The
// planner adds, drops and changes every index type the same way; PRIMARY
// differs only in rendering (no index name, and DropKey renders it as
// DROP PRIMARY KEY).
type IndexType string

const (
	IndexPrimary  IndexType = "primary"
	IndexUnique   IndexType = "unique"
	IndexRegular  IndexType = "regular"
	IndexFulltext IndexType = "fulltext"
)

// Index describes a key (index) on a table. Columns is ordered: leftmost
// position matters for both MySQL's prefix-matching semantics and for
// Table.ColumnIsIndexed.
type Index struct {
	Name    string
	Columns []string
	Type    IndexType
}

// NewIndex returns a regular (non-unique, non-primary) index.
func NewIndex(name string, columns ...string) *Index {
	return &Index{Name: name, Columns: columns, Type: IndexRegular}
}

// Clone returns a deep copy of the index.
func (idx *Index) Clone() *Index {
	cp := *idx
	cp.Columns = append([]string(nil), idx.Columns...)
	return &cp
}

// coversPrefix reports whether this index's leftmost columns are exactly
// cols, in order — the rule Database.UnfulfilledFKs uses to decide whether
// a foreign key's referenced columns are "usable" per MySQL's leftmost
// prefix matching.
func (idx *Index) coversPrefix(cols []string) bool {
	if len(idx.Columns) < len(cols) {
		return false
	}
	for i, c := range cols {
		if !strings.EqualFold(idx.Columns[i], c) {
			return false
		}
	}
	return true
}

func (idx *Index) keywords() string {
	switch idx.Type {
	case IndexPrimary:
		return "PRIMARY KEY"
	case IndexUnique:
		return "UNIQUE KEY"
	case IndexFulltext:
		return "FULLTEXT KEY"
	default:
		return "KEY"
	}
}

// String renders the index the way it appears inside a CREATE TABLE's
// column/key list, or as the operand of ADD KEY / DROP KEY.
func (idx *Index) String() string {
	cols := make([]string, len(idx.Columns))
	for i, c := range idx.Columns {
		cols[i] = fmt.Sprintf("`%s`", c)
	}
	if idx.Type == IndexPrimary {
		return fmt.Sprintf("%s (%s)", idx.keywords(), strings.Join(cols, ","))
	}
	return fmt.Sprintf("%s `%s` (%s)", idx.keywords(), idx.Name, strings.Join(cols, ","))
}
