package schema

import (
	"fmt"
	"strings"
)

// Column describes a single column definition. Two columns are considered
// unchanged by the differ iff their String() renderings are byte-identical;
// renaming is not supported — a column whose name changed is modeled as a
// DropColumn of the old name plus an AddColumn of the new one.
type Column struct {
	Name          string
	Type          string // base MySQL type, e.g. "int", "varchar", "text"
	Length        string // optional: "255", "10,2", or "" when not applicable
	Unsigned      bool
	Nullable      bool
	Default       *string // nil means no DEFAULT clause; non-nil "NULL" means DEFAULT NULL
	AutoIncrement bool
	CharacterSet  string
	Collation     string
}

// NewColumn returns a Column with the given name and type and MySQL-typical
// defaults (nullable, no default, not unsigned).
func NewColumn(name, mysqlType string) *Column {
	return &Column{Name: name, Type: mysqlType, Nullable: true}
}

// Clone returns a deep copy of the column.
func (c *Column) Clone() *Column {
	cp := *c
	if c.Default != nil {
		d := *c.Default
		cp.Default = &d
	}
	return &cp
}

// Definition renders the column's type+modifiers, the part of a column
// definition that appears after the column name in DDL (and the substring
// two columns compare equal on, since names are compared separately by the
// differ's key matching).
func (c *Column) Definition() string {
	var b strings.Builder
	b.WriteString(strings.ToUpper(c.Type))
	if c.Length != "" {
		fmt.Fprintf(&b, "(%s)", c.Length)
	}
	if c.Unsigned {
		b.WriteString(" UNSIGNED")
	}
	if c.CharacterSet != "" {
		fmt.Fprintf(&b, " CHARACTER SET %s", c.CharacterSet)
	}
	if c.Collation != "" {
		fmt.Fprintf(&b, " COLLATE %s", c.Collation)
	}
	if c.Nullable {
		b.WriteString(" NULL")
	} else {
		b.WriteString(" NOT NULL")
	}
	if c.Default != nil {
		if strings.EqualFold(*c.Default, "NULL") || isNumericDefault(*c.Default) {
			fmt.Fprintf(&b, " DEFAULT %s", *c.Default)
		} else {
			fmt.Fprintf(&b, " DEFAULT '%s'", *c.Default)
		}
	}
	if c.AutoIncrement {
		b.WriteString(" AUTO_INCREMENT")
	}
	return b.String()
}

func isNumericDefault(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if r == '-' && i == 0 {
			continue
		}
		if (r < '0' || r > '9') && r != '.' {
			return false
		}
	}
	return true
}

// String renders the full canonical column definition, including name. This
// is the byte-comparison form the differ uses to detect changed columns.
func (c *Column) String() string {
	return fmt.Sprintf("`%s` %s", c.Name, c.Definition())
}

// compatibleFKType reports whether c is a valid foreign-key partner for
// other: same base type, same signedness, and (for fixed-width types) the
// same length. This mirrors MySQL's own requirement for FK column pairs and
// backs the type-check step of Database.UnfulfilledFKs.
func (c *Column) compatibleFKType(other *Column) bool {
	if !strings.EqualFold(c.Type, other.Type) {
		return false
	}
	if c.Unsigned != other.Unsigned {
		return false
	}
	if fixedWidthType(c.Type) && c.Length != other.Length {
		return false
	}
	return true
}

func fixedWidthType(t string) bool {
	switch strings.ToLower(t) {
	case "char", "binary", "int", "bigint", "smallint", "tinyint", "mediumint", "decimal", "numeric":
		return true
	default:
		return false
	}
}
