package schema

import "fmt"

// Database is an ordered mapping of table name to Table. Insertion order is
// preserved because it influences output order when no FK constraint
// dictates otherwise (spec.md §3).
type Database struct {
	tables *orderedMap[*Table]
}

// NewDatabase returns an empty database.
func NewDatabase() *Database {
	return &Database{tables: newOrderedMap[*Table]()}
}

// Tables returns tables in insertion order.
func (d *Database) Tables() []*Table {
	keys := d.tables.orderedKeys()
	out := make([]*Table, len(keys))
	for i, k := range keys {
		out[i], _ = d.tables.get(k)
	}
	return out
}

func (d *Database) TableNames() []string { return d.tables.orderedKeys() }

func (d *Database) Table(name string) (*Table, bool) { return d.tables.get(name) }

func (d *Database) HasTable(name string) bool { return d.tables.has(name) }

// AddTable inserts a new table at the end. Fails with ErrAlreadyExists if a
// table of that name is already present.
func (d *Database) AddTable(t *Table) error {
	if d.tables.has(t.name) {
		return alreadyExistsf("table %q", t.name)
	}
	d.tables.set(t.name, t)
	return nil
}

// RemoveTable deletes a table. Fails with ErrNotFound if absent.
func (d *Database) RemoveTable(name string) error {
	if !d.tables.has(name) {
		return notFoundf("table %q", name)
	}
	d.tables.delete(name)
	return nil
}

// DiffTableNames splits d's and target's table names into added (in
// target's order), removed (in d's order), and overlap (in d's order)
// sets — the same three-way split planner.DiffTablesSplit uses at the column/index/
// constraint level, applied to the set of tables.
func (d *Database) DiffTableNames(target *Database) (added, removed, overlap []string) {
	return diffKeys(d.tables, target.tables)
}

// Clone returns a deep copy of the database, independent of d. This is what
// the planner uses to build its tracking schema from db_from.
func (d *Database) Clone() *Database {
	cp := NewDatabase()
	cp.tables = d.tables.clone(func(t *Table) *Table { return t.Clone() })
	return cp
}

// UnfulfilledFK describes one foreign key that cannot currently be
// satisfied, and why.
type UnfulfilledFK struct {
	Error      string
	Constraint *Constraint
}

// UnfulfilledFKs returns, for each foreign key on table that cannot be
// satisfied against d's current state, a description of the problem. A FK
// is unfulfilled if: the foreign table doesn't exist; a referenced column
// doesn't exist; the referenced columns aren't covered by a usable
// leftmost-prefix index; or a local/foreign column pair has incompatible
// MySQL types. The returned map is keyed by constraint name.
func (d *Database) UnfulfilledFKs(table *Table) map[string]UnfulfilledFK {
	out := make(map[string]UnfulfilledFK)
	for _, c := range table.Constraints() {
		if msg, bad := d.unfulfilledReason(table, c); bad {
			out[c.Name] = UnfulfilledFK{Error: msg, Constraint: c}
		}
	}
	return out
}

func (d *Database) unfulfilledReason(table *Table, c *Constraint) (string, bool) {
	foreign, ok := d.Table(c.ForeignTable)
	if !ok {
		return fmt.Sprintf(
			"Cannot add foreign key constraint `%s`: table `%s` references unknown table `%s`",
			c.Name, table.Name(), c.ForeignTable,
		), true
	}

	for i, fcol := range c.ForeignColumns {
		col, ok := foreign.Column(fcol)
		if !ok {
			return fmt.Sprintf(
				"Cannot add foreign key constraint `%s`: column `%s` does not exist on table `%s`",
				c.Name, fcol, c.ForeignTable,
			), true
		}

		if i < len(c.LocalColumns) {
			localCol, ok := table.Column(c.LocalColumns[i])
			if ok && !localCol.compatibleFKType(col) {
				return fmt.Sprintf(
					"Cannot add foreign key constraint `%s`: incompatible column types between `%s`.`%s` and `%s`.`%s`",
					c.Name, table.Name(), c.LocalColumns[i], c.ForeignTable, fcol,
				), true
			}
		}
	}

	if !foreignKeyIndexed(foreign, c.ForeignColumns) {
		return fmt.Sprintf(
			"Cannot add foreign key constraint `%s`: missing index on `%s` (%s)",
			c.Name, c.ForeignTable, quoteCols(c.ForeignColumns),
		), true
	}

	return "", false
}

// foreignKeyIndexed reports whether some index on table covers cols as an
// exact leftmost prefix, in order.
func foreignKeyIndexed(table *Table, cols []string) bool {
	for _, idx := range table.Indexes() {
		if idx.coversPrefix(cols) {
			return true
		}
	}
	return false
}
