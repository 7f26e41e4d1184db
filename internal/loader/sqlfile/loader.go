// Package sqlfile reads a directory of `.sql` files, each containing one
// CREATE TABLE statement, into a schema.Database. This is the "MySQL DDL
// parser" spec.md §1 and §6 place out of the planner's core scope: it is an
// external collaborator with a narrow interface contract
// (Load(dir) (*schema.Database, error)), deliberately covering only the
// column/index/FK grammar the planner's own test fixtures use rather than a
// general SQL grammar.
package sqlfile

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/axonops/mygrate/internal/schema"
)

var (
	createTableRe = regexp.MustCompile(`(?is)CREATE\s+TABLE\s+` + "`" + `?(\w+)` + "`" + `?\s*\((.*)\)\s*([^;]*);?\s*$`)
	columnRe      = regexp.MustCompile(`(?i)^` + "`" + `?(\w+)` + "`" + `?\s+(\w+)(?:\(([^)]*)\))?\s*(.*)$`)
	primaryKeyRe  = regexp.MustCompile(`(?i)^PRIMARY\s+KEY\s*\(([^)]*)\)$`)
	uniqueKeyRe   = regexp.MustCompile("(?i)^UNIQUE\\s+KEY\\s+`?(\\w+)`?\\s*\\(([^)]*)\\)$")
	fulltextKeyRe = regexp.MustCompile("(?i)^FULLTEXT\\s+KEY\\s+`?(\\w+)`?\\s*\\(([^)]*)\\)$")
	plainKeyRe    = regexp.MustCompile("(?i)^KEY\\s+`?(\\w+)`?\\s*\\(([^)]*)\\)$")
	constraintRe  = regexp.MustCompile("(?is)^CONSTRAINT\\s+`?(\\w+)`?\\s+FOREIGN\\s+KEY\\s*\\(([^)]*)\\)\\s+REFERENCES\\s+`?(\\w+)`?\\s*\\(([^)]*)\\)(.*)$")
	onDeleteRe    = regexp.MustCompile(`(?i)ON\s+DELETE\s+(CASCADE|SET\s+NULL|NO\s+ACTION|RESTRICT)`)
	onUpdateRe    = regexp.MustCompile(`(?i)ON\s+UPDATE\s+(CASCADE|SET\s+NULL|NO\s+ACTION|RESTRICT)`)
)

// Load reads every `.sql` file directly under dir (one CREATE TABLE per
// file) into a schema.Database, in filename order. A file that fails to
// parse is recorded as a table with a non-empty Errors list rather than
// aborting the whole load, mirroring how a parser error on one table
// surfaces per spec.md §6 without blocking the rest of the schema.
func Load(dir string) (*schema.Database, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read schema directory %q: %w", dir, err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(strings.ToLower(e.Name()), ".sql") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	db := schema.NewDatabase()
	for _, name := range names {
		path := filepath.Join(dir, name)
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read schema file %q: %w", path, err)
		}
		t, err := parseCreateTable(string(raw))
		if err != nil {
			base := strings.TrimSuffix(name, filepath.Ext(name))
			t = schema.NewTable(base)
			t.Errors = append(t.Errors, fmt.Sprintf("%s: %s", path, err))
		}
		if err := db.AddTable(t); err != nil {
			return nil, fmt.Errorf("add table from %q: %w", path, err)
		}
	}
	return db, nil
}

// parseCreateTable parses a single CREATE TABLE statement.
func parseCreateTable(stmt string) (*schema.Table, error) {
	m := createTableRe.FindStringSubmatch(strings.TrimSpace(stmt))
	if m == nil {
		return nil, fmt.Errorf("does not look like a CREATE TABLE statement")
	}
	name, body, options := m[1], m[2], strings.TrimSpace(m[3])

	t := schema.NewTable(name)
	if options != "" {
		t.SetOptions(strings.Fields(options))
	}

	for _, entry := range splitTopLevel(body) {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if err := parseEntry(t, entry); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// splitTopLevel splits a CREATE TABLE body on commas that are not nested
// inside parentheses (column type lengths, key column lists).
func splitTopLevel(body string) []string {
	var parts []string
	depth := 0
	start := 0
	for i, r := range body {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
		case ',':
			if depth == 0 {
				parts = append(parts, body[start:i])
				start = i + 1
			}
		}
	}
	parts = append(parts, body[start:])
	return parts
}

func parseEntry(t *schema.Table, entry string) error {
	switch {
	case primaryKeyRe.MatchString(entry):
		m := primaryKeyRe.FindStringSubmatch(entry)
		idx := schema.NewIndex("PRIMARY", splitColumnList(m[1])...)
		idx.Type = schema.IndexPrimary
		return t.AddIndex(idx)

	case uniqueKeyRe.MatchString(entry):
		m := uniqueKeyRe.FindStringSubmatch(entry)
		idx := schema.NewIndex(m[1], splitColumnList(m[2])...)
		idx.Type = schema.IndexUnique
		return t.AddIndex(idx)

	case fulltextKeyRe.MatchString(entry):
		m := fulltextKeyRe.FindStringSubmatch(entry)
		idx := schema.NewIndex(m[1], splitColumnList(m[2])...)
		idx.Type = schema.IndexFulltext
		return t.AddIndex(idx)

	case constraintRe.MatchString(entry):
		m := constraintRe.FindStringSubmatch(entry)
		c := schema.NewConstraint(m[1], m[3], splitColumnList(m[2]), splitColumnList(m[4]))
		rest := m[5]
		if am := onDeleteRe.FindStringSubmatch(rest); am != nil {
			c.OnDelete = referentialAction(am[1])
		}
		if am := onUpdateRe.FindStringSubmatch(rest); am != nil {
			c.OnUpdate = referentialAction(am[1])
		}
		return t.AddConstraint(c)

	case plainKeyRe.MatchString(entry):
		m := plainKeyRe.FindStringSubmatch(entry)
		idx := schema.NewIndex(m[1], splitColumnList(m[2])...)
		idx.Type = schema.IndexRegular
		return t.AddIndex(idx)

	default:
		return parseColumn(t, entry)
	}
}

func parseColumn(t *schema.Table, entry string) error {
	m := columnRe.FindStringSubmatch(entry)
	if m == nil {
		return fmt.Errorf("unrecognized column or key definition: %q", entry)
	}
	name, mysqlType, length, rest := m[1], strings.ToLower(m[2]), m[3], m[4]
	upperRest := strings.ToUpper(rest)

	col := schema.NewColumn(name, mysqlType)
	col.Length = strings.ReplaceAll(length, " ", "")
	col.Unsigned = strings.Contains(upperRest, "UNSIGNED")
	col.Nullable = !strings.Contains(upperRest, "NOT NULL")
	col.AutoIncrement = strings.Contains(upperRest, "AUTO_INCREMENT")

	if d, ok := extractDefault(rest); ok {
		col.Default = &d
	}

	return t.AddColumn(col, schema.ColumnPositionEnd())
}

var defaultRe = regexp.MustCompile(`(?i)DEFAULT\s+('([^']*)'|\S+)`)

func extractDefault(rest string) (string, bool) {
	m := defaultRe.FindStringSubmatch(rest)
	if m == nil {
		return "", false
	}
	if m[2] != "" || strings.HasPrefix(m[1], "'") {
		return m[2], true
	}
	return m[1], true
}

func splitColumnList(s string) []string {
	raw := strings.Split(s, ",")
	out := make([]string, 0, len(raw))
	for _, c := range raw {
		c = strings.TrimSpace(c)
		c = strings.Trim(c, "`")
		if c != "" {
			out = append(out, c)
		}
	}
	return out
}

func referentialAction(s string) schema.ReferentialAction {
	switch strings.ToUpper(strings.Join(strings.Fields(s), " ")) {
	case "CASCADE":
		return schema.ActionCascade
	case "SET NULL":
		return schema.ActionSetNull
	case "NO ACTION":
		return schema.ActionNoAction
	default:
		return schema.ActionRestrict
	}
}
