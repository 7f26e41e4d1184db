// Package mysql introspects a live MySQL server and builds the in-memory
// schema.Database snapshot the planner treats as db_from. This is the
// "source-schema introspection" collaborator named in spec.md §6: it never
// touches planner logic, only turns information_schema rows into schema
// model objects.
package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"github.com/axonops/mygrate/internal/schema"
)

// Config holds the MySQL connection settings used to open the source
// database. Field set and pooling knobs mirror the teacher's
// internal/storage/mysql.Config.
type Config struct {
	Host            string
	Port            int
	Database        string
	User            string
	Password        string
	TLS             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DSN renders the go-sql-driver/mysql data source name.
func (c Config) DSN() string {
	tls := c.TLS
	if tls == "" {
		tls = "preferred"
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?tls=%s&parseTime=true",
		c.User, c.Password, c.Host, c.Port, c.Database, tls)
}

// Loader opens and queries a live MySQL server's information_schema to
// reconstruct a schema.Database.
type Loader struct {
	db     *sql.DB
	config Config
}

// New opens a connection pool against config and verifies it with a ping.
// The caller owns the returned Loader and must call Close.
func New(config Config) (*Loader, error) {
	db, err := sql.Open("mysql", config.DSN())
	if err != nil {
		return nil, fmt.Errorf("open source database: %w", err)
	}

	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)
	db.SetConnMaxLifetime(config.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping source database: %w", err)
	}

	return &Loader{db: db, config: config}, nil
}

// Close releases the underlying connection pool.
func (l *Loader) Close() error { return l.db.Close() }

// Load builds a schema.Database snapshot of the configured database,
// ordering tables by CREATE_TIME (falling back to name) so that insertion
// order approximates the order the tables were actually created in, which
// is what spec.md §3 says determines output order absent an FK constraint.
func (l *Loader) Load(ctx context.Context) (*schema.Database, error) {
	names, err := l.tableNames(ctx)
	if err != nil {
		return nil, err
	}

	db := schema.NewDatabase()
	for _, name := range names {
		t := schema.NewTable(name)
		if err := l.loadColumns(ctx, t); err != nil {
			return nil, fmt.Errorf("load columns for table %q: %w", name, err)
		}
		if err := l.loadIndexes(ctx, t); err != nil {
			return nil, fmt.Errorf("load indexes for table %q: %w", name, err)
		}
		if err := l.loadConstraints(ctx, t); err != nil {
			return nil, fmt.Errorf("load constraints for table %q: %w", name, err)
		}
		if err := db.AddTable(t); err != nil {
			return nil, fmt.Errorf("add table %q: %w", name, err)
		}
	}
	return db, nil
}

func (l *Loader) tableNames(ctx context.Context) ([]string, error) {
	rows, err := l.db.QueryContext(ctx,
		"SELECT TABLE_NAME FROM information_schema.TABLES"+
			" WHERE TABLE_SCHEMA = ? AND TABLE_TYPE = 'BASE TABLE'"+
			" ORDER BY CREATE_TIME ASC, TABLE_NAME ASC",
		l.config.Database)
	if err != nil {
		return nil, fmt.Errorf("query tables: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan table name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (l *Loader) loadColumns(ctx context.Context, t *schema.Table) error {
	rows, err := l.db.QueryContext(ctx,
		"SELECT COLUMN_NAME, DATA_TYPE, COLUMN_TYPE, CHARACTER_MAXIMUM_LENGTH,"+
			" NUMERIC_PRECISION, NUMERIC_SCALE, IS_NULLABLE, COLUMN_DEFAULT, EXTRA,"+
			" CHARACTER_SET_NAME, COLLATION_NAME"+
			" FROM information_schema.COLUMNS"+
			" WHERE TABLE_SCHEMA = ? AND TABLE_NAME = ?"+
			" ORDER BY ORDINAL_POSITION ASC",
		l.config.Database, t.Name())
	if err != nil {
		return fmt.Errorf("query columns: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			name, dataType, columnType, nullable, extra string
			charMaxLen, numPrecision, numScale           sql.NullInt64
			def, charset, collation                      sql.NullString
		)
		if err := rows.Scan(&name, &dataType, &columnType, &charMaxLen, &numPrecision,
			&numScale, &nullable, &def, &extra, &charset, &collation); err != nil {
			return fmt.Errorf("scan column: %w", err)
		}

		col := schema.NewColumn(name, dataType)
		col.Nullable = strings.EqualFold(nullable, "YES")
		col.Unsigned = strings.Contains(strings.ToLower(columnType), "unsigned")
		col.AutoIncrement = strings.Contains(strings.ToLower(extra), "auto_increment")
		if charset.Valid {
			col.CharacterSet = charset.String
		}
		if collation.Valid {
			col.Collation = collation.String
		}
		col.Length = columnLength(charMaxLen, numPrecision, numScale)
		if def.Valid {
			d := def.String
			col.Default = &d
		}

		if err := t.AddColumn(col, schema.ColumnPositionEnd()); err != nil {
			return err
		}
	}
	return rows.Err()
}

// columnLength derives the "(N)" or "(P,S)" length suffix from whichever of
// the three information_schema length columns applies to the column's type.
func columnLength(charMax, precision, scale sql.NullInt64) string {
	if charMax.Valid && charMax.Int64 >= 0 {
		return strconv.FormatInt(charMax.Int64, 10)
	}
	if precision.Valid {
		if scale.Valid && scale.Int64 > 0 {
			return strconv.FormatInt(precision.Int64, 10) + "," + strconv.FormatInt(scale.Int64, 10)
		}
		return strconv.FormatInt(precision.Int64, 10)
	}
	return ""
}

func (l *Loader) loadIndexes(ctx context.Context, t *schema.Table) error {
	rows, err := l.db.QueryContext(ctx,
		"SELECT INDEX_NAME, COLUMN_NAME, NON_UNIQUE, INDEX_TYPE"+
			" FROM information_schema.STATISTICS"+
			" WHERE TABLE_SCHEMA = ? AND TABLE_NAME = ?"+
			" ORDER BY INDEX_NAME ASC, SEQ_IN_INDEX ASC",
		l.config.Database, t.Name())
	if err != nil {
		return fmt.Errorf("query indexes: %w", err)
	}
	defer rows.Close()

	type accum struct {
		columns  []string
		nonUniq  bool
		idxType  string
	}
	order := []string{}
	byName := map[string]*accum{}

	for rows.Next() {
		var name, column, idxType string
		var nonUnique int
		if err := rows.Scan(&name, &column, &nonUnique, &idxType); err != nil {
			return fmt.Errorf("scan index: %w", err)
		}
		a, ok := byName[name]
		if !ok {
			a = &accum{nonUniq: nonUnique != 0, idxType: idxType}
			byName[name] = a
			order = append(order, name)
		}
		a.columns = append(a.columns, column)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, name := range order {
		a := byName[name]
		idx := schema.NewIndex(name, a.columns...)
		switch {
		case name == "PRIMARY":
			idx.Type = schema.IndexPrimary
		case strings.EqualFold(a.idxType, "FULLTEXT"):
			idx.Type = schema.IndexFulltext
		case !a.nonUniq:
			idx.Type = schema.IndexUnique
		default:
			idx.Type = schema.IndexRegular
		}
		if err := t.AddIndex(idx); err != nil {
			return err
		}
	}
	return nil
}

func (l *Loader) loadConstraints(ctx context.Context, t *schema.Table) error {
	rows, err := l.db.QueryContext(ctx,
		"SELECT k.CONSTRAINT_NAME, k.COLUMN_NAME, k.REFERENCED_TABLE_NAME,"+
			" k.REFERENCED_COLUMN_NAME, r.UPDATE_RULE, r.DELETE_RULE"+
			" FROM information_schema.KEY_COLUMN_USAGE k"+
			" JOIN information_schema.REFERENTIAL_CONSTRAINTS r"+
			"   ON r.CONSTRAINT_SCHEMA = k.CONSTRAINT_SCHEMA"+
			"   AND r.CONSTRAINT_NAME = k.CONSTRAINT_NAME"+
			" WHERE k.TABLE_SCHEMA = ? AND k.TABLE_NAME = ?"+
			"   AND k.REFERENCED_TABLE_NAME IS NOT NULL"+
			" ORDER BY k.CONSTRAINT_NAME ASC, k.ORDINAL_POSITION ASC",
		l.config.Database, t.Name())
	if err != nil {
		return fmt.Errorf("query constraints: %w", err)
	}
	defer rows.Close()

	type accum struct {
		local, foreign       []string
		foreignTable         string
		onUpdate, onDelete   string
	}
	order := []string{}
	byName := map[string]*accum{}

	for rows.Next() {
		var name, column, foreignTable, foreignColumn, updateRule, deleteRule string
		if err := rows.Scan(&name, &column, &foreignTable, &foreignColumn, &updateRule, &deleteRule); err != nil {
			return fmt.Errorf("scan constraint: %w", err)
		}
		a, ok := byName[name]
		if !ok {
			a = &accum{foreignTable: foreignTable, onUpdate: updateRule, onDelete: deleteRule}
			byName[name] = a
			order = append(order, name)
		}
		a.local = append(a.local, column)
		a.foreign = append(a.foreign, foreignColumn)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, name := range order {
		a := byName[name]
		c := schema.NewConstraint(name, a.foreignTable, a.local, a.foreign)
		c.OnUpdate = referentialAction(a.onUpdate)
		c.OnDelete = referentialAction(a.onDelete)
		if err := t.AddConstraint(c); err != nil {
			return err
		}
	}
	return nil
}

func referentialAction(rule string) schema.ReferentialAction {
	switch strings.ToUpper(strings.TrimSpace(rule)) {
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
