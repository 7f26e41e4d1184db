// Command mygrate is the CLI front end for the migration planner: it loads
// a source and target MySQL schema (from a live server or a directory of
// `.sql` files) and prints the ordered DDL operations that migrate one into
// the other.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/axonops/mygrate/internal/api"
	"github.com/axonops/mygrate/internal/config"
	loadmysql "github.com/axonops/mygrate/internal/loader/mysql"
	"github.com/axonops/mygrate/internal/loader/sqlfile"
	"github.com/axonops/mygrate/internal/planner"
	"github.com/axonops/mygrate/internal/schema"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

var (
	outputFormat string
	logger       *slog.Logger
)

func main() {
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	rootCmd := &cobra.Command{
		Use:     "mygrate",
		Short:   "Plan ordered MySQL schema migrations",
		Long:    "mygrate compares two declarative MySQL schemas and emits an ordered list of DDL operations that transform one into the other.",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
	}
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "table", "Output format: table, json, sql")

	rootCmd.AddCommand(newPlanCmd(), newValidateCmd(), newWatchCmd(), newServeCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newPlanCmd() *cobra.Command {
	var from, to string
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Compute and print the migration plan from --from to --to",
		RunE: func(cmd *cobra.Command, args []string) error {
			if to == "" {
				return fmt.Errorf("--to is required")
			}
			toDB, err := sqlfile.Load(to)
			if err != nil {
				return fmt.Errorf("load target schema: %w", err)
			}

			var fromDB *schema.Database
			if from != "" {
				fromDB, err = loadSource(from)
				if err != nil {
					return err
				}
			}

			result := planner.New(logger).Plan(fromDB, toDB)
			return printResult(result)
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "Source schema: a directory of .sql files, or a MySQL DSN (user:pass@tcp(host:port)/db)")
	cmd.Flags().StringVar(&to, "to", "", "Target schema directory of .sql files (required)")
	return cmd
}

func newValidateCmd() *cobra.Command {
	var to string
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check that --to is internally consistent (every FK satisfiable) before migrating anything",
		RunE: func(cmd *cobra.Command, args []string) error {
			if to == "" {
				return fmt.Errorf("--to is required")
			}
			toDB, err := sqlfile.Load(to)
			if err != nil {
				return fmt.Errorf("load target schema: %w", err)
			}
			result := planner.New(logger).Plan(nil, toDB)
			if len(result.Errors1215) > 0 {
				for _, e := range result.Errors1215 {
					fmt.Fprintln(os.Stderr, e)
				}
				return fmt.Errorf("%d unsatisfiable foreign key(s)", len(result.Errors1215))
			}
			fmt.Println("schema is internally consistent")
			return nil
		},
	}
	cmd.Flags().StringVar(&to, "to", "", "Target schema directory of .sql files (required)")
	return cmd
}

func newWatchCmd() *cobra.Command {
	var from, to string
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-run the plan whenever a file under --to changes",
		RunE: func(cmd *cobra.Command, args []string) error {
			if to == "" {
				return fmt.Errorf("--to is required")
			}

			watcher, err := fsnotify.NewWatcher()
			if err != nil {
				return fmt.Errorf("create file watcher: %w", err)
			}
			defer watcher.Close()

			if err := watcher.Add(to); err != nil {
				return fmt.Errorf("watch %q: %w", to, err)
			}

			runOnce := func() {
				toDB, err := sqlfile.Load(to)
				if err != nil {
					fmt.Fprintln(os.Stderr, "load target schema:", err)
					return
				}
				var fromDB *schema.Database
				if from != "" {
					fromDB, err = loadSource(from)
					if err != nil {
						fmt.Fprintln(os.Stderr, err)
						return
					}
				}
				result := planner.New(logger).Plan(fromDB, toDB)
				_ = printResult(result)
			}

			runOnce()
			for {
				select {
				case event, ok := <-watcher.Events:
					if !ok {
						return nil
					}
					if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
						time.Sleep(100 * time.Millisecond)
						runOnce()
					}
				case err, ok := <-watcher.Errors:
					if !ok {
						return nil
					}
					fmt.Fprintln(os.Stderr, "watch error:", err)
				}
			}
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "Source schema: a directory of .sql files, or a MySQL DSN")
	cmd.Flags().StringVar(&to, "to", "", "Target schema directory of .sql files to watch (required)")
	return cmd
}

func newServeCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Launch the preview HTTP service",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}
			server := api.NewServer(cfg, planner.New(logger), logger)
			return server.Start()
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "Path to configuration file")
	return cmd
}

// loadSource interprets from as either a directory of .sql files (if it
// exists on disk) or a MySQL DSN to introspect live.
func loadSource(from string) (*schema.Database, error) {
	if info, err := os.Stat(from); err == nil && info.IsDir() {
		return sqlfile.Load(from)
	}

	cfg, err := parseDSN(from)
	if err != nil {
		return nil, fmt.Errorf("parse --from as directory or DSN: %w", err)
	}
	l, err := loadmysql.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to source database: %w", err)
	}
	defer l.Close()
	return l.Load(context.Background())
}

// parseDSN parses a minimal user:pass@tcp(host:port)/db DSN, the shape
// go-sql-driver/mysql itself accepts, into loader/mysql.Config.
func parseDSN(dsn string) (loadmysql.Config, error) {
	cfg := loadmysql.Config{MaxOpenConns: 10, MaxIdleConns: 5, ConnMaxLifetime: 5 * time.Minute}

	atIdx := strings.LastIndex(dsn, "@")
	if atIdx == -1 {
		return cfg, fmt.Errorf("missing '@' in DSN %q", dsn)
	}
	userinfo, rest := dsn[:atIdx], dsn[atIdx+1:]
	if u, p, ok := strings.Cut(userinfo, ":"); ok {
		cfg.User, cfg.Password = u, p
	} else {
		cfg.User = userinfo
	}

	const tcpPrefix = "tcp("
	openIdx := strings.Index(rest, tcpPrefix)
	closeIdx := strings.Index(rest, ")")
	if openIdx == -1 || closeIdx == -1 || closeIdx < openIdx {
		return cfg, fmt.Errorf("expected tcp(host:port) in DSN %q", dsn)
	}
	hostport := rest[openIdx+len(tcpPrefix) : closeIdx]
	host, portStr, ok := strings.Cut(hostport, ":")
	if !ok {
		return cfg, fmt.Errorf("expected host:port in DSN %q", dsn)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return cfg, fmt.Errorf("invalid port in DSN %q: %w", dsn, err)
	}
	cfg.Host, cfg.Port = host, port

	after := rest[closeIdx+1:]
	after = strings.TrimPrefix(after, "/")
	if qIdx := strings.Index(after, "?"); qIdx != -1 {
		cfg.Database = after[:qIdx]
	} else {
		cfg.Database = after
	}

	return cfg, nil
}

func printResult(result *planner.Result) error {
	if len(result.Errors1215) > 0 {
		for _, e := range result.Errors1215 {
			fmt.Fprintln(os.Stderr, e)
		}
		return fmt.Errorf("%d unsatisfiable foreign key(s), no operations emitted", len(result.Errors1215))
	}

	switch outputFormat {
	case "json":
		type opJSON struct {
			Kind string `json:"kind"`
			SQL  string `json:"sql"`
		}
		ops := make([]opJSON, len(result.Operations))
		for i, op := range result.Operations {
			ops[i] = opJSON{Kind: planner.Kind(op), SQL: op.String()}
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{"run_id": result.RunID.String(), "operations": ops})

	case "sql":
		for _, op := range result.Operations {
			fmt.Println(op.String())
		}
		return nil

	default:
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "#\tKIND\tSQL")
		for i, op := range result.Operations {
			fmt.Fprintf(w, "%d\t%s\t%s\n", i+1, planner.Kind(op), op.String())
		}
		return w.Flush()
	}
}
