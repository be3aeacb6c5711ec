package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/zendesk/sqlitemaster"
	"github.com/zendesk/sqlitemaster/internal/config"
)

var errorLabel = color.New(color.FgRed)

// options holds the persistent flags shared by every command.
type options struct {
	configFile string
	database   string
	driver     string
	schema     string
	attach     map[string]string
	logLevel   string
	jsonOutput bool
}

func newRootCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sqlitemaster [command] [flags]",
		Short: "Inspect the SQLite schema catalog and drop triggers, indexes or views",
		Long: `sqlitemaster reads the sqlite_master catalog of an SQLite database and
drops schema objects of one type in bulk.

Settings come from a YAML config file (--config), SQLITEMASTER_* environment
variables (a .env file in the working directory is honoured) and flags, in
increasing order of precedence.

Examples:
  # List every object in the catalog
  sqlitemaster list --database app.db

  # List the indexes of an attached database, as JSON
  sqlitemaster list indexes -d app.db --attach aux=aux.db --schema aux -j

  # Drop all triggers
  sqlitemaster drop triggers --database app.db

  # Drop triggers, views and non-internal indexes
  sqlitemaster drop all --database app.db`,
		SilenceErrors: true, // Execute prints errors itself
		SilenceUsage:  true,
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Help()
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.configFile, "config", "", "Path to a YAML config file")
	flags.StringVarP(&opts.database, "database", "d", "", "SQLite database to open (overrides config)")
	flags.StringVar(&opts.driver, "driver", "", `database/sql driver: "sqlite" (pure Go) or "sqlite3" (cgo)`)
	flags.StringVarP(&opts.schema, "schema", "s", "", "Database to operate on: main, temp, or a name given to --attach")
	flags.StringToStringVar(&opts.attach, "attach", nil, "Attach a database file as NAME=PATH (repeatable)")
	flags.StringVar(&opts.logLevel, "log-level", "", "Log level: trace, debug, info, warn, error")
	flags.BoolVarP(&opts.jsonOutput, "json", "j", false, "Output in JSON format")

	cmd.AddCommand(newListCmd(opts))
	cmd.AddCommand(newDropCmd(opts))
	cmd.AddCommand(newSchemasCmd(opts))

	return cmd
}

// Execute runs the command line and exits non-zero on failure.
// This is called by main.main().
func Execute() {
	opts := &options{}
	cmd := newRootCmd(opts)

	if err := cmd.Execute(); err != nil {
		if opts.jsonOutput {
			printJSON(os.Stdout, map[string]string{
				"error": err.Error(),
			})
		} else {
			errorLabel.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

// session is an open database plus everything a command needs to
// operate on it.
type session struct {
	ctx    context.Context
	db     *sql.DB
	schema *sqlitemaster.Schema
}

func (s *session) Close() error {
	return s.db.Close()
}

// open resolves the configuration, sets up logging and opens the
// database. The caller must close the returned session.
func (o *options) open(cmd *cobra.Command) (*session, error) {
	cfg, err := config.LoadConfig(o.configFile)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	for name, pair := range map[string][2]*string{
		"database":  {&cfg.Database, &o.database},
		"driver":    {&cfg.Driver, &o.driver},
		"schema":    {&cfg.Schema, &o.schema},
		"log-level": {&cfg.LogLevel, &o.logLevel},
	} {
		if flags.Changed(name) {
			*pair[0] = *pair[1]
		}
	}
	if flags.Changed("attach") {
		cfg.Attach = o.attach
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	level, _ := cfg.Level()
	logger := initLogger(cmd.ErrOrStderr(), level)
	ctx := logger.WithContext(cmd.Context())

	db, err := sql.Open(cfg.Driver, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// temp and attached databases belong to a single connection.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to %s: %w", cfg.Database, err)
	}

	for _, name := range slices.Sorted(maps.Keys(cfg.Attach)) {
		path := cfg.Attach[name]
		if _, err := db.ExecContext(ctx, "ATTACH DATABASE ? AS "+quoteIdent(name), path); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to attach %s as %s: %w", path, name, err)
		}
		logger.Debug().Str("schema", name).Str("database", path).Msg("attached database")
	}

	logger.Debug().
		Str("database", cfg.Database).
		Str("driver", cfg.Driver).
		Str("schema", cfg.Schema).
		Msg("opened database")

	return &session{
		ctx:    ctx,
		db:     db,
		schema: sqlitemaster.DB(cfg.Schema),
	}, nil
}

// closeSession closes s, reporting a close error only if the
// command itself succeeded.
func closeSession(s *session, err *error) {
	if cerr := s.Close(); cerr != nil {
		zerolog.Ctx(s.ctx).Error().Err(cerr).Msg("failed to close database")
		if *err == nil {
			*err = cerr
		}
	}
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// errUsage marks errors caused by bad arguments rather than by
// the database.
var errUsage = errors.New("usage error")
