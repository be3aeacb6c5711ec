package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zendesk/sqlitemaster"
)

// dropOrder is the order "drop all" works in. Triggers go first
// so none fire or break while views and indexes disappear.
var dropOrder = []sqlitemaster.ObjectType{
	sqlitemaster.ObjectTrigger,
	sqlitemaster.ObjectView,
	sqlitemaster.ObjectIndex,
}

func newDropCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "drop TYPE [flags]",
		Short: "Drop all triggers, indexes or views",
		Long: `Drop every object of one type. TYPE is triggers, indexes, views or all.

Indexes that SQLite created itself (sqlite_autoindex_*) are kept. Each
object is dropped with its own statement; if one fails the command
stops and objects already dropped stay dropped.

Examples:
  # Drop all views
  sqlitemaster drop views -d app.db

  # Drop triggers, views and indexes in an attached database
  sqlitemaster drop all -d app.db --attach aux=aux.db --schema aux`,
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"triggers", "indexes", "views", "all"},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDrop(cmd, opts, args[0])
		},
	}
}

func dropTypes(arg string) ([]sqlitemaster.ObjectType, error) {
	if strings.EqualFold(arg, "all") {
		return dropOrder, nil
	}

	typ, err := sqlitemaster.ParseObjectType(arg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errUsage, err)
	}
	if typ == sqlitemaster.ObjectTable {
		return nil, fmt.Errorf("%w: tables cannot be dropped", errUsage)
	}

	return []sqlitemaster.ObjectType{typ}, nil
}

func dropFunc(s *sqlitemaster.Schema, typ sqlitemaster.ObjectType) func(context.Context, sqlitemaster.Conn) error {
	switch typ {
	case sqlitemaster.ObjectTrigger:
		return s.DropTriggers
	case sqlitemaster.ObjectIndex:
		return s.DropIndexes
	case sqlitemaster.ObjectView:
		return s.DropViews
	default:
		return nil
	}
}

func runDrop(cmd *cobra.Command, opts *options, arg string) (err error) {
	types, err := dropTypes(arg)
	if err != nil {
		return err
	}

	s, err := opts.open(cmd)
	if err != nil {
		return err
	}
	defer closeSession(s, &err)

	dropped := map[string]int{}

	for _, typ := range types {
		before, err := s.schema.ObjectsOfType(s.ctx, s.db, typ)
		if err != nil {
			return err
		}

		if err := dropFunc(s.schema, typ)(s.ctx, s.db); err != nil {
			return err
		}

		after, err := s.schema.ObjectsOfType(s.ctx, s.db, typ)
		if err != nil {
			return err
		}

		dropped[typ.String()] = len(before) - len(after)
	}

	if opts.jsonOutput {
		return printJSON(cmd.OutOrStdout(), map[string]interface{}{
			"dropped": dropped,
		})
	}

	out := cmd.OutOrStdout()
	for _, typ := range types {
		fmt.Fprintf(out, "dropped %d %s(s)\n", dropped[typ.String()], typ)
	}
	return nil
}
