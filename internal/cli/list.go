package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zendesk/sqlitemaster"
)

func newListCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "list [TYPE] [flags]",
		Short: "List schema objects, optionally of one type",
		Long: `List the objects recorded in the schema catalog, sorted by name.
TYPE is one of tables, indexes, triggers or views; without it every
object is listed.

Examples:
  # List everything
  sqlitemaster list -d app.db

  # List the triggers of an attached database
  sqlitemaster list triggers -d app.db --attach aux=aux.db --schema aux`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd, opts, args)
		},
	}
}

func runList(cmd *cobra.Command, opts *options, args []string) (err error) {
	var typ *sqlitemaster.ObjectType
	if len(args) == 1 {
		t, err := sqlitemaster.ParseObjectType(args[0])
		if err != nil {
			return fmt.Errorf("%w: %v", errUsage, err)
		}
		typ = &t
	}

	s, err := opts.open(cmd)
	if err != nil {
		return err
	}
	defer closeSession(s, &err)

	var objects []sqlitemaster.Object
	if typ == nil {
		objects, err = s.schema.Objects(s.ctx, s.db)
	} else {
		objects, err = s.schema.ObjectsOfType(s.ctx, s.db, *typ)
	}
	if err != nil {
		return err
	}

	if opts.jsonOutput {
		return printJSON(cmd.OutOrStdout(), toObjectViews(objects))
	}

	printObjectTable(cmd.OutOrStdout(), objects)
	return nil
}
