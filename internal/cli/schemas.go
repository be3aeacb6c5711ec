package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zendesk/sqlitemaster"
)

func newSchemasCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "schemas [flags]",
		Short: "List the databases attached to the connection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			s, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer closeSession(s, &err)

			names, err := sqlitemaster.SchemaNames(s.ctx, s.db)
			if err != nil {
				return err
			}

			if opts.jsonOutput {
				return printJSON(cmd.OutOrStdout(), names)
			}
			for _, name := range names {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
}
