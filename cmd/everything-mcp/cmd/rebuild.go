package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rweijnen/everything-mcp/internal/client"
)

func newRebuildCmd() *cobra.Command {
	var save bool

	cmd := &cobra.Command{
		Use:   "rebuild",
		Short: "Ask the engine to rebuild its index",
		Long: `Request a full index rebuild from the Everything engine.

The rebuild runs inside the engine; this command returns immediately.
Use 'everything-mcp status' to watch for the database becoming busy and
then loaded again.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			cli, err := client.New(cfg, nil)
			if err != nil {
				return err
			}
			defer func() { _ = cli.Close() }()

			if save {
				if err := cli.SaveDB(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Index save requested.")
				return nil
			}

			if err := cli.RebuildDB(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Index rebuild requested.")
			return nil
		},
	}

	cmd.Flags().BoolVar(&save, "save", false, "Save the index to disk instead of rebuilding")
	return cmd
}
