package cmd

import (
	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print the status of the database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, _, err := openDB(cmd, nil)
			if err != nil {
				return err
			}
			defer db.Close()

			status, err := db.Status(cmd.Context())
			if err != nil {
				return err
			}
			status.PrintPretty(cmd.OutOrStdout(), "  ", "")
			return nil
		},
	}
}
