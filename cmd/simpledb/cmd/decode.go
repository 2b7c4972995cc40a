package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/medatechnology/simpledb/tabular"
)

func newDecodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "decode [blob|-]",
		Short: "Decode a tabular blob into JSON records",
		Long: `Decode a tabular blob and print its rows as JSON records. The blob must
have been encoded with the configured --time-unit.

Example:
  simpledb decode '!Id~$Name|1~Ann|2~Bob'`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			blob, err := input(cmd, args)
			if err != nil {
				return err
			}
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			unit, err := tabular.ParseTimeUnit(cfg.Database.TimeUnit)
			if err != nil {
				return err
			}
			return runDecode(cmd.Context(), unit, blob, cmd.OutOrStdout())
		},
	}
}

func runDecode(ctx context.Context, unit tabular.TimeUnit, blob string, w io.Writer) error {
	table, err := tabular.NewDecoder(unit).DecodeString(blob)
	if err != nil {
		return err
	}
	out, err := tabular.NewEncoder(unit).JSONArray(ctx, table.Source())
	if err != nil {
		return err
	}
	fmt.Fprintln(w, out)
	return nil
}
