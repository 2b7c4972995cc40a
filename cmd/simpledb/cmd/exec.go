package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/medatechnology/simpledb"
)

func newExecCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "exec [file|-]",
		Short: "Run a SQL script in one transaction",
		Long: `Run a SQL script in one transaction. Statements are split on ';' and on
lines holding only GO. Nothing is committed when a statement fails.
Without an argument, or with -, the script is read from stdin.

Example:
  simpledb --dsn ./shop.db exec schema.sql`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			script, err := readScript(cmd, args)
			if err != nil {
				return err
			}
			db, _, err := openDB(cmd, nil)
			if err != nil {
				return err
			}
			defer db.Close()
			return runExec(cmd.Context(), db, script, cmd.OutOrStdout())
		},
	}
}

func readScript(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 0 || args[0] == "-" {
		return input(cmd, nil)
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return "", fmt.Errorf("failed to read script: %w", err)
	}
	return string(data), nil
}

func runExec(ctx context.Context, db *simpledb.DB, script string, w io.Writer) error {
	start := time.Now()
	affected, err := db.Transaction(ctx, script)
	if err != nil {
		return err
	}
	var total int64
	for i, n := range affected {
		fmt.Fprintf(w, "statement %d: %d rows affected\n", i+1, n)
		total += n
	}
	fmt.Fprintf(w, "%d statements, %d rows affected in %s ms\n",
		len(affected), total, simpledb.SecondToMsString(time.Since(start).Seconds()))
	return nil
}
