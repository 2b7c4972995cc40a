package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/medatechnology/simpledb"
	"github.com/medatechnology/simpledb/tabular"
)

const (
	formatCsv      = "csv"
	formatMultiCsv = "multicsv"
	formatJSON     = "json"
	formatTable    = "table"
)

func newQueryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query [sql|-]",
		Short: "Run a query and print its result",
		Long: `Run a query and print the result as a tabular blob (csv), one blob per
result set (multicsv), JSON records (json) or an aligned table (table).
Without an argument the query is read from stdin.

Example:
  simpledb query "SELECT * FROM users WHERE Active = @active" -p active=1
  simpledb query --format multicsv "SELECT * FROM users; SELECT COUNT(*) FROM orders"`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query, err := input(cmd, args)
			if err != nil {
				return err
			}
			format, _ := cmd.Flags().GetString("format")
			params, _ := cmd.Flags().GetStringArray("param")
			positional, _ := cmd.Flags().GetStringArray("arg")

			opts, err := queryOptions(params, positional)
			if err != nil {
				return err
			}
			db, _, err := openDB(cmd, nil)
			if err != nil {
				return err
			}
			defer db.Close()
			return runQuery(cmd.Context(), db, query, format, cmd.OutOrStdout(), opts...)
		},
	}
	cmd.Flags().StringP("format", "f", formatCsv, "Output format: csv, multicsv, json or table")
	cmd.Flags().StringArrayP("param", "p", nil, "Named parameter as name=value (repeatable)")
	cmd.Flags().StringArray("arg", nil, "Positional parameter value (repeatable)")
	return cmd
}

// queryOptions turns name=value pairs and positional values into command
// options. Named and positional parameters cannot be mixed.
func queryOptions(params, positional []string) ([]simpledb.Option, error) {
	if len(params) > 0 && len(positional) > 0 {
		return nil, simpledb.ErrMixedParameters
	}
	var opts []simpledb.Option
	for _, p := range params {
		name, value, ok := strings.Cut(p, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("parameter %q is not name=value", p)
		}
		opts = append(opts, simpledb.With(name, value))
	}
	if len(positional) > 0 {
		values := make([]interface{}, len(positional))
		for i, v := range positional {
			values[i] = v
		}
		opts = append(opts, simpledb.Args(values...))
	}
	return opts, nil
}

func runQuery(ctx context.Context, db *simpledb.DB, query, format string, w io.Writer, opts ...simpledb.Option) error {
	switch strings.ToLower(format) {
	case formatCsv:
		blob, err := db.Csv(ctx, query, opts...)
		if err != nil {
			return err
		}
		if blob != nil {
			fmt.Fprintln(w, *blob)
		}
	case formatMultiCsv:
		blobs, err := db.MultiCsv(ctx, query, opts...)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(blobs)
	case formatJSON:
		out, err := db.JSON(ctx, query, opts...)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, out)
	case formatTable:
		table, err := db.Table(ctx, query, opts...)
		if err != nil {
			return err
		}
		printTable(w, table)
	default:
		return fmt.Errorf("unknown format %q", format)
	}
	return nil
}

// printTable prints the table with aligned columns, nulls as NULL.
func printTable(w io.Writer, table *tabular.Table) {
	if table == nil {
		fmt.Fprintln(w, "(0 rows)")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	names := make([]string, len(table.Columns))
	for i, c := range table.Columns {
		names[i] = c.Name
	}
	fmt.Fprintln(tw, strings.Join(names, "\t"))
	for _, row := range table.Rows {
		cells := make([]string, len(row))
		for i, v := range row {
			if v == nil {
				cells[i] = "NULL"
				continue
			}
			cells[i] = tabular.FormatValue(v)
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	tw.Flush()
	fmt.Fprintf(w, "(%d rows)\n", table.Len())
}
