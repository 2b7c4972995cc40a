package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/medatechnology/simpledb"
	"github.com/medatechnology/simpledb/internal/config"
	"github.com/medatechnology/simpledb/metrics"
)

// NewRootCmd builds the simpledb command tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "simpledb",
		Short: "simpledb - query databases as tabular text",
		Long: `simpledb runs SQL against SQLite, PostgreSQL or rqlite and prints the
results as compact tabular text blobs, JSON or aligned tables.

Example:
  simpledb --backend sqlite --dsn ./shop.db query "SELECT * FROM users"`,
		SilenceUsage: true,
	}

	flags := root.PersistentFlags()
	flags.StringP("config", "c", "", "YAML configuration file")
	flags.String("backend", "", "Backend: sqlite, postgres or rqlite")
	flags.String("dsn", "", "Database file, DSN or node URL")
	flags.String("time-unit", "", "Date/time cell unit: s or ms")
	flags.String("log-level", "", "Log level: debug, info, warn or error")

	root.AddCommand(
		newQueryCmd(),
		newExecCmd(),
		newDecodeCmd(),
		newStatusCmd(),
		newServeCmd(),
	)
	return root
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main().
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the --config file, or the defaults, and applies the
// global flags that were set on top of it.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		var err error
		if cfg, err = config.LoadConfig(path); err != nil {
			return nil, err
		}
	}
	overrides := []struct {
		flag   string
		target *string
	}{
		{"backend", &cfg.Database.Backend},
		{"dsn", &cfg.Database.DSN},
		{"time-unit", &cfg.Database.TimeUnit},
		{"log-level", &cfg.Logging.Level},
	}
	for _, o := range overrides {
		if cmd.Flags().Changed(o.flag) {
			*o.target, _ = cmd.Flags().GetString(o.flag)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	simpledb.SetDefaultLogger(cfg.Logger())
	return cfg, nil
}

// openDB loads the configuration and opens its database.
func openDB(cmd *cobra.Command, m *metrics.Metrics) (*simpledb.DB, *config.Config, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	db, err := cfg.Open(m)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, cfg, nil
}

// input returns args[0], or stdin when it is "-" or missing.
func input(cmd *cobra.Command, args []string) (string, error) {
	if len(args) > 0 && args[0] != "-" {
		return args[0], nil
	}
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("failed to read stdin: %w", err)
	}
	return strings.TrimRight(string(data), "\r\n"), nil
}
