package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/medatechnology/simpledb"
	"github.com/medatechnology/simpledb/metrics"
	"github.com/medatechnology/simpledb/postgres"
	"github.com/medatechnology/simpledb/rqlite"
	"github.com/medatechnology/simpledb/sqlite"
	"github.com/medatechnology/simpledb/tabular"
)

const (
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendRqlite   = "rqlite"
)

// Config represents the simpledb command configuration
type Config struct {
	Database Database         `yaml:"database"`
	Server   Server           `yaml:"server"`
	Logging  Logging          `yaml:"logging"`
	Queries  map[string]Query `yaml:"queries"`
}

// Database selects and configures the backend
type Database struct {
	Backend string `yaml:"backend"`
	// DSN is the file path for sqlite, a URL or key=value string for
	// postgres and the node URL for rqlite.
	DSN        string        `yaml:"dsn"`
	TimeUnit   string        `yaml:"time_unit"`
	PrimaryKey string        `yaml:"primary_key"`
	Timeout    time.Duration `yaml:"timeout"`

	// postgres
	Driver string `yaml:"driver"`

	// rqlite
	Consistency string `yaml:"consistency"`
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
	Direct      bool   `yaml:"direct"`
}

// Server contains the HTTP server configuration
type Server struct {
	Bind        string   `yaml:"bind"`
	Port        int      `yaml:"port"`
	CORSOrigins []string `yaml:"cors_origins"`
}

// Logging contains logging configuration
type Logging struct {
	Level string `yaml:"level"`
}

// Query is a named query served over HTTP. Only the listed parameters are
// taken from the request.
type Query struct {
	SQL    string   `yaml:"sql"`
	Params []string `yaml:"params"`
	// Format is the default output: csv, multicsv or json.
	Format string `yaml:"format"`
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		Database: Database{
			Backend:  BackendSQLite,
			DSN:      sqlite.MemoryPath,
			TimeUnit: tabular.Seconds.String(),
		},
		Server: Server{
			Bind:        "127.0.0.1",
			Port:        8080,
			CORSOrigins: []string{"*"},
		},
		Logging: Logging{
			Level: "info",
		},
	}
}

// LoadConfig loads configuration from the specified path. Missing values
// keep their defaults.
func LoadConfig(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s", configPath)
	}

	if !filepath.IsAbs(configPath) {
		absPath, err := filepath.Abs(configPath)
		if err != nil {
			return nil, fmt.Errorf("invalid config path: %w", err)
		}
		configPath = absPath
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return config, nil
}

// Validate checks the configuration and normalizes names.
func (c *Config) Validate() error {
	c.Database.Backend = strings.ToLower(strings.TrimSpace(c.Database.Backend))
	switch c.Database.Backend {
	case BackendSQLite, BackendPostgres, BackendRqlite:
	case "":
		c.Database.Backend = BackendSQLite
	default:
		return fmt.Errorf("unknown backend %q", c.Database.Backend)
	}
	if c.Database.Backend != BackendSQLite && c.Database.DSN == "" {
		return fmt.Errorf("backend %s needs a dsn", c.Database.Backend)
	}
	if _, err := tabular.ParseTimeUnit(c.Database.TimeUnit); err != nil {
		return err
	}
	if c.Database.PrimaryKey != "" {
		if err := simpledb.ValidateIdentifier(c.Database.PrimaryKey); err != nil {
			return err
		}
	}
	if _, err := simpledb.ParseLogLevel(c.Logging.Level); err != nil {
		return err
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}

	for _, name := range c.QueryNames() {
		q := c.Queries[name]
		if strings.TrimSpace(q.SQL) == "" {
			return fmt.Errorf("query %s has no sql", name)
		}
		for _, p := range q.Params {
			if err := simpledb.ValidateIdentifier(p); err != nil {
				return fmt.Errorf("query %s: %w", name, err)
			}
		}
		switch q.Format {
		case "", "csv", "multicsv", "json":
		default:
			return fmt.Errorf("query %s: unknown format %q", name, q.Format)
		}
	}
	return nil
}

// QueryNames returns the names of the configured queries, sorted.
func (c *Config) QueryNames() []string {
	names := make([]string, 0, len(c.Queries))
	for name := range c.Queries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Address is the listen address of the server.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Bind, c.Server.Port)
}

// Logger returns a logger at the configured level.
func (c *Config) Logger() simpledb.Logger {
	level, err := simpledb.ParseLogLevel(c.Logging.Level)
	if err != nil {
		level = simpledb.LogLevelInfo
	}
	return simpledb.NewDefaultLogger(level)
}

// OpenBackend opens the configured backend.
func (c *Config) OpenBackend() (simpledb.Backend, error) {
	d := c.Database
	switch d.Backend {
	case BackendPostgres:
		pc, err := postgres.ParseDSN(d.DSN)
		if err != nil {
			return nil, err
		}
		if d.Driver != "" {
			pc.WithDriver(d.Driver)
		}
		if d.Timeout > 0 {
			pc.QueryTimeout = d.Timeout
		}
		b, err := postgres.Open(*pc)
		if err != nil {
			return nil, err
		}
		return b, nil
	case BackendRqlite:
		rc := rqlite.NewConfig(d.DSN)
		if d.Consistency != "" {
			rc.WithConsistency(d.Consistency)
		}
		if d.Username != "" {
			rc.WithCredentials(d.Username, d.Password)
		}
		if d.Timeout > 0 {
			rc.Timeout = d.Timeout
		}
		rc.WithDirect(d.Direct)
		b, err := rqlite.Open(*rc)
		if err != nil {
			return nil, err
		}
		return b, nil
	default:
		sc := sqlite.NewConfig(d.DSN)
		sc.QueryTimeout = d.Timeout
		b, err := sqlite.Open(*sc)
		if err != nil {
			return nil, err
		}
		return b, nil
	}
}

// Open validates the configuration, opens the backend and wraps it in a
// DB. With m set, the backend reports its operations to m.
func (c *Config) Open(m *metrics.Metrics) (*simpledb.DB, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	unit, _ := tabular.ParseTimeUnit(c.Database.TimeUnit)
	backend, err := c.OpenBackend()
	if err != nil {
		return nil, err
	}
	if m != nil {
		backend = metrics.Instrument(backend, m)
	}
	return simpledb.New(backend, simpledb.Config{
		TimeUnit:   unit,
		Logger:     c.Logger(),
		PrimaryKey: c.Database.PrimaryKey,
	}), nil
}
