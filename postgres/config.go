package postgres

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultHost            = "localhost"
	DefaultPort            = 5432
	DefaultSSLMode         = "disable"
	DefaultDriver          = DriverPQ
	DefaultConnectTimeout  = 10 * time.Second
	DefaultQueryTimeout    = 30 * time.Second
	DefaultMaxOpenConns    = 25
	DefaultMaxIdleConns    = 5
	DefaultConnMaxLifetime = 5 * time.Minute
	DefaultConnMaxIdleTime = 10 * time.Minute
	DefaultApplicationName = "simpledb"
)

// database/sql driver names
const (
	DriverPQ  = "postgres" // github.com/lib/pq
	DriverPGX = "pgx"      // github.com/jackc/pgx/v5/stdlib
)

var validSSLModes = map[string]bool{
	"disable":     true,
	"allow":       true,
	"prefer":      true,
	"require":     true,
	"verify-ca":   true,
	"verify-full": true,
}

// PostgresConfig describes one PostgreSQL server and the pool kept to it.
// Zero values are replaced with defaults by Validate.
type PostgresConfig struct {
	// Driver is DriverPQ or DriverPGX.
	Driver string

	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration

	ConnectTimeout time.Duration
	// QueryTimeout bounds every command; 0 leaves commands to the caller's
	// context.
	QueryTimeout time.Duration

	ApplicationName string // shown in pg_stat_activity
	SearchPath      string
	Timezone        string
	ExtraParams     map[string]string
}

// NewDefaultConfig returns a config with every default filled in but no
// credentials.
func NewDefaultConfig() *PostgresConfig {
	return &PostgresConfig{
		Driver:          DefaultDriver,
		Host:            DefaultHost,
		Port:            DefaultPort,
		SSLMode:         DefaultSSLMode,
		MaxOpenConns:    DefaultMaxOpenConns,
		MaxIdleConns:    DefaultMaxIdleConns,
		ConnMaxLifetime: DefaultConnMaxLifetime,
		ConnMaxIdleTime: DefaultConnMaxIdleTime,
		ConnectTimeout:  DefaultConnectTimeout,
		QueryTimeout:    DefaultQueryTimeout,
		ApplicationName: DefaultApplicationName,
		ExtraParams:     make(map[string]string),
	}
}

// NewConfig is NewDefaultConfig plus the server address and credentials.
func NewConfig(host string, port int, user, password, dbName string) *PostgresConfig {
	config := NewDefaultConfig()
	config.Host = host
	config.Port = port
	config.User = user
	config.Password = password
	config.DBName = dbName
	return config
}

// Validate checks the required fields and fills defaults for the rest
func (c *PostgresConfig) Validate() error {
	if c.User == "" {
		return fmt.Errorf("%w: user is required", ErrPostgresInvalidConfig)
	}
	if c.DBName == "" {
		return fmt.Errorf("%w: database name is required", ErrPostgresInvalidConfig)
	}
	switch c.Driver {
	case "":
		c.Driver = DefaultDriver
	case DriverPQ, DriverPGX:
	default:
		return fmt.Errorf("%w: unknown driver '%s'", ErrPostgresInvalidConfig, c.Driver)
	}
	if c.SSLMode == "" {
		c.SSLMode = DefaultSSLMode
	}
	if !validSSLModes[c.SSLMode] {
		return fmt.Errorf("%w: invalid SSL mode '%s'", ErrPostgresInvalidConfig, c.SSLMode)
	}

	if c.Host == "" {
		c.Host = DefaultHost
	}
	if c.Port <= 0 || c.Port > 65535 {
		c.Port = DefaultPort
	}
	if c.MaxOpenConns <= 0 {
		c.MaxOpenConns = DefaultMaxOpenConns
	}
	if c.MaxIdleConns <= 0 {
		c.MaxIdleConns = DefaultMaxIdleConns
	}
	if c.MaxIdleConns > c.MaxOpenConns {
		c.MaxIdleConns = c.MaxOpenConns
	}
	if c.ConnMaxLifetime <= 0 {
		c.ConnMaxLifetime = DefaultConnMaxLifetime
	}
	if c.ConnMaxIdleTime <= 0 {
		c.ConnMaxIdleTime = DefaultConnMaxIdleTime
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = DefaultConnectTimeout
	}
	if c.QueryTimeout < 0 {
		c.QueryTimeout = 0
	}
	if c.ApplicationName == "" {
		c.ApplicationName = DefaultApplicationName
	}
	return nil
}

// params returns the connection parameters other than host, user and
// database, as both lib/pq and pgx understand them.
func (c *PostgresConfig) params() url.Values {
	params := url.Values{}
	params.Set("sslmode", c.SSLMode)
	if c.ConnectTimeout > 0 {
		params.Set("connect_timeout", strconv.Itoa(int(c.ConnectTimeout.Seconds())))
	}
	if c.ApplicationName != "" {
		params.Set("application_name", c.ApplicationName)
	}
	if c.SearchPath != "" {
		params.Set("search_path", c.SearchPath)
	}
	if c.Timezone != "" {
		params.Set("timezone", c.Timezone)
	}
	for key, value := range c.ExtraParams {
		params.Set(key, value)
	}
	return params
}

// ToDSN renders the config as a postgres:// URL.
func (c *PostgresConfig) ToDSN() (string, error) {
	if err := c.Validate(); err != nil {
		return "", err
	}
	u := &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     c.DBName,
		RawQuery: c.params().Encode(),
	}
	return u.String(), nil
}

// ToSimpleDSN renders the config in the libpq key=value form, quoting
// values that hold spaces, quotes or backslashes.
func (c *PostgresConfig) ToSimpleDSN() (string, error) {
	if err := c.Validate(); err != nil {
		return "", err
	}
	parts := []string{
		"host=" + quoteValue(c.Host),
		"port=" + strconv.Itoa(c.Port),
		"user=" + quoteValue(c.User),
		"password=" + quoteValue(c.Password),
		"dbname=" + quoteValue(c.DBName),
	}
	params := c.params()
	keys := make([]string, 0, len(params))
	for key := range params {
		keys = append(keys, key)
	}
	// sslmode first, the rest sorted
	sort.Slice(keys, func(i, j int) bool {
		if keys[i] == "sslmode" || keys[j] == "sslmode" {
			return keys[i] == "sslmode"
		}
		return keys[i] < keys[j]
	})
	for _, key := range keys {
		parts = append(parts, key+"="+quoteValue(params.Get(key)))
	}
	return strings.Join(parts, " "), nil
}

func quoteValue(v string) string {
	if v != "" && !strings.ContainsAny(v, ` '\`) {
		return v
	}
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}

// Address returns host:port/dbname, used as the status URL
func (c *PostgresConfig) Address() string {
	return fmt.Sprintf("%s:%d/%s", c.Host, c.Port, c.DBName)
}

// Clone copies the config, ExtraParams included.
func (c *PostgresConfig) Clone() *PostgresConfig {
	clone := *c
	clone.ExtraParams = make(map[string]string, len(c.ExtraParams))
	for key, value := range c.ExtraParams {
		clone.ExtraParams[key] = value
	}
	return &clone
}

// WithDriver selects DriverPQ or DriverPGX.
func (c *PostgresConfig) WithDriver(driver string) *PostgresConfig {
	c.Driver = driver
	return c
}

func (c *PostgresConfig) WithSSLMode(mode string) *PostgresConfig {
	c.SSLMode = mode
	return c
}

// WithConnectionPool sizes the database/sql pool.
func (c *PostgresConfig) WithConnectionPool(maxOpen, maxIdle int, maxLifetime, maxIdleTime time.Duration) *PostgresConfig {
	c.MaxOpenConns = maxOpen
	c.MaxIdleConns = maxIdle
	c.ConnMaxLifetime = maxLifetime
	c.ConnMaxIdleTime = maxIdleTime
	return c
}

func (c *PostgresConfig) WithTimeouts(connectTimeout, queryTimeout time.Duration) *PostgresConfig {
	c.ConnectTimeout = connectTimeout
	c.QueryTimeout = queryTimeout
	return c
}

func (c *PostgresConfig) WithApplicationName(name string) *PostgresConfig {
	c.ApplicationName = name
	return c
}

func (c *PostgresConfig) WithSearchPath(path string) *PostgresConfig {
	c.SearchPath = path
	return c
}

func (c *PostgresConfig) WithTimezone(tz string) *PostgresConfig {
	c.Timezone = tz
	return c
}

// WithExtraParam passes key=value through to the driver unchanged.
func (c *PostgresConfig) WithExtraParam(key, value string) *PostgresConfig {
	if c.ExtraParams == nil {
		c.ExtraParams = make(map[string]string)
	}
	c.ExtraParams[key] = value
	return c
}

// String omits the password.
func (c *PostgresConfig) String() string {
	return fmt.Sprintf("PostgreSQL{driver=%s, host=%s, port=%d, user=%s, dbname=%s, sslmode=%s}",
		c.Driver, c.Host, c.Port, c.User, c.DBName, c.SSLMode)
}

// set applies one connection parameter. Unknown keys become extra params.
func (c *PostgresConfig) set(key, value string) {
	switch key {
	case "host":
		c.Host = value
	case "port":
		if port, err := strconv.Atoi(value); err == nil && port > 0 {
			c.Port = port
		}
	case "user":
		c.User = value
	case "password":
		c.Password = value
	case "dbname":
		c.DBName = value
	case "sslmode":
		c.SSLMode = value
	case "application_name":
		c.ApplicationName = value
	case "search_path":
		c.SearchPath = value
	case "timezone":
		c.Timezone = value
	case "connect_timeout":
		if seconds, err := strconv.Atoi(value); err == nil && seconds > 0 {
			c.ConnectTimeout = time.Duration(seconds) * time.Second
		}
	default:
		c.ExtraParams[key] = value
	}
}

// ParseDSN reads either a postgres:// (or postgresql://) URL or a libpq
// key=value string. Parameters it does not know land in ExtraParams.
func ParseDSN(dsn string) (*PostgresConfig, error) {
	config := NewDefaultConfig()

	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		u, err := url.Parse(dsn)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrPostgresInvalidDSN, err)
		}
		if u.User != nil {
			config.User = u.User.Username()
			config.Password, _ = u.User.Password()
		}
		if host := u.Hostname(); host != "" {
			config.Host = host
		}
		config.set("port", u.Port())
		config.DBName = strings.TrimPrefix(u.Path, "/")
		for key, values := range u.Query() {
			if len(values) > 0 {
				config.set(key, values[0])
			}
		}
	} else {
		pairs, err := splitPairs(dsn)
		if err != nil {
			return nil, err
		}
		for _, kv := range pairs {
			config.set(kv[0], kv[1])
		}
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// splitPairs splits key=value pairs separated by spaces. Values may be
// single quoted with backslash escapes.
func splitPairs(dsn string) ([][2]string, error) {
	var pairs [][2]string
	s := strings.TrimSpace(dsn)
	for s != "" {
		eq := strings.IndexByte(s, '=')
		if eq <= 0 {
			return nil, fmt.Errorf("%w: missing '=' in %q", ErrPostgresInvalidDSN, s)
		}
		key := strings.TrimSpace(s[:eq])
		s = strings.TrimLeft(s[eq+1:], " ")

		var value strings.Builder
		if strings.HasPrefix(s, "'") {
			i := 1
			for ; i < len(s) && s[i] != '\''; i++ {
				if s[i] == '\\' && i+1 < len(s) {
					i++
				}
				value.WriteByte(s[i])
			}
			if i >= len(s) {
				return nil, fmt.Errorf("%w: unterminated quote for %s", ErrPostgresInvalidDSN, key)
			}
			s = s[i+1:]
		} else {
			end := strings.IndexByte(s, ' ')
			if end < 0 {
				end = len(s)
			}
			value.WriteString(s[:end])
			s = s[end:]
		}
		pairs = append(pairs, [2]string{key, value.String()})
		s = strings.TrimLeft(s, " ")
	}
	return pairs, nil
}
