package rqlite

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// RqliteConfig holds the configuration of an rqlite connection
type RqliteConfig struct {
	URL         string        // Base URL of one node (e.g. "http://localhost:4001")
	Consistency string        // Read consistency: "none", "weak" (default), "strong", "linearizable"
	Username    string        // Optional basic auth user
	Password    string        // Optional basic auth password
	Timeout     time.Duration // Bound on every request (default: 30 seconds)
	RetryCount  int           // Attempts per request on transport errors (HTTP client only)

	// Direct talks to the HTTP API with net/http instead of gorqlite. It
	// supports mixed read/write batches in Query.
	Direct bool
}

// NewDefaultConfig returns the configuration of a local node
func NewDefaultConfig() *RqliteConfig {
	return &RqliteConfig{
		URL:         "http://localhost:4001",
		Consistency: DEFAULT_CONSISTENCY,
		Timeout:     DEFAULT_TIMEOUT,
		RetryCount:  DEFAULT_MAX_RETRIES,
	}
}

// NewConfig returns the default configuration for the node at rawURL
func NewConfig(rawURL string) *RqliteConfig {
	c := NewDefaultConfig()
	c.URL = rawURL
	return c
}

// Validate checks the URL and consistency level and fills defaults
func (c *RqliteConfig) Validate() error {
	u, err := url.Parse(c.URL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("%w: %q", ErrRQLiteInvalidURL, c.URL)
	}
	c.URL = strings.TrimSuffix(c.URL, "/")
	if c.Consistency == "" {
		c.Consistency = DEFAULT_CONSISTENCY
	}
	c.Consistency = strings.ToLower(c.Consistency)
	if !consistencyLevels[c.Consistency] {
		return fmt.Errorf("%w: unknown consistency level %q", ErrRQLiteInvalidConfig, c.Consistency)
	}
	if c.Timeout <= 0 {
		c.Timeout = DEFAULT_TIMEOUT
	}
	if c.RetryCount <= 0 {
		c.RetryCount = DEFAULT_MAX_RETRIES
	}
	return nil
}

// ConnectionURL returns the URL with the credentials embedded, the form
// gorqlite expects.
func (c *RqliteConfig) ConnectionURL() string {
	if c.Username == "" && c.Password == "" {
		return c.URL
	}
	u, err := url.Parse(c.URL)
	if err != nil {
		return c.URL
	}
	u.User = url.UserPassword(c.Username, c.Password)
	return u.String()
}

// WithCredentials sets basic auth and returns the config for method chaining
func (c *RqliteConfig) WithCredentials(username, password string) *RqliteConfig {
	c.Username = username
	c.Password = password
	return c
}

// WithConsistency sets the read consistency and returns the config for method chaining
func (c *RqliteConfig) WithConsistency(level string) *RqliteConfig {
	c.Consistency = level
	return c
}

// WithDirect selects the net/http client and returns the config for method chaining
func (c *RqliteConfig) WithDirect(direct bool) *RqliteConfig {
	c.Direct = direct
	return c
}

// String returns a safe string representation of the config (without password)
func (c *RqliteConfig) String() string {
	return fmt.Sprintf("RQLite{url=%s, user=%s, consistency=%s, direct=%v}", c.URL, c.Username, c.Consistency, c.Direct)
}
