package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/dmitrijs2005/syncbridge/internal/logging"
)

// Config holds runtime settings for the SyncBridge CLI.
type Config struct {
	ServerURL      string
	DatabasePath   string
	PageSize       int
	RequestTimeout time.Duration
	LogLevel       string
}

const (
	DefaultServerURL = "http://localhost:8000"
	DefaultPageSize  = 20
	DefaultTimeout   = 15 * time.Second
	DefaultLogLevel  = "warn"
)

// DefaultDatabasePath is <user config dir>/syncbridge/syncbridge.db, or a
// file in the working directory when no config dir is known.
func DefaultDatabasePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "syncbridge.db"
	}
	return filepath.Join(dir, "syncbridge", "syncbridge.db")
}

// LoadDefaults populates c with defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = DefaultServerURL
	c.DatabasePath = DefaultDatabasePath()
	c.PageSize = DefaultPageSize
	c.RequestTimeout = DefaultTimeout
	c.LogLevel = DefaultLogLevel
}

// Validate reports the first setting that cannot be used.
func (c *Config) Validate() error {
	u, err := url.Parse(c.ServerURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("server url %q: must be an absolute http(s) URL", c.ServerURL)
	}
	if c.DatabasePath == "" {
		return fmt.Errorf("database path is empty")
	}
	if c.PageSize < 1 {
		return fmt.Errorf("page size %d: must be positive", c.PageSize)
	}
	if c.RequestTimeout < 0 {
		return fmt.Errorf("timeout %s: must not be negative", c.RequestTimeout)
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}
