package config

import (
	"os"
	"time"

	"github.com/spf13/pflag"
)

// Flags are the configuration flags declared on a command's flag set.
type Flags struct {
	fs *pflag.FlagSet

	configPath string
	server     string
	db         string
	pageSize   int
	timeout    time.Duration
	logLevel   string
}

// BindFlags declares the configuration flags on fs. Values are read back by
// Load after fs has been parsed.
func BindFlags(fs *pflag.FlagSet) *Flags {
	f := &Flags{fs: fs}
	fs.StringVarP(&f.configPath, "config", "c", "", "path to a JSON config file")
	fs.StringVarP(&f.server, "server", "a", DefaultServerURL, "backend base URL")
	fs.StringVar(&f.db, "db", "", "path of the local database (default "+DefaultDatabasePath()+")")
	fs.IntVar(&f.pageSize, "page-size", DefaultPageSize, "page size for lists")
	fs.DurationVar(&f.timeout, "timeout", DefaultTimeout, "per-request timeout")
	fs.StringVar(&f.logLevel, "log-level", DefaultLogLevel, "log level (debug|info|warn|error)")
	return f
}

// parseFlags copies the flags that were set explicitly into cfg.
func (f *Flags) parseFlags(cfg *Config) {
	if f.fs.Changed("server") {
		cfg.ServerURL = f.server
	}
	if f.fs.Changed("db") {
		cfg.DatabasePath = f.db
	}
	if f.fs.Changed("page-size") {
		cfg.PageSize = f.pageSize
	}
	if f.fs.Changed("timeout") {
		cfg.RequestTimeout = f.timeout
	}
	if f.fs.Changed("log-level") {
		cfg.LogLevel = f.logLevel
	}
}

// Load builds a Config from defaults, the JSON file, the process
// environment and the parsed flags, in that order.
func (f *Flags) Load() (*Config, error) {
	return f.load(os.Getenv)
}

func (f *Flags) load(getenv func(string) string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseJson(cfg, f.configPath); err != nil {
		return nil, err
	}
	parseEnv(cfg, getenv)
	f.parseFlags(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
