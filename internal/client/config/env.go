package config

const (
	EnvServer   = "SYNCBRIDGE_SERVER"
	EnvDatabase = "SYNCBRIDGE_DB"
	EnvLogLevel = "SYNCBRIDGE_LOG_LEVEL"
)

// parseEnv overlays cfg with non-empty environment variables.
func parseEnv(cfg *Config, getenv func(string) string) {
	if v := getenv(EnvServer); v != "" {
		cfg.ServerURL = v
	}
	if v := getenv(EnvDatabase); v != "" {
		cfg.DatabasePath = v
	}
	if v := getenv(EnvLogLevel); v != "" {
		cfg.LogLevel = v
	}
}
