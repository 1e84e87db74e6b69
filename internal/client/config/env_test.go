package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseEnv(t *testing.T) {
	env := map[string]string{
		EnvServer:   "https://env.example",
		EnvLogLevel: "error",
	}
	cfg := &Config{ServerURL: "http://default", DatabasePath: "/default.db", LogLevel: "warn"}
	parseEnv(cfg, func(k string) string { return env[k] })

	assert.Equal(t, "https://env.example", cfg.ServerURL)
	assert.Equal(t, "/default.db", cfg.DatabasePath, "unset variables keep values")
	assert.Equal(t, "error", cfg.LogLevel)
}
