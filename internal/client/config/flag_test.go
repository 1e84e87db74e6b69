package config

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parsed(t *testing.T, args ...string) *Flags {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	f := BindFlags(fs)
	require.NoError(t, fs.Parse(args))
	return f
}

func noEnv(string) string { return "" }

func TestLoad_Precedence(t *testing.T) {
	path := writeTempJSON(t, "", "", map[string]any{
		"server_url":      "http://json:1",
		"database_path":   "/json.db",
		"page_size":       30,
		"request_timeout": "5s",
		"log_level":       "info",
	})
	env := map[string]string{EnvServer: "http://env:2", EnvDatabase: "/env.db"}

	tests := []struct {
		name     string
		args     []string
		env      map[string]string
		expected *Config
	}{
		{
			name: "json only",
			args: []string{"-c", path},
			expected: &Config{
				ServerURL: "http://json:1", DatabasePath: "/json.db", PageSize: 30,
				RequestTimeout: 5 * time.Second, LogLevel: "info",
			},
		},
		{
			name: "env beats json",
			args: []string{"--config", path},
			env:  env,
			expected: &Config{
				ServerURL: "http://env:2", DatabasePath: "/env.db", PageSize: 30,
				RequestTimeout: 5 * time.Second, LogLevel: "info",
			},
		},
		{
			name: "flags beat env",
			args: []string{"--config=" + path, "-a", "http://flag:3", "--page-size", "5", "--timeout", "1m", "--log-level", "debug"},
			env:  env,
			expected: &Config{
				ServerURL: "http://flag:3", DatabasePath: "/env.db", PageSize: 5,
				RequestTimeout: time.Minute, LogLevel: "debug",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := parsed(t, tt.args...)
			cfg, err := f.load(func(k string) string { return tt.env[k] })
			require.NoError(t, err)
			assert.Empty(t, cmp.Diff(tt.expected, cfg))
		})
	}
}

func TestLoad_FlagDefaultsDoNotOverride(t *testing.T) {
	f := parsed(t)
	cfg, err := f.load(func(k string) string {
		if k == EnvServer {
			return "http://env:2"
		}
		return ""
	})
	require.NoError(t, err)
	assert.Equal(t, "http://env:2", cfg.ServerURL, "unset --server keeps the env value")
	assert.Equal(t, DefaultPageSize, cfg.PageSize)
}

func TestLoad_Errors(t *testing.T) {
	_, err := parsed(t, "-c", "/does/not/exist.json").load(noEnv)
	require.Error(t, err)

	_, err = parsed(t, "-a", "not a url").load(noEnv)
	require.Error(t, err)

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	BindFlags(fs)
	require.Error(t, fs.Parse([]string{"--page-size", "abc"}))
}
