package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, "http://localhost:8000", c.ServerURL)
	assert.Equal(t, 20, c.PageSize)
	assert.Equal(t, 15*time.Second, c.RequestTimeout)
	assert.Equal(t, "warn", c.LogLevel)
	assert.Equal(t, "syncbridge.db", filepath.Base(c.DatabasePath))
	require.NoError(t, c.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{name: "relative url", modify: func(c *Config) { c.ServerURL = "localhost:8000" }},
		{name: "ftp url", modify: func(c *Config) { c.ServerURL = "ftp://host" }},
		{name: "no host", modify: func(c *Config) { c.ServerURL = "http://" }},
		{name: "empty db", modify: func(c *Config) { c.DatabasePath = "" }},
		{name: "zero page size", modify: func(c *Config) { c.PageSize = 0 }},
		{name: "negative timeout", modify: func(c *Config) { c.RequestTimeout = -time.Second }},
		{name: "unknown level", modify: func(c *Config) { c.LogLevel = "loud" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var c Config
			c.LoadDefaults()
			tt.modify(&c)
			require.Error(t, c.Validate())
		})
	}
}
