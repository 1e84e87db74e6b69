// Package config loads runtime configuration for the SyncBridge CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file named by -c or --config.
//  3. Environment: SYNCBRIDGE_SERVER, SYNCBRIDGE_DB, SYNCBRIDGE_LOG_LEVEL.
//  4. Command-line flags that were set explicitly.
//
// Supported flags
//
//	-a, --server string      backend base URL
//	    --db string          path of the local SQLite database
//	    --page-size int      page size for form and message lists
//	    --timeout duration   per-request timeout
//	    --log-level string   debug, info, warn or error
//
// # JSON schema
//
// Durations are timex.Duration, so they can be strings like "15s" or
// integer nanoseconds:
//
//	{
//	  "server_url": "http://localhost:8000",
//	  "database_path": "/home/me/.config/syncbridge/syncbridge.db",
//	  "page_size": 20,
//	  "request_timeout": "15s",
//	  "log_level": "warn"
//	}
package config
