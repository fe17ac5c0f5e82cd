// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package cliparse handles command-line argument parsing and configuration.

# Configuration

ParseFlags returns a Config struct with all settings:

	cfg, err := cliparse.ParseFlags(os.Args[1:])

Commands built on cobra share the same flags through BindFlags and call
Resolve once the flags are parsed:

	cliparse.BindFlags(root.PersistentFlags(), &cfg)
	resolved, err := cliparse.Resolve(cfg)

# Config Fields

  - BaseURL: remote API root (default: http://localhost:3000)
  - StoreType: sqlite (default), postgres, bolt or memory
  - StoreURL: sqlite/bolt file path or postgres DSN
  - Timeout: per-request HTTP timeout (default: 30s)
  - LogLevel: debug, info (default), warn, error
  - LogFormat: text (default) or json
  - EnvFile: dotenv file to load before reading the environment

# CLI Flags

	-u, --base-url   API base URL
	-s, --store      Local store type
	--store-url      Local store path or DSN
	--timeout        Per-request HTTP timeout
	--log-level      Log level
	--log-format     Log format
	--env-file       Dotenv file

# Environment Variables

Flags fall back to environment variables:

	ABRI_BASE_URL   → --base-url
	ABRI_STORE_TYPE → --store
	ABRI_STORE_URL  → --store-url
	ABRI_TIMEOUT    → --timeout
	ABRI_LOG_LEVEL  → --log-level
	ABRI_LOG_FORMAT → --log-format
	ABRI_ENV_FILE   → --env-file

A .env file in the working directory is loaded when present. It never
overrides variables already set in the process environment.

# Validation

Resolve returns an error when a value is present but invalid, and when
postgres is selected without a DSN.
*/
package cliparse
