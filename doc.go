// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package main provides the entry point for the abri command line.

abri submits housing-addition requests, donations and logements to the
Abri backend. When the backend cannot be reached the request is kept in a
local store, and the next "abri status" shows it as stored locally until
"abri retry" sends it.

# Running

	abri login --token "$TOKEN" --user-id 42 --role hebergeur
	abri submit housing-addition --file demande.yaml
	abri status housing-addition

# Configuration

Every setting has a flag and an environment variable; a .env file in the
working directory is loaded first.

  - ABRI_BASE_URL (--base-url): backend root (default: http://localhost:3000)
  - ABRI_STORE_TYPE (--store): sqlite, postgres, bolt or memory (default: sqlite)
  - ABRI_STORE_URL (--store-url): store location (default: abri.db in the user config dir)
  - ABRI_TIMEOUT (--timeout): per-request timeout (default: 30s)
  - ABRI_LOG_LEVEL (--log-level), ABRI_LOG_FORMAT (--log-format)

# Architecture

  - cli: cobra command tree
  - workflow: submit, stage, reconcile, retry and cancel per request kind
  - uploads: image uploads ahead of logement and donation creation
  - apiclient: HTTP client with typed failure reasons
  - kvstore: local key/value store (SQL, bbolt, memory)
  - auth: session token and identifiers
  - validate: form field rules
  - models: shared types
  - db: SQL connections and schema
  - middleware: HTTP logging and JSON helpers
  - cliparse: configuration
  - logging: slog setup
  - apitest, testutil: in-process backend and test helpers

See package documentation for each component.
*/
package main
