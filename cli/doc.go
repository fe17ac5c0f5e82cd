// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package cli implements the abri command line.

# Commands

	abri login --token T [--user-id U] [--role R]
	abri logout
	abri whoami

	abri submit   <kind> --file form.yaml
	abri status   <kind>
	abri retry    <kind>
	abri cancel   <kind>
	abri complete <kind>
	abri discard  <kind>

	abri logement create --file f [--image a.jpg ...]
	abri don create --file f [--image photo.jpg]
	abri don list

<kind> is one of housing-addition, donation, logement.

# Configuration

Global flags come from cliparse (--base-url, --store, --store-url,
--timeout, --log-level, --log-format, --env-file) and fall back to ABRI_*
environment variables and a .env file. --json switches output to JSON.

# Form Files

.json files are sent byte for byte. .jsonc files may carry comments and
trailing commas. .yaml and .yml files are converted to a JSON object.

Each command opens the local store, does its work and closes it, so state
carries over from one invocation to the next only through the store.
*/
package cli
