// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package middleware holds HTTP plumbing shared by the API client and the
test backend.

# Client Side

LoggingTransport is an http.RoundTripper that logs each API call:

	client, err := apiclient.New(apiclient.Config{
		BaseURL:   cfg.BaseURL,
		Transport: middleware.NewLoggingTransport(nil),
	})

Log fields: method, path, status, duration_ms, and error for calls that got
no response. Request headers are never logged.

# Server Side

Used by the in-process test backend (package apitest):

  - WithLogging: handler wrapper logging method, path and duration
  - JSONResponse: write a JSON body with a status
  - ErrorResponse: write {"error": ..., "message": ...}
  - BearerToken: extract the token of an Authorization header
*/
package middleware
