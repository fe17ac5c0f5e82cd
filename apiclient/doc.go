// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package apiclient issues authenticated requests to the remote API.

# Requests

	client, err := apiclient.New(apiclient.Config{BaseURL: cfg.BaseURL, Timeout: cfg.Timeout})
	resp, err := client.Do(ctx, http.MethodPost, "/dons", payload, token)

JSON bodies are sent with "Content-Type: application/json". Upload sends
multipart/form-data instead, with the boundary in the Content-Type header.
"Authorization: Bearer <token>" is attached whenever the token is not
empty; the client never checks token presence itself.

# Failures

There are no retries and no backoff. Every failure is an *Error with a
Reason:

	network       no HTTP response (offline, connection reset)
	timeout       the per-request timeout expired
	server        5xx
	unauthorized  401
	client        other 4xx
	decode        2xx with a body that is not JSON

Message holds the server's "message" or "error" field, or the raw response
text when the body is not JSON. Retryable is false only for client errors
other than 408 and 429, which callers treat as a final rejection.
*/
package apiclient
