// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/danielhkuo/abri/apiclient"
	"github.com/danielhkuo/abri/cliparse"
	"github.com/danielhkuo/abri/kvstore"
	"github.com/danielhkuo/abri/middleware"
)

// SetupTestStore opens a fresh SQLite-backed store in a temp directory
func SetupTestStore(t *testing.T) kvstore.Store {
	t.Helper()

	store, err := kvstore.Open(context.Background(), cliparse.StoreSQLite, filepath.Join(t.TempDir(), "abri.db"))
	if err != nil {
		t.Fatalf("Failed to open test store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	return store
}

// GetTestConfig returns a standard test configuration pointing at baseURL
func GetTestConfig(t *testing.T, baseURL string) cliparse.Config {
	t.Helper()
	return cliparse.Config{
		BaseURL:   baseURL,
		StoreType: cliparse.StoreSQLite,
		StoreURL:  filepath.Join(t.TempDir(), "abri.db"),
		Timeout:   5 * time.Second,
		LogLevel:  "error",
		LogFormat: "text",
	}
}

// NewTestClient returns an API client for baseURL with a short timeout
func NewTestClient(t *testing.T, baseURL string) *apiclient.Client {
	t.Helper()

	cfg := GetTestConfig(t, baseURL)
	client, err := apiclient.New(apiclient.Config{
		BaseURL:   cfg.BaseURL,
		Timeout:   cfg.Timeout,
		Transport: middleware.NewLoggingTransport(nil),
	})
	if err != nil {
		t.Fatalf("Failed to create test client: %v", err)
	}
	return client
}

// MakeRequest creates an HTTP test request
func MakeRequest(method, path string, body any, headers map[string]string) *http.Request {
	var req *http.Request
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, bytes.NewReader(jsonBody))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return req
}

// AssertStatus checks that the response has the expected status code
func AssertStatus(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Errorf("Expected status %d, got %d", expected, resp.StatusCode)
	}
}

// AssertJSON decodes the response body into the provided value
func AssertJSON(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode JSON response: %v", err)
	}
}

// Do sends req to a live server at baseURL
func Do(t *testing.T, baseURL string, req *http.Request) *http.Response {
	t.Helper()

	out, err := http.NewRequestWithContext(req.Context(), req.Method, baseURL+req.URL.RequestURI(), req.Body)
	if err != nil {
		t.Fatalf("Failed to build request: %v", err)
	}
	out.Header = req.Header.Clone()

	resp, err := http.DefaultClient.Do(out)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}
