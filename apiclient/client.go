// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// maxBodySize caps how much of a response is read
const maxBodySize = 8 << 20

type Config struct {
	BaseURL   string
	Timeout   time.Duration
	Transport http.RoundTripper
}

// Client issues JSON and multipart requests to the remote API. It never
// retries: every failure is returned to the caller as an *Error.
type Client struct {
	baseURL string
	http    *http.Client
}

// Response is a successful (2xx) reply
type Response struct {
	Status int
	Body   json.RawMessage
}

// Decode unmarshals the response body into v
func (r *Response) Decode(v any) error {
	if len(r.Body) == 0 {
		return &Error{Reason: ReasonDecode, Status: r.Status, Message: "empty response body"}
	}
	if err := json.Unmarshal(r.Body, v); err != nil {
		return &Error{Reason: ReasonDecode, Status: r.Status, Message: "unexpected response body", Err: err}
	}
	return nil
}

func New(cfg Config) (*Client, error) {
	u, err := url.Parse(cfg.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q", cfg.BaseURL)
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: cfg.Transport,
		},
	}, nil
}

// Do sends a request with an optional JSON body. body may be nil,
// json.RawMessage or []byte (sent as-is), or any value to marshal.
// The bearer token is attached only when non-empty.
func (c *Client) Do(ctx context.Context, method, path string, body any, token string) (*Response, error) {
	var reader io.Reader
	if body != nil {
		raw, err := encodeBody(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	setToken(req, token)

	return c.send(req)
}

// File is one part of a multipart upload
type File struct {
	Field   string
	Name    string
	Content io.Reader
}

// Upload posts files as multipart/form-data. The Content-Type header carries
// the multipart boundary; no JSON content type is set.
func (c *Client) Upload(ctx context.Context, path string, files []File, token string) (*Response, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, f := range files {
		part, err := mw.CreateFormFile(f.Field, f.Name)
		if err != nil {
			return nil, fmt.Errorf("failed to create form file: %w", err)
		}
		if _, err := io.Copy(part, f.Content); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", f.Name, err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", mw.FormDataContentType())
	setToken(req, token)

	return c.send(req)
}

func (c *Client) send(req *http.Request) (*Response, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, transportError(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, transportError(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &Error{
			Reason:  statusReason(resp.StatusCode),
			Status:  resp.StatusCode,
			Message: errorMessage(raw),
		}
	}

	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && !json.Valid(raw) {
		// Some endpoints answer with plain text; keep it as the message.
		return nil, &Error{Reason: ReasonDecode, Status: resp.StatusCode, Message: truncate(string(raw))}
	}

	return &Response{Status: resp.StatusCode, Body: json.RawMessage(raw)}, nil
}

func encodeBody(body any) ([]byte, error) {
	switch b := body.(type) {
	case json.RawMessage:
		return b, nil
	case []byte:
		return b, nil
	default:
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		return raw, nil
	}
}

func setToken(req *http.Request, token string) {
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

func transportError(err error) *Error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &Error{Reason: ReasonTimeout, Err: err}
	}
	return &Error{Reason: ReasonNetwork, Err: err}
}

func statusReason(status int) Reason {
	switch {
	case status == http.StatusUnauthorized:
		return ReasonUnauthorized
	case status >= 500:
		return ReasonServer
	default:
		return ReasonClient
	}
}

// errorMessage pulls "message" or "error" out of a JSON error body, falling
// back to the raw text.
func errorMessage(raw []byte) string {
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(raw, &body) == nil {
		if body.Message != "" {
			return body.Message
		}
		if body.Error != "" {
			return body.Error
		}
	}
	return truncate(strings.TrimSpace(string(raw)))
}

func truncate(s string) string {
	const max = 300
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
