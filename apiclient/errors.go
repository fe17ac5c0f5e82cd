// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package apiclient

import (
	"errors"
	"fmt"
	"net/http"
)

// Reason classifies a failed call
type Reason string

const (
	// ReasonNetwork: the request never got an HTTP response
	ReasonNetwork Reason = "network"
	// ReasonTimeout: the per-request deadline expired
	ReasonTimeout Reason = "timeout"
	// ReasonServer: 5xx response
	ReasonServer Reason = "server"
	// ReasonUnauthorized: 401 response (missing or expired token)
	ReasonUnauthorized Reason = "unauthorized"
	// ReasonClient: any other 4xx response
	ReasonClient Reason = "client"
	// ReasonDecode: 2xx response whose body is not the expected JSON
	ReasonDecode Reason = "decode"
)

// Error is returned for every failed call
type Error struct {
	Reason  Reason
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Status != 0 && e.Message != "":
		return fmt.Sprintf("%s error (%d): %s", e.Reason, e.Status, e.Message)
	case e.Status != 0:
		return fmt.Sprintf("%s error (%d)", e.Reason, e.Status)
	case e.Err != nil:
		return fmt.Sprintf("%s error: %v", e.Reason, e.Err)
	default:
		return fmt.Sprintf("%s error: %s", e.Reason, e.Message)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Retryable reports whether sending the same request again may succeed.
// Client errors are final except 408 and 429.
func (e *Error) Retryable() bool {
	if e.Reason != ReasonClient {
		return true
	}
	return e.Status == http.StatusRequestTimeout || e.Status == http.StatusTooManyRequests
}

// ReasonOf returns the reason carried by err, or ReasonNetwork for errors
// that did not come from this package.
func ReasonOf(err error) Reason {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Reason
	}
	return ReasonNetwork
}

// IsRetryable is the package-level form of (*Error).Retryable
func IsRetryable(err error) bool {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Retryable()
	}
	return err != nil
}

// UserMessage returns the text shown to the user for err
func UserMessage(err error) string {
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		return err.Error()
	}
	switch apiErr.Reason {
	case ReasonNetwork:
		return "server unreachable"
	case ReasonTimeout:
		return "server did not answer in time"
	case ReasonUnauthorized:
		return "session expired, please log in again"
	}
	if apiErr.Message != "" {
		return apiErr.Message
	}
	return http.StatusText(apiErr.Status)
}
