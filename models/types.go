// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package models

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"
)

// Workflow phase constants
type Phase string

const (
	PhaseIdle          Phase = "idle"
	PhaseSubmitting    Phase = "submitting"
	PhaseSubmitted     Phase = "submitted"
	PhaseStoredLocally Phase = "stored_locally"
	PhaseRejected      Phase = "rejected"
)

// Request status constants, shared by every request kind
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Role constants for the authenticated user
const (
	RoleBeneficiary  = "beneficiaire"
	RoleHost         = "hebergeur"
	RoleProfessional = "professionnel"
	RoleAdmin        = "admin"
)

// NormalizeStatus maps the spellings used by the different endpoints onto
// the three-state enum. Unknown values are treated as pending.
func NormalizeStatus(s string) Status {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "approved", "approuve", "approuvé", "approuvee", "approuvée",
		"accepte", "accepté", "acceptee", "acceptée", "valide", "validé", "validee", "validée":
		return StatusApproved
	case "rejected", "refuse", "refusé", "refusee", "refusée", "rejete", "rejeté", "rejetee", "rejetée":
		return StatusRejected
	default:
		return StatusPending
	}
}

// Terminal reports whether no further server-side transition is expected.
func (s Status) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// Domain types

// PendingRequest is a payload staged in the key-value store because the
// server could not accept it. Payload holds the exact submitted JSON text.
type PendingRequest struct {
	LocalID  string    `json:"local_id"`
	Kind     string    `json:"kind"`
	Status   Status    `json:"status"`
	StagedAt time.Time `json:"staged_at"`
	Payload  string    `json:"payload"`
}

// SubmittedRequest is a request the server accepted.
type SubmittedRequest struct {
	ID      string          `json:"id"`
	Status  Status          `json:"status"`
	Payload json.RawMessage `json:"payload"`
}

// State is what a screen renders for one request kind.
type State struct {
	Kind     string          `json:"kind"`
	Phase    Phase           `json:"phase"`
	ID       string          `json:"id,omitempty"`
	LocalID  string          `json:"local_id,omitempty"`
	Status   Status          `json:"status,omitempty"`
	Payload  json.RawMessage `json:"payload,omitempty"`
	StagedAt *time.Time      `json:"staged_at,omitempty"`
	Message  string          `json:"message,omitempty"`
}

type User struct {
	ID   string `json:"id"`
	Role string `json:"role"`
}

type Donation struct {
	ID          string     `json:"id"`
	Title       string     `json:"titre"`
	Description string     `json:"description"`
	Category    string     `json:"categorie"`
	City        string     `json:"ville,omitempty"`
	Status      string     `json:"statut,omitempty"`
	Image       string     `json:"image,omitempty"`
	CreatedAt   *time.Time `json:"createdAt,omitempty"`
}

// Response types

type UploadResponse struct {
	URL  string   `json:"url,omitempty"`
	URLs []string `json:"urls,omitempty"`
}

type CancelResponse struct {
	Message string `json:"message"`
}

// Error response

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// DecodeSubmitted extracts the identifier and status from a server echo of
// a request. The identifier may be sent as "id" or "_id", as a string or a
// number; the status as "status" or "statut".
func DecodeSubmitted(body []byte) (SubmittedRequest, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return SubmittedRequest{}, err
	}

	sub := SubmittedRequest{
		ID:      LookupID(fields),
		Status:  StatusPending,
		Payload: json.RawMessage(body),
	}
	for _, key := range []string{"status", "statut"} {
		if raw, ok := fields[key]; ok {
			var s string
			if json.Unmarshal(raw, &s) == nil {
				sub.Status = NormalizeStatus(s)
				break
			}
		}
	}
	return sub, nil
}

// LookupID returns the identifier of a decoded JSON object, or "".
func LookupID(fields map[string]json.RawMessage) string {
	for _, key := range []string{"id", "_id"} {
		raw, ok := fields[key]
		if !ok {
			continue
		}
		var s string
		if json.Unmarshal(raw, &s) == nil && s != "" {
			return s
		}
		var n json.Number
		if json.Unmarshal(raw, &n) == nil {
			if _, err := strconv.ParseFloat(n.String(), 64); err == nil {
				return n.String()
			}
		}
	}
	return ""
}

// DecodeList returns the objects of a listing body. Listings come either as
// a bare array or wrapped as {"dons": [...]} or {"data": [...]}.
func DecodeList(body []byte) ([]json.RawMessage, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(body, &items); err == nil {
		return items, nil
	}

	var wrapped map[string]json.RawMessage
	if err := json.Unmarshal(body, &wrapped); err != nil {
		return nil, err
	}
	for _, key := range []string{"dons", "data", "items"} {
		if raw, ok := wrapped[key]; ok {
			if err := json.Unmarshal(raw, &items); err != nil {
				return nil, err
			}
			return items, nil
		}
	}
	return nil, errors.New("listing has no array field")
}

// UnmarshalJSON accepts "id" or "_id", as a string or a number.
func (d *Donation) UnmarshalJSON(b []byte) error {
	type donation Donation
	var v struct {
		donation
		ID json.RawMessage `json:"id"`
	}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(b, &fields); err != nil {
		return err
	}

	*d = Donation(v.donation)
	d.ID = LookupID(fields)
	return nil
}
