// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package models defines the domain, request and response types shared by the
client packages.

# Domain Types

  - PendingRequest: a payload staged locally after a failed submission
  - SubmittedRequest: a request the server accepted (id, status, echo)
  - State: what a screen renders for one request kind
  - User: the authenticated user (id, role)
  - Donation: one entry of the donation listing

# Response Types

  - UploadResponse: url or urls of uploaded images
  - CancelResponse: message
  - ErrorResponse: error, message

# Constants

Workflow phases:

	PhaseIdle          = "idle"
	PhaseSubmitting    = "submitting"
	PhaseSubmitted     = "submitted"
	PhaseStoredLocally = "stored_locally"
	PhaseRejected      = "rejected"

Request status values:

	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"

The endpoints spell statuses differently ("en_attente", "approuvé",
"refusé", ...); NormalizeStatus maps them onto the three values above.

Roles:

	RoleBeneficiary  = "beneficiaire"
	RoleHost         = "hebergeur"
	RoleProfessional = "professionnel"
	RoleAdmin        = "admin"
*/
package models
