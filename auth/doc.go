// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package auth owns the credential keys of the local store and generates the
identifiers used by the client.

# Session

Session is the only writer of the credential keys:

	userToken  bearer token sent as "Authorization: Bearer <token>"
	userId     identifier of the logged-in user
	userRole   beneficiaire, hebergeur, professionnel or admin

Login writes them, Logout removes all three at once:

	session := auth.NewSession(store)
	err := session.Login(ctx, token, userID, role)

Callers read the token once and pass it explicitly to the workflow:

	token := session.Token(ctx)
	state, err := wf.Submit(ctx, workflow.KindHousingAddition, payload, token)

# Identifiers

  - NewLocalID: random UUID shown for a payload staged while offline
  - NewAttemptID: ULID attached to the log lines of one workflow call
  - GenerateID: random hex identifier (used by the test backend)

# Errors

	ErrInvalidToken  token empty or containing whitespace
	ErrNotLoggedIn   no token stored
*/
package auth
