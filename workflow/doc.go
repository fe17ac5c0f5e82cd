// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package workflow implements the request lifecycle: submit, fall back to a
locally staged copy when the server cannot take the request, reconcile on
display, retry, and cancel.

# Request Kinds

Each Kind names its store keys and endpoints:

	housing-addition  demandeAjoutLogementId / demandeAjoutLogement
	                  POST /demandes-ajout-logement
	                  GET  /demandes-ajout-logement/{id}
	                  POST /demandes-ajout-logement/{id}/cancel
	donation          donId / donTemporaire
	                  POST /dons, GET /dons (status by listing)
	logement          logementId / logementTemporaire
	                  POST /logements

# Phases

	Idle → Submitting → Submitted | StoredLocally | Rejected
	StoredLocally → Submitting (Retry) → Submitted | StoredLocally
	Submitted → Idle (Cancel, Complete)

Submitted means the server identifier is stored and no staged payload
remains. StoredLocally means the payload sits in the staged slot and no
identifier was stored. Rejected is a definitive 4xx answer: nothing is
staged, the user has to fix the form.

# Staged Payloads

The staged slot holds one models.PendingRequest per kind. Its Payload field
carries the submitted JSON as text, so Retry sends exactly the bytes the
first attempt sent. A second failed submit of the same kind replaces the
slot.

# Concurrency

Submit, SubmitPrepared, Retry, Cancel and Stage hold a per-kind in-flight
flag. A second call for the same kind while one is running returns
ErrInProgress at once. Different kinds proceed independently. The prepare
step of SubmitPrepared, such as an image upload, runs while the flag is
held.

# Errors

Every operation returns the state to render along with an error to show.
Network failures come back as *apiclient.Error, so callers can tell a
timeout from an unreachable server:

	state, err := wf.Submit(ctx, workflow.KindDonation, payload, token)
	if err != nil {
		fmt.Println(apiclient.UserMessage(err))
	}
	render(state)
*/
package workflow
