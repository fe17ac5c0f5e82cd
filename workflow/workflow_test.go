// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/danielhkuo/abri/apiclient"
	"github.com/danielhkuo/abri/kvstore"
	"github.com/danielhkuo/abri/models"
	"github.com/danielhkuo/abri/validate"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const (
	testToken = "token-123"

	housingPayload = `{"nom":"Dupont","prenom":"Élodie","email":"elodie@example.fr","telephone":"06 12 34 56 78","adresse":"3 rue des Lilas","codePostal":"75011","ville":"Paris"}`
	donationPayload = `{"titre":"Canapé","description":"Trois places","categorie":"meubles"}`
)

var fixedNow = time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)

type call struct {
	Method string
	Path   string
	Body   []byte
	Token  string
}

type fakeAPI struct {
	mu      sync.Mutex
	calls   []call
	handler func(c call) (*apiclient.Response, error)
}

func (f *fakeAPI) Do(_ context.Context, method, path string, body any, token string) (*apiclient.Response, error) {
	c := call{Method: method, Path: path, Token: token}
	if raw, ok := body.(json.RawMessage); ok {
		c.Body = append([]byte(nil), raw...)
	}

	f.mu.Lock()
	f.calls = append(f.calls, c)
	h := f.handler
	f.mu.Unlock()

	return h(c)
}

func (f *fakeAPI) Calls() []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]call(nil), f.calls...)
}

func (f *fakeAPI) SetHandler(h func(c call) (*apiclient.Response, error)) {
	f.mu.Lock()
	f.handler = h
	f.mu.Unlock()
}

func respond(status int, body string) func(call) (*apiclient.Response, error) {
	return func(call) (*apiclient.Response, error) {
		return &apiclient.Response{Status: status, Body: json.RawMessage(body)}, nil
	}
}

func fail(err error) func(call) (*apiclient.Response, error) {
	return func(call) (*apiclient.Response, error) { return nil, err }
}

var errUnreachable = &apiclient.Error{Reason: apiclient.ReasonNetwork, Err: errors.New("dial tcp 127.0.0.1:3000: connect: connection refused")}

func setup(t *testing.T, h func(call) (*apiclient.Response, error), opts ...Option) (*Workflow, *fakeAPI, *kvstore.MemoryStore) {
	t.Helper()
	store := kvstore.NewMemoryStore()
	api := &fakeAPI{handler: h}
	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	return New(store, api, opts...), api, store
}

func stage(t *testing.T, wf *Workflow, kind, payload string) models.State {
	t.Helper()
	state, err := wf.Stage(context.Background(), kind, []byte(payload), nil)
	require.NoError(t, err)
	return state
}

func TestSubmit_Success(t *testing.T) {
	ctx := context.Background()
	wf, api, store := setup(t, respond(http.StatusCreated, `{"id":"d1","status":"en_attente"}`))
	stage(t, wf, KindHousingAddition, housingPayload)

	state, err := wf.Submit(ctx, KindHousingAddition, []byte(housingPayload), testToken)
	require.NoError(t, err)

	assert.Equal(t, models.PhaseSubmitted, state.Phase)
	assert.Equal(t, "d1", state.ID)
	assert.Equal(t, models.StatusPending, state.Status)

	id, ok := store.Get(ctx, "demandeAjoutLogementId")
	assert.True(t, ok)
	assert.Equal(t, "d1", id)
	_, ok = store.Get(ctx, "demandeAjoutLogement")
	assert.False(t, ok, "staged payload must be cleared")

	calls := api.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, http.MethodPost, calls[0].Method)
	assert.Equal(t, "/demandes-ajout-logement", calls[0].Path)
	assert.Equal(t, testToken, calls[0].Token)
}

func TestSubmit_NetworkFailureStagesPayload(t *testing.T) {
	ctx := context.Background()
	wf, _, store := setup(t, fail(errUnreachable))

	state, err := wf.Submit(ctx, KindHousingAddition, []byte(housingPayload), testToken)
	require.Error(t, err)
	assert.Equal(t, apiclient.ReasonNetwork, apiclient.ReasonOf(err))

	assert.Equal(t, models.PhaseStoredLocally, state.Phase)
	assert.NotEmpty(t, state.LocalID)
	assert.Empty(t, state.ID)
	assert.Equal(t, models.StatusPending, state.Status)
	assert.Equal(t, "server unreachable", state.Message)
	require.NotNil(t, state.StagedAt)
	assert.Equal(t, fixedNow, *state.StagedAt)

	_, ok := store.Get(ctx, "demandeAjoutLogementId")
	assert.False(t, ok, "no identifier may be stored")

	pending, ok := wf.Pending(ctx, KindHousingAddition)
	require.True(t, ok)
	assert.Equal(t, housingPayload, pending.Payload)
	assert.Equal(t, state.LocalID, pending.LocalID)
}

func TestSubmit_FailureReasons(t *testing.T) {
	tests := []struct {
		name  string
		h     func(call) (*apiclient.Response, error)
		phase models.Phase
	}{
		{"timeout", fail(&apiclient.Error{Reason: apiclient.ReasonTimeout, Err: context.DeadlineExceeded}), models.PhaseStoredLocally},
		{"server error", fail(&apiclient.Error{Reason: apiclient.ReasonServer, Status: 503}), models.PhaseStoredLocally},
		{"unauthorized", fail(&apiclient.Error{Reason: apiclient.ReasonUnauthorized, Status: 401}), models.PhaseStoredLocally},
		{"too many requests", fail(&apiclient.Error{Reason: apiclient.ReasonClient, Status: 429}), models.PhaseStoredLocally},
		{"plain error", fail(errors.New("boom")), models.PhaseStoredLocally},
		{"no id in answer", respond(http.StatusCreated, `{"message":"ok"}`), models.PhaseStoredLocally},
		{"not json", respond(http.StatusCreated, `[1,2]`), models.PhaseStoredLocally},
		{"unprocessable", fail(&apiclient.Error{Reason: apiclient.ReasonClient, Status: 422, Message: "email déjà utilisé"}), models.PhaseRejected},
		{"bad request", fail(&apiclient.Error{Reason: apiclient.ReasonClient, Status: 400}), models.PhaseRejected},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			wf, _, store := setup(t, tc.h)

			state, err := wf.Submit(ctx, KindHousingAddition, []byte(housingPayload), testToken)
			require.Error(t, err)
			assert.Equal(t, tc.phase, state.Phase)

			_, staged := store.Get(ctx, "demandeAjoutLogement")
			assert.Equal(t, tc.phase == models.PhaseStoredLocally, staged)
			_, hasID := store.Get(ctx, "demandeAjoutLogementId")
			assert.False(t, hasID)
		})
	}
}

func TestSubmit_RejectedCarriesServerMessage(t *testing.T) {
	wf, _, _ := setup(t, fail(&apiclient.Error{Reason: apiclient.ReasonClient, Status: 422, Message: "email déjà utilisé"}))

	state, err := wf.Submit(context.Background(), KindHousingAddition, []byte(housingPayload), testToken)
	require.Error(t, err)
	assert.Equal(t, models.PhaseRejected, state.Phase)
	assert.Equal(t, "email déjà utilisé", state.Message)
	assert.JSONEq(t, housingPayload, string(state.Payload))
}

func TestSubmit_ValidationBlocksNetwork(t *testing.T) {
	ctx := context.Background()
	wf, api, store := setup(t, respond(http.StatusCreated, `{"id":"d1"}`))

	payload := `{"nom":"Dupont","prenom":"","email":"pas-un-email","telephone":"12","adresse":"x","codePostal":"750","ville":"Paris"}`
	state, err := wf.Submit(ctx, KindHousingAddition, []byte(payload), testToken)

	var errs validate.Errors
	require.True(t, errors.As(err, &errs))
	assert.Equal(t, validate.MsgRequired, errs["prenom"])
	assert.Equal(t, validate.MsgEmail, errs["email"])
	assert.Equal(t, validate.MsgPhone, errs["telephone"])
	assert.Equal(t, validate.MsgPostalCode, errs["codePostal"])

	assert.Equal(t, models.PhaseIdle, state.Phase)
	assert.Empty(t, api.Calls())
	assert.Equal(t, 0, store.Len())
}

func TestSubmit_UnknownKind(t *testing.T) {
	wf, api, _ := setup(t, respond(http.StatusCreated, `{"id":"d1"}`))

	_, err := wf.Submit(context.Background(), "colis", []byte(`{}`), testToken)
	assert.ErrorIs(t, err, ErrUnknownKind)
	assert.Empty(t, api.Calls())
}

func TestSubmit_ObserverSeesPhases(t *testing.T) {
	var mu sync.Mutex
	var phases []models.Phase
	observer := ObserverFunc(func(kind string, phase models.Phase) {
		mu.Lock()
		defer mu.Unlock()
		phases = append(phases, phase)
	})

	wf, api, _ := setup(t, fail(errUnreachable), WithObserver(observer))
	_, err := wf.Submit(context.Background(), KindDonation, []byte(donationPayload), testToken)
	require.Error(t, err)

	api.SetHandler(respond(http.StatusCreated, `{"_id":"don-1"}`))
	_, err = wf.Retry(context.Background(), KindDonation, testToken)
	require.NoError(t, err)

	assert.Equal(t, []models.Phase{
		models.PhaseSubmitting, models.PhaseStoredLocally,
		models.PhaseSubmitting, models.PhaseSubmitted,
	}, phases)
}

func TestSubmit_ConcurrentSameKindRejected(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	wf, api, _ := setup(t, func(c call) (*apiclient.Response, error) {
		if c.Path == "/dons" {
			return &apiclient.Response{Status: http.StatusCreated, Body: json.RawMessage(`{"_id":"don-1"}`)}, nil
		}
		close(started)
		<-release
		return &apiclient.Response{Status: http.StatusCreated, Body: json.RawMessage(`{"id":"d1"}`)}, nil
	})

	type result struct {
		state models.State
		err   error
	}
	done := make(chan result, 1)
	go func() {
		state, err := wf.Submit(context.Background(), KindHousingAddition, []byte(housingPayload), testToken)
		done <- result{state, err}
	}()
	<-started

	_, err := wf.Submit(context.Background(), KindHousingAddition, []byte(housingPayload), testToken)
	assert.ErrorIs(t, err, ErrInProgress)

	// other kinds are not blocked
	state, err := wf.Submit(context.Background(), KindDonation, []byte(donationPayload), testToken)
	require.NoError(t, err)
	assert.Equal(t, "don-1", state.ID)

	close(release)
	first := <-done
	require.NoError(t, first.err)
	assert.Equal(t, models.PhaseSubmitted, first.state.Phase)

	// the guard is released afterwards
	api.SetHandler(respond(http.StatusCreated, `{"id":"d2"}`))
	state, err = wf.Submit(context.Background(), KindHousingAddition, []byte(housingPayload), testToken)
	require.NoError(t, err)
	assert.Equal(t, "d2", state.ID)
}

func TestSubmit_SecondFailureReplacesSlot(t *testing.T) {
	ctx := context.Background()
	wf, _, _ := setup(t, fail(errUnreachable))

	_, err := wf.Submit(ctx, KindDonation, []byte(donationPayload), testToken)
	require.Error(t, err)

	second := `{"titre":"Table","description":"Bois","categorie":"meubles"}`
	_, err = wf.Submit(ctx, KindDonation, []byte(second), testToken)
	require.Error(t, err)

	pending, ok := wf.Pending(ctx, KindDonation)
	require.True(t, ok)
	assert.Equal(t, second, pending.Payload)
}

func TestSubmitPrepared_HoldsKindDuringPrepare(t *testing.T) {
	ctx := context.Background()
	wf, api, _ := setup(t, respond(http.StatusCreated, `{"id":"l1"}`))
	logement := `{"titre":"Studio","adresse":"12 rue Mercière","ville":"Lyon","codePostal":"69002"}`

	started := make(chan struct{})
	release := make(chan struct{})
	type result struct {
		state models.State
		err   error
	}
	done := make(chan result, 1)
	go func() {
		state, err := wf.SubmitPrepared(ctx, KindLogement, []byte(logement), testToken, func(ctx context.Context, payload []byte) ([]byte, error) {
			close(started)
			<-release
			return []byte(`{"titre":"Studio","images":["/uploads/a.jpg"]}`), nil
		})
		done <- result{state, err}
	}()
	<-started

	_, err := wf.Submit(ctx, KindLogement, []byte(logement), testToken)
	assert.ErrorIs(t, err, ErrInProgress)
	_, err = wf.Stage(ctx, KindLogement, []byte(logement), nil)
	assert.ErrorIs(t, err, ErrInProgress)
	assert.Empty(t, api.Calls())

	close(release)
	first := <-done
	require.NoError(t, first.err)
	assert.Equal(t, "l1", first.state.ID)

	calls := api.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, `{"titre":"Studio","images":["/uploads/a.jpg"]}`, string(calls[0].Body))
	_, staged := wf.Pending(ctx, KindLogement)
	assert.False(t, staged)
}

func TestSubmitPrepared_Failures(t *testing.T) {
	logement := `{"titre":"Studio","adresse":"12 rue Mercière","ville":"Lyon","codePostal":"69002"}`

	t.Run("retryable failure stages the original payload", func(t *testing.T) {
		ctx := context.Background()
		wf, api, _ := setup(t, respond(http.StatusCreated, `{"id":"l1"}`))

		state, err := wf.SubmitPrepared(ctx, KindLogement, []byte(logement), testToken, func(context.Context, []byte) ([]byte, error) {
			return nil, errUnreachable
		})
		require.Error(t, err)
		assert.Equal(t, apiclient.ReasonNetwork, apiclient.ReasonOf(err))
		assert.Equal(t, models.PhaseStoredLocally, state.Phase)
		assert.Empty(t, api.Calls())

		pending, ok := wf.Pending(ctx, KindLogement)
		require.True(t, ok)
		assert.Equal(t, logement, pending.Payload)
	})

	t.Run("other failure stages nothing", func(t *testing.T) {
		ctx := context.Background()
		wf, api, _ := setup(t, respond(http.StatusCreated, `{"id":"l1"}`))
		errLocal := errors.New("open /photos/absent.jpg: file does not exist")

		state, err := wf.SubmitPrepared(ctx, KindLogement, []byte(logement), testToken, func(context.Context, []byte) ([]byte, error) {
			return nil, errLocal
		})
		assert.ErrorIs(t, err, errLocal)
		assert.Equal(t, models.PhaseIdle, state.Phase)
		assert.Empty(t, api.Calls())

		_, staged := wf.Pending(ctx, KindLogement)
		assert.False(t, staged)

		// the kind is free again
		_, err = wf.Submit(ctx, KindLogement, []byte(logement), testToken)
		require.NoError(t, err)
	})

	t.Run("validation runs before prepare", func(t *testing.T) {
		wf, _, _ := setup(t, respond(http.StatusCreated, `{"id":"l1"}`))
		prepared := false

		_, err := wf.SubmitPrepared(context.Background(), KindLogement, []byte(`{"titre":"Studio"}`), testToken, func(_ context.Context, payload []byte) ([]byte, error) {
			prepared = true
			return payload, nil
		})
		var errs validate.Errors
		require.True(t, errors.As(err, &errs))
		assert.False(t, prepared)
	})
}

func TestReconcile_ServerStateWins(t *testing.T) {
	ctx := context.Background()
	wf, api, store := setup(t, respond(http.StatusOK, `{"id":"d1","status":"approved","ville":"Paris"}`))
	require.NoError(t, store.Set(ctx, "demandeAjoutLogementId", "d1"))
	stage(t, wf, KindHousingAddition, `{"nom":"stale"}`)

	state, err := wf.Reconcile(ctx, KindHousingAddition, testToken)
	require.NoError(t, err)

	assert.Equal(t, models.PhaseSubmitted, state.Phase)
	assert.Equal(t, models.StatusApproved, state.Status)
	assert.Equal(t, "d1", state.ID)
	assert.JSONEq(t, `{"id":"d1","status":"approved","ville":"Paris"}`, string(state.Payload))

	calls := api.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, http.MethodGet, calls[0].Method)
	assert.Equal(t, "/demandes-ajout-logement/d1", calls[0].Path)

	_, ok := store.Get(ctx, "demandeAjoutLogement")
	assert.True(t, ok, "reconcile never writes to the store")
}

func TestReconcile_StagedOnly(t *testing.T) {
	ctx := context.Background()
	wf, api, _ := setup(t, respond(http.StatusOK, `{}`))
	staged := stage(t, wf, KindHousingAddition, housingPayload)

	state, err := wf.Reconcile(ctx, KindHousingAddition, testToken)
	require.NoError(t, err)

	assert.Equal(t, models.PhaseStoredLocally, state.Phase)
	assert.Equal(t, models.StatusPending, state.Status)
	assert.Equal(t, staged.LocalID, state.LocalID)
	assert.Equal(t, housingPayload, string(state.Payload))
	assert.Empty(t, api.Calls())
}

func TestReconcile_FetchFailure(t *testing.T) {
	ctx := context.Background()

	t.Run("falls back to staged payload", func(t *testing.T) {
		wf, _, store := setup(t, fail(&apiclient.Error{Reason: apiclient.ReasonServer, Status: 500}))
		require.NoError(t, store.Set(ctx, "demandeAjoutLogementId", "d1"))
		stage(t, wf, KindHousingAddition, housingPayload)

		state, err := wf.Reconcile(ctx, KindHousingAddition, testToken)
		require.Error(t, err)
		assert.Equal(t, models.PhaseStoredLocally, state.Phase)
		assert.Equal(t, models.StatusPending, state.Status)
		assert.Equal(t, housingPayload, string(state.Payload))
	})

	t.Run("idle without staged payload", func(t *testing.T) {
		wf, _, store := setup(t, fail(errUnreachable))
		require.NoError(t, store.Set(ctx, "demandeAjoutLogementId", "d1"))

		state, err := wf.Reconcile(ctx, KindHousingAddition, testToken)
		require.Error(t, err)
		assert.Equal(t, models.PhaseIdle, state.Phase)
		assert.Equal(t, "server unreachable", state.Message)
	})
}

func TestReconcile_Idle(t *testing.T) {
	wf, api, _ := setup(t, respond(http.StatusOK, `{}`))

	state, err := wf.Reconcile(context.Background(), KindHousingAddition, testToken)
	require.NoError(t, err)
	assert.Equal(t, models.State{Kind: KindHousingAddition, Phase: models.PhaseIdle}, state)
	assert.Empty(t, api.Calls())
}

func TestReconcile_Idempotent(t *testing.T) {
	ctx := context.Background()
	scenarios := map[string]func(call) (*apiclient.Response, error){
		"server reachable":   respond(http.StatusOK, `{"id":"d1","statut":"refuse"}`),
		"server unreachable": fail(errUnreachable),
	}

	for name, h := range scenarios {
		t.Run(name, func(t *testing.T) {
			wf, _, store := setup(t, h)
			require.NoError(t, store.Set(ctx, "demandeAjoutLogementId", "d1"))
			stage(t, wf, KindHousingAddition, housingPayload)

			first, err1 := wf.Reconcile(ctx, KindHousingAddition, testToken)
			second, err2 := wf.Reconcile(ctx, KindHousingAddition, testToken)
			assert.Equal(t, first, second)
			assert.Equal(t, err1 == nil, err2 == nil)
		})
	}

	t.Run("legacy staged value", func(t *testing.T) {
		wf, _, store := setup(t, respond(http.StatusOK, `{}`))
		require.NoError(t, store.Set(ctx, "demandeAjoutLogement", housingPayload))

		first, err := wf.Reconcile(ctx, KindHousingAddition, testToken)
		require.NoError(t, err)
		second, err := wf.Reconcile(ctx, KindHousingAddition, testToken)
		require.NoError(t, err)

		assert.Equal(t, models.PhaseStoredLocally, first.Phase)
		assert.NotEmpty(t, first.LocalID)
		assert.Equal(t, first, second)
	})
}

func TestReconcile_DonationFromListing(t *testing.T) {
	ctx := context.Background()
	wf, api, store := setup(t, respond(http.StatusOK, `[{"_id":"don-6","statut":"disponible"},{"_id":"don-7","statut":"approuve"}]`))
	require.NoError(t, store.Set(ctx, "donId", "don-7"))

	state, err := wf.Reconcile(ctx, KindDonation, testToken)
	require.NoError(t, err)
	assert.Equal(t, models.PhaseSubmitted, state.Phase)
	assert.Equal(t, models.StatusApproved, state.Status)
	assert.Equal(t, "/dons", api.Calls()[0].Path)

	require.NoError(t, store.Set(ctx, "donId", "don-9"))
	state, err = wf.Reconcile(ctx, KindDonation, testToken)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, models.PhaseIdle, state.Phase)
}

func TestReconcile_KindWithoutLookup(t *testing.T) {
	ctx := context.Background()
	wf, api, store := setup(t, respond(http.StatusOK, `{}`))
	require.NoError(t, store.Set(ctx, "logementId", "log-1"))

	state, err := wf.Reconcile(ctx, KindLogement, testToken)
	require.NoError(t, err)
	assert.Equal(t, models.PhaseSubmitted, state.Phase)
	assert.Equal(t, "log-1", state.ID)
	assert.Equal(t, models.StatusPending, state.Status)
	assert.Empty(t, api.Calls())
}

func TestRetry_NothingToRetry(t *testing.T) {
	wf, api, _ := setup(t, respond(http.StatusCreated, `{"id":"d1"}`))

	state, err := wf.Retry(context.Background(), KindHousingAddition, testToken)
	assert.ErrorIs(t, err, ErrNothingToRetry)
	assert.Equal(t, models.PhaseIdle, state.Phase)
	assert.Empty(t, api.Calls())
}

func TestRetry_SendsStagedBytesExactly(t *testing.T) {
	ctx := context.Background()
	// key order, spacing and escapes must survive staging
	payload := `{ "ville":"Paris",  "nom":"Dupont", "prenom":"Élodie", "email":"elodie@example.fr",
 "telephone":"+33 6 12 34 56 78", "adresse":"3 rue des Lilas à droite", "codePostal":"75011", "extra":{"b":1,"a":[true,null]} }`

	wf, api, store := setup(t, fail(errUnreachable))
	_, err := wf.Submit(ctx, KindHousingAddition, []byte(payload), testToken)
	require.Error(t, err)

	api.SetHandler(respond(http.StatusCreated, `{"id":"d9","status":"pending"}`))
	state, err := wf.Retry(ctx, KindHousingAddition, testToken)
	require.NoError(t, err)
	assert.Equal(t, models.PhaseSubmitted, state.Phase)
	assert.Equal(t, "d9", state.ID)

	calls := api.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, payload, string(calls[0].Body))
	assert.Equal(t, payload, string(calls[1].Body))

	id, _ := store.Get(ctx, "demandeAjoutLogementId")
	assert.Equal(t, "d9", id)
	_, ok := store.Get(ctx, "demandeAjoutLogement")
	assert.False(t, ok)
}

func TestRetry_FailureLeavesStagedPayload(t *testing.T) {
	ctx := context.Background()
	wf, api, store := setup(t, fail(errUnreachable))
	staged := stage(t, wf, KindDonation, donationPayload)
	before, _ := store.Get(ctx, "donTemporaire")

	for range 3 {
		state, err := wf.Retry(ctx, KindDonation, testToken)
		require.Error(t, err)
		assert.Equal(t, models.PhaseStoredLocally, state.Phase)
		assert.Equal(t, staged.LocalID, state.LocalID)
	}

	after, _ := store.Get(ctx, "donTemporaire")
	assert.Equal(t, before, after)
	assert.Len(t, api.Calls(), 3)

	// a definitive rejection does not drop the staged payload either
	api.SetHandler(fail(&apiclient.Error{Reason: apiclient.ReasonClient, Status: 400}))
	_, err := wf.Retry(ctx, KindDonation, testToken)
	require.Error(t, err)
	after, _ = store.Get(ctx, "donTemporaire")
	assert.Equal(t, before, after)
}

func TestRetry_LegacyStagedValue(t *testing.T) {
	ctx := context.Background()
	wf, api, store := setup(t, respond(http.StatusCreated, `{"_id":"don-3"}`))
	require.NoError(t, store.Set(ctx, "donTemporaire", donationPayload))

	state, err := wf.Retry(ctx, KindDonation, testToken)
	require.NoError(t, err)
	assert.Equal(t, "don-3", state.ID)
	assert.Equal(t, donationPayload, string(api.Calls()[0].Body))
}

func TestCancel(t *testing.T) {
	ctx := context.Background()
	wf, api, store := setup(t, respond(http.StatusOK, `{"message":"demande annulée"}`))
	require.NoError(t, store.Set(ctx, "demandeAjoutLogementId", "d1"))
	stage(t, wf, KindHousingAddition, housingPayload)

	state, err := wf.Cancel(ctx, KindHousingAddition, testToken)
	require.NoError(t, err)
	assert.Equal(t, models.State{Kind: KindHousingAddition, Phase: models.PhaseIdle}, state)

	calls := api.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, http.MethodPost, calls[0].Method)
	assert.Equal(t, "/demandes-ajout-logement/d1/cancel", calls[0].Path)
	assert.Equal(t, testToken, calls[0].Token)

	assert.Equal(t, 0, store.Len())

	state, err = wf.Reconcile(ctx, KindHousingAddition, testToken)
	require.NoError(t, err)
	assert.Equal(t, models.PhaseIdle, state.Phase)
}

func TestCancel_FailureLeavesStateUnchanged(t *testing.T) {
	ctx := context.Background()
	wf, _, store := setup(t, fail(&apiclient.Error{Reason: apiclient.ReasonServer, Status: 502}))
	require.NoError(t, store.Set(ctx, "demandeAjoutLogementId", "d1"))

	state, err := wf.Cancel(ctx, KindHousingAddition, testToken)
	require.Error(t, err)
	assert.Equal(t, models.PhaseSubmitted, state.Phase)
	assert.Equal(t, "d1", state.ID)

	id, ok := store.Get(ctx, "demandeAjoutLogementId")
	assert.True(t, ok)
	assert.Equal(t, "d1", id)
}

func TestCancel_Preconditions(t *testing.T) {
	ctx := context.Background()
	wf, api, store := setup(t, respond(http.StatusOK, `{}`))

	_, err := wf.Cancel(ctx, KindHousingAddition, testToken)
	assert.ErrorIs(t, err, ErrNotSubmitted)

	require.NoError(t, store.Set(ctx, "donId", "don-1"))
	_, err = wf.Cancel(ctx, KindDonation, testToken)
	assert.ErrorIs(t, err, ErrCancelUnsupported)

	assert.Empty(t, api.Calls())
}

func TestCompleteAndDiscard(t *testing.T) {
	ctx := context.Background()
	wf, _, store := setup(t, respond(http.StatusOK, `{}`))

	require.NoError(t, store.Set(ctx, "demandeAjoutLogementId", "d1"))
	stage(t, wf, KindHousingAddition, housingPayload)
	require.NoError(t, wf.Complete(ctx, KindHousingAddition))
	assert.Equal(t, 0, store.Len())

	stage(t, wf, KindLogement, `{"titre":"Studio"}`)
	require.NoError(t, wf.Discard(ctx, KindLogement))
	_, ok := wf.Pending(ctx, KindLogement)
	assert.False(t, ok)

	assert.ErrorIs(t, wf.Complete(ctx, "colis"), ErrUnknownKind)
}

func TestKinds(t *testing.T) {
	wf, _, _ := setup(t, respond(http.StatusOK, `{}`))
	assert.Equal(t, []string{KindDonation, KindHousingAddition, KindLogement}, wf.Kinds())

	custom := Kind{Name: "colis", IDKey: "colisId", StagedKey: "colisTemporaire", CreatePath: "/colis"}
	wf, _, _ = setup(t, respond(http.StatusCreated, `{"id":"c1"}`), WithKinds(custom))
	assert.Equal(t, []string{"colis"}, wf.Kinds())

	state, err := wf.Submit(context.Background(), "colis", []byte(`{}`), testToken)
	require.NoError(t, err)
	assert.Equal(t, "c1", state.ID)
}
