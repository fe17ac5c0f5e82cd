// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"sync"
	"time"

	"github.com/danielhkuo/abri/apiclient"
	"github.com/danielhkuo/abri/auth"
	"github.com/danielhkuo/abri/kvstore"
	"github.com/danielhkuo/abri/models"
)

var (
	ErrUnknownKind       = errors.New("unknown request kind")
	ErrInProgress        = errors.New("submission already in progress")
	ErrNothingToRetry    = errors.New("nothing to retry")
	ErrNotSubmitted      = errors.New("no submitted request")
	ErrCancelUnsupported = errors.New("request kind cannot be cancelled")
	ErrNoToken           = errors.New("not logged in: no authentication token")
	ErrNotFound          = errors.New("request not found on server")
)

// API is the subset of the HTTP client the workflow needs
type API interface {
	Do(ctx context.Context, method, path string, body any, token string) (*apiclient.Response, error)
}

// Observer is told about every phase change, starting with PhaseSubmitting
// before the network call is made.
type Observer interface {
	OnPhase(kind string, phase models.Phase)
}

// ObserverFunc adapts a function to Observer
type ObserverFunc func(kind string, phase models.Phase)

func (f ObserverFunc) OnPhase(kind string, phase models.Phase) { f(kind, phase) }

type Option func(*Workflow)

func WithObserver(o Observer) Option {
	return func(w *Workflow) { w.observer = o }
}

// WithClock replaces time.Now for staged timestamps
func WithClock(now func() time.Time) Option {
	return func(w *Workflow) { w.now = now }
}

// WithKinds replaces the default request kinds
func WithKinds(kinds ...Kind) Option {
	return func(w *Workflow) {
		w.kinds = make(map[string]Kind, len(kinds))
		for _, k := range kinds {
			w.kinds[k.Name] = k
		}
	}
}

// Workflow drives submission, reconciliation, retry and cancellation of
// requests. It is safe for concurrent use; at most one network operation
// per kind is in flight at a time.
type Workflow struct {
	store      kvstore.Store
	api        API
	observer   Observer
	now        func() time.Time
	newLocalID func() string
	kinds      map[string]Kind

	mu       sync.Mutex
	inFlight map[string]bool
}

func New(store kvstore.Store, api API, opts ...Option) *Workflow {
	w := &Workflow{
		store:      store,
		api:        api,
		now:        time.Now,
		newLocalID: auth.NewLocalID,
		inFlight:   make(map[string]bool),
	}
	WithKinds(DefaultKinds()...)(w)
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Kind returns the registered kind with the given name
func (w *Workflow) Kind(name string) (Kind, error) {
	k, ok := w.kinds[name]
	if !ok {
		return Kind{}, fmt.Errorf("%w: %q", ErrUnknownKind, name)
	}
	return k, nil
}

// Kinds returns the registered kind names, sorted
func (w *Workflow) Kinds() []string {
	names := make([]string, 0, len(w.kinds))
	for name := range w.kinds {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validate checks payload against the rules of kind
func (w *Workflow) Validate(kind string, payload []byte) error {
	k, err := w.Kind(kind)
	if err != nil {
		return err
	}
	return k.Rules.Check(payload)
}

// Prepare turns a validated payload into the bytes sent to the create
// endpoint, for instance by uploading pictures and adding their URLs.
type Prepare func(ctx context.Context, payload []byte) ([]byte, error)

// Submit validates payload and posts it to the create endpoint of kind.
//
// On success the server identifier is stored and any staged copy removed.
// When the server cannot be reached, or fails in a way a later retry may
// fix, the exact payload bytes are staged and the returned state is
// StoredLocally together with the failure. A definitive client rejection
// yields Rejected and stages nothing.
func (w *Workflow) Submit(ctx context.Context, kind string, payload []byte, token string) (models.State, error) {
	return w.SubmitPrepared(ctx, kind, payload, token, nil)
}

// SubmitPrepared is Submit with a prepare step run after validation, while
// the kind is held. A retryable API failure in prepare stages the original
// payload; any other prepare failure stages nothing and leaves the kind
// Idle.
func (w *Workflow) SubmitPrepared(ctx context.Context, kind string, payload []byte, token string, prepare Prepare) (models.State, error) {
	k, err := w.Kind(kind)
	if err != nil {
		return models.State{Kind: kind, Phase: models.PhaseIdle}, err
	}
	if err := k.Rules.Check(payload); err != nil {
		return models.State{Kind: kind, Phase: models.PhaseIdle}, err
	}

	release, err := w.acquire(kind)
	if err != nil {
		return models.State{Kind: kind, Phase: models.PhaseSubmitting}, err
	}
	defer release()

	log := slog.With("kind", kind, "attempt_id", auth.NewAttemptID())
	w.notify(kind, models.PhaseSubmitting)

	body := payload
	if prepare != nil {
		body, err = prepare(ctx, payload)
		if err != nil {
			var apiErr *apiclient.Error
			if !errors.As(err, &apiErr) || !apiErr.Retryable() {
				log.Warn("request preparation failed", "error", err)
				w.notify(kind, models.PhaseIdle)
				return models.State{Kind: kind, Phase: models.PhaseIdle}, err
			}
			log.Warn("request preparation failed, storing locally", "reason", apiErr.Reason, "error", err)
			state, stageErr := w.stage(ctx, k, payload, err)
			return state, errors.Join(err, stageErr)
		}
	}

	sub, err := w.create(ctx, k, body, token)
	if err == nil {
		log.Info("request submitted", "id", sub.ID, "status", sub.Status)
		return w.accept(ctx, k, sub), nil
	}

	if !apiclient.IsRetryable(err) {
		log.Warn("request rejected", "reason", apiclient.ReasonOf(err), "error", err)
		w.notify(kind, models.PhaseRejected)
		return models.State{
			Kind:    kind,
			Phase:   models.PhaseRejected,
			Payload: json.RawMessage(body),
			Message: apiclient.UserMessage(err),
		}, err
	}

	log.Warn("submission failed, storing locally", "reason", apiclient.ReasonOf(err), "error", err)
	state, stageErr := w.stage(ctx, k, body, err)
	return state, errors.Join(err, stageErr)
}

// Stage writes payload to the staged slot of kind, replacing any previous
// staged payload. cause, when set, becomes the state message. It fails with
// ErrInProgress while a submission of kind is running; otherwise the
// returned error only reports a store failure.
func (w *Workflow) Stage(ctx context.Context, kind string, payload []byte, cause error) (models.State, error) {
	k, err := w.Kind(kind)
	if err != nil {
		return models.State{Kind: kind, Phase: models.PhaseIdle}, err
	}

	release, err := w.acquire(kind)
	if err != nil {
		return models.State{Kind: kind, Phase: models.PhaseSubmitting}, err
	}
	defer release()

	return w.stage(ctx, k, payload, cause)
}

// stage expects the caller to hold the kind
func (w *Workflow) stage(ctx context.Context, k Kind, payload []byte, cause error) (models.State, error) {
	pending := models.PendingRequest{
		LocalID:  w.newLocalID(),
		Kind:     k.Name,
		Status:   models.StatusPending,
		StagedAt: w.now().UTC(),
		Payload:  string(payload),
	}
	state := pendingState(pending)
	if cause != nil {
		state.Message = apiclient.UserMessage(cause)
	}
	w.notify(k.Name, models.PhaseStoredLocally)

	raw, err := json.Marshal(pending)
	if err != nil {
		return state, fmt.Errorf("failed to encode staged payload: %w", err)
	}
	if err := w.store.Set(ctx, k.StagedKey, string(raw)); err != nil {
		slog.Error("failed to stage payload", "kind", k.Name, "error", err)
		return state, fmt.Errorf("failed to store payload locally: %w", err)
	}

	slog.Info("payload staged", "kind", k.Name, "local_id", pending.LocalID, "bytes", len(payload))
	return state, nil
}

// Pending returns the staged payload of kind, if any
func (w *Workflow) Pending(ctx context.Context, kind string) (models.PendingRequest, bool) {
	k, err := w.Kind(kind)
	if err != nil {
		return models.PendingRequest{}, false
	}
	return w.staged(ctx, k)
}

// Reconcile derives the current state of kind. A stored identifier is
// looked up on the server, whose answer wins over any staged copy. When
// the lookup fails the staged payload is shown instead, with the lookup
// error returned for display. Reconcile never writes to the store.
func (w *Workflow) Reconcile(ctx context.Context, kind, token string) (models.State, error) {
	k, err := w.Kind(kind)
	if err != nil {
		return models.State{Kind: kind, Phase: models.PhaseIdle}, err
	}

	id, ok := w.store.Get(ctx, k.IDKey)
	if !ok || id == "" {
		if pending, ok := w.staged(ctx, k); ok {
			return pendingState(pending), nil
		}
		return models.State{Kind: kind, Phase: models.PhaseIdle}, nil
	}

	if k.StatusPath == "" && k.ListPath == "" {
		return models.State{Kind: kind, Phase: models.PhaseSubmitted, ID: id, Status: models.StatusPending}, nil
	}

	sub, err := w.fetch(ctx, k, id, token)
	if err == nil {
		return models.State{
			Kind:    kind,
			Phase:   models.PhaseSubmitted,
			ID:      id,
			Status:  sub.Status,
			Payload: sub.Payload,
		}, nil
	}

	slog.Warn("status lookup failed", "kind", kind, "id", id, "error", err)
	if pending, ok := w.staged(ctx, k); ok {
		state := pendingState(pending)
		state.Message = apiclient.UserMessage(err)
		return state, err
	}
	return models.State{Kind: kind, Phase: models.PhaseIdle, Message: apiclient.UserMessage(err)}, err
}

// Retry posts the staged payload of kind again, byte for byte and without
// validation. A failure leaves the staged payload untouched.
func (w *Workflow) Retry(ctx context.Context, kind, token string) (models.State, error) {
	k, err := w.Kind(kind)
	if err != nil {
		return models.State{Kind: kind, Phase: models.PhaseIdle}, err
	}

	pending, ok := w.staged(ctx, k)
	if !ok {
		return models.State{Kind: kind, Phase: models.PhaseIdle}, ErrNothingToRetry
	}

	release, err := w.acquire(kind)
	if err != nil {
		return pendingState(pending), err
	}
	defer release()

	log := slog.With("kind", kind, "attempt_id", auth.NewAttemptID(), "local_id", pending.LocalID)
	w.notify(kind, models.PhaseSubmitting)

	sub, err := w.create(ctx, k, []byte(pending.Payload), token)
	if err != nil {
		log.Warn("retry failed", "reason", apiclient.ReasonOf(err), "error", err)
		w.notify(kind, models.PhaseStoredLocally)
		state := pendingState(pending)
		state.Message = apiclient.UserMessage(err)
		return state, err
	}

	log.Info("staged request submitted", "id", sub.ID, "status", sub.Status)
	return w.accept(ctx, k, sub), nil
}

// Cancel cancels the submitted request of kind on the server, then clears
// its identifier and staged payload. A failure leaves everything in place.
func (w *Workflow) Cancel(ctx context.Context, kind, token string) (models.State, error) {
	k, err := w.Kind(kind)
	if err != nil {
		return models.State{Kind: kind, Phase: models.PhaseIdle}, err
	}
	if k.CancelPath == "" {
		return models.State{Kind: kind, Phase: models.PhaseIdle}, fmt.Errorf("%w: %s", ErrCancelUnsupported, kind)
	}

	id, ok := w.store.Get(ctx, k.IDKey)
	if !ok || id == "" {
		return models.State{Kind: kind, Phase: models.PhaseIdle}, ErrNotSubmitted
	}
	submitted := models.State{Kind: kind, Phase: models.PhaseSubmitted, ID: id}

	release, err := w.acquire(kind)
	if err != nil {
		return submitted, err
	}
	defer release()

	log := slog.With("kind", kind, "attempt_id", auth.NewAttemptID(), "id", id)

	if _, err := w.api.Do(ctx, http.MethodPost, fmt.Sprintf(k.CancelPath, url.PathEscape(id)), nil, token); err != nil {
		log.Warn("cancel failed", "reason", apiclient.ReasonOf(err), "error", err)
		submitted.Message = apiclient.UserMessage(err)
		return submitted, err
	}

	if err := w.store.RemoveMany(ctx, k.IDKey, k.StagedKey); err != nil {
		log.Error("failed to clear cancelled request", "error", err)
		return models.State{Kind: kind, Phase: models.PhaseIdle}, fmt.Errorf("request cancelled but local copy not cleared: %w", err)
	}

	log.Info("request cancelled")
	w.notify(kind, models.PhaseIdle)
	return models.State{Kind: kind, Phase: models.PhaseIdle}, nil
}

// Complete forgets a request once its outcome has been acted upon
func (w *Workflow) Complete(ctx context.Context, kind string) error {
	k, err := w.Kind(kind)
	if err != nil {
		return err
	}
	if err := w.store.RemoveMany(ctx, k.IDKey, k.StagedKey); err != nil {
		return fmt.Errorf("failed to clear request: %w", err)
	}
	slog.Info("request completed", "kind", kind)
	w.notify(kind, models.PhaseIdle)
	return nil
}

// Discard drops the staged payload of kind without sending it
func (w *Workflow) Discard(ctx context.Context, kind string) error {
	k, err := w.Kind(kind)
	if err != nil {
		return err
	}
	if err := w.store.Remove(ctx, k.StagedKey); err != nil {
		return fmt.Errorf("failed to discard staged payload: %w", err)
	}
	slog.Info("staged payload discarded", "kind", kind)
	return nil
}

// create posts payload and decodes the server echo. An answer without an
// identifier counts as a decode failure.
func (w *Workflow) create(ctx context.Context, k Kind, payload []byte, token string) (models.SubmittedRequest, error) {
	resp, err := w.api.Do(ctx, http.MethodPost, k.CreatePath, json.RawMessage(payload), token)
	if err != nil {
		return models.SubmittedRequest{}, err
	}

	sub, err := models.DecodeSubmitted(resp.Body)
	if err != nil {
		return models.SubmittedRequest{}, &apiclient.Error{Reason: apiclient.ReasonDecode, Status: resp.Status, Message: "unexpected response body", Err: err}
	}
	if sub.ID == "" {
		return models.SubmittedRequest{}, &apiclient.Error{Reason: apiclient.ReasonDecode, Status: resp.Status, Message: "response has no request id"}
	}
	return sub, nil
}

// accept persists a server-accepted request. Store failures are logged:
// the server already holds the request.
func (w *Workflow) accept(ctx context.Context, k Kind, sub models.SubmittedRequest) models.State {
	if err := w.store.Set(ctx, k.IDKey, sub.ID); err != nil {
		slog.Error("failed to store request id", "kind", k.Name, "id", sub.ID, "error", err)
	}
	if err := w.store.Remove(ctx, k.StagedKey); err != nil {
		slog.Error("failed to clear staged payload", "kind", k.Name, "error", err)
	}

	w.notify(k.Name, models.PhaseSubmitted)
	return models.State{
		Kind:    k.Name,
		Phase:   models.PhaseSubmitted,
		ID:      sub.ID,
		Status:  sub.Status,
		Payload: sub.Payload,
	}
}

func (w *Workflow) fetch(ctx context.Context, k Kind, id, token string) (models.SubmittedRequest, error) {
	if k.StatusPath != "" {
		resp, err := w.api.Do(ctx, http.MethodGet, fmt.Sprintf(k.StatusPath, url.PathEscape(id)), nil, token)
		if err != nil {
			return models.SubmittedRequest{}, err
		}
		sub, err := models.DecodeSubmitted(resp.Body)
		if err != nil {
			return models.SubmittedRequest{}, &apiclient.Error{Reason: apiclient.ReasonDecode, Status: resp.Status, Message: "unexpected response body", Err: err}
		}
		return sub, nil
	}

	resp, err := w.api.Do(ctx, http.MethodGet, k.ListPath, nil, token)
	if err != nil {
		return models.SubmittedRequest{}, err
	}
	items, err := models.DecodeList(resp.Body)
	if err != nil {
		return models.SubmittedRequest{}, &apiclient.Error{Reason: apiclient.ReasonDecode, Status: resp.Status, Message: "unexpected listing body", Err: err}
	}
	for _, item := range items {
		var fields map[string]json.RawMessage
		if json.Unmarshal(item, &fields) != nil || models.LookupID(fields) != id {
			continue
		}
		return models.DecodeSubmitted(item)
	}
	return models.SubmittedRequest{}, fmt.Errorf("%w: %s", ErrNotFound, id)
}

// staged reads the staged slot of k. Values written before the envelope
// format existed hold the bare payload; they get a local id derived from
// their content so repeated reads agree.
func (w *Workflow) staged(ctx context.Context, k Kind) (models.PendingRequest, bool) {
	raw, ok := w.store.Get(ctx, k.StagedKey)
	if !ok || raw == "" {
		return models.PendingRequest{}, false
	}

	var pending models.PendingRequest
	if json.Unmarshal([]byte(raw), &pending) == nil && pending.LocalID != "" && pending.Kind != "" {
		return pending, true
	}

	if !json.Valid([]byte(raw)) {
		slog.Warn("ignoring unreadable staged payload", "kind", k.Name, "key", k.StagedKey)
		return models.PendingRequest{}, false
	}
	return models.PendingRequest{
		LocalID: auth.LocalIDFor(raw),
		Kind:    k.Name,
		Status:  models.StatusPending,
		Payload: raw,
	}, true
}

func (w *Workflow) acquire(kind string) (func(), error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.inFlight[kind] {
		return nil, ErrInProgress
	}
	w.inFlight[kind] = true

	return func() {
		w.mu.Lock()
		delete(w.inFlight, kind)
		w.mu.Unlock()
	}, nil
}

func (w *Workflow) notify(kind string, phase models.Phase) {
	if w.observer != nil {
		w.observer.OnPhase(kind, phase)
	}
}

func pendingState(p models.PendingRequest) models.State {
	state := models.State{
		Kind:    p.Kind,
		Phase:   models.PhaseStoredLocally,
		LocalID: p.LocalID,
		Status:  models.StatusPending,
		Payload: json.RawMessage(p.Payload),
	}
	if !p.StagedAt.IsZero() {
		stagedAt := p.StagedAt
		state.StagedAt = &stagedAt
	}
	return state
}
