// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package apitest

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/danielhkuo/abri/db"
	"github.com/danielhkuo/abri/middleware"
)

// Token is the bearer token the backend accepts unless changed with SetToken
const Token = "apitest-token"

// Route patterns, usable with FailWith, Drop, RawText and Calls
const (
	RouteCreateDemande  = "POST /demandes-ajout-logement"
	RouteGetDemande     = "GET /demandes-ajout-logement/{id}"
	RouteCancelDemande  = "POST /demandes-ajout-logement/{id}/cancel"
	RouteCreateDon      = "POST /dons"
	RouteListDons       = "GET /dons"
	RouteUploadDon      = "POST /dons/upload"
	RouteCreateLogement = "POST /logements"
	RouteUploadSingle   = "POST /uploads/single"
	RouteUploadMultiple = "POST /uploads/multiple"
)

type fault struct {
	status int
	drop   bool
	text   string
}

// Backend is an in-process stand-in for the Abri REST API, backed by an
// in-memory SQLite database.
type Backend struct {
	URL string

	db     *sql.DB
	server *httptest.Server

	mu     sync.Mutex
	token  string
	faults map[string]fault
	calls  map[string]int
	bodies map[string][][]byte
}

// New starts a backend and stops it when the test ends
func New(t testing.TB) *Backend {
	t.Helper()

	conn, err := db.Open(context.Background(), db.DriverSQLite, ":memory:")
	if err != nil {
		t.Fatalf("Failed to open backend database: %v", err)
	}
	if _, err := conn.Exec(schema); err != nil {
		t.Fatalf("Failed to create backend schema: %v", err)
	}

	b := &Backend{
		db:     conn,
		token:  Token,
		faults: make(map[string]fault),
		calls:  make(map[string]int),
		bodies: make(map[string][][]byte),
	}
	b.server = httptest.NewServer(b.routes())
	b.URL = b.server.URL

	t.Cleanup(func() {
		b.server.Close()
		conn.Close()
	})
	return b
}

func (b *Backend) routes() *http.ServeMux {
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Housing-addition requests
	b.handle(mux, RouteCreateDemande, b.createDemande)
	b.handle(mux, RouteGetDemande, b.getDemande)
	b.handle(mux, RouteCancelDemande, b.cancelDemande)

	// Donations
	b.handle(mux, RouteCreateDon, b.createDon)
	b.handle(mux, RouteListDons, b.listDons)
	b.handle(mux, RouteUploadDon, b.upload("image", false))

	// Logements and their pictures
	b.handle(mux, RouteCreateLogement, b.createLogement)
	b.handle(mux, RouteUploadSingle, b.upload("image", false))
	b.handle(mux, RouteUploadMultiple, b.upload("images", true))

	return mux
}

// handle registers h behind token checking and fault injection
func (b *Backend) handle(mux *http.ServeMux, pattern string, h http.HandlerFunc) {
	mux.HandleFunc(pattern, middleware.WithLogging(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.calls[pattern]++
		f, faulty := b.faults[pattern]
		token := b.token
		b.mu.Unlock()

		switch {
		case faulty && f.drop:
			dropConnection(w)
			return
		case faulty && f.status != 0:
			middleware.ErrorResponse(w, f.status, "injected failure")
			return
		case faulty:
			w.Header().Set("Content-Type", "text/plain")
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(f.text))
			return
		}

		if middleware.BearerToken(r) != token {
			middleware.ErrorResponse(w, http.StatusUnauthorized, "Token manquant ou invalide")
			return
		}
		h(w, r)
	}))
}

func dropConnection(w http.ResponseWriter) {
	hj, ok := w.(http.Hijacker)
	if !ok {
		panic("apitest: response writer cannot be hijacked")
	}
	conn, _, err := hj.Hijack()
	if err != nil {
		panic(fmt.Sprintf("apitest: hijack failed: %v", err))
	}
	conn.Close()
}

// FailWith makes route answer with status until Reset
func (b *Backend) FailWith(route string, status int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.faults[route] = fault{status: status}
}

// Drop makes route close the connection without answering until Reset
func (b *Backend) Drop(route string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.faults[route] = fault{drop: true}
}

// RawText makes route answer 200 with a non-JSON body until Reset
func (b *Backend) RawText(route, text string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.faults[route] = fault{text: text}
}

// Reset removes every injected fault
func (b *Backend) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.faults = make(map[string]fault)
}

// SetToken changes the accepted bearer token
func (b *Backend) SetToken(token string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.token = token
}

// Calls returns how many requests reached route, faults included
func (b *Backend) Calls(route string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[route]
}

// Bodies returns the raw JSON bodies accepted on route, in order
func (b *Backend) Bodies(route string) [][]byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([][]byte(nil), b.bodies[route]...)
}

func (b *Backend) record(route string, body []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.bodies[route] = append(b.bodies[route], body)
}

// SetStatus changes the status of a stored request, as a moderator would
func (b *Backend) SetStatus(id, status string) error {
	res, err := b.db.Exec(`UPDATE request SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("apitest: no request %q", id)
	}
	return nil
}

// Status returns the stored status of a request
func (b *Backend) Status(id string) (string, error) {
	var status string
	err := b.db.QueryRow(`SELECT status FROM request WHERE id = ?`, id).Scan(&status)
	return status, err
}

// Count returns the number of stored requests in a collection
func (b *Backend) Count(collection string) int {
	var n int
	b.db.QueryRow(`SELECT COUNT(*) FROM request WHERE collection = ?`, collection).Scan(&n)
	return n
}

const schema = `
CREATE TABLE IF NOT EXISTS request (
    id TEXT PRIMARY KEY,
    collection TEXT NOT NULL,
    owner TEXT NOT NULL,
    status TEXT NOT NULL,
    payload TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_request_collection ON request(collection);
`
