// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package apitest

import (
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/danielhkuo/abri/auth"
	"github.com/danielhkuo/abri/middleware"
	"github.com/danielhkuo/abri/models"
)

// Collections of stored requests
const (
	CollectionDemandes  = "demandes"
	CollectionDons      = "dons"
	CollectionLogements = "logements"
)

// Initial statuses, spelled the way the backend does
const (
	StatusEnAttente  = "en_attente"
	StatusDisponible = "disponible"
	StatusAnnulee    = "annulee"
)

// createDemande handles POST /demandes-ajout-logement
func (b *Backend) createDemande(w http.ResponseWriter, r *http.Request) {
	b.create(w, r, RouteCreateDemande, CollectionDemandes, "email", func(id, status string) map[string]any {
		return map[string]any{"id": id, "status": status}
	})
}

// getDemande handles GET /demandes-ajout-logement/{id}
func (b *Backend) getDemande(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var status, payload string
	err := b.db.QueryRow(`
		SELECT status, payload FROM request WHERE id = ? AND collection = ?
	`, id, CollectionDemandes).Scan(&status, &payload)

	if errors.Is(err, sql.ErrNoRows) {
		middleware.ErrorResponse(w, http.StatusNotFound, "Demande introuvable")
		return
	}
	if err != nil {
		slog.Error("failed to load demande", "error", err, "id", id)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to load demande")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, echo(payload, map[string]any{"id": id, "status": status}))
}

// cancelDemande handles POST /demandes-ajout-logement/{id}/cancel
func (b *Backend) cancelDemande(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	res, err := b.db.Exec(`
		UPDATE request SET status = ? WHERE id = ? AND collection = ? AND owner = ?
	`, StatusAnnulee, id, CollectionDemandes, middleware.BearerToken(r))
	if err != nil {
		slog.Error("failed to cancel demande", "error", err, "id", id)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to cancel demande")
		return
	}
	if n, _ := res.RowsAffected(); n == 0 {
		middleware.ErrorResponse(w, http.StatusNotFound, "Demande introuvable")
		return
	}

	slog.Info("demande cancelled", "id", id)
	middleware.JSONResponse(w, http.StatusOK, models.CancelResponse{Message: "Demande annulée"})
}

// createDon handles POST /dons
func (b *Backend) createDon(w http.ResponseWriter, r *http.Request) {
	b.create(w, r, RouteCreateDon, CollectionDons, "titre", func(id, status string) map[string]any {
		return map[string]any{"_id": id, "statut": status}
	})
}

// listDons handles GET /dons
func (b *Backend) listDons(w http.ResponseWriter, r *http.Request) {
	rows, err := b.db.Query(`
		SELECT id, status, payload FROM request
		WHERE collection = ?
		ORDER BY created_at, rowid
	`, CollectionDons)
	if err != nil {
		slog.Error("failed to list dons", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to list dons")
		return
	}
	defer rows.Close()

	dons := []map[string]any{}
	for rows.Next() {
		var id, status, payload string
		if err := rows.Scan(&id, &status, &payload); err != nil {
			slog.Error("failed to scan don", "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to list dons")
			return
		}
		dons = append(dons, echo(payload, map[string]any{"_id": id, "statut": status}))
	}
	if err := rows.Err(); err != nil {
		slog.Error("failed to list dons", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to list dons")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, map[string]any{"dons": dons})
}

// createLogement handles POST /logements
func (b *Backend) createLogement(w http.ResponseWriter, r *http.Request) {
	b.create(w, r, RouteCreateLogement, CollectionLogements, "titre", func(id, status string) map[string]any {
		return map[string]any{"id": id, "statut": status, "message": "Logement créé"}
	})
}

// create stores the JSON body of r in collection and answers 201 with the
// stored fields plus those returned by extra.
func (b *Backend) create(w http.ResponseWriter, r *http.Request, route, collection, required string, extra func(id, status string) map[string]any) {
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid body")
		return
	}

	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if s, _ := fields[required].(string); strings.TrimSpace(s) == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, required+" est requis")
		return
	}
	b.record(route, raw)

	id, err := auth.GenerateID(12)
	if err != nil {
		slog.Error("failed to generate request ID", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create request")
		return
	}

	status := StatusEnAttente
	if collection == CollectionDons {
		status = StatusDisponible
	}

	_, err = b.db.Exec(`
		INSERT INTO request (id, collection, owner, status, payload, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, id, collection, middleware.BearerToken(r), status, string(raw), time.Now())
	if err != nil {
		slog.Error("failed to insert request", "error", err, "collection", collection)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create request")
		return
	}

	slog.Info("request stored", "collection", collection, "id", id)
	middleware.JSONResponse(w, http.StatusCreated, echo(string(raw), extra(id, status)))
}

// upload answers multipart image uploads with the URLs the files would be
// served from.
func (b *Backend) upload(field string, multiple bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(10 << 20); err != nil {
			middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid multipart body")
			return
		}

		files := r.MultipartForm.File[field]
		if len(files) == 0 {
			middleware.ErrorResponse(w, http.StatusBadRequest, "Aucune image reçue")
			return
		}
		if !multiple && len(files) > 1 {
			middleware.ErrorResponse(w, http.StatusBadRequest, "Une seule image attendue")
			return
		}

		urls := make([]string, 0, len(files))
		for _, fh := range files {
			id, err := auth.GenerateID(6)
			if err != nil {
				middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to store image")
				return
			}
			urls = append(urls, "/uploads/"+id+"-"+filepath.Base(fh.Filename))
		}

		if multiple {
			middleware.JSONResponse(w, http.StatusCreated, models.UploadResponse{URLs: urls})
			return
		}
		middleware.JSONResponse(w, http.StatusCreated, models.UploadResponse{URL: urls[0]})
	}
}

// echo merges extra into the stored JSON object
func echo(payload string, extra map[string]any) map[string]any {
	var obj map[string]any
	if json.Unmarshal([]byte(payload), &obj) != nil || obj == nil {
		obj = map[string]any{}
	}
	for k, v := range extra {
		obj[k] = v
	}
	return obj
}
