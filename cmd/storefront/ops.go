package main

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/bookstore/storefront/internal/db"
	"github.com/bookstore/storefront/internal/store"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// healthReporter names the first failing dependency, or "" when healthy.
type healthReporter interface {
	Report() string
}

// intentLister reads the durable intent log.
type intentLister interface {
	List(ctx context.Context, status db.IntentStatus, limit int) ([]db.PendingIntent, error)
}

type opsHandler struct {
	store   *store.Store
	health  healthReporter
	intents intentLister
	log     *zap.Logger
}

// newOpsRouter serves health, metrics and read-only state for operators.
func newOpsRouter(st *store.Store, health healthReporter, intents intentLister, gatherer prometheus.Gatherer, log *zap.Logger) http.Handler {
	h := &opsHandler{store: st, health: health, intents: intents, log: log}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)

	r.Get("/healthz", h.healthz)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	r.Route("/v1", func(r chi.Router) {
		r.Get("/snapshot", h.snapshot)
		r.Get("/books", h.books)
		r.Get("/intents", h.listIntents)
	})
	return r
}

func (h *opsHandler) healthz(w http.ResponseWriter, _ *http.Request) {
	if msg := h.health.Report(); msg != "" {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("unhealthy: " + msg))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("healthy"))
}

func (h *opsHandler) snapshot(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, h.store.Snapshot())
}

func (h *opsHandler) books(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]any{
		"filters": h.store.Filters(),
		"books":   h.store.FilteredBooks(),
	})
}

func (h *opsHandler) listIntents(w http.ResponseWriter, r *http.Request) {
	status := db.IntentStatus(r.URL.Query().Get("status"))
	switch status {
	case "":
		status = db.IntentPending
	case "all":
		status = ""
	}
	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}

	intents, err := h.intents.List(r.Context(), status, limit)
	if err != nil {
		h.log.Error("Failed to list intents", zap.String("status", string(status)), zap.Error(err))
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list intents"})
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"intents": intents})
}

func (h *opsHandler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Warn("Failed to write response", zap.Error(err))
	}
}
