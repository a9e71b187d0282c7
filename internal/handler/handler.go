// Package handler exposes the JSON API consumed by the feedback form:
// selectable options, the per-cohort question schema, and submission.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/LuciferDinesh/student-feedback-system/internal/feedback"
	"github.com/LuciferDinesh/student-feedback-system/internal/model"
	"github.com/LuciferDinesh/student-feedback-system/internal/schema"
	"github.com/LuciferDinesh/student-feedback-system/internal/store"
)

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	store       store.Tabular
	service     *feedback.Service
	configSheet string
}

// New creates a new Handler. configSheet names the admin configuration
// table inside the store.
func New(s store.Tabular, svc *feedback.Service, configSheet string) *Handler {
	return &Handler{store: s, service: svc, configSheet: configSheet}
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/healthz", h.handleHealth)
	r.Get("/api/options", h.handleOptions)
	r.Get("/api/schema", h.handleSchema)
	r.Post("/api/feedback", h.handleSubmit)
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

// errorResponse is the envelope for all failure responses. The
// UseStaticData flag tells the form to fall back to its built-in
// default question set instead of blocking the student.
type errorResponse struct {
	Error         string `json:"error"`
	UseStaticData bool   `json:"useStaticData,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

// readConfig pulls the whole configuration table. The options index
// and cohort schema are recomputed from it on every request; nothing
// is cached.
func (h *Handler) readConfig(r *http.Request) ([][]string, error) {
	return h.store.ReadRange(r.Context(), h.configSheet, "A1:ZZ")
}

func (h *Handler) handleOptions(w http.ResponseWriter, r *http.Request) {
	rows, err := h.readConfig(r)
	if err != nil {
		slog.Error("read configuration table", "table", h.configSheet, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to read configuration"})
		return
	}

	opts, err := schema.ParseOptions(rows)
	switch {
	case errors.Is(err, schema.ErrNoDataRows):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "configuration table is empty"})
		return
	case errors.Is(err, schema.ErrMissingColumns):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	case err != nil:
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, opts)
}

func (h *Handler) handleSchema(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	branch, year, section := q.Get("branch"), q.Get("year"), q.Get("section")
	if branch == "" || year == "" || section == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "branch, year and section are required"})
		return
	}

	rows, err := h.readConfig(r)
	if err != nil {
		slog.Error("read configuration table", "table", h.configSheet, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to read configuration"})
		return
	}

	cs, err := schema.ParseCohortSchema(rows, branch, year, section)
	switch {
	case errors.Is(err, schema.ErrNoDataRows), errors.Is(err, schema.ErrCohortNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error(), UseStaticData: true})
		return
	case errors.Is(err, schema.ErrMissingColumns):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	case err != nil:
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, cs)
}

// submitResponse reports the outcome of a submission batch, one entry
// per cohort so independent cohorts surface their own failures.
type submitResponse struct {
	Message          string         `json:"message"`
	CohortsProcessed int            `json:"cohortsProcessed"`
	Cohorts          []cohortStatus `json:"cohorts"`
}

type cohortStatus struct {
	Cohort string `json:"cohort"`
	Table  string `json:"table"`
	Rows   int    `json:"rows"`
	Error  string `json:"error,omitempty"`
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var batch []model.SubjectFeedback
	if err := json.NewDecoder(r.Body).Decode(&batch); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	report, err := h.service.Submit(r.Context(), batch)
	if errors.Is(err, feedback.ErrEmptyBatch) {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "no feedback items in submission"})
		return
	}
	if err != nil {
		slog.Error("submit failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to record feedback"})
		return
	}

	resp := submitResponse{
		Message:          "feedback recorded",
		CohortsProcessed: report.CohortsProcessed,
	}
	for _, res := range report.Results {
		st := cohortStatus{Cohort: res.Cohort, Table: res.Table, Rows: res.Rows}
		if res.Err != nil {
			st.Error = res.Err.Error()
		}
		resp.Cohorts = append(resp.Cohorts, st)
	}

	if report.Failed() {
		resp.Message = "failed to record feedback"
		writeJSON(w, http.StatusInternalServerError, resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
