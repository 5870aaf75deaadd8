// Package handlers provides HTTP handlers for regime analysis runs.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/aristath/volregime/internal/modules/analysis"
	"github.com/aristath/volregime/internal/modules/regime"
	"github.com/aristath/volregime/internal/modules/report"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// AnalysisService is the part of analysis.Service the handlers use
type AnalysisService interface {
	Run(ctx context.Context, req analysis.Request) (*analysis.Result, error)
	Compare(ctx context.Context, req analysis.Request) (*regime.Comparison, error)
	Get(ctx context.Context, id string) (*analysis.Result, error)
	Latest(ctx context.Context) (*analysis.Result, error)
	List(ctx context.Context, limit int) ([]analysis.RunSummary, error)
	States(ctx context.Context, id string) ([]analysis.DayState, error)
}

// Handler handles analysis HTTP requests
type Handler struct {
	service AnalysisService
	log     zerolog.Logger
}

// NewHandler creates a new analysis handler
func NewHandler(service AnalysisService, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "analysis").Logger(),
	}
}

// HandleRun handles POST /api/analysis/run
func (h *Handler) HandleRun(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeRequest(w, r)
	if !ok {
		return
	}

	result, err := h.service.Run(r.Context(), req)
	if err != nil {
		h.log.Error().Err(err).Msg("Analysis run failed")
		h.writeError(w, http.StatusUnprocessableEntity, "Analysis failed: "+err.Error())
		return
	}

	h.writeJSON(w, http.StatusCreated, result)
}

// HandleCompare handles POST /api/analysis/compare
func (h *Handler) HandleCompare(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeRequest(w, r)
	if !ok {
		return
	}

	cmp, err := h.service.Compare(r.Context(), req)
	if err != nil {
		h.log.Error().Err(err).Msg("Model comparison failed")
		h.writeError(w, http.StatusUnprocessableEntity, "Comparison failed: "+err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, cmp)
}

// HandleLatest handles GET /api/analysis/latest
func (h *Handler) HandleLatest(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.Latest(r.Context())
	if err != nil {
		h.writeLookupError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

// HandleListRuns handles GET /api/analysis/runs
func (h *Handler) HandleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			h.writeError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = parsed
	}

	runs, err := h.service.List(r.Context(), limit)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list runs")
		h.writeError(w, http.StatusInternalServerError, "Failed to list runs")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"runs":  runs,
		"count": len(runs),
	})
}

// HandleGetRun handles GET /api/analysis/runs/{id}
func (h *Handler) HandleGetRun(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeLookupError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

// HandleGetStates handles GET /api/analysis/runs/{id}/states
func (h *Handler) HandleGetStates(w http.ResponseWriter, r *http.Request) {
	days, err := h.service.States(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeLookupError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, days)
}

// HandleGetSummary handles GET /api/analysis/runs/{id}/summary.csv
func (h *Handler) HandleGetSummary(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeLookupError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename=\"summary-"+result.ID+".csv\"")
	if err := report.WriteComparisonCSV(w, result.Backtest.Comparison); err != nil {
		h.log.Error().Err(err).Msg("Failed to write summary CSV")
	}
}

func (h *Handler) decodeRequest(w http.ResponseWriter, r *http.Request) (analysis.Request, bool) {
	var req analysis.Request
	if r.Body == nil {
		return req, true
	}

	// An empty body runs with the service defaults
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		h.writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return req, false
	}
	return req, true
}

func (h *Handler) writeLookupError(w http.ResponseWriter, err error) {
	if errors.Is(err, analysis.ErrRunNotFound) {
		h.writeError(w, http.StatusNotFound, err.Error())
		return
	}
	h.log.Error().Err(err).Msg("Failed to load run")
	h.writeError(w, http.StatusInternalServerError, "Failed to load run")
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeError writes an error response
func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
