// Package httpapi is the thin chi-based HTTP boundary over the journey
// orchestration layer: search_stops, get_routes, health, and the two
// auth-gated admin triggers, grounded on the teacher's
// apps/api/handlers package (a Handler struct over an injected
// interface, ErrorResponse-shaped failures, encoding/json everywhere).
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dcmshi/transit-planner/internal/journey"
	"github.com/dcmshi/transit-planner/internal/model"
)

// Handler holds the journey.Service every route delegates to, plus the
// bearer token gating the two admin endpoints.
type Handler struct {
	svc       *journey.Service
	authToken string
}

// NewHandler builds a Handler. An empty authToken disables both admin
// endpoints (every request 404s), matching apps/api's "no token, no
// surface" posture for optional features.
func NewHandler(svc *journey.Service, authToken string) *Handler {
	return &Handler{svc: svc, authToken: authToken}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

// SearchStops handles GET /stops?query=&limit=.
func (h *Handler) SearchStops(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			limit = n
		}
	}

	stops, err := h.svc.SearchStops(r.Context(), query, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to search stops")
		return
	}
	writeJSON(w, http.StatusOK, searchStopsResponse{Stops: toStopResultWire(stops)})
}

// GetRoutes handles GET /routes?origin=&destination=&departure_datetime=&explain=.
func (h *Handler) GetRoutes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	origin := q.Get("origin")
	destination := q.Get("destination")
	if origin == "" || destination == "" {
		writeError(w, http.StatusBadRequest, "origin and destination are required")
		return
	}

	departureDT := time.Now().UTC()
	if raw := q.Get("departure_datetime"); raw != "" {
		dt, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "departure_datetime must be RFC3339")
			return
		}
		departureDT = dt
	}

	explain := false
	if raw := q.Get("explain"); raw != "" {
		explain, _ = strconv.ParseBool(raw)
	}

	result, err := h.svc.GetRoutes(r.Context(), origin, destination, departureDT, explain)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrUnknownStop):
			writeError(w, http.StatusNotFound, "unknown origin or destination stop")
		case errors.Is(err, model.ErrNoScheduleData):
			writeError(w, http.StatusServiceUnavailable, "no schedule data loaded yet")
		default:
			writeError(w, http.StatusInternalServerError, "failed to compute routes")
		}
		return
	}
	if len(result.Routes) == 0 {
		writeError(w, http.StatusNotFound, "no routes found between these stops")
		return
	}
	writeJSON(w, http.StatusOK, toRoutesResponse(result, explain))
}

// Health handles GET /health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	report, err := h.svc.Health(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to build health report")
		return
	}
	writeJSON(w, http.StatusOK, toHealthResponse(report))
}

// requireAuth checks the Authorization: Bearer <token> header against
// the configured admin token. An empty configured token means the
// endpoint is disabled entirely.
func (h *Handler) requireAuth(w http.ResponseWriter, r *http.Request) bool {
	if h.authToken == "" {
		writeError(w, http.StatusNotFound, "not found")
		return false
	}
	got := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if got == "" || got != h.authToken {
		writeError(w, http.StatusUnauthorized, "missing or invalid bearer token")
		return false
	}
	return true
}

// TriggerStaticIngest handles POST /admin/ingest/static.
func (h *Handler) TriggerStaticIngest(w http.ResponseWriter, r *http.Request) {
	if !h.requireAuth(w, r) {
		return
	}
	result, err := h.svc.TriggerStaticIngest(r.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, "static ingest failed: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"run_id":       result.RunID,
		"stops":        result.Stops,
		"trips":        result.Trips,
		"stop_times":   result.StopTimes,
		"window_start": result.WindowStart,
		"window_end":   result.WindowEnd,
	})
}

// triggerReliabilitySeedRequest is POST /admin/ingest/reliability's body.
type triggerReliabilitySeedRequest struct {
	WindowDays int `json:"window_days"`
}

// TriggerReliabilitySeed handles POST /admin/ingest/reliability.
func (h *Handler) TriggerReliabilitySeed(w http.ResponseWriter, r *http.Request) {
	if !h.requireAuth(w, r) {
		return
	}

	var body triggerReliabilitySeedRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&body)
	}
	windowDays := body.WindowDays
	if windowDays == 0 {
		windowDays = 14
	}

	if err := h.svc.TriggerReliabilitySeed(r.Context(), windowDays); err != nil {
		if errors.Is(err, model.ErrNoScheduleData) {
			writeError(w, http.StatusConflict, "no trips loaded; run static ingest first")
			return
		}
		writeError(w, http.StatusInternalServerError, "reliability seed failed: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "seeded"})
}
