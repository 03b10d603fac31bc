package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"audit-readiness-service/internal/app"
	"github.com/gorilla/mux"
)

// TeamHandler serves the REST side of team sessions; live updates go over ServeWS.
type TeamHandler struct {
	service *app.TeamService
}

func NewTeamHandler(service *app.TeamService) *TeamHandler {
	return &TeamHandler{service: service}
}

// Create handles POST /v1/teams
func (h *TeamHandler) Create(w http.ResponseWriter, r *http.Request) {
	req := scopeRequest{IncludeAll: true}
	// An empty body opens a session over the whole catalog.
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	snap, err := h.service.Create(r.Context(), req.Frameworks, req.IncludeAll, req.Device)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, snap)
}

// Snapshot handles GET /v1/teams/{id}
func (h *TeamHandler) Snapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := h.service.Snapshot(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// Response handles GET /v1/teams/{id}/questions/{questionId}
func (h *TeamHandler) Response(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	tr, err := h.service.Response(r.Context(), vars["id"], vars["questionId"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tr)
}

// Aggregate handles GET /v1/teams/{id}/aggregate
func (h *TeamHandler) Aggregate(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.Aggregate(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
