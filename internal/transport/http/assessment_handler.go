package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"audit-readiness-service/internal/app"
	"audit-readiness-service/internal/domain"
	"audit-readiness-service/internal/export"
	"github.com/gorilla/mux"
)

// AssessmentHandler serves the single-user assessment endpoints.
type AssessmentHandler struct {
	service *app.AssessmentService
}

func NewAssessmentHandler(service *app.AssessmentService) *AssessmentHandler {
	return &AssessmentHandler{service: service}
}

// scopeRequest selects questions and optionally describes the device.
type scopeRequest struct {
	Frameworks []domain.Framework       `json:"frameworks"`
	IncludeAll bool                     `json:"includeAll"`
	Device     *domain.DeviceAttributes `json:"device,omitempty"`
}

type responsesRequest struct {
	Responses   []domain.Response `json:"responses"`
	CurrentPage *int              `json:"currentPage,omitempty"`
}

// Questions handles GET /v1/questions?framework=..&all=true
func (h *AssessmentHandler) Questions(w http.ResponseWriter, r *http.Request) {
	frameworks := frameworksFromQuery(r)
	includeAll, _ := strconv.ParseBool(r.URL.Query().Get("all"))

	questions, err := h.service.Questions(r.Context(), frameworks, includeAll)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"count":     len(questions),
		"questions": questions,
	})
}

// Classify handles POST /v1/classify
func (h *AssessmentHandler) Classify(w http.ResponseWriter, r *http.Request) {
	var attrs domain.DeviceAttributes
	if err := json.NewDecoder(r.Body).Decode(&attrs); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	writeJSON(w, http.StatusOK, h.service.ClassifyRisk(attrs))
}

// Evaluate handles POST /v1/score; ?format= renders an export instead of the raw report.
func (h *AssessmentHandler) Evaluate(w http.ResponseWriter, r *http.Request) {
	var req app.EvaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	report, err := h.service.Evaluate(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if format := r.URL.Query().Get("format"); format != "" {
		writeExport(w, export.Format(format), report)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// Create handles POST /v1/assessments
func (h *AssessmentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req scopeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	a, err := h.service.Create(r.Context(), req.Frameworks, req.IncludeAll, req.Device)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

// Get handles GET /v1/assessments/{id}
func (h *AssessmentHandler) Get(w http.ResponseWriter, r *http.Request) {
	a, err := h.service.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// Delete handles DELETE /v1/assessments/{id}
func (h *AssessmentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SaveResponses handles PUT /v1/assessments/{id}/responses
func (h *AssessmentHandler) SaveResponses(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var req responsesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	a, err := h.service.SaveResponses(r.Context(), id, req.Responses...)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if req.CurrentPage != nil {
		if a, err = h.service.SetPage(r.Context(), id, *req.CurrentPage); err != nil {
			writeServiceError(w, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, a)
}

// SetDevice handles PUT /v1/assessments/{id}/device; a null body clears the device.
func (h *AssessmentHandler) SetDevice(w http.ResponseWriter, r *http.Request) {
	var device *domain.DeviceAttributes
	if err := json.NewDecoder(r.Body).Decode(&device); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	a, err := h.service.SetDevice(r.Context(), mux.Vars(r)["id"], device)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// SetFrameworks handles PUT /v1/assessments/{id}/frameworks
func (h *AssessmentHandler) SetFrameworks(w http.ResponseWriter, r *http.Request) {
	var req scopeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	a, err := h.service.SetFrameworks(r.Context(), mux.Vars(r)["id"], req.Frameworks, req.IncludeAll)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// Score handles GET /v1/assessments/{id}/score
func (h *AssessmentHandler) Score(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.Score(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// Export handles GET /v1/assessments/{id}/export/{format}
func (h *AssessmentHandler) Export(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	report, err := h.service.Score(r.Context(), vars["id"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeExport(w, export.Format(vars["format"]), report)
}

func writeExport(w http.ResponseWriter, format export.Format, report app.Report) {
	body, contentType, err := export.Render(format, report)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

func frameworksFromQuery(r *http.Request) []domain.Framework {
	var out []domain.Framework
	for _, raw := range r.URL.Query()["framework"] {
		if raw != "" {
			out = append(out, domain.Framework(raw))
		}
	}
	return out
}
