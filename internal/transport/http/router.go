package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"audit-readiness-service/internal/app"
	"audit-readiness-service/internal/domain"
	"audit-readiness-service/internal/export"
	"github.com/gorilla/mux"
)

// NewRouter wires the REST API and the team websocket under /v1.
func NewRouter(assessments *app.AssessmentService, teams *app.TeamService) http.Handler {
	r := mux.NewRouter()

	ah := NewAssessmentHandler(assessments)
	th := NewTeamHandler(teams)
	ws := NewTeamWSHandler(teams)

	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}).Methods("GET")

	v1 := r.PathPrefix("/v1").Subrouter()

	v1.HandleFunc("/questions", ah.Questions).Methods("GET")
	v1.HandleFunc("/classify", ah.Classify).Methods("POST")
	v1.HandleFunc("/score", ah.Evaluate).Methods("POST")

	v1.HandleFunc("/assessments", ah.Create).Methods("POST")
	v1.HandleFunc("/assessments/{id}", ah.Get).Methods("GET")
	v1.HandleFunc("/assessments/{id}", ah.Delete).Methods("DELETE")
	v1.HandleFunc("/assessments/{id}/responses", ah.SaveResponses).Methods("PUT")
	v1.HandleFunc("/assessments/{id}/device", ah.SetDevice).Methods("PUT")
	v1.HandleFunc("/assessments/{id}/frameworks", ah.SetFrameworks).Methods("PUT")
	v1.HandleFunc("/assessments/{id}/score", ah.Score).Methods("GET")
	v1.HandleFunc("/assessments/{id}/export/{format}", ah.Export).Methods("GET")

	v1.HandleFunc("/teams", th.Create).Methods("POST")
	v1.HandleFunc("/teams/{id}", th.Snapshot).Methods("GET")
	v1.HandleFunc("/teams/{id}/questions/{questionId}", th.Response).Methods("GET")
	v1.HandleFunc("/teams/{id}/aggregate", th.Aggregate).Methods("GET")

	v1.HandleFunc("/ws/teams/{id}", ws.ServeWS).Methods("GET")

	return r
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// writeServiceError maps use-case errors onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error) {
	writeError(w, statusFor(err), err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrAssessmentNotFound),
		errors.Is(err, domain.ErrTeamSessionNotFound),
		errors.Is(err, domain.ErrMemberNotFound),
		errors.Is(err, domain.ErrCatalogNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrConsensusSealed):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInvalidAnswer),
		errors.Is(err, export.ErrUnknownFormat):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
