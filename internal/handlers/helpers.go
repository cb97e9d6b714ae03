package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mizutani/meibo/internal/repositories"
	"github.com/mizutani/meibo/internal/services/validation"
)

// defaultTenant is used when the request carries no X-Tenant-ID header
const defaultTenant = "default"

// tenantID extracts the tenant from the request
func tenantID(r *http.Request) string {
	if tenant := r.Header.Get("X-Tenant-ID"); tenant != "" {
		return tenant
	}
	return defaultTenant
}

// errorResponse is the JSON error body
type errorResponse struct {
	Error      string   `json:"error"`
	Violations []string `json:"violations,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, &errorResponse{Error: message})
}

// respondServiceError maps service errors onto HTTP statuses: record and
// schema constraint violations are 422, missing resources 404, everything
// else is treated as a bad request.
func respondServiceError(w http.ResponseWriter, err error) {
	var verr *validation.ValidationError
	if errors.As(err, &verr) {
		violations := make([]string, 0, len(verr.Violations))
		for _, v := range verr.Violations {
			violations = append(violations, v.String())
		}
		respondJSON(w, http.StatusUnprocessableEntity, &errorResponse{
			Error:      "record does not conform to type " + verr.Type,
			Violations: violations,
		})
		return
	}

	if errors.Is(err, repositories.ErrSchemaNotFound) || errors.Is(err, repositories.ErrRecordNotFound) {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}

	respondError(w, http.StatusBadRequest, err.Error())
}
