package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/crewtrack/crewtrack/internal/domain"
	"github.com/crewtrack/crewtrack/internal/repository"
	"github.com/crewtrack/crewtrack/internal/service/auth"
	"github.com/crewtrack/crewtrack/pkg/token"
)

// writeJSON writes a JSON response with status code.
func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeError sends a single error message.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// respondServiceError maps service-layer failures onto the HTTP taxonomy.
// Validation failures carry a field map; ownership breaks and missing ids
// share one 404 so callers cannot probe for resource existence; everything
// unexpected collapses into a logged 500 with a generic body.
func (r *Router) respondServiceError(w http.ResponseWriter, err error) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": verr.Fields})
	case errors.Is(err, auth.ErrEmailInUse):
		writeError(w, http.StatusConflict, "Email already in use")
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, token.ErrNoSecret):
		r.logger.Error("token signing misconfigured", "error", err)
		writeError(w, http.StatusInternalServerError, "server misconfigured")
	default:
		r.logger.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
