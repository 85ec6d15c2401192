package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/sessionkeeper/internal/common"
)

type envelope struct {
	Data   any `json:"data,omitempty"`
	Errors any `json:"errors,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, env envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(env)
}

func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, envelope{Data: data})
}

func writeErrorMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, envelope{Errors: msg})
}

// statusFor maps a service error to an HTTP status. The bool is false for
// errors whose text must not reach the client.
func statusFor(err error) (int, bool) {
	switch {
	case errors.Is(err, common.ErrorValidation),
		errors.Is(err, common.ErrDuplicateEmail),
		errors.Is(err, common.ErrDuplicateUsername),
		errors.Is(err, common.ErrTokenNotFound),
		errors.Is(err, common.ErrTokenExpired):
		return http.StatusBadRequest, true
	case errors.Is(err, common.ErrInvalidCredentials),
		errors.Is(err, common.ErrorUnauthorized),
		errors.Is(err, common.ErrTokenInvalid),
		errors.Is(err, common.ErrTokenRevoked):
		return http.StatusUnauthorized, true
	case errors.Is(err, common.ErrorNotFound):
		return http.StatusNotFound, true
	default:
		return http.StatusInternalServerError, false
	}
}
