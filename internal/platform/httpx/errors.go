package httpx

import (
	"errors"
	"net/http"

	"github.com/sapients/tracker/internal/shared"
)

// Sentinel errors for the domain layer.
var (
	ErrNotFound     = shared.ErrNotFound
	ErrValidation   = errors.New("validation failed")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
)

// RespondError maps domain errors to problem responses. Anything unrecognised is a
// generic 500 with no detail.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", "resource not found")
	case errors.Is(err, ErrValidation):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrForbidden):
		Forbidden(w)
	case errors.Is(err, ErrUnauthorized), errors.Is(err, shared.ErrInvalidCredentials):
		Problem(w, http.StatusUnauthorized, "Unauthorized", "invalid email or password")
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
