package httpx

import (
	"errors"
	"net/http"

	"github.com/krishilink/krishilink/internal/shared"
)

// RespondError maps classified domain errors to HTTP responses using RFC7807.
func RespondError(w http.ResponseWriter, err error) {
	detail := shared.UserSafeMessage(err)
	switch {
	case errors.Is(err, shared.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", detail)
	case errors.Is(err, shared.ErrValidation):
		Problem(w, http.StatusBadRequest, "Validation Failed", detail)
	case errors.Is(err, shared.ErrUnauthorized), errors.Is(err, shared.ErrInvalidCredentials):
		Problem(w, http.StatusUnauthorized, "Unauthorized", detail)
	case errors.Is(err, shared.ErrForbidden):
		Problem(w, http.StatusForbidden, "Forbidden", detail)
	case errors.Is(err, shared.ErrDuplicate):
		Problem(w, http.StatusConflict, "Duplicate", detail)
	case errors.Is(err, shared.ErrInvalidState):
		Problem(w, http.StatusConflict, "Invalid State", detail)
	case errors.Is(err, shared.ErrInsufficientStock):
		Problem(w, http.StatusConflict, "Insufficient Stock", detail)
	default:
		// Integrity corruption and unknown failures alike surface as 500.
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
