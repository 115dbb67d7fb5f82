package handlers

import (
	"errors"
	"net/http"

	"github.com/BradenHooton/claimsdesk/internal/models"
	"github.com/BradenHooton/claimsdesk/internal/services"
	pkghttp "github.com/BradenHooton/claimsdesk/pkg/http"
)

// writeServiceError maps a service error onto the HTTP error contract.
// Messages are only echoed for errors that carry a caller-facing one.
func writeServiceError(w http.ResponseWriter, err error) {
	msg := func(fallback string) string { return models.ErrorMessage(err, fallback) }

	switch {
	case errors.Is(err, services.ErrDocumentsDisabled):
		pkghttp.WriteServiceUnavailable(w, "Document uploads are not available.")
	case errors.Is(err, services.ErrInsightsDisabled):
		pkghttp.WriteServiceUnavailable(w, "Profile insights are not available.")
	case errors.Is(err, models.ErrBadRequest):
		pkghttp.WriteBadRequest(w, msg("Invalid request."))
	case errors.Is(err, models.ErrConflict):
		pkghttp.WriteConflict(w, msg("Request conflicts with the current state."))
	case errors.Is(err, models.ErrUnauthorized):
		pkghttp.WriteUnauthorized(w, msg("Authentication required."))
	case errors.Is(err, models.ErrForbidden):
		pkghttp.WriteForbidden(w, msg("Unauthorized action."))
	case errors.Is(err, models.ErrNotFound):
		pkghttp.WriteNotFound(w, msg("Not found."))
	default:
		pkghttp.WriteInternalError(w, "Internal server error")
	}
}
