package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/BradenHooton/claimsdesk/internal/models"
	pkghttp "github.com/BradenHooton/claimsdesk/pkg/http"
)

// Global validator instance (reused across all handlers)
var validate = validator.New()

// ValidateRequest checks the struct tags of a request DTO. Failures are
// reported as validation errors naming the first offending field.
func ValidateRequest(req any) error {
	if err := validate.Struct(req); err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) && len(ve) > 0 {
			return models.NewValidationError("%s %s.", ve[0].Field(), formatValidationError(ve[0]))
		}
		return models.NewValidationError("Invalid request.")
	}
	return nil
}

// formatValidationError converts a validator FieldError to a user-friendly message
func formatValidationError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return fmt.Sprintf("must have a minimum of %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must have a maximum of %s characters", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	case "gte":
		return fmt.Sprintf("must be greater than or equal to %s", fe.Param())
	default:
		return fmt.Sprintf("failed validation: %s", fe.Tag())
	}
}

// decodeAndValidate reads the JSON body into dst and validates it, writing
// the error response itself. It reports whether the handler may continue.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := pkghttp.DecodeJSON(w, r, dst); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body.")
		return false
	}
	if err := ValidateRequest(dst); err != nil {
		writeServiceError(w, err)
		return false
	}
	return true
}
