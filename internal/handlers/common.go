// Package handlers provides the HTTP handlers of the account backend.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"franklink-backend/internal/domain"
	"franklink-backend/internal/middleware"
	"franklink-backend/pkg/api"
	"franklink-backend/pkg/auth"
	appErrors "franklink-backend/pkg/errors"
)

var validate = validator.New()

// getIdentity extracts the signed-in user placed in the context by the auth
// middleware.
func getIdentity(r *http.Request) (*auth.Identity, bool) {
	return auth.IdentityFromContext(r.Context())
}

func decodeBody(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return appErrors.NewValidation("Invalid request body")
	}
	return nil
}

// decodeAndValidate reads a JSON body into dst and checks its struct tags.
func decodeAndValidate(r *http.Request, dst interface{}) error {
	if err := decodeBody(r, dst); err != nil {
		return err
	}
	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return appErrors.NewValidation(validationMessage(verrs[0]))
		}
		return appErrors.NewValidation(err.Error())
	}
	return nil
}

func validationMessage(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "min":
		return field + " must be at least " + fe.Param() + " characters"
	case "max":
		return field + " must be at most " + fe.Param() + " characters"
	case "eqfield":
		return field + " must match " + fe.Param()
	case "oneof":
		return field + " must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "gt":
		return field + " must be greater than " + fe.Param()
	default:
		return field + " is invalid"
	}
}

// handleServiceError converts service errors to appropriate HTTP responses
func handleServiceError(w http.ResponseWriter, r *http.Request, logger *zap.Logger, err error) {
	fields := []zap.Field{
		zap.Error(err),
		zap.String("path", r.URL.Path),
		zap.String("request_id", middleware.GetRequestIDFromRequest(r)),
	}
	switch {
	case appErrors.IsValidation(err):
		logger.Debug("validation error", fields...)
		api.Error(w, http.StatusBadRequest, messageOf(err))
	case errors.Is(err, domain.ErrNotAuthenticated), appErrors.IsUnauthorized(err):
		logger.Info("unauthorized", fields...)
		api.Error(w, http.StatusUnauthorized, messageOf(err))
	case appErrors.IsNotFound(err):
		logger.Debug("not found", fields...)
		api.Error(w, http.StatusNotFound, messageOf(err))
	case appErrors.IsUnavailable(err), isTimeoutError(err):
		logger.Warn("service unavailable", fields...)
		api.Error(w, http.StatusServiceUnavailable, "Service temporarily unavailable")
	default:
		logger.Error("internal error", fields...)
		api.Error(w, http.StatusInternalServerError, "An internal error occurred")
	}
}

// messageOf returns the user-facing message of an AppError without the
// wrapped cause.
func messageOf(err error) string {
	var appErr *appErrors.AppError
	if errors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}
	if errors.Is(err, domain.ErrNotAuthenticated) {
		return "Not signed in."
	}
	return err.Error()
}

// isTimeoutError checks if the error is related to timeouts
func isTimeoutError(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "i/o timeout")
}
