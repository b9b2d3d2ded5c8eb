package handlers

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/jntagengwa/pathway/internal/shared"
	"github.com/jntagengwa/pathway/utils"
)

// HandleServiceError maps domain errors to HTTP responses. Auth failures and
// internal errors get generic messages; the cause goes to the log.
func HandleServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	if err == nil {
		return
	}

	details := shared.GetErrorDetails(err)

	switch {
	case shared.IsNotFoundError(err):
		if err := utils.WriteNotFound(w, publicMessage(err)); err != nil {
			logger.Error("failed to write not found response", zap.Error(err))
		}

	case shared.IsValidationError(err), utils.IsValidationError(err):
		if fields := utils.GetValidationFields(err); fields != nil {
			details = withFields(details, fields)
		}
		if err := utils.WriteBadRequest(w, publicMessage(err), details); err != nil {
			logger.Error("failed to write bad request response", zap.Error(err))
		}

	case shared.IsUnauthorizedError(err):
		logger.Warn("unauthorized", zap.Error(err))
		if err := utils.WriteUnauthorized(w, "Authentication required"); err != nil {
			logger.Error("failed to write unauthorized response", zap.Error(err))
		}

	case shared.IsForbiddenError(err):
		if err := utils.WriteForbidden(w, "Insufficient permissions"); err != nil {
			logger.Error("failed to write forbidden response", zap.Error(err))
		}

	case shared.IsExternalError(err):
		// External dependency errors are mapped to 502 Bad Gateway
		logger.Error("external dependency error", zap.Error(err))
		if err := utils.WriteJSON(w, http.StatusBadGateway, utils.ErrorResponse{
			Error:   "bad_gateway",
			Message: "Upstream dependency unavailable",
		}); err != nil {
			logger.Error("failed to write bad gateway response", zap.Error(err))
		}

	case shared.IsInternalError(err):
		// Log internal errors but return generic message
		logger.Error("internal server error", zap.Error(err), zap.Any("details", details))
		if err := utils.WriteInternalServerError(w, "An internal error occurred"); err != nil {
			logger.Error("failed to write internal error response", zap.Error(err))
		}

	default:
		logger.Error("unhandled error type",
			zap.Error(err),
			zap.String("error_type", string(shared.GetErrorType(err))))
		if err := utils.WriteInternalServerError(w, "An unexpected error occurred"); err != nil {
			logger.Error("failed to write internal error response", zap.Error(err))
		}
	}
}

// publicMessage returns the outermost domain message, which is safe to show
// to the caller. The wrapped cause is not.
func publicMessage(err error) string {
	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) && domainErr.Message != "" {
		return domainErr.Message
	}
	var validationErr *utils.ValidationError
	if errors.As(err, &validationErr) {
		return validationErr.Message
	}
	return "Invalid request"
}

func withFields(details map[string]interface{}, fields map[string]string) map[string]interface{} {
	out := make(map[string]interface{}, len(details)+1)
	for k, v := range details {
		out[k] = v
	}
	out["fields"] = fields
	return out
}
