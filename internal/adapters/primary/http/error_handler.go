package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"unicode"

	mw "github.com/ticketmint/event-program/internal/adapters/primary/http/middleware"
	"github.com/ticketmint/event-program/internal/core/domain"
	apperrors "github.com/ticketmint/event-program/internal/core/errors"
	"github.com/ticketmint/event-program/internal/core/program"
	"github.com/ticketmint/event-program/internal/infrastructure/logging"
)

// GetRequestID retrieves the request ID from context
func GetRequestID(ctx context.Context) string {
	return mw.GetRequestID(ctx)
}

// ErrorResponse is the standard JSON error response format
type ErrorResponse struct {
	Error   string                 `json:"error"`
	Code    string                 `json:"code,omitempty"`
	Kind    string                 `json:"kind,omitempty"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// ValidationErrorResponse includes field-level validation errors
type ValidationErrorResponse struct {
	Error  string              `json:"error"`
	Code   string              `json:"code"`
	Fields map[string][]string `json:"fields,omitempty"`
}

// ErrorHandler provides centralized error handling with logging
type ErrorHandler struct {
	logger *slog.Logger
}

// NewErrorHandler creates a new error handler with the given logger
func NewErrorHandler(logger *slog.Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// Handle processes an error and writes the appropriate HTTP response
func (h *ErrorHandler) Handle(w http.ResponseWriter, r *http.Request, err error) {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		h.logError(r, appErr.StatusCode, err)
		h.writeErrorResponse(w, appErr.StatusCode, ErrorResponse{
			Error:   appErr.Message,
			Code:    appErr.Code,
			Details: appErr.Details,
		})
		return
	}

	var validationErrs *apperrors.ValidationErrors
	if errors.As(err, &validationErrs) {
		h.logError(r, http.StatusUnprocessableEntity, err)
		h.writeValidationErrorResponse(w, validationErrs)
		return
	}

	var programErr *apperrors.ProgramError
	if errors.As(err, &programErr) {
		status := statusForKind(programErr.Kind)
		h.logError(r, status, err)
		h.writeErrorResponse(w, status, ErrorResponse{
			Error: programErr.Code,
			Code:  screamingSnake(programErr.Code),
			Kind:  string(programErr.Kind),
		})
		return
	}

	statusCode, response := h.mapError(err)
	h.logError(r, statusCode, err)
	h.writeErrorResponse(w, statusCode, response)
}

// statusForKind maps rejected program preconditions to HTTP statuses.
func statusForKind(kind apperrors.Kind) int {
	switch kind {
	case apperrors.KindAuthorization:
		return http.StatusForbidden
	case apperrors.KindState:
		return http.StatusConflict
	case apperrors.KindValidation:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// mapError converts ledger and off-chain errors to HTTP status codes and responses
func (h *ErrorHandler) mapError(err error) (int, ErrorResponse) {
	switch {
	// Payment leg
	case errors.Is(err, apperrors.ErrInsufficientBalance):
		return http.StatusConflict, ErrorResponse{
			Error: "Payment sender has insufficient balance",
			Code:  "INSUFFICIENT_BALANCE",
		}
	case errors.Is(err, apperrors.ErrBelowMinimumBalance):
		return http.StatusConflict, ErrorResponse{
			Error: "Payment would leave the sender below its minimum balance",
			Code:  "BELOW_MINIMUM_BALANCE",
		}

	// Authentication & Authorization
	case errors.Is(err, apperrors.ErrTokenInvalid):
		return http.StatusUnauthorized, ErrorResponse{
			Error: "Authentication required",
			Code:  "UNAUTHORIZED",
		}
	case errors.Is(err, apperrors.ErrForbidden):
		return http.StatusForbidden, ErrorResponse{
			Error: "You do not have permission to perform this action",
			Code:  "FORBIDDEN",
		}

	// Not Found errors
	case errors.Is(err, apperrors.ErrTicketNotFound):
		return http.StatusNotFound, ErrorResponse{
			Error: "Ticket not found",
			Code:  "TICKET_NOT_FOUND",
		}
	case errors.Is(err, apperrors.ErrEventNotFound), errors.Is(err, program.ErrProgramNotFound):
		return http.StatusNotFound, ErrorResponse{
			Error: "Event not found",
			Code:  "EVENT_NOT_FOUND",
		}
	case errors.Is(err, apperrors.ErrNotFound):
		return http.StatusNotFound, ErrorResponse{
			Error: "Resource not found",
			Code:  "NOT_FOUND",
		}

	// Ticket codes
	case errors.Is(err, domain.ErrMalformedTicketCode):
		return http.StatusUnprocessableEntity, ErrorResponse{
			Error: "Ticket code is malformed",
			Code:  "MALFORMED_TICKET_CODE",
		}
	case errors.Is(err, apperrors.ErrTicketCodeMismatch):
		return http.StatusConflict, ErrorResponse{
			Error: "Ticket code was not issued to the current holder",
			Code:  "TICKET_CODE_MISMATCH",
		}

	case errors.Is(err, apperrors.ErrConflict):
		return http.StatusConflict, ErrorResponse{
			Error: "Resource conflict",
			Code:  "CONFLICT",
		}

	case errors.Is(err, apperrors.ErrRateLimited):
		return http.StatusTooManyRequests, ErrorResponse{
			Error: "Too many requests. Please try again later.",
			Code:  "RATE_LIMITED",
		}

	default:
		return http.StatusInternalServerError, ErrorResponse{
			Error: "An unexpected error occurred",
			Code:  "INTERNAL_ERROR",
		}
	}
}

// screamingSnake turns a precondition code such as "SoldOut" into "SOLD_OUT".
func screamingSnake(code string) string {
	var b strings.Builder
	for i, r := range code {
		if i > 0 && unicode.IsUpper(r) {
			b.WriteByte('_')
		}
		b.WriteRune(unicode.ToUpper(r))
	}
	return b.String()
}

// logError logs the error with appropriate context
func (h *ErrorHandler) logError(r *http.Request, statusCode int, err error) {
	log := logging.LoggerFromContext(r.Context(), h.logger)
	attrs := []any{
		"method", r.Method,
		"path", r.URL.Path,
		"status_code", statusCode,
		"error", err.Error(),
	}

	switch {
	case statusCode >= 500:
		log.Error("server error", attrs...)
	case statusCode >= 400:
		log.Warn("client error", attrs...)
	default:
		log.Info("request error", attrs...)
	}
}

// writeErrorResponse writes a JSON error response
func (h *ErrorHandler) writeErrorResponse(w http.ResponseWriter, statusCode int, response ErrorResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(response)
}

// writeValidationErrorResponse writes a validation error response
func (h *ErrorHandler) writeValidationErrorResponse(w http.ResponseWriter, errs *apperrors.ValidationErrors) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnprocessableEntity)
	_ = json.NewEncoder(w).Encode(ValidationErrorResponse{
		Error:  "Validation failed",
		Code:   "VALIDATION_ERROR",
		Fields: errs.Errors,
	})
}
