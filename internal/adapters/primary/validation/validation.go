package validation

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"

	apperrors "github.com/ticketmint/event-program/internal/core/errors"
)

const (
	// MaxBodyBytes caps decoded request bodies.
	MaxBodyBytes = 1 << 20

	maxAccountLength = 64
)

var accountRegex = regexp.MustCompile(`^[A-Z0-9]+$`)

// Validator validates request data
type Validator struct {
	errors *apperrors.ValidationErrors
}

// NewValidator creates a new validator
func NewValidator() *Validator {
	return &Validator{
		errors: apperrors.NewValidationErrors(),
	}
}

// HasErrors returns true if there are validation errors
func (v *Validator) HasErrors() bool {
	return v.errors.HasErrors()
}

// Errors returns the validation errors
func (v *Validator) Errors() *apperrors.ValidationErrors {
	return v.errors
}

// Err returns the validation errors, or nil when there are none.
func (v *Validator) Err() error {
	if v.HasErrors() {
		return v.errors
	}
	return nil
}

// Required validates that a string is not empty
func (v *Validator) Required(field, value string) *Validator {
	if strings.TrimSpace(value) == "" {
		v.errors.Add(field, "This field is required")
	}
	return v
}

// MaxLength validates maximum string length
func (v *Validator) MaxLength(field, value string, max int) *Validator {
	if len(value) > max {
		v.errors.Add(field, "Must be at most "+strconv.Itoa(max)+" characters")
	}
	return v
}

// UUID validates UUID format
func (v *Validator) UUID(field, value string) *Validator {
	if value != "" {
		if _, err := uuid.Parse(value); err != nil {
			v.errors.Add(field, "Must be a valid UUID")
		}
	}
	return v
}

// Account validates a ledger account address.
func (v *Validator) Account(field, value string) *Validator {
	if value == "" {
		return v // Empty is handled by Required
	}
	if len(value) > maxAccountLength || !accountRegex.MatchString(value) {
		v.errors.Add(field, "Must be an account address of up to "+strconv.Itoa(maxAccountLength)+" upper-case letters or digits")
	}
	return v
}

// Positive validates that an amount is above zero.
func (v *Validator) Positive(field string, value uint64) *Validator {
	if value == 0 {
		v.errors.Add(field, "Must be greater than zero")
	}
	return v
}

// OneOf validates value is one of the allowed values
func (v *Validator) OneOf(field, value string, allowed []string) *Validator {
	if value == "" {
		return v
	}

	for _, a := range allowed {
		if value == a {
			return v
		}
	}

	v.errors.Add(field, "Must be one of: "+strings.Join(allowed, ", "))
	return v
}

// Custom adds a custom validation
func (v *Validator) Custom(field string, valid bool, message string) *Validator {
	if !valid {
		v.errors.Add(field, message)
	}
	return v
}

// Validatable is implemented by request bodies that check themselves.
type Validatable interface {
	Validate() error
}

// DecodeAndValidate decodes a JSON request body and runs its Validate method
// when it has one. Unknown fields are rejected.
func DecodeAndValidate[T any](r *http.Request) (*T, error) {
	var req T

	decoder := json.NewDecoder(io.LimitReader(r.Body, MaxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, apperrors.NewBadRequestError(err, "Request body is required")
		}
		return nil, apperrors.NewBadRequestError(err, "Invalid request body")
	}

	if v, ok := any(&req).(Validatable); ok {
		if err := v.Validate(); err != nil {
			return nil, err
		}
	}

	return &req, nil
}

// PaginationParams holds pagination parameters
type PaginationParams struct {
	Limit  int
	Offset int
}

// DefaultPagination returns default pagination values
func DefaultPagination() PaginationParams {
	return PaginationParams{
		Limit:  25,
		Offset: 0,
	}
}

// ParsePagination extracts and validates pagination from query parameters
func ParsePagination(r *http.Request, maxLimit int) PaginationParams {
	params := DefaultPagination()

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil && limit > 0 {
			params.Limit = limit
		}
	}

	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil && offset >= 0 {
			params.Offset = offset
		}
	}

	if params.Limit > maxLimit {
		params.Limit = maxLimit
	}

	return params
}
