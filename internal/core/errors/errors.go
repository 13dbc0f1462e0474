package errors

import (
	"errors"
	"fmt"
)

// Kind classifies a rejected program call.
type Kind string

const (
	KindAuthorization Kind = "AUTHORIZATION"
	KindState         Kind = "STATE"
	KindValidation    Kind = "VALIDATION"
	KindUnknown       Kind = "UNKNOWN"
)

// ProgramError is a violated precondition of an event program call.
// It carries a stable code so off-chain callers can translate it.
type ProgramError struct {
	Code string
	Kind Kind
}

func (e *ProgramError) Error() string {
	return e.Code
}

func newProgramError(code string, kind Kind) *ProgramError {
	return &ProgramError{Code: code, Kind: kind}
}

// Program preconditions
var (
	// Authorization
	ErrUnauthorized = newProgramError("Unauthorized", KindAuthorization)

	// State
	ErrAlreadyMinted     = newProgramError("AlreadyMinted", KindState)
	ErrNotMinted         = newProgramError("NotMinted", KindState)
	ErrSoldOut           = newProgramError("SoldOut", KindState)
	ErrAlreadyUsed       = newProgramError("AlreadyUsed", KindState)
	ErrNotListed         = newProgramError("NotListed", KindState)
	ErrNoFunds           = newProgramError("NoFunds", KindState)
	ErrNoValidTicket     = newProgramError("NoValidTicket", KindState)
	ErrSellerHasNoTicket = newProgramError("SellerHasNoTicket", KindState)
	ErrAlreadyRegistered = newProgramError("AlreadyRegistered", KindState)
	ErrProgramNotFunded  = newProgramError("ProgramNotFunded", KindState)

	// Validation
	ErrWrongReceiver       = newProgramError("WrongReceiver", KindValidation)
	ErrInsufficientPayment = newProgramError("InsufficientPayment", KindValidation)
	ErrBelowAsking         = newProgramError("BelowAsking", KindValidation)
	ErrAboveFaceValue      = newProgramError("AboveFaceValue", KindValidation)
	ErrInvalidPrice        = newProgramError("InvalidPrice", KindValidation)
	ErrInvalidAmount       = newProgramError("InvalidAmount", KindValidation)
)

// Ledger errors raised by the asset registry and payment rail.
var (
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrBelowMinimumBalance = errors.New("transfer would leave account below minimum balance")
	ErrAssetNotFound       = errors.New("asset not found")
	ErrNotClawback         = errors.New("caller is not the clawback authority of the asset")
)

// Off-chain errors
var (
	ErrForbidden      = errors.New("action forbidden")
	ErrTicketNotFound = errors.New("ticket not found")
	ErrEventNotFound  = errors.New("event not found")
	ErrNotFound       = errors.New("resource not found")
	ErrConflict       = errors.New("resource conflict")
	ErrRateLimited    = errors.New("rate limit exceeded")
	ErrTokenInvalid   = errors.New("invalid or expired token")

	// ErrTicketCodeMismatch means a scanned code was not issued to the
	// ticket's current owner.
	ErrTicketCodeMismatch = errors.New("ticket code does not match current holder")
)

// KindOf reports the precondition class of err, or KindUnknown.
func KindOf(err error) Kind {
	var pe *ProgramError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	var ve *ValidationErrors
	if errors.As(err, &ve) {
		return KindValidation
	}
	return KindUnknown
}

// CodeOf returns the precondition code of err, or "" when err is not a program error.
func CodeOf(err error) string {
	var pe *ProgramError
	if errors.As(err, &pe) {
		return pe.Code
	}
	return ""
}

// AppError wraps errors with additional context for HTTP responses
type AppError struct {
	Err        error  // The underlying error
	Message    string // User-friendly message
	Code       string // Machine-readable error code
	StatusCode int    // HTTP status code
	Details    map[string]interface{}
}

func (e *AppError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Err.Error()
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NewBadRequestError(err error, message string) *AppError {
	return &AppError{
		Err:        err,
		Message:    message,
		Code:       "BAD_REQUEST",
		StatusCode: 400,
	}
}

func NewUnauthorizedError(message string) *AppError {
	return &AppError{
		Err:        ErrTokenInvalid,
		Message:    message,
		Code:       "UNAUTHORIZED",
		StatusCode: 401,
	}
}

func NewInternalError(err error) *AppError {
	return &AppError{
		Err:        err,
		Message:    "An unexpected error occurred",
		Code:       "INTERNAL_ERROR",
		StatusCode: 500,
	}
}

// ValidationErrors holds multiple field validation errors
type ValidationErrors struct {
	Errors map[string][]string `json:"errors"`
}

func NewValidationErrors() *ValidationErrors {
	return &ValidationErrors{
		Errors: make(map[string][]string),
	}
}

func (v *ValidationErrors) Add(field, message string) {
	v.Errors[field] = append(v.Errors[field], message)
}

func (v *ValidationErrors) HasErrors() bool {
	return len(v.Errors) > 0
}

func (v *ValidationErrors) Error() string {
	return fmt.Sprintf("validation failed: %d field(s) have errors", len(v.Errors))
}
