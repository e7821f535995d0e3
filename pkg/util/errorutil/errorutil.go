package errorutil

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5"

	"github.com/deskops/ticket-desk/internal/domain"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError("VALIDATION_FAILED", message, http.StatusBadRequest, details)
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       "NOT_FOUND",
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

func NewUnauthorized(message string) error {
	return NewDomainError("UNAUTHORIZED", message, http.StatusUnauthorized, nil)
}

func NewForbidden(message string) error {
	return NewDomainError("FORBIDDEN", message, http.StatusForbidden, nil)
}

func NewConflict(message string, details map[string]any) error {
	return NewDomainError("CONFLICT", message, http.StatusConflict, details)
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       "INTERNAL_ERROR",
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

type sentinel struct {
	err    error
	code   string
	status int
}

var sentinels = []sentinel{
	{domain.ErrNotFound, "NOT_FOUND", http.StatusNotFound},
	{pgx.ErrNoRows, "NOT_FOUND", http.StatusNotFound},
	{domain.ErrFetchFailed, "FETCH_FAILED", http.StatusBadGateway},
	{domain.ErrUpdateFailed, "UPDATE_FAILED", http.StatusBadGateway},
	{domain.ErrSessionOpen, "SESSION_OPEN", http.StatusConflict},
	{domain.ErrNoSession, "NO_SESSION", http.StatusConflict},
	{domain.ErrSuperseded, "SESSION_SUPERSEDED", http.StatusConflict},
	{domain.ErrCommitInFlight, "COMMIT_IN_FLIGHT", http.StatusConflict},
	{domain.ErrInvalidDraft, "VALIDATION_FAILED", http.StatusBadRequest},
	{domain.ErrInvalidCredentials, "UNAUTHORIZED", http.StatusUnauthorized},
	{domain.ErrForbiddenRole, "FORBIDDEN", http.StatusForbidden},
}

// ToDomainError converts generic errors to DomainError. Known sentinels keep
// the wrapped message so the operator sees which ticket failed.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	for _, s := range sentinels {
		if errors.Is(err, s.err) {
			return &DomainError{Code: s.code, Message: err.Error(), HTTPStatus: s.status, Err: err}
		}
	}
	return &DomainError{
		Code:       "INTERNAL_ERROR",
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func MapError(err error) error {
	return ToDomainError(err)
}
