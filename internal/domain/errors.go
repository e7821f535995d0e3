package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrFetchFailed marks a failed or malformed ticket list.
	ErrFetchFailed = errors.New("fetch failed")
	// ErrNotFound marks a missing record or a record without fields.
	ErrNotFound = errors.New("not found")
	// ErrUpdateFailed marks a rejected write or a malformed update response.
	ErrUpdateFailed = errors.New("update failed")

	ErrSessionOpen        = errors.New("edit session already open")
	ErrNoSession          = errors.New("no edit session open")
	ErrSuperseded         = errors.New("edit session superseded")
	ErrCommitInFlight     = errors.New("commit in flight")
	ErrInvalidDraft       = errors.New("invalid draft value")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrForbiddenRole      = errors.New("role has no access")
)

// FetchFailed wraps err as ErrFetchFailed unless it already is one.
func FetchFailed(err error) error {
	if err == nil || errors.Is(err, ErrFetchFailed) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrFetchFailed, err)
}
