package domain

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrNotFound means the source does not exist.
	ErrNotFound = errors.New("source not found")
	// ErrAccessDenied means the source exists but cannot be read.
	ErrAccessDenied = errors.New("source access denied")
	// ErrConnectivity covers transient network or backend failures.
	ErrConnectivity = errors.New("connectivity failure")
	// ErrConfigurationInvalid is returned for malformed startup parameters.
	ErrConfigurationInvalid = errors.New("invalid configuration")
	// ErrNoValidSources stops the scheduler when validation leaves nothing to monitor.
	ErrNoValidSources = errors.New("no valid sources to monitor")
)

// NormalizeSourceError keeps NotFound/AccessDenied/context errors as they are and
// folds everything else into ErrConnectivity while preserving the cause.
func NormalizeSourceError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, ErrAccessDenied),
		errors.Is(err, ErrConnectivity),
		errors.Is(err, ErrConfigurationInvalid),
		errors.Is(err, context.Canceled):
		return err
	}
	return fmt.Errorf("%w: %w", ErrConnectivity, err)
}

// ErrorKind names the error category for logs and summaries.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrAccessDenied):
		return "access_denied"
	case errors.Is(err, ErrConfigurationInvalid):
		return "configuration_invalid"
	default:
		return "connectivity"
	}
}
