// Package errors provides error handling for the ESG pipeline.
//
// This package re-exports github.com/cockroachdb/errors, providing:
//   - Stack traces for debugging
//   - Error wrapping and context
//   - PII-safe error formatting
//
// Usage:
//
//	// Create new error
//	err := errors.New("something went wrong")
//
//	// Wrap with context
//	if err := doSomething(); err != nil {
//	    return errors.Wrap(err, "failed to do something")
//	}
//
//	// Check errors
//	if errors.Is(err, errors.ErrNotFound) {
//	    // handle not found
//	}
//
// For full documentation see: https://pkg.go.dev/github.com/cockroachdb/errors
package errors

import (
	crdb "github.com/cockroachdb/errors"
)

// Core error creation and wrapping
var (
	New          = crdb.New
	Newf         = crdb.Newf
	Wrap         = crdb.Wrap
	Wrapf        = crdb.Wrapf
	WithStack    = crdb.WithStack
	WithMessage  = crdb.WithMessage
	WithMessagef = crdb.WithMessagef
)

// User-facing messages and details
var (
	WithHint      = crdb.WithHint
	WithHintf     = crdb.WithHintf
	WithDetail    = crdb.WithDetail
	WithDetailf   = crdb.WithDetailf
	GetAllDetails = crdb.GetAllDetails
	GetAllHints   = crdb.GetAllHints
)

// Error inspection
var (
	Is        = crdb.Is
	IsAny     = crdb.IsAny
	As        = crdb.As
	Unwrap    = crdb.Unwrap
	UnwrapAll = crdb.UnwrapAll
)

// Sentinel errors for the submission pipeline.
// Use these with errors.Is() for type-safe error checking.
// Wrap these with errors.Wrap() to add context while preserving the type.
var (
	// ErrNotFound indicates the requested record does not exist
	ErrNotFound = New("not found")

	// ErrConfigNotFound indicates no active gateway configuration exists
	// for the requested (tenant, environment) pair
	ErrConfigNotFound = New("gateway configuration not found")

	// ErrPackaging indicates a fatal package assembly failure
	// (backbone, checksum file, or archive could not be written)
	ErrPackaging = New("packaging failed")

	// ErrValidationFailed indicates the assembled package failed content
	// validation; distinct from a validator that could not run at all
	ErrValidationFailed = New("package validation failed")

	// ErrTransport indicates a gateway transmission failure; submit is
	// atomic, so no partial submission state is assumed sent
	ErrTransport = New("gateway transmission failed")
)

// IsNotFoundError checks if an error is or wraps ErrNotFound.
// Also covers raw sql.ErrNoRows-derived messages from store code.
func IsNotFoundError(err error) bool {
	if err == nil {
		return false
	}
	if Is(err, ErrNotFound) || Is(err, ErrConfigNotFound) {
		return true
	}
	errMsg := err.Error()
	return len(errMsg) >= 9 && errMsg[len(errMsg)-9:] == "not found"
}

// NewNotFoundError creates a not-found error with a formatted message
func NewNotFoundError(format string, args ...interface{}) error {
	return Wrap(ErrNotFound, Newf(format, args...).Error())
}
