package errors

import (
	"github.com/cockroachdb/errors"
)

// Sentinel errors used to classify failures across the codebase.
// Services mark their errors with exactly one of these; callers use the
// Is* helpers instead of comparing errors directly.
var (
	ErrValidation          = errors.New("validation_error")
	ErrNotFound            = errors.New("not_found")
	ErrAlreadyExists       = errors.New("already_exists")
	ErrInvalidOperation    = errors.New("invalid_operation")
	ErrInvalidBillingCycle = errors.New("invalid_billing_cycle")
	ErrHTTPClient          = errors.New("http_client_error")
	ErrDatabase            = errors.New("database_error")
	ErrInternal            = errors.New("internal_error")
)

// Error codes reported in API responses and webhook payloads.
const (
	ErrCodeValidation          = "validation_error"
	ErrCodeNotFound            = "not_found"
	ErrCodeAlreadyExists       = "already_exists"
	ErrCodeInvalidOperation    = "invalid_operation"
	ErrCodeInvalidBillingCycle = "invalid_billing_cycle"
	ErrCodeHTTPClient          = "http_client_error"
	ErrCodeDatabase            = "database_error"
	ErrCodeInternal            = "internal_error"
)

func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

func IsInvalidOperation(err error) bool {
	return errors.Is(err, ErrInvalidOperation)
}

func IsInvalidBillingCycle(err error) bool {
	return errors.Is(err, ErrInvalidBillingCycle)
}

func IsDatabase(err error) bool {
	return errors.Is(err, ErrDatabase)
}

// ErrorCode returns the wire code for an error based on its sentinel mark.
func ErrorCode(err error) string {
	switch {
	case IsValidation(err):
		return ErrCodeValidation
	case IsNotFound(err):
		return ErrCodeNotFound
	case IsAlreadyExists(err):
		return ErrCodeAlreadyExists
	case IsInvalidOperation(err):
		return ErrCodeInvalidOperation
	case IsInvalidBillingCycle(err):
		return ErrCodeInvalidBillingCycle
	case errors.Is(err, ErrHTTPClient):
		return ErrCodeHTTPClient
	case IsDatabase(err):
		return ErrCodeDatabase
	default:
		return ErrCodeInternal
	}
}
