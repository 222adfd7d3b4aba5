package validator

import (
	"sync"

	ierr "github.com/Ashwinashu-12/billflow-saas-sub000/internal/errors"
	"github.com/go-playground/validator/v10"
)

var (
	validate *validator.Validate
	once     sync.Once
)

// GetValidator returns the shared validator instance.
func GetValidator() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// ValidateRequest validates a request struct against its validate tags.
func ValidateRequest(req interface{}) error {
	if err := GetValidator().Struct(req); err != nil {
		return ierr.WithError(err).
			WithHint("Request validation failed").
			Mark(ierr.ErrValidation)
	}
	return nil
}
