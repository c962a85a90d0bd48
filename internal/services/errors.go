package services

import (
	"errors"
	"fmt"

	"github.com/terraincognita07/shrine/internal/fortune"
)

var (
	ErrValidation        = errors.New("validation failed")
	ErrAuth              = errors.New("invalid passcode")
	ErrEmptyPool         = fortune.ErrEmptyPool
	ErrLostSlip          = errors.New("recorded fortune no longer exists")
	ErrPayloadTooLarge   = errors.New("payload too large")
	ErrStorageRead       = errors.New("storage read failed")
	ErrStorageWrite      = errors.New("storage write failed")
	ErrSlipNotFound      = errors.New("fortune slip not found")
	ErrInvalidTransition = errors.New("invalid view transition")
	ErrDrawInProgress    = errors.New("draw already in progress")
	ErrSessionExpired    = errors.New("session expired")
)

// FieldError names the input field a validation sentinel applies to.
type FieldError struct {
	Field string
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

func fieldError(field string, err error) error {
	return &FieldError{Field: field, Err: err}
}

func storageReadError(err error) error {
	return fmt.Errorf("%w: %v", ErrStorageRead, err)
}

func storageWriteError(err error) error {
	return fmt.Errorf("%w: %v", ErrStorageWrite, err)
}
