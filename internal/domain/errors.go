package domain

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrVenueMismatch     = errors.New("record belongs to another venue")
	ErrValidation        = errors.New("validation failed")
)
