package models

import (
	"errors"
	"fmt"
)

// Error kinds shared by the persistence and logic layers. Wrapped errors keep
// the kind reachable through errors.Is.
var (
	ErrNotFound        = errors.New("not found")
	ErrForbidden       = errors.New("forbidden")
	ErrConflict        = errors.New("conflict")
	ErrInvalidArgument = errors.New("invalid argument")
)

func NotFoundf(format string, args ...any) error {
	return kindError(ErrNotFound, format, args...)
}

func Forbiddenf(format string, args ...any) error {
	return kindError(ErrForbidden, format, args...)
}

func Conflictf(format string, args ...any) error {
	return kindError(ErrConflict, format, args...)
}

func InvalidArgumentf(format string, args ...any) error {
	return kindError(ErrInvalidArgument, format, args...)
}

func kindError(kind error, format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), kind)
}
