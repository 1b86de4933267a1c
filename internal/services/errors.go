package services

import (
	"errors"
	"fmt"

	"github.com/netai/social-api/internal/repository"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrValidation   = errors.New("validation failed")
	ErrUnauthorized = errors.New("invalid credentials")
	ErrForbidden    = errors.New("permission denied")
	ErrThrottled    = errors.New("too many changes")
	// ErrConsistency means the unit of work could not commit and the whole
	// operation may be retried.
	ErrConsistency = errors.New("consistency failure")
)

func notFound(what string, id interface{}) error {
	return fmt.Errorf("%s %v: %w", what, id, ErrNotFound)
}

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrValidation)
}

// classify maps storage-level failures onto the service taxonomy.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, repository.ErrTxConflict) {
		return fmt.Errorf("%w: %v", ErrConsistency, err)
	}
	return err
}
