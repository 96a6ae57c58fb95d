package application

import (
	"errors"

	"github.com/GregHandsley/powerbase-kiosk-sub002/internal/persistence"
	"github.com/GregHandsley/powerbase-kiosk-sub002/internal/scheduler"
)

var (
	// ErrNotFound is returned when the requested resource does not exist.
	ErrNotFound = errors.New("application: not found")
	// ErrNoMatchingSchedule is returned when a delete operation finds no rule
	// row under its signature.
	ErrNoMatchingSchedule = errors.New("application: no matching schedule")
	// ErrAlreadyExists is returned when an insert collides with an existing row.
	ErrAlreadyExists = errors.New("application: already exists")
)

// ValidationError captures field level validation issues that callers can surface to users.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil {
		return ""
	}
	return "validation failed"
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// add records a field level validation error.
func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	v.FieldErrors[field] = message
}

// ConflictError reports that a proposed rule overlaps existing rules. The
// report enumerates every conflict, not just the first.
type ConflictError struct {
	Report *scheduler.Report
}

// Error implements the error interface.
func (e *ConflictError) Error() string {
	if e == nil || e.Report == nil {
		return "schedule conflict"
	}
	return "schedule conflict: " + e.Report.Summary()
}

func mapRepoError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, persistence.ErrNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, persistence.ErrDuplicate) {
		return ErrAlreadyExists
	}
	if errors.Is(err, persistence.ErrConstraintViolation) {
		vErr := &ValidationError{}
		vErr.add("time", "start must be before end")
		return vErr
	}
	if errors.Is(err, persistence.ErrForeignKeyViolation) {
		vErr := &ValidationError{}
		vErr.add("zone_id", "related records are missing")
		return vErr
	}
	return err
}

func isNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, persistence.ErrNotFound)
}
