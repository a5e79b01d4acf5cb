package model

import (
	"errors"
	"fmt"
)

// Sentinel error kinds. Concrete errors match them through errors.Is.
var (
	ErrValidation      = errors.New("validation failed")
	ErrNotFound        = errors.New("not found")
	ErrVersionConflict = errors.New("record was modified concurrently")
	ErrNotEditing      = errors.New("record is not being edited")
	ErrPipeline        = errors.New("analysis pipeline failed")
	ErrDuplicate       = errors.New("already requested")
	ErrUnavailable     = errors.New("unavailable")
)

// ValidationError reports a rejected input, optionally naming the field.
type ValidationError struct {
	Field   string
	Message string
}

// NewValidationError builds a ValidationError.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// Is makes every ValidationError match ErrValidation.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// NotFoundError names the missing session or student.
type NotFoundError struct {
	SessionID string
	StudentID string
}

func (e *NotFoundError) Error() string {
	switch {
	case e.StudentID == "":
		return fmt.Sprintf("session %q not found", e.SessionID)
	case e.SessionID == "":
		return fmt.Sprintf("student %q not found in any session", e.StudentID)
	}
	return fmt.Sprintf("student %q not found in session %q", e.StudentID, e.SessionID)
}

// Is makes every NotFoundError match ErrNotFound.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// PipelineError wraps a failure of the external analysis pipeline.
type PipelineError struct {
	SessionID string
	Err       error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("analysis pipeline failed for session %q: %v", e.SessionID, e.Err)
}

func (e *PipelineError) Unwrap() error { return e.Err }

// Is makes every PipelineError match ErrPipeline.
func (e *PipelineError) Is(target error) bool {
	return target == ErrPipeline
}
