package application

import (
	"errors"
	"fmt"

	"canvaslink/internal/domain"
)

// Sentinel errors for common conditions
var (
	ErrNotFound         = errors.New("not found")
	ErrAlreadyExists    = errors.New("already exists")
	ErrParseFailure     = domain.ErrMalformedCanvas
	ErrIOFailure        = errors.New("i/o failure")
	ErrGroupConflict    = errors.New("group conflict")
	ErrInvalidOperation = errors.New("invalid operation")
)

// ValidationError represents a validation failure with details
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidOperation
}

// DocumentError represents a failed document store operation
type DocumentError struct {
	Op   string // read, create, modify
	Path string
	Kind error // one of the sentinel errors above
	Err  error
}

func (e *DocumentError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Kind)
	}
	return fmt.Sprintf("%s %s: %v: %v", e.Op, e.Path, e.Kind, e.Err)
}

func (e *DocumentError) Is(target error) bool {
	return target == e.Kind
}

func (e *DocumentError) Unwrap() error {
	return e.Err
}

// GroupConflictError reports a violation of the group membership invariants
type GroupConflictError struct {
	Path    string
	GroupID string
	Reason  string
}

func (e *GroupConflictError) Error() string {
	if e.GroupID == "" {
		return fmt.Sprintf("cannot link %s: %s", e.Path, e.Reason)
	}
	return fmt.Sprintf("cannot link %s: %s (group %s)", e.Path, e.Reason, e.GroupID)
}

func (e *GroupConflictError) Is(target error) bool {
	return target == ErrGroupConflict
}
