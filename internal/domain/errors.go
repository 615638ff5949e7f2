package domain

import (
	"errors"
	"fmt"
	"strings"
)

// NotFoundError is returned when a product, basket, basket line, order or
// user does not exist.
type NotFoundError struct {
	Resource string
	Key      string
}

func (e *NotFoundError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("%s not found", e.Resource)
	}
	return fmt.Sprintf("%s not found: %s", e.Resource, e.Key)
}

// Is allows errors.Is(err, &NotFoundError{}) regardless of fields.
func (e *NotFoundError) Is(target error) bool {
	_, ok := target.(*NotFoundError)
	return ok
}

// FieldError is one validation message tied to a field or error code.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError carries field-level detail for malformed input.
type ValidationError struct {
	Title  string
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	if len(parts) == 0 {
		return e.Title
	}
	return e.Title + ": " + strings.Join(parts, "; ")
}

func (e *ValidationError) Is(target error) bool {
	_, ok := target.(*ValidationError)
	return ok
}

// Add appends a field message and returns the receiver for chaining.
func (e *ValidationError) Add(field, message string) *ValidationError {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
	return e
}

// ByField groups messages per field, preserving insertion order per field.
func (e *ValidationError) ByField() map[string][]string {
	out := make(map[string][]string, len(e.Fields))
	for _, f := range e.Fields {
		out[f.Field] = append(out[f.Field], f.Message)
	}
	return out
}

// ConflictError means a write affected no rows: either nothing changed or
// the write failed to land.
type ConflictError struct {
	Title string
}

func (e *ConflictError) Error() string { return e.Title }

func (e *ConflictError) Is(target error) bool {
	_, ok := target.(*ConflictError)
	return ok
}

// UnauthorizedError is a failed credential check or a missing identity.
type UnauthorizedError struct {
	Reason string
}

func (e *UnauthorizedError) Error() string {
	if e.Reason == "" {
		return "unauthorized"
	}
	return "unauthorized: " + e.Reason
}

func (e *UnauthorizedError) Is(target error) bool {
	_, ok := target.(*UnauthorizedError)
	return ok
}

// BadRequestError is a request that cannot be acted on in the current state,
// e.g. checkout without a basket.
type BadRequestError struct {
	Title string
}

func (e *BadRequestError) Error() string { return e.Title }

func (e *BadRequestError) Is(target error) bool {
	_, ok := target.(*BadRequestError)
	return ok
}

func NewNotFoundError(resource, key string) error {
	return &NotFoundError{Resource: resource, Key: key}
}

func NewValidationError(title string) *ValidationError {
	return &ValidationError{Title: title}
}

func NewConflictError(title string) error {
	return &ConflictError{Title: title}
}

func NewUnauthorizedError(reason string) error {
	return &UnauthorizedError{Reason: reason}
}

func NewBadRequestError(title string) error {
	return &BadRequestError{Title: title}
}

// ErrDuplicate is returned by stores on unique-key violations.
var ErrDuplicate = errors.New("duplicate key")

func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func IsConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}

func IsUnauthorized(err error) bool {
	var ue *UnauthorizedError
	return errors.As(err, &ue)
}

func IsBadRequest(err error) bool {
	var be *BadRequestError
	return errors.As(err, &be)
}
