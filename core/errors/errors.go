// Package errors holds the error kinds shared by the corpus loaders, the
// configuration layer, the CLI and the HTTP API.
//
// Every typed error matches one sentinel with errors.Is, whether or not it
// carries an underlying cause, so callers can branch on the kind alone:
//
//	NotFoundError     ErrNotFound
//	ValidationError   ErrInvalidInput
//	ParseError        ErrInvalidInput
//	UnsupportedError  ErrUnsupported
//
// IOError has no sentinel of its own; it unwraps to the operating system
// error.
package errors

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound reports a missing dataset, book or other named resource.
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput reports bad user input or an unreadable document.
	ErrInvalidInput = errors.New("invalid input")
	// ErrUnsupported reports a dataset format verbum cannot read.
	ErrUnsupported = errors.New("unsupported")
)

// NotFoundError names the resource that could not be found.
type NotFoundError struct {
	Resource string // "dataset", "book", ...
	ID       string
	Err      error
}

func (e *NotFoundError) Error() string {
	if e.ID == "" {
		return e.Resource + " not found"
	}
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

func (e *NotFoundError) Unwrap() error { return cause(e.Err, ErrNotFound) }

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// ValidationError reports a flag, query parameter or file that failed a
// check.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Message
	}
	return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return cause(e.Err, ErrInvalidInput) }

func (e *ValidationError) Is(target error) bool { return target == ErrInvalidInput }

// IOError wraps a failed file operation.
type IOError struct {
	Operation string // "open", "read", "decompress", ...
	Path      string
	Err       error
}

func (e *IOError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("failed to %s: %v", e.Operation, e.Err)
	}
	return fmt.Sprintf("failed to %s %s: %v", e.Operation, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// ParseError reports a dataset or config document that could not be
// decoded. Loaders fill Path in when the decoder did not know it.
type ParseError struct {
	Format  string // "JSON", "OSIS", "SQLite", "YAML"
	Path    string
	Message string
	Err     error
}

func (e *ParseError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("failed to parse %s: %s", e.Format, e.Message)
	}
	return fmt.Sprintf("failed to parse %s at %s: %s", e.Format, e.Path, e.Message)
}

func (e *ParseError) Unwrap() error { return cause(e.Err, ErrInvalidInput) }

func (e *ParseError) Is(target error) bool { return target == ErrInvalidInput }

// UnsupportedError reports a dataset format or feature verbum does not handle.
type UnsupportedError struct {
	Feature string
	Reason  string
}

func (e *UnsupportedError) Error() string {
	if e.Reason == "" {
		return "unsupported " + e.Feature
	}
	return fmt.Sprintf("unsupported %s: %s", e.Feature, e.Reason)
}

func (e *UnsupportedError) Unwrap() error { return ErrUnsupported }

func cause(err, sentinel error) error {
	if err != nil {
		return err
	}
	return sentinel
}

func NewNotFound(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

func NewValidation(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func NewIO(operation, path string, err error) *IOError {
	return &IOError{Operation: operation, Path: path, Err: err}
}

func NewParse(format, path, message string) *ParseError {
	return &ParseError{Format: format, Path: path, Message: message}
}

func NewUnsupported(feature, reason string) *UnsupportedError {
	return &UnsupportedError{Feature: feature, Reason: reason}
}

// Wrap prefixes err with message. A nil err stays nil.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf is Wrap with a format string.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is and As let packages that import this one as "errors" keep using the
// standard helpers.
func Is(err, target error) bool { return errors.Is(err, target) }

func As(err error, target any) bool { return errors.As(err, target) }
