package ref

import (
	"errors"
	"fmt"
)

// Sentinel errors matched with errors.Is.
var (
	ErrUnknownBook        = errors.New("unknown book")
	ErrMalformedReference = errors.New("malformed reference")
	ErrInvalidRange       = errors.New("invalid verse range")
	ErrOutOfRange         = errors.New("reference out of range")
)

// ErrorKind classifies a ParseError.
type ErrorKind int

const (
	UnknownBook ErrorKind = iota + 1
	MalformedReference
	InvalidRange
	OutOfRange
)

func (k ErrorKind) String() string {
	switch k {
	case UnknownBook:
		return "unknown book"
	case MalformedReference:
		return "malformed reference"
	case InvalidRange:
		return "invalid range"
	case OutOfRange:
		return "out of range"
	}
	return "unknown"
}

// Bound names the limit an OutOfRange error violated.
type Bound int

const (
	BoundNone Bound = iota
	BoundChapter
	BoundVerse
)

func (b Bound) String() string {
	switch b {
	case BoundChapter:
		return "chapter"
	case BoundVerse:
		return "verse"
	}
	return ""
}

// ParseError describes why a reference could not be turned into a Locator.
type ParseError struct {
	Kind  ErrorKind
	Input string
	// Book is the canonical book, once resolved.
	Book string
	// Entered is the book text as typed, set for UnknownBook errors.
	Entered string
	// Bound, Value and Max describe OutOfRange errors. Chapter is set when
	// a verse bound was violated.
	Bound   Bound
	Chapter int
	Value   int
	Max     int
	// Detail is extra context for MalformedReference and InvalidRange.
	Detail string
}

func (e *ParseError) Error() string {
	switch e.Kind {
	case UnknownBook:
		return fmt.Sprintf("unknown book in %q", e.Input)
	case OutOfRange:
		return fmt.Sprintf("%s %d out of range for %s (1-%d)", e.Bound, e.Value, e.Book, e.Max)
	}
	if e.Detail != "" {
		return fmt.Sprintf("%s %q: %s", e.Kind, e.Input, e.Detail)
	}
	return fmt.Sprintf("%s %q", e.Kind, e.Input)
}

func (e *ParseError) Unwrap() error {
	switch e.Kind {
	case UnknownBook:
		return ErrUnknownBook
	case MalformedReference:
		return ErrMalformedReference
	case InvalidRange:
		return ErrInvalidRange
	case OutOfRange:
		return ErrOutOfRange
	}
	return nil
}
