// Package errors provides structured error types for relnet.
//
// Every failure the compiler can report carries a machine-readable [Code] and,
// when it originates in the input document, a [Location] naming the section,
// block and entry that triggered it. This keeps fatal errors debuggable against
// the original YAML or TOML file.
//
// # Error Codes
//
//   - STRUCTURE_ERROR: an entry matches none of the linear, branching or clique shapes
//   - CONFIG_ERROR: a reserved key holds a value of the wrong type
//   - IMAGE_PROVIDER_ERROR: an image could not be fetched or located (strict mode only)
//   - INVALID_*: input validation failures outside the document body
//   - INTERNAL_ERROR: lifecycle violations and unexpected failures
//
// # Usage
//
//	err := errors.New(errors.ErrCodeStructure, "entry has no recognised shape").
//	    At(errors.Location{Section: "series", Block: 0, Entry: 2})
//	if errors.Is(err, errors.ErrCodeStructure) {
//	    // report and abort
//	}
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Compilation errors
	ErrCodeStructure     Code = "STRUCTURE_ERROR"
	ErrCodeConfig        Code = "CONFIG_ERROR"
	ErrCodeImageProvider Code = "IMAGE_PROVIDER_ERROR"

	// Input validation errors
	ErrCodeInvalidInput  Code = "INVALID_INPUT"
	ErrCodeInvalidFormat Code = "INVALID_FORMAT"
	ErrCodeInvalidPath   Code = "INVALID_PATH"

	// Resource errors
	ErrCodeFileNotFound Code = "FILE_NOT_FOUND"
	ErrCodeNetwork      Code = "NETWORK_ERROR"
	ErrCodeTimeout      Code = "TIMEOUT"

	// Internal errors
	ErrCodeInternal    Code = "INTERNAL_ERROR"
	ErrCodeUnsupported Code = "UNSUPPORTED"
)

// Location identifies a position in the input document.
// Block and Entry are zero-based; a negative value means "not applicable".
type Location struct {
	Section string
	Block   int
	Entry   int
	Key     string
}

// String renders the location as section[block].items[entry].key.
func (l Location) String() string {
	var b strings.Builder
	b.WriteString(l.Section)
	if l.Block >= 0 {
		fmt.Fprintf(&b, "[%d]", l.Block)
	}
	if l.Entry >= 0 {
		fmt.Fprintf(&b, ".items[%d]", l.Entry)
	}
	if l.Key != "" {
		if b.Len() > 0 {
			b.WriteByte('.')
		}
		b.WriteString(l.Key)
	}
	return b.String()
}

// Error is a structured error with a code, an optional location and an optional cause.
type Error struct {
	Code     Code      // Machine-readable error code
	Message  string    // Human-readable message
	Location *Location // Document position (optional)
	Cause    error     // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Code))
	if e.Location != nil {
		b.WriteString(" at ")
		b.WriteString(e.Location.String())
	}
	b.WriteString(": ")
	b.WriteString(e.Message)
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// At attaches a document location and returns the same error for chaining.
func (e *Error) At(loc Location) *Error {
	e.Location = &loc
	return e
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Structure is shorthand for a located STRUCTURE_ERROR.
func Structure(loc Location, format string, args ...any) *Error {
	return New(ErrCodeStructure, format, args...).At(loc)
}

// Config is shorthand for a CONFIG_ERROR about a single key.
func Config(key string, format string, args ...any) *Error {
	return New(ErrCodeConfig, format, args...).At(Location{Block: -1, Entry: -1, Key: key})
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error with a matching code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// GetLocation extracts the document location from an error, if available.
func GetLocation(err error) (Location, bool) {
	var e *Error
	if errors.As(err, &e) && e.Location != nil {
		return *e.Location, true
	}
	return Location{}, false
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message (prefixed by its location) without the code.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		if e.Location != nil {
			return e.Location.String() + ": " + e.Message
		}
		return e.Message
	}
	return err.Error()
}
