package model

import (
	"errors"

	"github.com/rotisserie/eris"
)

// NotFoundError reports a missing council directory, source file or
// archive entry.
type NotFoundError struct {
	Err error
}

func (e *NotFoundError) Error() string {
	return "not found: " + e.Err.Error()
}

func (e *NotFoundError) Unwrap() error {
	return e.Err
}

// NotFound builds a NotFoundError from a formatted message.
func NotFound(format string, args ...any) error {
	return &NotFoundError{Err: eris.Errorf(format, args...)}
}

// IsNotFound reports whether err, or any error in its chain, is a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// GeometryError reports a geometry payload that cannot be parsed or is not
// the expected shape.
type GeometryError struct {
	Err error
}

func (e *GeometryError) Error() string {
	return "geometry: " + e.Err.Error()
}

func (e *GeometryError) Unwrap() error {
	return e.Err
}

// NewGeometryError wraps err as a GeometryError.
func NewGeometryError(err error) *GeometryError {
	return &GeometryError{Err: err}
}

// InvalidGeometry builds a GeometryError from a formatted message.
func InvalidGeometry(format string, args ...any) error {
	return &GeometryError{Err: eris.Errorf(format, args...)}
}

// IsGeometry reports whether err, or any error in its chain, is a GeometryError.
func IsGeometry(err error) bool {
	var ge *GeometryError
	return errors.As(err, &ge)
}

// ConflictError reports a cross-reference code seen twice with different values.
type ConflictError struct {
	Code     string
	Existing string
	Incoming string
}

func (e *ConflictError) Error() string {
	return "conflict: code " + e.Code + " maps to both " + quote(e.Existing) + " and " + quote(e.Incoming)
}

// IsConflict reports whether err, or any error in its chain, is a ConflictError.
func IsConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}

// FormatError reports a malformed source record or file.
type FormatError struct {
	Err error
}

func (e *FormatError) Error() string {
	return "format: " + e.Err.Error()
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

// NewFormatError wraps err as a FormatError.
func NewFormatError(err error) *FormatError {
	return &FormatError{Err: err}
}

// Malformed builds a FormatError from a formatted message.
func Malformed(format string, args ...any) error {
	return &FormatError{Err: eris.Errorf(format, args...)}
}

// IsFormat reports whether err, or any error in its chain, is a FormatError.
func IsFormat(err error) bool {
	var fe *FormatError
	return errors.As(err, &fe)
}

func quote(s string) string {
	return "\"" + s + "\""
}
