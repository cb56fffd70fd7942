// Package graphdberr defines graphd's tagged error taxonomy: every
// component-level package returns a *graphdberr.Error instead of a
// bare error, so callers can switch on Code for programmatic handling
// while still getting a wrapped Cause for logs.
package graphdberr

import "fmt"

// Code identifies one of graphd's named error variants.
type Code string

const (
	// Input
	CodeInvalidCheckpoint Code = "InvalidCheckpoint"
	CodeInvalidManifest   Code = "InvalidManifest"
	CodeInvalidOffset     Code = "InvalidOffset"
	CodeInvalidRange      Code = "InvalidRange"

	// Format
	CodeUnsupportedVersion Code = "UnsupportedVersion"
	CodeCorruptFormat      Code = "CorruptFormat"
	CodeChecksumMismatch   Code = "ChecksumMismatch"

	// I/O
	CodeR2FetchFailed  Code = "R2FetchFailed"
	CodeR2WriteFailed  Code = "R2WriteFailed"
	CodeStorageRead    Code = "StorageRead"
	CodeStorageWrite   Code = "StorageWrite"
	CodeNetworkTimeout Code = "NetworkTimeout"

	// Semantic
	CodeImportFailed       Code = "ImportFailed"
	CodeExportFailed       Code = "ExportFailed"
	CodeCacheLimitExceeded Code = "CacheLimitExceeded"
	CodeEntityNotFound     Code = "EntityNotFound"

	// Retry exhaustion
	CodeRetryExhausted Code = "RetryExhausted"

	CodeUnknown Code = "Unknown"
)

// Error is graphd's tagged error type: a stable Code for
// programmatic handling plus a human Message.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// New builds a tagged error with no underlying cause.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap builds a tagged error around an underlying cause.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// CodeOf extracts the Code from err if it is (or wraps) a
// *graphdberr.Error, else returns CodeUnknown.
func CodeOf(err error) Code {
	var e *Error
	if as(err, &e) {
		return e.Code
	}
	return CodeUnknown
}

// as is a tiny local indirection over errors.As to avoid importing
// errors just for this one call site in multiple files.
func as(err error, target **Error) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
