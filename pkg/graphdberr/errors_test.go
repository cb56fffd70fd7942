package graphdberr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewAndWrapMessage(t *testing.T) {
	err := New(CodeEntityNotFound, "no such entity")
	assert.Equal(t, "EntityNotFound: no such entity", err.Error())
	assert.Nil(t, err.Unwrap())

	cause := errors.New("disk full")
	wrapped := Wrap(CodeStorageWrite, "write chunk", cause)
	assert.Equal(t, "StorageWrite: write chunk: disk full", wrapped.Error())
	assert.Equal(t, cause, wrapped.Unwrap())
}

func TestCodeOfDirect(t *testing.T) {
	err := New(CodeInvalidOffset, "bad offset")
	assert.Equal(t, CodeInvalidOffset, CodeOf(err))
}

func TestCodeOfUnwrapsThroughFmtErrorf(t *testing.T) {
	inner := New(CodeChecksumMismatch, "crc mismatch")
	outer := fmt.Errorf("decode chunk: %w", inner)
	assert.Equal(t, CodeChecksumMismatch, CodeOf(outer))
}

func TestCodeOfUnknownForPlainError(t *testing.T) {
	assert.Equal(t, CodeUnknown, CodeOf(errors.New("plain")))
}

func TestCodeOfUnknownForNil(t *testing.T) {
	assert.Equal(t, CodeUnknown, CodeOf(nil))
}

func TestErrorsAsInterop(t *testing.T) {
	// graphdberr.Error must work with the standard library's errors.As,
	// not just graphdberr's own CodeOf, since callers outside this
	// package use errors.As directly against wrapped errors.
	wrapped := fmt.Errorf("outer: %w", Wrap(CodeRetryExhausted, "gave up", errors.New("timeout")))

	var target *Error
	ok := errors.As(wrapped, &target)
	assert.True(t, ok)
	assert.Equal(t, CodeRetryExhausted, target.Code)
}
