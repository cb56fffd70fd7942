// Package blobstore defines the object-storage interface consumed by
// every component that reads or writes chunk/manifest bytes, plus an
// S3-backed implementation and an in-memory test double.
package blobstore

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when key does not exist.
var ErrNotFound = errors.New("blobstore: key not found")

// RangeSpec requests a byte range. Exactly one of (Offset+Length) or
// Suffix should be set; the zero value means "whole object".
type RangeSpec struct {
	Offset *uint64
	Length *uint64
	Suffix *uint64 // last N bytes
}

// Metadata describes a fetched object.
type Metadata struct {
	ContentType string
	Size        uint64
}

// PutOptions configures a Put call.
type PutOptions struct {
	ContentType string
}

// ListResult is one page of a List call.
type ListResult struct {
	Keys      []string
	Truncated bool
	Cursor    string
}

// Store is the blob-store capability surface consumed throughout
// graphd: chunk and manifest bytes, read with optional byte ranges.
type Store interface {
	Get(ctx context.Context, key string, r *RangeSpec) (Metadata, []byte, error)
	Put(ctx context.Context, key string, data []byte, opts PutOptions) error
	Delete(ctx context.Context, key string) error
	List(ctx context.Context, prefix string, limit int, cursor string) (ListResult, error)
}
