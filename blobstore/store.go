// Package blobstore abstracts the object storage that index snapshots are
// persisted to. The engine treats snapshots as opaque byte blobs; backends
// only need whole-object put/get semantics.
package blobstore

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound is returned when a named blob does not exist.
//
// Implementations must return an error that satisfies
// `errors.Is(err, ErrNotFound)`.
var ErrNotFound = errors.New("blob not found")

// Store is an abstraction for reading and writing immutable snapshot blobs.
type Store interface {
	// Put writes a blob atomically. An existing blob of the same name is
	// replaced; readers never observe a partial write.
	Put(ctx context.Context, name string, data io.Reader) error

	// Get opens a blob for reading. The caller owns the returned reader
	// and must close it.
	Get(ctx context.Context, name string) (io.ReadCloser, error)

	// Delete removes a blob. Deleting a missing blob returns ErrNotFound.
	Delete(ctx context.Context, name string) error
}
