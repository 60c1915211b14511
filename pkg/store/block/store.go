// Package block declares the contract the opaque block storage driver
// must satisfy (§1: "an opaque object store that persists block
// bytes, keyed by a storage-id returned on PUT"). The driver is an
// external collaborator — the core only depends on this interface.
package block

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound is returned when a requested storage-id doesn't exist.
var ErrNotFound = errors.New("block storage: object not found")

// Store is the capability set a block storage backend must implement.
// Every method is scoped by (project, vault): each vault exclusively
// owns its blocks (§3 "Ownership"), so a driver backed by a shared
// bucket must namespace keys by project and vault itself.
type Store interface {
	// Put persists data under a new storage-id and returns it. The
	// storage-id is opaque and not derivable from the block's content
	// hash — the metadata layer owns the block-id <-> storage-id
	// mapping (§9).
	Put(ctx context.Context, project, vault string, data []byte) (storageID string, err error)

	// Open returns a reader for the bytes stored under storageID.
	// Returns ErrNotFound if the object doesn't exist. The caller
	// must close the returned reader.
	Open(ctx context.Context, project, vault, storageID string) (io.ReadCloser, error)

	// Delete removes the object. Returns nil if it doesn't exist.
	Delete(ctx context.Context, project, vault, storageID string) error

	// Exists reports whether an object is stored under storageID.
	Exists(ctx context.Context, project, vault, storageID string) (bool, error)
}
