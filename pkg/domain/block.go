package domain

import (
	"context"

	"github.com/sujala/deuce/pkg/deuceerr"
	"github.com/sujala/deuce/pkg/metadata"
)

// Blocks is the block-scoped facade for one vault.
type Blocks struct {
	store   metadata.Store
	project metadata.ProjectID
	vault   string
}

// Register records block bytes that have already been persisted to
// the block storage driver under storageID. No-op if the block
// already exists and is valid.
func (b *Blocks) Register(ctx context.Context, blockID, storageID string, size int64) (*Block, error) {
	if err := b.store.RegisterBlock(ctx, b.project, b.vault, blockID, storageID, size); err != nil {
		return nil, err
	}
	return &Block{store: b.store, project: b.project, vault: b.vault, id: blockID}, nil
}

// Get returns a Block handle if the block is registered (and, when
// checkStatus is true, not marked invalid), or a *deuceerr.NotFoundError.
func (b *Blocks) Get(ctx context.Context, blockID string, checkStatus bool) (*Block, error) {
	exists, err := b.store.HasBlock(ctx, b.project, b.vault, blockID, checkStatus)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, deuceerr.NewNotFoundError("block", blockID)
	}
	return &Block{store: b.store, project: b.project, vault: b.vault, id: blockID}, nil
}

// Missing returns the subset of blockIDs not registered (or, when
// checkStatus is true, registered but invalid).
func (b *Blocks) Missing(ctx context.Context, blockIDs []string, checkStatus bool) ([]string, error) {
	return b.store.HasBlocks(ctx, b.project, b.vault, blockIDs, checkStatus)
}

// ByStorageID resolves a storage-id back to its block-id.
func (b *Blocks) ByStorageID(ctx context.Context, storageID string) (blockID string, found bool, err error) {
	return b.store.GetBlockMetadataID(ctx, b.project, b.vault, storageID)
}

// List returns up to limit block ids in ascending order starting at
// marker, plus the truncation marker for X-Next-Batch.
func (b *Blocks) List(ctx context.Context, marker string, limit int) (ids []string, outMarker string, truncated bool, err error) {
	rows, err := b.store.ListBlocks(ctx, b.project, b.vault, marker, limit+1)
	if err != nil {
		return nil, "", false, err
	}
	if len(rows) > limit {
		truncated = true
		outMarker = rows[limit]
		rows = rows[:limit]
	}
	return rows, outMarker, truncated, nil
}

// ResetStatus pages through blocks marking each visited one valid,
// resuming from marker. It returns the last visited id and more=true
// when the page was full.
func (b *Blocks) ResetStatus(ctx context.Context, marker string, limit int) (nextMarker string, more bool, err error) {
	return b.store.ResetBlockStatus(ctx, b.project, b.vault, marker, limit)
}

// Block is a handle to a single, known-to-be-registered block.
type Block struct {
	store   metadata.Store
	project metadata.ProjectID
	vault   string
	id      string
}

// ID returns the block's id (its content hash, by convention).
func (b *Block) ID() string { return b.id }

// Data returns the block's size.
func (b *Block) Data(ctx context.Context) (metadata.BlockData, error) {
	return b.store.GetBlockData(ctx, b.project, b.vault, b.id)
}

// StorageID returns the opaque id the block storage driver assigned
// this block's bytes on PUT.
func (b *Block) StorageID(ctx context.Context) (string, bool, error) {
	return b.store.GetBlockStorageID(ctx, b.project, b.vault, b.id)
}

// RefCount returns the number of (file, offset) tuples referencing
// this block.
func (b *Block) RefCount(ctx context.Context) (int, error) {
	return b.store.GetBlockRefCount(ctx, b.project, b.vault, b.id)
}

// RefModified returns the unix-seconds timestamp of the block's most
// recent reference activity.
func (b *Block) RefModified(ctx context.Context) (int64, error) {
	return b.store.GetBlockRefModified(ctx, b.project, b.vault, b.id)
}

// MarkBad flips the block's health flag to invalid.
func (b *Block) MarkBad(ctx context.Context) error {
	return b.store.MarkBlockAsBad(ctx, b.project, b.vault, b.id)
}

// Unregister removes the block's row. The store enforces the
// constraint: it fails with *deuceerr.ConstraintError when the block
// still has references (§4.1).
func (b *Block) Unregister(ctx context.Context) error {
	return b.store.UnregisterBlock(ctx, b.project, b.vault, b.id)
}
