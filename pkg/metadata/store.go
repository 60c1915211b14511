package metadata

import "context"

// Store is the capability set a metadata backend must implement (§4.1).
// Every method is scoped by an explicit ProjectID — the ambient
// request context of the original design, re-architected as explicit
// state per the redesign note in §9 rather than a mutable global.
//
// Implementations must serialize conflicting writes to the same
// primary key; concurrent reads are unrestricted. No method may block
// the caller from issuing other, unrelated calls concurrently.
type Store interface {
	// Vault

	// CreateVault is an idempotent upsert.
	CreateVault(ctx context.Context, project ProjectID, vaultID string) error
	// DeleteVault is an unconditional row removal; callers enforce the
	// "only when empty" policy (see pkg/domain.Vault.Delete).
	DeleteVault(ctx context.Context, project ProjectID, vaultID string) error
	// HasVault reports whether the vault has been created.
	HasVault(ctx context.Context, project ProjectID, vaultID string) (bool, error)
	// ListVaults returns vault ids in ascending lexicographic order
	// with vault_id >= marker, at most limit rows.
	ListVaults(ctx context.Context, project ProjectID, marker string, limit int) ([]string, error)
	// VaultStats aggregates distinct file/block counts and bad counts.
	VaultStats(ctx context.Context, project ProjectID, vaultID string) (VaultStats, error)
	// VaultHealth returns the bad block count and the number of
	// distinct files that reference at least one invalid block.
	VaultHealth(ctx context.Context, project ProjectID, vaultID string) (badBlocks int, badFiles int, err error)

	// File

	CreateFile(ctx context.Context, project ProjectID, vaultID, fileID string) error
	HasFile(ctx context.Context, project ProjectID, vaultID, fileID string) (bool, error)
	IsFinalized(ctx context.Context, project ProjectID, vaultID, fileID string) (bool, error)
	FileLength(ctx context.Context, project ProjectID, vaultID, fileID string) (int64, error)
	GetFileData(ctx context.Context, project ProjectID, vaultID, fileID string) (FileData, error)
	// DeleteFile bumps reftime on every block this file references,
	// then deletes the file row, then deletes its fileblock rows. The
	// three writes are individually committed (§5); the end state is
	// consistent even if an observer sees the intermediate state.
	DeleteFile(ctx context.Context, project ProjectID, vaultID, fileID string) error
	// ListFiles filters by the finalized flag, ascending order,
	// file_id >= marker.
	ListFiles(ctx context.Context, project ProjectID, vaultID, marker string, limit int, finalized bool) ([]string, error)
	// ListFileBlocks returns a file's block map ordered by offset. A
	// nil offset/limit returns every row; otherwise only rows with
	// offset >= *offset, up to *limit rows.
	ListFileBlocks(ctx context.Context, project ProjectID, vaultID, fileID string, offset *int64, limit *int) ([]BlockRef, error)
	// FinalizeFile runs the gap/overlap validation walk (see
	// pkg/metadata/finalize.go) and, on success, sets finalized=1 and
	// records size. fileSize == nil means "no size was supplied";
	// the stored size is then the computed contiguous-cover length
	// (see DESIGN.md for why, resolving the spec's open question).
	FinalizeFile(ctx context.Context, project ProjectID, vaultID, fileID string, fileSize *int64) error

	// Block

	// RegisterBlock is a no-op if the block already exists and is
	// valid; otherwise it upserts with reftime=now, isinvalid=0.
	RegisterBlock(ctx context.Context, project ProjectID, vaultID, blockID, storageID string, size int64) error
	// HasBlock reports false if the block is absent, or if
	// checkStatus is true and the block is marked invalid.
	HasBlock(ctx context.Context, project ProjectID, vaultID, blockID string, checkStatus bool) (bool, error)
	// HasBlocks returns the subset of blockIDs for which HasBlock
	// would report false.
	HasBlocks(ctx context.Context, project ProjectID, vaultID string, blockIDs []string, checkStatus bool) ([]string, error)
	GetBlockData(ctx context.Context, project ProjectID, vaultID, blockID string) (BlockData, error)
	// GetBlockStorageID looks up the storage-id for a block. found is
	// false if the block is not registered.
	GetBlockStorageID(ctx context.Context, project ProjectID, vaultID, blockID string) (storageID string, found bool, err error)
	// GetBlockMetadataID is the inverse lookup: storage-id -> block-id.
	GetBlockMetadataID(ctx context.Context, project ProjectID, vaultID, storageID string) (blockID string, found bool, err error)
	// UnregisterBlock fails with *deuceerr.ConstraintError when
	// refcount > 0.
	UnregisterBlock(ctx context.Context, project ProjectID, vaultID, blockID string) error
	MarkBlockAsBad(ctx context.Context, project ProjectID, vaultID, blockID string) error
	// ResetBlockStatus pages through blocks in ascending order marking
	// each visited block valid. It returns the last visited block id
	// and more=true when the page was full, so the caller can resume.
	ResetBlockStatus(ctx context.Context, project ProjectID, vaultID string, marker string, limit int) (nextMarker string, more bool, err error)
	ListBlocks(ctx context.Context, project ProjectID, vaultID, marker string, limit int) ([]string, error)
	GetBlockRefCount(ctx context.Context, project ProjectID, vaultID, blockID string) (int, error)
	// GetBlockRefModified returns unix-seconds of the block's most
	// recent reftime update, or 0 if the block is absent.
	GetBlockRefModified(ctx context.Context, project ProjectID, vaultID, blockID string) (int64, error)

	// Assignment

	// AssignBlock upserts a fileblocks row keyed by the unique
	// (project, vault, file, block, offset) tuple, then touches the
	// block's reftime. No overlap check happens here — the block may
	// not yet be registered (late registration, §4.1).
	AssignBlock(ctx context.Context, project ProjectID, vaultID, fileID, blockID string, offset int64) error
	// AssignBlocks is the batch form of AssignBlock.
	AssignBlocks(ctx context.Context, project ProjectID, vaultID, fileID string, blockIDs []string, offsets []int64) error
}
