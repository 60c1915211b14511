package domain

import (
	"context"

	"github.com/sujala/deuce/pkg/deuceerr"
	"github.com/sujala/deuce/pkg/metadata"
)

// Files is the file-scoped facade for one vault.
type Files struct {
	store   metadata.Store
	project metadata.ProjectID
	vault   string
}

// Create inserts a new empty, non-finalized file and returns its handle.
func (f *Files) Create(ctx context.Context, fileID string) (*File, error) {
	if err := f.store.CreateFile(ctx, f.project, f.vault, fileID); err != nil {
		return nil, err
	}
	return &File{store: f.store, project: f.project, vault: f.vault, id: fileID}, nil
}

// Get returns a File handle if the file exists, or a *deuceerr.NotFoundError.
func (f *Files) Get(ctx context.Context, fileID string) (*File, error) {
	exists, err := f.store.HasFile(ctx, f.project, f.vault, fileID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, deuceerr.NewNotFoundError("file", fileID)
	}
	return &File{store: f.store, project: f.project, vault: f.vault, id: fileID}, nil
}

// List returns up to limit file ids matching the finalized flag,
// plus the truncation marker for X-Next-Batch (see Vaults.List).
func (f *Files) List(ctx context.Context, marker string, limit int, finalized bool) (ids []string, outMarker string, truncated bool, err error) {
	rows, err := f.store.ListFiles(ctx, f.project, f.vault, marker, limit+1, finalized)
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

// File is a handle to a single, known-to-exist file within a vault.
type File struct {
	store   metadata.Store
	project metadata.ProjectID
	vault   string
	id      string
}

// ID returns the file's id.
func (f *File) ID() string { return f.id }

// IsFinalized reports whether the file has completed finalization.
func (f *File) IsFinalized(ctx context.Context) (bool, error) {
	return f.store.IsFinalized(ctx, f.project, f.vault, f.id)
}

// Length returns the file's recorded size (0 before finalization).
func (f *File) Length(ctx context.Context) (int64, error) {
	return f.store.FileLength(ctx, f.project, f.vault, f.id)
}

// Data returns the file's finalized flag and size in one call.
func (f *File) Data(ctx context.Context) (metadata.FileData, error) {
	return f.store.GetFileData(ctx, f.project, f.vault, f.id)
}

// Delete removes the file, releasing its block references (§4.1).
func (f *File) Delete(ctx context.Context) error {
	return f.store.DeleteFile(ctx, f.project, f.vault, f.id)
}

// Blocks returns the file's ordered block map. A nil offset/limit
// returns every row.
func (f *File) Blocks(ctx context.Context, offset *int64, limit *int) ([]metadata.BlockRef, error) {
	return f.store.ListFileBlocks(ctx, f.project, f.vault, f.id, offset, limit)
}

// Assign declares the block map of a not-yet-finalized file. It
// returns the subset of blockIDs that are not yet registered in the
// vault — the transport reports these back to the client as the set
// of blocks it still needs to upload (§4.1 "late registration").
//
// Assigning to an already-finalized file fails with
// *deuceerr.AlreadyFinalizedError.
func (f *File) Assign(ctx context.Context, blockIDs []string, offsets []int64) ([]string, error) {
	finalized, err := f.IsFinalized(ctx)
	if err != nil {
		return nil, err
	}
	if finalized {
		return nil, deuceerr.NewAlreadyFinalizedError(f.id)
	}

	missing, err := f.store.HasBlocks(ctx, f.project, f.vault, blockIDs, false)
	if err != nil {
		return nil, err
	}

	if err := f.store.AssignBlocks(ctx, f.project, f.vault, f.id, blockIDs, offsets); err != nil {
		return nil, err
	}
	return missing, nil
}

// Finalize validates the file's block map for gaps and overlaps and,
// on success, irreversibly marks the file finalized (§4.1). fileSize
// nil means the caller supplied no size; see metadata.EvaluateFinalization
// for what gets stored in that case.
//
// Finalizing an already-finalized file fails with
// *deuceerr.AlreadyFinalizedError — the transition happens at most once.
func (f *File) Finalize(ctx context.Context, fileSize *int64) error {
	finalized, err := f.IsFinalized(ctx)
	if err != nil {
		return err
	}
	if finalized {
		return deuceerr.NewAlreadyFinalizedError(f.id)
	}
	return f.store.FinalizeFile(ctx, f.project, f.vault, f.id, fileSize)
}
