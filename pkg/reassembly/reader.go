// Package reassembly turns a file's ordered block map into a single
// lazy byte stream (§4.3). It resolves one block to a storage-id and
// opens its reader only when the previous block has been fully
// consumed, so a slow downstream consumer never forces more than one
// block's bytes to be buffered in memory at a time.
package reassembly

import (
	"context"
	"fmt"
	"io"

	"github.com/sujala/deuce/pkg/deuceerr"
	"github.com/sujala/deuce/pkg/domain"
	"github.com/sujala/deuce/pkg/metadata"
	"github.com/sujala/deuce/pkg/store/block"
)

// BlockLocator resolves a block id to its storage-id. FromVaultBlocks
// builds one from a vault's block facade; Reader takes the narrower
// interface it actually needs so tests can supply a fake without
// standing up a full domain.File.
type BlockLocator interface {
	// StorageID resolves blockID to the opaque id it was stored
	// under, or a *deuceerr.NotFoundError if unregistered.
	StorageID(ctx context.Context, blockID string) (storageID string, err error)
}

// Reader streams the concatenated bytes of an ordered block list. It
// implements io.ReadCloser. It is restartable per block (Read resumes
// mid-block across calls) but not as a whole: once exhausted or
// closed, a Reader cannot be rewound.
type Reader struct {
	ctx     context.Context
	store   block.Store
	locator BlockLocator
	project, vault string
	refs    []metadata.BlockRef

	idx     int
	current io.ReadCloser
}

// New returns a Reader over refs in the order given — the caller is
// responsible for having already sorted refs by offset (ListFileBlocks
// does this). project/vault scope every block store Open call.
func New(ctx context.Context, store block.Store, locator BlockLocator, project, vault string, refs []metadata.BlockRef) *Reader {
	return &Reader{
		ctx:     ctx,
		store:   store,
		locator: locator,
		project: project,
		vault:   vault,
		refs:    refs,
	}
}

// Read implements io.Reader, opening the next block's stream on
// demand and closing each one as soon as it's exhausted.
func (r *Reader) Read(p []byte) (int, error) {
	for {
		if err := r.ctx.Err(); err != nil {
			return 0, err
		}

		if r.current == nil {
			if r.idx >= len(r.refs) {
				return 0, io.EOF
			}
			if err := r.openNext(); err != nil {
				return 0, err
			}
		}

		n, err := r.current.Read(p)
		if err == io.EOF {
			r.current.Close()
			r.current = nil
			if n > 0 {
				return n, nil
			}
			continue
		}
		return n, err
	}
}

func (r *Reader) openNext() error {
	ref := r.refs[r.idx]
	r.idx++

	storageID, err := r.locator.StorageID(r.ctx, ref.BlockID)
	if err != nil {
		return fmt.Errorf("reassembly: resolve block %s: %w", ref.BlockID, err)
	}

	rc, err := r.store.Open(r.ctx, r.project, r.vault, storageID)
	if err != nil {
		return fmt.Errorf("reassembly: open block %s: %w", ref.BlockID, err)
	}
	r.current = rc
	return nil
}

// Close releases the currently open block stream, if any. Safe to
// call more than once.
func (r *Reader) Close() error {
	if r.current == nil {
		return nil
	}
	err := r.current.Close()
	r.current = nil
	return err
}

// FromVaultBlocks builds a BlockLocator backed by a vault's block
// facade, resolving each block id to its storage-id without
// re-checking block health (the finalize walk already excluded
// invalid blocks from the cover) and turning an unregistered block
// into *deuceerr.NotFoundError.
func FromVaultBlocks(blocks *domain.Blocks) BlockLocator {
	return vaultBlockLocator{blocks: blocks}
}

type vaultBlockLocator struct {
	blocks *domain.Blocks
}

func (v vaultBlockLocator) StorageID(ctx context.Context, blockID string) (string, error) {
	handle, err := v.blocks.Get(ctx, blockID, false)
	if err != nil {
		return "", err
	}
	storageID, found, err := handle.StorageID(ctx)
	if err != nil {
		return "", err
	}
	if !found {
		return "", deuceerr.NewNotFoundError("block", blockID)
	}
	return storageID, nil
}
