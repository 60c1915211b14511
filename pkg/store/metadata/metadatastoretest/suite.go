// Package metadatastoretest is a conformance suite exercised against
// every metadata.Store implementation so the in-memory and PostgreSQL
// backends are held to identical behavior.
package metadatastoretest

import (
	"context"
	"testing"

	"github.com/sujala/deuce/pkg/deuceerr"
	"github.com/sujala/deuce/pkg/metadata"
)

// Factory constructs a fresh, empty metadata.Store for one test.
type Factory func() metadata.Store

// Run registers every conformance test as a subtest of t.
func Run(t *testing.T, newStore Factory) {
	t.Run("VaultLifecycle", func(t *testing.T) { testVaultLifecycle(t, newStore) })
	t.Run("VaultListingPagination", func(t *testing.T) { testVaultListingPagination(t, newStore) })
	t.Run("FileLifecycle", func(t *testing.T) { testFileLifecycle(t, newStore) })
	t.Run("BlockRegistrationDedup", func(t *testing.T) { testBlockRegistrationDedup(t, newStore) })
	t.Run("FinalizeContiguousCover", func(t *testing.T) { testFinalizeContiguousCover(t, newStore) })
	t.Run("FinalizeGap", func(t *testing.T) { testFinalizeGap(t, newStore) })
	t.Run("FinalizeOverlap", func(t *testing.T) { testFinalizeOverlap(t, newStore) })
	t.Run("FinalizeTwiceFails", func(t *testing.T) { testFinalizeTwiceFails(t, newStore) })
	t.Run("AssignBlocksBatch", func(t *testing.T) { testAssignBlocksBatch(t, newStore) })
	t.Run("DeleteFileReleasesReferences", func(t *testing.T) { testDeleteFileReleasesReferences(t, newStore) })
	t.Run("MarkBadAndReset", func(t *testing.T) { testMarkBadAndReset(t, newStore) })
}

const project metadata.ProjectID = "proj-conformance"

func testVaultLifecycle(t *testing.T, newStore Factory) {
	ctx := context.Background()
	s := newStore()

	if ok, _ := s.HasVault(ctx, project, "v1"); ok {
		t.Fatal("expected vault to not exist yet")
	}
	if err := s.CreateVault(ctx, project, "v1"); err != nil {
		t.Fatalf("CreateVault: %v", err)
	}
	if ok, _ := s.HasVault(ctx, project, "v1"); !ok {
		t.Fatal("expected vault to exist")
	}

	// idempotent
	if err := s.CreateVault(ctx, project, "v1"); err != nil {
		t.Fatalf("CreateVault (repeat): %v", err)
	}

	if err := s.DeleteVault(ctx, project, "v1"); err != nil {
		t.Fatalf("DeleteVault: %v", err)
	}
	if ok, _ := s.HasVault(ctx, project, "v1"); ok {
		t.Fatal("expected vault to be gone")
	}
}

func testVaultListingPagination(t *testing.T, newStore Factory) {
	ctx := context.Background()
	s := newStore()

	for _, id := range []string{"a", "b", "c", "d"} {
		if err := s.CreateVault(ctx, project, id); err != nil {
			t.Fatalf("CreateVault(%s): %v", id, err)
		}
	}

	page, err := s.ListVaults(ctx, project, "", 2)
	if err != nil {
		t.Fatalf("ListVaults: %v", err)
	}
	if len(page) != 2 || page[0] != "a" || page[1] != "b" {
		t.Fatalf("got %v, want [a b]", page)
	}

	next, err := s.ListVaults(ctx, project, "c", 2)
	if err != nil {
		t.Fatalf("ListVaults: %v", err)
	}
	if len(next) != 2 || next[0] != "c" || next[1] != "d" {
		t.Fatalf("got %v, want [c d]", next)
	}
}

func testFileLifecycle(t *testing.T, newStore Factory) {
	ctx := context.Background()
	s := newStore()

	if err := s.CreateVault(ctx, project, "v1"); err != nil {
		t.Fatal(err)
	}
	if err := s.CreateFile(ctx, project, "v1", "f1"); err != nil {
		t.Fatalf("CreateFile: %v", err)
	}

	if ok, _ := s.HasFile(ctx, project, "v1", "f1"); !ok {
		t.Fatal("expected file to exist")
	}
	if finalized, _ := s.IsFinalized(ctx, project, "v1", "f1"); finalized {
		t.Fatal("expected new file to not be finalized")
	}

	if err := s.DeleteFile(ctx, project, "v1", "f1"); err != nil {
		t.Fatalf("DeleteFile: %v", err)
	}
	if ok, _ := s.HasFile(ctx, project, "v1", "f1"); ok {
		t.Fatal("expected file to be gone")
	}
}

func testBlockRegistrationDedup(t *testing.T, newStore Factory) {
	ctx := context.Background()
	s := newStore()

	if err := s.CreateVault(ctx, project, "v1"); err != nil {
		t.Fatal(err)
	}
	if err := s.RegisterBlock(ctx, project, "v1", "b1", "storage-1", 100); err != nil {
		t.Fatalf("RegisterBlock: %v", err)
	}
	// Re-registering a valid block is a no-op: the original storage-id sticks.
	if err := s.RegisterBlock(ctx, project, "v1", "b1", "storage-2", 999); err != nil {
		t.Fatalf("RegisterBlock (repeat): %v", err)
	}

	storageID, found, err := s.GetBlockStorageID(ctx, project, "v1", "b1")
	if err != nil || !found {
		t.Fatalf("GetBlockStorageID: found=%v err=%v", found, err)
	}
	if storageID != "storage-1" {
		t.Fatalf("got storage id %q, want storage-1 (re-register of a valid block must be a no-op)", storageID)
	}

	blockID, found, err := s.GetBlockMetadataID(ctx, project, "v1", "storage-1")
	if err != nil || !found || blockID != "b1" {
		t.Fatalf("GetBlockMetadataID: blockID=%q found=%v err=%v", blockID, found, err)
	}
}

func setupFile(t *testing.T, ctx context.Context, s metadata.Store, vault, file string) {
	t.Helper()
	if err := s.CreateVault(ctx, project, vault); err != nil {
		t.Fatalf("CreateVault: %v", err)
	}
	if err := s.CreateFile(ctx, project, vault, file); err != nil {
		t.Fatalf("CreateFile: %v", err)
	}
}

func registerAndAssign(t *testing.T, ctx context.Context, s metadata.Store, vault, file, block string, offset, size int64) {
	t.Helper()
	if err := s.RegisterBlock(ctx, project, vault, block, "storage-"+block, size); err != nil {
		t.Fatalf("RegisterBlock(%s): %v", block, err)
	}
	if err := s.AssignBlock(ctx, project, vault, file, block, offset); err != nil {
		t.Fatalf("AssignBlock(%s): %v", block, err)
	}
}

func testFinalizeContiguousCover(t *testing.T, newStore Factory) {
	ctx := context.Background()
	s := newStore()
	setupFile(t, ctx, s, "v1", "f1")

	registerAndAssign(t, ctx, s, "v1", "f1", "b1", 0, 10)
	registerAndAssign(t, ctx, s, "v1", "f1", "b2", 10, 20)

	if err := s.FinalizeFile(ctx, project, "v1", "f1", nil); err != nil {
		t.Fatalf("FinalizeFile: %v", err)
	}

	finalized, err := s.IsFinalized(ctx, project, "v1", "f1")
	if err != nil || !finalized {
		t.Fatalf("IsFinalized: %v err=%v", finalized, err)
	}
	size, err := s.FileLength(ctx, project, "v1", "f1")
	if err != nil || size != 30 {
		t.Fatalf("got size %d err=%v, want 30", size, err)
	}
}

func testFinalizeGap(t *testing.T, newStore Factory) {
	ctx := context.Background()
	s := newStore()
	setupFile(t, ctx, s, "v1", "f1")

	registerAndAssign(t, ctx, s, "v1", "f1", "b1", 0, 10)
	registerAndAssign(t, ctx, s, "v1", "f1", "b2", 20, 10)

	err := s.FinalizeFile(ctx, project, "v1", "f1", nil)
	code, ok := deuceerr.CodeOf(err)
	if !ok || code != deuceerr.CodeGap {
		t.Fatalf("got err %v, want a GapError", err)
	}
}

func testFinalizeOverlap(t *testing.T, newStore Factory) {
	ctx := context.Background()
	s := newStore()
	setupFile(t, ctx, s, "v1", "f1")

	registerAndAssign(t, ctx, s, "v1", "f1", "b1", 0, 10)
	registerAndAssign(t, ctx, s, "v1", "f1", "b2", 5, 10)

	err := s.FinalizeFile(ctx, project, "v1", "f1", nil)
	code, ok := deuceerr.CodeOf(err)
	if !ok || code != deuceerr.CodeOverlap {
		t.Fatalf("got err %v, want an OverlapError", err)
	}
}

func testFinalizeTwiceFails(t *testing.T, newStore Factory) {
	ctx := context.Background()
	s := newStore()
	setupFile(t, ctx, s, "v1", "f1")
	registerAndAssign(t, ctx, s, "v1", "f1", "b1", 0, 10)

	if err := s.FinalizeFile(ctx, project, "v1", "f1", nil); err != nil {
		t.Fatalf("FinalizeFile: %v", err)
	}

	// The store itself re-runs finalize idempotently; it's the domain
	// layer's IsFinalized pre-check that turns a second call into
	// AlreadyFinalizedError (see pkg/domain.File.Finalize). Here we just
	// confirm the flag sticks so that pre-check has something to see.
	finalized, err := s.IsFinalized(ctx, project, "v1", "f1")
	if err != nil || !finalized {
		t.Fatalf("IsFinalized: %v err=%v", finalized, err)
	}
}

func testAssignBlocksBatch(t *testing.T, newStore Factory) {
	ctx := context.Background()
	s := newStore()
	setupFile(t, ctx, s, "v1", "f1")

	if err := s.RegisterBlock(ctx, project, "v1", "b1", "storage-b1", 10); err != nil {
		t.Fatal(err)
	}
	if err := s.RegisterBlock(ctx, project, "v1", "b2", "storage-b2", 20); err != nil {
		t.Fatal(err)
	}

	err := s.AssignBlocks(ctx, project, "v1", "f1", []string{"b1", "b2"}, []int64{0, 10})
	if err != nil {
		t.Fatalf("AssignBlocks: %v", err)
	}

	refs, err := s.ListFileBlocks(ctx, project, "v1", "f1", nil, nil)
	if err != nil {
		t.Fatalf("ListFileBlocks: %v", err)
	}
	if len(refs) != 2 || refs[0].BlockID != "b1" || refs[1].BlockID != "b2" {
		t.Fatalf("got %+v, want ordered [b1@0 b2@10]", refs)
	}
}

func testDeleteFileReleasesReferences(t *testing.T, newStore Factory) {
	ctx := context.Background()
	s := newStore()
	setupFile(t, ctx, s, "v1", "f1")
	registerAndAssign(t, ctx, s, "v1", "f1", "b1", 0, 10)

	count, err := s.GetBlockRefCount(ctx, project, "v1", "b1")
	if err != nil || count != 1 {
		t.Fatalf("GetBlockRefCount: %d err=%v, want 1", count, err)
	}

	if err := s.DeleteFile(ctx, project, "v1", "f1"); err != nil {
		t.Fatalf("DeleteFile: %v", err)
	}

	count, err = s.GetBlockRefCount(ctx, project, "v1", "b1")
	if err != nil || count != 0 {
		t.Fatalf("GetBlockRefCount after delete: %d err=%v, want 0", count, err)
	}

	// the block row itself survives deletion of the referencing file
	if ok, err := s.HasBlock(ctx, project, "v1", "b1", false); err != nil || !ok {
		t.Fatalf("HasBlock after delete: %v err=%v", ok, err)
	}
}

func testMarkBadAndReset(t *testing.T, newStore Factory) {
	ctx := context.Background()
	s := newStore()
	if err := s.CreateVault(ctx, project, "v1"); err != nil {
		t.Fatal(err)
	}
	if err := s.RegisterBlock(ctx, project, "v1", "b1", "storage-1", 10); err != nil {
		t.Fatal(err)
	}

	if ok, err := s.HasBlock(ctx, project, "v1", "b1", true); err != nil || !ok {
		t.Fatalf("HasBlock: %v err=%v", ok, err)
	}

	if err := s.MarkBlockAsBad(ctx, project, "v1", "b1"); err != nil {
		t.Fatalf("MarkBlockAsBad: %v", err)
	}
	if ok, err := s.HasBlock(ctx, project, "v1", "b1", true); err != nil || ok {
		t.Fatalf("HasBlock after mark bad: %v err=%v, want false", ok, err)
	}
	// without the status check, the row is still visible
	if ok, err := s.HasBlock(ctx, project, "v1", "b1", false); err != nil || !ok {
		t.Fatalf("HasBlock (no status check): %v err=%v", ok, err)
	}

	last, more, err := s.ResetBlockStatus(ctx, project, "v1", "", 10)
	if err != nil {
		t.Fatalf("ResetBlockStatus: %v", err)
	}
	if more {
		t.Fatal("expected a single-block page to not be truncated")
	}
	if last != "b1" {
		t.Fatalf("got last marker %q, want b1", last)
	}

	if ok, err := s.HasBlock(ctx, project, "v1", "b1", true); err != nil || !ok {
		t.Fatalf("HasBlock after reset: %v err=%v", ok, err)
	}
}
