package memory

import (
	"context"
	"testing"

	"github.com/sujala/deuce/pkg/deuceerr"
	"github.com/sujala/deuce/pkg/metadata"
	"github.com/sujala/deuce/pkg/store/metadata/metadatastoretest"
)

func TestStore_Conformance(t *testing.T) {
	metadatastoretest.Run(t, func() metadata.Store {
		return New(nil)
	})
}

func TestStore_FinalizeStoresComputedSizeWhenOmitted(t *testing.T) {
	ctx := context.Background()
	s := New(nil)
	const project metadata.ProjectID = "p1"

	if err := s.CreateVault(ctx, project, "v1"); err != nil {
		t.Fatal(err)
	}
	if err := s.CreateFile(ctx, project, "v1", "f1"); err != nil {
		t.Fatal(err)
	}
	if err := s.RegisterBlock(ctx, project, "v1", "b1", "s1", 10); err != nil {
		t.Fatal(err)
	}
	if err := s.AssignBlock(ctx, project, "v1", "f1", "b1", 0); err != nil {
		t.Fatal(err)
	}

	if err := s.FinalizeFile(ctx, project, "v1", "f1", nil); err != nil {
		t.Fatalf("FinalizeFile: %v", err)
	}

	size, err := s.FileLength(ctx, project, "v1", "f1")
	if err != nil {
		t.Fatal(err)
	}
	if size != 10 {
		t.Fatalf("got size %d, want 10", size)
	}
}

func TestStore_VaultStatsCountsBadFileEvenIfNotFinalized(t *testing.T) {
	ctx := context.Background()
	s := New(nil)
	const project metadata.ProjectID = "p1"

	if err := s.CreateVault(ctx, project, "v1"); err != nil {
		t.Fatal(err)
	}
	if err := s.CreateFile(ctx, project, "v1", "f1"); err != nil {
		t.Fatal(err)
	}
	if err := s.RegisterBlock(ctx, project, "v1", "b1", "s1", 10); err != nil {
		t.Fatal(err)
	}
	if err := s.AssignBlock(ctx, project, "v1", "f1", "b1", 0); err != nil {
		t.Fatal(err)
	}
	if err := s.MarkBlockAsBad(ctx, project, "v1", "b1"); err != nil {
		t.Fatal(err)
	}

	if finalized, _ := s.IsFinalized(ctx, project, "v1", "f1"); finalized {
		t.Fatal("expected file to not be finalized")
	}

	stats, err := s.VaultStats(ctx, project, "v1")
	if err != nil {
		t.Fatal(err)
	}
	if stats.Files.Bad != 1 {
		t.Fatalf("got bad file count %d, want 1", stats.Files.Bad)
	}
	if stats.Blocks.Bad != 1 {
		t.Fatalf("got bad block count %d, want 1", stats.Blocks.Bad)
	}
}

func TestStore_UnregisterBlockWithReferencesFails(t *testing.T) {
	ctx := context.Background()
	s := New(nil)
	const project metadata.ProjectID = "p1"

	if err := s.CreateVault(ctx, project, "v1"); err != nil {
		t.Fatal(err)
	}
	if err := s.CreateFile(ctx, project, "v1", "f1"); err != nil {
		t.Fatal(err)
	}
	if err := s.RegisterBlock(ctx, project, "v1", "b1", "s1", 10); err != nil {
		t.Fatal(err)
	}
	if err := s.AssignBlock(ctx, project, "v1", "f1", "b1", 0); err != nil {
		t.Fatal(err)
	}

	err := s.UnregisterBlock(ctx, project, "v1", "b1")
	if _, ok := deuceerr.CodeOf(err); !ok {
		t.Fatalf("expected a coded error, got %v", err)
	}
	if code, _ := deuceerr.CodeOf(err); code != deuceerr.CodeConstraint {
		t.Fatalf("got code %v, want CodeConstraint", code)
	}
}
