package memory

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/sujala/deuce/pkg/store/block"
)

func TestStore_PutOpenRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := New()

	data := []byte("hello block")
	storageID, err := s.Put(ctx, "proj1", "vault1", data)
	if err != nil {
		t.Fatalf("Put: %v", err)
	}

	rc, err := s.Open(ctx, "proj1", "vault1", storageID)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rc.Close()

	got, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Fatalf("got %q, want %q", got, data)
	}
}

func TestStore_PutMutationDoesNotAffectStoredCopy(t *testing.T) {
	ctx := context.Background()
	s := New()

	data := []byte("abc")
	storageID, err := s.Put(ctx, "proj1", "vault1", data)
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	data[0] = 'z'

	rc, err := s.Open(ctx, "proj1", "vault1", storageID)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rc.Close()

	got, _ := io.ReadAll(rc)
	if string(got) != "abc" {
		t.Fatalf("got %q, want %q (store must copy on Put)", got, "abc")
	}
}

func TestStore_OpenMissingReturnsErrNotFound(t *testing.T) {
	ctx := context.Background()
	s := New()

	_, err := s.Open(ctx, "proj1", "vault1", "missing")
	if !errors.Is(err, block.ErrNotFound) {
		t.Fatalf("got %v, want block.ErrNotFound", err)
	}
}

func TestStore_ExistsAndDelete(t *testing.T) {
	ctx := context.Background()
	s := New()

	storageID, err := s.Put(ctx, "proj1", "vault1", []byte("x"))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}

	ok, err := s.Exists(ctx, "proj1", "vault1", storageID)
	if err != nil || !ok {
		t.Fatalf("Exists: ok=%v err=%v", ok, err)
	}

	if err := s.Delete(ctx, "proj1", "vault1", storageID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	ok, err = s.Exists(ctx, "proj1", "vault1", storageID)
	if err != nil || ok {
		t.Fatalf("Exists after delete: ok=%v err=%v", ok, err)
	}

	if err := s.Delete(ctx, "proj1", "vault1", storageID); err != nil {
		t.Fatalf("Delete (repeat) should be a no-op: %v", err)
	}
}

func TestStore_ScopedByProjectAndVault(t *testing.T) {
	ctx := context.Background()
	s := New()

	storageID, err := s.Put(ctx, "proj1", "vaultA", []byte("a"))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}

	ok, err := s.Exists(ctx, "proj1", "vaultB", storageID)
	if err != nil {
		t.Fatalf("Exists: %v", err)
	}
	if ok {
		t.Fatal("expected storage id scoped to vaultA to be invisible under vaultB")
	}
}
