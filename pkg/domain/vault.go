// Package domain is the thin facade over metadata.Store (§4.2): it
// carries the ambient project id into every metadata call and offers
// the iteration helpers the HTTP surface needs, in particular the
// "limit+1" truncation probe used to decide whether a listing
// response needs an X-Next-Batch header.
package domain

import (
	"context"

	"github.com/sujala/deuce/pkg/deuceerr"
	"github.com/sujala/deuce/pkg/metadata"
)

// Vaults is the entry point into the domain model for a single
// tenant. One is constructed per request from the project id the
// transport extracted from the auth header.
type Vaults struct {
	store   metadata.Store
	project metadata.ProjectID
}

// NewVaults binds a metadata.Store to a tenant's project id.
func NewVaults(store metadata.Store, project metadata.ProjectID) *Vaults {
	return &Vaults{store: store, project: project}
}

// Create is an idempotent upsert of the vault.
func (v *Vaults) Create(ctx context.Context, vaultID string) error {
	return v.store.CreateVault(ctx, v.project, vaultID)
}

// Get returns a Vault handle if the vault exists, or a *deuceerr.NotFoundError.
func (v *Vaults) Get(ctx context.Context, vaultID string) (*Vault, error) {
	exists, err := v.store.HasVault(ctx, v.project, vaultID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, deuceerr.NewNotFoundError("vault", vaultID)
	}
	return &Vault{store: v.store, project: v.project, id: vaultID}, nil
}

// List returns up to limit vault ids in ascending order starting at
// marker, plus an outMarker/truncated pair the HTTP layer turns into
// an X-Next-Batch header (§6). It requests limit+1 rows internally to
// detect truncation without a second round trip.
func (v *Vaults) List(ctx context.Context, marker string, limit int) (ids []string, outMarker string, truncated bool, err error) {
	rows, err := v.store.ListVaults(ctx, v.project, marker, limit+1)
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

// Vault is a handle to a single, known-to-exist vault.
type Vault struct {
	store   metadata.Store
	project metadata.ProjectID
	id      string
}

// ID returns the vault's id.
func (v *Vault) ID() string { return v.id }

// Stats returns the vault's aggregate file/block counts (§4.5).
func (v *Vault) Stats(ctx context.Context) (metadata.VaultStats, error) {
	return v.store.VaultStats(ctx, v.project, v.id)
}

// Health returns the bad-block and bad-file rollups for the vault.
func (v *Vault) Health(ctx context.Context) (badBlocks, badFiles int, err error) {
	return v.store.VaultHealth(ctx, v.project, v.id)
}

// Delete removes the vault, but only when it owns no files and no
// blocks; otherwise it returns *deuceerr.ConstraintError without
// touching the store (§6 DELETE /vaults/{vault_id}).
func (v *Vault) Delete(ctx context.Context) error {
	stats, err := v.Stats(ctx)
	if err != nil {
		return err
	}
	if stats.Files.Count > 0 || stats.Blocks.Count > 0 {
		return deuceerr.NewConstraintError("vault is not empty")
	}
	return v.store.DeleteVault(ctx, v.project, v.id)
}

// Files returns the file-scoped facade for this vault.
func (v *Vault) Files() *Files {
	return &Files{store: v.store, project: v.project, vault: v.id}
}

// Blocks returns the block-scoped facade for this vault.
func (v *Vault) Blocks() *Blocks {
	return &Blocks{store: v.store, project: v.project, vault: v.id}
}
