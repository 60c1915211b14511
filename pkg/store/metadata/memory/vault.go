package memory

import (
	"context"
	"slices"

	"github.com/sujala/deuce/pkg/metadata"
)

func (s *Store) CreateVault(_ context.Context, project metadata.ProjectID, vaultID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vaults[vaultKey{project, vaultID}] = struct{}{}
	return nil
}

func (s *Store) DeleteVault(_ context.Context, project metadata.ProjectID, vaultID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.vaults, vaultKey{project, vaultID})
	return nil
}

func (s *Store) HasVault(_ context.Context, project metadata.ProjectID, vaultID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.vaults[vaultKey{project, vaultID}]
	return ok, nil
}

func (s *Store) ListVaults(_ context.Context, project metadata.ProjectID, marker string, limit int) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var ids []string
	for k := range s.vaults {
		if k.project == project && k.vault >= marker {
			ids = append(ids, k.vault)
		}
	}
	slices.Sort(ids)
	if len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

func (s *Store) VaultStats(_ context.Context, project metadata.ProjectID, vaultID string) (metadata.VaultStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.vaultStatsLocked(project, vaultID), nil
}

func (s *Store) vaultStatsLocked(project metadata.ProjectID, vaultID string) metadata.VaultStats {
	var stats metadata.VaultStats
	for k := range s.files {
		if k.project == project && k.vault == vaultID {
			stats.Files.Count++
			if s.fileHasBadBlockLocked(k) {
				stats.Files.Bad++
			}
		}
	}
	for k, b := range s.blocks {
		if k.project == project && k.vault == vaultID {
			stats.Blocks.Count++
			if b.invalid {
				stats.Blocks.Bad++
			}
		}
	}
	return stats
}

func (s *Store) fileHasBadBlockLocked(fk fileKey) bool {
	for _, row := range s.fileBlocks[fk] {
		bk := blockKey{fk.project, fk.vault, row.blockID}
		if b, ok := s.blocks[bk]; ok && b.invalid {
			return true
		}
	}
	return false
}

func (s *Store) VaultHealth(_ context.Context, project metadata.ProjectID, vaultID string) (int, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	badBlocks := 0
	for k, b := range s.blocks {
		if k.project == project && k.vault == vaultID && b.invalid {
			badBlocks++
		}
	}

	badFiles := 0
	for k := range s.files {
		if k.project == project && k.vault == vaultID && s.fileHasBadBlockLocked(k) {
			badFiles++
		}
	}

	return badBlocks, badFiles, nil
}
