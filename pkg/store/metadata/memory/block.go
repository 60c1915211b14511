package memory

import (
	"context"
	"slices"

	"github.com/sujala/deuce/pkg/deuceerr"
	"github.com/sujala/deuce/pkg/metadata"
)

func (s *Store) RegisterBlock(_ context.Context, project metadata.ProjectID, vaultID, blockID, storageID string, size int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	bk := blockKey{project, vaultID, blockID}
	if b, ok := s.blocks[bk]; ok && !b.invalid {
		return nil
	}

	s.blocks[bk] = &blockData{storageID: storageID, size: size, reftime: s.clock()}

	vk := vaultKey{project, vaultID}
	idx, ok := s.storageIndex[vk]
	if !ok {
		idx = make(map[string]string)
		s.storageIndex[vk] = idx
	}
	idx[storageID] = blockID
	return nil
}

func (s *Store) HasBlock(_ context.Context, project metadata.ProjectID, vaultID, blockID string, checkStatus bool) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasBlockLocked(project, vaultID, blockID, checkStatus), nil
}

func (s *Store) hasBlockLocked(project metadata.ProjectID, vaultID, blockID string, checkStatus bool) bool {
	b, ok := s.blocks[blockKey{project, vaultID, blockID}]
	if !ok {
		return false
	}
	if checkStatus && b.invalid {
		return false
	}
	return true
}

func (s *Store) HasBlocks(_ context.Context, project metadata.ProjectID, vaultID string, blockIDs []string, checkStatus bool) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var missing []string
	for _, id := range blockIDs {
		if !s.hasBlockLocked(project, vaultID, id, checkStatus) {
			missing = append(missing, id)
		}
	}
	return missing, nil
}

func (s *Store) GetBlockData(_ context.Context, project metadata.ProjectID, vaultID, blockID string) (metadata.BlockData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.blocks[blockKey{project, vaultID, blockID}]
	if !ok {
		return metadata.BlockData{}, deuceerr.NewNotFoundError("block", blockID)
	}
	return metadata.BlockData{Size: b.size}, nil
}

func (s *Store) GetBlockStorageID(_ context.Context, project metadata.ProjectID, vaultID, blockID string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.blocks[blockKey{project, vaultID, blockID}]
	if !ok {
		return "", false, nil
	}
	return b.storageID, true, nil
}

func (s *Store) GetBlockMetadataID(_ context.Context, project metadata.ProjectID, vaultID, storageID string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx, ok := s.storageIndex[vaultKey{project, vaultID}]
	if !ok {
		return "", false, nil
	}
	blockID, ok := idx[storageID]
	return blockID, ok, nil
}

func (s *Store) UnregisterBlock(_ context.Context, project metadata.ProjectID, vaultID, blockID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	bk := blockKey{project, vaultID, blockID}
	b, ok := s.blocks[bk]
	if !ok {
		return nil
	}

	if s.refCountLocked(project, vaultID, blockID) > 0 {
		return deuceerr.NewConstraintError("block has outstanding references")
	}

	delete(s.blocks, bk)
	if idx, ok := s.storageIndex[vaultKey{project, vaultID}]; ok {
		delete(idx, b.storageID)
	}
	return nil
}

func (s *Store) refCountLocked(project metadata.ProjectID, vaultID, blockID string) int {
	count := 0
	for fk, rows := range s.fileBlocks {
		if fk.project != project || fk.vault != vaultID {
			continue
		}
		for _, row := range rows {
			if row.blockID == blockID {
				count++
			}
		}
	}
	return count
}

func (s *Store) MarkBlockAsBad(_ context.Context, project metadata.ProjectID, vaultID, blockID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.blocks[blockKey{project, vaultID, blockID}]
	if !ok {
		return deuceerr.NewNotFoundError("block", blockID)
	}
	b.invalid = true
	return nil
}

func (s *Store) ResetBlockStatus(_ context.Context, project metadata.ProjectID, vaultID string, marker string, limit int) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var ids []string
	for k := range s.blocks {
		if k.project == project && k.vault == vaultID && k.block >= marker {
			ids = append(ids, k.block)
		}
	}
	slices.Sort(ids)

	more := len(ids) > limit
	if more {
		ids = ids[:limit]
	}

	var last string
	for _, id := range ids {
		s.blocks[blockKey{project, vaultID, id}].invalid = false
		last = id
	}
	return last, more, nil
}

func (s *Store) ListBlocks(_ context.Context, project metadata.ProjectID, vaultID, marker string, limit int) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var ids []string
	for k := range s.blocks {
		if k.project == project && k.vault == vaultID && k.block >= marker {
			ids = append(ids, k.block)
		}
	}
	slices.Sort(ids)
	if len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

func (s *Store) GetBlockRefCount(_ context.Context, project metadata.ProjectID, vaultID, blockID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refCountLocked(project, vaultID, blockID), nil
}

func (s *Store) GetBlockRefModified(_ context.Context, project metadata.ProjectID, vaultID, blockID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.blocks[blockKey{project, vaultID, blockID}]
	if !ok {
		return 0, nil
	}
	return b.reftime, nil
}
