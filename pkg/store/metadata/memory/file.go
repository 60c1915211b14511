package memory

import (
	"context"
	"slices"

	"github.com/sujala/deuce/pkg/metadata"
)

func (s *Store) CreateFile(_ context.Context, project metadata.ProjectID, vaultID, fileID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[fileKey{project, vaultID, fileID}] = &fileData{}
	return nil
}

func (s *Store) HasFile(_ context.Context, project metadata.ProjectID, vaultID, fileID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.files[fileKey{project, vaultID, fileID}]
	return ok, nil
}

func (s *Store) IsFinalized(_ context.Context, project metadata.ProjectID, vaultID, fileID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.files[fileKey{project, vaultID, fileID}]
	if !ok {
		return false, nil
	}
	return f.finalized, nil
}

func (s *Store) FileLength(_ context.Context, project metadata.ProjectID, vaultID, fileID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.files[fileKey{project, vaultID, fileID}]
	if !ok {
		return 0, nil
	}
	return f.size, nil
}

func (s *Store) GetFileData(_ context.Context, project metadata.ProjectID, vaultID, fileID string) (metadata.FileData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.files[fileKey{project, vaultID, fileID}]
	if !ok {
		return metadata.FileData{}, nil
	}
	return metadata.FileData{Finalized: f.finalized, Size: f.size}, nil
}

func (s *Store) DeleteFile(_ context.Context, project metadata.ProjectID, vaultID, fileID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	fk := fileKey{project, vaultID, fileID}
	now := s.clock()
	for _, row := range s.fileBlocks[fk] {
		bk := blockKey{project, vaultID, row.blockID}
		if b, ok := s.blocks[bk]; ok {
			b.reftime = now
		}
	}

	delete(s.files, fk)
	delete(s.fileBlocks, fk)
	return nil
}

func (s *Store) ListFiles(_ context.Context, project metadata.ProjectID, vaultID, marker string, limit int, finalized bool) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var ids []string
	for k, f := range s.files {
		if k.project == project && k.vault == vaultID && k.file >= marker && f.finalized == finalized {
			ids = append(ids, k.file)
		}
	}
	slices.Sort(ids)
	if len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

func (s *Store) ListFileBlocks(_ context.Context, project metadata.ProjectID, vaultID, fileID string, offset *int64, limit *int) ([]metadata.BlockRef, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows := s.fileBlocks[fileKey{project, vaultID, fileID}]

	refs := make([]metadata.BlockRef, 0, len(rows))
	for _, row := range rows {
		if offset != nil && row.offset < *offset {
			continue
		}
		refs = append(refs, metadata.BlockRef{BlockID: row.blockID, Offset: row.offset})
		if limit != nil && len(refs) >= *limit {
			break
		}
	}
	return refs, nil
}

func (s *Store) FinalizeFile(_ context.Context, project metadata.ProjectID, vaultID, fileID string, fileSize *int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	fk := fileKey{project, vaultID, fileID}
	f, ok := s.files[fk]
	if !ok {
		return nil
	}

	rows := s.fileBlocks[fk]
	fbRows := make([]metadata.FileBlockSize, 0, len(rows))
	for _, row := range rows {
		bk := blockKey{project, vaultID, row.blockID}
		b, ok := s.blocks[bk]
		if !ok || b.invalid {
			continue
		}
		fbRows = append(fbRows, metadata.FileBlockSize{BlockID: row.blockID, Offset: row.offset, Size: b.size})
	}

	size, err := metadata.EvaluateFinalization(fbRows, fileSize)
	if err != nil {
		return err
	}

	f.finalized = true
	f.size = size
	return nil
}
