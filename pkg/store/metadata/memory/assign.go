package memory

import (
	"context"
	"sort"

	"github.com/sujala/deuce/pkg/metadata"
)

func (s *Store) AssignBlock(_ context.Context, project metadata.ProjectID, vaultID, fileID, blockID string, offset int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assignBlockLocked(project, vaultID, fileID, blockID, offset)
	return nil
}

func (s *Store) AssignBlocks(_ context.Context, project metadata.ProjectID, vaultID, fileID string, blockIDs []string, offsets []int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, blockID := range blockIDs {
		s.assignBlockLocked(project, vaultID, fileID, blockID, offsets[i])
	}
	return nil
}

// assignBlockLocked upserts the (file, block, offset) tuple and
// touches the block's reftime, then keeps the file's row set sorted
// by offset so ListFileBlocks and the finalize walk see it in order.
func (s *Store) assignBlockLocked(project metadata.ProjectID, vaultID, fileID, blockID string, offset int64) {
	fk := fileKey{project, vaultID, fileID}
	rows := s.fileBlocks[fk]

	for i, row := range rows {
		if row.blockID == blockID && row.offset == offset {
			rows[i] = fileBlockRow{fileKey: fk, blockID: blockID, offset: offset}
			s.touchReftimeLocked(project, vaultID, blockID)
			return
		}
	}

	rows = append(rows, fileBlockRow{fileKey: fk, blockID: blockID, offset: offset})
	sort.Slice(rows, func(i, j int) bool { return rows[i].offset < rows[j].offset })
	s.fileBlocks[fk] = rows

	s.touchReftimeLocked(project, vaultID, blockID)
}

func (s *Store) touchReftimeLocked(project metadata.ProjectID, vaultID, blockID string) {
	if b, ok := s.blocks[blockKey{project, vaultID, blockID}]; ok {
		b.reftime = s.clock()
	}
}
