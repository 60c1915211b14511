package postgres

import (
	"context"

	"github.com/sujala/deuce/pkg/metadata"
)

func (s *Store) AssignBlock(ctx context.Context, project metadata.ProjectID, vaultID, fileID, blockID string, offset int64) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO fileblocks (project_id, vault_id, file_id, block_id, "offset")
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (project_id, vault_id, file_id, block_id, "offset") DO NOTHING`,
		string(project), vaultID, fileID, blockID, offset)
	if err != nil {
		return mapPgError(err, "AssignBlock")
	}

	_, err = s.pool.Exec(ctx, `
		UPDATE blocks SET reftime = now()
		WHERE project_id = $1 AND vault_id = $2 AND block_id = $3`,
		string(project), vaultID, blockID)
	return mapPgError(err, "AssignBlock")
}

// AssignBlocks batches the per-pair inserts into one round trip using
// unnest over the parallel blockIDs/offsets slices, then touches
// reftime on every distinct block in a second statement.
func (s *Store) AssignBlocks(ctx context.Context, project metadata.ProjectID, vaultID, fileID string, blockIDs []string, offsets []int64) error {
	if len(blockIDs) == 0 {
		return nil
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO fileblocks (project_id, vault_id, file_id, block_id, "offset")
		SELECT $1, $2, $3, block_id, "offset"
		FROM unnest($4::text[], $5::bigint[]) AS t(block_id, "offset")
		ON CONFLICT (project_id, vault_id, file_id, block_id, "offset") DO NOTHING`,
		string(project), vaultID, fileID, blockIDs, offsets)
	if err != nil {
		return mapPgError(err, "AssignBlocks")
	}

	_, err = s.pool.Exec(ctx, `
		UPDATE blocks SET reftime = now()
		WHERE project_id = $1 AND vault_id = $2 AND block_id = ANY($3::text[])`,
		string(project), vaultID, blockIDs)
	return mapPgError(err, "AssignBlocks")
}
