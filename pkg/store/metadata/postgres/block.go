package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/sujala/deuce/pkg/deuceerr"
	"github.com/sujala/deuce/pkg/metadata"
)

func (s *Store) RegisterBlock(ctx context.Context, project metadata.ProjectID, vaultID, blockID, storageID string, size int64) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO blocks (project_id, vault_id, block_id, storage_id, size, reftime, is_invalid)
		VALUES ($1, $2, $3, $4, $5, now(), FALSE)
		ON CONFLICT (project_id, vault_id, block_id) DO UPDATE
		SET storage_id = EXCLUDED.storage_id, size = EXCLUDED.size, reftime = now(), is_invalid = FALSE
		WHERE blocks.is_invalid`,
		string(project), vaultID, blockID, storageID, size)
	return mapPgError(err, "RegisterBlock")
}

func (s *Store) HasBlock(ctx context.Context, project metadata.ProjectID, vaultID, blockID string, checkStatus bool) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM blocks WHERE project_id = $1 AND vault_id = $2 AND block_id = $3`
	if checkStatus {
		query += ` AND NOT is_invalid`
	}
	query += `)`

	var exists bool
	err := s.pool.QueryRow(ctx, query, string(project), vaultID, blockID).Scan(&exists)
	if err != nil {
		return false, mapPgError(err, "HasBlock")
	}
	return exists, nil
}

func (s *Store) HasBlocks(ctx context.Context, project metadata.ProjectID, vaultID string, blockIDs []string, checkStatus bool) ([]string, error) {
	var missing []string
	for _, id := range blockIDs {
		ok, err := s.HasBlock(ctx, project, vaultID, id, checkStatus)
		if err != nil {
			return nil, err
		}
		if !ok {
			missing = append(missing, id)
		}
	}
	return missing, nil
}

func (s *Store) GetBlockData(ctx context.Context, project metadata.ProjectID, vaultID, blockID string) (metadata.BlockData, error) {
	var size int64
	err := s.pool.QueryRow(ctx, `
		SELECT size FROM blocks WHERE project_id = $1 AND vault_id = $2 AND block_id = $3`,
		string(project), vaultID, blockID).Scan(&size)
	if err == pgx.ErrNoRows {
		return metadata.BlockData{}, deuceerr.NewNotFoundError("block", blockID)
	}
	if err != nil {
		return metadata.BlockData{}, mapPgError(err, "GetBlockData")
	}
	return metadata.BlockData{Size: size}, nil
}

func (s *Store) GetBlockStorageID(ctx context.Context, project metadata.ProjectID, vaultID, blockID string) (string, bool, error) {
	var storageID string
	err := s.pool.QueryRow(ctx, `
		SELECT storage_id FROM blocks WHERE project_id = $1 AND vault_id = $2 AND block_id = $3`,
		string(project), vaultID, blockID).Scan(&storageID)
	if err == pgx.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, mapPgError(err, "GetBlockStorageID")
	}
	return storageID, true, nil
}

func (s *Store) GetBlockMetadataID(ctx context.Context, project metadata.ProjectID, vaultID, storageID string) (string, bool, error) {
	var blockID string
	err := s.pool.QueryRow(ctx, `
		SELECT block_id FROM blocks WHERE project_id = $1 AND vault_id = $2 AND storage_id = $3`,
		string(project), vaultID, storageID).Scan(&blockID)
	if err == pgx.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, mapPgError(err, "GetBlockMetadataID")
	}
	return blockID, true, nil
}

// UnregisterBlock fails with *deuceerr.ConstraintError when the block
// still has fileblock references; the DELETE is guarded by a
// NOT EXISTS subquery so the refcount check and the delete are one
// round trip with no race window.
func (s *Store) UnregisterBlock(ctx context.Context, project metadata.ProjectID, vaultID, blockID string) error {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM blocks
		WHERE project_id = $1 AND vault_id = $2 AND block_id = $3
		AND NOT EXISTS (
			SELECT 1 FROM fileblocks
			WHERE project_id = $1 AND vault_id = $2 AND block_id = $3
		)`,
		string(project), vaultID, blockID)
	if err != nil {
		return mapPgError(err, "UnregisterBlock")
	}
	if tag.RowsAffected() == 0 {
		exists, err := s.HasBlock(ctx, project, vaultID, blockID, false)
		if err != nil {
			return err
		}
		if exists {
			return deuceerr.NewConstraintError("block has outstanding references")
		}
	}
	return nil
}

func (s *Store) MarkBlockAsBad(ctx context.Context, project metadata.ProjectID, vaultID, blockID string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE blocks SET is_invalid = TRUE
		WHERE project_id = $1 AND vault_id = $2 AND block_id = $3`,
		string(project), vaultID, blockID)
	if err != nil {
		return mapPgError(err, "MarkBlockAsBad")
	}
	if tag.RowsAffected() == 0 {
		return deuceerr.NewNotFoundError("block", blockID)
	}
	return nil
}

func (s *Store) ResetBlockStatus(ctx context.Context, project metadata.ProjectID, vaultID string, marker string, limit int) (string, bool, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT block_id FROM blocks
		WHERE project_id = $1 AND vault_id = $2 AND block_id >= $3
		ORDER BY block_id ASC
		LIMIT $4`,
		string(project), vaultID, marker, limit+1)
	if err != nil {
		return "", false, mapPgError(err, "ResetBlockStatus")
	}

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return "", false, mapPgError(err, "ResetBlockStatus")
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return "", false, mapPgError(err, "ResetBlockStatus")
	}

	more := len(ids) > limit
	if more {
		ids = ids[:limit]
	}
	if len(ids) == 0 {
		return "", false, nil
	}

	_, err = s.pool.Exec(ctx, `
		UPDATE blocks SET is_invalid = FALSE
		WHERE project_id = $1 AND vault_id = $2 AND block_id = ANY($3)`,
		string(project), vaultID, ids)
	if err != nil {
		return "", false, mapPgError(err, "ResetBlockStatus")
	}

	return ids[len(ids)-1], more, nil
}

func (s *Store) ListBlocks(ctx context.Context, project metadata.ProjectID, vaultID, marker string, limit int) ([]string, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT block_id FROM blocks
		WHERE project_id = $1 AND vault_id = $2 AND block_id >= $3
		ORDER BY block_id ASC
		LIMIT $4`,
		string(project), vaultID, marker, limit)
	if err != nil {
		return nil, mapPgError(err, "ListBlocks")
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, mapPgError(err, "ListBlocks")
		}
		ids = append(ids, id)
	}
	return ids, mapPgError(rows.Err(), "ListBlocks")
}

func (s *Store) GetBlockRefCount(ctx context.Context, project metadata.ProjectID, vaultID, blockID string) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM fileblocks
		WHERE project_id = $1 AND vault_id = $2 AND block_id = $3`,
		string(project), vaultID, blockID).Scan(&count)
	return count, mapPgError(err, "GetBlockRefCount")
}

func (s *Store) GetBlockRefModified(ctx context.Context, project metadata.ProjectID, vaultID, blockID string) (int64, error) {
	var unixSeconds int64
	err := s.pool.QueryRow(ctx, `
		SELECT EXTRACT(EPOCH FROM reftime)::BIGINT FROM blocks
		WHERE project_id = $1 AND vault_id = $2 AND block_id = $3`,
		string(project), vaultID, blockID).Scan(&unixSeconds)
	if err == pgx.ErrNoRows {
		return 0, nil
	}
	return unixSeconds, mapPgError(err, "GetBlockRefModified")
}
