package postgres

import (
	"context"

	"github.com/sujala/deuce/pkg/metadata"
)

func (s *Store) CreateVault(ctx context.Context, project metadata.ProjectID, vaultID string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO vaults (project_id, vault_id)
		VALUES ($1, $2)
		ON CONFLICT (project_id, vault_id) DO NOTHING`,
		string(project), vaultID)
	return mapPgError(err, "CreateVault")
}

func (s *Store) DeleteVault(ctx context.Context, project metadata.ProjectID, vaultID string) error {
	_, err := s.pool.Exec(ctx, `
		DELETE FROM vaults WHERE project_id = $1 AND vault_id = $2`,
		string(project), vaultID)
	return mapPgError(err, "DeleteVault")
}

func (s *Store) HasVault(ctx context.Context, project metadata.ProjectID, vaultID string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM vaults WHERE project_id = $1 AND vault_id = $2)`,
		string(project), vaultID).Scan(&exists)
	if err != nil {
		return false, mapPgError(err, "HasVault")
	}
	return exists, nil
}

func (s *Store) ListVaults(ctx context.Context, project metadata.ProjectID, marker string, limit int) ([]string, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT vault_id FROM vaults
		WHERE project_id = $1 AND vault_id >= $2
		ORDER BY vault_id ASC
		LIMIT $3`,
		string(project), marker, limit)
	if err != nil {
		return nil, mapPgError(err, "ListVaults")
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, mapPgError(err, "ListVaults")
		}
		ids = append(ids, id)
	}
	return ids, mapPgError(rows.Err(), "ListVaults")
}

func (s *Store) VaultStats(ctx context.Context, project metadata.ProjectID, vaultID string) (metadata.VaultStats, error) {
	var stats metadata.VaultStats

	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE EXISTS (
			SELECT 1 FROM fileblocks fb
			JOIN blocks b ON b.project_id = fb.project_id AND b.vault_id = fb.vault_id AND b.block_id = fb.block_id
			WHERE fb.project_id = files.project_id AND fb.vault_id = files.vault_id AND fb.file_id = files.file_id
			AND b.is_invalid
		))
		FROM files WHERE project_id = $1 AND vault_id = $2`,
		string(project), vaultID).Scan(&stats.Files.Count, &stats.Files.Bad)
	if err != nil {
		return stats, mapPgError(err, "VaultStats")
	}

	err = s.pool.QueryRow(ctx, `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE is_invalid)
		FROM blocks WHERE project_id = $1 AND vault_id = $2`,
		string(project), vaultID).Scan(&stats.Blocks.Count, &stats.Blocks.Bad)
	if err != nil {
		return stats, mapPgError(err, "VaultStats")
	}

	return stats, nil
}

func (s *Store) VaultHealth(ctx context.Context, project metadata.ProjectID, vaultID string) (int, int, error) {
	var badBlocks, badFiles int

	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM blocks WHERE project_id = $1 AND vault_id = $2 AND is_invalid`,
		string(project), vaultID).Scan(&badBlocks)
	if err != nil {
		return 0, 0, mapPgError(err, "VaultHealth")
	}

	err = s.pool.QueryRow(ctx, `
		SELECT COUNT(DISTINCT fb.file_id)
		FROM fileblocks fb
		JOIN blocks b ON b.project_id = fb.project_id AND b.vault_id = fb.vault_id AND b.block_id = fb.block_id
		WHERE fb.project_id = $1 AND fb.vault_id = $2 AND b.is_invalid`,
		string(project), vaultID).Scan(&badFiles)
	if err != nil {
		return 0, 0, mapPgError(err, "VaultHealth")
	}

	return badBlocks, badFiles, nil
}
