package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/sujala/deuce/pkg/metadata"
)

func (s *Store) CreateFile(ctx context.Context, project metadata.ProjectID, vaultID, fileID string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO files (project_id, vault_id, file_id, finalized, size)
		VALUES ($1, $2, $3, FALSE, 0)
		ON CONFLICT (project_id, vault_id, file_id) DO NOTHING`,
		string(project), vaultID, fileID)
	return mapPgError(err, "CreateFile")
}

func (s *Store) HasFile(ctx context.Context, project metadata.ProjectID, vaultID, fileID string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM files WHERE project_id = $1 AND vault_id = $2 AND file_id = $3)`,
		string(project), vaultID, fileID).Scan(&exists)
	if err != nil {
		return false, mapPgError(err, "HasFile")
	}
	return exists, nil
}

func (s *Store) GetFileData(ctx context.Context, project metadata.ProjectID, vaultID, fileID string) (metadata.FileData, error) {
	var data metadata.FileData
	err := s.pool.QueryRow(ctx, `
		SELECT finalized, size FROM files
		WHERE project_id = $1 AND vault_id = $2 AND file_id = $3`,
		string(project), vaultID, fileID).Scan(&data.Finalized, &data.Size)
	if err == pgx.ErrNoRows {
		return metadata.FileData{}, nil
	}
	if err != nil {
		return metadata.FileData{}, mapPgError(err, "GetFileData")
	}
	return data, nil
}

func (s *Store) IsFinalized(ctx context.Context, project metadata.ProjectID, vaultID, fileID string) (bool, error) {
	data, err := s.GetFileData(ctx, project, vaultID, fileID)
	return data.Finalized, err
}

func (s *Store) FileLength(ctx context.Context, project metadata.ProjectID, vaultID, fileID string) (int64, error) {
	data, err := s.GetFileData(ctx, project, vaultID, fileID)
	return data.Size, err
}

// DeleteFile bumps reftime on every block the file references, then
// removes the file row and its fileblock rows, each in its own
// statement (§5 "no cross-store transactions" — this still holds
// within the metadata store: the three writes commit individually).
func (s *Store) DeleteFile(ctx context.Context, project metadata.ProjectID, vaultID, fileID string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE blocks SET reftime = now()
		WHERE project_id = $1 AND vault_id = $2 AND block_id IN (
			SELECT block_id FROM fileblocks
			WHERE project_id = $1 AND vault_id = $2 AND file_id = $3
		)`,
		string(project), vaultID, fileID)
	if err != nil {
		return mapPgError(err, "DeleteFile")
	}

	_, err = s.pool.Exec(ctx, `
		DELETE FROM files WHERE project_id = $1 AND vault_id = $2 AND file_id = $3`,
		string(project), vaultID, fileID)
	if err != nil {
		return mapPgError(err, "DeleteFile")
	}

	_, err = s.pool.Exec(ctx, `
		DELETE FROM fileblocks WHERE project_id = $1 AND vault_id = $2 AND file_id = $3`,
		string(project), vaultID, fileID)
	return mapPgError(err, "DeleteFile")
}

func (s *Store) ListFiles(ctx context.Context, project metadata.ProjectID, vaultID, marker string, limit int, finalized bool) ([]string, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT file_id FROM files
		WHERE project_id = $1 AND vault_id = $2 AND finalized = $3 AND file_id >= $4
		ORDER BY file_id ASC
		LIMIT $5`,
		string(project), vaultID, finalized, marker, limit)
	if err != nil {
		return nil, mapPgError(err, "ListFiles")
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, mapPgError(err, "ListFiles")
		}
		ids = append(ids, id)
	}
	return ids, mapPgError(rows.Err(), "ListFiles")
}

func (s *Store) ListFileBlocks(ctx context.Context, project metadata.ProjectID, vaultID, fileID string, offset *int64, limit *int) ([]metadata.BlockRef, error) {
	query := `
		SELECT block_id, "offset" FROM fileblocks
		WHERE project_id = $1 AND vault_id = $2 AND file_id = $3`
	args := []any{string(project), vaultID, fileID}

	if offset != nil {
		query += ` AND "offset" >= $4`
		args = append(args, *offset)
	}
	query += ` ORDER BY "offset" ASC`
	if limit != nil {
		query += fmt.Sprintf(` LIMIT $%d`, len(args)+1)
		args = append(args, *limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, mapPgError(err, "ListFileBlocks")
	}
	defer rows.Close()

	var refs []metadata.BlockRef
	for rows.Next() {
		var ref metadata.BlockRef
		if err := rows.Scan(&ref.BlockID, &ref.Offset); err != nil {
			return nil, mapPgError(err, "ListFileBlocks")
		}
		refs = append(refs, ref)
	}
	return refs, mapPgError(rows.Err(), "ListFileBlocks")
}

// FinalizeFile loads the file's (offset, size) cover, excluding blocks
// marked invalid, runs the shared finalize walk, and on success
// records finalized=true and the resolved size.
func (s *Store) FinalizeFile(ctx context.Context, project metadata.ProjectID, vaultID, fileID string, fileSize *int64) error {
	rows, err := s.pool.Query(ctx, `
		SELECT fb.block_id, fb."offset", b.size
		FROM fileblocks fb
		JOIN blocks b ON b.project_id = fb.project_id AND b.vault_id = fb.vault_id AND b.block_id = fb.block_id
		WHERE fb.project_id = $1 AND fb.vault_id = $2 AND fb.file_id = $3 AND NOT b.is_invalid
		ORDER BY fb."offset" ASC`,
		string(project), vaultID, fileID)
	if err != nil {
		return mapPgError(err, "FinalizeFile")
	}

	var fbRows []metadata.FileBlockSize
	for rows.Next() {
		var row metadata.FileBlockSize
		if err := rows.Scan(&row.BlockID, &row.Offset, &row.Size); err != nil {
			rows.Close()
			return mapPgError(err, "FinalizeFile")
		}
		fbRows = append(fbRows, row)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return mapPgError(err, "FinalizeFile")
	}

	size, err := metadata.EvaluateFinalization(fbRows, fileSize)
	if err != nil {
		return err
	}

	_, err = s.pool.Exec(ctx, `
		UPDATE files SET finalized = TRUE, size = $4
		WHERE project_id = $1 AND vault_id = $2 AND file_id = $3`,
		string(project), vaultID, fileID, size)
	return mapPgError(err, "FinalizeFile")
}
