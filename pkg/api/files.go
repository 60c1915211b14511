package api

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/sujala/deuce/internal/logger"
	apimiddleware "github.com/sujala/deuce/pkg/api/middleware"
	"github.com/sujala/deuce/pkg/deuceerr"
	"github.com/sujala/deuce/pkg/domain"
	"github.com/sujala/deuce/pkg/reassembly"
)

func (s *Server) files(r *http.Request, vaultID string) (*domain.Files, error) {
	project, _ := apimiddleware.ProjectIDFromContext(r.Context())
	vault, err := domain.NewVaults(s.deps.Metadata, project).Get(r.Context(), vaultID)
	if err != nil {
		return nil, err
	}
	return vault.Files(), nil
}

// listFiles handles GET /v1.0/vaults/{v}/files. Only finalized files
// are listed by default; ?finalized=false lists in-progress ones.
func (s *Server) listFiles(w http.ResponseWriter, r *http.Request) {
	vaultID := chi.URLParam(r, "vaultID")
	logger.FromContext(r.Context()).SetVaultID(vaultID)
	files, err := s.files(r, vaultID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	finalized := true
	if raw := r.URL.Query().Get("finalized"); raw != "" {
		if parsed, err := strconv.ParseBool(raw); err == nil {
			finalized = parsed
		}
	}

	marker, limit := parsePagination(r, s.deps.Pagination)
	ids, outMarker, truncated, err := files.List(r.Context(), marker, limit, finalized)
	if err != nil {
		writeError(w, r, err)
		return
	}

	setNextBatchHeader(w, r, truncated, outMarker, limit)
	JSON(w, http.StatusOK, ids)
}

// postFile handles POST /v1.0/vaults/{v}/files with no body: creates
// an empty, non-finalized file (§6).
func (s *Server) postFile(w http.ResponseWriter, r *http.Request) {
	vaultID := chi.URLParam(r, "vaultID")
	logger.FromContext(r.Context()).SetVaultID(vaultID)
	files, err := s.files(r, vaultID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	fileID := newFileID()
	logger.FromContext(r.Context()).SetFileID(fileID)
	file, err := files.Create(r.Context(), fileID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Location", "files/"+file.ID())
	w.Header().Set("X-File-Id", file.ID())
	w.WriteHeader(http.StatusCreated)
}

// assignRequest is the JSON body of an assignment POST (§6).
type assignRequest struct {
	Blocks []struct {
		ID     string `json:"id"`
		Offset int64  `json:"offset"`
	} `json:"blocks"`
}

// postFileAssignOrFinalize handles POST /v1.0/vaults/{v}/files/{file_id}.
// A non-empty body assigns a block map; an empty body finalizes the
// file (§6). The expected final size, when the caller has one, is
// carried in the X-File-Length header — the body of an empty-body
// finalize request carries nothing else to convey it.
func (s *Server) postFileAssignOrFinalize(w http.ResponseWriter, r *http.Request) {
	vaultID := chi.URLParam(r, "vaultID")
	fileID := chi.URLParam(r, "fileID")
	logger.FromContext(r.Context()).SetVaultID(vaultID)
	logger.FromContext(r.Context()).SetFileID(fileID)

	files, err := s.files(r, vaultID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	file, err := files.Get(r.Context(), fileID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, r, deuceerr.NewInvalidRequestError("failed to read request body"))
		return
	}

	if len(body) == 0 {
		s.finalizeFile(w, r, file)
		return
	}

	var req assignRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, r, deuceerr.NewInvalidRequestError("invalid JSON body"))
		return
	}

	blockIDs := make([]string, len(req.Blocks))
	offsets := make([]int64, len(req.Blocks))
	for i, b := range req.Blocks {
		blockIDs[i] = b.ID
		offsets[i] = b.Offset
	}

	missing, err := file.Assign(r.Context(), blockIDs, offsets)
	if err != nil {
		writeError(w, r, err)
		return
	}

	JSON(w, http.StatusOK, missing)
}

func (s *Server) finalizeFile(w http.ResponseWriter, r *http.Request, file *domain.File) {
	var fileSize *int64
	if raw := r.Header.Get("X-File-Length"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeError(w, r, deuceerr.NewInvalidRequestError("X-File-Length must be an integer"))
			return
		}
		fileSize = &parsed
	}

	if err := file.Finalize(r.Context(), fileSize); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// getFile handles GET /v1.0/vaults/{v}/files/{file_id}: streams the
// reassembled file body (§6, §4.3).
func (s *Server) getFile(w http.ResponseWriter, r *http.Request) {
	vaultID := chi.URLParam(r, "vaultID")
	fileID := chi.URLParam(r, "fileID")
	logger.FromContext(r.Context()).SetVaultID(vaultID)
	logger.FromContext(r.Context()).SetFileID(fileID)

	files, err := s.files(r, vaultID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	file, err := files.Get(r.Context(), fileID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	finalized, err := file.IsFinalized(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !finalized {
		writeError(w, r, deuceerr.NewInvalidRequestError("file is not finalized"))
		return
	}

	refs, err := file.Blocks(r.Context(), nil, nil)
	if err != nil {
		writeError(w, r, err)
		return
	}

	project, _ := apimiddleware.ProjectIDFromContext(r.Context())
	vault, err := domain.NewVaults(s.deps.Metadata, project).Get(r.Context(), vaultID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	reader := reassembly.New(r.Context(), s.deps.Blocks, reassembly.FromVaultBlocks(vault.Blocks()), string(project), vaultID, refs)
	defer reader.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, reader); err != nil {
		logger.Error("file stream interrupted", logger.KeyVaultID, vaultID, logger.KeyFileID, fileID, logger.KeyError, err)
	}
}

// deleteFile handles DELETE /v1.0/vaults/{v}/files/{file_id}. Not
// enumerated in §6's route table, but the domain model supports it
// (§4.1 "may be deleted (releases references)") and §8's round-trip
// scenario 2 exercises exactly this over the wire, so it's exposed
// here rather than left HTTP-unreachable.
func (s *Server) deleteFile(w http.ResponseWriter, r *http.Request) {
	vaultID := chi.URLParam(r, "vaultID")
	fileID := chi.URLParam(r, "fileID")
	logger.FromContext(r.Context()).SetVaultID(vaultID)
	logger.FromContext(r.Context()).SetFileID(fileID)

	files, err := s.files(r, vaultID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	file, err := files.Get(r.Context(), fileID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := file.Delete(r.Context()); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// listFileBlocks handles GET /v1.0/vaults/{v}/files/{file_id}/blocks.
func (s *Server) listFileBlocks(w http.ResponseWriter, r *http.Request) {
	vaultID := chi.URLParam(r, "vaultID")
	fileID := chi.URLParam(r, "fileID")
	logger.FromContext(r.Context()).SetVaultID(vaultID)
	logger.FromContext(r.Context()).SetFileID(fileID)

	files, err := s.files(r, vaultID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	file, err := files.Get(r.Context(), fileID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	refs, err := file.Blocks(r.Context(), nil, nil)
	if err != nil {
		writeError(w, r, err)
		return
	}

	JSON(w, http.StatusOK, refs)
}

func newFileID() string {
	return uuid.NewString()
}
