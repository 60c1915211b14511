package api

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/sujala/deuce/internal/logger"
	apimiddleware "github.com/sujala/deuce/pkg/api/middleware"
	"github.com/sujala/deuce/pkg/deuceerr"
	"github.com/sujala/deuce/pkg/domain"
	"github.com/sujala/deuce/pkg/metrics"
)

func (s *Server) blocks(r *http.Request, vaultID string) (*domain.Blocks, error) {
	project, _ := apimiddleware.ProjectIDFromContext(r.Context())
	vault, err := domain.NewVaults(s.deps.Metadata, project).Get(r.Context(), vaultID)
	if err != nil {
		return nil, err
	}
	return vault.Blocks(), nil
}

// listBlocks handles GET /v1.0/vaults/{v}/blocks (§6).
func (s *Server) listBlocks(w http.ResponseWriter, r *http.Request) {
	vaultID := chi.URLParam(r, "vaultID")
	blocks, err := s.blocks(r, vaultID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	marker, limit := parsePagination(r, s.deps.Pagination)
	ids, outMarker, truncated, err := blocks.List(r.Context(), marker, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}

	setNextBatchHeader(w, r, truncated, outMarker, limit)
	JSON(w, http.StatusOK, ids)
}

// putBlock handles PUT /v1.0/vaults/{v}/blocks/{block_id} with an
// application/octet-stream body: upload bytes to the block storage
// driver, then register the resulting storage-id in the metadata
// store (§6). 201 on success, with the driver's storage-id echoed in
// X-Storage-Id.
func (s *Server) putBlock(w http.ResponseWriter, r *http.Request) {
	vaultID := chi.URLParam(r, "vaultID")
	blockID := chi.URLParam(r, "blockID")
	logger.FromContext(r.Context()).SetVaultID(vaultID)
	logger.FromContext(r.Context()).SetBlockID(blockID)
	project, _ := apimiddleware.ProjectIDFromContext(r.Context())

	body := r.Body
	if s.deps.MaxBlockSize > 0 {
		body = http.MaxBytesReader(w, body, s.deps.MaxBlockSize)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		writeError(w, r, deuceerr.NewInvalidRequestError("block body exceeds the configured max block size or failed to read"))
		return
	}

	storageID, err := s.deps.Blocks.Put(r.Context(), string(project), vaultID, data)
	if err != nil {
		writeBlockStoreError(w, r, err)
		return
	}
	metrics.ObserveBlockBytes("write", len(data))

	blocks, err := s.blocks(r, vaultID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if _, err := blocks.Register(r.Context(), blockID, storageID, int64(len(data))); err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("X-Storage-Id", storageID)
	w.WriteHeader(http.StatusCreated)
}

// batchRegistered is the body returned by postBlocksBatch: the block
// ids that were successfully registered.
type batchRegistered struct {
	Registered []string `json:"registered"`
}

// postBlocksBatch handles POST /v1.0/vaults/{v}/blocks with an
// application/msgpack body mapping block_id -> raw bytes (§6 "batch
// upload").
func (s *Server) postBlocksBatch(w http.ResponseWriter, r *http.Request) {
	vaultID := chi.URLParam(r, "vaultID")
	logger.FromContext(r.Context()).SetVaultID(vaultID)
	project, _ := apimiddleware.ProjectIDFromContext(r.Context())

	var payload map[string][]byte
	if err := msgpack.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, r, deuceerr.NewInvalidRequestError("invalid msgpack body"))
		return
	}

	blocks, err := s.blocks(r, vaultID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	registered := make([]string, 0, len(payload))
	for blockID, data := range payload {
		storageID, err := s.deps.Blocks.Put(r.Context(), string(project), vaultID, data)
		if err != nil {
			writeBlockStoreError(w, r, err)
			return
		}
		metrics.ObserveBlockBytes("write", len(data))
		if _, err := blocks.Register(r.Context(), blockID, storageID, int64(len(data))); err != nil {
			writeError(w, r, err)
			return
		}
		registered = append(registered, blockID)
	}

	JSON(w, http.StatusCreated, batchRegistered{Registered: registered})
}

// getBlock handles GET /v1.0/vaults/{v}/blocks/{block_id} — streams
// the raw block bytes.
func (s *Server) getBlock(w http.ResponseWriter, r *http.Request) {
	vaultID := chi.URLParam(r, "vaultID")
	blockID := chi.URLParam(r, "blockID")
	logger.FromContext(r.Context()).SetVaultID(vaultID)
	logger.FromContext(r.Context()).SetBlockID(blockID)
	project, _ := apimiddleware.ProjectIDFromContext(r.Context())

	blocks, err := s.blocks(r, vaultID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	block, err := blocks.Get(r.Context(), blockID, true)
	if err != nil {
		writeError(w, r, err)
		return
	}

	storageID, found, err := block.StorageID(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !found {
		writeError(w, r, deuceerr.NewNotFoundError("block", blockID))
		return
	}

	rc, err := s.deps.Blocks.Open(r.Context(), string(project), vaultID, storageID)
	if err != nil {
		writeBlockStoreError(w, r, err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	w.WriteHeader(http.StatusOK)
	n, err := io.Copy(w, rc)
	metrics.ObserveBlockBytes("read", int(n))
	if err != nil {
		logger.Error("block stream interrupted", logger.KeyVaultID, vaultID, logger.KeyBlockID, blockID, logger.KeyError, err)
	}
}

// headBlock handles HEAD /v1.0/vaults/{v}/blocks/{block_id}.
func (s *Server) headBlock(w http.ResponseWriter, r *http.Request) {
	vaultID := chi.URLParam(r, "vaultID")
	blockID := chi.URLParam(r, "blockID")
	logger.FromContext(r.Context()).SetVaultID(vaultID)
	logger.FromContext(r.Context()).SetBlockID(blockID)

	blocks, err := s.blocks(r, vaultID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	block, err := blocks.Get(r.Context(), blockID, false)
	if err != nil {
		writeError(w, r, err)
		return
	}

	data, err := block.Data(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	refCount, err := block.RefCount(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	refModified, err := block.RefModified(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	storageID, _, err := block.StorageID(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("X-Block-Reference-Count", itoa(refCount))
	w.Header().Set("X-Ref-Modified", itoa64(refModified))
	w.Header().Set("X-Block-Size", itoa64(data.Size))
	w.Header().Set("X-Storage-Id", storageID)
	w.WriteHeader(http.StatusNoContent)
}

// deleteBlock handles DELETE /v1.0/vaults/{v}/blocks/{block_id}. The
// block's bytes in the storage driver are left untouched — reclaiming
// them is an external reaper's job (§1 Non-goals: no GC policy).
func (s *Server) deleteBlock(w http.ResponseWriter, r *http.Request) {
	vaultID := chi.URLParam(r, "vaultID")
	blockID := chi.URLParam(r, "blockID")
	logger.FromContext(r.Context()).SetVaultID(vaultID)
	logger.FromContext(r.Context()).SetBlockID(blockID)

	blocks, err := s.blocks(r, vaultID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	block, err := blocks.Get(r.Context(), blockID, false)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := block.Unregister(r.Context()); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
