package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sujala/deuce/internal/logger"
	apimiddleware "github.com/sujala/deuce/pkg/api/middleware"
	"github.com/sujala/deuce/pkg/domain"
	"github.com/sujala/deuce/pkg/metrics"
)

func (s *Server) vaults(r *http.Request) *domain.Vaults {
	project, _ := apimiddleware.ProjectIDFromContext(r.Context())
	return domain.NewVaults(s.deps.Metadata, project)
}

// listVaults handles GET /v1.0/vaults (§6).
func (s *Server) listVaults(w http.ResponseWriter, r *http.Request) {
	marker, limit := parsePagination(r, s.deps.Pagination)

	ids, outMarker, truncated, err := s.vaults(r).List(r.Context(), marker, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}

	setNextBatchHeader(w, r, truncated, outMarker, limit)
	JSON(w, http.StatusOK, ids)
}

// putVault handles PUT /v1.0/vaults/{vaultID} — idempotent create, 201.
func (s *Server) putVault(w http.ResponseWriter, r *http.Request) {
	vaultID := chi.URLParam(r, "vaultID")
	logger.FromContext(r.Context()).SetVaultID(vaultID)
	if err := s.vaults(r).Create(r.Context(), vaultID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

// headVault handles HEAD /v1.0/vaults/{vaultID} — 204 with statistics
// headers if it exists, 404 otherwise (§12.3: a never-created vault
// 404s here, distinct from "exists but empty").
func (s *Server) headVault(w http.ResponseWriter, r *http.Request) {
	vaultID := chi.URLParam(r, "vaultID")
	logger.FromContext(r.Context()).SetVaultID(vaultID)
	vault, err := s.vaults(r).Get(r.Context(), vaultID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	start := time.Now()
	stats, err := vault.Stats(r.Context())
	metrics.ObserveVaultStats(time.Since(start))
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("X-Vault-File-Count", itoa(stats.Files.Count))
	w.Header().Set("X-Vault-Bad-File-Count", itoa(stats.Files.Bad))
	w.Header().Set("X-Vault-Block-Count", itoa(stats.Blocks.Count))
	w.Header().Set("X-Vault-Bad-Block-Count", itoa(stats.Blocks.Bad))
	w.WriteHeader(http.StatusNoContent)
}

// deleteVault handles DELETE /v1.0/vaults/{vaultID} — 204 if the vault
// was empty, 409 ConstraintError otherwise.
func (s *Server) deleteVault(w http.ResponseWriter, r *http.Request) {
	vaultID := chi.URLParam(r, "vaultID")
	logger.FromContext(r.Context()).SetVaultID(vaultID)
	vault, err := s.vaults(r).Get(r.Context(), vaultID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := vault.Delete(r.Context()); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
