package api

import (
	"errors"
	"net/http"

	"github.com/sujala/deuce/internal/logger"
	"github.com/sujala/deuce/pkg/deuceerr"
	"github.com/sujala/deuce/pkg/store/block"
)

// apiError is the JSON body written by writeError.
type apiError struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// writeError maps a domain error to the HTTP status table in §7 and
// writes the matching JSON body. Metadata operations surface their
// domain error unchanged; this is the single place that owns the
// mapping, never the handlers themselves.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var notFound *deuceerr.NotFoundError
	var gap *deuceerr.GapError
	var overlap *deuceerr.OverlapError
	var constraint *deuceerr.ConstraintError
	var alreadyFinalized *deuceerr.AlreadyFinalizedError
	var invalidRequest *deuceerr.InvalidRequestError

	switch {
	case errors.As(err, &notFound):
		JSON(w, http.StatusNotFound, apiError{Error: err.Error(), Code: notFound.Code().String()})
	case errors.As(err, &gap):
		JSON(w, http.StatusRequestEntityTooLarge, apiError{Error: err.Error(), Code: gap.Code().String()})
	case errors.As(err, &overlap):
		JSON(w, http.StatusRequestEntityTooLarge, apiError{Error: err.Error(), Code: overlap.Code().String()})
	case errors.As(err, &constraint):
		JSON(w, http.StatusConflict, apiError{Error: err.Error(), Code: constraint.Code().String()})
	case errors.As(err, &alreadyFinalized):
		JSON(w, http.StatusBadRequest, apiError{Error: err.Error(), Code: alreadyFinalized.Code().String()})
	case errors.As(err, &invalidRequest):
		JSON(w, http.StatusBadRequest, apiError{Error: err.Error(), Code: invalidRequest.Code().String()})
	case errors.Is(err, block.ErrNotFound):
		// The metadata layer already confirmed the block is
		// registered; a missing object in the block store is a
		// backend inconsistency, not a client-facing 404 (§12.5).
		logger.Error("block store object missing", logger.KeyPath, r.URL.Path, logger.KeyError, err)
		JSON(w, http.StatusBadGateway, apiError{Error: "block storage unavailable"})
	default:
		logger.Error("unhandled API error", logger.KeyPath, r.URL.Path, logger.KeyError, err)
		JSON(w, http.StatusInternalServerError, apiError{Error: "internal server error"})
	}
}

// writeBlockStoreError always maps to 502 (§7 "block-store errors
// propagate as 502 Bad Gateway"), regardless of the underlying cause.
func writeBlockStoreError(w http.ResponseWriter, r *http.Request, err error) {
	logger.Error("block store error", logger.KeyPath, r.URL.Path, logger.KeyError, err)
	JSON(w, http.StatusBadGateway, apiError{Error: "block storage unavailable"})
}
