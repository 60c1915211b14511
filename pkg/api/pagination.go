package api

import (
	"net/http"
	"net/url"
	"strconv"
)

// PaginationConfig bounds the marker/limit query parameters every list
// operation accepts (§6 "Pagination").
type PaginationConfig struct {
	DefaultLimit int
	MaxLimit     int
}

// applyDefaults fills in zero values with sensible defaults.
func (c *PaginationConfig) applyDefaults() {
	if c.DefaultLimit <= 0 {
		c.DefaultLimit = 100
	}
	if c.MaxLimit <= 0 {
		c.MaxLimit = 1000
	}
}

// parsePagination reads marker/limit off the query string. An absent
// or empty marker is the empty string (§6 "Markers"); an absent or
// invalid limit falls back to the configured default, clamped to the
// configured maximum.
func parsePagination(r *http.Request, cfg PaginationConfig) (marker string, limit int) {
	q := r.URL.Query()
	marker = q.Get("marker")

	limit = cfg.DefaultLimit
	if raw := q.Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if limit > cfg.MaxLimit {
		limit = cfg.MaxLimit
	}
	return marker, limit
}

// setNextBatchHeader sets X-Next-Batch to an absolute URL that repeats
// the current request with marker/limit replaced, when the listing was
// truncated.
func setNextBatchHeader(w http.ResponseWriter, r *http.Request, truncated bool, outMarker string, limit int) {
	if !truncated {
		return
	}

	u := *r.URL
	if u.Scheme == "" {
		u.Scheme = "http"
		if r.TLS != nil {
			u.Scheme = "https"
		}
	}
	if u.Host == "" {
		u.Host = r.Host
	}

	q := url.Values{}
	q.Set("marker", outMarker)
	q.Set("limit", strconv.Itoa(limit))
	u.RawQuery = q.Encode()

	w.Header().Set("X-Next-Batch", u.String())
}
