package api

import "net/http"

// homeDocument is the payload returned by GET /v1.0 (§12.2, grounded
// on the original's home.py resource). It exists so external tooling
// can probe the API's presence and version without per-vault auth.
type homeDocument struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

func home(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, homeDocument{Name: "deuce", Version: "1.0"})
}
