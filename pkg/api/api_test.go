package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	blockmemory "github.com/sujala/deuce/pkg/store/block/memory"
	metadatamemory "github.com/sujala/deuce/pkg/store/metadata/memory"
)

func newTestServer() *Server {
	deps := Deps{
		Metadata:   metadatamemory.New(nil),
		Blocks:     blockmemory.New(),
		Pagination: PaginationConfig{DefaultLimit: 100, MaxLimit: 1000},
	}
	return NewServer(APIConfig{Port: 0}, deps)
}

func doRequest(t *testing.T, srv *Server, method, path string, body []byte, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set(headerProject, "proj-1")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

const headerProject = "X-Project-Id"

func TestAPI_VaultLifecycle(t *testing.T) {
	srv := newTestServer()

	rec := doRequest(t, srv, http.MethodPut, "/v1.0/vaults/v1", nil, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doRequest(t, srv, http.MethodHead, "/v1.0/vaults/v1", nil, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "0", rec.Header().Get("X-Vault-File-Count"))

	rec = doRequest(t, srv, http.MethodHead, "/v1.0/vaults/missing", nil, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = doRequest(t, srv, http.MethodDelete, "/v1.0/vaults/v1", nil, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
}

func TestAPI_MissingProjectHeaderIsBadRequest(t *testing.T) {
	srv := newTestServer()
	req := httptest.NewRequest(http.MethodGet, "/v1.0/vaults", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

// TestAPI_HappyPathDedup walks spec round-trip scenario 2: upload a
// block, assign it to two files, finalize both, observe refcount 2,
// delete one file, observe refcount 1, then fail to unregister.
func TestAPI_HappyPathDedup(t *testing.T) {
	srv := newTestServer()

	require.Equal(t, http.StatusCreated, doRequest(t, srv, http.MethodPut, "/v1.0/vaults/v1", nil, nil).Code)

	blockBody := bytes.Repeat([]byte{'a'}, 100)
	rec := doRequest(t, srv, http.MethodPut, "/v1.0/vaults/v1/blocks/blockA", blockBody, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	require.NotEmpty(t, rec.Header().Get("X-Storage-Id"))

	rec = doRequest(t, srv, http.MethodPost, "/v1.0/vaults/v1/files", nil, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	f1 := rec.Header().Get("X-File-Id")
	require.NotEmpty(t, f1)

	rec = doRequest(t, srv, http.MethodPost, "/v1.0/vaults/v1/files", nil, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	f2 := rec.Header().Get("X-File-Id")

	assignBody := []byte(`{"blocks":[{"id":"blockA","offset":0}]}`)
	rec = doRequest(t, srv, http.MethodPost, "/v1.0/vaults/v1/files/"+f1, assignBody, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var missing []string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &missing))
	require.Empty(t, missing)

	rec = doRequest(t, srv, http.MethodPost, "/v1.0/vaults/v1/files/"+f1, nil, map[string]string{"X-File-Length": "100"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, srv, http.MethodPost, "/v1.0/vaults/v1/files/"+f2, assignBody, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = doRequest(t, srv, http.MethodPost, "/v1.0/vaults/v1/files/"+f2, nil, map[string]string{"X-File-Length": "100"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, srv, http.MethodHead, "/v1.0/vaults/v1/blocks/blockA", nil, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "2", rec.Header().Get("X-Block-Reference-Count"))

	rec = doRequest(t, srv, http.MethodGet, "/v1.0/vaults/v1/files/"+f1, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, bytes.Equal(blockBody, rec.Body.Bytes()))

	rec = doRequest(t, srv, http.MethodDelete, "/v1.0/vaults/v1/files/"+f1, nil, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doRequest(t, srv, http.MethodHead, "/v1.0/vaults/v1/blocks/blockA", nil, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "1", rec.Header().Get("X-Block-Reference-Count"))

	rec = doRequest(t, srv, http.MethodDelete, "/v1.0/vaults/v1/blocks/blockA", nil, nil)
	require.Equal(t, http.StatusConflict, rec.Code)
}

// TestAPI_LateRegistrationReporting walks spec round-trip scenario 5:
// assigning [X, Y, Z] while only Y is registered reports [X, Z].
func TestAPI_LateRegistrationReporting(t *testing.T) {
	srv := newTestServer()
	require.Equal(t, http.StatusCreated, doRequest(t, srv, http.MethodPut, "/v1.0/vaults/v1", nil, nil).Code)
	require.Equal(t, http.StatusCreated, doRequest(t, srv, http.MethodPut, "/v1.0/vaults/v1/blocks/Y", []byte("y"), nil).Code)

	rec := doRequest(t, srv, http.MethodPost, "/v1.0/vaults/v1/files", nil, nil)
	fileID := rec.Header().Get("X-File-Id")

	body := []byte(`{"blocks":[{"id":"X","offset":0},{"id":"Y","offset":1},{"id":"Z","offset":2}]}`)
	rec = doRequest(t, srv, http.MethodPost, "/v1.0/vaults/v1/files/"+fileID, body, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var missing []string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &missing))
	require.ElementsMatch(t, []string{"X", "Z"}, missing)
}

// TestAPI_FinalizeGapReturns413 walks spec round-trip scenario 3.
func TestAPI_FinalizeGapReturns413(t *testing.T) {
	srv := newTestServer()
	require.Equal(t, http.StatusCreated, doRequest(t, srv, http.MethodPut, "/v1.0/vaults/v1", nil, nil).Code)
	require.Equal(t, http.StatusCreated, doRequest(t, srv, http.MethodPut, "/v1.0/vaults/v1/blocks/A", bytes.Repeat([]byte{1}, 50), nil).Code)
	require.Equal(t, http.StatusCreated, doRequest(t, srv, http.MethodPut, "/v1.0/vaults/v1/blocks/B", bytes.Repeat([]byte{2}, 50), nil).Code)

	rec := doRequest(t, srv, http.MethodPost, "/v1.0/vaults/v1/files", nil, nil)
	fileID := rec.Header().Get("X-File-Id")

	body := []byte(`{"blocks":[{"id":"A","offset":0},{"id":"B","offset":60}]}`)
	require.Equal(t, http.StatusOK, doRequest(t, srv, http.MethodPost, "/v1.0/vaults/v1/files/"+fileID, body, nil).Code)

	rec = doRequest(t, srv, http.MethodPost, "/v1.0/vaults/v1/files/"+fileID, nil, map[string]string{"X-File-Length": "110"})
	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

// TestAPI_PaginationTruncation walks spec round-trip scenario 6.
func TestAPI_PaginationTruncation(t *testing.T) {
	srv := newTestServer()
	require.Equal(t, http.StatusCreated, doRequest(t, srv, http.MethodPut, "/v1.0/vaults/v1", nil, nil).Code)

	for i := 0; i < 15; i++ {
		require.Equal(t, http.StatusCreated, doRequest(t, srv, http.MethodPut, "/v1.0/vaults/v1/blocks/block-"+padded(i), []byte("x"), nil).Code)
	}

	rec := doRequest(t, srv, http.MethodGet, "/v1.0/vaults/v1/blocks?limit=10", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var ids []string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ids))
	require.Len(t, ids, 10)
	nextBatch := rec.Header().Get("X-Next-Batch")
	require.NotEmpty(t, nextBatch)

	parts := strings.SplitN(nextBatch, "/v1.0", 2)
	require.Len(t, parts, 2)
	rec = doRequest(t, srv, http.MethodGet, "/v1.0"+parts[1], nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Empty(t, rec.Header().Get("X-Next-Batch"))
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ids))
	require.Len(t, ids, 5)
}

func padded(i int) string {
	s := "0000" + itoa(i)
	return s[len(s)-5:]
}

func TestAPI_Home(t *testing.T) {
	srv := newTestServer()
	req := httptest.NewRequest(http.MethodGet, "/v1.0/", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "deuce")
}
