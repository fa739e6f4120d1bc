package api_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/linchen0/tutorvault/api"
	"github.com/linchen0/tutorvault/internal/assess"
	"github.com/linchen0/tutorvault/internal/index"
	"github.com/linchen0/tutorvault/internal/log"
	"github.com/linchen0/tutorvault/internal/testutil"
	"github.com/linchen0/tutorvault/internal/vault"
)

// env bundles a running API server with its collaborators.
type env struct {
	srv      *httptest.Server
	store    *vault.Store
	indexSrv *testutil.IndexServer
}

func newEnv(t *testing.T, opts api.Options) *env {
	t.Helper()

	paths, err := vault.NewPaths(t.TempDir())
	require.NoError(t, err)
	store := vault.NewStore(paths, log.NewNop())

	indexSrv := testutil.NewIndexServer()
	t.Cleanup(indexSrv.Close)

	client, err := index.NewClient(indexSrv.URL(), "", 5*time.Second)
	require.NoError(t, err)
	gateway := index.NewGateway(client, log.NewNop())

	server := api.NewServer(store, gateway, nil, assess.NewMemoryStore(), log.NewNop(), opts)
	srv := httptest.NewServer(server.Handler())
	t.Cleanup(srv.Close)

	return &env{srv: srv, store: store, indexSrv: indexSrv}
}

func newLocalServer(t *testing.T, server *api.Server) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(server.Handler())
	t.Cleanup(srv.Close)
	return srv
}

// do sends a JSON request and decodes the JSON response into out (when
// non-nil), returning the status code.
func (e *env) do(t *testing.T, method, path string, body, out any) int {
	t.Helper()

	var reqBody io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reqBody = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, e.srv.URL+path, reqBody)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func (e *env) saveDocument(t *testing.T, title string) api.SaveDocumentResponse {
	t.Helper()

	var saved api.SaveDocumentResponse
	status := e.do(t, http.MethodPost, "/api/documents", api.SaveDocumentRequest{
		Owner:    "Amy",
		Subject:  "Math",
		Category: string(vault.CategoryValidated),
		Title:    title,
		Body:     "What is 1/2 + 1/4?",
		Metadata: map[string]any{"difficulty": 2, "tags": []string{"fractions"}},
	}, &saved)
	require.Equal(t, http.StatusCreated, status)
	return saved
}

func docPath(slug string) string {
	return fmt.Sprintf("/api/documents/Amy/Math/%s/%s", vault.CategoryValidated, slug)
}
