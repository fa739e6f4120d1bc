package index_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linchen0/tutorvault/internal/index"
	"github.com/linchen0/tutorvault/internal/log"
	"github.com/linchen0/tutorvault/internal/testutil"
	"github.com/linchen0/tutorvault/internal/vault"
)

func newGateway(t *testing.T, srv *testutil.IndexServer) *index.Gateway {
	t.Helper()
	client, err := index.NewClient(srv.URL(), "test-key", 5*time.Second)
	require.NoError(t, err)
	return index.NewGateway(client, log.NewNop())
}

func sampleDoc(t *testing.T) *vault.Document {
	t.Helper()

	paths, err := vault.NewPaths(t.TempDir())
	require.NoError(t, err)
	store := vault.NewStore(paths, log.NewNop())

	acc := 0.4
	ref, err := store.Save(context.Background(), vault.SaveRequest{
		Owner:    "Amy",
		Subject:  "Math",
		Category: vault.CategoryValidated,
		Title:    "Adding Fractions",
		Body:     "What is 1/2 + 1/4?",
		Metadata: vault.Metadata{
			Source:   "Photo Upload",
			Accuracy: &acc,
			Attempts: 5,
			Tags:     []string{"fractions"},
		},
	})
	require.NoError(t, err)

	doc, err := store.Read(context.Background(), ref)
	require.NoError(t, err)
	return doc
}

func TestWorkspaceSlug(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "amy-chen_math_homework", index.WorkspaceSlug("Amy Chen", "Math", "homework"))
	assert.Equal(t, "amy-chen_textbooks", index.WorkspaceSlug("Amy Chen", "", "textbooks"))

	// Deterministic: the slug is the idempotency key for creation.
	assert.Equal(t,
		index.WorkspaceSlug("Amy Chen", "Math", "homework"),
		index.WorkspaceSlug("Amy Chen", "Math", "homework"))
}

func TestEnsureWorkspace_CreatesOnDemand(t *testing.T) {
	t.Parallel()

	srv := testutil.NewIndexServer()
	defer srv.Close()
	g := newGateway(t, srv)

	ws, err := g.EnsureWorkspace(context.Background(), "amy_math_homework", "Amy - Math")
	require.NoError(t, err)
	assert.Equal(t, "amy_math_homework", ws.Slug)
	assert.Equal(t, map[string]string{"amy_math_homework": "Amy - Math"}, srv.Workspaces())

	// Second call finds the existing workspace, no second create.
	_, err = g.EnsureWorkspace(context.Background(), "amy_math_homework", "Amy - Math")
	require.NoError(t, err)
	assert.Equal(t, 1, srv.CreateCalls())
}

func TestEnsureWorkspace_ConcurrentCallers(t *testing.T) {
	t.Parallel()

	srv := testutil.NewIndexServer()
	defer srv.Close()
	g := newGateway(t, srv)

	// Two concurrent callers with the same slug: exactly one workspace
	// exists afterwards and neither caller sees an error.
	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = g.EnsureWorkspace(context.Background(), "shared_slug", "Shared")
		}()
	}
	wg.Wait()

	assert.NoError(t, errs[0])
	assert.NoError(t, errs[1])
	assert.Len(t, srv.Workspaces(), 1)
}

func TestPushFull(t *testing.T) {
	t.Parallel()

	srv := testutil.NewIndexServer()
	defer srv.Close()
	srv.SeedWorkspace("amy_math_homework", "Amy - Math")
	g := newGateway(t, srv)
	doc := sampleDoc(t)

	res, err := g.PushFull(context.Background(), "amy_math_homework", doc)
	require.NoError(t, err)
	assert.Equal(t, index.StatusEmbedded, res.Status)
	assert.False(t, res.IndexOnly)
	assert.NotEmpty(t, res.DocumentName)

	uploads := srv.Uploads()
	require.Len(t, uploads, 1)
	assert.Equal(t, "adding-fractions.md", uploads[0].Filename)
	assert.Equal(t, doc.Body, uploads[0].Content, "full push uploads the whole body")
	assert.Equal(t, []string{res.DocumentName}, srv.Embedded("amy_math_homework"))
}

func TestPushIndexOnly(t *testing.T) {
	t.Parallel()

	srv := testutil.NewIndexServer()
	defer srv.Close()
	srv.SeedWorkspace("amy_math_homework", "Amy - Math")
	g := newGateway(t, srv)
	doc := sampleDoc(t)

	res, err := g.PushIndexOnly(context.Background(), "amy_math_homework", doc)
	require.NoError(t, err)
	assert.Equal(t, index.StatusIndexCreated, res.Status)
	assert.True(t, res.IndexOnly)

	uploads := srv.Uploads()
	require.Len(t, uploads, 1)

	// The pointer doc references the authoritative file, not its content.
	assert.NotContains(t, uploads[0].Content, doc.Body)
	assert.Contains(t, uploads[0].Content, doc.Ref.Path())
	assert.Contains(t, uploads[0].Content, doc.Metadata.ID.String())
	assert.Contains(t, uploads[0].Metadata, "is_index_only")

	// Index-only uploads are never embedded.
	assert.Empty(t, srv.Embedded("amy_math_homework"))
}

func TestPush_ServiceDown(t *testing.T) {
	t.Parallel()

	client, err := index.NewClient("http://127.0.0.1:1", "", 500*time.Millisecond)
	require.NoError(t, err)
	g := index.NewGateway(client, log.NewNop())

	res, err := g.PushFull(context.Background(), "ws", sampleDoc(t))
	assert.ErrorIs(t, err, index.ErrServiceUnavailable)
	assert.Equal(t, index.StatusFailed, res.Status)
}

func TestQuery_AndRetrieveContext(t *testing.T) {
	t.Parallel()

	srv := testutil.NewIndexServer()
	defer srv.Close()
	srv.SeedWorkspace("ws", "WS")
	score := 0.87
	srv.QueryResponse = map[string]any{
		"textResponse": "",
		"sources": []map[string]any{
			{"text": "fractions are parts of a whole", "score": score},
			{"text": "common denominators first"},
		},
	}
	g := newGateway(t, srv)

	result, err := g.Query(context.Background(), "ws", "how do I add fractions", 3)
	require.NoError(t, err)
	require.Len(t, result.Sources, 2)
	require.NotNil(t, result.Sources[0].Score)
	assert.InDelta(t, score, *result.Sources[0].Score, 1e-9)

	// With no direct text response, context is the joined source texts.
	ctxText, err := g.RetrieveContext(context.Background(), "ws", "how do I add fractions", 3)
	require.NoError(t, err)
	assert.Equal(t, "fractions are parts of a whole\n\ncommon denominators first", ctxText)
}

func TestQuery_WorkspaceMissing(t *testing.T) {
	t.Parallel()

	srv := testutil.NewIndexServer()
	defer srv.Close()
	g := newGateway(t, srv)

	_, err := g.Query(context.Background(), "ghost", "q", 3)
	assert.ErrorIs(t, err, index.ErrWorkspaceNotFound)
}

func TestRemove(t *testing.T) {
	t.Parallel()

	srv := testutil.NewIndexServer()
	defer srv.Close()
	srv.SeedWorkspace("ws", "WS")
	g := newGateway(t, srv)
	doc := sampleDoc(t)

	res, err := g.PushFull(context.Background(), "ws", doc)
	require.NoError(t, err)
	require.NoError(t, g.Remove(context.Background(), "ws", res.DocumentName))
	assert.Empty(t, srv.Embedded("ws"))
}

func TestBatchPush_PartialFailure(t *testing.T) {
	t.Parallel()

	srv := testutil.NewIndexServer()
	defer srv.Close()
	srv.SeedWorkspace("ws", "WS")
	srv.FailUploads = 1
	g := newGateway(t, srv)

	docs := []vault.Document{*sampleDoc(t), *sampleDoc(t), *sampleDoc(t)}
	results := g.BatchPush(context.Background(), "ws", docs, false)
	require.Len(t, results, 3)

	var failed, succeeded int
	for _, r := range results {
		if r.Err != nil {
			failed++
			assert.Equal(t, index.StatusFailed, r.Result.Status)
		} else {
			succeeded++
			assert.Equal(t, index.StatusIndexCreated, r.Result.Status)
		}
	}
	assert.Equal(t, 1, failed, "exactly the failing item fails")
	assert.Equal(t, 2, succeeded, "sibling items are unaffected")
}

func TestPing(t *testing.T) {
	t.Parallel()

	srv := testutil.NewIndexServer()
	defer srv.Close()
	g := newGateway(t, srv)
	require.NoError(t, g.Ping(context.Background()))
}
