package api_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linchen0/tutorvault/api"
	"github.com/linchen0/tutorvault/internal/vault"
)

func TestDocuments_SaveAndRead(t *testing.T) {
	t.Parallel()

	e := newEnv(t, api.Options{})
	saved := e.saveDocument(t, "Adding Fractions")
	assert.Equal(t, "adding-fractions", saved.Slug)
	assert.False(t, saved.IndexQueued)

	var doc api.DocumentResponse
	status := e.do(t, http.MethodGet, docPath(saved.Slug), nil, &doc)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "What is 1/2 + 1/4?", doc.Body)
	assert.Equal(t, 2, doc.Metadata.Difficulty)
	assert.Equal(t, []string{"fractions"}, doc.Metadata.Tags)
}

func TestDocuments_SaveInvalidCategory(t *testing.T) {
	t.Parallel()

	e := newEnv(t, api.Options{})
	var errResp api.ErrorResponse
	status := e.do(t, http.MethodPost, "/api/documents", api.SaveDocumentRequest{
		Owner:    "Amy",
		Subject:  "Math",
		Category: "nonsense",
		Title:    "t",
	}, &errResp)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "invalid_input", errResp.Error)
}

func TestDocuments_ReadMissing(t *testing.T) {
	t.Parallel()

	e := newEnv(t, api.Options{})
	status := e.do(t, http.MethodGet, docPath("no-such-doc"), nil, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestDocuments_UpdateMetadataAndGrade(t *testing.T) {
	t.Parallel()

	e := newEnv(t, api.Options{})
	saved := e.saveDocument(t, "Adding Fractions")

	var doc api.DocumentResponse
	status := e.do(t, http.MethodPatch, docPath(saved.Slug)+"/metadata",
		map[string]any{"difficulty": 5}, &doc)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 5, doc.Metadata.Difficulty)

	status = e.do(t, http.MethodPost, docPath(saved.Slug)+"/grade",
		api.GradeRequest{Correct: true}, &doc)
	require.Equal(t, http.StatusOK, status)
	require.NotNil(t, doc.Metadata.Accuracy)
	assert.InDelta(t, 1.0, *doc.Metadata.Accuracy, 1e-9)
	assert.Equal(t, 1, doc.Metadata.Attempts)
}

func TestDocuments_ReviewFlow(t *testing.T) {
	t.Parallel()

	e := newEnv(t, api.Options{})
	saved := e.saveDocument(t, "Adding Fractions")

	var review struct {
		Path string `json:"path"`
		Slug string `json:"slug"`
	}
	status := e.do(t, http.MethodPost, docPath(saved.Slug)+"/review",
		api.ReviewRequest{StudentAnswer: "2/6", Reason: "added denominators"}, &review)
	require.Equal(t, http.StatusOK, status)
	assert.NotEmpty(t, review.Path)

	var listed struct {
		Total int `json:"total"`
	}
	status = e.do(t, http.MethodGet, "/api/documents/Amy/Math/"+string(vault.CategoryReview), nil, &listed)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 1, listed.Total)
}

func TestDocuments_DeleteIsIdempotent(t *testing.T) {
	t.Parallel()

	e := newEnv(t, api.Options{})
	saved := e.saveDocument(t, "Adding Fractions")

	assert.Equal(t, http.StatusNoContent, e.do(t, http.MethodDelete, docPath(saved.Slug), nil, nil))
	assert.Equal(t, http.StatusNoContent, e.do(t, http.MethodDelete, docPath(saved.Slug), nil, nil))
	assert.Equal(t, http.StatusNotFound, e.do(t, http.MethodGet, docPath(saved.Slug), nil, nil))
}

func TestWeakest(t *testing.T) {
	t.Parallel()

	e := newEnv(t, api.Options{})

	// Two graded documents with different outcomes.
	weak := e.saveDocument(t, "Weak Topic")
	strong := e.saveDocument(t, "Strong Topic")
	require.Equal(t, http.StatusOK,
		e.do(t, http.MethodPost, docPath(weak.Slug)+"/grade", api.GradeRequest{Correct: false}, nil))
	require.Equal(t, http.StatusOK,
		e.do(t, http.MethodPost, docPath(strong.Slug)+"/grade", api.GradeRequest{Correct: true}, nil))

	var resp struct {
		Documents []api.DocumentResponse `json:"documents"`
		Total     int                    `json:"total"`
	}
	status := e.do(t, http.MethodGet,
		"/api/weakest?owner=Amy&subject=Math&category="+string(vault.CategoryValidated), nil, &resp)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, 2, resp.Total)
	assert.Equal(t, "weak-topic", resp.Documents[0].Slug, "lowest accuracy first")
}

func TestStats(t *testing.T) {
	t.Parallel()

	e := newEnv(t, api.Options{})
	e.saveDocument(t, "Adding Fractions")

	var stats vault.Statistics
	status := e.do(t, http.MethodGet, "/api/stats?owner=Amy&subject=Math", nil, &stats)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 1, stats.ValidatedProblems)
}

func TestCards(t *testing.T) {
	t.Parallel()

	e := newEnv(t, api.Options{})

	var created struct {
		Slug string `json:"slug"`
	}
	status := e.do(t, http.MethodPost, "/api/cards", api.CreateCardRequest{
		Owner:          "Amy",
		Subject:        "Math",
		KnowledgePoint: "Common Denominators",
		Explanation:    "To add fractions, first rewrite them over a common denominator.",
		Examples:       []string{"1/2 + 1/4 = 2/4 + 1/4 = 3/4"},
		Metadata:       map[string]any{"tags": []string{"fractions"}},
	}, &created)
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "common-denominators", created.Slug)

	var listed struct {
		Cards []api.DocumentResponse `json:"cards"`
		Total int                    `json:"total"`
	}
	status = e.do(t, http.MethodGet, "/api/cards?owner=Amy&subject=Math&tags=fractions", nil, &listed)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, 1, listed.Total)
	assert.Contains(t, listed.Cards[0].Body, "Common Denominators")

	status = e.do(t, http.MethodGet, "/api/cards?owner=Amy&subject=Math&tags=geometry", nil, &listed)
	require.Equal(t, http.StatusOK, status)
	assert.Zero(t, listed.Total)
}

func TestHealth(t *testing.T) {
	t.Parallel()

	e := newEnv(t, api.Options{})
	assert.Equal(t, http.StatusOK, e.do(t, http.MethodGet, "/health", nil, nil))
	assert.Equal(t, http.StatusOK, e.do(t, http.MethodGet, "/ready", nil, nil))
}

func TestRateLimit(t *testing.T) {
	t.Parallel()

	e := newEnv(t, api.Options{RateLimitRPS: 0.001, RateLimitBurst: 2})

	assert.Equal(t, http.StatusOK, e.do(t, http.MethodGet, "/health", nil, nil))
	assert.Equal(t, http.StatusOK, e.do(t, http.MethodGet, "/health", nil, nil))

	var errResp api.ErrorResponse
	status := e.do(t, http.MethodGet, "/health", nil, &errResp)
	assert.Equal(t, http.StatusTooManyRequests, status)
	assert.Equal(t, "rate_limited", errResp.Error)
}
