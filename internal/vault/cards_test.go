package vault

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateKnowledgeCard(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	ref, err := s.CreateKnowledgeCard(ctx, CardRequest{
		Owner:           "Amy",
		Subject:         "Math",
		KnowledgePoint:  "Common Denominators",
		Explanation:     "To add fractions, rewrite them over the same denominator.",
		Examples:        []string{"1/2 + 1/4 = 3/4", "1/3 + 1/6 = 1/2"},
		RelatedProblems: []string{"adding-fractions"},
		Metadata:        Metadata{Source: "Generated", Tags: []string{"fractions"}},
	})
	require.NoError(t, err)

	doc, err := s.Read(ctx, ref)
	require.NoError(t, err)

	assert.Contains(t, doc.Body, "# Common Denominators")
	assert.Contains(t, doc.Body, "## Core Concept")
	assert.Contains(t, doc.Body, "### Example 1")
	assert.Contains(t, doc.Body, "### Example 2")
	assert.Contains(t, doc.Body, "- [[adding-fractions]]")
	assert.Contains(t, doc.Metadata.RelatedKnowledgePoints, "Common Denominators")
	assert.Contains(t, ref.Path(), "Cards")
}

func TestCreateKnowledgeCard_EmptyPoint(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	_, err := s.CreateKnowledgeCard(context.Background(), CardRequest{Owner: "Amy", Subject: "Math"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestKnowledgeCards_TagFilter(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	mk := func(point string, tags []string) {
		_, err := s.CreateKnowledgeCard(ctx, CardRequest{
			Owner: "Amy", Subject: "Math",
			KnowledgePoint: point,
			Metadata:       Metadata{Tags: tags},
		})
		require.NoError(t, err)
	}
	mk("Fractions", []string{"fractions", "arithmetic"})
	mk("Decimals", []string{"decimals"})
	mk("Percentages", []string{"decimals", "fractions"})

	all, err := s.KnowledgeCards(ctx, "Amy", "Math", nil)
	require.NoError(t, err)
	assert.Len(t, all.Documents, 3)

	// Any-tag match.
	some, err := s.KnowledgeCards(ctx, "Amy", "Math", []string{"fractions"})
	require.NoError(t, err)
	assert.Len(t, some.Documents, 2)

	none, err := s.KnowledgeCards(ctx, "Amy", "Math", []string{"geometry"})
	require.NoError(t, err)
	assert.Empty(t, none.Documents)
}
