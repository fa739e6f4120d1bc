package vault

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatistics(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	acc := func(v float64) *float64 { return &v }

	save := func(category Category, title string, meta Metadata) {
		_, err := s.Save(ctx, SaveRequest{
			Owner: "Amy", Subject: "Math", Category: category,
			Title: title, Body: "b", Metadata: meta,
		})
		require.NoError(t, err)
	}

	save(CategoryValidated, "v1", Metadata{Difficulty: 2, Accuracy: acc(1.0), Attempts: 1})
	save(CategoryValidated, "v2", Metadata{Difficulty: 3})
	save(CategoryReview, "r1", Metadata{Difficulty: 5, Accuracy: acc(0.0), Attempts: 2})
	save(CategoryCards, "c1", Metadata{Difficulty: 3})

	stats, err := s.Statistics(ctx, "Amy", "Math")
	require.NoError(t, err)

	assert.Equal(t, 2, stats.ValidatedProblems)
	assert.Equal(t, 1, stats.ReviewProblems)
	assert.Equal(t, 1, stats.KnowledgeCards)
	assert.Equal(t, 0, stats.Lessons)
	assert.Equal(t, 0, stats.Skipped)

	// Mean accuracy counts only attempted documents: (1.0 + 0.0) / 2.
	assert.InDelta(t, 0.5, stats.AverageAccuracy, 1e-9)

	assert.Equal(t, 1, stats.DifficultyDistribution[2])
	assert.Equal(t, 2, stats.DifficultyDistribution[3])
	assert.Equal(t, 1, stats.DifficultyDistribution[5])
}

func TestStatistics_EmptySubject(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	stats, err := s.Statistics(context.Background(), "Amy", "History")
	require.NoError(t, err)
	assert.Zero(t, stats.ValidatedProblems)
	assert.Zero(t, stats.AverageAccuracy)
}

func TestEnsureStructure(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	require.NoError(t, s.Paths().EnsureStructure("Ben", []string{"Math", "English"}))

	for _, subject := range []string{"Math", "English"} {
		for _, category := range Categories() {
			dir, err := s.Paths().Resolve("Ben", subject, category)
			require.NoError(t, err)
			assert.DirExists(t, dir)
		}
	}
}
