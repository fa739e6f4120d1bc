package vault

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize_Defaults(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	var m Metadata
	m.Normalize(now)

	assert.NotEqual(t, uuid.Nil, m.ID)
	assert.Equal(t, "Unknown", m.Source)
	assert.Equal(t, DefaultDifficulty, m.Difficulty)
	assert.Nil(t, m.Accuracy)
	assert.Equal(t, 0, m.Attempts)
	assert.NotNil(t, m.Tags)
	assert.NotNil(t, m.RelatedKnowledgePoints)
	assert.Equal(t, now, m.LastModified)
}

func TestNormalize_ClampsDifficulty(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in, want int
	}{
		{7, 5},
		{-1, 1},
		{0, 3}, // unset → default
		{1, 1},
		{5, 5},
	}
	for _, tt := range tests {
		m := Metadata{Difficulty: tt.in}
		m.Normalize(time.Now())
		assert.Equal(t, tt.want, m.Difficulty, "difficulty %d", tt.in)
	}
}

func TestNormalize_KeepsExistingID(t *testing.T) {
	t.Parallel()

	id := uuid.New()
	m := Metadata{ID: id}
	m.Normalize(time.Now())
	assert.Equal(t, id, m.ID)
}

func TestApplyGradingOutcome_FirstAttempt(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	var m Metadata
	m.ApplyGradingOutcome(true, now)

	require.NotNil(t, m.Accuracy)
	assert.Equal(t, 1.0, *m.Accuracy)
	assert.Equal(t, 1, m.Attempts)
	assert.Equal(t, now, m.LastAttempted)
	assert.Equal(t, now, m.LastModified)

	var wrong Metadata
	wrong.ApplyGradingOutcome(false, now)
	require.NotNil(t, wrong.Accuracy)
	assert.Equal(t, 0.0, *wrong.Accuracy)
}

func TestApplyGradingOutcome_RunningMean(t *testing.T) {
	t.Parallel()

	// Three outcomes true, false, true → accuracy 2/3, attempts 3.
	var m Metadata
	for _, correct := range []bool{true, false, true} {
		m.ApplyGradingOutcome(correct, time.Now().UTC())
	}

	require.NotNil(t, m.Accuracy)
	assert.InDelta(t, 2.0/3.0, *m.Accuracy, 1e-9)
	assert.Equal(t, 3, m.Attempts)
}

func TestApplyGradingOutcome_MeanOverAnySequence(t *testing.T) {
	t.Parallel()

	outcomes := []bool{false, false, true, false, true, true, true, false, true, true}

	var m Metadata
	correct := 0
	for _, o := range outcomes {
		m.ApplyGradingOutcome(o, time.Now().UTC())
		if o {
			correct++
		}
	}

	require.NotNil(t, m.Accuracy)
	assert.InDelta(t, float64(correct)/float64(len(outcomes)), *m.Accuracy, 1e-9)
	assert.Equal(t, len(outcomes), m.Attempts)
}

func TestMerge_KnownAndUnknownKeys(t *testing.T) {
	t.Parallel()

	m := Metadata{Source: "Photo Upload", Difficulty: 3}
	err := m.Merge(map[string]any{
		"difficulty":     9,
		"tags":           []any{"fractions", "review"},
		"ocr_confidence": 0.93,
	})
	require.NoError(t, err)

	assert.Equal(t, 5, m.Difficulty, "merged difficulty is clamped")
	assert.Equal(t, []string{"fractions", "review"}, m.Tags)
	assert.Equal(t, 0.93, m.Extra["ocr_confidence"])
	assert.Equal(t, "Photo Upload", m.Source, "untouched fields survive")
}

func TestMerge_Associative(t *testing.T) {
	t.Parallel()

	// {a} then {b} must equal a single {a,b} merge.
	var stepwise, single Metadata

	require.NoError(t, stepwise.Merge(map[string]any{"source": "Teacher"}))
	require.NoError(t, stepwise.Merge(map[string]any{"difficulty": 4}))

	require.NoError(t, single.Merge(map[string]any{"source": "Teacher", "difficulty": 4}))

	assert.Equal(t, single, stepwise)
}

func TestMerge_InvalidValues(t *testing.T) {
	t.Parallel()

	var m Metadata
	assert.ErrorIs(t, m.Merge(map[string]any{"attempts": -2}), ErrInvalidInput)
	assert.ErrorIs(t, m.Merge(map[string]any{"source": 42}), ErrInvalidInput)
	assert.ErrorIs(t, m.Merge(map[string]any{"accuracy": "high"}), ErrInvalidInput)
}

func TestMerge_AccuracyReset(t *testing.T) {
	t.Parallel()

	acc := 0.5
	m := Metadata{Accuracy: &acc}
	require.NoError(t, m.Merge(map[string]any{"accuracy": nil}))
	assert.Nil(t, m.Accuracy)
}

func TestMatchesFilter(t *testing.T) {
	t.Parallel()

	m := Metadata{Source: "Photo Upload", Difficulty: 4}
	m.Normalize(time.Now())

	assert.True(t, m.MatchesFilter(nil))
	assert.True(t, m.MatchesFilter(map[string]any{"source": "Photo Upload"}))
	assert.True(t, m.MatchesFilter(map[string]any{"difficulty": 4}))
	assert.False(t, m.MatchesFilter(map[string]any{"difficulty": 2}))
	assert.False(t, m.MatchesFilter(map[string]any{"missing": "x"}))
}
