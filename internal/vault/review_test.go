package vault

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMoveToReview_OriginalUntouched(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	ref := saveDoc(t, s, "Tricky Problem", Metadata{Source: "Photo Upload"})
	originalBytes, err := os.ReadFile(ref.Path())
	require.NoError(t, err)

	reviewRef, err := s.MoveToReview(ctx, ref, "Amy", "Math", "x = 7", "sign error")
	require.NoError(t, err)
	assert.NotEqual(t, ref.Path(), reviewRef.Path())

	// Byte-for-byte: the source document was never mutated.
	afterBytes, err := os.ReadFile(ref.Path())
	require.NoError(t, err)
	assert.Equal(t, originalBytes, afterBytes)
}

func TestMoveToReview_AppendsOneErrorRecord(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	ref := saveDoc(t, s, "Tricky Problem", Metadata{})
	original, err := s.Read(ctx, ref)
	require.NoError(t, err)

	reviewRef, err := s.MoveToReview(ctx, ref, "Amy", "Math", "x = 7", "sign error")
	require.NoError(t, err)

	review, err := s.Read(ctx, reviewRef)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(review.Body, original.Body),
		"review body starts with the original body")
	assert.Equal(t, 1, strings.Count(review.Body, "## Error Record"))
	assert.Contains(t, review.Body, "**Student Answer:** x = 7")
	assert.Contains(t, review.Body, "**Reason:** sign error")
	assert.False(t, review.Metadata.MovedToReview.IsZero())
	assert.Equal(t, original.Metadata.ID, review.Metadata.ID,
		"review copy keeps the stable document id")

	// Lands in the Review folder.
	assert.Contains(t, reviewRef.Path(), "Review")
}

func TestMoveToReview_ReasonOptional(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	ref := saveDoc(t, s, "No Reason", Metadata{})
	reviewRef, err := s.MoveToReview(ctx, ref, "Amy", "Math", "answer", "")
	require.NoError(t, err)

	review, err := s.Read(ctx, reviewRef)
	require.NoError(t, err)
	assert.NotContains(t, review.Body, "**Reason:**")
}

func TestMoveToReview_RepeatAppendsNotRebuilds(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	ref := saveDoc(t, s, "Repeat Offender", Metadata{})

	first, err := s.MoveToReview(ctx, ref, "Amy", "Math", "wrong once", "")
	require.NoError(t, err)
	second, err := s.MoveToReview(ctx, ref, "Amy", "Math", "wrong twice", "")
	require.NoError(t, err)

	assert.Equal(t, first.Path(), second.Path(), "same review copy is reused")

	review, err := s.Read(ctx, second)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(review.Body, "## Error Record"),
		"prior error records are never edited, only appended")
	assert.Contains(t, review.Body, "wrong once")
	assert.Contains(t, review.Body, "wrong twice")
}

func TestMoveToReview_MissingSource(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	_, err := s.MoveToReview(context.Background(), NewRef(s.Paths().Root()+"/ghost.md"), "Amy", "Math", "a", "")
	assert.ErrorIs(t, err, ErrNotFound)
}
