package vault

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecode_RoundTrip(t *testing.T) {
	t.Parallel()

	acc := 0.75
	now := time.Now().UTC().Truncate(time.Millisecond)
	meta := Metadata{
		ID:                     uuid.New(),
		Source:                 "Photo Upload",
		Difficulty:             4,
		Accuracy:               &acc,
		Attempts:               4,
		Tags:                   []string{"fractions", "homework"},
		RelatedKnowledgePoints: []string{"common denominators"},
		LastModified:           now,
		LastAttempted:          now,
		Extra:                  map[string]any{"ocr_confidence": 0.9},
	}
	body := "# Problem\n\nWhat is 1/2 + 1/4?\n"

	data, err := encodeDocument(&meta, body)
	require.NoError(t, err)

	got, gotBody, err := decodeDocument(data)
	require.NoError(t, err)

	assert.Equal(t, body, gotBody)
	assert.Equal(t, meta.ID, got.ID)
	assert.Equal(t, meta.Source, got.Source)
	assert.Equal(t, meta.Difficulty, got.Difficulty)
	require.NotNil(t, got.Accuracy)
	assert.InDelta(t, acc, *got.Accuracy, 1e-9)
	assert.Equal(t, meta.Attempts, got.Attempts)
	assert.Equal(t, meta.Tags, got.Tags)
	assert.Equal(t, meta.RelatedKnowledgePoints, got.RelatedKnowledgePoints)
	assert.True(t, got.LastModified.Equal(now))
	assert.True(t, got.LastAttempted.Equal(now))
	assert.Equal(t, 0.9, got.Extra["ocr_confidence"])
}

func TestEncode_HumanReadable(t *testing.T) {
	t.Parallel()

	meta := Metadata{Source: "Photo Upload", Difficulty: 3, Tags: []string{}}
	meta.Normalize(time.Now().UTC())

	data, err := encodeDocument(&meta, "body text")
	require.NoError(t, err)

	text := string(data)
	assert.True(t, strings.HasPrefix(text, "---\n"))
	assert.Contains(t, text, "source: Photo Upload")
	assert.Contains(t, text, "difficulty: 3")
	assert.True(t, strings.HasSuffix(text, "---\nbody text"))
}

func TestEncode_OmitsAbsentFields(t *testing.T) {
	t.Parallel()

	meta := Metadata{Source: "x"}
	meta.Normalize(time.Now().UTC())

	data, err := encodeDocument(&meta, "")
	require.NoError(t, err)

	assert.NotContains(t, string(data), "accuracy:")
	assert.NotContains(t, string(data), "last_attempted:")
	assert.NotContains(t, string(data), "moved_to_review:")
}

func TestDecode_BodyOnlyFile(t *testing.T) {
	t.Parallel()

	// Files created by hand, without frontmatter, stay readable.
	meta, body, err := decodeDocument([]byte("# Just markdown\n"))
	require.NoError(t, err)
	assert.Equal(t, "# Just markdown\n", body)
	assert.Equal(t, uuid.Nil, meta.ID)
}

func TestDecode_Unterminated(t *testing.T) {
	t.Parallel()

	_, _, err := decodeDocument([]byte("---\nsource: x\n"))
	assert.Error(t, err)
}

func TestDecode_BadYAML(t *testing.T) {
	t.Parallel()

	_, _, err := decodeDocument([]byte("---\n\t{bad\n---\nbody"))
	assert.Error(t, err)
}
