package security

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeSegment(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "Amy", "Amy"},
		{"spaces preserved inside", "Amy Chen", "Amy Chen"},
		{"separators replaced", "a/b\\c", "a_b_c"},
		{"traversal neutralized", "../../etc", "_.._etc"},
		{"dots trimmed", "..", ""},
		{"reserved chars", `ma:th?`, "ma_th_"},
		{"unicode kept", "数学", "数学"},
		{"surrounding noise", "  .Math.  ", "Math"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := SanitizeSegment(tt.in)
			if tt.want == "" {
				assert.ErrorIs(t, err, ErrEmptySegment)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			// A sanitized segment must never change the directory depth.
			assert.Equal(t, got, filepath.Base(filepath.Join("x", got)))
		})
	}
}

func TestSanitizeSegment_Length(t *testing.T) {
	t.Parallel()

	long := make([]byte, 500)
	for i := range long {
		long[i] = 'a'
	}
	got, err := SanitizeSegment(string(long))
	require.NoError(t, err)
	assert.Len(t, got, MaxSegmentLength)
}

func TestPathValidator(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	v, err := NewPathValidator(root)
	require.NoError(t, err)

	inside, err := v.Validate(filepath.Join(root, "Amy", "Math"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(v.Root(), "Amy", "Math"), inside)

	// The root itself is valid.
	_, err = v.Validate(root)
	require.NoError(t, err)

	// Escapes are rejected even when they start under the root.
	_, err = v.Validate(filepath.Join(root, "..", "elsewhere"))
	assert.ErrorIs(t, err, ErrOutsideRoot)

	_, err = v.Validate("/etc/passwd")
	assert.ErrorIs(t, err, ErrOutsideRoot)
}
