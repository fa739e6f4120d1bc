// Package security provides input hardening for filesystem paths.
//
// Owner and subject names arrive as free text from callers; they become
// directory names inside the vault. This package turns them into safe path
// segments and confines every resolved path to the vault root, preventing
// path traversal (CWE-22).
package security

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"unicode"
)

// MaxSegmentLength caps a single path segment. Matches common filesystem
// name limits with headroom for the slug suffix.
const MaxSegmentLength = 128

var (
	// ErrEmptySegment is returned when sanitization leaves nothing usable.
	ErrEmptySegment = errors.New("empty path segment")

	// ErrOutsideRoot is returned when a path escapes the configured root.
	ErrOutsideRoot = errors.New("path outside vault root")
)

// SanitizeSegment converts free-text input into a safe single path segment.
// Path separators, control characters, and characters with special meaning
// on common filesystems are replaced with underscores; surrounding
// whitespace and dots are trimmed so "..", ".hidden" and trailing-dot names
// cannot occur.
func SanitizeSegment(name string) (string, error) {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r == '/' || r == '\\' || r == '\x00':
			b.WriteRune('_')
		case strings.ContainsRune(`<>:"|?*`, r):
			b.WriteRune('_')
		case unicode.IsControl(r):
			// drop
		default:
			b.WriteRune(r)
		}
	}

	s := strings.TrimSpace(b.String())
	s = strings.Trim(s, ".")
	s = strings.TrimSpace(s)

	if s == "" {
		return "", fmt.Errorf("%w: %q", ErrEmptySegment, name)
	}
	if len(s) > MaxSegmentLength {
		s = s[:MaxSegmentLength]
	}
	return s, nil
}

// PathValidator confines paths to a single root directory.
type PathValidator struct {
	root string
}

// NewPathValidator creates a validator rooted at root.
func NewPathValidator(root string) (*PathValidator, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving root %s: %w", root, err)
	}
	return &PathValidator{root: filepath.Clean(abs)}, nil
}

// Root returns the absolute root directory.
func (v *PathValidator) Root() string {
	return v.root
}

// Validate cleans path and verifies it lies within the root.
// Returns the cleaned absolute path or ErrOutsideRoot.
func (v *PathValidator) Validate(path string) (string, error) {
	abs, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return "", fmt.Errorf("invalid path: %w", err)
	}

	rootWithSep := v.root + string(filepath.Separator)
	if abs != v.root && !strings.HasPrefix(abs+string(filepath.Separator), rootWithSep) {
		return "", fmt.Errorf("%w: %s", ErrOutsideRoot, abs)
	}
	return abs, nil
}
