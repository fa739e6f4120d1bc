package vault

import (
	"path/filepath"
	"strings"
)

// Ref is an opaque, stable handle to a stored document. A Ref remains valid
// until the document is deleted; callers should treat its contents as
// meaningless beyond equality and persistence.
type Ref struct {
	path string
}

// NewRef wraps an absolute document path as a reference. Intended for
// callers re-creating a handle they previously persisted via Path.
func NewRef(path string) Ref {
	return Ref{path: filepath.Clean(path)}
}

// Path returns the absolute filesystem path behind the reference.
func (r Ref) Path() string { return r.path }

// Slug returns the document filename without extension.
func (r Ref) Slug() string {
	base := filepath.Base(r.path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// IsZero reports whether the reference is empty.
func (r Ref) IsZero() bool { return r.path == "" }

// Document is the atomic unit of knowledge storage: body markdown plus its
// metadata record, read from one file.
type Document struct {
	Ref      Ref
	Metadata Metadata
	Body     string
}

// ListResult is the outcome of a category scan. Skipped counts documents
// that could not be read (corrupt frontmatter, encoding errors); a partial
// failure never aborts the scan.
type ListResult struct {
	Documents []Document
	Skipped   int
}
