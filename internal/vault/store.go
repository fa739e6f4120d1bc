package vault

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/linchen0/tutorvault/internal/log"
)

// Store owns every read and write of document files. No other component
// touches file bytes directly.
type Store struct {
	paths    *Paths
	logger   log.Logger
	locks    *lockRegistry
	fileLock *fileLock

	now func() time.Time
}

// NewStore creates a document store over the given path resolver.
// A nil logger falls back to slog.Default via log semantics upstream;
// tests pass log.NewNop().
func NewStore(paths *Paths, logger log.Logger) *Store {
	return &Store{
		paths:    paths,
		logger:   logger,
		locks:    newLockRegistry(),
		fileLock: newFileLock(paths.Root()),
		now:      time.Now,
	}
}

// Paths exposes the underlying resolver for components that only need
// directory resolution (e.g. structure bootstrap).
func (s *Store) Paths() *Paths { return s.paths }

// SaveRequest carries one document save.
type SaveRequest struct {
	Owner    string
	Subject  string
	Category Category
	Title    string
	Body     string
	Metadata Metadata
}

// Save normalizes metadata, derives a unique filename from the title, and
// writes content plus metadata as one unit, atomically.
//
// Collision policy: if the slug is taken by a file carrying the same
// document ID the save is an in-place rewrite; otherwise a deterministic
// numeric suffix (-2, -3, …) disambiguates. Data is never silently
// overwritten.
func (s *Store) Save(ctx context.Context, req SaveRequest) (Ref, error) {
	if strings.TrimSpace(req.Title) == "" {
		return Ref{}, fmt.Errorf("%w: empty title", ErrInvalidInput)
	}
	if _, err := req.Category.Folder(); err != nil {
		return Ref{}, err
	}

	dir, err := s.paths.Resolve(req.Owner, req.Subject, req.Category)
	if err != nil {
		return Ref{}, err
	}

	meta := req.Metadata
	meta.Normalize(s.now().UTC())

	// Collision resolution and the write itself serialize per directory,
	// so two concurrent saves of the same title cannot pick the same slot.
	release := s.locks.acquire(dir)
	defer release()

	path, err := s.resolveSlot(dir, Slugify(req.Title), meta)
	if err != nil {
		return Ref{}, err
	}

	unlock, err := s.fileLock.acquire(ctx, path)
	if err != nil {
		return Ref{}, err
	}
	defer unlock()

	if err := s.writeDocument(path, &meta, req.Body); err != nil {
		return Ref{}, err
	}

	s.logger.Debug("saved document",
		"path", path,
		"category", req.Category.String(),
		"id", meta.ID)
	return NewRef(path), nil
}

// resolveSlot picks the target filename for a slug, applying the collision
// policy. Caller holds the directory lock.
func (s *Store) resolveSlot(dir, slug string, meta Metadata) (string, error) {
	for n := 1; ; n++ {
		name := slug
		if n > 1 {
			name = fmt.Sprintf("%s-%d", slug, n)
		}
		path := filepath.Join(dir, name+".md")

		data, err := os.ReadFile(path)
		if errors.Is(err, os.ErrNotExist) {
			return path, nil
		}
		if err != nil {
			return "", fmt.Errorf("probing %s: %w", path, err)
		}

		existing, _, decErr := decodeDocument(data)
		if decErr == nil && existing.ID == meta.ID {
			// Same logical document: rewrite in place.
			return path, nil
		}
	}
}

// Locate resolves a document address to a Ref without touching the file.
// The slug must already be in stored form, as returned by [Ref.Slug].
func (s *Store) Locate(owner, subject string, category Category, slug string) (Ref, error) {
	dir, err := s.paths.dir(owner, subject, category)
	if err != nil {
		return Ref{}, err
	}
	if slug == "" || slug != Slugify(slug) {
		return Ref{}, fmt.Errorf("%w: slug %q", ErrInvalidInput, slug)
	}
	return NewRef(filepath.Join(dir, slug+".md")), nil
}

// Read returns the metadata and body of a document.
func (s *Store) Read(ctx context.Context, ref Ref) (*Document, error) {
	_ = ctx

	data, err := os.ReadFile(ref.Path())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, ref.Path())
		}
		return nil, fmt.Errorf("reading %s: %w", ref.Path(), err)
	}

	meta, body, err := decodeDocument(data)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", ref.Path(), err)
	}

	return &Document{Ref: ref, Metadata: meta, Body: body}, nil
}

// UpdateMetadata merges partial into the document's metadata (shallow key
// overwrite), restamps last_modified, and rewrites the file. The body is
// never touched. The whole step is a read-modify-write under the
// per-document lock, so concurrent updates with disjoint keys both survive.
func (s *Store) UpdateMetadata(ctx context.Context, ref Ref, partial map[string]any) error {
	return s.mutate(ctx, ref, func(meta *Metadata, _ *string) error {
		return meta.Merge(partial)
	})
}

// UpdateContent replaces the document body and optionally merges metadata.
func (s *Store) UpdateContent(ctx context.Context, ref Ref, newBody string, partial map[string]any) error {
	return s.mutate(ctx, ref, func(meta *Metadata, body *string) error {
		*body = newBody
		if partial != nil {
			return meta.Merge(partial)
		}
		return nil
	})
}

// RecordGrading applies one graded submission to the document: attempts,
// running accuracy, and the attempt timestamps. Sequential application per
// document is guaranteed by the lock.
func (s *Store) RecordGrading(ctx context.Context, ref Ref, correct bool) error {
	return s.mutate(ctx, ref, func(meta *Metadata, _ *string) error {
		meta.ApplyGradingOutcome(correct, s.now().UTC())
		return nil
	})
}

// mutate runs a full read-modify-write of one document under both locks.
func (s *Store) mutate(ctx context.Context, ref Ref, fn func(meta *Metadata, body *string) error) error {
	release := s.locks.acquire(ref.Path())
	defer release()

	unlock, err := s.fileLock.acquire(ctx, ref.Path())
	if err != nil {
		return err
	}
	defer unlock()

	doc, err := s.Read(ctx, ref)
	if err != nil {
		return err
	}

	meta := doc.Metadata
	body := doc.Body
	if err := fn(&meta, &body); err != nil {
		return err
	}
	meta.LastModified = s.now().UTC()

	if err := s.writeDocument(ref.Path(), &meta, body); err != nil {
		return err
	}

	s.logger.Debug("updated document", "path", ref.Path())
	return nil
}

// Delete removes a document. Idempotent: deleting a missing reference is a
// no-op, not an error.
func (s *Store) Delete(ctx context.Context, ref Ref) error {
	_ = ctx

	err := os.Remove(ref.Path())
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("deleting %s: %w", ref.Path(), err)
	}
	if err == nil {
		s.logger.Debug("deleted document", "path", ref.Path())
	}
	return nil
}

// ListByCategory scans one category directory, optionally filtered by
// metadata key/value pairs. Unreadable documents are skipped with a logged
// warning and counted in the result; one corrupt file never breaks listing.
func (s *Store) ListByCategory(ctx context.Context, owner, subject string, category Category, filter map[string]any) (*ListResult, error) {
	dir, err := s.paths.Resolve(owner, subject, category)
	if err != nil {
		return nil, err
	}
	return s.scanDir(ctx, dir, filter)
}

func (s *Store) scanDir(ctx context.Context, dir string, filter map[string]any) (*ListResult, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading directory %s: %w", dir, err)
	}

	result := &ListResult{}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".md") {
			continue
		}

		ref := NewRef(filepath.Join(dir, entry.Name()))
		doc, err := s.Read(ctx, ref)
		if err != nil {
			s.logger.Warn("skipping unreadable document",
				"path", ref.Path(),
				"error", err)
			result.Skipped++
			continue
		}

		if !doc.Metadata.MatchesFilter(filter) {
			continue
		}
		result.Documents = append(result.Documents, *doc)
	}
	return result, nil
}

// QueryByMetadata lists documents matching the metadata filter. A nil
// category scans all four categories in declaration order.
func (s *Store) QueryByMetadata(ctx context.Context, owner, subject string, category *Category, filter map[string]any) (*ListResult, error) {
	if category != nil {
		return s.ListByCategory(ctx, owner, subject, *category, filter)
	}

	result := &ListResult{}
	for _, cat := range Categories() {
		listed, err := s.ListByCategory(ctx, owner, subject, cat, filter)
		if err != nil {
			return nil, err
		}
		result.Documents = append(result.Documents, listed.Documents...)
		result.Skipped += listed.Skipped
	}
	return result, nil
}

// WeakestQuery bounds a FindLowestAccuracy scan.
type WeakestQuery struct {
	// MinDifficulty excludes documents easier than this. Zero = no bound.
	MinDifficulty int

	// MaxAccuracy excludes documents with higher running accuracy, and
	// excludes never-attempted documents entirely. Nil = no bound.
	MaxAccuracy *float64

	// Limit truncates the result. Zero = unlimited.
	Limit int
}

func (q WeakestQuery) validate() error {
	if q.MinDifficulty < 0 || q.MinDifficulty > MaxDifficulty {
		return fmt.Errorf("%w: min difficulty %d", ErrInvalidInput, q.MinDifficulty)
	}
	if q.MaxAccuracy != nil && (*q.MaxAccuracy < 0 || *q.MaxAccuracy > 1) {
		return fmt.Errorf("%w: max accuracy %v", ErrInvalidInput, *q.MaxAccuracy)
	}
	if q.Limit < 0 {
		return fmt.Errorf("%w: limit %d", ErrInvalidInput, q.Limit)
	}
	return nil
}

// FindLowestAccuracy returns category documents sorted ascending by running
// accuracy, never-attempted documents last (absent accuracy sorts as 1.0:
// confirmed-weak material outranks untested material for review).
func (s *Store) FindLowestAccuracy(ctx context.Context, owner, subject string, category Category, q WeakestQuery) ([]Document, error) {
	if err := q.validate(); err != nil {
		return nil, err
	}

	listed, err := s.ListByCategory(ctx, owner, subject, category, nil)
	if err != nil {
		return nil, err
	}

	docs := listed.Documents[:0]
	for _, doc := range listed.Documents {
		if q.MinDifficulty > 0 && doc.Metadata.Difficulty < q.MinDifficulty {
			continue
		}
		if q.MaxAccuracy != nil {
			if doc.Metadata.Accuracy == nil || *doc.Metadata.Accuracy > *q.MaxAccuracy {
				continue
			}
		}
		docs = append(docs, doc)
	}

	sort.SliceStable(docs, func(i, j int) bool {
		a, b := sortAccuracy(docs[i].Metadata), sortAccuracy(docs[j].Metadata)
		if a != b {
			return a < b
		}
		return docs[i].Ref.Slug() < docs[j].Ref.Slug()
	})

	if q.Limit > 0 && len(docs) > q.Limit {
		docs = docs[:q.Limit]
	}
	return docs, nil
}

// sortAccuracy maps absent accuracy to 1.0 so never-attempted items sort
// after every attempted one.
func sortAccuracy(m Metadata) float64 {
	if m.Accuracy == nil {
		return 1.0
	}
	return *m.Accuracy
}

// writeDocument serializes and atomically replaces a document file
// (write to temp in the same directory, then rename).
func (s *Store) writeDocument(path string, meta *Metadata, body string) error {
	data, err := encodeDocument(meta, body)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file in %s: %w", dir, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("writing %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("closing %s: %w", tmpName, err)
	}
	if err := os.Chmod(tmpName, 0o640); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("setting permissions on %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	return nil
}
