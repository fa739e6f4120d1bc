package vault

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/linchen0/tutorvault/internal/security"
)

// Paths resolves (owner, subject, category) tuples to vault directories.
// It is stateless beyond the root; resolution sanitizes free-text owner and
// subject names into safe path segments and idempotently creates
// intermediate directories.
type Paths struct {
	validator *security.PathValidator
}

// NewPaths creates a resolver rooted at root. The root directory is created
// if absent.
func NewPaths(root string) (*Paths, error) {
	validator, err := security.NewPathValidator(root)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(validator.Root(), 0o750); err != nil {
		return nil, fmt.Errorf("creating vault root: %w", err)
	}
	return &Paths{validator: validator}, nil
}

// Root returns the absolute vault root.
func (p *Paths) Root() string {
	return p.validator.Root()
}

// Resolve returns the directory for (owner, subject, category), creating it
// if needed. Fails only on invalid input or unwritable storage.
func (p *Paths) Resolve(owner, subject string, category Category) (string, error) {
	dir, err := p.dir(owner, subject, category)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("creating category directory: %w", err)
	}
	return dir, nil
}

// SubjectDir returns the directory for (owner, subject) without creating it.
func (p *Paths) SubjectDir(owner, subject string) (string, error) {
	ownerSeg, err := security.SanitizeSegment(owner)
	if err != nil {
		return "", fmt.Errorf("%w: owner: %v", ErrInvalidInput, err)
	}
	subjectSeg, err := security.SanitizeSegment(subject)
	if err != nil {
		return "", fmt.Errorf("%w: subject: %v", ErrInvalidInput, err)
	}
	return p.validator.Validate(filepath.Join(p.Root(), ownerSeg, subjectSeg))
}

// EnsureStructure pre-creates all four category folders for each subject,
// so a fresh vault browses cleanly before any document arrives.
func (p *Paths) EnsureStructure(owner string, subjects []string) error {
	for _, subject := range subjects {
		for _, category := range Categories() {
			if _, err := p.Resolve(owner, subject, category); err != nil {
				return err
			}
		}
	}
	return nil
}

func (p *Paths) dir(owner, subject string, category Category) (string, error) {
	folder, err := category.Folder()
	if err != nil {
		return "", err
	}
	subjectDir, err := p.SubjectDir(owner, subject)
	if err != nil {
		return "", err
	}
	return p.validator.Validate(filepath.Join(subjectDir, folder))
}
