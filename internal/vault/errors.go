package vault

import "errors"

// Sentinel errors for vault operations. Callers check causes with
// errors.Is(); storage faults are wrapped OS errors and carry no sentinel.
var (
	// ErrNotFound indicates the referenced document does not exist.
	ErrNotFound = errors.New("document not found")

	// ErrInvalidCategory indicates an unknown lifecycle category.
	ErrInvalidCategory = errors.New("invalid category")

	// ErrInvalidInput indicates malformed caller input (empty title,
	// out-of-range filter bounds). Rejected before any write occurs.
	ErrInvalidInput = errors.New("invalid input")
)
