package index

import "errors"

var (
	// ErrServiceUnavailable indicates the retrieval-index service is
	// unreachable or returned a server error. Always non-fatal to the
	// vault operation that triggered indexing.
	ErrServiceUnavailable = errors.New("index service unavailable")

	// ErrWorkspaceNotFound indicates the requested workspace does not
	// exist remotely. Recoverable: callers create on demand.
	ErrWorkspaceNotFound = errors.New("workspace not found")
)
