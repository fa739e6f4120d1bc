package index

// Workspace is a remote retrieval-index container scoped to
// (owner, subject, purpose).
type Workspace struct {
	Slug string `json:"slug"`
	Name string `json:"name"`
}

// Status is the outcome of a push operation.
type Status string

const (
	// StatusEmbedded means the full document content was uploaded and
	// embedded into the workspace.
	StatusEmbedded Status = "embedded"

	// StatusIndexCreated means a lightweight pointer document was uploaded
	// in place of the full content.
	StatusIndexCreated Status = "index_created"

	// StatusFailed means the push did not complete.
	StatusFailed Status = "failed"
)

// PushResult describes one completed (or failed) push.
type PushResult struct {
	Status       Status `json:"status"`
	DocumentName string `json:"document_name,omitempty"`
	Workspace    string `json:"workspace"`
	IndexOnly    bool   `json:"index_only"`
}

// Source is one retrieved chunk with its relevance score, when the service
// reports one.
type Source struct {
	Text  string   `json:"text"`
	Score *float64 `json:"score,omitempty"`
}

// QueryResult is the outcome of a retrieval query. Context carries the
// service's synthesized text response when present; Sources carry the raw
// retrieved chunks.
type QueryResult struct {
	Context string   `json:"context"`
	Sources []Source `json:"sources"`
}

// BatchItemResult is the per-item outcome of a batch push. One item's
// failure never aborts its siblings.
type BatchItemResult struct {
	DocumentPath string `json:"document_path"`
	Result       PushResult
	Err          error `json:"-"`
}
