package api

import (
	"encoding/json"
	"net/http"

	"github.com/linchen0/tutorvault/internal/index"
	"github.com/linchen0/tutorvault/internal/log"
	"github.com/linchen0/tutorvault/internal/vault"
)

// IndexHandler serves the retrieval-index endpoints. All of them are thin
// passthroughs to the gateway; the vault stays the source of truth.
type IndexHandler struct {
	store   *vault.Store
	gateway *index.Gateway
	logger  log.Logger
}

// NewIndexHandler creates an index handler. gateway may be nil when no
// index service is configured; every route then answers 503.
func NewIndexHandler(store *vault.Store, gateway *index.Gateway, logger log.Logger) *IndexHandler {
	return &IndexHandler{store: store, gateway: gateway, logger: logger}
}

// RegisterRoutes registers index routes on the given mux.
func (h *IndexHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/index/ping", h.guard(h.ping))
	mux.HandleFunc("POST /api/index/workspaces", h.guard(h.ensureWorkspace))
	mux.HandleFunc("POST /api/index/push", h.guard(h.push))
	mux.HandleFunc("POST /api/index/batch", h.guard(h.batch))
	mux.HandleFunc("POST /api/index/query", h.guard(h.query))
}

func (h *IndexHandler) guard(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if h.gateway == nil {
			writeError(w, http.StatusServiceUnavailable, "index_disabled", "no index service configured", h.logger)
			return
		}
		next(w, r)
	}
}

func (h *IndexHandler) ping(w http.ResponseWriter, r *http.Request) {
	if err := h.gateway.Ping(r.Context()); err != nil {
		writeDomainError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true}, h.logger)
}

// WorkspaceRequest addresses a workspace by its partition key.
type WorkspaceRequest struct {
	Owner   string `json:"owner"`
	Subject string `json:"subject"`
	Purpose string `json:"purpose"`

	// Name overrides the display name shown by the index service.
	Name string `json:"name,omitempty"`
}

func (r WorkspaceRequest) slug() string {
	purpose := r.Purpose
	if purpose == "" {
		purpose = DefaultWorkspacePurpose
	}
	return index.WorkspaceSlug(r.Owner, r.Subject, purpose)
}

func (r WorkspaceRequest) displayName() string {
	if r.Name != "" {
		return r.Name
	}
	return r.Owner + " - " + r.Subject
}

func (h *IndexHandler) ensureWorkspace(w http.ResponseWriter, r *http.Request) {
	var req WorkspaceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "invalid request body", h.logger)
		return
	}

	ws, err := h.gateway.EnsureWorkspace(r.Context(), req.slug(), req.displayName())
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, ws, h.logger)
}

// PushRequest pushes one stored document into a workspace.
type PushRequest struct {
	WorkspaceRequest
	Category string `json:"category"`
	Slug     string `json:"slug"`

	// Full selects full-content embedding instead of an index-only pointer.
	Full bool `json:"full"`
}

func (h *IndexHandler) push(w http.ResponseWriter, r *http.Request) {
	var req PushRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "invalid request body", h.logger)
		return
	}

	doc, err := h.readDocument(r, req.Category, req.Slug, req.Owner, req.Subject)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	slug := req.slug()
	if _, err := h.gateway.EnsureWorkspace(r.Context(), slug, req.displayName()); err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	var result index.PushResult
	if req.Full {
		result, err = h.gateway.PushFull(r.Context(), slug, doc)
	} else {
		result, err = h.gateway.PushIndexOnly(r.Context(), slug, doc)
	}
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, result, h.logger)
}

// BatchPushRequest pushes a whole category into a workspace.
type BatchPushRequest struct {
	WorkspaceRequest
	Category string `json:"category"`
	Full     bool   `json:"full"`
}

// BatchItemResponse is one per-document outcome of a batch push.
type BatchItemResponse struct {
	Path   string           `json:"path"`
	Result index.PushResult `json:"result"`
	Error  string           `json:"error,omitempty"`
}

func (h *IndexHandler) batch(w http.ResponseWriter, r *http.Request) {
	var req BatchPushRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "invalid request body", h.logger)
		return
	}

	category, err := vault.ParseCategory(req.Category)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	listed, err := h.store.ListByCategory(r.Context(), req.Owner, req.Subject, category, nil)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	slug := req.slug()
	if _, err := h.gateway.EnsureWorkspace(r.Context(), slug, req.displayName()); err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	results := h.gateway.BatchPush(r.Context(), slug, listed.Documents, req.Full)

	items := make([]BatchItemResponse, 0, len(results))
	var failed int
	for _, res := range results {
		item := BatchItemResponse{Path: res.DocumentPath, Result: res.Result}
		if res.Err != nil {
			item.Error = res.Err.Error()
			failed++
		}
		items = append(items, item)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items":  items,
		"total":  len(items),
		"failed": failed,
	}, h.logger)
}

// QueryRequest runs a retrieval query against a workspace.
type QueryRequest struct {
	WorkspaceRequest
	Query string `json:"query"`
	TopK  int    `json:"top_k,omitempty"`
}

func (h *IndexHandler) query(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "invalid request body", h.logger)
		return
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "invalid_input", "query must not be empty", h.logger)
		return
	}

	result, err := h.gateway.Query(r.Context(), req.slug(), req.Query, req.TopK)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, result, h.logger)
}

func (h *IndexHandler) readDocument(r *http.Request, category, slug, owner, subject string) (*vault.Document, error) {
	parsed, err := vault.ParseCategory(category)
	if err != nil {
		return nil, err
	}
	ref, err := h.store.Locate(owner, subject, parsed, slug)
	if err != nil {
		return nil, err
	}
	return h.store.Read(r.Context(), ref)
}
