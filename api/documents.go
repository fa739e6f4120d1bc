package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/linchen0/tutorvault/internal/index"
	"github.com/linchen0/tutorvault/internal/log"
	"github.com/linchen0/tutorvault/internal/vault"
)

// Push policies accepted on save.
const (
	PushNone  = "none"
	PushIndex = "index"
	PushFull  = "full"
)

// DefaultWorkspacePurpose names the workspace partition documents land in
// when the caller does not pick one.
const DefaultWorkspacePurpose = "study"

// DocumentHandler serves the vault document endpoints.
type DocumentHandler struct {
	store  *vault.Store
	worker *index.Worker
	logger log.Logger
}

// NewDocumentHandler creates a document handler. worker may be nil; save
// requests asking for an index push then report it as skipped.
func NewDocumentHandler(store *vault.Store, worker *index.Worker, logger log.Logger) *DocumentHandler {
	return &DocumentHandler{store: store, worker: worker, logger: logger}
}

// RegisterRoutes registers document routes on the given mux.
func (h *DocumentHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/documents", h.save)
	mux.HandleFunc("GET /api/documents/{owner}/{subject}/{category}", h.list)
	mux.HandleFunc("GET /api/documents/{owner}/{subject}/{category}/{slug}", h.read)
	mux.HandleFunc("DELETE /api/documents/{owner}/{subject}/{category}/{slug}", h.delete)
	mux.HandleFunc("PATCH /api/documents/{owner}/{subject}/{category}/{slug}/metadata", h.updateMetadata)
	mux.HandleFunc("PUT /api/documents/{owner}/{subject}/{category}/{slug}/content", h.updateContent)
	mux.HandleFunc("POST /api/documents/{owner}/{subject}/{category}/{slug}/grade", h.grade)
	mux.HandleFunc("POST /api/documents/{owner}/{subject}/{category}/{slug}/review", h.review)
	mux.HandleFunc("GET /api/weakest", h.weakest)
	mux.HandleFunc("GET /api/stats", h.stats)
	mux.HandleFunc("POST /api/cards", h.createCard)
	mux.HandleFunc("GET /api/cards", h.listCards)
}

// DocumentResponse is the JSON view of a stored document.
type DocumentResponse struct {
	Path     string         `json:"path"`
	Slug     string         `json:"slug"`
	Metadata vault.Metadata `json:"metadata"`
	Body     string         `json:"body,omitempty"`
}

func documentResponse(doc *vault.Document, withBody bool) DocumentResponse {
	resp := DocumentResponse{
		Path:     doc.Ref.Path(),
		Slug:     doc.Ref.Slug(),
		Metadata: doc.Metadata,
	}
	if withBody {
		resp.Body = doc.Body
	}
	return resp
}

// SaveDocumentRequest is the request body for creating a document.
type SaveDocumentRequest struct {
	Owner    string         `json:"owner"`
	Subject  string         `json:"subject"`
	Category string         `json:"category"`
	Title    string         `json:"title"`
	Body     string         `json:"body"`
	Metadata map[string]any `json:"metadata,omitempty"`

	// Push selects the index policy: none (default), index, or full.
	Push string `json:"push,omitempty"`

	// Purpose picks the workspace partition for the push.
	Purpose string `json:"purpose,omitempty"`
}

// SaveDocumentResponse reports the stored location and whether an index
// push was queued.
type SaveDocumentResponse struct {
	Path        string `json:"path"`
	Slug        string `json:"slug"`
	IndexQueued bool   `json:"index_queued"`
}

func (h *DocumentHandler) save(w http.ResponseWriter, r *http.Request) {
	var req SaveDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "invalid request body", h.logger)
		return
	}

	category, err := vault.ParseCategory(req.Category)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	var meta vault.Metadata
	if err := meta.Merge(req.Metadata); err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	ref, err := h.store.Save(r.Context(), vault.SaveRequest{
		Owner:    req.Owner,
		Subject:  req.Subject,
		Category: category,
		Title:    req.Title,
		Body:     req.Body,
		Metadata: meta,
	})
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	queued := h.queuePush(req, ref)
	writeJSON(w, http.StatusCreated, SaveDocumentResponse{
		Path:        ref.Path(),
		Slug:        ref.Slug(),
		IndexQueued: queued,
	}, h.logger)
}

// queuePush hands the saved document to the async index worker. The save
// already succeeded; push failures only degrade the derived view.
func (h *DocumentHandler) queuePush(req SaveDocumentRequest, ref vault.Ref) bool {
	if req.Push == "" || req.Push == PushNone {
		return false
	}
	if h.worker == nil {
		h.logger.Warn("index push requested but no index service configured", "document", ref.Path())
		return false
	}

	doc, err := h.store.Read(context.Background(), ref)
	if err != nil {
		h.logger.Warn("re-reading saved document for index push", "error", err)
		return false
	}

	purpose := req.Purpose
	if purpose == "" {
		purpose = DefaultWorkspacePurpose
	}
	return h.worker.Enqueue(index.Task{
		WorkspaceSlug: index.WorkspaceSlug(req.Owner, req.Subject, purpose),
		DisplayName:   req.Owner + " - " + req.Subject,
		Document:      *doc,
		FullEmbed:     req.Push == PushFull,
	})
}

func (h *DocumentHandler) locate(r *http.Request) (vault.Ref, error) {
	category, err := vault.ParseCategory(r.PathValue("category"))
	if err != nil {
		return vault.Ref{}, err
	}
	return h.store.Locate(r.PathValue("owner"), r.PathValue("subject"), category, r.PathValue("slug"))
}

func (h *DocumentHandler) read(w http.ResponseWriter, r *http.Request) {
	ref, err := h.locate(r)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}
	doc, err := h.store.Read(r.Context(), ref)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, documentResponse(doc, true), h.logger)
}

func (h *DocumentHandler) delete(w http.ResponseWriter, r *http.Request) {
	ref, err := h.locate(r)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}
	if err := h.store.Delete(r.Context(), ref); err != nil {
		writeDomainError(w, err, h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *DocumentHandler) list(w http.ResponseWriter, r *http.Request) {
	category, err := vault.ParseCategory(r.PathValue("category"))
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	result, err := h.store.ListByCategory(r.Context(), r.PathValue("owner"), r.PathValue("subject"), category, nil)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	docs := make([]DocumentResponse, 0, len(result.Documents))
	for i := range result.Documents {
		docs = append(docs, documentResponse(&result.Documents[i], false))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"documents": docs,
		"total":     len(docs),
		"skipped":   result.Skipped,
	}, h.logger)
}

func (h *DocumentHandler) updateMetadata(w http.ResponseWriter, r *http.Request) {
	ref, err := h.locate(r)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	var partial map[string]any
	if err := json.NewDecoder(r.Body).Decode(&partial); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "invalid request body", h.logger)
		return
	}
	if err := h.store.UpdateMetadata(r.Context(), ref, partial); err != nil {
		writeDomainError(w, err, h.logger)
		return
	}
	h.respondWith(w, r, ref)
}

// UpdateContentRequest replaces a document body, optionally merging
// metadata in the same write.
type UpdateContentRequest struct {
	Body     string         `json:"body"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

func (h *DocumentHandler) updateContent(w http.ResponseWriter, r *http.Request) {
	ref, err := h.locate(r)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	var req UpdateContentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "invalid request body", h.logger)
		return
	}
	if err := h.store.UpdateContent(r.Context(), ref, req.Body, req.Metadata); err != nil {
		writeDomainError(w, err, h.logger)
		return
	}
	h.respondWith(w, r, ref)
}

// GradeRequest records one binary grading outcome.
type GradeRequest struct {
	Correct bool `json:"correct"`
}

func (h *DocumentHandler) grade(w http.ResponseWriter, r *http.Request) {
	ref, err := h.locate(r)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	var req GradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "invalid request body", h.logger)
		return
	}
	if err := h.store.RecordGrading(r.Context(), ref, req.Correct); err != nil {
		writeDomainError(w, err, h.logger)
		return
	}
	h.respondWith(w, r, ref)
}

// ReviewRequest copies a document into the review category with an
// appended error record.
type ReviewRequest struct {
	StudentAnswer string `json:"student_answer"`
	Reason        string `json:"reason,omitempty"`
}

func (h *DocumentHandler) review(w http.ResponseWriter, r *http.Request) {
	ref, err := h.locate(r)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	var req ReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "invalid request body", h.logger)
		return
	}

	reviewRef, err := h.store.MoveToReview(r.Context(), ref,
		r.PathValue("owner"), r.PathValue("subject"), req.StudentAnswer, req.Reason)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"path": reviewRef.Path(),
		"slug": reviewRef.Slug(),
	}, h.logger)
}

func (h *DocumentHandler) weakest(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	category := vault.CategoryReview
	if c := q.Get("category"); c != "" {
		parsed, err := vault.ParseCategory(c)
		if err != nil {
			writeDomainError(w, err, h.logger)
			return
		}
		category = parsed
	}

	query := vault.WeakestQuery{
		MinDifficulty: parseIntParam(q.Get("min_difficulty"), 0),
		Limit:         parseIntParam(q.Get("limit"), 0),
	}
	if raw := q.Get("max_accuracy"); raw != "" {
		maxAcc, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_input", "max_accuracy must be a number", h.logger)
			return
		}
		query.MaxAccuracy = &maxAcc
	}

	docs, err := h.store.FindLowestAccuracy(r.Context(), q.Get("owner"), q.Get("subject"), category, query)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	out := make([]DocumentResponse, 0, len(docs))
	for i := range docs {
		out = append(out, documentResponse(&docs[i], true))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"documents": out,
		"total":     len(out),
	}, h.logger)
}

func (h *DocumentHandler) stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.Statistics(r.Context(), r.URL.Query().Get("owner"), r.URL.Query().Get("subject"))
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, stats, h.logger)
}

// CreateCardRequest is the request body for a knowledge card.
type CreateCardRequest struct {
	Owner           string         `json:"owner"`
	Subject         string         `json:"subject"`
	KnowledgePoint  string         `json:"knowledge_point"`
	Explanation     string         `json:"explanation"`
	Examples        []string       `json:"examples,omitempty"`
	RelatedProblems []string       `json:"related_problems,omitempty"`
	Metadata        map[string]any `json:"metadata,omitempty"`
}

func (h *DocumentHandler) createCard(w http.ResponseWriter, r *http.Request) {
	var req CreateCardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "invalid request body", h.logger)
		return
	}

	var meta vault.Metadata
	if err := meta.Merge(req.Metadata); err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	ref, err := h.store.CreateKnowledgeCard(r.Context(), vault.CardRequest{
		Owner:           req.Owner,
		Subject:         req.Subject,
		KnowledgePoint:  req.KnowledgePoint,
		Explanation:     req.Explanation,
		Examples:        req.Examples,
		RelatedProblems: req.RelatedProblems,
		Metadata:        meta,
	})
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"path": ref.Path(),
		"slug": ref.Slug(),
	}, h.logger)
}

func (h *DocumentHandler) listCards(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var tags []string
	if raw := q.Get("tags"); raw != "" {
		for _, tag := range strings.Split(raw, ",") {
			if tag = strings.TrimSpace(tag); tag != "" {
				tags = append(tags, tag)
			}
		}
	}

	result, err := h.store.KnowledgeCards(r.Context(), q.Get("owner"), q.Get("subject"), tags)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	cards := make([]DocumentResponse, 0, len(result.Documents))
	for i := range result.Documents {
		cards = append(cards, documentResponse(&result.Documents[i], true))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"cards": cards,
		"total": len(cards),
	}, h.logger)
}

// respondWith re-reads the document and returns its fresh state.
func (h *DocumentHandler) respondWith(w http.ResponseWriter, r *http.Request, ref vault.Ref) {
	doc, err := h.store.Read(r.Context(), ref)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, documentResponse(doc, false), h.logger)
}

// parseIntParam parses a non-negative integer query parameter, falling back
// to def on absence or garbage.
func parseIntParam(raw string, def int) int {
	if raw == "" {
		return def
	}
	val, err := strconv.Atoi(raw)
	if err != nil || val < 0 {
		return def
	}
	return val
}
