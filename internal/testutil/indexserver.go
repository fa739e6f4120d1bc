// Package testutil provides shared test helpers: discard loggers and a
// fake retrieval-index service.
package testutil

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
)

// IndexServer is an in-memory fake of the retrieval-index REST API,
// sufficient for gateway and worker tests: workspaces, document uploads,
// embedding updates, and canned query responses.
//
// All fields guarded by mu; the server is safe for concurrent requests.
type IndexServer struct {
	Server *httptest.Server

	mu          sync.Mutex
	workspaces  map[string]string // slug -> display name
	uploads     []Upload
	embedded    map[string][]string // workspace slug -> document locations
	createCalls int
	uploadSeq   int

	// FailUploads makes the next N upload requests return 500.
	FailUploads int

	// QueryResponse is returned verbatim by the query endpoint.
	QueryResponse map[string]any
}

// Upload records one received document upload.
type Upload struct {
	Filename string
	Content  string
	Metadata string
}

// NewIndexServer starts the fake service. Callers must Close it.
func NewIndexServer() *IndexServer {
	s := &IndexServer{
		workspaces: make(map[string]string),
		embedded:   make(map[string][]string),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/ping", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("GET /api/workspace/{slug}", s.handleGetWorkspace)
	mux.HandleFunc("POST /api/workspace/new", s.handleCreateWorkspace)
	mux.HandleFunc("POST /api/document/upload", s.handleUpload)
	mux.HandleFunc("POST /api/workspace/{slug}/update-embeddings", s.handleUpdateEmbeddings)
	mux.HandleFunc("POST /api/workspace/{slug}/query", s.handleQuery)

	s.Server = httptest.NewServer(mux)
	return s
}

// Close shuts the fake service down.
func (s *IndexServer) Close() {
	s.Server.Close()
}

// URL returns the fake service base URL.
func (s *IndexServer) URL() string {
	return s.Server.URL
}

// Workspaces returns a copy of the created workspaces.
func (s *IndexServer) Workspaces() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.workspaces))
	for k, v := range s.workspaces {
		out[k] = v
	}
	return out
}

// CreateCalls reports how many workspace-creation requests arrived.
func (s *IndexServer) CreateCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createCalls
}

// Uploads returns a copy of received uploads.
func (s *IndexServer) Uploads() []Upload {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Upload(nil), s.uploads...)
}

// Embedded returns the document locations embedded into a workspace.
func (s *IndexServer) Embedded(slug string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.embedded[slug]...)
}

// SeedWorkspace pre-creates a workspace without an HTTP round trip.
func (s *IndexServer) SeedWorkspace(slug, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.workspaces[slug] = name
}

func (s *IndexServer) handleGetWorkspace(w http.ResponseWriter, r *http.Request) {
	slug := r.PathValue("slug")

	s.mu.Lock()
	name, ok := s.workspaces[slug]
	s.mu.Unlock()

	if !ok {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, map[string]any{"workspace": map[string]string{"slug": slug, "name": name}})
}

func (s *IndexServer) handleCreateWorkspace(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
		Slug string `json:"slug"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	s.createCalls++
	_, exists := s.workspaces[req.Slug]
	if !exists {
		s.workspaces[req.Slug] = req.Name
	}
	s.mu.Unlock()

	if exists {
		http.Error(w, "workspace already exists", http.StatusConflict)
		return
	}
	writeJSON(w, map[string]any{"workspace": map[string]string{"slug": req.Slug, "name": req.Name}})
}

func (s *IndexServer) handleUpload(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	if s.FailUploads > 0 {
		s.FailUploads--
		s.mu.Unlock()
		http.Error(w, "storage backend down", http.StatusInternalServerError)
		return
	}
	s.mu.Unlock()

	if err := r.ParseMultipartForm(16 << 20); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	defer func() { _ = file.Close() }()

	var content strings.Builder
	if _, err := io.Copy(&content, file); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	s.mu.Lock()
	s.uploadSeq++
	location := fmt.Sprintf("custom-documents/%s-%d.json", header.Filename, s.uploadSeq)
	s.uploads = append(s.uploads, Upload{
		Filename: header.Filename,
		Content:  content.String(),
		Metadata: r.FormValue("metadata"),
	})
	s.mu.Unlock()

	writeJSON(w, map[string]any{"document": map[string]string{"location": location}})
}

func (s *IndexServer) handleUpdateEmbeddings(w http.ResponseWriter, r *http.Request) {
	slug := r.PathValue("slug")

	var req struct {
		Adds    []string `json:"adds"`
		Deletes []string `json:"deletes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	s.embedded[slug] = append(s.embedded[slug], req.Adds...)
	for _, del := range req.Deletes {
		current := s.embedded[slug]
		kept := current[:0]
		for _, loc := range current {
			if loc != del {
				kept = append(kept, loc)
			}
		}
		s.embedded[slug] = kept
	}
	s.mu.Unlock()

	writeJSON(w, map[string]any{"success": true})
}

func (s *IndexServer) handleQuery(w http.ResponseWriter, r *http.Request) {
	slug := r.PathValue("slug")

	s.mu.Lock()
	_, ok := s.workspaces[slug]
	resp := s.QueryResponse
	s.mu.Unlock()

	if !ok {
		http.NotFound(w, r)
		return
	}
	if resp == nil {
		resp = map[string]any{"textResponse": "", "sources": []any{}}
	}
	writeJSON(w, resp)
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(data)
}
