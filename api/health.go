package api

import (
	"net/http"
	"os"

	"github.com/linchen0/tutorvault/internal/index"
	"github.com/linchen0/tutorvault/internal/log"
	"github.com/linchen0/tutorvault/internal/vault"
)

// HealthHandler serves the liveness and readiness probes.
type HealthHandler struct {
	store   *vault.Store
	gateway *index.Gateway
	logger  log.Logger
}

// NewHealthHandler creates a health handler. gateway may be nil; readiness
// then only checks the vault.
func NewHealthHandler(store *vault.Store, gateway *index.Gateway, logger log.Logger) *HealthHandler {
	return &HealthHandler{store: store, gateway: gateway, logger: logger}
}

// RegisterRoutes registers health routes on the given mux.
func (h *HealthHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.liveness)
	mux.HandleFunc("GET /ready", h.readiness)
}

func (h *HealthHandler) liveness(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// readiness verifies the vault root is reachable and, when an index service
// is configured, that it answers a ping.
func (h *HealthHandler) readiness(w http.ResponseWriter, r *http.Request) {
	if _, err := os.Stat(h.store.Paths().Root()); err != nil {
		h.logger.Error("readiness check failed", "error", err)
		http.Error(w, "vault not ready", http.StatusServiceUnavailable)
		return
	}
	if h.gateway != nil {
		if err := h.gateway.Ping(r.Context()); err != nil {
			h.logger.Error("readiness check failed", "error", err)
			http.Error(w, "index service not ready", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
