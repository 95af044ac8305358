package capture

import (
	"encoding/json"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotfill/internal/server"
	"github.com/desertthunder/spotfill/internal/shared"
)

// maxObserveBody bounds the size of a pushed request.
const maxObserveBody = 1 << 20

// Observer consumes observed requests.
type Observer interface {
	Observe(req Request)
}

// ObserverFunc adapts a function to [Observer].
type ObserverFunc func(req Request)

func (f ObserverFunc) Observe(req Request) { f(req) }

// Handler accepts observed requests pushed by a browser extension or the capture command.
// Implements [server.Handler].
type Handler struct {
	observer Observer
	logger   *log.Logger
}

var _ server.Handler = (*Handler)(nil)

// NewHandler creates a [Handler] that forwards to observer.
func NewHandler(observer Observer, logger *log.Logger) *Handler {
	return &Handler{observer: observer, logger: logger}
}

// Routes returns the HTTP routes this handler serves.
func (h *Handler) Routes() []string {
	return []string{"POST /observe"}
}

// ServeHTTP decodes a [Request] and observes it, replying 204.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req Request
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxObserveBody)).Decode(&req); err != nil {
		h.logger.Warn("malformed observed request", "error", err)
		server.WriteError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if req.URL == "" {
		server.WriteError(w, http.StatusBadRequest, "url is required")
		return
	}
	if req.ID == "" {
		req.ID = shared.GenerateID()
	}

	h.observer.Observe(req)
	w.WriteHeader(http.StatusNoContent)
}
