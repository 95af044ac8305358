package identity

import (
	"context"
	"net/http"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotfill/internal/capture"
	"github.com/desertthunder/spotfill/internal/models"
)

// Replay resolves identity by replaying the header set of the page's own profile request.
type Replay struct {
	fetcher *Fetcher
	pattern capture.Pattern
	logger  *log.Logger

	mu     sync.RWMutex
	header http.Header
}

// NewReplay creates a [Replay] resolver.
func NewReplay(fetcher *Fetcher, pattern capture.Pattern, logger *log.Logger) *Replay {
	return &Replay{fetcher: fetcher, pattern: pattern, logger: logger}
}

func (r *Replay) Strategy() string { return StrategyReplay }

// Attach registers a one-shot subscription that keeps the first profile request carrying headers.
func (r *Replay) Attach(_ context.Context, hub *capture.Hub, _ Sink) *capture.Subscription {
	return hub.SubscribeOnce(r.pattern, func(req capture.Request) bool {
		header := req.HTTPHeader()
		if len(header) == 0 {
			return false
		}

		r.mu.Lock()
		r.header = header
		r.mu.Unlock()

		r.logger.Info("profile request captured", "headers", len(header), "request", req.ID)
		return true
	})
}

// Captured reports whether a profile header set is available.
func (r *Replay) Captured() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.header != nil
}

// Resolve replays the captured header set. The credential pair is not used.
func (r *Replay) Resolve(ctx context.Context, _ models.CredentialPair) (models.Identity, error) {
	r.mu.RLock()
	header := r.header.Clone()
	r.mu.RUnlock()

	if header == nil {
		return models.Identity{}, ErrNoProfileRequest
	}
	return r.fetcher.Fetch(ctx, header)
}
