package identity

import (
	"context"
	"fmt"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotfill/internal/capture"
	"github.com/desertthunder/spotfill/internal/models"
	"github.com/desertthunder/spotfill/internal/shared"
)

// Spoof resolves identity with a duplicate profile request built from the captured credentials.
type Spoof struct {
	fetcher *Fetcher
	pattern capture.Pattern
	logger  *log.Logger
}

// NewSpoof creates a [Spoof] resolver.
func NewSpoof(fetcher *Fetcher, pattern capture.Pattern, logger *log.Logger) *Spoof {
	return &Spoof{fetcher: fetcher, pattern: pattern, logger: logger}
}

func (s *Spoof) Strategy() string { return StrategySpoof }

// Attach subscribes to profile requests. While the identity is unknown, each one triggers a duplicate
// GET in its own goroutine and a known result is offered to sink.
func (s *Spoof) Attach(ctx context.Context, hub *capture.Hub, sink Sink) *capture.Subscription {
	return hub.Subscribe(s.pattern, func(req capture.Request) bool {
		if sink.IdentityKnown() {
			return false
		}

		go func() {
			id, err := s.Resolve(ctx, sink.Credentials())
			if err != nil {
				s.logger.Warn("duplicate profile request failed", "request", req.ID, "error", err)
				return
			}
			if id.Known() && sink.AdoptIdentity(id) {
				s.logger.Info("identity resolved from duplicate profile request", "uri", id.URI)
			}
		}()
		return true
	})
}

// Resolve issues the profile GET with headers assembled from creds.
func (s *Spoof) Resolve(ctx context.Context, creds models.CredentialPair) (models.Identity, error) {
	if creds.Authorization == "" {
		return models.Identity{}, fmt.Errorf("%w: no authorization header captured yet", shared.ErrIdentity)
	}
	return s.fetcher.Fetch(ctx, AssembleHeader(creds))
}

// AssembleHeader builds the header set the web player sends to the profile endpoint.
func AssembleHeader(creds models.CredentialPair) http.Header {
	h := http.Header{}
	h.Set("Accept", "application/json")
	h.Set("App-Platform", "WebPlayer")
	h.Set("Authorization", creds.Authorization)
	if creds.ClientToken != "" {
		h.Set("Client-Token", creds.ClientToken)
	}
	return h
}
