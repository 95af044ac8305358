// Package identity resolves the logged-in user of the web player.
//
// Two interchangeable strategies implement [Resolver]:
//
//   - [Replay] captures, once, the full header set of the page's own profile request and replays it.
//   - [Spoof] watches the same requests and issues a duplicate profile request with headers assembled
//     from the captured credentials, offering the result to the session.
//
// Both parse the JSON response with gjson at configured paths through a [Fetcher].
// A response that is valid JSON but lacks the path yields an empty [models.Identity], not an error.
// Nothing retries automatically.
package identity

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotfill/internal/capture"
	"github.com/desertthunder/spotfill/internal/models"
	"github.com/desertthunder/spotfill/internal/shared"
)

const (
	StrategyReplay = "replay"
	StrategySpoof  = "spoof"
)

// ErrNoProfileRequest is returned by the replay strategy before any profile request was observed.
var ErrNoProfileRequest = fmt.Errorf("%w: no profile request observed yet", shared.ErrIdentity)

// Sink is the session side of identity resolution.
type Sink interface {
	Credentials() models.CredentialPair
	IdentityKnown() bool
	AdoptIdentity(id models.Identity) bool
}

// Resolver resolves the current user's identity.
type Resolver interface {
	// Resolve performs one identity lookup.
	Resolve(ctx context.Context, creds models.CredentialPair) (models.Identity, error)
	// Strategy names the implementation ("replay" or "spoof").
	Strategy() string
	// Attach subscribes the resolver to observed requests.
	Attach(ctx context.Context, hub *capture.Hub, sink Sink) *capture.Subscription
}

// New builds the resolver selected by cfg.Strategy.
func New(cfg shared.IdentityConfig, client *http.Client, logger *log.Logger) (Resolver, error) {
	fetcher := NewFetcher(cfg, client)
	pattern := capture.Pattern(cfg.ProfilePattern)

	switch cfg.Strategy {
	case StrategyReplay:
		return NewReplay(fetcher, pattern, logger), nil
	case StrategySpoof:
		return NewSpoof(fetcher, pattern, logger), nil
	default:
		return nil, fmt.Errorf("%w: unknown identity strategy %q", shared.ErrInvalidConfig, cfg.Strategy)
	}
}

func timeout(cfg shared.IdentityConfig) time.Duration {
	if cfg.TimeoutSeconds <= 0 {
		return 15 * time.Second
	}
	return time.Duration(cfg.TimeoutSeconds) * time.Second
}
