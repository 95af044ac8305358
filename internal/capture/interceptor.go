package capture

import (
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotfill/internal/shared"
)

// CredentialField names one half of the credential pair.
type CredentialField int

const (
	FieldAuthorization CredentialField = iota
	FieldClientToken
)

func (f CredentialField) String() string {
	switch f {
	case FieldAuthorization:
		return "authorization"
	case FieldClientToken:
		return "client-token"
	default:
		return "unknown"
	}
}

// CredentialSink receives captured header values. Each call overwrites the previous value of the field.
type CredentialSink interface {
	StoreCredential(field CredentialField, value string)
}

// Interceptor filters observed requests through the allow-list and extracts credential headers.
type Interceptor struct {
	patterns Patterns
	headers  map[string]CredentialField
	sink     CredentialSink
	hub      *Hub
	logger   *log.Logger
}

// NewInterceptor creates an [Interceptor] from the capture configuration.
//
// The hub may be nil when nothing subscribes to observed requests.
func NewInterceptor(cfg shared.CaptureConfig, sink CredentialSink, hub *Hub, logger *log.Logger) *Interceptor {
	authName := cfg.AuthorizationHeader
	if authName == "" {
		authName = "authorization"
	}
	tokenName := cfg.ClientTokenHeader
	if tokenName == "" {
		tokenName = "client-token"
	}

	return &Interceptor{
		patterns: NewPatterns(cfg.Patterns...),
		headers: map[string]CredentialField{
			strings.ToLower(authName):  FieldAuthorization,
			strings.ToLower(tokenName): FieldClientToken,
		},
		sink:   sink,
		hub:    hub,
		logger: logger,
	}
}

// Observe processes one outbound request. Credentials are only read from allow-listed requests;
// every request is still dispatched to the hub, whose subscriptions carry their own patterns.
func (i *Interceptor) Observe(req Request) {
	if i.patterns.Match(req.URL) {
		i.extract(req)
	}

	if i.hub != nil {
		i.hub.Dispatch(req)
	}
}

func (i *Interceptor) extract(req Request) {
	for name, value := range req.Headers {
		field, ok := i.headers[strings.ToLower(name)]
		if !ok || value == "" {
			continue
		}
		i.sink.StoreCredential(field, value)
		i.logger.Debug("credential captured", "field", field, "value", shared.Redact(value), "request", req.ID)
	}
}

// Matches reports whether url is on the allow-list.
func (i *Interceptor) Matches(url string) bool {
	return i.patterns.Match(url)
}
