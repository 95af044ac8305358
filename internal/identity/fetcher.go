package identity

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/desertthunder/spotfill/internal/models"
	"github.com/desertthunder/spotfill/internal/shared"
	"github.com/tidwall/gjson"
)

// maxProfileBody bounds the profile response read into memory.
const maxProfileBody = 1 << 20

// Fetcher issues the profile GET and extracts the identity fields.
type Fetcher struct {
	client   *http.Client
	endpoint string
	uriPath  string
	idPath   string
	timeout  time.Duration
}

// NewFetcher creates a [Fetcher] for the configured endpoint and response paths.
func NewFetcher(cfg shared.IdentityConfig, client *http.Client) *Fetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &Fetcher{
		client:   client,
		endpoint: cfg.Endpoint,
		uriPath:  cfg.URIPath,
		idPath:   cfg.IDPath,
		timeout:  timeout(cfg),
	}
}

// Fetch sends one GET with header and parses the identity out of the JSON body.
func (f *Fetcher) Fetch(ctx context.Context, header http.Header) (models.Identity, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.endpoint, nil)
	if err != nil {
		return models.Identity{}, fmt.Errorf("%w: failed to create request: %v", shared.ErrIdentity, err)
	}
	req.Header = header

	resp, err := f.client.Do(req)
	if err != nil {
		return models.Identity{}, fmt.Errorf("%w: %v", shared.ErrIdentity, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxProfileBody))
	if err != nil {
		return models.Identity{}, fmt.Errorf("%w: failed to read response: %v", shared.ErrIdentity, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return models.Identity{}, fmt.Errorf("%w: profile endpoint returned status %d", shared.ErrIdentity, resp.StatusCode)
	}

	return f.Parse(body)
}

// Parse extracts the identity from a profile response body.
//
// Invalid JSON is an error; missing paths become empty fields.
func (f *Fetcher) Parse(body []byte) (models.Identity, error) {
	if !gjson.ValidBytes(body) {
		return models.Identity{}, fmt.Errorf("%w: profile response is not valid JSON", shared.ErrIdentity)
	}

	id := models.Identity{URI: gjson.GetBytes(body, f.uriPath).String()}
	if f.idPath != "" {
		id.ID = gjson.GetBytes(body, f.idPath).String()
	}
	return id, nil
}
