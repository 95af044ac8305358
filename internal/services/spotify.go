// Spotify Web API implementation of [PlaylistAPI]
package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/desertthunder/spotfill/internal/models"
	"github.com/desertthunder/spotfill/internal/shared"
	"github.com/zmb3/spotify/v2"
	"golang.org/x/oauth2"
)

const (
	// DefaultAPIURL is the Spotify Web API base. It must end with a slash.
	DefaultAPIURL = "https://api.spotify.com/v1/"

	// ItemsPerPage is the largest page size the API accepts for albums and tracks.
	ItemsPerPage = 50

	// AddTracksLimit is the largest number of tracks one add request accepts.
	AddTracksLimit = 100

	requestTimeout = 30 * time.Second
)

// clientTokenTransport sets the client-token header on every request.
type clientTokenTransport struct {
	token string
	base  http.RoundTripper
}

func (t *clientTokenTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.token == "" {
		return t.base.RoundTrip(req)
	}
	r := req.Clone(req.Context())
	r.Header.Set("Client-Token", t.token)
	return t.base.RoundTrip(r)
}

// BearerToken strips the scheme from an Authorization header value.
func BearerToken(authorization string) string {
	v := strings.TrimSpace(authorization)
	if len(v) >= 7 && strings.EqualFold(v[:7], "bearer ") {
		v = v[7:]
	}
	return strings.TrimSpace(v)
}

// SpotifyService implements [PlaylistAPI] with the captured web player credentials.
type SpotifyService struct {
	client *spotify.Client
}

var _ PlaylistAPI = (*SpotifyService)(nil)

// NewSpotifyService creates a service authenticated as the web player session.
//
// base is the transport under the auth layers; nil means [http.DefaultTransport].
func NewSpotifyService(creds models.CredentialPair, apiURL string, base http.RoundTripper) *SpotifyService {
	if base == nil {
		base = http.DefaultTransport
	}
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	if !strings.HasSuffix(apiURL, "/") {
		apiURL += "/"
	}

	src := oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: BearerToken(creds.Authorization),
		TokenType:   "Bearer",
	})
	httpClient := &http.Client{
		Timeout: requestTimeout,
		Transport: &oauth2.Transport{
			Source: src,
			Base:   &clientTokenTransport{token: creds.ClientToken, base: base},
		},
	}

	return &SpotifyService{client: spotify.New(httpClient, spotify.WithBaseURL(apiURL))}
}

// NewSpotifyFactory returns a [Factory] producing [SpotifyService] values against apiURL.
func NewSpotifyFactory(apiURL string, base http.RoundTripper) Factory {
	return func(creds models.CredentialPair) PlaylistAPI {
		return NewSpotifyService(creds, apiURL, base)
	}
}

func (s *SpotifyService) Name() string {
	return "Spotify"
}

// PlaylistOwner returns the owner URI of a playlist.
func (s *SpotifyService) PlaylistOwner(ctx context.Context, playlistID string) (string, error) {
	pl, err := s.client.GetPlaylist(ctx, spotify.ID(playlistID), spotify.Fields("owner(uri,id)"))
	if err != nil {
		var apiErr spotify.Error
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
			return "", fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, playlistID)
		}
		return "", wrapAPIError("get playlist", err)
	}
	if pl.Owner.URI == "" && pl.Owner.ID != "" {
		return "spotify:user:" + pl.Owner.ID, nil
	}
	return string(pl.Owner.URI), nil
}

// PlaylistTrackIDs pages through a playlist and collects track ids. Episodes and local files are skipped.
func (s *SpotifyService) PlaylistTrackIDs(ctx context.Context, playlistID string) ([]string, error) {
	var ids []string
	limit := AddTracksLimit
	offset := 0

	for {
		page, err := s.client.GetPlaylistItems(ctx, spotify.ID(playlistID), spotify.Limit(limit), spotify.Offset(offset))
		if err != nil {
			return nil, wrapAPIError("get playlist items", err)
		}

		for i := range page.Items {
			if t := page.Items[i].Track.Track; t != nil && t.ID != "" {
				ids = append(ids, string(t.ID))
			}
		}

		if len(page.Items) < limit || page.Next == "" {
			break
		}
		offset += limit
	}

	return ids, nil
}

// SavedAlbums returns one page of the user's saved album ids.
func (s *SpotifyService) SavedAlbums(ctx context.Context, limit, offset int) ([]string, bool, error) {
	if limit <= 0 || limit > ItemsPerPage {
		limit = ItemsPerPage
	}

	page, err := s.client.CurrentUsersAlbums(ctx, spotify.Limit(limit), spotify.Offset(offset))
	if err != nil {
		return nil, false, wrapAPIError("get saved albums", err)
	}

	ids := make([]string, 0, len(page.Albums))
	for _, a := range page.Albums {
		if a.ID != "" {
			ids = append(ids, string(a.ID))
		}
	}
	return ids, page.Next != "", nil
}

// AlbumTrackIDs returns up to [ItemsPerPage] track ids of an album.
func (s *SpotifyService) AlbumTrackIDs(ctx context.Context, albumID string) ([]string, error) {
	page, err := s.client.GetAlbumTracks(ctx, spotify.ID(albumID), spotify.Limit(ItemsPerPage))
	if err != nil {
		return nil, wrapAPIError("get album tracks", err)
	}

	ids := make([]string, 0, len(page.Tracks))
	for _, t := range page.Tracks {
		if t.ID != "" {
			ids = append(ids, string(t.ID))
		}
	}
	return ids, nil
}

// AddTracks appends tracks to a playlist in batches of [AddTracksLimit].
func (s *SpotifyService) AddTracks(ctx context.Context, playlistID string, trackIDs []string) error {
	for start := 0; start < len(trackIDs); start += AddTracksLimit {
		end := min(start+AddTracksLimit, len(trackIDs))

		batch := make([]spotify.ID, 0, end-start)
		for _, id := range trackIDs[start:end] {
			batch = append(batch, spotify.ID(id))
		}

		if _, err := s.client.AddTracksToPlaylist(ctx, spotify.ID(playlistID), batch...); err != nil {
			return wrapAPIError("add tracks", err)
		}
	}
	return nil
}

func wrapAPIError(op string, err error) error {
	var apiErr spotify.Error
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%w: %s: status %d: %s", shared.ErrAPIRequest, op, apiErr.Status, apiErr.Message)
	}
	return fmt.Errorf("%w: %s: %v", shared.ErrAPIRequest, op, err)
}
