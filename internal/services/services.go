// package services defines the Spotify API surface the playlist operations run against
package services

import (
	"context"

	"github.com/desertthunder/spotfill/internal/models"
)

// PlaylistAPI is the slice of the Spotify Web API the fill engine needs.
type PlaylistAPI interface {
	// PlaylistOwner returns the owner URI of a playlist (spotify:user:...).
	PlaylistOwner(ctx context.Context, playlistID string) (string, error)

	// PlaylistTrackIDs returns the ids of every track already in a playlist.
	PlaylistTrackIDs(ctx context.Context, playlistID string) ([]string, error)

	// SavedAlbums returns one page of album ids from the user's library and whether more pages exist.
	SavedAlbums(ctx context.Context, limit, offset int) (ids []string, more bool, err error)

	// AlbumTrackIDs returns the ids of the tracks on an album.
	AlbumTrackIDs(ctx context.Context, albumID string) ([]string, error)

	// AddTracks appends tracks to a playlist.
	AddTracks(ctx context.Context, playlistID string, trackIDs []string) error

	// Name returns the name of the service
	Name() string
}

// Factory builds a [PlaylistAPI] authenticated with captured credentials.
type Factory func(creds models.CredentialPair) PlaylistAPI
