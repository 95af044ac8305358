// package tasks implements the built-in playlist operations.
//
// The core abstraction is FillEngine, which tops a playlist up with random tracks from the user's saved albums.
// Operations emit progress updates via channels for non-blocking status reporting to CLI/UI layers.
package tasks

import (
	"context"
	"fmt"
	"math/rand/v2"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotfill/internal/models"
	"github.com/desertthunder/spotfill/internal/services"
	"github.com/desertthunder/spotfill/internal/shared"
	"golang.org/x/time/rate"
)

const (
	// DefaultTargetSize is how many tracks one run adds.
	DefaultTargetSize = 10

	// DefaultTracksPerAlbum is how many tracks are taken from one album at once.
	DefaultTracksPerAlbum = 3

	progressBufSize = 16
)

// FillResult contains the outcome of a fill run.
type FillResult struct {
	PlaylistID    string
	Added         []string // Track ids added, in order
	AlbumsTotal   int      // Saved albums available
	AlbumsVisited int      // Albums whose tracks were fetched
}

// ShuffleFunc reorders n elements through swap, like [rand.Shuffle].
type ShuffleFunc func(n int, swap func(i, j int))

// FillEngine adds random tracks from the user's saved albums to a playlist.
type FillEngine struct {
	factory        services.Factory
	limiter        *rate.Limiter
	shuffle        ShuffleFunc
	targetSize     int
	tracksPerAlbum int
	logger         *log.Logger
}

// FillOption configures a [FillEngine].
type FillOption func(*FillEngine)

// WithShuffle replaces the random shuffle.
func WithShuffle(fn ShuffleFunc) FillOption {
	return func(e *FillEngine) { e.shuffle = fn }
}

// WithLimiter replaces the request limiter.
func WithLimiter(l *rate.Limiter) FillOption {
	return func(e *FillEngine) { e.limiter = l }
}

// NewFillEngine creates a [FillEngine]. Zero sizes in cfg fall back to the defaults; a rate limit
// of zero or less disables pacing.
func NewFillEngine(factory services.Factory, cfg shared.OperationConfig, logger *log.Logger, opts ...FillOption) *FillEngine {
	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}

	e := &FillEngine{
		factory:        factory,
		limiter:        rate.NewLimiter(limit, 1),
		shuffle:        rand.Shuffle,
		targetSize:     cfg.TargetSize,
		tracksPerAlbum: cfg.TracksPerAlbum,
		logger:         logger,
	}
	if e.targetSize <= 0 {
		e.targetSize = DefaultTargetSize
	}
	if e.tracksPerAlbum <= 0 {
		e.tracksPerAlbum = DefaultTracksPerAlbum
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// sendProgress sends a progress update through the channel without blocking.
func (e *FillEngine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

func (e *FillEngine) wait(ctx context.Context) error {
	if err := e.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrTimeout, err)
	}
	return nil
}

// Run implements the controller's operation contract. Progress messages are forwarded to progress.
func (e *FillEngine) Run(ctx context.Context, snap models.Snapshot, progress func(string)) error {
	updates := make(chan ProgressUpdate, progressBufSize)
	done := make(chan struct{})

	go func() {
		defer close(done)
		for u := range updates {
			if progress != nil {
				progress(u.Message)
			}
		}
	}()

	result, err := e.Fill(ctx, snap, updates)
	close(updates)
	<-done

	if err != nil {
		return err
	}
	e.logger.Info("playlist filled", "playlist", result.PlaylistID, "added", len(result.Added), "albums_visited", result.AlbumsVisited)
	return nil
}

// Fill tops the snapshot's playlist up with random tracks.
func (e *FillEngine) Fill(ctx context.Context, snap models.Snapshot, progress chan<- ProgressUpdate) (*FillResult, error) {
	if e.factory == nil {
		return nil, fmt.Errorf("%w: Spotify service not initialized", shared.ErrServiceUnavailable)
	}
	if !snap.Credentials.Complete() {
		return nil, shared.ErrMissingCredentials
	}
	if !snap.Identity.Known() {
		return nil, shared.ErrMissingIdentity
	}

	api := e.factory(snap.Credentials)
	result := &FillResult{PlaylistID: snap.PlaylistID}

	e.sendProgress(progress, checkOwnerUpdate())
	if err := e.wait(ctx); err != nil {
		return nil, err
	}
	owner, err := api.PlaylistOwner(ctx, snap.PlaylistID)
	if err != nil {
		return nil, err
	}
	if owner != snap.Identity.URI {
		return nil, fmt.Errorf("%w: owned by %s", shared.ErrNotPlaylistOwner, owner)
	}

	if err := e.wait(ctx); err != nil {
		return nil, err
	}
	existingIDs, err := api.PlaylistTrackIDs(ctx, snap.PlaylistID)
	if err != nil {
		return nil, err
	}
	e.sendProgress(progress, loadPlaylistUpdate(len(existingIDs)))

	taken := make(map[string]struct{}, len(existingIDs)+e.targetSize)
	for _, id := range existingIDs {
		taken[id] = struct{}{}
	}

	albums, err := e.savedAlbums(ctx, api, progress)
	if err != nil {
		return nil, err
	}
	result.AlbumsTotal = len(albums)
	if len(albums) == 0 {
		return nil, fmt.Errorf("%w: no saved albums", shared.ErrNothingToAdd)
	}

	e.shuffle(len(albums), func(i, j int) { albums[i], albums[j] = albums[j], albums[i] })

	picked := make([]string, 0, e.targetSize)
	for _, albumID := range albums {
		if len(picked) >= e.targetSize {
			break
		}

		if err := e.wait(ctx); err != nil {
			return nil, err
		}
		tracks, err := api.AlbumTrackIDs(ctx, albumID)
		if err != nil {
			return nil, err
		}
		result.AlbumsVisited++

		e.shuffle(len(tracks), func(i, j int) { tracks[i], tracks[j] = tracks[j], tracks[i] })

		fromAlbum := 0
		for _, id := range tracks {
			if fromAlbum >= e.tracksPerAlbum || len(picked) >= e.targetSize {
				break
			}
			if _, ok := taken[id]; ok {
				continue
			}
			taken[id] = struct{}{}
			picked = append(picked, id)
			fromAlbum++
		}

		e.sendProgress(progress, pickTracksUpdate(len(picked), e.targetSize))
	}

	if len(picked) == 0 {
		return nil, fmt.Errorf("%w: every saved track is already in the playlist", shared.ErrNothingToAdd)
	}

	e.sendProgress(progress, addTracksUpdate(len(picked)))
	if err := e.wait(ctx); err != nil {
		return nil, err
	}
	if err := api.AddTracks(ctx, snap.PlaylistID, picked); err != nil {
		return nil, err
	}

	result.Added = picked
	return result, nil
}

// savedAlbums pages through the user's library.
func (e *FillEngine) savedAlbums(ctx context.Context, api services.PlaylistAPI, progress chan<- ProgressUpdate) ([]string, error) {
	var all []string
	offset := 0

	for page := 1; ; page++ {
		if err := e.wait(ctx); err != nil {
			return nil, err
		}
		ids, more, err := api.SavedAlbums(ctx, services.ItemsPerPage, offset)
		if err != nil {
			return nil, err
		}
		all = append(all, ids...)
		e.sendProgress(progress, loadAlbumsUpdate(page, len(all)))

		if !more || len(ids) == 0 {
			break
		}
		offset += services.ItemsPerPage
	}
	return all, nil
}
