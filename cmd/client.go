package main

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/spotfill/internal/capture"
	"github.com/desertthunder/spotfill/internal/models"
	"github.com/desertthunder/spotfill/internal/shared"
	"github.com/urfave/cli/v3"
)

// firstEventTimeout bounds the wait for the busy flag the daemon sends on subscribe.
const firstEventTimeout = 5 * time.Second

// Start sends the start command and, unless --wait=false, follows the run until it settles.
func (r *Runner) Start(ctx context.Context, cmd *cli.Command) error {
	client := r.daemon()

	if !cmd.Bool("wait") {
		if err := client.Start(ctx); err != nil {
			return fmt.Errorf("failed to send start: %w", err)
		}
		return r.writePlain("Start sent to %s\n", r.config.Server.BaseURL())
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	events, err := client.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("failed to subscribe to notifications: %w", err)
	}

	select {
	case <-events:
	case <-time.After(firstEventTimeout):
		r.logger.Debug("no initial busy flag from daemon")
	case <-ctx.Done():
		return ctx.Err()
	}

	if err := client.Start(ctx); err != nil {
		return fmt.Errorf("failed to send start: %w", err)
	}
	return r.follow(ctx, events)
}

// follow prints notifications until the run settles.
//
// A status seen before the daemon turns busy is a rejection and ends the wait.
func (r *Runner) follow(ctx context.Context, events <-chan models.Notification) error {
	running := false
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case n, ok := <-events:
			if !ok {
				return fmt.Errorf("%w: notification stream closed", shared.ErrServiceUnavailable)
			}
			switch n.Kind {
			case models.NotificationBusy:
				if n.Busy {
					running = true
					if err := r.writePlain("Running...\n"); err != nil {
						return err
					}
				} else if running {
					return nil
				}
			case models.NotificationStatus:
				if err := r.writePlain("%s\n", n.Status); err != nil {
					return err
				}
				if !running {
					return nil
				}
			}
		}
	}
}

// Status prints what the daemon has captured so far.
func (r *Runner) Status(ctx context.Context, cmd *cli.Command) error {
	st, err := r.daemon().Status(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch status: %w", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(st, true)
	}
	return r.writeStatus(st)
}

func (r *Runner) writeStatus(st models.SessionStatus) error {
	playlist := st.PlaylistID
	if playlist == "" {
		playlist = "-"
	}

	return r.writePlain(
		"State:          %s %s\n"+
			"Authorization:  %s\n"+
			"Client token:   %s\n"+
			"Identity:       %s (%s)\n"+
			"Playlist:       %s\n"+
			"Start enabled:  %t\n"+
			"Last status:    %s\n",
		st.State, st.Badge,
		captured(st.HasAuthorization),
		captured(st.HasClientToken),
		known(st.IdentityKnown), st.Strategy,
		playlist,
		st.PageEnabled,
		st.LastStatus,
	)
}

func captured(ok bool) string {
	if ok {
		return "captured"
	}
	return "missing"
}

func known(ok bool) string {
	if ok {
		return "known"
	}
	return "unknown"
}

// Watch prints notifications until interrupted or the daemon goes away.
func (r *Runner) Watch(ctx context.Context, cmd *cli.Command) error {
	events, err := r.daemon().Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("failed to subscribe to notifications: %w", err)
	}

	r.logger.Info("watching notifications", "daemon", r.config.Server.BaseURL())
	for n := range events {
		if err := r.writePlain("%s  %s\n", time.Now().Format(time.TimeOnly), n); err != nil {
			return err
		}
	}

	if ctx.Err() != nil {
		return nil
	}
	return fmt.Errorf("%w: notification stream closed", shared.ErrServiceUnavailable)
}

// Capture pushes a request copied from DevTools to the daemon's interceptor.
func (r *Runner) Capture(ctx context.Context, cmd *cli.Command) error {
	curlCmd := cmd.String("curl")
	curlFile := cmd.String("curl-file")

	if curlCmd == "" && curlFile == "" {
		return fmt.Errorf("%w: either --curl or --curl-file must be provided", shared.ErrMissingArgument)
	}

	if curlCmd != "" && curlFile != "" {
		return fmt.Errorf("%w: cannot specify both --curl and --curl-file", shared.ErrInvalidArgument)
	}

	var parsed *shared.CurlRequest
	var err error

	if curlFile != "" {
		parsed, err = shared.ParseCurlFile(curlFile)
		if err != nil {
			return fmt.Errorf("failed to parse cURL file: %w", err)
		}
		r.logger.Debug("parsed cURL from file", "file", curlFile)
	} else {
		parsed, err = shared.ParseCurlCommand(curlCmd)
		if err != nil {
			return fmt.Errorf("failed to parse cURL command: %w", err)
		}
	}

	req := capture.RequestFromCurl(parsed)
	client := r.daemon()
	if err := client.Observe(ctx, req); err != nil {
		return fmt.Errorf("failed to push request: %w", err)
	}
	r.logger.Info("request pushed", "url", req.URL, "headers", len(req.Headers))

	st, err := client.Status(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch status: %w", err)
	}
	return r.writePlain("Authorization: %s\nClient token:  %s\n", captured(st.HasAuthorization), captured(st.HasClientToken))
}
