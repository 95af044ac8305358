package main

import (
	"context"
	"io"

	"github.com/desertthunder/spotfill/internal/shared"
	"github.com/desertthunder/spotfill/internal/ui"
	"github.com/urfave/cli/v3"
)

// Popup launches the interactive popup against the running daemon.
//
// Logs go to log.file while the popup owns the terminal, or nowhere when it is unset.
func (r *Runner) Popup(ctx context.Context, cmd *cli.Command) error {
	prev := r.logger
	if r.config.Log.File != "" {
		r.SetLogger(shared.NewLogger(shared.RotatingWriter(r.config.Log.File)))
	} else {
		r.SetLogger(shared.NewLogger(io.Discard))
	}
	defer func() { r.logger = prev }()

	r.logger.Info("popup opened", "daemon", r.config.Server.BaseURL())
	err := ui.Run(ctx, r.daemon())
	r.logger.Info("popup closed", "error", err)
	return err
}
