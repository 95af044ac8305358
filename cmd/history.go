package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/spotfill/internal/formatter"
	"github.com/desertthunder/spotfill/internal/repositories"
	"github.com/desertthunder/spotfill/internal/shared"
	"github.com/urfave/cli/v3"
)

// History prints the run audit log, newest first.
func (r *Runner) History(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	limit := cmd.Int("limit")
	if limit <= 0 {
		return fmt.Errorf("%w: --limit must be positive", shared.ErrInvalidArgument)
	}

	db, err := shared.OpenDatabase(r.config.Database)
	if err != nil {
		return fmt.Errorf("failed to open run history: %w", err)
	}
	defer db.Close()

	criteria := map[string]any{"limit": limit}
	if playlist := cmd.String("playlist"); playlist != "" {
		criteria["playlist_id"] = playlist
	}

	runs, err := repositories.NewRunRepository(db).List(criteria)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}
	r.logger.Debug("loaded run history", "count", len(runs))

	if path := cmd.String("output"); path != "" {
		if err := formatter.WriteExport(format, runs, path); err != nil {
			return err
		}
		r.logger.Info("run history exported", "path", path, "format", format, "runs", len(runs))
		return nil
	}

	data, err := formatter.Render(format, runs)
	if err != nil {
		return err
	}
	if _, err := r.output.Write(data); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
