package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/spotfill/internal/shared"
	"github.com/urfave/cli/v3"
)

// SetupConfig writes the example configuration to --config.
func (r *Runner) SetupConfig(ctx context.Context, cmd *cli.Command) error {
	if err := shared.CreateConfigFile(r.configPath); err != nil {
		return err
	}
	r.logger.Info("config file created", "path", r.configPath)
	return r.writePlain("Wrote %s\nEdit [identity] and [operation], then run 'spotfill serve'.\n", r.configPath)
}

// SetupDatabase initializes the database and runs migrations.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	r.logger.Info("initializing database", "path", r.config.Database.Path)

	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}
	defer db.Close()

	shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)

	r.logger.Info("running database migrations")
	if err := shared.RunMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	r.logger.Infof("setup complete for database: %v", r.config.Database.Path)
	return nil
}

// SetupBrowser starts Chromium with remote debugging on the web player.
func (r *Runner) SetupBrowser(ctx context.Context, cmd *cli.Command) error {
	if err := r.launchBrowser(); err != nil {
		return err
	}
	return r.writePlain("Log in at %s, open a playlist, then run 'spotfill serve'.\n", r.config.Browser.StartURL)
}
