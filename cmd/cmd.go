// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to configuration file",
			Value:   "config.toml",
		},
		&cli.StringFlag{
			Name:  "env-file",
			Usage: "Optional .env file with SPOTFILL_* overrides",
			Value: ".env",
		},
		&cli.StringFlag{
			Name:  "log-level",
			Usage: "Override log.level (debug, info, warn, error)",
		},
	}
}

// serveCommand runs the background daemon
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"daemon"},
		Usage:   "Watch the Spotify web player and serve the UI bridge",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "launch-browser",
				Usage: "Start Chromium with remote debugging before attaching",
			},
			&cli.BoolFlag{
				Name:  "no-cdp",
				Usage: "Do not attach to the browser; rely on POST /observe only",
			},
			&cli.StringFlag{
				Name:  "tab-url",
				Usage: "Playlist URL treated as the active tab when --no-cdp is set",
			},
		},
		Action: r.Serve,
	}
}

// startCommand sends the start command to a running daemon
func startCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "start",
		Usage: "Add random tracks to the playlist in the active tab",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "wait",
				Usage: "Stream notifications until the run settles",
				Value: true,
			},
		},
		Action: r.Start,
	}
}

// statusCommand prints the session status
func statusCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Show what the daemon has captured so far",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.Status,
	}
}

// watchCommand streams notifications
func watchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "watch",
		Usage:  "Print busy and status notifications as they happen",
		Action: r.Watch,
	}
}

// popupCommand launches the terminal popup
func popupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "popup",
		Aliases: []string{"ui", "tui"},
		Usage:   "Interactive popup with the start button and live status",
		Action:  r.Popup,
	}
}

// captureCommand feeds a request copied from DevTools to the daemon
func captureCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "capture",
		Usage: "Push a request copied from DevTools (Copy as cURL) to the daemon",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "curl",
				Usage: "cURL command from browser DevTools (Copy as cURL)",
			},
			&cli.StringFlag{
				Name:  "curl-file",
				Usage: "Path to .sh file containing cURL command",
			},
		},
		Action: r.Capture,
	}
}

// historyCommand prints the run audit log
func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Show past runs",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Output format: text, csv or markdown",
				Value:   "text",
			},
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of runs to show",
				Value: 20,
			},
			&cli.StringFlag{
				Name:  "playlist",
				Usage: "Only runs for this playlist id",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Write to a file instead of stdout",
			},
		},
		Action: r.History,
	}
}

// setupCommand handles setup operations for configuration and database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "config",
				Usage:  "Write the example configuration file",
				Action: r.SetupConfig,
			},
			{
				Name:   "database",
				Usage:  "Initialize database and run migrations",
				Action: r.SetupDatabase,
			},
			{
				Name:   "browser",
				Usage:  "Launch Chromium with remote debugging and the Spotify web player",
				Action: r.SetupBrowser,
			},
		},
	}
}
