package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotfill/internal/bridge"
	"github.com/desertthunder/spotfill/internal/capture"
	"github.com/desertthunder/spotfill/internal/cdp"
	"github.com/desertthunder/spotfill/internal/identity"
	"github.com/desertthunder/spotfill/internal/repositories"
	"github.com/desertthunder/spotfill/internal/server"
	"github.com/desertthunder/spotfill/internal/services"
	"github.com/desertthunder/spotfill/internal/session"
	"github.com/desertthunder/spotfill/internal/shared"
	"github.com/desertthunder/spotfill/internal/tabs"
	"github.com/desertthunder/spotfill/internal/tasks"
	"github.com/urfave/cli/v3"
)

const (
	connectAttempts = 20
	connectBackoff  = 500 * time.Millisecond
)

// daemon is the assembled background process: interceptor, identity resolver, controller and UI bridge.
type daemon struct {
	hub         *capture.Hub
	broker      *bridge.Broker
	interceptor *capture.Interceptor
	controller  *session.Controller
	resolver    identity.Resolver
	identitySub *capture.Subscription
	router      *server.BasicRouter
}

// observe forwards to the interceptor once it exists. Requests seen before that are dropped.
func (d *daemon) observe(req capture.Request) {
	if d.interceptor != nil {
		d.interceptor.Observe(req)
	}
}

// newOperation builds the playlist operation named by cfg.Kind.
func newOperation(cfg shared.OperationConfig, logger *log.Logger) (session.Operation, error) {
	switch cfg.Kind {
	case "fill":
		return tasks.NewFillEngine(services.NewSpotifyFactory(cfg.APIURL, nil), cfg, logger), nil
	case "exec":
		return services.NewExecOperation(cfg.Command, cfg.Args, logger)
	default:
		return nil, fmt.Errorf("%w: unknown operation kind %q", shared.ErrInvalidConfig, cfg.Kind)
	}
}

// build wires every component around source. recorder may be nil.
func (d *daemon) build(ctx context.Context, cfg *shared.Config, source tabs.Source, recorder session.RunRecorder, logger *log.Logger) error {
	op, err := newOperation(cfg.Operation, logger.WithPrefix("operation"))
	if err != nil {
		return err
	}

	resolver, err := identity.New(cfg.Identity, &http.Client{}, logger.WithPrefix("identity"))
	if err != nil {
		return err
	}

	d.hub = capture.NewHub()
	d.broker = bridge.NewBroker(logger.WithPrefix("bridge"))
	d.resolver = resolver

	opts := []session.Option{session.WithOperationKind(cfg.Operation.Kind)}
	if recorder != nil {
		opts = append(opts, session.WithRecorder(recorder))
	}
	d.controller = session.NewController(
		resolver,
		tabs.NewReader(source, cfg.Tabs.PlaylistPrefix),
		op,
		d.broker,
		logger.WithPrefix("session"),
		opts...,
	)

	d.interceptor = capture.NewInterceptor(cfg.Capture, d.controller, d.hub, logger.WithPrefix("capture"))
	d.identitySub = resolver.Attach(ctx, d.hub, d.controller)

	d.router = server.NewBasicRouter()
	d.router.Use(server.RequestLogger(logger), server.Recoverer(logger))
	d.router.Handler(capture.NewHandler(capture.ObserverFunc(d.observe), logger.WithPrefix("observe")))
	d.router.Handler(bridge.NewHandler(ctx, d.controller, d.broker, logger.WithPrefix("bridge"),
		bridge.WithTabs(source, tabs.NewPageRule(cfg.Tabs), cfg.Tabs.PlaylistPrefix)))
	return nil
}

// shutdown waits for the in-flight run and detaches from the request stream.
func (d *daemon) shutdown() {
	if d.identitySub != nil {
		d.identitySub.Cancel()
	}
	if d.controller != nil {
		d.controller.Wait()
	}
}

// Serve runs the daemon until the process is interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	if cmd.Bool("launch-browser") {
		if err := r.launchBrowser(); err != nil {
			return err
		}
	}

	db, err := shared.OpenDatabase(r.config.Database)
	if err != nil {
		return fmt.Errorf("failed to open run history: %w", err)
	}
	defer db.Close()

	d := &daemon{}

	var source tabs.Source
	var browser *cdp.Client
	if cmd.Bool("no-cdp") {
		source = &tabs.StaticSource{Tab: tabs.Tab{ID: "static", URL: cmd.String("tab-url")}}
		r.logger.Info("browser attachment disabled, waiting for POST /observe", "tab_url", cmd.String("tab-url"))
	} else {
		browser = cdp.NewClient(r.config.Browser, capture.ObserverFunc(d.observe), r.logger.WithPrefix("cdp"))
		source = browser
	}

	if err := d.build(ctx, r.config, source, runRecorder(db), r.logger); err != nil {
		return err
	}
	defer d.shutdown()

	if browser != nil {
		if err := connect(ctx, browser, r.logger); err != nil {
			return err
		}
		defer browser.Close()
		go browser.Run(ctx)
	}

	r.logger.Info("spotfill daemon ready",
		"addr", r.config.Server.Addr(),
		"strategy", d.resolver.Strategy(),
		"operation", r.config.Operation.Kind,
	)

	if err := server.ListenAndServe(ctx, r.config.Server.Addr(), d.router, r.logger); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func runRecorder(db *sql.DB) session.RunRecorder {
	if db == nil {
		return nil
	}
	return repositories.NewRunRepository(db)
}

// connect retries while a freshly launched browser opens its DevTools port.
func connect(ctx context.Context, browser *cdp.Client, logger *log.Logger) error {
	var err error
	for attempt := 1; attempt <= connectAttempts; attempt++ {
		if err = browser.Connect(ctx); err == nil {
			return nil
		}
		if !errors.Is(err, shared.ErrServiceUnavailable) {
			return err
		}
		logger.Debug("browser not reachable yet", "attempt", attempt, "error", err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(connectBackoff):
		}
	}
	return fmt.Errorf("failed to attach to browser at %s: %w", browser.URL(), err)
}

func (r *Runner) launchBrowser() error {
	proc, err := shared.LaunchBrowser(r.config.Browser)
	if err != nil {
		return err
	}
	r.logger.Info("browser launched", "pid", proc.Process.Pid, "cdp", r.config.Browser.CDPURL)
	return nil
}
