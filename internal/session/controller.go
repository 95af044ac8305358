package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotfill/internal/capture"
	"github.com/desertthunder/spotfill/internal/identity"
	"github.com/desertthunder/spotfill/internal/models"
	"github.com/desertthunder/spotfill/internal/shared"
	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"
)

// User-facing status strings.
const (
	MsgAlreadyRunning     = "Already running. Restart the browser if stuck on this message."
	MsgNoPlaylistTab      = "Cannot get playlist tab URL. Reload the page and try again."
	MsgIdentityFailed     = "Error while fetching user details from Spotify. Reload the page and try again."
	MsgMissingIdentity    = "Missing user details. Reload the page and try again."
	MsgMissingCredentials = "Missing Spotify credentials. Reload the page and try again."
	MsgSuccess            = "Random tracks added to the playlist."
)

// BusyBadge is shown next to the session while a run is in flight.
const BusyBadge = "..."

// Notifier delivers notifications to UI surfaces.
type Notifier interface {
	Busy(busy bool)
	Status(status string)
}

// Operation is the playlist operation. progress may be called with intermediate status strings.
type Operation interface {
	Run(ctx context.Context, snap models.Snapshot, progress func(string)) error
}

// OperationFunc adapts a function to [Operation].
type OperationFunc func(ctx context.Context, snap models.Snapshot, progress func(string)) error

func (f OperationFunc) Run(ctx context.Context, snap models.Snapshot, progress func(string)) error {
	return f(ctx, snap, progress)
}

// PlaylistReader reads the playlist id of the active tab.
type PlaylistReader interface {
	ReadPlaylistID(ctx context.Context) (string, error)
}

// RunRecorder keeps an audit trail of runs.
type RunRecorder interface {
	Started(run *models.RunRecord) error
	Finished(run *models.RunRecord) error
}

// Controller is the single-flight state machine between UI commands and the playlist operation.
type Controller struct {
	session  *Session
	resolver identity.Resolver
	reader   PlaylistReader
	op       Operation
	notifier Notifier
	logger   *log.Logger

	recorder      RunRecorder
	operationKind string

	permit   *semaphore.Weighted
	identity singleflight.Group
	inflight sync.WaitGroup
}

var (
	_ capture.CredentialSink = (*Controller)(nil)
	_ identity.Sink          = (*Controller)(nil)
)

// Option configures a [Controller].
type Option func(*Controller)

// WithRecorder records every run with r.
func WithRecorder(r RunRecorder) Option {
	return func(c *Controller) { c.recorder = r }
}

// WithOperationKind names the operation in run records.
func WithOperationKind(kind string) Option {
	return func(c *Controller) { c.operationKind = kind }
}

// NewController creates a [Controller] with an empty session.
func NewController(resolver identity.Resolver, reader PlaylistReader, op Operation, notifier Notifier, logger *log.Logger, opts ...Option) *Controller {
	c := &Controller{
		session:       &Session{},
		resolver:      resolver,
		reader:        reader,
		op:            op,
		notifier:      notifier,
		logger:        logger,
		operationKind: "fill",
		permit:        semaphore.NewWeighted(1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// StoreCredential implements [capture.CredentialSink]. Each field is overwritten independently.
func (c *Controller) StoreCredential(field capture.CredentialField, value string) {
	switch field {
	case capture.FieldAuthorization:
		c.session.setAuthorization(value)
	case capture.FieldClientToken:
		c.session.setClientToken(value)
	}
}

// Credentials implements [identity.Sink].
func (c *Controller) Credentials() models.CredentialPair {
	return c.session.credentials()
}

// IdentityKnown implements [identity.Sink].
func (c *Controller) IdentityKnown() bool {
	return c.session.identityValue().Known()
}

// AdoptIdentity implements [identity.Sink]. Only the first known identity is kept.
func (c *Controller) AdoptIdentity(id models.Identity) bool {
	return c.session.adopt(id)
}

// Identity returns the cached identity, if any.
func (c *Controller) Identity() models.Identity {
	return c.session.identityValue()
}

// HandleCommand dispatches a UI command. Unknown actions are logged and ignored.
func (c *Controller) HandleCommand(ctx context.Context, cmd models.Command) error {
	switch cmd.Action {
	case models.ActionStart:
		c.logger.Info("start command received")
		return c.Start(ctx)
	default:
		c.logger.Error("unexpected UI command, this is a bug", "action", cmd.Action)
		return fmt.Errorf("%w: %q", shared.ErrUnknownCommand, cmd.Action)
	}
}

// Start runs the playlist operation for the active tab if every precondition holds.
//
// It blocks until the operation settles. The returned error is the reason the run did not start or failed.
func (c *Controller) Start(ctx context.Context) error {
	c.inflight.Add(1)
	defer c.inflight.Done()

	if c.session.isBusy() {
		c.notifier.Status(MsgAlreadyRunning)
		return shared.ErrAlreadyRunning
	}

	playlistID, err := c.reader.ReadPlaylistID(ctx)
	if err != nil {
		c.logger.Warn("no playlist tab", "error", err)
		c.notifier.Status(MsgNoPlaylistTab)
		return err
	}

	who, err := c.ensureIdentity(ctx)
	if err != nil {
		return err
	}

	creds := c.session.credentials()
	if !creds.Complete() {
		c.logger.Warn("credentials incomplete",
			"authorization", shared.Redact(creds.Authorization),
			"client_token", shared.Redact(creds.ClientToken))
		c.notifier.Status(MsgMissingCredentials)
		return shared.ErrMissingCredentials
	}

	if !c.permit.TryAcquire(1) {
		c.notifier.Status(MsgAlreadyRunning)
		return shared.ErrAlreadyRunning
	}

	return c.run(ctx, models.Snapshot{Credentials: creds, Identity: who, PlaylistID: playlistID})
}

// ensureIdentity returns the cached identity or resolves it, sharing one lookup between concurrent callers.
func (c *Controller) ensureIdentity(ctx context.Context) (models.Identity, error) {
	if id := c.session.identityValue(); id.Known() {
		return id, nil
	}

	c.session.beginResolving()
	v, err, coalesced := c.identity.Do("identity", func() (any, error) {
		id, err := c.resolver.Resolve(ctx, c.session.credentials())
		if err != nil {
			return models.Identity{}, err
		}
		c.session.adopt(id)
		return id, nil
	})
	c.session.endResolving()

	if err != nil {
		c.logger.Error("identity resolution failed", "strategy", c.resolver.Strategy(), "coalesced", coalesced, "error", err)
		c.notifier.Status(MsgIdentityFailed)
		return models.Identity{}, err
	}

	// a concurrent adoption (spoof) may have landed first
	if id := c.session.identityValue(); id.Known() {
		return id, nil
	}
	if id, _ := v.(models.Identity); id.Known() {
		return id, nil
	}

	c.notifier.Status(MsgMissingIdentity)
	return models.Identity{}, shared.ErrMissingIdentity
}

func (c *Controller) run(ctx context.Context, snap models.Snapshot) (err error) {
	c.session.setBusy(true)
	c.notifier.Busy(true)

	record := models.NewRunRecord(snap.PlaylistID, c.resolver.Strategy(), c.operationKind)
	c.recordStarted(record)

	defer func() {
		c.recordFinished(record, err)
		c.session.setBusy(false)
		c.permit.Release(1)
		c.notifier.Busy(false)
	}()

	c.logger.Info("operation started", "playlist", snap.PlaylistID, "user", snap.Identity.URI)

	err = c.invoke(ctx, snap)
	if err != nil {
		c.logger.Error("operation failed", "playlist", snap.PlaylistID, "error", err)
		c.notifier.Status(err.Error())
		return err
	}

	c.logger.Info("operation finished", "playlist", snap.PlaylistID)
	c.notifier.Status(MsgSuccess)
	return nil
}

// invoke calls the operation, converting a panic into an error.
func (c *Controller) invoke(ctx context.Context, snap models.Snapshot) (err error) {
	defer func() {
		if rv := recover(); rv != nil {
			err = fmt.Errorf("operation panicked: %v", rv)
		}
	}()
	return c.op.Run(ctx, snap, c.notifier.Status)
}

func (c *Controller) recordStarted(record *models.RunRecord) {
	if c.recorder == nil {
		return
	}
	if err := c.recorder.Started(record); err != nil {
		c.logger.Warn("failed to record run start", "error", err)
	}
}

func (c *Controller) recordFinished(record *models.RunRecord, err error) {
	if c.recorder == nil {
		return
	}
	record.Finish(err)
	if record.ID() == "" {
		return
	}
	if rerr := c.recorder.Finished(record); rerr != nil {
		c.logger.Warn("failed to record run outcome", "error", rerr)
	}
}

// Status returns a read-only view of the session.
func (c *Controller) Status() models.SessionStatus {
	creds := c.session.credentials()
	st := models.SessionStatus{
		State:            c.session.state(),
		Busy:             c.session.isBusy(),
		HasAuthorization: creds.Authorization != "",
		HasClientToken:   creds.ClientToken != "",
		IdentityKnown:    c.session.identityValue().Known(),
		Strategy:         c.resolver.Strategy(),
	}
	if st.Busy {
		st.Badge = BusyBadge
	}
	return st
}

// Wait blocks until every in-flight start command has returned.
func (c *Controller) Wait() {
	c.inflight.Wait()
}

// IsAdmissionError reports whether err means the run never started.
func IsAdmissionError(err error) bool {
	return errors.Is(err, shared.ErrAlreadyRunning) ||
		errors.Is(err, shared.ErrMissingTab) ||
		errors.Is(err, shared.ErrIdentity) ||
		errors.Is(err, shared.ErrMissingIdentity) ||
		errors.Is(err, shared.ErrMissingCredentials)
}
