package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotfill/internal/models"
	"github.com/desertthunder/spotfill/internal/server"
	"github.com/desertthunder/spotfill/internal/tabs"
	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
)

const (
	maxCommandBody = 4 << 10
	writeTimeout   = 5 * time.Second
)

// Commander is the controller side of the bridge.
type Commander interface {
	HandleCommand(ctx context.Context, cmd models.Command) error
	Status() models.SessionStatus
}

// Handler serves the UI bridge endpoints. Implements [server.Handler].
type Handler struct {
	ctx       context.Context
	commander Commander
	broker    *Broker
	source    tabs.Source
	rule      tabs.PageRule
	prefix    string
	logger    *log.Logger
}

var _ server.Handler = (*Handler)(nil)

// HandlerOption configures a [Handler].
type HandlerOption func(*Handler)

// WithTabs adds active tab details (playlist id, page rule) to /status.
func WithTabs(source tabs.Source, rule tabs.PageRule, prefix string) HandlerOption {
	return func(h *Handler) {
		h.source = source
		h.rule = rule
		h.prefix = prefix
	}
}

// NewHandler creates a bridge [Handler]. Commands run on ctx, not on the request context.
func NewHandler(ctx context.Context, commander Commander, broker *Broker, logger *log.Logger, opts ...HandlerOption) *Handler {
	h := &Handler{ctx: ctx, commander: commander, broker: broker, logger: logger}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Routes returns the HTTP routes this handler serves.
func (h *Handler) Routes() []string {
	return []string{"POST /command", "GET /events", "GET /status"}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/command":
		h.handleCommand(w, r)
	case "/events":
		h.handleEvents(w, r)
	case "/status":
		h.handleStatus(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (h *Handler) handleCommand(w http.ResponseWriter, r *http.Request) {
	var cmd models.Command
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxCommandBody)).Decode(&cmd); err != nil {
		h.logger.Warn("malformed UI command", "error", err)
		server.WriteError(w, http.StatusBadRequest, "malformed command")
		return
	}

	go func() {
		if err := h.commander.HandleCommand(h.ctx, cmd); err != nil {
			h.logger.Debug("command finished with error", "action", cmd.Action, "error", err)
		}
	}()

	_ = server.WriteJSON(w, http.StatusAccepted, map[string]string{"action": cmd.Action})
}

// Status builds the /status payload.
func (h *Handler) Status(ctx context.Context) models.SessionStatus {
	st := h.commander.Status()
	st.LastStatus = h.broker.LastStatus()

	if h.source != nil {
		if tab, err := h.source.ActiveTab(ctx); err == nil {
			st.PageEnabled = h.rule.Matches(tab.URL)
			if id, ok := tabs.PlaylistID(tab.URL, h.prefix); ok {
				st.PlaylistID = id
			}
		}
	}
	return st
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	_ = server.WriteJSON(w, http.StatusOK, h.Status(r.Context()))
}

func (h *Handler) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, _, _, err := ws.UpgradeHTTP(r, w)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	id, ch := h.broker.Subscribe()
	defer h.broker.Unsubscribe(id)
	h.logger.Debug("UI client connected", "subscriber", id)

	var writeMu sync.Mutex
	write := func(n models.Notification) error {
		data, err := json.Marshal(n)
		if err != nil {
			return err
		}
		writeMu.Lock()
		defer writeMu.Unlock()
		_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		return wsutil.WriteServerText(conn, data)
	}

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		readUntilClose(conn)
	}()

	if err := write(models.BusyNotification(h.commander.Status().Busy)); err != nil {
		return
	}

	for {
		select {
		case <-closed:
			return
		case <-h.ctx.Done():
			writeMu.Lock()
			_ = ws.WriteFrame(conn, ws.NewCloseFrame(ws.NewCloseFrameBody(ws.StatusGoingAway, "shutting down")))
			writeMu.Unlock()
			return
		case n, ok := <-ch:
			if !ok {
				return
			}
			if err := write(n); err != nil {
				h.logger.Debug("UI client write failed", "subscriber", id, "error", err)
				return
			}
		}
	}
}

// readUntilClose drains client frames until a close frame or a read error. Clients never send data.
func readUntilClose(conn net.Conn) {
	for {
		hdr, err := ws.ReadHeader(conn)
		if err != nil {
			return
		}
		if _, err := io.CopyN(io.Discard, conn, hdr.Length); err != nil && !errors.Is(err, io.EOF) {
			return
		}
		if hdr.OpCode == ws.OpClose {
			return
		}
	}
}
