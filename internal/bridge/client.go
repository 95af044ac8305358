package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/desertthunder/spotfill/internal/capture"
	"github.com/desertthunder/spotfill/internal/models"
	"github.com/desertthunder/spotfill/internal/shared"
	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
)

// Client talks to a running daemon.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a [Client] for the daemon at baseURL (http://host:port).
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
}

// SendCommand posts a UI command. The daemon acknowledges before the command runs.
func (c *Client) SendCommand(ctx context.Context, cmd models.Command) error {
	return c.post(ctx, "/command", cmd, http.StatusAccepted)
}

// Start sends the start command.
func (c *Client) Start(ctx context.Context) error {
	return c.SendCommand(ctx, models.Command{Action: models.ActionStart})
}

// Observe pushes an observed request to the daemon's interceptor.
func (c *Client) Observe(ctx context.Context, req capture.Request) error {
	return c.post(ctx, "/observe", req, http.StatusNoContent)
}

// Status fetches the session status.
func (c *Client) Status(ctx context.Context) (models.SessionStatus, error) {
	var st models.SessionStatus

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/status", nil)
	if err != nil {
		return st, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return st, fmt.Errorf("%w: %v", shared.ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return st, fmt.Errorf("%w: status endpoint returned %d", shared.ErrAPIRequest, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		return st, fmt.Errorf("failed to decode status: %w", err)
	}
	return st, nil
}

// Subscribe opens the notification stream. The channel closes when ctx is cancelled or the daemon goes away.
func (c *Client) Subscribe(ctx context.Context) (<-chan models.Notification, error) {
	wsURL := "ws" + strings.TrimPrefix(c.baseURL, "http") + "/events"

	conn, br, _, err := ws.Dial(ctx, wsURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrServiceUnavailable, err)
	}

	// frames sent right after the handshake may already sit in br
	var rw io.ReadWriter = conn
	if br != nil {
		rw = struct {
			io.Reader
			io.Writer
		}{br, conn}
	}

	out := make(chan models.Notification, subscriberBufSize)
	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	go func() {
		defer close(out)
		defer conn.Close()
		for {
			data, err := wsutil.ReadServerText(rw)
			if err != nil {
				return
			}
			var n models.Notification
			if err := json.Unmarshal(data, &n); err != nil {
				continue
			}
			select {
			case out <- n:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func (c *Client) post(ctx context.Context, path string, body any, want int) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != want {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: %s returned %d: %s", shared.ErrAPIRequest, path, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return nil
}
