package cdp

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
	"github.com/desertthunder/spotfill/internal/capture"
	"github.com/desertthunder/spotfill/internal/shared"
	"github.com/desertthunder/spotfill/internal/tabs"
)

const (
	refreshInterval = 3 * time.Second
	evalTimeout     = 2 * time.Second
)

type attachedTab struct {
	id     target.ID
	ctx    context.Context
	cancel context.CancelFunc

	mu    sync.Mutex
	url   string
	title string
}

func (t *attachedTab) setURL(url string) {
	t.mu.Lock()
	t.url = url
	t.mu.Unlock()
}

func (t *attachedTab) info() tabs.Tab {
	t.mu.Lock()
	defer t.mu.Unlock()
	return tabs.Tab{ID: string(t.id), URL: t.url, Title: t.title}
}

// Client manages CDP sessions with the browser's matching tabs.
type Client struct {
	cdpURL   string
	filter   string
	observer capture.Observer
	http     *http.Client
	logger   *log.Logger

	allocCtx    context.Context
	allocCancel context.CancelFunc

	mu   sync.RWMutex
	tabs map[target.ID]*attachedTab
}

var _ tabs.Source = (*Client)(nil)

// NewClient creates a [Client] that forwards observed requests to observer.
func NewClient(cfg shared.BrowserConfig, observer capture.Observer, logger *log.Logger) *Client {
	return &Client{
		cdpURL:   cfg.CDPURL,
		filter:   cfg.TabFilter,
		observer: observer,
		http:     &http.Client{Timeout: 5 * time.Second},
		logger:   logger,
		tabs:     make(map[target.ID]*attachedTab),
	}
}

// Connect checks that the DevTools endpoint answers and attaches to the tabs open right now.
func (c *Client) Connect(ctx context.Context) error {
	if c.cdpURL == "" {
		return fmt.Errorf("%w: browser.cdp_url is empty", shared.ErrMissingConfig)
	}

	c.logger.Info("connecting to browser", "url", c.cdpURL)
	c.allocCtx, c.allocCancel = chromedp.NewRemoteAllocator(context.Background(), c.cdpURL)

	if err := c.refresh(ctx); err != nil {
		c.allocCancel()
		return fmt.Errorf("%w: %v", shared.ErrServiceUnavailable, err)
	}

	if n := c.TabCount(); n == 0 {
		c.logger.Warn("no tabs match the filter yet", "filter", c.filter)
	}
	return nil
}

// Run keeps the attached set in sync with the browser until ctx is cancelled.
func (c *Client) Run(ctx context.Context) {
	ticker := time.NewTicker(refreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.refresh(ctx); err != nil {
				c.logger.Warn("tab refresh failed", "error", err)
			}
		}
	}
}

func (c *Client) refresh(ctx context.Context) error {
	targets, err := ListTargets(ctx, c.http, c.cdpURL)
	if err != nil {
		return err
	}

	live := make(map[target.ID]TargetInfo)
	for _, t := range targets {
		if matchesFilter(t, c.filter) {
			live[target.ID(t.ID)] = t
		}
	}

	c.mu.Lock()
	for id, tab := range c.tabs {
		if _, ok := live[id]; !ok {
			tab.cancel()
			delete(c.tabs, id)
			c.logger.Info("detached from tab", "target_id", id)
		}
	}
	var pending []TargetInfo
	for id, t := range live {
		if _, ok := c.tabs[id]; !ok {
			pending = append(pending, t)
		}
	}
	c.mu.Unlock()

	for _, t := range pending {
		if err := c.attach(t); err != nil {
			c.logger.Error("failed to attach to tab", "target_id", t.ID, "url", t.URL, "error", err)
		}
	}
	return nil
}

func (c *Client) attach(t TargetInfo) error {
	id := target.ID(t.ID)
	tabCtx, tabCancel := chromedp.NewContext(c.allocCtx, chromedp.WithTargetID(id))
	tab := &attachedTab{id: id, ctx: tabCtx, cancel: tabCancel, url: t.URL, title: t.Title}

	chromedp.ListenTarget(tabCtx, c.eventHandler(tab))

	if err := chromedp.Run(tabCtx, network.Enable(), page.Enable()); err != nil {
		tabCancel()
		return fmt.Errorf("failed to enable network/page domains: %w", err)
	}

	c.mu.Lock()
	c.tabs[id] = tab
	c.mu.Unlock()

	c.logger.Info("attached to tab", "target_id", id, "url", t.URL)
	return nil
}

func (c *Client) eventHandler(tab *attachedTab) func(ev any) {
	return func(ev any) {
		switch e := ev.(type) {
		case *network.EventRequestWillBeSent:
			c.observer.Observe(requestFromEvent(string(tab.id), e))
		case *page.EventFrameNavigated:
			if e.Frame.ParentID == "" {
				tab.setURL(e.Frame.URL + e.Frame.URLFragment)
			}
		case *page.EventNavigatedWithinDocument:
			tab.setURL(e.URL)
		}
	}
}

// requestFromEvent converts a DevTools request event into an observed request.
func requestFromEvent(tabID string, e *network.EventRequestWillBeSent) capture.Request {
	headers := make(map[string]string, len(e.Request.Headers))
	for key, value := range e.Request.Headers {
		switch v := value.(type) {
		case string:
			headers[key] = v
		default:
			headers[key] = fmt.Sprint(v)
		}
	}

	return capture.Request{
		ID:      string(e.RequestID),
		TabID:   tabID,
		URL:     e.Request.URL,
		Method:  e.Request.Method,
		Headers: headers,
	}
}

type visibility struct {
	State string `json:"state"`
	Focus bool   `json:"focus"`
	URL   string `json:"url"`
}

type tabState struct {
	tab tabs.Tab
	vis visibility
}

// pickActive returns the visible tab with focus, else the first visible tab.
func pickActive(states []tabState) (tabs.Tab, bool) {
	var fallback *tabState
	for i := range states {
		s := &states[i]
		if s.vis.State != "visible" {
			continue
		}
		if s.vis.Focus {
			return s.tab, true
		}
		if fallback == nil {
			fallback = s
		}
	}
	if fallback == nil {
		return tabs.Tab{}, false
	}
	return fallback.tab, true
}

const visibilityScript = `({state: document.visibilityState, focus: document.hasFocus(), url: location.href})`

// ActiveTab implements [tabs.Source].
func (c *Client) ActiveTab(ctx context.Context) (tabs.Tab, error) {
	c.mu.RLock()
	attached := make([]*attachedTab, 0, len(c.tabs))
	for _, tab := range c.tabs {
		attached = append(attached, tab)
	}
	c.mu.RUnlock()

	sort.Slice(attached, func(i, j int) bool { return attached[i].id < attached[j].id })

	states := make([]tabState, 0, len(attached))
	for _, tab := range attached {
		var vis visibility
		evalCtx, cancel := context.WithTimeout(tab.ctx, evalTimeout)
		err := chromedp.Run(evalCtx, chromedp.Evaluate(visibilityScript, &vis))
		cancel()
		if err != nil {
			c.logger.Debug("visibility check failed", "target_id", tab.id, "error", err)
			continue
		}

		info := tab.info()
		if vis.URL != "" {
			info.URL = vis.URL
		}
		states = append(states, tabState{tab: info, vis: vis})
	}

	if ctx.Err() != nil {
		return tabs.Tab{}, ctx.Err()
	}

	active, ok := pickActive(states)
	if !ok {
		return tabs.Tab{}, tabs.ErrNoActiveTab
	}
	return active, nil
}

// Tabs lists the attached tabs with their last known URL.
func (c *Client) Tabs() []tabs.Tab {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]tabs.Tab, 0, len(c.tabs))
	for _, tab := range c.tabs {
		out = append(out, tab.info())
	}
	sort.Slice(out, func(i, j int) bool { return strings.Compare(out[i].ID, out[j].ID) < 0 })
	return out
}

// URL returns the DevTools endpoint the client attaches to.
func (c *Client) URL() string {
	return c.cdpURL
}

// TabCount returns the number of attached tabs.
func (c *Client) TabCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.tabs)
}

// Close detaches from every tab and drops the browser connection.
func (c *Client) Close() error {
	c.mu.Lock()
	for id, tab := range c.tabs {
		tab.cancel()
		delete(c.tabs, id)
	}
	c.mu.Unlock()

	if c.allocCancel != nil {
		c.allocCancel()
	}
	c.logger.Info("browser connection closed")
	return nil
}
