// Package tabs reads the playlist id from the active browser tab.
package tabs

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/desertthunder/spotfill/internal/shared"
)

var (
	ErrNoActiveTab     = fmt.Errorf("%w: no active tab", shared.ErrMissingTab)
	ErrNotPlaylistPage = fmt.Errorf("%w: active tab is not a playlist page", shared.ErrMissingTab)
)

// Tab is the part of a browser tab the reader consumes.
type Tab struct {
	ID    string `json:"id"`
	URL   string `json:"url"`
	Title string `json:"title,omitempty"`
}

// Source reports the single active tab of the current window.
type Source interface {
	ActiveTab(ctx context.Context) (Tab, error)
}

// PlaylistID returns the trailing path segment of url after prefix.
//
// The segment ends at the first '?', '#' or '/'. An empty segment is not found.
func PlaylistID(url, prefix string) (string, bool) {
	if prefix == "" || !strings.HasPrefix(url, prefix) {
		return "", false
	}

	id := url[len(prefix):]
	if idx := strings.IndexAny(id, "?#/"); idx >= 0 {
		id = id[:idx]
	}
	return id, id != ""
}

// Reader extracts the playlist id of the active tab. Nothing is cached between calls.
type Reader struct {
	source Source
	prefix string
}

// NewReader creates a [Reader] over source for playlist URLs starting with prefix.
func NewReader(source Source, prefix string) *Reader {
	return &Reader{source: source, prefix: prefix}
}

// ReadPlaylistID returns the playlist id of the active tab.
func (r *Reader) ReadPlaylistID(ctx context.Context) (string, error) {
	tab, err := r.source.ActiveTab(ctx)
	if err != nil {
		if errors.Is(err, shared.ErrMissingTab) {
			return "", err
		}
		return "", fmt.Errorf("%w: %v", ErrNoActiveTab, err)
	}
	if tab.URL == "" {
		return "", ErrNoActiveTab
	}

	id, ok := PlaylistID(tab.URL, r.prefix)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNotPlaylistPage, tab.URL)
	}
	return id, nil
}

// PageRule decides whether the start action is offered for a page.
type PageRule struct {
	HostSuffix   string
	PathContains string
}

// NewPageRule builds the rule from configuration.
func NewPageRule(cfg shared.TabsConfig) PageRule {
	return PageRule{HostSuffix: cfg.RuleHostSuffix, PathContains: cfg.RulePathContains}
}

// Matches reports whether rawURL satisfies both conditions.
func (p PageRule) Matches(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return false
	}

	host := "." + strings.ToLower(u.Hostname())
	return strings.HasSuffix(host, strings.ToLower(p.HostSuffix)) && strings.Contains(u.Path, p.PathContains)
}

// StaticSource is a [Source] holding a tab set from outside, for headless use and tests.
type StaticSource struct {
	Tab Tab
	Err error
}

func (s *StaticSource) ActiveTab(context.Context) (Tab, error) {
	if s.Err != nil {
		return Tab{}, s.Err
	}
	if s.Tab.URL == "" {
		return Tab{}, ErrNoActiveTab
	}
	return s.Tab, nil
}
