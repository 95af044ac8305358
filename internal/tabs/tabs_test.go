package tabs

import (
	"context"
	"errors"
	"testing"

	"github.com/desertthunder/spotfill/internal/shared"
)

const prefix = "https://open.spotify.com/playlist/"

func TestPlaylistID(t *testing.T) {
	if len(prefix) != 34 {
		t.Fatalf("playlist prefix should be 34 characters, got %d", len(prefix))
	}

	tt := []struct {
		name   string
		url    string
		want   string
		wantOK bool
	}{
		{"playlist page", "https://open.spotify.com/playlist/3h9rkMXa434AeAIDdA5Dd2", "3h9rkMXa434AeAIDdA5Dd2", true},
		{"with query", "https://open.spotify.com/playlist/3h9rkMXa434AeAIDdA5Dd2?si=abc", "3h9rkMXa434AeAIDdA5Dd2", true},
		{"with fragment", "https://open.spotify.com/playlist/P#top", "P", true},
		{"trailing slash", "https://open.spotify.com/playlist/P/", "P", true},
		{"album page", "https://open.spotify.com/album/3h9rkMXa434AeAIDdA5Dd2", "", false},
		{"prefix only", prefix, "", false},
		{"empty", "", "", false},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := PlaylistID(tc.url, prefix)
			if got != tc.want || ok != tc.wantOK {
				t.Errorf("PlaylistID() = %q, %v, want %q, %v", got, ok, tc.want, tc.wantOK)
			}
		})
	}

	if _, ok := PlaylistID("anything", ""); ok {
		t.Error("empty prefix should never match")
	}
}

func TestReader(t *testing.T) {
	ctx := context.Background()

	t.Run("Playlist Tab", func(t *testing.T) {
		r := NewReader(&StaticSource{Tab: Tab{URL: prefix + "P"}}, prefix)
		id, err := r.ReadPlaylistID(ctx)
		if err != nil || id != "P" {
			t.Errorf("ReadPlaylistID() = %q, %v", id, err)
		}
	})

	t.Run("No Active Tab", func(t *testing.T) {
		r := NewReader(&StaticSource{}, prefix)
		_, err := r.ReadPlaylistID(ctx)
		if !errors.Is(err, ErrNoActiveTab) || !errors.Is(err, shared.ErrMissingTab) {
			t.Errorf("expected ErrNoActiveTab, got %v", err)
		}
	})

	t.Run("Source Failure", func(t *testing.T) {
		r := NewReader(&StaticSource{Err: errors.New("browser gone")}, prefix)
		_, err := r.ReadPlaylistID(ctx)
		if !errors.Is(err, shared.ErrMissingTab) {
			t.Errorf("expected ErrMissingTab, got %v", err)
		}
	})

	t.Run("Not A Playlist Page", func(t *testing.T) {
		r := NewReader(&StaticSource{Tab: Tab{URL: "https://open.spotify.com/search"}}, prefix)
		_, err := r.ReadPlaylistID(ctx)
		if !errors.Is(err, ErrNotPlaylistPage) {
			t.Errorf("expected ErrNotPlaylistPage, got %v", err)
		}
	})
}

func TestPageRule(t *testing.T) {
	rule := NewPageRule(shared.DefaultConfig().Tabs)

	tt := []struct {
		url  string
		want bool
	}{
		{"https://open.spotify.com/playlist/P", true},
		{"https://OPEN.SPOTIFY.COM/playlist/P", true},
		{"https://open.spotify.com/album/A", false},
		{"https://spotify.com.evil.example/playlist/P", false},
		{"https://notspotify.com/playlist/P", false},
		{"not a url", false},
	}

	for _, tc := range tt {
		t.Run(tc.url, func(t *testing.T) {
			if got := rule.Matches(tc.url); got != tc.want {
				t.Errorf("Matches() = %v, want %v", got, tc.want)
			}
		})
	}
}
