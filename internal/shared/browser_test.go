package shared

import (
	"errors"
	"os/exec"
	"slices"
	"testing"
)

func TestBrowserArgs(t *testing.T) {
	t.Run("Includes Port Profile And Start URL", func(t *testing.T) {
		args, err := BrowserArgs(BrowserConfig{
			CDPURL:     "http://127.0.0.1:9333",
			ProfileDir: "/tmp/profile",
			StartURL:   "https://open.spotify.com",
		})
		if err != nil {
			t.Fatalf("BrowserArgs() error = %v", err)
		}

		for _, want := range []string{"--remote-debugging-port=9333", "--user-data-dir=/tmp/profile", "https://open.spotify.com"} {
			if !slices.Contains(args, want) {
				t.Errorf("expected %q in %v", want, args)
			}
		}
	})

	t.Run("Missing Port", func(t *testing.T) {
		_, err := BrowserArgs(BrowserConfig{CDPURL: "http://127.0.0.1"})
		if !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})
}

func TestBrowserBinary(t *testing.T) {
	origRuntime, origLookPath := getRuntime, lookPath
	t.Cleanup(func() {
		getRuntime, lookPath = origRuntime, origLookPath
	})

	t.Run("Configured Binary Wins", func(t *testing.T) {
		got, err := BrowserBinary(BrowserConfig{Binary: "/opt/chrome"})
		if err != nil || got != "/opt/chrome" {
			t.Errorf("BrowserBinary() = %q, %v", got, err)
		}
	})

	t.Run("First Found Candidate", func(t *testing.T) {
		getRuntime = func() string { return "linux" }
		lookPath = func(file string) (string, error) {
			if file == "chromium" {
				return "/usr/bin/chromium", nil
			}
			return "", exec.ErrNotFound
		}

		got, err := BrowserBinary(BrowserConfig{})
		if err != nil {
			t.Fatalf("BrowserBinary() error = %v", err)
		}
		if got != "/usr/bin/chromium" {
			t.Errorf("expected /usr/bin/chromium, got %q", got)
		}
	})

	t.Run("Nothing Installed", func(t *testing.T) {
		getRuntime = func() string { return "linux" }
		lookPath = func(string) (string, error) { return "", exec.ErrNotFound }

		if _, err := BrowserBinary(BrowserConfig{}); !errors.Is(err, ErrMissingConfig) {
			t.Errorf("expected ErrMissingConfig, got %v", err)
		}
	})

	t.Run("Unsupported Platform", func(t *testing.T) {
		getRuntime = func() string { return "plan9" }

		if _, err := BrowserBinary(BrowserConfig{}); err == nil {
			t.Error("expected error for unsupported platform")
		}
	})
}
