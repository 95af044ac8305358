package shared

import (
	"fmt"
	"net/url"
	"os/exec"
	"runtime"
)

var getRuntime = func() string { return runtime.GOOS }

// defaultBinaries lists the Chromium executables tried per platform when browser.binary is empty.
var defaultBinaries = map[string][]string{
	"darwin":  {"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome", "/Applications/Chromium.app/Contents/MacOS/Chromium"},
	"linux":   {"google-chrome", "google-chrome-stable", "chromium", "chromium-browser"},
	"windows": {"chrome.exe"},
}

var lookPath = exec.LookPath

// BrowserArgs returns the Chromium flags that expose the DevTools endpoint configured in cdp_url.
func BrowserArgs(cfg BrowserConfig) ([]string, error) {
	u, err := url.Parse(cfg.CDPURL)
	if err != nil || u.Port() == "" {
		return nil, fmt.Errorf("%w: browser.cdp_url needs an explicit port, got %q", ErrInvalidConfig, cfg.CDPURL)
	}

	args := []string{"--remote-debugging-port=" + u.Port(), "--no-first-run", "--no-default-browser-check"}
	if cfg.ProfileDir != "" {
		args = append(args, "--user-data-dir="+cfg.ProfileDir)
	}
	if cfg.StartURL != "" {
		args = append(args, cfg.StartURL)
	}
	return args, nil
}

// BrowserBinary resolves the Chromium executable, preferring browser.binary.
func BrowserBinary(cfg BrowserConfig) (string, error) {
	if cfg.Binary != "" {
		return cfg.Binary, nil
	}

	rt := getRuntime()
	candidates, ok := defaultBinaries[rt]
	if !ok {
		return "", fmt.Errorf("unsupported platform: %s", rt)
	}
	for _, candidate := range candidates {
		if path, err := lookPath(candidate); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("%w: no Chromium binary found, set browser.binary", ErrMissingConfig)
}

// LaunchBrowser starts Chromium with remote debugging enabled so the daemon can attach to it.
//
// The process is not waited on; it outlives the command that started it.
func LaunchBrowser(cfg BrowserConfig) (*exec.Cmd, error) {
	binary, err := BrowserBinary(cfg)
	if err != nil {
		return nil, err
	}
	args, err := BrowserArgs(cfg)
	if err != nil {
		return nil, err
	}

	cmd := exec.Command(binary, args...)
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}
	return cmd, nil
}
