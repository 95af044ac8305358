package cdp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// TargetInfo is one entry of the DevTools /json/list response.
type TargetInfo struct {
	ID    string `json:"id"`
	Type  string `json:"type"`
	Title string `json:"title"`
	URL   string `json:"url"`
}

// ListTargets fetches the page and worker targets of the browser at cdpURL.
func ListTargets(ctx context.Context, client *http.Client, cdpURL string) ([]TargetInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(cdpURL, "/")+"/json/list", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create target list request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to list targets: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to list targets: status %d", resp.StatusCode)
	}

	var targets []TargetInfo
	if err := json.NewDecoder(resp.Body).Decode(&targets); err != nil {
		return nil, fmt.Errorf("failed to decode target list: %w", err)
	}
	return targets, nil
}

// matchesFilter reports whether a target is a page whose URL contains filter (case-insensitive).
func matchesFilter(t TargetInfo, filter string) bool {
	if t.Type != "page" {
		return false
	}
	filter = strings.ToLower(strings.TrimSpace(filter))
	return filter == "" || strings.Contains(strings.ToLower(t.URL), filter)
}
