package capture

import "strings"

// Pattern is a URL glob where '*' matches any run of characters, including '/' and '?'.
type Pattern string

// Match reports whether url matches the pattern.
func (p Pattern) Match(url string) bool {
	parts := strings.Split(string(p), "*")
	if len(parts) == 1 {
		return url == string(p)
	}

	if !strings.HasPrefix(url, parts[0]) {
		return false
	}
	rest := url[len(parts[0]):]

	last := parts[len(parts)-1]
	for _, part := range parts[1 : len(parts)-1] {
		idx := strings.Index(rest, part)
		if idx < 0 {
			return false
		}
		rest = rest[idx+len(part):]
	}

	return len(rest) >= len(last) && strings.HasSuffix(rest, last)
}

// Patterns is an allow-list of URL globs.
type Patterns []Pattern

// NewPatterns converts configured strings into [Patterns], skipping blanks.
func NewPatterns(values ...string) Patterns {
	ps := make(Patterns, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			ps = append(ps, Pattern(v))
		}
	}
	return ps
}

// Match reports whether any pattern matches url.
func (ps Patterns) Match(url string) bool {
	for _, p := range ps {
		if p.Match(url) {
			return true
		}
	}
	return false
}
