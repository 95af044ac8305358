package capture

import (
	"net/http"
	"strings"

	"github.com/desertthunder/spotfill/internal/shared"
)

// Request is one observed outbound request.
type Request struct {
	ID      string            `json:"id,omitempty"`
	TabID   string            `json:"tab_id,omitempty"`
	URL     string            `json:"url"`
	Method  string            `json:"method,omitempty"`
	Headers map[string]string `json:"headers"`
}

// Header returns the value of the header whose name equals name, ignoring case.
func (r Request) Header(name string) (string, bool) {
	for key, value := range r.Headers {
		if strings.EqualFold(key, name) {
			return value, true
		}
	}
	return "", false
}

// HTTPHeader copies the observed headers into an [http.Header] for replaying the request.
//
// HTTP/2 pseudo headers (":authority") are skipped.
func (r Request) HTTPHeader() http.Header {
	h := make(http.Header, len(r.Headers))
	for key, value := range r.Headers {
		if strings.HasPrefix(key, ":") {
			continue
		}
		h.Set(key, value)
	}
	return h
}

// RequestFromCurl converts a parsed "Copy as cURL" command into an observed request.
func RequestFromCurl(c *shared.CurlRequest) Request {
	headers := make(map[string]string, len(c.Headers)+1)
	for key, value := range c.Headers {
		headers[key] = value
	}
	if c.Cookie != "" {
		headers["cookie"] = c.Cookie
	}
	return Request{ID: shared.GenerateID(), URL: c.URL, Method: c.Method, Headers: headers}
}
