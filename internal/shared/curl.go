// Utilities for parsing cURL commands copied from browser devtools.
package shared

import (
	"fmt"
	"os"
	"regexp"
	"strings"
)

var (
	curlHeaderRe = regexp.MustCompile(`(?:-H|--header)\s+(?:'([^']+)'|"([^"]+)")`)
	curlCookieRe = regexp.MustCompile(`(?:-b|--cookie)\s+(?:'([^']+)'|"([^"]+)")`)
	curlMethodRe = regexp.MustCompile(`(?:-X|--request)\s+'?"?([A-Za-z]+)`)
	curlDataRe   = regexp.MustCompile(`\s(?:-d|--data|--data-raw|--data-binary)\s`)
	curlURLRe    = regexp.MustCompile(`(?:^|\s)(?:'(https?://[^']+)'|"(https?://[^"]+)"|(https?://\S+))`)
)

// CurlRequest is the request described by a "Copy as cURL" command.
type CurlRequest struct {
	URL     string
	Method  string
	Headers map[string]string
	Cookie  string
}

// Header looks up a header by case-insensitive name.
func (c *CurlRequest) Header(name string) (string, bool) {
	for key, value := range c.Headers {
		if strings.EqualFold(key, name) {
			return value, true
		}
	}
	return "", false
}

// ParseCurlFile reads a .sh file containing a cURL command and parses it.
func ParseCurlFile(filepath string) (*CurlRequest, error) {
	content, err := os.ReadFile(filepath)
	if err != nil {
		return nil, fmt.Errorf("failed to read curl file: %w", err)
	}

	return ParseCurlCommand(string(content))
}

// ParseCurlCommand extracts the URL, method, headers and cookie of a cURL command.
//
// The method defaults to GET, or POST when a data flag is present.
func ParseCurlCommand(curlCmd string) (*CurlRequest, error) {
	curlCmd = strings.ReplaceAll(curlCmd, "\\\n", " ")
	curlCmd = strings.ReplaceAll(curlCmd, "\\", "")

	req := &CurlRequest{Method: "GET", Headers: make(map[string]string)}

	for _, match := range curlHeaderRe.FindAllStringSubmatch(curlCmd, -1) {
		key, value, ok := strings.Cut(firstGroup(match), ":")
		if !ok {
			continue
		}
		key, value = strings.TrimSpace(key), strings.TrimSpace(value)

		if strings.EqualFold(key, "cookie") {
			if req.Cookie == "" {
				req.Cookie = value
			}
			continue
		}
		req.Headers[key] = value
	}

	if match := curlCookieRe.FindStringSubmatch(curlCmd); match != nil {
		req.Cookie = firstGroup(match)
	}

	if match := curlURLRe.FindStringSubmatch(curlCmd); match != nil {
		req.URL = firstGroup(match)
	}

	if match := curlMethodRe.FindStringSubmatch(curlCmd); match != nil {
		req.Method = strings.ToUpper(match[1])
	} else if curlDataRe.MatchString(curlCmd + " ") {
		req.Method = "POST"
	}

	if len(req.Headers) == 0 && req.Cookie == "" {
		return nil, fmt.Errorf("%w: no headers found in curl command", ErrInvalidInput)
	}

	return req, nil
}

func firstGroup(match []string) string {
	for _, group := range match[1:] {
		if group != "" {
			return group
		}
	}
	return ""
}
