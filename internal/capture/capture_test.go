package capture

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/desertthunder/spotfill/internal/shared"
)

const queryURL = "https://api-partner.spotify.com/pathfinder/v1/query?operationName=fetchPlaylist"

type recordingSink struct {
	mu     sync.Mutex
	values map[CredentialField][]string
}

func newRecordingSink() *recordingSink {
	return &recordingSink{values: make(map[CredentialField][]string)}
}

func (s *recordingSink) StoreCredential(field CredentialField, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[field] = append(s.values[field], value)
}

func (s *recordingSink) last(field CredentialField) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := s.values[field]
	if len(v) == 0 {
		return ""
	}
	return v[len(v)-1]
}

func newTestInterceptor(sink CredentialSink, hub *Hub) *Interceptor {
	cfg := shared.DefaultConfig().Capture
	return NewInterceptor(cfg, sink, hub, shared.NewLogger(io.Discard))
}

func TestPattern(t *testing.T) {
	tt := []struct {
		pattern string
		url     string
		want    bool
	}{
		{"https://api-partner.spotify.com/pathfinder/v1/query*", queryURL, true},
		{"https://api-partner.spotify.com/pathfinder/v1/query*", "https://api-partner.spotify.com/pathfinder/v1/query", true},
		{"https://api-partner.spotify.com/pathfinder/v1/query*", "https://api.spotify.com/v1/me", false},
		{"https://*.spotify.com/*", "https://open.spotify.com/playlist/abc", true},
		{"https://*.spotify.com/*", "http://open.spotify.com/playlist/abc", false},
		{"*operationName=profileAndAccountAttributes*", "https://x/q?operationName=profileAndAccountAttributes&v=1", true},
		{"https://exact.example/", "https://exact.example/", true},
		{"https://exact.example/", "https://exact.example/more", false},
		{"ab*ba", "aba", false},
	}

	for _, tc := range tt {
		t.Run(tc.pattern+" "+tc.url, func(t *testing.T) {
			if got := Pattern(tc.pattern).Match(tc.url); got != tc.want {
				t.Errorf("Match() = %v, want %v", got, tc.want)
			}
		})
	}

	t.Run("NewPatterns Skips Blanks", func(t *testing.T) {
		ps := NewPatterns("", "  ", "https://a/*")
		if len(ps) != 1 {
			t.Fatalf("expected 1 pattern, got %d", len(ps))
		}
		if !ps.Match("https://a/b") || ps.Match("https://b/") {
			t.Error("unexpected Patterns.Match result")
		}
	})
}

func TestRequest(t *testing.T) {
	req := Request{URL: queryURL, Headers: map[string]string{
		"Authorization": "Bearer A",
		":authority":    "api-partner.spotify.com",
	}}

	if v, ok := req.Header("authorization"); !ok || v != "Bearer A" {
		t.Errorf("Header() = %q, %v", v, ok)
	}

	h := req.HTTPHeader()
	if h.Get("Authorization") != "Bearer A" {
		t.Error("HTTPHeader() lost authorization")
	}
	if len(h) != 1 {
		t.Errorf("expected pseudo headers to be dropped, got %v", h)
	}

	t.Run("RequestFromCurl", func(t *testing.T) {
		got := RequestFromCurl(&shared.CurlRequest{
			URL:     queryURL,
			Method:  "GET",
			Headers: map[string]string{"client-token": "T"},
			Cookie:  "sp_t=1",
		})
		if got.URL != queryURL || got.Method != "GET" || got.ID == "" {
			t.Errorf("unexpected request %+v", got)
		}
		if got.Headers["cookie"] != "sp_t=1" || got.Headers["client-token"] != "T" {
			t.Errorf("unexpected headers %v", got.Headers)
		}
	})
}

func TestInterceptor(t *testing.T) {
	t.Run("Stores Both Fields Case Insensitively", func(t *testing.T) {
		sink := newRecordingSink()
		i := newTestInterceptor(sink, nil)

		i.Observe(Request{URL: queryURL, Headers: map[string]string{
			"Authorization": "Bearer A",
			"CLIENT-TOKEN":  "T",
			"accept":        "application/json",
		}})

		if sink.last(FieldAuthorization) != "Bearer A" {
			t.Errorf("authorization = %q", sink.last(FieldAuthorization))
		}
		if sink.last(FieldClientToken) != "T" {
			t.Errorf("client-token = %q", sink.last(FieldClientToken))
		}
	})

	t.Run("Name Match Is Exact", func(t *testing.T) {
		sink := newRecordingSink()
		i := newTestInterceptor(sink, nil)

		i.Observe(Request{URL: queryURL, Headers: map[string]string{
			"x-authorization":   "nope",
			"client-token-hint": "nope",
		}})

		if len(sink.values) != 0 {
			t.Errorf("expected nothing stored, got %v", sink.values)
		}
	})

	t.Run("Ignores Requests Outside Allow-List", func(t *testing.T) {
		sink := newRecordingSink()
		hub := NewHub()
		var dispatched atomic.Int32
		hub.Subscribe("https://api.spotify.com/*", func(Request) bool { dispatched.Add(1); return true })
		i := newTestInterceptor(sink, hub)

		i.Observe(Request{URL: "https://api.spotify.com/v1/me", Headers: map[string]string{"authorization": "Bearer X"}})

		if len(sink.values) != 0 {
			t.Error("credentials captured from a request outside the allow-list")
		}
		if dispatched.Load() != 1 {
			t.Error("hub subscriptions should still see the request")
		}
		if i.Matches("https://api.spotify.com/v1/me") {
			t.Error("Matches() should be false")
		}
	})

	t.Run("Later Values Overwrite", func(t *testing.T) {
		sink := newRecordingSink()
		i := newTestInterceptor(sink, nil)

		i.Observe(Request{URL: queryURL, Headers: map[string]string{"authorization": "Bearer 1"}})
		i.Observe(Request{URL: queryURL, Headers: map[string]string{"authorization": "Bearer 2"}})

		if sink.last(FieldAuthorization) != "Bearer 2" {
			t.Errorf("expected last write to win, got %q", sink.last(FieldAuthorization))
		}
	})

	t.Run("Empty Value Keeps Previous", func(t *testing.T) {
		sink := newRecordingSink()
		i := newTestInterceptor(sink, nil)

		i.Observe(Request{URL: queryURL, Headers: map[string]string{"authorization": "Bearer 1"}})
		i.Observe(Request{URL: queryURL, Headers: map[string]string{"authorization": ""}})

		if n := len(sink.values[FieldAuthorization]); n != 1 {
			t.Errorf("expected one stored value, got %d", n)
		}
		if sink.last(FieldAuthorization) != "Bearer 1" {
			t.Errorf("expected Bearer 1 to survive, got %q", sink.last(FieldAuthorization))
		}
	})

	t.Run("Does Not Mutate Request", func(t *testing.T) {
		i := newTestInterceptor(newRecordingSink(), nil)
		headers := map[string]string{"authorization": "Bearer A", "accept": "*/*"}
		i.Observe(Request{URL: queryURL, Headers: headers})

		if len(headers) != 2 || headers["authorization"] != "Bearer A" {
			t.Errorf("headers were modified: %v", headers)
		}
	})

	t.Run("Custom Header Names", func(t *testing.T) {
		sink := newRecordingSink()
		cfg := shared.CaptureConfig{
			Patterns:            []string{"https://example/*"},
			AuthorizationHeader: "X-Auth",
			ClientTokenHeader:   "X-Token",
		}
		i := NewInterceptor(cfg, sink, nil, shared.NewLogger(io.Discard))
		i.Observe(Request{URL: "https://example/q", Headers: map[string]string{"x-auth": "A", "x-token": "T"}})

		if sink.last(FieldAuthorization) != "A" || sink.last(FieldClientToken) != "T" {
			t.Errorf("unexpected values %v", sink.values)
		}
	})
}

func TestHub(t *testing.T) {
	t.Run("Persistent Subscription Sees Every Match", func(t *testing.T) {
		hub := NewHub()
		var n atomic.Int32
		hub.Subscribe("https://a/*", func(Request) bool { n.Add(1); return true })

		hub.Dispatch(Request{URL: "https://a/1"})
		hub.Dispatch(Request{URL: "https://a/2"})
		hub.Dispatch(Request{URL: "https://b/1"})

		if n.Load() != 2 {
			t.Errorf("expected 2 deliveries, got %d", n.Load())
		}
	})

	t.Run("SubscribeOnce Fires At Most Once", func(t *testing.T) {
		hub := NewHub()
		var n atomic.Int32
		sub := hub.SubscribeOnce("https://a/*", func(Request) bool { n.Add(1); return true })

		hub.Dispatch(Request{URL: "https://a/1"})
		hub.Dispatch(Request{URL: "https://a/2"})

		if n.Load() != 1 {
			t.Errorf("expected 1 delivery, got %d", n.Load())
		}
		if !sub.Done() {
			t.Error("subscription should be done after firing")
		}
		if hub.Len() != 0 {
			t.Errorf("expected hub to be empty, got %d", hub.Len())
		}
	})

	t.Run("SubscribeOnce Waits For Accepted Request", func(t *testing.T) {
		hub := NewHub()
		var seen []string
		hub.SubscribeOnce("*", func(r Request) bool {
			seen = append(seen, r.URL)
			return strings.HasSuffix(r.URL, "ok")
		})

		hub.Dispatch(Request{URL: "https://a/skip"})
		hub.Dispatch(Request{URL: "https://a/ok"})
		hub.Dispatch(Request{URL: "https://a/after"})

		if strings.Join(seen, ",") != "https://a/skip,https://a/ok" {
			t.Errorf("unexpected deliveries %v", seen)
		}
	})

	t.Run("SubscribeOnce Under Concurrent Dispatch", func(t *testing.T) {
		hub := NewHub()
		var n atomic.Int32
		hub.SubscribeOnce("*", func(Request) bool { n.Add(1); return true })

		var wg sync.WaitGroup
		for range 50 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				hub.Dispatch(Request{URL: "https://a/"})
			}()
		}
		wg.Wait()

		if n.Load() != 1 {
			t.Errorf("expected exactly 1 delivery, got %d", n.Load())
		}
	})

	t.Run("Cancel Is Idempotent", func(t *testing.T) {
		hub := NewHub()
		var n atomic.Int32
		sub := hub.Subscribe("*", func(Request) bool { n.Add(1); return true })

		sub.Cancel()
		sub.Cancel()
		hub.Dispatch(Request{URL: "https://a/"})

		if n.Load() != 0 {
			t.Error("cancelled subscription received a request")
		}
		if hub.Len() != 0 {
			t.Errorf("expected hub to be empty, got %d", hub.Len())
		}
	})
}

func TestHandler(t *testing.T) {
	var got Request
	h := NewHandler(ObserverFunc(func(r Request) { got = r }), shared.NewLogger(io.Discard))

	if routes := h.Routes(); len(routes) != 1 || routes[0] != "POST /observe" {
		t.Errorf("unexpected routes %v", routes)
	}

	t.Run("Valid", func(t *testing.T) {
		body := `{"url":"` + queryURL + `","method":"GET","headers":{"authorization":"Bearer A"}}`
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/observe", strings.NewReader(body)))

		if rec.Code != http.StatusNoContent {
			t.Fatalf("expected 204, got %d", rec.Code)
		}
		if got.URL != queryURL || got.Headers["authorization"] != "Bearer A" {
			t.Errorf("unexpected observed request %+v", got)
		}
		if got.ID == "" {
			t.Error("expected an id to be assigned")
		}
	})

	t.Run("Malformed", func(t *testing.T) {
		for _, body := range []string{"not json", `{"method":"GET"}`} {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/observe", strings.NewReader(body)))
			if rec.Code != http.StatusBadRequest {
				t.Errorf("%q: expected 400, got %d", body, rec.Code)
			}
		}
	})
}
