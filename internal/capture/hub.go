package capture

import (
	"sync"
	"sync/atomic"
)

// Listener receives a matching request. Its return value reports whether the request was accepted,
// which ends a one-shot subscription. Listeners run on the observer's goroutine and must not block.
type Listener func(Request) bool

// Subscription is a handle for one registered listener.
type Subscription struct {
	hub     *Hub
	id      int64
	pattern Pattern
	once    bool
	fn      Listener

	mu   sync.Mutex
	done bool
}

// Cancel removes the subscription. It is safe to call more than once.
//
// A listener must not cancel its own subscription; a one-shot listener returns true instead.
func (s *Subscription) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.done = true
	s.hub.remove(s.id)
}

// Done reports whether the subscription was cancelled or has fired.
func (s *Subscription) Done() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}

func (s *Subscription) deliver(req Request) {
	if !s.once {
		s.fn(req)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done {
		return
	}
	if s.fn(req) {
		s.done = true
		s.hub.remove(s.id)
	}
}

// Hub dispatches observed requests to pattern subscriptions.
type Hub struct {
	mu     sync.RWMutex
	subs   map[int64]*Subscription
	order  []int64
	nextID atomic.Int64
}

// NewHub creates an empty [Hub].
func NewHub() *Hub {
	return &Hub{subs: make(map[int64]*Subscription)}
}

// Subscribe registers a persistent listener for requests matching pattern.
func (h *Hub) Subscribe(pattern Pattern, fn Listener) *Subscription {
	return h.add(pattern, fn, false)
}

// SubscribeOnce registers a listener that fires at most once: it is removed after the first request it accepts.
func (h *Hub) SubscribeOnce(pattern Pattern, fn Listener) *Subscription {
	return h.add(pattern, fn, true)
}

func (h *Hub) add(pattern Pattern, fn Listener, once bool) *Subscription {
	sub := &Subscription{hub: h, id: h.nextID.Add(1), pattern: pattern, once: once, fn: fn}

	h.mu.Lock()
	h.subs[sub.id] = sub
	h.order = append(h.order, sub.id)
	h.mu.Unlock()
	return sub
}

func (h *Hub) remove(id int64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[id]; !ok {
		return
	}
	delete(h.subs, id)
	for i, v := range h.order {
		if v == id {
			h.order = append(h.order[:i], h.order[i+1:]...)
			break
		}
	}
}

// Dispatch delivers req to every subscription whose pattern matches its URL, in subscription order.
func (h *Hub) Dispatch(req Request) {
	h.mu.RLock()
	matched := make([]*Subscription, 0, len(h.order))
	for _, id := range h.order {
		if sub := h.subs[id]; sub.pattern.Match(req.URL) {
			matched = append(matched, sub)
		}
	}
	h.mu.RUnlock()

	for _, sub := range matched {
		sub.deliver(req)
	}
}

// Len returns the number of active subscriptions.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
