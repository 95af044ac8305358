package session

import (
	"sync"

	"github.com/desertthunder/spotfill/internal/models"
)

// Session is the mutable state shared by event handlers. Only the [Controller] writes it.
type Session struct {
	mu        sync.RWMutex
	creds     models.CredentialPair
	identity  models.Identity
	busy      bool
	resolving int
}

func (s *Session) setAuthorization(v string) {
	s.mu.Lock()
	s.creds.Authorization = v
	s.mu.Unlock()
}

func (s *Session) setClientToken(v string) {
	s.mu.Lock()
	s.creds.ClientToken = v
	s.mu.Unlock()
}

func (s *Session) credentials() models.CredentialPair {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.creds
}

func (s *Session) identityValue() models.Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identity
}

// adopt stores id if no identity is known yet. The identity is never replaced or cleared.
func (s *Session) adopt(id models.Identity) bool {
	if !id.Known() {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.identity.Known() {
		return false
	}
	s.identity = id
	return true
}

func (s *Session) setBusy(busy bool) {
	s.mu.Lock()
	s.busy = busy
	s.mu.Unlock()
}

func (s *Session) isBusy() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.busy
}

func (s *Session) beginResolving() {
	s.mu.Lock()
	s.resolving++
	s.mu.Unlock()
}

func (s *Session) endResolving() {
	s.mu.Lock()
	s.resolving--
	s.mu.Unlock()
}

func (s *Session) state() models.State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	switch {
	case s.busy:
		return models.StateRunning
	case s.resolving > 0:
		return models.StateResolving
	default:
		return models.StateIdle
	}
}
