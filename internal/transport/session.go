package transport

import "sync"

// Session holds the access/refresh token pair used for bearer auth. It is
// created by the SDK client and passed to the transport; nothing else writes
// it except the refresh routine.
//
// Lifecycle: Set, used by every request, replaced on a successful refresh,
// cleared when a refresh fails.
type Session struct {
	mu      sync.RWMutex
	access  string
	refresh string
}

// NewSession returns a session, optionally seeded with tokens.
func NewSession(access, refresh string) *Session {
	return &Session{access: access, refresh: refresh}
}

// Set replaces both tokens.
func (s *Session) Set(access, refresh string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.access, s.refresh = access, refresh
}

// Clear drops both tokens.
func (s *Session) Clear() {
	s.Set("", "")
}

// Tokens returns the current pair.
func (s *Session) Tokens() (access, refresh string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.access, s.refresh
}

// AccessToken returns the current access token.
func (s *Session) AccessToken() string {
	access, _ := s.Tokens()
	return access
}
