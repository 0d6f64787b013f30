package hook

import "sync"

// TokenSource supplies the per-user auth token attached to every request and
// realtime connection as X-Auth-Token. An empty token means the credential is
// omitted entirely.
//
// The token is read on every request, so a source backed by mutable state
// (see TokenStore) lets a long-lived client follow sign-in and sign-out
// without being rebuilt.
type TokenSource interface {
	Token() string
}

// StaticToken is a TokenSource that always returns the same token.
type StaticToken string

func (t StaticToken) Token() string {
	return string(t)
}

// TokenStore is a mutable, concurrency-safe TokenSource. The zero value is
// an empty store, ready to use.
type TokenStore struct {
	mu    sync.RWMutex
	token string
}

func (s *TokenStore) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Set replaces the stored token. Requests issued after Set carry it.
func (s *TokenStore) Set(token string) {
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
}

// Clear removes the stored token.
func (s *TokenStore) Clear() {
	s.Set("")
}
