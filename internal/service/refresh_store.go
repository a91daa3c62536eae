package service

import "sync"

// refreshTokenStore tracks which refresh tokens are currently accepted.
// Membership is required for a refresh to succeed; removal (logout or a
// failed verification) is terminal for that token. The set lives in process
// memory only, so a restart invalidates every outstanding refresh token.
type refreshTokenStore struct {
	mu     sync.Mutex
	tokens map[string]struct{}
}

func newRefreshTokenStore() *refreshTokenStore {
	return &refreshTokenStore{tokens: make(map[string]struct{})}
}

func (s *refreshTokenStore) Add(token string) {
	s.mu.Lock()
	s.tokens[token] = struct{}{}
	s.mu.Unlock()
}

func (s *refreshTokenStore) Contains(token string) bool {
	s.mu.Lock()
	_, ok := s.tokens[token]
	s.mu.Unlock()
	return ok
}

func (s *refreshTokenStore) Remove(token string) {
	s.mu.Lock()
	delete(s.tokens, token)
	s.mu.Unlock()
}
