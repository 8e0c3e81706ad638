package server

import (
	"crypto/rand"
	"encoding/hex"
	"sync"
)

// tokenSet tracks issued access and refresh tokens. Tokens are opaque random
// strings, kept in memory only; a restart logs everyone out.
type tokenSet struct {
	mu      sync.Mutex
	access  map[string]string // token -> username
	refresh map[string]string
}

func newTokenSet() *tokenSet {
	return &tokenSet{
		access:  make(map[string]string),
		refresh: make(map[string]string),
	}
}

func newToken() string {
	b := make([]byte, 24)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// Issue mints a fresh access/refresh pair for a user.
func (t *tokenSet) Issue(username string) (access, refresh string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	access, refresh = newToken(), newToken()
	t.access[access] = username
	t.refresh[refresh] = username
	return access, refresh
}

// Username resolves an access token.
func (t *tokenSet) Username(access string) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	username, ok := t.access[access]
	return username, ok
}

// Rotate exchanges a refresh token for a new access token. The refresh token
// stays valid.
func (t *tokenSet) Rotate(refresh string) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	username, ok := t.refresh[refresh]
	if !ok {
		return "", false
	}
	access := newToken()
	t.access[access] = username
	return access, true
}

// Revoke invalidates every token belonging to a user.
func (t *tokenSet) Revoke(username string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for token, owner := range t.access {
		if owner == username {
			delete(t.access, token)
		}
	}
	for token, owner := range t.refresh {
		if owner == username {
			delete(t.refresh, token)
		}
	}
}
