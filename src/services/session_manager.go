package services

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Kuroukai/Kuroukai-free-api/src/models"
)

// sessionTokenBytes gives 256-bit session tokens
const sessionTokenBytes = 32

// SessionManager keeps admin sessions in memory. Sessions are never renewed;
// expired entries are evicted when they are looked up or listed.
type SessionManager struct {
	mu       sync.RWMutex
	sessions map[string]models.AdminSession
	ttl      time.Duration
	clock    Clock
}

// NewSessionManager creates an empty session store
func NewSessionManager(ttl time.Duration, clock Clock) *SessionManager {
	if clock == nil {
		clock = SystemClock()
	}
	return &SessionManager{
		sessions: make(map[string]models.AdminSession),
		ttl:      ttl,
		clock:    clock,
	}
}

// TTL returns the session lifetime
func (sm *SessionManager) TTL() time.Duration {
	return sm.ttl
}

func newSessionToken() (string, error) {
	b := make([]byte, sessionTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate session token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// Create starts a new session
func (sm *SessionManager) Create(ip, userAgent string) (models.AdminSession, error) {
	token, err := newSessionToken()
	if err != nil {
		return models.AdminSession{}, err
	}

	s := models.AdminSession{
		ID:        token,
		CreatedAt: sm.clock.Now().UTC(),
		IP:        ip,
		UserAgent: userAgent,
	}

	sm.mu.Lock()
	sm.sessions[token] = s
	sm.mu.Unlock()

	return s, nil
}

// Lookup returns the session for token if it exists and has not expired
func (sm *SessionManager) Lookup(token string) (models.AdminSession, error) {
	if token == "" {
		return models.AdminSession{}, ErrUnauthenticated
	}

	sm.mu.RLock()
	s, ok := sm.sessions[token]
	sm.mu.RUnlock()
	if !ok {
		return models.AdminSession{}, ErrUnauthenticated
	}

	if s.IsExpired(sm.clock.Now(), sm.ttl) {
		sm.Revoke(token)
		return models.AdminSession{}, ErrUnauthenticated
	}
	return s, nil
}

// List returns unexpired sessions, oldest first, evicting expired ones
func (sm *SessionManager) List() []models.AdminSession {
	now := sm.clock.Now()

	sm.mu.Lock()
	out := make([]models.AdminSession, 0, len(sm.sessions))
	for token, s := range sm.sessions {
		if s.IsExpired(now, sm.ttl) {
			delete(sm.sessions, token)
			continue
		}
		out = append(out, s)
	}
	sm.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Revoke removes a session; unknown tokens are ignored
func (sm *SessionManager) Revoke(token string) {
	sm.mu.Lock()
	delete(sm.sessions, token)
	sm.mu.Unlock()
}

// ClearAll removes every session, including the caller's, and returns how many
func (sm *SessionManager) ClearAll() int {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	n := len(sm.sessions)
	sm.sessions = make(map[string]models.AdminSession)
	return n
}

// Count returns the number of stored sessions, expired or not
func (sm *SessionManager) Count() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.sessions)
}
