package websocket

import (
	"sync"

	"go.uber.org/zap"
)

// Registry indexes live sessions by account, then by auth session.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]map[string]*Session
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]map[string]*Session),
	}
}

func (r *Registry) Add(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sessions[s.AccountID] == nil {
		r.sessions[s.AccountID] = make(map[string]*Session)
	}

	if old, ok := r.sessions[s.AccountID][s.AuthSessionID]; ok {
		logger().Info("session: replacing existing connection",
			zap.String("account_id", s.AccountID), zap.String("old_sid", old.ID), zap.String("new_sid", s.ID))
		old.CloseWithReason(CloseReplaced, "session_replaced")
	}

	r.sessions[s.AccountID][s.AuthSessionID] = s
}

// Remove drops s only if it is still the registered connection, so a late
// Remove from a replaced session leaves its successor alone.
func (r *Registry) Remove(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if byAuth, ok := r.sessions[s.AccountID]; ok {
		if current, ok := byAuth[s.AuthSessionID]; ok && current.ID == s.ID {
			delete(byAuth, s.AuthSessionID)
			if len(byAuth) == 0 {
				delete(r.sessions, s.AccountID)
			}
		}
	}
}

func (r *Registry) AccountSessions(accountID string) []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*Session
	for _, s := range r.sessions[accountID] {
		result = append(result, s)
	}
	return result
}

func (r *Registry) CloseAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, byAuth := range r.sessions {
		for _, s := range byAuth {
			s.Close()
		}
	}
}
