// Package preview coordinates live-reload sessions: an explicit registry
// of open websocket channels and a hub that broadcasts invalidation
// signals when deck sources change.
//
// A session carries no state beyond its channel. The signal carries no
// payload: receipt means "re-fetch the whole document". Delivery is
// at-least-once to every session open at send time; a session that closes
// mid-broadcast simply misses it.
package preview

import (
	"sync"

	"github.com/coder/websocket"
)

// ReloadSignal is the fixed invalidation message sent to every open
// session on any source change.
var ReloadSignal = []byte(`{"type":"reload"}`)

// Session is one open live-reload channel.
type Session struct {
	conn *websocket.Conn
	send chan []byte
}

// Registry is the connected-session set. It is process-wide state owned
// by the hub: empty on restart, mutated only on channel open/close.
type Registry struct {
	sessions map[*Session]struct{}
	mutex    sync.RWMutex
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[*Session]struct{})}
}

// Add inserts a session.
func (r *Registry) Add(s *Session) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.sessions[s] = struct{}{}
}

// Remove deletes a session, reporting whether it was present.
func (r *Registry) Remove(s *Session) bool {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	_, ok := r.sessions[s]
	delete(r.sessions, s)
	return ok
}

// Snapshot returns the sessions open at call time. Broadcast iterates
// the snapshot; no stronger atomicity is needed since sessions never
// mutate shared card data.
func (r *Registry) Snapshot() []*Session {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	sessions := make([]*Session, 0, len(r.sessions))
	for s := range r.sessions {
		sessions = append(sessions, s)
	}
	return sessions
}

// Count returns the number of open sessions.
func (r *Registry) Count() int {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return len(r.sessions)
}
