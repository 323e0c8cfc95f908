package shell

import (
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/username/directreg/src/metrics"
)

// Sessions holds one Shell per browser session. Idle sessions expire after
// the configured TTL and have their views torn down.
type Sessions struct {
	store    *cache.Cache
	newShell func(id string) *Shell
}

// NewSessions returns a store that builds shells with factory.
func NewSessions(ttl time.Duration, factory func(id string) *Shell) *Sessions {
	cleanup := ttl / 2
	if cleanup < time.Second {
		cleanup = time.Second
	}
	store := cache.New(ttl, cleanup)
	store.OnEvicted(func(_ string, v interface{}) {
		if sh, ok := v.(*Shell); ok {
			sh.Close()
		}
		metrics.ActiveSessions.Dec()
	})
	return &Sessions{store: store, newShell: factory}
}

// Get returns the shell of id and extends its lifetime.
func (s *Sessions) Get(id string) (*Shell, bool) {
	if id == "" {
		return nil, false
	}
	v, ok := s.store.Get(id)
	if !ok {
		return nil, false
	}
	sh := v.(*Shell)
	s.store.SetDefault(id, sh)
	return sh, true
}

// Create starts a new session with a random id.
func (s *Sessions) Create() *Shell {
	id := uuid.NewString()
	sh := s.newShell(id)
	s.store.SetDefault(id, sh)
	metrics.ActiveSessions.Inc()
	return sh
}

// GetOrCreate returns the shell of id, or a new session when id is unknown
// or expired. created is true for a new session.
func (s *Sessions) GetOrCreate(id string) (sh *Shell, created bool) {
	if sh, ok := s.Get(id); ok {
		return sh, false
	}
	return s.Create(), true
}

// Delete ends a session.
func (s *Sessions) Delete(id string) {
	s.store.Delete(id)
}

// Len returns the number of live sessions.
func (s *Sessions) Len() int {
	return s.store.ItemCount()
}
