package app

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"franklink-backend/internal/layout"
	"franklink-backend/internal/service/connections"
)

// Sessions maps signed-in users to their Controller.
type Sessions struct {
	mu          sync.Mutex
	controllers map[string]*Controller
	loader      connections.Loader
	newRenderer func() *layout.Renderer
	logger      *zap.Logger
}

// NewSessions creates a registry. newRenderer is called once per user.
func NewSessions(loader connections.Loader, newRenderer func() *layout.Renderer, logger *zap.Logger) *Sessions {
	return &Sessions{
		controllers: make(map[string]*Controller),
		loader:      loader,
		newRenderer: newRenderer,
		logger:      logger,
	}
}

// Get returns the user's controller, creating it on first use.
func (s *Sessions) Get(userID string) *Controller {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.controllers[userID]
	if !ok {
		c = NewController(userID, s.loader, s.newRenderer(), s.logger)
		s.controllers[userID] = c
	}
	return c
}

// Lookup returns the user's controller without creating one.
func (s *Sessions) Lookup(userID string) (*Controller, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.controllers[userID]
	return c, ok
}

// Logout tears down and forgets the user's controller.
func (s *Sessions) Logout(userID string) {
	s.mu.Lock()
	c, ok := s.controllers[userID]
	delete(s.controllers, userID)
	s.mu.Unlock()

	if ok {
		c.Logout()
	}
}

// Evict logs out every controller idle for longer than maxIdle and returns
// how many were removed.
func (s *Sessions) Evict(maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)

	s.mu.Lock()
	var stale []*Controller
	for id, c := range s.controllers {
		if c.idleSince().Before(cutoff) {
			stale = append(stale, c)
			delete(s.controllers, id)
		}
	}
	s.mu.Unlock()

	for _, c := range stale {
		c.Logout()
	}
	if len(stale) > 0 {
		s.logger.Info("evicted idle sessions", zap.Int("count", len(stale)))
	}
	return len(stale)
}

// Len returns the number of live controllers.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.controllers)
}

// Close logs everyone out.
func (s *Sessions) Close() {
	s.mu.Lock()
	all := s.controllers
	s.controllers = make(map[string]*Controller)
	s.mu.Unlock()

	for _, c := range all {
		c.Logout()
	}
}
