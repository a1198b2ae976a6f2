// Package app holds the per-user application state: which tab is open, the
// loaded profile and the live graph layout. Each signed-in user gets their
// own Controller from the Sessions registry.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"franklink-backend/internal/domain"
	"franklink-backend/internal/layout"
	"franklink-backend/internal/service/connections"
)

// Tabs of the account page.
const (
	TabProfile = "profile"
	TabGraph   = "graph"
	TabNotes   = "notes"
)

// Drag phases.
const (
	DragStart = "start"
	DragMove  = "move"
	DragEnd   = "end"
)

// ErrNoGraph is returned by graph interactions before anything was rendered.
var ErrNoGraph = errors.New("no graph rendered")

// ErrLoggedOut is returned by RenderGraph once the controller was logged out.
var ErrLoggedOut = errors.New("session logged out")

// State is a snapshot of one user's page state.
type State struct {
	UserID  string
	Profile *domain.Profile
	Tab     string
	Graph   *domain.Graph
	// HandleID identifies the live layout; zero when none.
	HandleID uint64
}

// Controller owns one user's State and their graph Renderer.
type Controller struct {
	userID   string
	loader   connections.Loader
	renderer *layout.Renderer
	logger   *zap.Logger

	mu       sync.Mutex
	state    State
	handle   *layout.Handle
	lastUsed time.Time
	closed   bool
}

// NewController creates a controller for userID.
func NewController(userID string, loader connections.Loader, renderer *layout.Renderer, logger *zap.Logger) *Controller {
	return &Controller{
		userID:   userID,
		loader:   loader,
		renderer: renderer,
		logger:   logger,
		state:    State{UserID: userID, Tab: TabProfile},
		lastUsed: time.Now(),
	}
}

func (c *Controller) touch() {
	c.lastUsed = time.Now()
}

// State returns a copy of the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// SetProfile records the loaded profile.
func (c *Controller) SetProfile(p *domain.Profile) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.touch()
	c.state.Profile = p
}

// SetTab switches tabs. Leaving the graph tab keeps the layout alive so
// switching back is instant.
func (c *Controller) SetTab(tab string) error {
	switch tab {
	case TabProfile, TabGraph, TabNotes:
	default:
		return fmt.Errorf("unknown tab %q", tab)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.touch()
	c.state.Tab = tab
	return nil
}

// Events exposes the renderer's dispatcher for frame subscriptions.
func (c *Controller) Events() *layout.Dispatcher {
	return c.renderer.Events()
}

// RenderGraph loads a fresh graph and replaces the live layout with one for
// it. The previous layout is fully stopped before the new one starts. On
// ErrNotAuthenticated nothing is rendered and the previous layout is kept.
// After Logout it returns ErrLoggedOut and never starts a layout.
func (c *Controller) RenderGraph(ctx context.Context, vp layout.Viewport) (*layout.Handle, error) {
	if c.isClosed() {
		return nil, ErrLoggedOut
	}
	g, err := c.loader.Load(ctx)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	// Logout may have run while the graph was loading.
	if c.closed {
		return nil, ErrLoggedOut
	}
	c.touch()

	h := c.renderer.Render(g, vp)
	c.handle = h
	c.state.Graph = g
	c.state.Tab = TabGraph
	c.state.HandleID = h.ID()

	c.logger.Debug("graph rendered",
		zap.String("user_id", c.userID),
		zap.Uint64("handle", h.ID()),
		zap.Int("nodes", len(g.Nodes)),
		zap.Int("edges", len(g.Edges)),
		zap.Int("warnings", len(g.Warnings)))
	return h, nil
}

// Handle returns the live layout, or ErrNoGraph.
func (c *Controller) Handle() (*layout.Handle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.handle == nil {
		return nil, ErrNoGraph
	}
	c.touch()
	return c.handle, nil
}

// Resize re-centres the live layout on a new viewport.
func (c *Controller) Resize(vp layout.Viewport) error {
	if _, err := c.Handle(); err != nil {
		return err
	}
	c.renderer.Events().Emit(layout.EventResize, vp.OrDefault())
	return nil
}

// Drag forwards a drag gesture. The self node cannot be dragged.
func (c *Controller) Drag(phase, nodeID string, x, y float64) error {
	h, err := c.Handle()
	if err != nil {
		return err
	}
	if err := h.CheckDraggable(nodeID); err != nil {
		return err
	}

	var event string
	switch phase {
	case DragStart:
		event = layout.EventDragStart
	case DragMove:
		event = layout.EventDragMove
	case DragEnd:
		event = layout.EventDragEnd
	default:
		return fmt.Errorf("unknown drag phase %q", phase)
	}
	c.renderer.Events().Emit(event, layout.DragEvent{NodeID: nodeID, X: x, Y: y})
	return nil
}

// Highlight computes hover emphasis on the live graph.
func (c *Controller) Highlight(nodeID string) (layout.Highlight, error) {
	h, err := c.Handle()
	if err != nil {
		return layout.Highlight{}, err
	}
	return h.Highlight(nodeID)
}

// Logout tears down the layout and forgets everything about the user. The
// controller is unusable afterwards; Sessions.Get hands out a fresh one.
func (c *Controller) Logout() {
	c.mu.Lock()
	c.closed = true
	c.handle = nil
	c.state = State{UserID: c.userID, Tab: TabProfile}
	c.mu.Unlock()

	// Any Render started before closed was set has returned by now, so this
	// stops the last loop the renderer will ever run.
	c.renderer.Destroy()
}

func (c *Controller) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *Controller) idleSince() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastUsed
}
