package layout

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"franklink-backend/internal/domain"
)

var (
	// ErrDestroyed is returned by Wait when the handle was torn down before
	// its run settled.
	ErrDestroyed = errors.New("layout destroyed")
	// ErrNotDraggable is returned for the pinned self node.
	ErrNotDraggable = errors.New("node is not draggable")
	// ErrUnknownNode is returned for ids that are not in the graph.
	ErrUnknownNode = errors.New("unknown node")
)

// Recorder receives layout run outcomes. observability.Collector implements it.
type Recorder interface {
	LayoutStarted()
	LayoutSettled(ticks int, hitCeiling bool)
	LayoutDestroyed()
}

type nopRecorder struct{}

func (nopRecorder) LayoutStarted()          {}
func (nopRecorder) LayoutSettled(int, bool) {}
func (nopRecorder) LayoutDestroyed()        {}

type commandKind int

const (
	cmdResize commandKind = iota
	cmdDragStart
	cmdDragMove
	cmdDragEnd
)

type command struct {
	kind   commandKind
	vp     Viewport
	nodeID string
	x, y   float64
}

var handleSeq atomic.Uint64

// Handle is one live layout. It owns exactly one goroutine.
type Handle struct {
	id       uint64
	graph    *domain.Graph
	params   Params
	sim      *Simulation
	events   *Dispatcher
	logger   *zap.Logger
	recorder Recorder

	cmds chan command
	stop chan struct{}
	done chan struct{}
	once sync.Once

	mu        sync.Mutex
	frame     Frame
	settledCh chan struct{}
	regs      []*Registration
}

func newHandle(g *domain.Graph, p Params, vp Viewport, events *Dispatcher, logger *zap.Logger, rec Recorder) *Handle {
	h := &Handle{
		id:        handleSeq.Add(1),
		graph:     g,
		params:    p,
		sim:       NewSimulation(g, p, vp),
		events:    events,
		logger:    logger,
		recorder:  rec,
		cmds:      make(chan command, 32),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
		settledCh: make(chan struct{}),
	}
	h.frame = h.sim.Frame()
	return h
}

// attach wires the handle's listeners into the dispatcher.
func (h *Handle) attach() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.regs = append(h.regs,
		h.events.Register(EventResize, func(payload interface{}) {
			if vp, ok := payload.(Viewport); ok {
				h.send(command{kind: cmdResize, vp: vp})
			}
		}),
		h.events.Register(EventDragStart, h.dragHandler(cmdDragStart)),
		h.events.Register(EventDragMove, h.dragHandler(cmdDragMove)),
		h.events.Register(EventDragEnd, h.dragHandler(cmdDragEnd)),
	)
}

func (h *Handle) dragHandler(kind commandKind) Handler {
	return func(payload interface{}) {
		if ev, ok := payload.(DragEvent); ok && h.CheckDraggable(ev.NodeID) == nil {
			h.send(command{kind: kind, nodeID: ev.NodeID, x: ev.X, y: ev.Y})
		}
	}
}

func (h *Handle) send(c command) {
	select {
	case h.cmds <- c:
	case <-h.stop:
	}
}

// ID distinguishes handles across re-renders.
func (h *Handle) ID() uint64 { return h.id }

// Graph returns the graph being laid out.
func (h *Handle) Graph() *domain.Graph { return h.graph }

// Done is closed once the loop goroutine has exited.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Snapshot returns the most recently published frame.
func (h *Handle) Snapshot() Frame {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.frame
}

// Wait blocks until the current run settles and returns its final frame.
func (h *Handle) Wait(ctx context.Context) (Frame, error) {
	h.mu.Lock()
	ch := h.settledCh
	h.mu.Unlock()

	select {
	case <-ch:
		return h.Snapshot(), nil
	case <-h.done:
		select {
		case <-ch:
			return h.Snapshot(), nil
		default:
			return h.Snapshot(), ErrDestroyed
		}
	case <-ctx.Done():
		return h.Snapshot(), ctx.Err()
	}
}

// CheckDraggable reports whether id may be dragged.
func (h *Handle) CheckDraggable(id string) error {
	if id == domain.SelfNodeID {
		return ErrNotDraggable
	}
	if _, ok := h.graph.Node(id); !ok {
		return fmt.Errorf("%w: %s", ErrUnknownNode, id)
	}
	return nil
}

// Destroy stops the loop, detaches every listener and waits for the
// goroutine to exit. It is safe to call more than once.
func (h *Handle) Destroy() {
	h.once.Do(func() {
		h.mu.Lock()
		for _, reg := range h.regs {
			h.events.Remove(reg)
		}
		h.regs = nil
		h.mu.Unlock()

		close(h.stop)
		<-h.done
		h.recorder.LayoutDestroyed()
	})
	<-h.done
}

func (h *Handle) publish() {
	f := h.sim.Frame()
	h.mu.Lock()
	h.frame = f
	h.mu.Unlock()
	h.events.Emit(EventFrame, f)
}

func (h *Handle) markSettled() {
	f := h.Snapshot()
	h.mu.Lock()
	close(h.settledCh)
	h.mu.Unlock()
	h.recorder.LayoutSettled(f.Tick, f.Tick >= h.params.MaxTicks)
	h.events.Emit(EventSettled, f)
}

func (h *Handle) markRunning() {
	h.mu.Lock()
	defer h.mu.Unlock()
	select {
	case <-h.settledCh:
		h.settledCh = make(chan struct{})
	default:
	}
}

// apply mutates the simulation and reports whether the loop should run.
func (h *Handle) apply(c command, running bool) bool {
	switch c.kind {
	case cmdResize:
		h.sim.Resize(c.vp)
		h.sim.Restart(h.params.ResizeAlpha)
		return true
	case cmdDragStart:
		h.sim.SetAlphaTarget(h.params.DragAlphaTarget)
		h.sim.Fix(c.nodeID, c.x, c.y)
		if !running {
			h.sim.Restart(-1)
		}
		return true
	case cmdDragMove:
		h.sim.Fix(c.nodeID, c.x, c.y)
		if !running {
			h.sim.Restart(-1)
		}
		return true
	case cmdDragEnd:
		h.sim.SetAlphaTarget(0)
		h.sim.Release(c.nodeID)
		return running
	}
	return running
}

func (h *Handle) run() {
	defer close(h.done)

	var tick <-chan time.Time
	if h.params.TickInterval > 0 {
		t := time.NewTicker(h.params.TickInterval)
		defer t.Stop()
		tick = t.C
	}

	h.recorder.LayoutStarted()
	running := true
	for {
		if !running {
			select {
			case <-h.stop:
				return
			case c := <-h.cmds:
				if h.apply(c, false) {
					running = true
					h.markRunning()
				}
			}
			continue
		}

	drain:
		for {
			select {
			case c := <-h.cmds:
				running = h.apply(c, true)
			default:
				break drain
			}
		}

		select {
		case <-h.stop:
			return
		default:
		}

		h.sim.Tick()
		h.publish()
		if h.sim.Settled() {
			running = false
			h.markSettled()
			h.logger.Debug("layout settled",
				zap.Uint64("handle", h.id),
				zap.Int("ticks", h.sim.Ticks()),
				zap.Float64("alpha", h.sim.Alpha()))
			continue
		}

		if tick != nil {
			select {
			case <-h.stop:
				return
			case <-tick:
			}
		}
	}
}

// Highlight lists what hovering a node emphasises.
type Highlight struct {
	NodeID  string
	Label   string
	Tooltip string
	Nodes   []string
	Edges   []int
}

// Highlight computes the hover emphasis for id from the graph's own edge
// list: the node, every node sharing an edge with it, and those edges.
func (h *Handle) Highlight(id string) (Highlight, error) {
	n, ok := h.graph.Node(id)
	if !ok {
		return Highlight{}, fmt.Errorf("%w: %s", ErrUnknownNode, id)
	}
	out := Highlight{NodeID: id, Label: n.Label, Nodes: []string{id}, Edges: []int{}}
	if n.Kind == domain.NodeKindGroup {
		out.Tooltip = fmt.Sprintf("%d members", n.MemberCount)
	}
	seen := map[string]bool{id: true}
	for i, e := range h.graph.Edges {
		if !e.Touches(id) {
			continue
		}
		out.Edges = append(out.Edges, i)
		other := e.Target
		if other == id {
			other = e.Source
		}
		if !seen[other] {
			seen[other] = true
			out.Nodes = append(out.Nodes, other)
		}
	}
	return out, nil
}

// Renderer owns the single active layout for one viewer.
type Renderer struct {
	mu       sync.Mutex
	params   func() Params
	events   *Dispatcher
	current  *Handle
	logger   *zap.Logger
	recorder Recorder
}

// RendererOption customizes a Renderer.
type RendererOption func(*Renderer)

// WithParams sets the parameter source. It is read on every Render.
func WithParams(fn func() Params) RendererOption {
	return func(r *Renderer) { r.params = fn }
}

// WithLogger sets the renderer's logger.
func WithLogger(logger *zap.Logger) RendererOption {
	return func(r *Renderer) { r.logger = logger }
}

// WithRecorder sets the metrics sink.
func WithRecorder(rec Recorder) RendererOption {
	return func(r *Renderer) { r.recorder = rec }
}

// NewRenderer creates a Renderer with its own Dispatcher.
func NewRenderer(opts ...RendererOption) *Renderer {
	r := &Renderer{
		params:   DefaultParams,
		events:   NewDispatcher(),
		logger:   zap.NewNop(),
		recorder: nopRecorder{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Events exposes the dispatcher viewers emit input on and subscribe to.
func (r *Renderer) Events() *Dispatcher { return r.events }

// Render tears down the previous layout, waits for it to stop, and only
// then starts laying out g. At no point do two loops run for one Renderer.
func (r *Renderer) Render(g *domain.Graph, vp Viewport) *Handle {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.current != nil {
		r.current.Destroy()
		r.current = nil
	}

	p := r.params()
	if err := p.Validate(); err != nil {
		r.logger.Warn("invalid layout params, using defaults", zap.Error(err))
		p = DefaultParams()
	}

	h := newHandle(g, p, vp, r.events, r.logger, r.recorder)
	h.attach()
	r.current = h
	go h.run()
	return h
}

// Current returns the live handle, or nil.
func (r *Renderer) Current() *Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// Destroy tears down the live handle, if any.
func (r *Renderer) Destroy() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current != nil {
		r.current.Destroy()
		r.current = nil
	}
}
