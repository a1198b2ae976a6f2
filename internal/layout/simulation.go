package layout

import (
	"math"

	"franklink-backend/internal/domain"
)

// Position is a node's location in viewport coordinates.
type Position struct {
	ID string  `json:"id"`
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
}

// Frame is a snapshot of the simulation after a tick.
type Frame struct {
	Tick      int        `json:"tick"`
	Alpha     float64    `json:"alpha"`
	Settled   bool       `json:"settled"`
	Viewport  Viewport   `json:"-"`
	Positions []Position `json:"positions"`
}

// Position looks up a node in the frame.
func (f Frame) Position(id string) (Position, bool) {
	for _, p := range f.Positions {
		if p.ID == id {
			return p, true
		}
	}
	return Position{}, false
}

type simNode struct {
	id     string
	radius float64
	charge float64
	x, y   float64
	vx, vy float64
	fx, fy float64
	fixed  bool
}

type simLink struct {
	source, target int
	distance       float64
	bias           float64
}

// lcg is the linear congruential generator used to jiggle coincident nodes.
// A fixed seed keeps layouts reproducible.
type lcg struct{ s uint32 }

func (g *lcg) next() float64 {
	g.s = 1664525*g.s + 1013904223
	return float64(g.s) / 4294967296
}

func (g *lcg) jiggle() float64 {
	return (g.next() - 0.5) * 1e-6
}

const (
	initialRadius = 10.0
	distanceMin2  = 1.0
)

var initialAngle = math.Pi * (3 - math.Sqrt(5))

// Simulation is a velocity Verlet force simulation with link, many-body,
// centring and collision forces. It is not safe for concurrent use.
type Simulation struct {
	params      Params
	nodes       []simNode
	links       []simLink
	index       map[string]int
	viewport    Viewport
	alpha       float64
	alphaTarget float64
	ticks       int
	rng         lcg
}

// NewSimulation seeds node positions on a phyllotaxis spiral around the
// viewport centre and pins the self node there.
func NewSimulation(g *domain.Graph, p Params, vp Viewport) *Simulation {
	vp = vp.OrDefault()
	cx, cy := vp.center()
	s := &Simulation{
		params:   p,
		nodes:    make([]simNode, len(g.Nodes)),
		index:    make(map[string]int, len(g.Nodes)),
		viewport: vp,
		alpha:    1,
		rng:      lcg{s: 1},
	}

	for i, n := range g.Nodes {
		radius := initialRadius * math.Sqrt(0.5+float64(i))
		angle := float64(i) * initialAngle
		charge := p.UserCharge
		if n.Kind == domain.NodeKindGroup {
			charge = p.GroupCharge
		}
		s.nodes[i] = simNode{
			id:     n.ID,
			radius: n.Radius,
			charge: charge,
			x:      cx + radius*math.Cos(angle),
			y:      cy + radius*math.Sin(angle),
		}
		s.index[n.ID] = i
	}
	s.pinSelf()

	degree := make([]int, len(s.nodes))
	for _, e := range g.Edges {
		si, ok1 := s.index[e.Source]
		ti, ok2 := s.index[e.Target]
		if !ok1 || !ok2 {
			continue
		}
		distance := p.DirectLinkDistance
		if e.Kind == domain.EdgeKindGroup {
			distance = p.GroupLinkDistance
		}
		s.links = append(s.links, simLink{source: si, target: ti, distance: distance})
		degree[si]++
		degree[ti]++
	}
	for i := range s.links {
		l := &s.links[i]
		l.bias = float64(degree[l.source]) / float64(degree[l.source]+degree[l.target])
	}
	return s
}

func (s *Simulation) pinSelf() {
	i, ok := s.index[domain.SelfNodeID]
	if !ok {
		return
	}
	cx, cy := s.viewport.center()
	n := &s.nodes[i]
	n.fx, n.fy, n.fixed = cx, cy, true
	n.x, n.y = cx, cy
}

// Tick advances the simulation by one step.
func (s *Simulation) Tick() {
	s.alpha += (s.alphaTarget - s.alpha) * s.params.AlphaDecay
	s.ticks++

	s.applyLinks()
	s.applyCharge()
	s.applyCenter()
	s.applyCollide()

	keep := 1 - s.params.VelocityDecay
	for i := range s.nodes {
		n := &s.nodes[i]
		if n.fixed {
			n.x, n.vx = n.fx, 0
			n.y, n.vy = n.fy, 0
			continue
		}
		n.vx *= keep
		n.vy *= keep
		n.x += n.vx
		n.y += n.vy
	}
}

func (s *Simulation) applyLinks() {
	for _, l := range s.links {
		src, tgt := &s.nodes[l.source], &s.nodes[l.target]
		x := tgt.x + tgt.vx - src.x - src.vx
		if x == 0 {
			x = s.rng.jiggle()
		}
		y := tgt.y + tgt.vy - src.y - src.vy
		if y == 0 {
			y = s.rng.jiggle()
		}
		d := math.Sqrt(x*x + y*y)
		k := (d - l.distance) / d * s.alpha * s.params.LinkStrength
		x *= k
		y *= k
		tgt.vx -= x * l.bias
		tgt.vy -= y * l.bias
		src.vx += x * (1 - l.bias)
		src.vy += y * (1 - l.bias)
	}
}

// applyCharge computes pairwise many-body forces exactly. Graphs are capped
// by the loader's query limits, so the quadratic cost stays small.
func (s *Simulation) applyCharge() {
	for i := range s.nodes {
		n := &s.nodes[i]
		for j := range s.nodes {
			if i == j {
				continue
			}
			o := &s.nodes[j]
			x := o.x - n.x
			if x == 0 {
				x = s.rng.jiggle()
			}
			y := o.y - n.y
			if y == 0 {
				y = s.rng.jiggle()
			}
			l := x*x + y*y
			if l < distanceMin2 {
				l = math.Sqrt(distanceMin2 * l)
			}
			w := o.charge * s.alpha / l
			n.vx += x * w
			n.vy += y * w
		}
	}
}

func (s *Simulation) applyCenter() {
	if len(s.nodes) == 0 {
		return
	}
	cx, cy := s.viewport.center()
	var sx, sy float64
	for _, n := range s.nodes {
		sx += n.x
		sy += n.y
	}
	sx = sx/float64(len(s.nodes)) - cx
	sy = sy/float64(len(s.nodes)) - cy
	for i := range s.nodes {
		s.nodes[i].x -= sx
		s.nodes[i].y -= sy
	}
}

func (s *Simulation) applyCollide() {
	margin := s.params.CollideMargin
	for i := range s.nodes {
		n := &s.nodes[i]
		ri := n.radius + margin
		ri2 := ri * ri
		xi := n.x + n.vx
		yi := n.y + n.vy
		for j := i + 1; j < len(s.nodes); j++ {
			o := &s.nodes[j]
			rj := o.radius + margin
			r := ri + rj
			x := xi - o.x - o.vx
			y := yi - o.y - o.vy
			l := x*x + y*y
			if l >= r*r {
				continue
			}
			if x == 0 {
				x = s.rng.jiggle()
				l += x * x
			}
			if y == 0 {
				y = s.rng.jiggle()
				l += y * y
			}
			l = math.Sqrt(l)
			k := (r - l) / l * s.params.CollideStrength
			x *= k
			y *= k
			share := rj * rj / (ri2 + rj*rj)
			n.vx += x * share
			n.vy += y * share
			o.vx -= x * (1 - share)
			o.vy -= y * (1 - share)
		}
	}
}

// Settled reports whether the current run is over: alpha fell below the
// minimum or the tick ceiling was reached.
func (s *Simulation) Settled() bool {
	return s.alpha < s.params.AlphaMin || s.ticks >= s.params.MaxTicks
}

// Restart begins a new run at the given alpha. A negative alpha keeps the
// current value. The tick ceiling applies per run.
func (s *Simulation) Restart(alpha float64) {
	if alpha >= 0 {
		s.alpha = alpha
	}
	s.ticks = 0
}

// SetAlphaTarget sets the value alpha decays towards.
func (s *Simulation) SetAlphaTarget(t float64) {
	s.alphaTarget = t
}

// Resize moves the centre and re-pins the self node to it.
func (s *Simulation) Resize(vp Viewport) {
	s.viewport = vp.OrDefault()
	s.pinSelf()
}

// Fix pins a node at (x, y) until Release.
func (s *Simulation) Fix(id string, x, y float64) bool {
	i, ok := s.index[id]
	if !ok || id == domain.SelfNodeID {
		return false
	}
	n := &s.nodes[i]
	n.fx, n.fy, n.fixed = x, y, true
	return true
}

// Release unpins a dragged node.
func (s *Simulation) Release(id string) bool {
	i, ok := s.index[id]
	if !ok || id == domain.SelfNodeID {
		return false
	}
	s.nodes[i].fixed = false
	return true
}

// Alpha returns the current alpha.
func (s *Simulation) Alpha() float64 { return s.alpha }

// Ticks returns the ticks elapsed in the current run.
func (s *Simulation) Ticks() int { return s.ticks }

// Frame captures the current positions.
func (s *Simulation) Frame() Frame {
	f := Frame{
		Tick:      s.ticks,
		Alpha:     s.alpha,
		Settled:   s.Settled(),
		Viewport:  s.viewport,
		Positions: make([]Position, len(s.nodes)),
	}
	for i, n := range s.nodes {
		f.Positions[i] = Position{ID: n.id, X: n.x, Y: n.y}
	}
	return f
}
