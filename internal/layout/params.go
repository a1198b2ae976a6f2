// Package layout runs a bounded force-directed layout over a connection
// graph and publishes node positions frame by frame.
//
// A Renderer owns at most one live Handle. Each Handle runs its simulation
// on a single goroutine; all mutation (resize, drag, restart) is delivered
// to that goroutine as commands, so the simulation state itself needs no
// locking. Event wiring goes through a Dispatcher whose registrations are
// tracked per Handle and removed on Destroy.
package layout

import (
	"fmt"
	"time"
)

// Params holds the physical constants of the simulation.
type Params struct {
	GroupLinkDistance  float64       `yaml:"group_link_distance"`
	DirectLinkDistance float64       `yaml:"direct_link_distance"`
	LinkStrength       float64       `yaml:"link_strength"`
	GroupCharge        float64       `yaml:"group_charge"`
	UserCharge         float64       `yaml:"user_charge"`
	CollideMargin      float64       `yaml:"collide_margin"`
	CollideStrength    float64       `yaml:"collide_strength"`
	AlphaDecay         float64       `yaml:"alpha_decay"`
	AlphaMin           float64       `yaml:"alpha_min"`
	VelocityDecay      float64       `yaml:"velocity_decay"`
	MaxTicks           int           `yaml:"max_ticks"`
	DragAlphaTarget    float64       `yaml:"drag_alpha_target"`
	ResizeAlpha        float64       `yaml:"resize_alpha"`
	TickInterval       time.Duration `yaml:"tick_interval"`
}

// DefaultParams returns the tuned production constants.
func DefaultParams() Params {
	return Params{
		GroupLinkDistance:  100,
		DirectLinkDistance: 160,
		LinkStrength:       0.2,
		GroupCharge:        -200,
		UserCharge:         -400,
		CollideMargin:      30,
		CollideStrength:    0.8,
		AlphaDecay:         0.015,
		AlphaMin:           0.001,
		VelocityDecay:      0.35,
		MaxTicks:           300,
		DragAlphaTarget:    0.15,
		ResizeAlpha:        0.3,
		TickInterval:       16 * time.Millisecond,
	}
}

// Validate rejects parameter sets that would never terminate or diverge.
func (p Params) Validate() error {
	switch {
	case p.MaxTicks < 1:
		return fmt.Errorf("max_ticks must be at least 1")
	case p.AlphaDecay <= 0 || p.AlphaDecay >= 1:
		return fmt.Errorf("alpha_decay must be in (0, 1)")
	case p.AlphaMin <= 0:
		return fmt.Errorf("alpha_min must be positive")
	case p.VelocityDecay < 0 || p.VelocityDecay > 1:
		return fmt.Errorf("velocity_decay must be in [0, 1]")
	case p.TickInterval < 0:
		return fmt.Errorf("tick_interval cannot be negative")
	}
	return nil
}

// Viewport is the drawing area in pixels.
type Viewport struct {
	Width  float64
	Height float64
}

// DefaultViewport is used when a caller does not know its size yet.
var DefaultViewport = Viewport{Width: 800, Height: 600}

// OrDefault substitutes DefaultViewport dimensions that are not positive.
func (v Viewport) OrDefault() Viewport {
	if v.Width <= 0 {
		v.Width = DefaultViewport.Width
	}
	if v.Height <= 0 {
		v.Height = DefaultViewport.Height
	}
	return v
}

func (v Viewport) center() (float64, float64) {
	return v.Width / 2, v.Height / 2
}
