// Package sim runs the iterative physics solver that relaxes node positions
// every tick until near-equilibrium. It owns the live node and edge arrays
// exclusively once constructed; the layout resolver and data model only hand
// data off at build time, and dragging is the sole external mutation path.
package sim

import (
	"errors"
	"log"
	"math"

	"github.com/deckerd451/innovation-engine-sub000/pkg/model"
)

// ErrZeroSurface is returned when the render surface reports no usable area.
// Running physics against a zero-sized canvas produces NaN positions, so the
// caller defers the build until a real size arrives.
var ErrZeroSurface = errors.New("sim: render surface has zero usable area")

// Config tunes the solver. Zero values select defaults that settle within a
// few seconds without oscillating indefinitely.
type Config struct {
	AlphaMin            float64 // tick loop terminates below this energy
	AlphaDecay          float64 // per-tick relaxation toward AlphaTarget
	VelocityDecay       float64 // per-tick velocity damping, 0..1
	ChargeStrength      float64 // pairwise repulsion scale
	ContainmentStrength float64 // restoring force scale for contained nodes
	ContainmentFrac     float64 // fraction of container radius before pull-back
}

func (c *Config) applyDefaults() {
	if c.AlphaMin == 0 {
		c.AlphaMin = 0.005
	}
	if c.AlphaDecay == 0 {
		c.AlphaDecay = 0.028
	}
	if c.VelocityDecay == 0 {
		c.VelocityDecay = 0.40
	}
	if c.ChargeStrength == 0 {
		c.ChargeStrength = 2600
	}
	if c.ContainmentStrength == 0 {
		c.ContainmentStrength = 0.12
	}
	if c.ContainmentFrac == 0 {
		c.ContainmentFrac = 0.90
	}
}

type link struct {
	source, target *model.Node
	distance       float64
	strength       float64
}

// Simulation holds the live solver state for one snapshot generation.
type Simulation struct {
	cfg   Config
	nodes []*model.Node
	edges []*model.Edge
	links []link
	byID  map[string]*model.Node

	width, height float64
	alpha         float64
	alphaTarget   float64

	// dragPinned remembers which nodes were pinned only for the duration of
	// an active drag, as opposed to layout pins on themes and the viewer.
	dragPinned map[string]bool
}

// New constructs a solver from a laid-out snapshot. Edges whose endpoints do
// not resolve inside the visible node set are filtered defensively; handing
// the solver a dangling reference is a must-not-happen condition even though
// the snapshot builder already drops them.
func New(snap *model.Snapshot, cfg Config, width, height float64) (*Simulation, error) {
	if width <= 0 || height <= 0 {
		return nil, ErrZeroSurface
	}
	cfg.applyDefaults()

	s := &Simulation{
		cfg:        cfg,
		width:      width,
		height:     height,
		alpha:      1.0,
		byID:       make(map[string]*model.Node),
		dragPinned: make(map[string]bool),
	}

	for _, n := range snap.Visible() {
		s.nodes = append(s.nodes, n)
		s.byID[n.ID] = n
	}

	for _, e := range snap.VisibleEdges() {
		src, ok1 := s.byID[e.SourceID]
		tgt, ok2 := s.byID[e.TargetID]
		if !ok1 || !ok2 {
			log.Printf("sim: filtered unresolved edge %s (%s -> %s)", e.ID, e.SourceID, e.TargetID)
			continue
		}
		dist, strength := linkParams(e)
		s.edges = append(s.edges, e)
		s.links = append(s.links, link{source: src, target: tgt, distance: dist, strength: strength})
	}

	return s, nil
}

// Rebuild constructs a fresh solver from a new snapshot, carrying the last
// known position and velocity over for every node id that survives the
// reload. Fresh nodes keep their layout-resolved coordinates. The old
// simulation must not be ticked afterwards.
func (s *Simulation) Rebuild(snap *model.Snapshot) (*Simulation, error) {
	next, err := New(snap, s.cfg, s.width, s.height)
	if err != nil {
		return nil, err
	}
	for _, n := range next.nodes {
		prev, ok := s.byID[n.ID]
		if !ok || n.Pinned {
			continue
		}
		n.X, n.Y = prev.X, prev.Y
		n.VX, n.VY = prev.VX, prev.VY
	}
	return next, nil
}

// Tick advances the solver one step. Returns false once the internal energy
// has decayed below the floor and no reheat target is set; callers stop
// scheduling ticks at that point.
func (s *Simulation) Tick() bool {
	if s.Settled() {
		return false
	}

	s.alpha += (s.alphaTarget - s.alpha) * s.cfg.AlphaDecay

	s.applyLinks()
	s.applyCharge()
	s.applyContainment()
	s.applyCollision()

	damp := 1 - s.cfg.VelocityDecay
	for _, n := range s.nodes {
		if n.Pinned {
			n.X, n.Y = n.FX, n.FY
			n.VX, n.VY = 0, 0
			continue
		}
		n.VX *= damp
		n.VY *= damp
		n.X += n.VX
		n.Y += n.VY
		if math.IsNaN(n.X) || math.IsNaN(n.Y) {
			// A degenerate configuration should recover, not poison the
			// render layer.
			n.X, n.Y = s.width/2, s.height/2
			n.VX, n.VY = 0, 0
		}
	}
	return true
}

// Settled reports whether the solver reached its alpha floor.
func (s *Simulation) Settled() bool {
	return s.alpha < s.cfg.AlphaMin && s.alphaTarget < s.cfg.AlphaMin
}

// Alpha exposes the current solver energy.
func (s *Simulation) Alpha() float64 { return s.alpha }

// Reheat restores energy after an external disturbance such as a category
// filter change or a drag release settling the neighborhood.
func (s *Simulation) Reheat(alpha float64) {
	if alpha > s.alpha {
		s.alpha = alpha
	}
}

// Nodes returns the live node array. Read-only for consumers; positions
// update in place every tick.
func (s *Simulation) Nodes() []*model.Node { return s.nodes }

// Edges returns the live edge array.
func (s *Simulation) Edges() []*model.Edge { return s.edges }

// Lookup returns the live node for id, or nil.
func (s *Simulation) Lookup(id string) *model.Node { return s.byID[id] }

// DragStart pins the node at its current position for the duration of the
// drag and keeps the solver warm so neighbors react.
func (s *Simulation) DragStart(id string) {
	n := s.byID[id]
	if n == nil {
		return
	}
	if !n.Pinned {
		s.dragPinned[id] = true
		n.Pinned = true
	}
	n.FX, n.FY = n.X, n.Y
	s.alphaTarget = 0.3
	if s.alpha < 0.3 {
		s.alpha = 0.3
	}
}

// Drag moves an actively dragged node. This is the only sanctioned external
// write to a node's position mid-simulation.
func (s *Simulation) Drag(id string, x, y float64) {
	n := s.byID[id]
	if n == nil || !n.Pinned {
		return
	}
	n.FX, n.FY = x, y
	n.X, n.Y = x, y
}

// DragEnd releases a drag pin. Layout pins (themes, the viewer's node)
// survive; only pins created by DragStart are removed.
func (s *Simulation) DragEnd(id string) {
	n := s.byID[id]
	if n == nil {
		return
	}
	if s.dragPinned[id] {
		n.Pinned = false
		delete(s.dragPinned, id)
	}
	s.alphaTarget = 0
}
