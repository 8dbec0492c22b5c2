// Package focus computes viewport recentering and distance-based dimming for
// a focal node. It keeps no state beyond which node is focal: every
// application is a pure function of the current snapshot positions, so it is
// safe to invoke repeatedly and rapidly while a user clicks through nodes.
package focus

import (
	"math"
	"time"

	"github.com/deckerd451/innovation-engine-sub000/pkg/model"
)

// Distance bands for node dimming. Inside NearRadius nodes stay at full
// opacity, between the radii they fade linearly, beyond FarRadius they sit
// at the fixed floor.
const (
	NearRadius = 150.0
	FarRadius  = 600.0
	FarOpacity = 0.15

	// EdgeTouchOpacity is the fixed elevated opacity for edges that touch
	// the focal node directly.
	EdgeTouchOpacity = 0.90

	// FocusZoom is the modest zoom multiplier applied when recentering.
	FocusZoom = 1.35
)

// BandOpacity maps a Euclidean distance from the focal node to an opacity.
func BandOpacity(dist float64) float64 {
	switch {
	case dist <= NearRadius:
		return 1.0
	case dist >= FarRadius:
		return FarOpacity
	default:
		t := (dist - NearRadius) / (FarRadius - NearRadius)
		return 1.0 - t*(1.0-FarOpacity)
	}
}

// Apply dims every node by its distance to the focal node and every edge by
// its endpoints' bands. The focal node itself is always fully opaque, and
// edges touching it get the fixed elevated opacity.
func Apply(nodes []*model.Node, edges []*model.Edge, focal *model.Node) {
	if focal == nil {
		Clear(nodes, edges)
		return
	}

	byID := make(map[string]*model.Node, len(nodes))
	for _, n := range nodes {
		byID[n.ID] = n
		if n == focal {
			n.Opacity = 1.0
			continue
		}
		n.Opacity = BandOpacity(math.Hypot(n.X-focal.X, n.Y-focal.Y))
	}

	for _, e := range edges {
		if e.SourceID == focal.ID || e.TargetID == focal.ID {
			e.Opacity = EdgeTouchOpacity
			continue
		}
		src, tgt := byID[e.SourceID], byID[e.TargetID]
		if src == nil || tgt == nil {
			continue
		}
		e.Opacity = (src.Opacity + tgt.Opacity) / 2
	}
}

// Clear restores every node to full opacity and every edge to its
// status-appropriate default. Edge status carries meaning independent of
// focus, so defaults are per-status rather than one flat value. Idempotent.
func Clear(nodes []*model.Node, edges []*model.Edge) {
	for _, n := range nodes {
		n.Opacity = 1.0
	}
	for _, e := range edges {
		e.Opacity = model.DefaultEdgeOpacity(e)
	}
}

// Camera animates the viewport transform toward a target. A new Retarget
// while a previous transition is still in flight simply replaces the target;
// the single underlying state means overlapping requests never fight.
type Camera struct {
	X, Y  float64 // world coordinate currently centered
	Scale float64

	targetX, targetY, targetScale float64

	// tau is the exponential approach time constant.
	tau time.Duration
}

// NewCamera returns a camera centered on (x, y) at scale 1.
func NewCamera(x, y float64) *Camera {
	return &Camera{
		X: x, Y: y, Scale: 1,
		targetX: x, targetY: y, targetScale: 1,
		tau: 180 * time.Millisecond,
	}
}

// Retarget aims the camera at a new center and scale. Supersedes any
// in-flight transition immediately.
func (c *Camera) Retarget(x, y, scale float64) {
	c.targetX, c.targetY, c.targetScale = x, y, scale
}

// FocusOn retargets the camera so the node is centered at the focus zoom.
func (c *Camera) FocusOn(n *model.Node) {
	c.Retarget(n.X, n.Y, FocusZoom)
}

// Reset retargets the camera back to a neutral view of the given center.
func (c *Camera) Reset(x, y float64) {
	c.Retarget(x, y, 1)
}

// Step advances the transition by dt using an exponential approach, which
// converges smoothly regardless of how often the target moved mid-flight.
func (c *Camera) Step(dt time.Duration) {
	if dt <= 0 {
		return
	}
	k := 1 - math.Exp(-float64(dt)/float64(c.tau))
	c.X += (c.targetX - c.X) * k
	c.Y += (c.targetY - c.Y) * k
	c.Scale += (c.targetScale - c.Scale) * k
}

// Done reports whether the camera has effectively reached its target.
func (c *Camera) Done() bool {
	return math.Abs(c.X-c.targetX) < 0.5 &&
		math.Abs(c.Y-c.targetY) < 0.5 &&
		math.Abs(c.Scale-c.targetScale) < 0.001
}
