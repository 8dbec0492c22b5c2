package sim

import (
	"math"

	"github.com/deckerd451/innovation-engine-sub000/pkg/model"
)

// linkParams returns spring rest length and strength for an edge. Stiffer
// and shorter springs pull project members tight around their project;
// suggested connections barely tug. Only accepted connections get the full
// trust-weighted strength, pending ones are visible but weak.
func linkParams(e *model.Edge) (distance, strength float64) {
	switch e.Kind {
	case model.EdgeProjectMembership:
		return 60, 0.70
	case model.EdgeThemeParticipation:
		return 100, 0.30
	case model.EdgeOrgMembership:
		return 140, 0.25
	case model.EdgeConnection:
		switch e.Status {
		case model.StatusAccepted:
			return 120, 0.50
		case model.StatusPending:
			return 150, 0.22
		default:
			return 180, 0.10
		}
	}
	return 120, 0.30
}

// collisionRadius sizes per-kind exclusion zones. The current user's node
// gets the largest one so their immediate neighborhood stays readable.
func collisionRadius(n *model.Node) float64 {
	switch n.Kind {
	case model.NodePerson:
		if n.IsCurrentUser {
			return 34
		}
		return 18
	case model.NodeProject:
		return 16
	case model.NodeTheme:
		return 24
	case model.NodeOrganization:
		return 20
	}
	return 16
}

// applyLinks accumulates spring forces along edges.
func (s *Simulation) applyLinks() {
	for _, l := range s.links {
		src, tgt := l.source, l.target
		dx := tgt.X - src.X
		dy := tgt.Y - src.Y
		dist := math.Hypot(dx, dy)
		if dist < 1 {
			dist = 1
		}
		f := (dist - l.distance) / dist * l.strength * s.alpha
		fx, fy := dx*f, dy*f
		tgt.VX -= fx / 2
		tgt.VY -= fy / 2
		src.VX += fx / 2
		src.VY += fy / 2
	}
}

// applyCharge accumulates pairwise repulsion. Quadratic in node count; the
// snapshot filter keeps the active set small enough to fit a frame budget.
func (s *Simulation) applyCharge() {
	for i := range s.nodes {
		a := s.nodes[i]
		for j := i + 1; j < len(s.nodes); j++ {
			b := s.nodes[j]
			dx := a.X - b.X
			dy := a.Y - b.Y
			distSq := dx*dx + dy*dy
			if distSq < 1 {
				distSq = 1
			}
			f := s.cfg.ChargeStrength * s.alpha / distSq
			dist := math.Sqrt(distSq)
			fx := dx / dist * f
			fy := dy / dist * f
			a.VX += fx
			a.VY += fy
			b.VX -= fx
			b.VY -= fy
		}
	}
}

// applyCollision separates overlapping nodes by their kind-sized radii.
func (s *Simulation) applyCollision() {
	for i := range s.nodes {
		a := s.nodes[i]
		ra := collisionRadius(a)
		for j := i + 1; j < len(s.nodes); j++ {
			b := s.nodes[j]
			minDist := ra + collisionRadius(b)
			dx := b.X - a.X
			dy := b.Y - a.Y
			dist := math.Hypot(dx, dy)
			if dist >= minDist || dist == 0 {
				continue
			}
			overlap := (minDist - dist) / dist * 0.5
			fx, fy := dx*overlap, dy*overlap
			a.VX -= fx
			a.VY -= fy
			b.VX += fx
			b.VY += fy
		}
	}
}

// applyContainment pulls members back toward their theme's center once they
// stray beyond the containment band. Themes and projects are exempt: themes
// are the regions themselves and projects are deliberately free-floating.
func (s *Simulation) applyContainment() {
	for _, n := range s.nodes {
		if n.Pinned || n.Kind == model.NodeTheme || n.Kind == model.NodeProject || n.ContainerID == "" {
			continue
		}
		container := s.byID[n.ContainerID]
		if container == nil {
			continue
		}
		boundary := container.ContainerRadius * s.cfg.ContainmentFrac
		if boundary <= 0 {
			continue
		}
		dx := n.X - container.X
		dy := n.Y - container.Y
		dist := math.Hypot(dx, dy)
		if dist <= boundary {
			continue
		}
		// Proportional restoring force scaled by overflow distance.
		overflow := dist - boundary
		f := overflow * s.cfg.ContainmentStrength * s.alpha / dist
		n.VX -= dx * f
		n.VY -= dy * f
	}
}
