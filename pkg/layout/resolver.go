// Package layout computes the initial target position for every node before
// the simulation starts. Themes form pinned reference regions; people and
// projects get randomized-but-bounded offsets inside or around them that the
// simulation's containment force then refines.
package layout

import (
	"hash/fnv"
	"math"
	"math/rand"
	"sort"
	"strings"

	"github.com/deckerd451/innovation-engine-sub000/pkg/model"
)

const (
	// Members are seeded no further than this fraction of their theme's
	// radius so they start inside the visible boundary.
	memberMaxRadiusFrac = 0.95
	memberMinRadiusFrac = 0.80

	themeRadiusBase = 70.0
	themeRadiusMax  = 170.0
)

// Resolve assigns an initial position, pin state and container radius to
// every node in the snapshot, and suppresses theme and person nodes that the
// current display mode does not warrant simulating at all.
//
// Placement is reproducible: theme angles are a function of sorted theme id,
// and per-node jitter is seeded from the node id, so repeated layouts of the
// same snapshot are identical.
func Resolve(snap *model.Snapshot, width, height float64, mode model.DisplayMode) {
	cx, cy := width/2, height/2
	minDim := math.Min(width, height)
	if minDim <= 0 {
		minDim = 600
	}

	me := snap.Lookup(snap.CurrentUserID)

	myThemes := make(map[string]struct{})
	if me != nil {
		for id := range me.Membership {
			if strings.HasPrefix(id, model.ThemeIDPrefix) {
				myThemes[id] = struct{}{}
			}
		}
	}

	placeThemes(snap, myThemes, cx, cy, minDim, mode)
	placePeople(snap, cx, cy, minDim)
	placeProjects(snap, cx, cy)
	placeOrganizations(snap, cx, cy, minDim)
}

func placeThemes(snap *model.Snapshot, myThemes map[string]struct{}, cx, cy, minDim float64, mode model.DisplayMode) {
	var mine, discoverable []*model.Node
	for _, n := range snap.Nodes {
		if n.Kind != model.NodeTheme {
			continue
		}
		n.ContainerRadius = themeRadius(snap, n.ID)
		if _, ok := myThemes[n.ID]; ok {
			mine = append(mine, n)
		} else if mode == model.ModeFullCommunity {
			discoverable = append(discoverable, n)
		} else {
			// Excluded from the simulation entirely: an off-screen but
			// still-simulated node keeps consuming charge and collision
			// work and can drift back into view.
			n.Visibility = model.VisibilitySuppressed
		}
	}

	// Ring radius grows with the number of themes to avoid crowding.
	innerRing := minDim*0.20 + float64(len(mine))*26
	ringPlace(mine, cx, cy, innerRing)

	outerRing := innerRing*2.1 + minDim*0.25
	ringPlace(discoverable, cx, cy, outerRing)
}

// ringPlace pins nodes on a circle with angles derived from sorted id order,
// so the arrangement survives reloads unchanged.
func ringPlace(nodes []*model.Node, cx, cy, radius float64) {
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })
	for i, n := range nodes {
		angle := 2 * math.Pi * float64(i) / float64(max(len(nodes), 1))
		pin(n, cx+radius*math.Cos(angle), cy+radius*math.Sin(angle))
	}
}

func placePeople(snap *model.Snapshot, cx, cy, minDim float64) {
	for _, n := range snap.Nodes {
		if n.Kind != model.NodePerson {
			continue
		}
		if n.IsCurrentUser {
			pin(n, cx, cy)
			continue
		}
		if n.Visibility == model.VisibilitySuppressed {
			continue
		}

		rng := nodeRand(n.ID)
		if themeID := firstVisibleTheme(snap, n); themeID != "" {
			container := snap.Lookup(themeID)
			frac := memberMinRadiusFrac + (memberMaxRadiusFrac-memberMinRadiusFrac)*rng.Float64()
			r := container.ContainerRadius * frac
			angle := rng.Float64() * 2 * math.Pi
			n.X = container.X + r*math.Cos(angle)
			n.Y = container.Y + r*math.Sin(angle)
			n.ContainerID = themeID
			continue
		}
		if n.IsConnectedToCurrentUser {
			// Connected but no theme in common: medium orbit around the
			// viewer's own node.
			r := minDim * (0.26 + 0.06*rng.Float64())
			angle := rng.Float64() * 2 * math.Pi
			n.X = cx + r*math.Cos(angle)
			n.Y = cy + r*math.Sin(angle)
			n.ContainerID = ""
			continue
		}
		// Visibility is the snapshot builder's decision; anyone it kept
		// visible without a usable container or a direct connection is
		// scattered widely, never re-suppressed here.
		n.X = cx + (rng.Float64()-0.5)*minDim*1.6
		n.Y = cy + (rng.Float64()-0.5)*minDim*1.6
		n.ContainerID = ""
	}
}

func placeProjects(snap *model.Snapshot, cx, cy float64) {
	for _, n := range snap.Nodes {
		if n.Kind != model.NodeProject {
			continue
		}
		rng := nodeRand(n.ID)
		tx, ty := cx, cy
		if parent := snap.Lookup(n.ContainerID); parent != nil && parent.Visibility == model.VisibilityVisible {
			tx, ty = parent.X, parent.Y
		}
		// Projects are deliberately free-floating: initial position near the
		// parent theme, but the containment force never applies to them.
		n.X = tx + (rng.Float64()-0.5)*90
		n.Y = ty + (rng.Float64()-0.5)*90
	}
}

func placeOrganizations(snap *model.Snapshot, cx, cy, minDim float64) {
	var orgs []*model.Node
	for _, n := range snap.Nodes {
		if n.Kind == model.NodeOrganization {
			orgs = append(orgs, n)
		}
	}
	radius := minDim*0.42 + float64(len(orgs))*8
	sort.Slice(orgs, func(i, j int) bool { return orgs[i].ID < orgs[j].ID })
	for i, n := range orgs {
		angle := 2 * math.Pi * float64(i) / float64(max(len(orgs), 1))
		n.X = cx + radius*math.Cos(angle)
		n.Y = cy + radius*math.Sin(angle)
	}
}

// themeRadius sizes a theme's container region by its member count.
func themeRadius(snap *model.Snapshot, themeID string) float64 {
	members := 0
	for _, n := range snap.Nodes {
		if n.Kind != model.NodePerson {
			continue
		}
		if _, ok := n.Membership[themeID]; ok {
			members++
		}
	}
	r := themeRadiusBase + 14*math.Sqrt(float64(members))
	return math.Min(r, themeRadiusMax)
}

// firstVisibleTheme returns the lexically smallest theme id in a person's
// membership set whose theme node is actually in the simulation. Suppressed
// themes are skipped before ordering: a person's lexically-first theme may be
// one the current display mode excludes while a later one is visible, and
// that person must still land inside the visible region. Iteration order
// over the map must not leak into layout.
func firstVisibleTheme(snap *model.Snapshot, n *model.Node) string {
	first := ""
	for id := range n.Membership {
		if !strings.HasPrefix(id, model.ThemeIDPrefix) {
			continue
		}
		theme := snap.Lookup(id)
		if theme == nil || theme.Visibility != model.VisibilityVisible {
			continue
		}
		if first == "" || id < first {
			first = id
		}
	}
	return first
}

func pin(n *model.Node, x, y float64) {
	n.X, n.Y = x, y
	n.FX, n.FY = x, y
	n.Pinned = true
}

// nodeRand returns a deterministic rng for a node so jitter is stable
// across relayouts.
func nodeRand(id string) *rand.Rand {
	h := fnv.New64a()
	h.Write([]byte(id))
	return rand.New(rand.NewSource(int64(h.Sum64())))
}
