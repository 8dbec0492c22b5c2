package sim

import (
	"math"
	"testing"

	"github.com/deckerd451/innovation-engine-sub000/pkg/layout"
	"github.com/deckerd451/innovation-engine-sub000/pkg/model"
)

func laidOutSnapshot(t *testing.T, mode model.DisplayMode) *model.Snapshot {
	t.Helper()
	recs := &model.CommunityRecords{
		Members: []model.MemberRecord{
			{ID: "me"}, {ID: "m1"}, {ID: "m2"}, {ID: "stray"},
		},
		Themes: []model.ThemeRecord{{ID: "alpha"}},
		Projects: []model.ProjectRecord{
			{ID: "p1", ThemeID: "alpha"},
		},
		Relationships: []model.RelationshipRecord{
			{ID: "e1", SourceID: "me", TargetID: "alpha", Kind: model.EdgeThemeParticipation},
			{ID: "e2", SourceID: "m1", TargetID: "alpha", Kind: model.EdgeThemeParticipation},
			{ID: "e3", SourceID: "m2", TargetID: "alpha", Kind: model.EdgeThemeParticipation},
			{ID: "e4", SourceID: "m1", TargetID: "p1", Kind: model.EdgeProjectMembership},
			{ID: "e5", SourceID: "me", TargetID: "m2", Kind: model.EdgeConnection, Status: model.StatusAccepted},
		},
	}
	snap := model.BuildSnapshot(recs, "me", mode)
	layout.Resolve(snap, 1000, 800, mode)
	return snap
}

func TestNew_ZeroSurface(t *testing.T) {
	snap := laidOutSnapshot(t, model.ModeFullCommunity)
	if _, err := New(snap, Config{}, 0, 600); err != ErrZeroSurface {
		t.Errorf("expected ErrZeroSurface, got %v", err)
	}
	if _, err := New(snap, Config{}, 800, 0); err != ErrZeroSurface {
		t.Errorf("expected ErrZeroSurface, got %v", err)
	}
}

func TestSimulation_SettlesWithinBoundedTicks(t *testing.T) {
	snap := laidOutSnapshot(t, model.ModeFullCommunity)
	s, err := New(snap, Config{}, 1000, 800)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	ticks := 0
	for s.Tick() {
		ticks++
		if ticks > 2000 {
			t.Fatalf("simulation did not settle: alpha=%v after %d ticks", s.Alpha(), ticks)
		}
	}
	if !s.Settled() {
		t.Error("Tick returned false but Settled is false")
	}
	for _, n := range s.Nodes() {
		if math.IsNaN(n.X) || math.IsNaN(n.Y) {
			t.Fatalf("node %s has NaN position after settling", n.ID)
		}
	}
}

func TestSimulation_PinnedNodesNeverMove(t *testing.T) {
	snap := laidOutSnapshot(t, model.ModeFullCommunity)
	s, err := New(snap, Config{}, 1000, 800)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	theme := s.Lookup("theme:alpha")
	me := s.Lookup("me")
	tx, ty := theme.X, theme.Y

	for i := 0; i < 200 && s.Tick(); i++ {
	}

	if theme.X != tx || theme.Y != ty {
		t.Errorf("pinned theme moved: (%v,%v) -> (%v,%v)", tx, ty, theme.X, theme.Y)
	}
	if me.X != 500 || me.Y != 400 {
		t.Errorf("pinned current user moved: (%v,%v)", me.X, me.Y)
	}
}

func TestSimulation_ContainmentPullsStraysBack(t *testing.T) {
	snap := laidOutSnapshot(t, model.ModeFullCommunity)
	s, err := New(snap, Config{}, 1000, 800)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	m1 := s.Lookup("m1")
	theme := s.Lookup("theme:alpha")

	// Fling the member far outside its container.
	m1.X = theme.X + theme.ContainerRadius*4
	m1.Y = theme.Y
	before := math.Hypot(m1.X-theme.X, m1.Y-theme.Y)

	s.Reheat(1.0)
	for i := 0; i < 500 && s.Tick(); i++ {
	}

	after := math.Hypot(m1.X-theme.X, m1.Y-theme.Y)
	if after >= before {
		t.Errorf("containment did not pull member inward: %v -> %v", before, after)
	}
	if after > theme.ContainerRadius*1.5 {
		t.Errorf("member settled too far outside container: dist=%v radius=%v", after, theme.ContainerRadius)
	}
}

func TestSimulation_ProjectsAreNeverContained(t *testing.T) {
	snap := laidOutSnapshot(t, model.ModeFullCommunity)
	s, err := New(snap, Config{}, 1000, 800)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	p1 := s.Lookup("p1")
	theme := s.Lookup("theme:alpha")
	p1.X = theme.X + theme.ContainerRadius*4
	p1.Y = theme.Y
	p1.VX, p1.VY = 0, 0

	// A single tick must not apply any containment acceleration toward the
	// theme; only generic charge/link forces act on projects.
	s.applyContainment()
	if p1.VX != 0 || p1.VY != 0 {
		t.Errorf("containment force applied to project: v=(%v,%v)", p1.VX, p1.VY)
	}
}

func TestSimulation_RebuildCarriesPositionsOver(t *testing.T) {
	snap := laidOutSnapshot(t, model.ModeFullCommunity)
	s, err := New(snap, Config{}, 1000, 800)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	for i := 0; i < 100 && s.Tick(); i++ {
	}
	m1 := s.Lookup("m1")
	px, py := m1.X, m1.Y

	next := laidOutSnapshot(t, model.ModeFullCommunity)
	s2, err := s.Rebuild(next)
	if err != nil {
		t.Fatalf("Rebuild failed: %v", err)
	}
	carried := s2.Lookup("m1")
	if carried == m1 {
		t.Fatal("rebuild reused the old node object instead of the new snapshot's")
	}
	if carried.X != px || carried.Y != py {
		t.Errorf("position not carried over: (%v,%v) vs (%v,%v)", carried.X, carried.Y, px, py)
	}
	if s2.Alpha() < 0.99 {
		t.Errorf("rebuild should restart with full energy, alpha=%v", s2.Alpha())
	}
}

func TestSimulation_SuppressedNodesExcluded(t *testing.T) {
	snap := laidOutSnapshot(t, model.ModeFocused)
	s, err := New(snap, Config{}, 1000, 800)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if s.Lookup("stray") != nil {
		t.Error("suppressed node entered the simulation")
	}
	for _, e := range s.Edges() {
		if e.SourceID == "stray" || e.TargetID == "stray" {
			t.Error("edge touching suppressed node entered the simulation")
		}
	}
}

func TestSimulation_DragPinAndRelease(t *testing.T) {
	snap := laidOutSnapshot(t, model.ModeFullCommunity)
	s, err := New(snap, Config{}, 1000, 800)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	m2 := s.Lookup("m2")
	s.DragStart("m2")
	if !m2.Pinned {
		t.Fatal("drag did not pin the node")
	}
	s.Drag("m2", 123, 456)
	s.Tick()
	if m2.X != 123 || m2.Y != 456 {
		t.Errorf("dragged node not held at drag position: (%v,%v)", m2.X, m2.Y)
	}

	s.DragEnd("m2")
	if m2.Pinned {
		t.Error("drag pin not released")
	}

	// Layout pins survive a spurious drag cycle.
	s.DragStart("me")
	s.DragEnd("me")
	if !s.Lookup("me").Pinned {
		t.Error("permanent pin removed by drag release")
	}
}
