package model

import "testing"

func fixtureRecords() *CommunityRecords {
	return &CommunityRecords{
		Members: []MemberRecord{
			{ID: "a", DisplayName: "Ada"},
			{ID: "b", DisplayName: "Ben"},
			{ID: "c", DisplayName: "Cam"},
		},
		Themes: []ThemeRecord{
			{ID: "climate", DisplayName: "Climate"},
		},
		Relationships: []RelationshipRecord{
			{ID: "r1", SourceID: "a", TargetID: "b", Kind: EdgeConnection, Status: StatusAccepted},
			{ID: "r2", SourceID: "b", TargetID: "c", Kind: EdgeConnection, Status: StatusPending},
			{ID: "r3", SourceID: "a", TargetID: "climate", Kind: EdgeThemeParticipation, Engagement: EngagementActive},
			{ID: "r4", SourceID: "b", TargetID: "theme:climate", Kind: EdgeThemeParticipation, Engagement: EngagementObserver},
		},
	}
}

func TestBuildSnapshot_RoundTrip(t *testing.T) {
	snap := BuildSnapshot(fixtureRecords(), "a", ModeFullCommunity)

	var connections, participations int
	for _, e := range snap.Edges {
		switch e.Kind {
		case EdgeConnection:
			connections++
		case EdgeThemeParticipation:
			participations++
		}
	}
	if connections != 2 {
		t.Errorf("expected 2 connection edges, got %d", connections)
	}
	if participations != 2 {
		t.Errorf("expected 2 theme-participation edges, got %d", participations)
	}

	// Both participation edges must point at the single canonical theme node.
	theme := snap.Lookup("theme:climate")
	if theme == nil {
		t.Fatal("canonical theme node missing")
	}
	if snap.Lookup("climate") != nil {
		t.Error("bare theme id should not exist as a separate node")
	}
	for _, e := range snap.Edges {
		if e.Kind == EdgeThemeParticipation && e.TargetID != "theme:climate" {
			t.Errorf("participation edge endpoint not canonicalized: %s", e.TargetID)
		}
	}
}

func TestBuildSnapshot_FocusedModeSuppressesStrangers(t *testing.T) {
	// C has only a pending connection to B, nothing to A. In focused mode C
	// is suppressed; in full-community mode C stays visible.
	snap := BuildSnapshot(fixtureRecords(), "a", ModeFocused)
	c := snap.Lookup("c")
	if c == nil {
		t.Fatal("node c missing")
	}
	if c.Visibility != VisibilitySuppressed {
		t.Errorf("expected c suppressed in focused mode, got %s", c.Visibility)
	}

	// B is connected to A (accepted) and shares a theme: visible.
	if b := snap.Lookup("b"); b.Visibility != VisibilityVisible {
		t.Error("expected b visible in focused mode")
	}

	full := BuildSnapshot(fixtureRecords(), "a", ModeFullCommunity)
	if full.Lookup("c").Visibility != VisibilityVisible {
		t.Error("expected c visible in full-community mode")
	}
}

func TestBuildSnapshot_PendingCountsForVisibilityOnly(t *testing.T) {
	recs := fixtureRecords()
	snap := BuildSnapshot(recs, "b", ModeFocused)

	// Both A (accepted) and C (pending) are visible from B's perspective.
	if snap.Lookup("a").Visibility != VisibilityVisible {
		t.Error("accepted connection should be visible")
	}
	if snap.Lookup("c").Visibility != VisibilityVisible {
		t.Error("pending connection should be visible")
	}

	// Only the accepted edge counts toward the trust-weighted stat.
	if got := snap.AcceptedConnectionCount(); got != 1 {
		t.Errorf("expected 1 accepted connection for b, got %d", got)
	}
}

func TestBuildSnapshot_DropsDanglingEdges(t *testing.T) {
	recs := fixtureRecords()
	recs.Relationships = append(recs.Relationships,
		RelationshipRecord{ID: "bad1", SourceID: "a", TargetID: "ghost", Kind: EdgeConnection, Status: StatusAccepted},
		RelationshipRecord{ID: "bad2", SourceID: "ghost", TargetID: "ghost2", Kind: EdgeThemeParticipation},
	)

	snap := BuildSnapshot(recs, "a", ModeFullCommunity)
	for _, e := range snap.Edges {
		if snap.Lookup(e.SourceID) == nil || snap.Lookup(e.TargetID) == nil {
			t.Fatalf("dangling edge %s reached the snapshot", e.ID)
		}
	}
	if len(snap.Edges) != 4 {
		t.Errorf("expected 4 surviving edges, got %d", len(snap.Edges))
	}
}

func TestBuildSnapshot_MembershipDerivation(t *testing.T) {
	recs := fixtureRecords()
	recs.Projects = []ProjectRecord{{ID: "p1", DisplayName: "Solar Co-op", ThemeID: "climate"}}
	recs.Relationships = append(recs.Relationships,
		RelationshipRecord{ID: "r5", SourceID: "c", TargetID: "p1", Kind: EdgeProjectMembership},
	)

	snap := BuildSnapshot(recs, "a", ModeFullCommunity)
	c := snap.Lookup("c")
	if _, ok := c.Membership["p1"]; !ok {
		t.Error("project membership not derived")
	}
	// Project membership implies participation in the project's theme.
	if _, ok := c.Membership["theme:climate"]; !ok {
		t.Error("theme membership via project not derived")
	}
	if c.ContainerID != "theme:climate" {
		t.Errorf("expected container theme:climate, got %q", c.ContainerID)
	}
}

func TestDefaultEdgeOpacity_StrictlyDescending(t *testing.T) {
	accepted := DefaultEdgeOpacity(&Edge{Kind: EdgeConnection, Status: StatusAccepted})
	pending := DefaultEdgeOpacity(&Edge{Kind: EdgeConnection, Status: StatusPending})
	suggested := DefaultEdgeOpacity(&Edge{Kind: EdgeConnection, Status: StatusSuggested})
	if !(accepted > pending && pending > suggested) {
		t.Errorf("opacities not strictly descending: %v %v %v", accepted, pending, suggested)
	}
}

func TestColorIndex_StableAndBounded(t *testing.T) {
	a := ColorIndex("node-1", 8)
	b := ColorIndex("node-1", 8)
	if a != b {
		t.Error("color index not deterministic")
	}
	for _, id := range []string{"x", "y", "z", ""} {
		if idx := ColorIndex(id, 5); idx < 0 || idx >= 5 {
			t.Errorf("color index out of range: %d", idx)
		}
	}
	if ColorIndex("anything", 0) != 0 {
		t.Error("zero palette should map to 0")
	}
}
