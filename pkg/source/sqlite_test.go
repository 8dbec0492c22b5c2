package source

import (
	"context"
	"testing"

	"github.com/deckerd451/innovation-engine-sub000/pkg/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(":memory:")
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func seedRecords() *model.CommunityRecords {
	return &model.CommunityRecords{
		Members: []model.MemberRecord{
			{ID: "m1", DisplayName: "Mira", ImageRef: "avatars/mira.png", Tags: []string{"design", "energy"}},
			{ID: "m2", DisplayName: "Theo"},
		},
		Themes: []model.ThemeRecord{
			{ID: "climate", DisplayName: "Climate"},
		},
		Projects: []model.ProjectRecord{
			{ID: "p1", DisplayName: "Solar Map", ThemeID: "climate"},
		},
		Organizations: []model.OrganizationRecord{
			{ID: "o1", DisplayName: "Green Labs"},
		},
		Relationships: []model.RelationshipRecord{
			{SourceID: "m1", TargetID: "m2", Kind: model.EdgeConnection, Status: model.StatusAccepted},
			{SourceID: "m1", TargetID: "theme:climate", Kind: model.EdgeThemeParticipation, Engagement: model.EngagementActive},
		},
	}
}

func TestStore_SeedAndFetchRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.SeedCommunity(ctx, seedRecords()); err != nil {
		t.Fatalf("SeedCommunity failed: %v", err)
	}

	recs, err := s.FetchCommunity(ctx)
	if err != nil {
		t.Fatalf("FetchCommunity failed: %v", err)
	}

	if len(recs.Members) != 2 || len(recs.Themes) != 1 || len(recs.Projects) != 1 || len(recs.Organizations) != 1 {
		t.Fatalf("unexpected record counts: %d members, %d themes, %d projects, %d orgs",
			len(recs.Members), len(recs.Themes), len(recs.Projects), len(recs.Organizations))
	}
	if len(recs.Relationships) != 2 {
		t.Fatalf("expected 2 relationships, got %d", len(recs.Relationships))
	}

	var mira *model.MemberRecord
	for i := range recs.Members {
		if recs.Members[i].ID == "m1" {
			mira = &recs.Members[i]
		}
	}
	if mira == nil {
		t.Fatal("member m1 missing from fetch")
	}
	if len(mira.Tags) != 2 || mira.Tags[0] != "design" {
		t.Errorf("tags did not round-trip: %v", mira.Tags)
	}
	if mira.ImageRef != "avatars/mira.png" {
		t.Errorf("image ref did not round-trip: %q", mira.ImageRef)
	}
}

func TestStore_SeedIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := s.SeedCommunity(ctx, seedRecords()); err != nil {
			t.Fatalf("SeedCommunity run %d failed: %v", i, err)
		}
	}

	recs, err := s.FetchCommunity(ctx)
	if err != nil {
		t.Fatalf("FetchCommunity failed: %v", err)
	}
	if len(recs.Members) != 2 {
		t.Errorf("repeated seed duplicated members: %d", len(recs.Members))
	}
	if len(recs.Relationships) != 2 {
		t.Errorf("repeated seed duplicated relationships: %d", len(recs.Relationships))
	}
}

func TestStore_UpsertRelationship(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.SeedCommunity(ctx, seedRecords()); err != nil {
		t.Fatalf("SeedCommunity failed: %v", err)
	}

	// Pending request upgraded to accepted keeps one row.
	r := model.RelationshipRecord{SourceID: "m2", TargetID: "m1", Kind: model.EdgeConnection, Status: model.StatusPending}
	if err := s.UpsertRelationship(ctx, r); err != nil {
		t.Fatalf("UpsertRelationship failed: %v", err)
	}
	r.Status = model.StatusAccepted
	if err := s.UpsertRelationship(ctx, r); err != nil {
		t.Fatalf("UpsertRelationship upgrade failed: %v", err)
	}

	recs, err := s.FetchCommunity(ctx)
	if err != nil {
		t.Fatalf("FetchCommunity failed: %v", err)
	}
	if len(recs.Relationships) != 3 {
		t.Fatalf("expected 3 relationships after upsert, got %d", len(recs.Relationships))
	}
	found := false
	for _, rr := range recs.Relationships {
		if rr.SourceID == "m2" && rr.TargetID == "m1" {
			found = true
			if rr.Status != model.StatusAccepted {
				t.Errorf("status upgrade lost: %q", rr.Status)
			}
		}
	}
	if !found {
		t.Error("upserted relationship missing from fetch")
	}
}

func TestStore_ResolveID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.SeedCommunity(ctx, seedRecords()); err != nil {
		t.Fatalf("SeedCommunity failed: %v", err)
	}

	cases := []struct {
		id   string
		kind model.NodeKind
		ok   bool
	}{
		{"m1", model.NodePerson, true},
		{"p1", model.NodeProject, true},
		{"climate", model.NodeTheme, true},
		{"theme:climate", model.NodeTheme, true},
		{"o1", model.NodeOrganization, true},
		{"nobody", "", false},
	}
	for _, tc := range cases {
		kind, ok, err := s.ResolveID(ctx, tc.id)
		if err != nil {
			t.Fatalf("ResolveID(%s) failed: %v", tc.id, err)
		}
		if ok != tc.ok || kind != tc.kind {
			t.Errorf("ResolveID(%s) = (%q, %v), want (%q, %v)", tc.id, kind, ok, tc.kind, tc.ok)
		}
	}
}

func TestStore_FetchFailsInsteadOfTruncating(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.SeedCommunity(ctx, seedRecords()); err != nil {
		t.Fatalf("SeedCommunity failed: %v", err)
	}

	// A fetch that cannot complete must surface an error, never a partial
	// community the engine would render without diagnostic.
	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	recs, err := s.FetchCommunity(cancelled)
	if err == nil {
		t.Fatal("expected error from interrupted fetch")
	}
	if recs != nil {
		t.Errorf("interrupted fetch returned partial records: %+v", recs)
	}
}

func TestStore_EmptyDatabaseFetches(t *testing.T) {
	s := newTestStore(t)
	recs, err := s.FetchCommunity(context.Background())
	if err != nil {
		t.Fatalf("FetchCommunity on empty db failed: %v", err)
	}
	if len(recs.Members) != 0 || len(recs.Relationships) != 0 {
		t.Error("empty database returned records")
	}
}
