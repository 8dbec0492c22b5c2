// graphseed loads a demo community into the SQLite database graphview reads,
// and optionally announces the change over redis so open views reload.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/redis/go-redis/v9"

	"github.com/deckerd451/innovation-engine-sub000/pkg/model"
	"github.com/deckerd451/innovation-engine-sub000/pkg/notify"
	"github.com/deckerd451/innovation-engine-sub000/pkg/source"
)

func demoCommunity() *model.CommunityRecords {
	return &model.CommunityRecords{
		Members: []model.MemberRecord{
			{ID: "ada", DisplayName: "Ada Osei", Tags: []string{"energy", "hardware"}},
			{ID: "ben", DisplayName: "Ben Ruiz", Tags: []string{"design"}},
			{ID: "cho", DisplayName: "Cho Park", Tags: []string{"data"}},
			{ID: "dia", DisplayName: "Dia Mehta", Tags: []string{"policy"}},
			{ID: "eli", DisplayName: "Eli Novak", Tags: []string{"data", "energy"}},
			{ID: "fay", DisplayName: "Fay Lindqvist"},
			{ID: "gus", DisplayName: "Gus Moreau", Tags: []string{"hardware"}},
		},
		Themes: []model.ThemeRecord{
			{ID: "climate", DisplayName: "Climate Resilience"},
			{ID: "civic-data", DisplayName: "Civic Data"},
			{ID: "mobility", DisplayName: "Mobility"},
		},
		Projects: []model.ProjectRecord{
			{ID: "solar-map", DisplayName: "Solar Map", ThemeID: "climate"},
			{ID: "open-transit", DisplayName: "Open Transit", ThemeID: "mobility"},
			{ID: "air-sensors", DisplayName: "Air Sensors", ThemeID: "civic-data"},
		},
		Organizations: []model.OrganizationRecord{
			{ID: "green-labs", DisplayName: "Green Labs"},
			{ID: "city-hall", DisplayName: "City Hall"},
		},
		Relationships: []model.RelationshipRecord{
			{SourceID: "ada", TargetID: "ben", Kind: model.EdgeConnection, Status: model.StatusAccepted},
			{SourceID: "ada", TargetID: "cho", Kind: model.EdgeConnection, Status: model.StatusAccepted},
			{SourceID: "ada", TargetID: "dia", Kind: model.EdgeConnection, Status: model.StatusPending},
			{SourceID: "eli", TargetID: "ada", Kind: model.EdgeConnection, Status: model.StatusSuggested},
			{SourceID: "ben", TargetID: "cho", Kind: model.EdgeConnection, Status: model.StatusAccepted},

			{SourceID: "ada", TargetID: "theme:climate", Kind: model.EdgeThemeParticipation, Engagement: model.EngagementLeading},
			{SourceID: "ben", TargetID: "theme:climate", Kind: model.EdgeThemeParticipation, Engagement: model.EngagementActive},
			{SourceID: "cho", TargetID: "civic-data", Kind: model.EdgeThemeParticipation, Engagement: model.EngagementActive},
			{SourceID: "eli", TargetID: "theme:civic-data", Kind: model.EdgeThemeParticipation, Engagement: model.EngagementInterested},
			{SourceID: "fay", TargetID: "theme:mobility", Kind: model.EdgeThemeParticipation, Engagement: model.EngagementObserver},

			{SourceID: "ada", TargetID: "solar-map", Kind: model.EdgeProjectMembership},
			{SourceID: "ben", TargetID: "solar-map", Kind: model.EdgeProjectMembership},
			{SourceID: "cho", TargetID: "air-sensors", Kind: model.EdgeProjectMembership},
			{SourceID: "fay", TargetID: "open-transit", Kind: model.EdgeProjectMembership},
			{SourceID: "gus", TargetID: "open-transit", Kind: model.EdgeProjectMembership},

			{SourceID: "ada", TargetID: "green-labs", Kind: model.EdgeOrgMembership},
			{SourceID: "dia", TargetID: "city-hall", Kind: model.EdgeOrgMembership},
		},
	}
}

func main() {
	dbPath := flag.String("db", "community.db", "path to SQLite community database")
	redisAddr := flag.String("redis", "", "redis address to announce the change on (empty skips)")
	flag.Parse()

	store, err := source.NewStore(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "graphseed: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.SeedCommunity(ctx, demoCommunity()); err != nil {
		fmt.Fprintf(os.Stderr, "graphseed: %v\n", err)
		os.Exit(1)
	}
	log.Printf("seeded demo community into %s", *dbPath)

	if *redisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: *redisAddr})
		defer client.Close()
		n := notify.NewRedisNotifier(client, "")
		if err := n.Publish(ctx, "seed"); err != nil {
			fmt.Fprintf(os.Stderr, "graphseed: %v\n", err)
			os.Exit(1)
		}
		log.Printf("published change notification to %s", *redisAddr)
	}
}
