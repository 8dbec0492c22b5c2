// Package source provides the SQLite-backed community data source.
package source

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/deckerd451/innovation-engine-sub000/pkg/model"
)

// Store manages the SQLite connection and schema.
type Store struct {
	db *sql.DB
}

// NewStore initializes the SQLite database connection.
// It enables WAL mode for concurrency and durability.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite db: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping sqlite db: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys=ON;"); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	s := &Store{db: db}

	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("schema migration failed: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the necessary tables if they don't exist.
func (s *Store) migrate() error {
	query := `
	CREATE TABLE IF NOT EXISTS members (
		id TEXT PRIMARY KEY,
		display_name TEXT NOT NULL,
		image_ref TEXT,
		tags JSON
	);

	CREATE TABLE IF NOT EXISTS themes (
		id TEXT PRIMARY KEY,
		display_name TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS projects (
		id TEXT PRIMARY KEY,
		display_name TEXT NOT NULL,
		theme_id TEXT
	);

	CREATE TABLE IF NOT EXISTS organizations (
		id TEXT PRIMARY KEY,
		display_name TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS relationships (
		id TEXT PRIMARY KEY,
		source_id TEXT NOT NULL,
		target_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		status TEXT,
		engagement TEXT
	);

	-- The graph builder pulls relationships by endpoint on every reload.
	CREATE INDEX IF NOT EXISTS idx_relationships_source ON relationships(source_id);
	CREATE INDEX IF NOT EXISTS idx_relationships_target ON relationships(target_id);
	`

	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("failed to create community tables: %w", err)
	}

	return nil
}

// FetchCommunity pulls the full community in one pass. The engine rebuilds
// its whole snapshot from scratch on every reload, so there is no partial
// query surface.
func (s *Store) FetchCommunity(ctx context.Context) (*model.CommunityRecords, error) {
	recs := &model.CommunityRecords{}

	rows, err := s.db.QueryContext(ctx, "SELECT id, display_name, COALESCE(image_ref, ''), COALESCE(tags, '[]') FROM members")
	if err != nil {
		return nil, fmt.Errorf("failed to query members: %w", err)
	}
	for rows.Next() {
		var m model.MemberRecord
		var tags string
		if err := rows.Scan(&m.ID, &m.DisplayName, &m.ImageRef, &tags); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan member row: %w", err)
		}
		if err := json.Unmarshal([]byte(tags), &m.Tags); err != nil {
			rows.Close()
			return nil, fmt.Errorf("invalid tags for member %s: %w", m.ID, err)
		}
		recs.Members = append(recs.Members, m)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("row iteration failed: %w", err)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}

	rows, err = s.db.QueryContext(ctx, "SELECT id, display_name FROM themes")
	if err != nil {
		return nil, fmt.Errorf("failed to query themes: %w", err)
	}
	for rows.Next() {
		var t model.ThemeRecord
		if err := rows.Scan(&t.ID, &t.DisplayName); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan theme row: %w", err)
		}
		recs.Themes = append(recs.Themes, t)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("row iteration failed: %w", err)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}

	rows, err = s.db.QueryContext(ctx, "SELECT id, display_name, COALESCE(theme_id, '') FROM projects")
	if err != nil {
		return nil, fmt.Errorf("failed to query projects: %w", err)
	}
	for rows.Next() {
		var p model.ProjectRecord
		if err := rows.Scan(&p.ID, &p.DisplayName, &p.ThemeID); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan project row: %w", err)
		}
		recs.Projects = append(recs.Projects, p)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("row iteration failed: %w", err)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}

	rows, err = s.db.QueryContext(ctx, "SELECT id, display_name FROM organizations")
	if err != nil {
		return nil, fmt.Errorf("failed to query organizations: %w", err)
	}
	for rows.Next() {
		var o model.OrganizationRecord
		if err := rows.Scan(&o.ID, &o.DisplayName); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan organization row: %w", err)
		}
		recs.Organizations = append(recs.Organizations, o)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("row iteration failed: %w", err)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}

	rows, err = s.db.QueryContext(ctx, "SELECT id, source_id, target_id, kind, COALESCE(status, ''), COALESCE(engagement, '') FROM relationships")
	if err != nil {
		return nil, fmt.Errorf("failed to query relationships: %w", err)
	}
	for rows.Next() {
		var r model.RelationshipRecord
		if err := rows.Scan(&r.ID, &r.SourceID, &r.TargetID, &r.Kind, &r.Status, &r.Engagement); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan relationship row: %w", err)
		}
		recs.Relationships = append(recs.Relationships, r)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("row iteration failed: %w", err)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}

	return recs, nil
}

// SeedCommunity writes the records, replacing rows with matching ids. Used
// by the demo seeder and by tests.
func (s *Store) SeedCommunity(ctx context.Context, recs *model.CommunityRecords) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin seed transaction: %w", err)
	}
	defer tx.Rollback()

	for _, m := range recs.Members {
		tags, err := json.Marshal(m.Tags)
		if err != nil {
			return fmt.Errorf("failed to marshal tags for member %s: %w", m.ID, err)
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT OR REPLACE INTO members (id, display_name, image_ref, tags) VALUES (?, ?, ?, ?)",
			m.ID, m.DisplayName, m.ImageRef, string(tags)); err != nil {
			return fmt.Errorf("failed to insert member %s: %w", m.ID, err)
		}
	}
	for _, t := range recs.Themes {
		if _, err := tx.ExecContext(ctx,
			"INSERT OR REPLACE INTO themes (id, display_name) VALUES (?, ?)",
			t.ID, t.DisplayName); err != nil {
			return fmt.Errorf("failed to insert theme %s: %w", t.ID, err)
		}
	}
	for _, p := range recs.Projects {
		if _, err := tx.ExecContext(ctx,
			"INSERT OR REPLACE INTO projects (id, display_name, theme_id) VALUES (?, ?, ?)",
			p.ID, p.DisplayName, p.ThemeID); err != nil {
			return fmt.Errorf("failed to insert project %s: %w", p.ID, err)
		}
	}
	for _, o := range recs.Organizations {
		if _, err := tx.ExecContext(ctx,
			"INSERT OR REPLACE INTO organizations (id, display_name) VALUES (?, ?)",
			o.ID, o.DisplayName); err != nil {
			return fmt.Errorf("failed to insert organization %s: %w", o.ID, err)
		}
	}
	for _, r := range recs.Relationships {
		id := r.ID
		if id == "" {
			id = fmt.Sprintf("%s|%s|%s", r.Kind, r.SourceID, r.TargetID)
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT OR REPLACE INTO relationships (id, source_id, target_id, kind, status, engagement) VALUES (?, ?, ?, ?, ?, ?)",
			id, r.SourceID, r.TargetID, string(r.Kind), string(r.Status), string(r.Engagement)); err != nil {
			return fmt.Errorf("failed to insert relationship %s: %w", id, err)
		}
	}

	return tx.Commit()
}

// ResolveID looks up which kind of entity an ambiguous identifier names.
// Theme ids resolve in both bare and prefixed form.
func (s *Store) ResolveID(ctx context.Context, id string) (model.NodeKind, bool, error) {
	themeID := strings.TrimPrefix(id, model.ThemeIDPrefix)
	queries := []struct {
		kind  model.NodeKind
		query string
		arg   string
	}{
		{model.NodePerson, "SELECT 1 FROM members WHERE id = ?", id},
		{model.NodeProject, "SELECT 1 FROM projects WHERE id = ?", id},
		{model.NodeTheme, "SELECT 1 FROM themes WHERE id = ?", themeID},
		{model.NodeOrganization, "SELECT 1 FROM organizations WHERE id = ?", id},
	}
	for _, q := range queries {
		var one int
		err := s.db.QueryRowContext(ctx, q.query, q.arg).Scan(&one)
		switch {
		case err == sql.ErrNoRows:
			continue
		case err != nil:
			return "", false, fmt.Errorf("failed to resolve id %s: %w", id, err)
		default:
			return q.kind, true, nil
		}
	}
	return "", false, nil
}

// UpsertRelationship writes one relationship row. Callers typically follow
// this with a change notification so open views pick it up.
func (s *Store) UpsertRelationship(ctx context.Context, r model.RelationshipRecord) error {
	id := r.ID
	if id == "" {
		id = fmt.Sprintf("%s|%s|%s", r.Kind, r.SourceID, r.TargetID)
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO relationships (id, source_id, target_id, kind, status, engagement) VALUES (?, ?, ?, ?, ?, ?)",
		id, r.SourceID, r.TargetID, string(r.Kind), string(r.Status), string(r.Engagement))
	if err != nil {
		return fmt.Errorf("failed to upsert relationship %s: %w", id, err)
	}
	return nil
}
