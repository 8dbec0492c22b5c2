package model

import (
	"log"
	"strings"
)

// ThemeIDPrefix namespaces theme node ids so that records keyed by the bare
// theme identifier and records keyed by a prefixed one deduplicate to the
// same node.
const ThemeIDPrefix = "theme:"

// Default edge opacities by connection status. Strictly descending:
// accepted > pending > suggested. Non-connection edges use OpacityMembership.
const (
	OpacityAccepted   = 0.85
	OpacityPending    = 0.55
	OpacitySuggested  = 0.30
	OpacityMembership = 0.60
)

// CanonicalThemeID returns the namespaced form of a theme identifier.
func CanonicalThemeID(id string) string {
	if strings.HasPrefix(id, ThemeIDPrefix) {
		return id
	}
	return ThemeIDPrefix + id
}

// DefaultEdgeOpacity returns the status-appropriate opacity for an edge when
// no focus dimming is active.
func DefaultEdgeOpacity(e *Edge) float64 {
	if e.Kind != EdgeConnection {
		return OpacityMembership
	}
	switch e.Status {
	case StatusAccepted:
		return OpacityAccepted
	case StatusPending:
		return OpacityPending
	default:
		return OpacitySuggested
	}
}

// BuildSnapshot converts raw collaborator records into a typed snapshot.
//
// Theme nodes are deduplicated by canonical id and every edge endpoint that
// referenced a non-canonical theme id is rewritten. Edges whose endpoints do
// not resolve to a known node are dropped with a diagnostic; a dangling edge
// must never reach the simulation. Person visibility honors the display
// mode: in focused mode only the current user, their accepted-or-pending
// connections, and people sharing a theme with them stay visible.
func BuildSnapshot(recs *CommunityRecords, currentUserID string, mode DisplayMode) *Snapshot {
	snap := &Snapshot{
		CurrentUserID: currentUserID,
		byID:          make(map[string]*Node),
	}

	addNode := func(n *Node) {
		if _, exists := snap.byID[n.ID]; exists {
			return
		}
		n.Opacity = 1.0
		n.Visibility = VisibilityVisible
		snap.byID[n.ID] = n
		snap.Nodes = append(snap.Nodes, n)
	}

	// themeAlias maps every id form a record or edge might use to the
	// canonical node id.
	themeAlias := make(map[string]string)
	for _, t := range recs.Themes {
		canonical := CanonicalThemeID(t.ID)
		themeAlias[t.ID] = canonical
		themeAlias[canonical] = canonical
		addNode(&Node{
			ID:          canonical,
			Kind:        NodeTheme,
			DisplayName: t.DisplayName,
		})
	}

	for _, m := range recs.Members {
		tags := make(map[string]struct{}, len(m.Tags))
		for _, tag := range m.Tags {
			tags[tag] = struct{}{}
		}
		addNode(&Node{
			ID:            m.ID,
			Kind:          NodePerson,
			DisplayName:   m.DisplayName,
			ImageRef:      m.ImageRef,
			Tags:          tags,
			Membership:    make(map[string]struct{}),
			IsCurrentUser: m.ID == currentUserID,
		})
	}

	for _, p := range recs.Projects {
		n := &Node{
			ID:          p.ID,
			Kind:        NodeProject,
			DisplayName: p.DisplayName,
		}
		if p.ThemeID != "" {
			n.ContainerID = CanonicalThemeID(p.ThemeID)
		}
		addNode(n)
	}

	for _, o := range recs.Organizations {
		addNode(&Node{
			ID:          o.ID,
			Kind:        NodeOrganization,
			DisplayName: o.DisplayName,
		})
	}

	resolve := func(id string) *Node {
		if canonical, ok := themeAlias[id]; ok {
			id = canonical
		}
		return snap.byID[id]
	}

	dropped := 0
	for _, r := range recs.Relationships {
		src := resolve(r.SourceID)
		tgt := resolve(r.TargetID)
		if src == nil || tgt == nil {
			dropped++
			log.Printf("model: dropping dangling edge %s (%s -> %s, kind=%s)", r.ID, r.SourceID, r.TargetID, r.Kind)
			continue
		}
		e := &Edge{
			ID:         r.ID,
			SourceID:   src.ID,
			TargetID:   tgt.ID,
			Kind:       r.Kind,
			Status:     r.Status,
			Engagement: r.Engagement,
		}
		e.Opacity = DefaultEdgeOpacity(e)
		snap.Edges = append(snap.Edges, e)
	}
	if dropped > 0 {
		log.Printf("model: dropped %d dangling edges during snapshot build", dropped)
	}

	deriveMemberships(snap)
	markConnections(snap)

	if mode == ModeFocused {
		applyFocusedVisibility(snap)
	}

	return snap
}

// deriveMemberships recomputes per-person membership sets and container
// assignments from the edge list. Containers are one-directional: the member
// stores its container id, the theme never stores a child list.
func deriveMemberships(snap *Snapshot) {
	// Project -> theme containment lets a person who only belongs to a
	// project still count as a participant of the project's theme.
	projectTheme := make(map[string]string)
	for _, n := range snap.Nodes {
		if n.Kind == NodeProject && n.ContainerID != "" {
			projectTheme[n.ID] = n.ContainerID
		}
	}

	for _, e := range snap.Edges {
		src := snap.byID[e.SourceID]
		tgt := snap.byID[e.TargetID]
		if src == nil || tgt == nil || src.Kind != NodePerson {
			continue
		}
		switch e.Kind {
		case EdgeThemeParticipation:
			if tgt.Kind == NodeTheme {
				src.Membership[tgt.ID] = struct{}{}
				if src.ContainerID == "" && !src.IsCurrentUser {
					src.ContainerID = tgt.ID
				}
			}
		case EdgeProjectMembership:
			if tgt.Kind == NodeProject {
				src.Membership[tgt.ID] = struct{}{}
				if themeID, ok := projectTheme[tgt.ID]; ok {
					src.Membership[themeID] = struct{}{}
					if src.ContainerID == "" && !src.IsCurrentUser {
						src.ContainerID = themeID
					}
				}
			}
		}
	}
}

// markConnections sets IsConnectedToCurrentUser for every person with an
// accepted or pending connection to the current user. Both statuses count
// for visibility; strength-weighted semantics elsewhere use accepted only.
func markConnections(snap *Snapshot) {
	for _, e := range snap.Edges {
		if e.Kind != EdgeConnection {
			continue
		}
		if e.Status != StatusAccepted && e.Status != StatusPending {
			continue
		}
		var other *Node
		if e.SourceID == snap.CurrentUserID {
			other = snap.byID[e.TargetID]
		} else if e.TargetID == snap.CurrentUserID {
			other = snap.byID[e.SourceID]
		}
		if other != nil {
			other.IsConnectedToCurrentUser = true
		}
	}
}

func applyFocusedVisibility(snap *Snapshot) {
	me := snap.byID[snap.CurrentUserID]
	var myThemes map[string]struct{}
	if me != nil {
		myThemes = me.Membership
	}

	sharesTheme := func(n *Node) bool {
		for id := range n.Membership {
			if !strings.HasPrefix(id, ThemeIDPrefix) {
				continue
			}
			if _, ok := myThemes[id]; ok {
				return true
			}
		}
		return false
	}

	for _, n := range snap.Nodes {
		if n.Kind != NodePerson || n.IsCurrentUser {
			continue
		}
		if n.IsConnectedToCurrentUser || sharesTheme(n) {
			continue
		}
		n.Visibility = VisibilitySuppressed
	}
}

// AcceptedConnectionCount returns the number of accepted connections the
// current user has. Pending connections are visible but do not imply mutual
// trust, so they are excluded here.
func (s *Snapshot) AcceptedConnectionCount() int {
	count := 0
	for _, e := range s.Edges {
		if e.Kind != EdgeConnection || e.Status != StatusAccepted {
			continue
		}
		if e.SourceID == s.CurrentUserID || e.TargetID == s.CurrentUserID {
			count++
		}
	}
	return count
}
