package model

// NodeKind represents the semantic type of a node in the community graph.
type NodeKind string

const (
	NodePerson       NodeKind = "person"
	NodeProject      NodeKind = "project"
	NodeTheme        NodeKind = "theme"
	NodeOrganization NodeKind = "organization"
)

// EdgeKind represents the semantic relationship between two nodes.
type EdgeKind string

const (
	EdgeConnection         EdgeKind = "connection"           // Person <-> Person
	EdgeProjectMembership  EdgeKind = "project-membership"   // Person -> Project
	EdgeThemeParticipation EdgeKind = "theme-participation"  // Person/Project -> Theme
	EdgeOrgMembership      EdgeKind = "org-membership"       // Person -> Organization
)

// ConnectionStatus qualifies a connection edge.
type ConnectionStatus string

const (
	StatusPending   ConnectionStatus = "pending"
	StatusAccepted  ConnectionStatus = "accepted"
	StatusSuggested ConnectionStatus = "suggested"
)

// EngagementLevel qualifies a theme-participation edge.
type EngagementLevel string

const (
	EngagementObserver   EngagementLevel = "observer"
	EngagementInterested EngagementLevel = "interested"
	EngagementActive     EngagementLevel = "active"
	EngagementLeading    EngagementLevel = "leading"
)

// Visibility controls whether a node takes part in simulation and rendering.
// Suppressed nodes are excluded entirely, not merely dimmed.
type Visibility string

const (
	VisibilityVisible    Visibility = "visible"
	VisibilitySuppressed Visibility = "suppressed"
)

// DisplayMode selects how much of the community the snapshot includes.
type DisplayMode string

const (
	// ModeFocused shows only the current user's network: themselves, their
	// accepted-or-pending connections, and anyone sharing a theme with them.
	ModeFocused DisplayMode = "focused"
	// ModeFullCommunity shows everyone.
	ModeFullCommunity DisplayMode = "full"
)

// Node represents a single visual/graph entity. Position is written by the
// layout resolver at creation time and by the simulation thereafter;
// consumers read it but never write it except through drag operations.
type Node struct {
	ID          string
	Kind        NodeKind
	DisplayName string
	ImageRef    string
	Tags        map[string]struct{}

	X, Y   float64
	VX, VY float64

	// Pinned nodes are never moved by the simulation. FX/FY hold the fixed
	// position while pinned.
	Pinned bool
	FX, FY float64

	// ContainerID names the theme this node is kept inside of by the
	// containment force. Empty means free-floating or orbiting the viewer.
	ContainerID string
	// ContainerRadius is set on theme nodes and defines their region size.
	ContainerRadius float64

	// Membership holds, for person nodes, the theme and project ids the
	// person participates in. Recomputed on every snapshot build.
	Membership map[string]struct{}

	IsCurrentUser          bool
	IsConnectedToCurrentUser bool

	Visibility Visibility

	// Opacity is owned by the focus/dimming system and the category filter.
	Opacity float64
}

// Edge represents a relationship between two node ids. Edges hold ids only,
// never node references.
type Edge struct {
	ID         string
	SourceID   string
	TargetID   string
	Kind       EdgeKind
	Status     ConnectionStatus
	Engagement EngagementLevel

	Opacity float64
}

// Snapshot is the atomic unit handed to the simulation. It is created fresh
// on every full reload and never mutated across reload boundaries.
type Snapshot struct {
	Nodes         []*Node
	Edges         []*Edge
	CurrentUserID string

	byID map[string]*Node
}

// Lookup returns the node for id, or nil.
func (s *Snapshot) Lookup(id string) *Node {
	return s.byID[id]
}

// Visible returns the nodes that should enter the simulation. Suppressed
// nodes are excluded here rather than moved off-screen, because an off-screen
// node still consumes charge and collision computation.
func (s *Snapshot) Visible() []*Node {
	out := make([]*Node, 0, len(s.Nodes))
	for _, n := range s.Nodes {
		if n.Visibility == VisibilityVisible {
			out = append(out, n)
		}
	}
	return out
}

// VisibleEdges returns edges whose endpoints are both visible.
func (s *Snapshot) VisibleEdges() []*Edge {
	out := make([]*Edge, 0, len(s.Edges))
	for _, e := range s.Edges {
		src, tgt := s.byID[e.SourceID], s.byID[e.TargetID]
		if src == nil || tgt == nil {
			continue
		}
		if src.Visibility == VisibilityVisible && tgt.Visibility == VisibilityVisible {
			out = append(out, e)
		}
	}
	return out
}

// MemberRecord is a raw person row from the data source.
type MemberRecord struct {
	ID          string
	DisplayName string
	ImageRef    string
	Tags        []string
}

// ProjectRecord is a raw project row.
type ProjectRecord struct {
	ID          string
	DisplayName string
	ThemeID     string
}

// ThemeRecord is a raw theme row. Records may arrive keyed by either the
// bare theme id or an already-prefixed one; BuildSnapshot canonicalizes.
type ThemeRecord struct {
	ID          string
	DisplayName string
}

// OrganizationRecord is a raw organization row.
type OrganizationRecord struct {
	ID          string
	DisplayName string
}

// RelationshipRecord is a raw edge row from the data source.
type RelationshipRecord struct {
	ID         string
	SourceID   string
	TargetID   string
	Kind       EdgeKind
	Status     ConnectionStatus
	Engagement EngagementLevel
}

// CommunityRecords bundles everything the data source supplies for one pull.
type CommunityRecords struct {
	Members       []MemberRecord
	Projects      []ProjectRecord
	Themes        []ThemeRecord
	Organizations []OrganizationRecord
	Relationships []RelationshipRecord
}
