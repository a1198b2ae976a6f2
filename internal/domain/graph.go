package domain

import "fmt"

// SelfNodeID is the reserved id of the signed-in user's node.
const SelfNodeID = "me"

// GroupNodePrefix prefixes chat ids to form group node ids.
const GroupNodePrefix = "group-"

// Node radii by kind.
const (
	SelfRadius  = 44
	UserRadius  = 34
	GroupRadius = 28
)

// NodeKind distinguishes the three node shapes in the graph.
type NodeKind string

const (
	NodeKindSelf  NodeKind = "self"
	NodeKindUser  NodeKind = "user"
	NodeKindGroup NodeKind = "group"
)

// EdgeKind distinguishes a direct connection from a group membership.
type EdgeKind string

const (
	EdgeKindDirect EdgeKind = "direct"
	EdgeKindGroup  EdgeKind = "group"
)

// GroupNodeID returns the node id for a group chat.
func GroupNodeID(chatID string) string {
	return GroupNodePrefix + chatID
}

// GraphNode is a vertex of the connection graph.
type GraphNode struct {
	ID          string   `json:"id"`
	Kind        NodeKind `json:"type"`
	Label       string   `json:"label"`
	ShortLabel  string   `json:"shortLabel"`
	Radius      float64  `json:"radius"`
	MemberCount int      `json:"memberCount,omitempty"`
}

// NewSelfNode builds the centre node.
func NewSelfNode(label string) GraphNode {
	return GraphNode{
		ID:         SelfNodeID,
		Kind:       NodeKindSelf,
		Label:      label,
		ShortLabel: ShortLabel(label),
		Radius:     SelfRadius,
	}
}

// NewUserNode builds a node for another user.
func NewUserNode(id, label string) GraphNode {
	return GraphNode{
		ID:         id,
		Kind:       NodeKindUser,
		Label:      label,
		ShortLabel: ShortLabel(label),
		Radius:     UserRadius,
	}
}

// NewGroupNode builds a node for a group chat.
func NewGroupNode(chatID, label string, members int) GraphNode {
	return GraphNode{
		ID:          GroupNodeID(chatID),
		Kind:        NodeKindGroup,
		Label:       label,
		ShortLabel:  ShortLabel(label),
		Radius:      GroupRadius,
		MemberCount: members,
	}
}

// GraphEdge is an undirected link between two node ids.
type GraphEdge struct {
	Source string   `json:"source"`
	Target string   `json:"target"`
	Kind   EdgeKind `json:"type"`
}

// Touches reports whether id is one of the edge's endpoints.
func (e GraphEdge) Touches(id string) bool {
	return e.Source == id || e.Target == id
}

// Stats summarizes a loaded graph.
type Stats struct {
	DirectCount int  `json:"directCount"`
	GroupCount  int  `json:"groupCount"`
	Truncated   bool `json:"truncated,omitempty"`
}

// PartialFetchFailure records a sub-query that failed during a load and was
// replaced with an empty result.
type PartialFetchFailure struct {
	Query string `json:"query"`
	Err   error  `json:"-"`
}

func (f PartialFetchFailure) Error() string {
	return fmt.Sprintf("partial fetch failure in %s: %v", f.Query, f.Err)
}

func (f PartialFetchFailure) Unwrap() error {
	return f.Err
}

// Graph is the result of one load. It is rebuilt from scratch every time.
type Graph struct {
	Nodes    []GraphNode           `json:"nodes"`
	Edges    []GraphEdge           `json:"links"`
	Stats    Stats                 `json:"stats"`
	Warnings []PartialFetchFailure `json:"-"`
}

// SelfOnlyGraph is what the UI shows when no user is signed in.
func SelfOnlyGraph() *Graph {
	return &Graph{
		Nodes: []GraphNode{NewSelfNode("You")},
		Edges: []GraphEdge{},
	}
}

// IsEmpty reports whether the user has neither direct nor group connections.
func (g *Graph) IsEmpty() bool {
	return g.Stats.DirectCount == 0 && g.Stats.GroupCount == 0
}

// Node looks a node up by id.
func (g *Graph) Node(id string) (GraphNode, bool) {
	for _, n := range g.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return GraphNode{}, false
}

// Validate checks the structural invariants of the graph: a single self
// node, unique ids, edges that resolve, and member counts that agree with
// the group edges.
func (g *Graph) Validate() error {
	seen := make(map[string]GraphNode, len(g.Nodes))
	selfCount := 0
	for _, n := range g.Nodes {
		if _, dup := seen[n.ID]; dup {
			return fmt.Errorf("duplicate node id %q", n.ID)
		}
		seen[n.ID] = n
		if n.ID == SelfNodeID {
			selfCount++
		}
	}
	if selfCount != 1 {
		return fmt.Errorf("expected one self node, found %d", selfCount)
	}

	members := make(map[string]map[string]struct{})
	for i, e := range g.Edges {
		if _, ok := seen[e.Source]; !ok {
			return fmt.Errorf("edge %d: unknown source %q", i, e.Source)
		}
		if _, ok := seen[e.Target]; !ok {
			return fmt.Errorf("edge %d: unknown target %q", i, e.Target)
		}
		switch e.Kind {
		case EdgeKindDirect:
			if e.Source != SelfNodeID {
				return fmt.Errorf("edge %d: direct edge must start at self", i)
			}
		case EdgeKindGroup:
			if members[e.Target] == nil {
				members[e.Target] = make(map[string]struct{})
			}
			members[e.Target][e.Source] = struct{}{}
		}
	}

	for id, n := range seen {
		if n.Kind != NodeKindGroup {
			continue
		}
		if got := len(members[id]); got != n.MemberCount {
			return fmt.Errorf("group %q: member count %d, edges %d", id, n.MemberCount, got)
		}
	}
	return nil
}
