package chatflow

import (
	"sort"
	"time"
)

// Kind classifies a node's runtime behavior.
// Message-kind aliases (text, image, buttons, ...) all collapse to KindSend;
// the shape of what gets sent lives in the node's Content variant.
type Kind int

const (
	// KindGeneric is a pass-through node with no side effect.
	KindGeneric Kind = iota
	// KindSend dispatches an outbound message when the node is entered.
	KindSend
	// KindWait suspends the conversation until the next inbound event.
	KindWait
	// KindCondition routes between its first two outgoing edges based on
	// the effective input of the current event.
	KindCondition
)

// String returns the kind name for logging.
func (k Kind) String() string {
	switch k {
	case KindSend:
		return "send"
	case KindWait:
		return "waitForReply"
	case KindCondition:
		return "condition"
	default:
		return "generic"
	}
}

// Node is one step of a conversation flow.
// The Content variant is decided once when the flow definition is decoded,
// so the step loop never re-derives shape from untyped metadata.
type Node struct {
	ID      string
	Kind    Kind
	Content Content
}

// Dispatchable reports whether entering this node produces an outbound message.
func (n *Node) Dispatchable() bool {
	return n.Kind == KindSend
}

// Content is the decoded, type-specific payload of a node.
type Content interface {
	contentKind() string
}

// TextContent is a plain text message.
type TextContent struct {
	Body string
}

// MediaKind selects the WhatsApp media message type.
type MediaKind string

// Media kinds.
const (
	MediaImage    MediaKind = "image"
	MediaVideo    MediaKind = "video"
	MediaDocument MediaKind = "document"
)

// MediaContent is a media message. MediaID references an asset already
// uploaded to the provider. When MediaID is empty but URL is set, the
// dispatcher degrades to a text message with the URL annotated.
type MediaContent struct {
	Kind    MediaKind
	MediaID string
	URL     string
	Caption string
}

// Button is one reply button of a ButtonsContent node.
type Button struct {
	Title string
}

// ButtonsContent is an interactive reply-button message.
type ButtonsContent struct {
	Body    string
	Buttons []Button
}

// ListRow is one selectable row of a list section.
type ListRow struct {
	Title       string
	Description string
}

// ListSection groups rows under an optional section title.
type ListSection struct {
	Title string
	Rows  []ListRow
}

// ListContent is an interactive list message. Both the simplified
// (listTitle + listItems) and the legacy (sections + rows) authoring shapes
// normalize to this one form at decode time.
type ListContent struct {
	Body        string
	ButtonLabel string
	Sections    []ListSection
}

// ConditionContent is a branch predicate evaluated against effective input.
type ConditionContent struct {
	Type         ConditionType
	CompareValue string
}

// WaitContent marks a wait-for-reply node. It carries no payload.
type WaitContent struct{}

// GenericContent is a node of unknown type; it participates in routing
// but never dispatches.
type GenericContent struct{}

func (TextContent) contentKind() string      { return "text" }
func (MediaContent) contentKind() string     { return "media" }
func (ButtonsContent) contentKind() string   { return "buttons" }
func (ListContent) contentKind() string      { return "list" }
func (ConditionContent) contentKind() string { return "condition" }
func (WaitContent) contentKind() string      { return "waitForReply" }
func (GenericContent) contentKind() string   { return "generic" }

// Edge is a directed link between two nodes, optionally guarded by a
// condition string. CreatedAt orders the two branches of a condition node:
// the oldest edge is the true branch, the second oldest the false branch.
type Edge struct {
	ID        string
	Source    string
	Target    string
	Condition string
	CreatedAt time.Time
}

// FlowGraph is an immutable snapshot of one flow's nodes and edges,
// valid for a single step-loop invocation. The flow definition may be
// edited between inbound events, so a fresh snapshot is loaded per step.
//
// A FlowGraph tolerates edges whose endpoints reference missing nodes;
// the interpreter treats such routes as dead ends rather than failing.
type FlowGraph struct {
	ID    string
	nodes []*Node
	edges []*Edge

	byID     map[string]*Node
	outgoing map[string][]*Edge
	incoming map[string]int
}

// NewFlowGraph builds a graph snapshot. Node and edge order is preserved
// as stored; the entry-node heuristic and edge fallbacks depend on it.
func NewFlowGraph(id string, nodes []*Node, edges []*Edge) *FlowGraph {
	g := &FlowGraph{
		ID:       id,
		nodes:    nodes,
		edges:    edges,
		byID:     make(map[string]*Node, len(nodes)),
		outgoing: make(map[string][]*Edge),
		incoming: make(map[string]int),
	}
	for _, n := range nodes {
		g.byID[n.ID] = n
	}
	for _, e := range edges {
		g.outgoing[e.Source] = append(g.outgoing[e.Source], e)
		g.incoming[e.Target]++
	}
	return g
}

// Node returns the node with the given ID, or nil.
func (g *FlowGraph) Node(id string) *Node {
	return g.byID[id]
}

// Nodes returns the nodes in stored order.
// The returned slice must not be modified.
func (g *FlowGraph) Nodes() []*Node {
	return g.nodes
}

// Len returns the number of nodes. The interpreter uses it as the
// default hop cap for one inbound event.
func (g *FlowGraph) Len() int {
	return len(g.nodes)
}

// Outgoing returns the outgoing edges of a node in stored order.
// The returned slice must not be modified.
func (g *FlowGraph) Outgoing(nodeID string) []*Edge {
	return g.outgoing[nodeID]
}

// OutgoingByAge returns the outgoing edges of a node ordered by CreatedAt,
// oldest first. Condition nodes route on this ordering.
func (g *FlowGraph) OutgoingByAge(nodeID string) []*Edge {
	stored := g.outgoing[nodeID]
	if len(stored) < 2 {
		return stored
	}
	edges := make([]*Edge, len(stored))
	copy(edges, stored)
	sort.SliceStable(edges, func(i, j int) bool {
		return edges[i].CreatedAt.Before(edges[j].CreatedAt)
	})
	return edges
}

// Entry returns the node a fresh conversation starts at: the first node in
// stored order with no incoming edges, or the first node in stored order if
// every node has a predecessor. This is a heuristic over stored order, not a
// topological guarantee. Returns nil for an empty graph.
func (g *FlowGraph) Entry() *Node {
	for _, n := range g.nodes {
		if g.incoming[n.ID] == 0 {
			return n
		}
	}
	if len(g.nodes) > 0 {
		return g.nodes[0]
	}
	return nil
}
