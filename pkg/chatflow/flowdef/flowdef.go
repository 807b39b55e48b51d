// Package flowdef holds the authoring-side wire model of a flow: string
// node types and loosely-typed metadata maps, the way the flow editor
// stores them. Definitions are decoded once, at flow-load time, into the
// typed content variants the engine executes, so shape is never re-derived
// from untyped maps during a step.
package flowdef

import (
	"fmt"
	"time"

	"github.com/tidechat/chatflow/pkg/chatflow"
)

// NodeDef is the stored form of one node.
type NodeDef struct {
	ID       string         `json:"id" yaml:"id"`
	Type     string         `json:"type" yaml:"type"`
	Content  string         `json:"content" yaml:"content"`
	Metadata map[string]any `json:"metadata" yaml:"metadata"`
}

// EdgeDef is the stored form of one edge. CreatedAt orders the branches of
// a condition node.
type EdgeDef struct {
	ID        string    `json:"id" yaml:"id"`
	Source    string    `json:"sourceNodeId" yaml:"sourceNodeId"`
	Target    string    `json:"targetNodeId" yaml:"targetNodeId"`
	Condition string    `json:"condition,omitempty" yaml:"condition,omitempty"`
	CreatedAt time.Time `json:"createdAt" yaml:"createdAt"`
}

// Definition is the stored form of one flow.
type Definition struct {
	ID         string    `json:"id" yaml:"id"`
	BusinessID string    `json:"businessId,omitempty" yaml:"businessId,omitempty"`
	Name       string    `json:"name,omitempty" yaml:"name,omitempty"`
	Nodes      []NodeDef `json:"nodes" yaml:"nodes"`
	Edges      []EdgeDef `json:"edges" yaml:"edges"`
}

// Compile decodes a stored definition into an executable graph snapshot.
// Node ids must be unique; everything else is tolerated, including edges
// to missing nodes, which the engine treats as dead ends at runtime.
func (d *Definition) Compile() (*chatflow.FlowGraph, error) {
	seen := make(map[string]bool, len(d.Nodes))
	nodes := make([]*chatflow.Node, 0, len(d.Nodes))
	for _, nd := range d.Nodes {
		if nd.ID == "" {
			return nil, fmt.Errorf("flow %s: node with empty id", d.ID)
		}
		if seen[nd.ID] {
			return nil, fmt.Errorf("flow %s: duplicate node id %s", d.ID, nd.ID)
		}
		seen[nd.ID] = true
		nodes = append(nodes, decodeNode(nd))
	}

	edges := make([]*chatflow.Edge, 0, len(d.Edges))
	for _, ed := range d.Edges {
		edges = append(edges, &chatflow.Edge{
			ID:        ed.ID,
			Source:    ed.Source,
			Target:    ed.Target,
			Condition: ed.Condition,
			CreatedAt: ed.CreatedAt,
		})
	}

	return chatflow.NewFlowGraph(d.ID, nodes, edges), nil
}

// decodeNode resolves the effective message kind (metadata.messageType
// wins over node.type, the two being used interchangeably by the editor)
// and builds the matching content variant.
func decodeNode(nd NodeDef) *chatflow.Node {
	m := meta(nd.Metadata)

	kind := nd.Type
	if mt := m.str("messageType"); mt != "" {
		kind = mt
	}

	switch kind {
	case "waitForReply":
		return &chatflow.Node{ID: nd.ID, Kind: chatflow.KindWait, Content: chatflow.WaitContent{}}

	case "condition":
		return &chatflow.Node{
			ID:   nd.ID,
			Kind: chatflow.KindCondition,
			Content: chatflow.ConditionContent{
				Type:         chatflow.ConditionType(m.str("conditionType")),
				CompareValue: m.str("compareValue"),
			},
		}

	case "image", "video", "document":
		return &chatflow.Node{
			ID:   nd.ID,
			Kind: chatflow.KindSend,
			Content: chatflow.MediaContent{
				Kind:    chatflow.MediaKind(kind),
				MediaID: m.str("mediaId"),
				URL:     m.str("url"),
				Caption: nd.Content,
			},
		}

	case "buttons":
		return &chatflow.Node{
			ID:   nd.ID,
			Kind: chatflow.KindSend,
			Content: chatflow.ButtonsContent{
				Body:    nd.Content,
				Buttons: decodeButtons(m.list("buttons")),
			},
		}

	case "list":
		return &chatflow.Node{
			ID:   nd.ID,
			Kind: chatflow.KindSend,
			Content: chatflow.ListContent{
				Body:        nd.Content,
				ButtonLabel: m.str("buttonText"),
				Sections:    decodeListSections(m),
			},
		}

	case "text", "sendMessage":
		return &chatflow.Node{ID: nd.ID, Kind: chatflow.KindSend, Content: chatflow.TextContent{Body: nd.Content}}

	default:
		return &chatflow.Node{ID: nd.ID, Kind: chatflow.KindGeneric, Content: chatflow.GenericContent{}}
	}
}

// decodeButtons accepts both [{title: ...}] and plain string lists.
func decodeButtons(raw []any) []chatflow.Button {
	buttons := make([]chatflow.Button, 0, len(raw))
	for _, item := range raw {
		switch v := item.(type) {
		case string:
			if v != "" {
				buttons = append(buttons, chatflow.Button{Title: v})
			}
		case map[string]any:
			if title := meta(v).str("title"); title != "" {
				buttons = append(buttons, chatflow.Button{Title: title})
			}
		}
	}
	return buttons
}

// decodeListSections normalizes the two authoring shapes of a list node:
// the simplified listTitle + listItems pair and the legacy sections tree.
func decodeListSections(m meta) []chatflow.ListSection {
	if items := m.list("listItems"); len(items) > 0 {
		rows := decodeRows(items)
		if len(rows) == 0 {
			return nil
		}
		return []chatflow.ListSection{{Title: m.str("listTitle"), Rows: rows}}
	}

	raw := m.list("sections")
	sections := make([]chatflow.ListSection, 0, len(raw))
	for _, item := range raw {
		sm, ok := item.(map[string]any)
		if !ok {
			continue
		}
		rows := decodeRows(meta(sm).list("rows"))
		if len(rows) == 0 {
			continue
		}
		sections = append(sections, chatflow.ListSection{
			Title: meta(sm).str("title"),
			Rows:  rows,
		})
	}
	return sections
}

func decodeRows(raw []any) []chatflow.ListRow {
	rows := make([]chatflow.ListRow, 0, len(raw))
	for _, item := range raw {
		rm, ok := item.(map[string]any)
		if !ok {
			continue
		}
		title := meta(rm).str("title")
		if title == "" {
			continue
		}
		rows = append(rows, chatflow.ListRow{
			Title:       title,
			Description: meta(rm).str("description"),
		})
	}
	return rows
}
