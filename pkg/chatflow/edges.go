package chatflow

import "strings"

// Selection rules, emitted in the step trace so a flow author can see why
// a particular branch was taken.
const (
	ruleConditionTrue  = "condition_true"
	ruleConditionFalse = "condition_false"
	ruleInputMatch     = "input_match"
	ruleUnconditioned  = "unconditioned"
	ruleFirstEdge      = "first_edge"
)

// selectEdge chooses the outgoing edge to follow from the current node.
// edges must be non-empty; callers handle the terminal (no edges) case.
// Returns the chosen edge and the rule that selected it.
func selectEdge(g *FlowGraph, current *Node, edges []*Edge, ev IncomingEvent, input string) (*Edge, string) {
	if cond, ok := current.Content.(ConditionContent); ok && current.Kind == KindCondition {
		ordered := g.OutgoingByAge(current.ID)
		if EvaluateCondition(cond.Type, cond.CompareValue, input) {
			return ordered[0], ruleConditionTrue
		}
		if len(ordered) > 1 {
			return ordered[1], ruleConditionFalse
		}
		// Single edge: every input routes through it.
		return ordered[0], ruleConditionTrue
	}

	if ev.IsInteractive() {
		if e := matchEdgeCondition(edges, input); e != nil {
			return e, ruleInputMatch
		}
		return edges[0], ruleFirstEdge
	}

	// Plain text: textual match wins, then an edge without a condition,
	// then stored order.
	if e := matchEdgeCondition(edges, input); e != nil {
		return e, ruleInputMatch
	}
	for _, e := range edges {
		if e.Condition == "" {
			return e, ruleUnconditioned
		}
	}
	return edges[0], ruleFirstEdge
}

// matchEdgeCondition returns the first edge whose condition equals the
// effective input, case-insensitively. Edges without a condition never match.
func matchEdgeCondition(edges []*Edge, input string) *Edge {
	for _, e := range edges {
		if e.Condition != "" && strings.EqualFold(strings.TrimSpace(e.Condition), input) {
			return e
		}
	}
	return nil
}
