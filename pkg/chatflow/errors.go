package chatflow

import (
	"errors"
	"fmt"
)

// Sentinel errors for step execution. Every one of these degrades to a
// silent no-op step: a broken flow never corrupts the persisted cursor and
// never fails the surrounding webhook acknowledgment.
var (
	// ErrNodeNotFound indicates the cursor or an edge references a node
	// missing from the current graph snapshot.
	ErrNodeNotFound = errors.New("node not found in flow")

	// ErrEmptyFlow indicates the flow has no nodes to start from.
	ErrEmptyFlow = errors.New("flow has no nodes")

	// ErrNoRoute indicates edge selection produced no usable next node.
	ErrNoRoute = errors.New("no route from node")

	// ErrHopLimit indicates a single inbound event exceeded the hop cap.
	ErrHopLimit = errors.New("hop limit exceeded")

	// ErrBotInactive indicates automation is disabled for the conversation.
	ErrBotInactive = errors.New("bot not active for conversation")

	// ErrNoFlowBound indicates the conversation has no flow assigned.
	ErrNoFlowBound = errors.New("no flow bound to conversation")
)

// GraphIntegrityError reports a reference to a node that is absent from the
// current graph snapshot, typically because the flow definition was edited
// between inbound events.
type GraphIntegrityError struct {
	// FlowID is the graph snapshot being executed.
	FlowID string
	// NodeID is the missing node.
	NodeID string
}

// Error implements the error interface.
func (e *GraphIntegrityError) Error() string {
	return fmt.Sprintf("flow %s: node %s: %v", e.FlowID, e.NodeID, ErrNodeNotFound)
}

// Unwrap returns ErrNodeNotFound for errors.Is support.
func (e *GraphIntegrityError) Unwrap() error {
	return ErrNodeNotFound
}

// NoRouteError reports a dead end mid-step: the selected edge points at a
// node that is absent from the current graph snapshot.
type NoRouteError struct {
	// FlowID is the graph snapshot being executed.
	FlowID string
	// NodeID is the node the route left from.
	NodeID string
	// Target is the missing edge target.
	Target string
}

// Error implements the error interface.
func (e *NoRouteError) Error() string {
	return fmt.Sprintf("flow %s: node %s: edge target %s: %v", e.FlowID, e.NodeID, e.Target, ErrNoRoute)
}

// Unwrap returns ErrNoRoute for errors.Is support.
func (e *NoRouteError) Unwrap() error {
	return ErrNoRoute
}

// DispatchError wraps a failed outbound send. A failed send is logged and
// never blocks flow progression.
type DispatchError struct {
	// NodeID is the node whose message failed to send.
	NodeID string
	// Err is the underlying gateway or transcript error.
	Err error
}

// Error implements the error interface.
func (e *DispatchError) Error() string {
	return fmt.Sprintf("dispatch at node %s: %v", e.NodeID, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *DispatchError) Unwrap() error {
	return e.Err
}

// HopLimitError reports that the auto-chain for one inbound event tripped
// the safety cap. The cursor stays at the last successfully reached node.
type HopLimitError struct {
	// Limit is the configured hop cap.
	Limit int
	// NodeID is the node the cursor was parked at.
	NodeID string
}

// Error implements the error interface.
func (e *HopLimitError) Error() string {
	return fmt.Sprintf("exceeded hop limit (%d) at node %s", e.Limit, e.NodeID)
}

// Unwrap returns ErrHopLimit for errors.Is support.
func (e *HopLimitError) Unwrap() error {
	return ErrHopLimit
}
