package chatflow

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/tidechat/chatflow/pkg/chatflow/observability"
)

// Outcome is the result of one step-loop invocation.
type Outcome int

const (
	// OutcomeNoop means the step degraded to a no-op: automation is off,
	// the graph was broken, or no route existed. The cursor is untouched.
	OutcomeNoop Outcome = iota
	// OutcomeAdvanced means the cursor moved to a pass-through node.
	OutcomeAdvanced
	// OutcomeSuspended means the cursor is pinned at a wait-for-reply node
	// until the next inbound event, indefinitely if need be.
	OutcomeSuspended
	// OutcomeCompleted means a terminal node was reached and the cursor
	// was reset.
	OutcomeCompleted
)

// String returns the outcome name for logging and metrics.
func (o Outcome) String() string {
	switch o {
	case OutcomeAdvanced:
		return "advanced"
	case OutcomeSuspended:
		return "suspended"
	case OutcomeCompleted:
		return "completed"
	default:
		return "noop"
	}
}

// Engine interprets conversation flows: for every inbound event it decides
// which node to execute next, drives message dispatch, and persists the
// execution cursor between events.
//
// Engine is safe for concurrent use. Steps for the same conversation are
// serialized on a per-conversation mutex so rapid duplicate events cannot
// race on the cursor; independent conversations run concurrently.
type Engine struct {
	flows       FlowSource
	states      StateStore
	dispatcher  *Dispatcher
	transcripts TranscriptStore

	logger  *slog.Logger
	metrics observability.MetricsRecorder
	spans   observability.SpanManager
	maxHops int

	locks conversationLocks
}

// New creates an engine over the given collaborators.
// transcripts may be nil when transcript recording is not wanted.
func New(flows FlowSource, states StateStore, gateway Gateway, transcripts TranscriptStore, opts ...Option) *Engine {
	cfg := defaultEngineConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	e := &Engine{
		flows:       flows,
		states:      states,
		transcripts: transcripts,
		logger:      cfg.logger,
		metrics:     cfg.metrics,
		spans:       cfg.spans,
		maxHops:     cfg.maxHops,
	}
	e.dispatcher = NewDispatcher(gateway, transcripts, cfg.logger, cfg.metrics)
	e.locks.m = make(map[string]*sync.Mutex)
	return e
}

// HandleEvent loads the conversation state and flow snapshot, then runs one
// step. Automation being off or unbound is a normal no-op; only collaborator
// failures (state store, flow source) surface as errors, and even those must
// not fail the surrounding webhook acknowledgment.
func (e *Engine) HandleEvent(ctx context.Context, conversationID string, event IncomingEvent) (Outcome, error) {
	unlock := e.locks.lock(conversationID)
	defer unlock()

	st, err := e.states.Get(ctx, conversationID)
	if err != nil {
		return OutcomeNoop, err
	}
	if !st.BotActive {
		observability.LogStepSkipped(e.logger, conversationID, ErrBotInactive.Error())
		return OutcomeNoop, nil
	}
	if st.FlowID == nil {
		observability.LogStepSkipped(e.logger, conversationID, ErrNoFlowBound.Error())
		return OutcomeNoop, nil
	}

	graph, err := e.flows.GetCompleteFlow(ctx, *st.FlowID, st.BusinessID)
	if err != nil {
		return OutcomeNoop, err
	}

	return e.Step(ctx, st, graph, event), nil
}

// Step runs the interpreter loop for one inbound event against an already
// loaded state and graph snapshot. Every failure mode degrades to a no-op
// for this single event; the persisted cursor is never corrupted.
func (e *Engine) Step(ctx context.Context, st *ConversationState, graph *FlowGraph, event IncomingEvent) Outcome {
	observability.LogStepStart(e.logger, st.ConversationID, graph.ID)
	start := time.Now()

	ctx, span := e.spans.StartStepSpan(ctx, graph.ID, st.ConversationID)
	outcome, hops, stepErr := e.runStep(ctx, st, graph, event)
	e.spans.EndSpanWithError(span, stepErr)

	duration := time.Since(start)
	e.metrics.RecordStep(ctx, outcome.String(), hops, duration)
	observability.LogStepOutcome(e.logger, st.ConversationID, outcome.String(), hops, float64(duration.Milliseconds()))
	return outcome
}

// runStep is the iterative step loop: an explicit loop with a hop counter
// chains auto-sent messages within one inbound event and caps the chain
// against authored cycles. The returned error is recorded on the step span
// only; aborts degrade to a no-op outcome, never a failed acknowledgment.
func (e *Engine) runStep(ctx context.Context, st *ConversationState, graph *FlowGraph, event IncomingEvent) (Outcome, int, error) {
	var current *Node
	if st.CurrentNodeID != nil {
		current = graph.Node(*st.CurrentNodeID)
		if current == nil {
			// Flow was edited out from under the cursor. Abort without
			// touching state; the next toggle or edit recovers it.
			observability.LogGraphAnomaly(e.logger, graph.ID, *st.CurrentNodeID, "cursor node missing")
			return OutcomeNoop, 0, &GraphIntegrityError{FlowID: graph.ID, NodeID: *st.CurrentNodeID}
		}
	} else {
		current = graph.Entry()
		if current == nil {
			observability.LogGraphAnomaly(e.logger, graph.ID, "", "flow has no nodes")
			return OutcomeNoop, 0, ErrEmptyFlow
		}
	}

	// One resolved value per event, reused for condition evaluation and
	// edge matching alike so the two paths cannot diverge.
	input := ResolveInput(event)

	to := Recipient{
		ConversationID: st.ConversationID,
		BusinessID:     st.BusinessID,
		PhoneNumber:    st.PhoneNumber,
	}

	limit := e.maxHops
	if limit <= 0 {
		limit = graph.Len()
	}

	hops := 0
	dispatched := false
	for {
		hopCtx, hopSpan := e.spans.StartHopSpan(ctx, current.ID)
		observability.LogNodeEntered(e.logger, current.ID, current.Kind.String())

		if current.Dispatchable() {
			if _, err := e.dispatcher.Dispatch(hopCtx, to, current); err != nil {
				// A failed send must not corrupt flow progression.
				observability.LogDispatchError(e.logger, current.ID, err)
			}
			dispatched = true
		}

		edges := graph.Outgoing(current.ID)
		if len(edges) == 0 {
			// Terminal node: the conversation's flow run is over.
			e.saveCursor(ctx, st, nil)
			e.spans.EndSpanWithError(hopSpan, nil)
			return OutcomeCompleted, hops, nil
		}

		edge, rule := selectEdge(graph, current, edges, event, input)
		observability.LogEdgeSelected(e.logger, edge.ID, current.ID, edge.Target, rule)
		if cond, ok := current.Content.(ConditionContent); ok {
			observability.LogConditionEvaluated(e.logger, current.ID, string(cond.Type), rule == ruleConditionTrue)
		}

		next := graph.Node(edge.Target)
		if next == nil {
			// Dangling edge: dead end despite edges existing.
			observability.LogGraphAnomaly(e.logger, graph.ID, edge.Target, "edge target missing")
			routeErr := &NoRouteError{FlowID: graph.ID, NodeID: current.ID, Target: edge.Target}
			e.spans.EndSpanWithError(hopSpan, routeErr)
			return OutcomeNoop, hops, routeErr
		}

		hops++
		e.saveCursor(ctx, st, &next.ID)

		if next.Kind == KindWait {
			e.spans.EndSpanWithError(hopSpan, nil)
			return OutcomeSuspended, hops, nil
		}

		// Auto-chain: dispatchable nodes always continue so a run of
		// consecutive sends executes within one inbound event. A condition
		// node continues only while nothing has been dispatched yet; a
		// condition reached through a preceding send is left for the next
		// event's input.
		chain := next.Dispatchable() || (next.Kind == KindCondition && !dispatched)
		if !chain {
			e.spans.EndSpanWithError(hopSpan, nil)
			return OutcomeAdvanced, hops, nil
		}

		if hops >= limit {
			// Safety cap: abort the remaining chain with the cursor at the
			// last reached node instead of looping forever.
			observability.LogHopLimit(e.logger, st.ConversationID, next.ID, limit)
			e.metrics.RecordHopLimit(ctx)
			hopErr := &HopLimitError{Limit: limit, NodeID: next.ID}
			e.spans.EndSpanWithError(hopSpan, hopErr)
			return OutcomeAdvanced, hops, hopErr
		}

		e.spans.EndSpanWithError(hopSpan, nil)
		current = next
	}
}

// saveCursor persists the cursor and mirrors it into the in-memory state.
// A failed persist is logged but does not abort the step: the in-flight
// transition already happened and last-write-wins persistence is the
// documented contract.
func (e *Engine) saveCursor(ctx context.Context, st *ConversationState, nodeID *string) {
	if err := e.states.SetCursor(ctx, st.ConversationID, nodeID); err != nil {
		observability.LogCursorError(e.logger, st.ConversationID, err)
		return
	}
	st.CurrentNodeID = nodeID
	saved := ""
	if nodeID != nil {
		saved = *nodeID
	}
	observability.LogCursorSaved(e.logger, st.ConversationID, saved)
}

// conversationLocks serializes steps per conversation.
// Entries are created on demand and live for the process lifetime.
type conversationLocks struct {
	mu sync.Mutex
	m  map[string]*sync.Mutex
}

func (l *conversationLocks) lock(conversationID string) (unlock func()) {
	l.mu.Lock()
	cl, ok := l.m[conversationID]
	if !ok {
		cl = &sync.Mutex{}
		l.m[conversationID] = cl
	}
	l.mu.Unlock()

	cl.Lock()
	return cl.Unlock
}
