package chatflow

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Shared test doubles and graph builders for the engine tests.

// fakeStateStore records cursor writes for assertions.
type fakeStateStore struct {
	states     map[string]*ConversationState
	cursors    []*string
	getErr     error
	cursorErr  error
	toggleErrs error
}

func newFakeStateStore(states ...*ConversationState) *fakeStateStore {
	s := &fakeStateStore{states: make(map[string]*ConversationState)}
	for _, st := range states {
		copied := *st
		s.states[st.ConversationID] = &copied
	}
	return s
}

func (s *fakeStateStore) Get(_ context.Context, conversationID string) (*ConversationState, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	st, ok := s.states[conversationID]
	if !ok {
		return nil, ErrNoFlowBound
	}
	copied := *st
	return &copied, nil
}

func (s *fakeStateStore) Put(_ context.Context, st *ConversationState) error {
	copied := *st
	s.states[st.ConversationID] = &copied
	return nil
}

func (s *fakeStateStore) SetCursor(_ context.Context, conversationID string, nodeID *string) error {
	if s.cursorErr != nil {
		return s.cursorErr
	}
	if nodeID != nil {
		id := *nodeID
		nodeID = &id
	}
	s.cursors = append(s.cursors, nodeID)
	if st, ok := s.states[conversationID]; ok {
		st.CurrentNodeID = nodeID
	}
	return nil
}

func (s *fakeStateStore) Toggle(_ context.Context, conversationID string, enabled bool, flowID *string) error {
	if s.toggleErrs != nil {
		return s.toggleErrs
	}
	st, ok := s.states[conversationID]
	if !ok {
		if enabled {
			s.states[conversationID] = &ConversationState{
				ConversationID: conversationID,
				BotActive:      true,
				FlowID:         flowID,
			}
		}
		return nil
	}
	st.BotActive = enabled
	st.FlowID = flowID
	st.CurrentNodeID = nil
	return nil
}

func (s *fakeStateStore) Close() error { return nil }

// lastCursor returns the most recent cursor write, or "unset" when none.
func (s *fakeStateStore) lastCursor() string {
	if len(s.cursors) == 0 {
		return "unset"
	}
	last := s.cursors[len(s.cursors)-1]
	if last == nil {
		return ""
	}
	return *last
}

// sentMessage is one recorded gateway send.
type sentMessage struct {
	to      Recipient
	payload Payload
}

// fakeGateway records sends and can be made to fail.
type fakeGateway struct {
	sent []sentMessage
	err  error
}

func (g *fakeGateway) Send(_ context.Context, to Recipient, p Payload) (Delivery, error) {
	g.sent = append(g.sent, sentMessage{to: to, payload: p})
	if g.err != nil {
		return Delivery{}, g.err
	}
	return Delivery{MessageID: "wamid.test"}, nil
}

// fakeTranscript records appended messages.
type fakeTranscript struct {
	msgs []Message
	err  error
}

func (t *fakeTranscript) Append(_ context.Context, _ string, msg Message) error {
	if t.err != nil {
		return t.err
	}
	t.msgs = append(t.msgs, msg)
	return nil
}

// fakeSpan tags a recorded span with the name it was started under.
type fakeSpan struct {
	noop.Span
	name string
}

// spanEnd is one recorded EndSpanWithError call.
type spanEnd struct {
	name string
	err  error
}

// fakeSpans records span completions so tests can assert which error, if
// any, a step or hop span ended with.
type fakeSpans struct {
	ends []spanEnd
}

func (f *fakeSpans) StartStepSpan(ctx context.Context, _, _ string) (context.Context, trace.Span) {
	return ctx, fakeSpan{name: "step"}
}

func (f *fakeSpans) StartHopSpan(ctx context.Context, nodeID string) (context.Context, trace.Span) {
	return ctx, fakeSpan{name: "hop:" + nodeID}
}

func (f *fakeSpans) EndSpanWithError(span trace.Span, err error) {
	name := ""
	if fs, ok := span.(fakeSpan); ok {
		name = fs.name
	}
	f.ends = append(f.ends, spanEnd{name: name, err: err})
}

func (f *fakeSpans) AddSpanEvent(_ context.Context, _ string, _ ...attribute.KeyValue) {}

// stepErr returns the error the step span ended with.
func (f *fakeSpans) stepErr() error {
	for _, e := range f.ends {
		if e.name == "step" {
			return e.err
		}
	}
	return nil
}

// fakeFlowSource serves a fixed set of graphs.
type fakeFlowSource struct {
	graphs map[string]*FlowGraph
}

func (f *fakeFlowSource) GetCompleteFlow(_ context.Context, flowID, _ string) (*FlowGraph, error) {
	g, ok := f.graphs[flowID]
	if !ok {
		return nil, ErrNoFlowBound
	}
	return g, nil
}

// Graph builders.

func textNode(id, body string) *Node {
	return &Node{ID: id, Kind: KindSend, Content: TextContent{Body: body}}
}

func waitNode(id string) *Node {
	return &Node{ID: id, Kind: KindWait, Content: WaitContent{}}
}

func condNode(id string, ct ConditionType, compare string) *Node {
	return &Node{ID: id, Kind: KindCondition, Content: ConditionContent{Type: ct, CompareValue: compare}}
}

func genericNode(id string) *Node {
	return &Node{ID: id, Kind: KindGeneric, Content: GenericContent{}}
}

// edgeAt builds an edge created at a fixed offset from a common epoch, so
// condition-branch ordering is deterministic in tests.
func edgeAt(id, source, target, condition string, offset time.Duration) *Edge {
	epoch := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	return &Edge{
		ID:        id,
		Source:    source,
		Target:    target,
		Condition: condition,
		CreatedAt: epoch.Add(offset),
	}
}

func edge(id, source, target, condition string) *Edge {
	return edgeAt(id, source, target, condition, 0)
}

// testState returns a conversation state bound to the given flow.
func testState(conversationID, flowID string, cursor *string) *ConversationState {
	return &ConversationState{
		ConversationID: conversationID,
		BusinessID:     "biz-1",
		PhoneNumber:    "15550001111",
		BotActive:      true,
		FlowID:         &flowID,
		CurrentNodeID:  cursor,
	}
}

// newTestEngine wires an engine over fresh fakes with logging silenced.
func newTestEngine(graphs map[string]*FlowGraph, states *fakeStateStore) (*Engine, *fakeGateway, *fakeTranscript) {
	gateway := &fakeGateway{}
	transcripts := &fakeTranscript{}
	engine := New(&fakeFlowSource{graphs: graphs}, states, gateway, transcripts, WithLogger(nil))
	return engine, gateway, transcripts
}

func ptr(s string) *string { return &s }
