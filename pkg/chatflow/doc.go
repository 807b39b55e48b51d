/*
Package chatflow is the execution engine behind automated WhatsApp
conversations: it interprets a business-authored graph of nodes and edges
and, for every inbound message, decides which node runs next, sends whatever
that node says to send, and persists an execution cursor that survives
indefinitely between messages.

# Overview

A flow is a directed graph. Nodes send messages (text, media, interactive
buttons or lists), wait for a reply, or branch on a condition. Edges link
nodes and may carry a condition string matched against the user's input.
The engine runs one synchronous step per inbound event:

	engine := chatflow.New(flows, states, gateway, transcripts)
	outcome, err := engine.HandleEvent(ctx, conversationID, chatflow.IncomingEvent{
	    Content: "hi",
	})

A step ends in one of four outcomes: the cursor advanced, the conversation
suspended at a wait-for-reply node, the flow completed (terminal node,
cursor reset), or nothing happened. A chain of consecutive send nodes
executes fully within one event, bounded by a hop cap.

# Failure containment

A broken or inconsistent flow degrades to silence for that single event.
Dangling edges, a cursor pointing at a node deleted by a flow edit, invalid
regex conditions, and failed sends are all contained: none of them corrupt
the persisted cursor and none of them should fail the surrounding webhook
acknowledgment.

# Collaborators

The engine is wired from four injected interfaces: FlowSource (flow
snapshots), StateStore (cursor persistence), Gateway (outbound sends), and
TranscriptStore (what-was-sent recording). Deterministic test doubles slot
in for all of them.

# Subpackages

  - state: StateStore backends (memory, SQLite, Redis)
  - transcript: TranscriptStore backends (memory, SQLite)
  - flowdef: authoring-side wire model, YAML/JSON loaders, static FlowSource
  - whatsapp: WhatsApp Cloud API gateway
  - webhook: inbound Cloud API webhook receiver
  - observability: step trace logging, metrics, and tracing helpers
*/
package chatflow
