// Package observability provides structured logging, metrics, and tracing
// for the chatflow engine: a step trace is emitted at every decision point
// (node entered, edge selected, dispatch attempted, cursor persisted), and
// all features are opt-in with no-op implementations when disabled.
package observability

import (
	"log/slog"
)

// LogStepStart logs the start of one step-loop invocation.
func LogStepStart(logger *slog.Logger, conversationID, flowID string) {
	if logger == nil {
		return
	}
	logger.Debug("step starting",
		slog.String("conversation_id", conversationID),
		slog.String("flow_id", flowID),
	)
}

// LogStepSkipped logs an inbound event acknowledged without running a step,
// with the reason automation did not apply.
func LogStepSkipped(logger *slog.Logger, conversationID, reason string) {
	if logger == nil {
		return
	}
	logger.Debug("step skipped",
		slog.String("conversation_id", conversationID),
		slog.String("reason", reason),
	)
}

// LogStepOutcome logs the result of a step-loop invocation.
func LogStepOutcome(logger *slog.Logger, conversationID, outcome string, hops int, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Info("step finished",
		slog.String("conversation_id", conversationID),
		slog.String("outcome", outcome),
		slog.Int("hops", hops),
		slog.Float64("duration_ms", durationMs),
	)
}

// LogNodeEntered logs the interpreter entering a node.
func LogNodeEntered(logger *slog.Logger, nodeID, kind string) {
	if logger == nil {
		return
	}
	logger.Debug("node entered",
		slog.String("node_id", nodeID),
		slog.String("kind", kind),
	)
}

// LogEdgeSelected logs which outgoing edge was chosen and why.
func LogEdgeSelected(logger *slog.Logger, edgeID, sourceID, targetID, rule string) {
	if logger == nil {
		return
	}
	logger.Debug("edge selected",
		slog.String("edge_id", edgeID),
		slog.String("source", sourceID),
		slog.String("target", targetID),
		slog.String("rule", rule),
	)
}

// LogConditionEvaluated logs the result of a condition node's predicate.
func LogConditionEvaluated(logger *slog.Logger, nodeID, conditionType string, matched bool) {
	if logger == nil {
		return
	}
	logger.Debug("condition evaluated",
		slog.String("node_id", nodeID),
		slog.String("condition_type", conditionType),
		slog.Bool("matched", matched),
	)
}

// LogDispatch logs an outbound send attempt.
func LogDispatch(logger *slog.Logger, nodeID, payloadType string) {
	if logger == nil {
		return
	}
	logger.Debug("dispatching message",
		slog.String("node_id", nodeID),
		slog.String("payload_type", payloadType),
	)
}

// LogDispatchError logs a failed send. Sends never block flow progression,
// so this is warn-level, not error.
func LogDispatchError(logger *slog.Logger, nodeID string, err error) {
	if logger == nil {
		return
	}
	logger.Warn("dispatch failed",
		slog.String("node_id", nodeID),
		slog.String("error", err.Error()),
	)
}

// LogTranscriptError logs a failed transcript append (non-fatal).
func LogTranscriptError(logger *slog.Logger, conversationID string, err error) {
	if logger == nil {
		return
	}
	logger.Warn("transcript append failed",
		slog.String("conversation_id", conversationID),
		slog.String("error", err.Error()),
	)
}

// LogCursorSaved logs a cursor mutation. nodeID is empty when the cursor
// was cleared.
func LogCursorSaved(logger *slog.Logger, conversationID, nodeID string) {
	if logger == nil {
		return
	}
	logger.Debug("cursor saved",
		slog.String("conversation_id", conversationID),
		slog.String("node_id", nodeID),
	)
}

// LogCursorError logs a failed cursor persist.
func LogCursorError(logger *slog.Logger, conversationID string, err error) {
	if logger == nil {
		return
	}
	logger.Error("cursor persist failed",
		slog.String("conversation_id", conversationID),
		slog.String("error", err.Error()),
	)
}

// LogGraphAnomaly logs a broken-flow condition the step degraded on:
// a missing node, a dangling edge, or a dead end.
func LogGraphAnomaly(logger *slog.Logger, flowID, nodeID, reason string) {
	if logger == nil {
		return
	}
	logger.Warn("flow graph anomaly",
		slog.String("flow_id", flowID),
		slog.String("node_id", nodeID),
		slog.String("reason", reason),
	)
}

// LogHopLimit logs the hop-cap safety guard firing.
func LogHopLimit(logger *slog.Logger, conversationID, nodeID string, limit int) {
	if logger == nil {
		return
	}
	logger.Warn("hop limit exceeded, aborting chain",
		slog.String("conversation_id", conversationID),
		slog.String("node_id", nodeID),
		slog.Int("limit", limit),
	)
}
