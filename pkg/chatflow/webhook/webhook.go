// Package webhook receives WhatsApp Cloud API notifications and feeds them
// into the flow engine. The webhook always acknowledges with 200 once the
// payload is parsed: a broken flow degrades to silence, it never causes
// the provider to re-deliver the event.
package webhook

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tidechat/chatflow/pkg/chatflow"
)

// Stepper runs one engine step for an inbound event.
type Stepper interface {
	HandleEvent(ctx context.Context, conversationID string, event chatflow.IncomingEvent) (chatflow.Outcome, error)
}

// Handler serves the Cloud API webhook endpoints.
type Handler struct {
	engine      Stepper
	transcripts chatflow.TranscriptStore
	verifyToken string
	logger      *slog.Logger
}

// NewHandler creates a webhook handler. transcripts may be nil when inbound
// messages should not be recorded.
func NewHandler(engine Stepper, transcripts chatflow.TranscriptStore, verifyToken string, logger *slog.Logger) *Handler {
	return &Handler{
		engine:      engine,
		transcripts: transcripts,
		verifyToken: verifyToken,
		logger:      logger,
	}
}

// Register mounts the webhook routes.
func (h *Handler) Register(r gin.IRouter) {
	r.GET("/webhook", h.verify)
	r.POST("/webhook", h.receive)
}

// verify answers the Cloud API subscription handshake.
func (h *Handler) verify(c *gin.Context) {
	mode := c.Query("hub.mode")
	token := c.Query("hub.verify_token")
	challenge := c.Query("hub.challenge")

	if mode == "subscribe" && token == h.verifyToken {
		c.String(http.StatusOK, challenge)
		return
	}
	c.Status(http.StatusForbidden)
}

// receive processes one webhook notification. Parse failures are the only
// thing reported as an error status; everything past parsing is contained
// and acknowledged.
func (h *Handler) receive(c *gin.Context) {
	var env envelope
	if err := c.ShouldBindJSON(&env); err != nil {
		c.Status(http.StatusBadRequest)
		return
	}

	for _, e := range env.Entry {
		for _, ch := range e.Changes {
			if ch.Field != "messages" {
				continue
			}
			for _, msg := range ch.Value.Messages {
				h.handleMessage(c.Request.Context(), msg)
			}
		}
	}

	c.Status(http.StatusOK)
}

func (h *Handler) handleMessage(ctx context.Context, msg message) {
	ev := msg.toEvent()

	// Conversations are keyed by the sender's phone number.
	conversationID := msg.From

	if h.transcripts != nil {
		inbound := chatflow.Message{
			ID:             inboundMessageID(msg),
			ConversationID: conversationID,
			Direction:      chatflow.DirectionUser,
			Body:           ev.Content,
			Timestamp:      time.Now().UTC(),
		}
		if err := h.transcripts.Append(ctx, conversationID, inbound); err != nil && h.logger != nil {
			h.logger.Warn("inbound transcript append failed",
				slog.String("conversation_id", conversationID),
				slog.String("error", err.Error()),
			)
		}
	}

	outcome, err := h.engine.HandleEvent(ctx, conversationID, ev)
	if err != nil && h.logger != nil {
		h.logger.Warn("event handling failed",
			slog.String("conversation_id", conversationID),
			slog.String("error", err.Error()),
		)
		return
	}
	if h.logger != nil {
		h.logger.Debug("event handled",
			slog.String("conversation_id", conversationID),
			slog.String("outcome", outcome.String()),
		)
	}
}

func inboundMessageID(msg message) string {
	if msg.ID != "" {
		return msg.ID
	}
	return uuid.New().String()
}
