package chatflow

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tidechat/chatflow/pkg/chatflow/observability"
)

// PayloadType is the concrete outbound message shape.
type PayloadType string

// Payload types.
const (
	PayloadText     PayloadType = "text"
	PayloadImage    PayloadType = "image"
	PayloadVideo    PayloadType = "video"
	PayloadDocument PayloadType = "document"
	PayloadButtons  PayloadType = "buttons"
	PayloadList     PayloadType = "list"
)

// RenderedButton is one button of an interactive payload.
type RenderedButton struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// RenderedRow is one selectable row of an interactive list payload.
type RenderedRow struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

// RenderedSection groups rendered rows.
type RenderedSection struct {
	Title string        `json:"title,omitempty"`
	Rows  []RenderedRow `json:"rows"`
}

// Payload is a fully rendered outbound message, ready for the gateway and
// for transcript storage.
type Payload struct {
	Type        PayloadType       `json:"type"`
	Body        string            `json:"body,omitempty"`
	MediaID     string            `json:"mediaId,omitempty"`
	Caption     string            `json:"caption,omitempty"`
	Buttons     []RenderedButton  `json:"buttons,omitempty"`
	ButtonLabel string            `json:"buttonLabel,omitempty"`
	Sections    []RenderedSection `json:"sections,omitempty"`
}

// defaultListButtonLabel is used when a list node doesn't name its button.
const defaultListButtonLabel = "Options"

// slug normalizes a button or row title into an id fragment:
// lowercased, whitespace collapsed to underscores.
func slug(title string) string {
	return strings.Join(strings.Fields(strings.ToLower(title)), "_")
}

// RenderPayload turns a node's content into a concrete outbound payload.
// Malformed content degrades to a plain text payload rather than failing;
// interactive ids are derived as {nodeID}_{slug(title)} so they stay
// deterministic and collision-resistant within a node.
func RenderPayload(node *Node) Payload {
	switch c := node.Content.(type) {
	case TextContent:
		return Payload{Type: PayloadText, Body: c.Body}

	case MediaContent:
		if c.MediaID != "" {
			return Payload{Type: mediaPayloadType(c.Kind), MediaID: c.MediaID, Caption: c.Caption}
		}
		if c.URL != "" {
			body := strings.TrimSpace(c.Caption + " [" + c.URL + "]")
			return Payload{Type: PayloadText, Body: body}
		}
		return Payload{Type: PayloadText, Body: c.Caption}

	case ButtonsContent:
		if len(c.Buttons) == 0 {
			return Payload{Type: PayloadText, Body: c.Body}
		}
		buttons := make([]RenderedButton, 0, len(c.Buttons))
		for _, b := range c.Buttons {
			buttons = append(buttons, RenderedButton{
				ID:    node.ID + "_" + slug(b.Title),
				Title: b.Title,
			})
		}
		return Payload{Type: PayloadButtons, Body: c.Body, Buttons: buttons}

	case ListContent:
		sections := make([]RenderedSection, 0, len(c.Sections))
		for _, s := range c.Sections {
			if len(s.Rows) == 0 {
				continue
			}
			rows := make([]RenderedRow, 0, len(s.Rows))
			for _, r := range s.Rows {
				rows = append(rows, RenderedRow{
					ID:          node.ID + "_" + slug(r.Title),
					Title:       r.Title,
					Description: r.Description,
				})
			}
			sections = append(sections, RenderedSection{Title: s.Title, Rows: rows})
		}
		if len(sections) == 0 {
			return Payload{Type: PayloadText, Body: c.Body}
		}
		label := c.ButtonLabel
		if label == "" {
			label = defaultListButtonLabel
		}
		return Payload{Type: PayloadList, Body: c.Body, ButtonLabel: label, Sections: sections}

	default:
		return Payload{Type: PayloadText}
	}
}

func mediaPayloadType(k MediaKind) PayloadType {
	switch k {
	case MediaVideo:
		return PayloadVideo
	case MediaDocument:
		return PayloadDocument
	default:
		return PayloadImage
	}
}

// Dispatcher renders node content into outbound messages, sends them through
// the gateway, and records them in the transcript tagged as bot-authored.
type Dispatcher struct {
	gateway     Gateway
	transcripts TranscriptStore
	logger      *slog.Logger
	metrics     observability.MetricsRecorder
}

// NewDispatcher creates a dispatcher over the given collaborators.
// transcripts may be nil when transcript recording is not wanted.
func NewDispatcher(gateway Gateway, transcripts TranscriptStore, logger *slog.Logger, metrics observability.MetricsRecorder) *Dispatcher {
	if metrics == nil {
		metrics = observability.NoopMetrics{}
	}
	return &Dispatcher{
		gateway:     gateway,
		transcripts: transcripts,
		logger:      logger,
		metrics:     metrics,
	}
}

// Dispatch sends the node's rendered payload to the recipient.
// On success the rendered payload is appended to the transcript; a failed
// append is logged but does not fail the dispatch, since the message has
// already reached the user.
func (d *Dispatcher) Dispatch(ctx context.Context, to Recipient, node *Node) (Payload, error) {
	p := RenderPayload(node)

	observability.LogDispatch(d.logger, node.ID, string(p.Type))
	start := time.Now()
	delivery, err := d.gateway.Send(ctx, to, p)
	d.metrics.RecordDispatch(ctx, string(p.Type), time.Since(start), err)
	if err != nil {
		return p, &DispatchError{NodeID: node.ID, Err: err}
	}

	if d.transcripts != nil {
		raw, err := json.Marshal(p)
		if err != nil {
			observability.LogTranscriptError(d.logger, to.ConversationID, err)
			return p, nil
		}
		msg := Message{
			ID:             messageID(delivery),
			ConversationID: to.ConversationID,
			Direction:      DirectionBot,
			Body:           transcriptBody(p),
			Payload:        raw,
			Timestamp:      time.Now().UTC(),
		}
		if err := d.transcripts.Append(ctx, to.ConversationID, msg); err != nil {
			observability.LogTranscriptError(d.logger, to.ConversationID, err)
		}
	}

	return p, nil
}

// messageID prefers the provider-assigned id so transcript entries correlate
// with delivery receipts.
func messageID(d Delivery) string {
	if d.MessageID != "" {
		return d.MessageID
	}
	return uuid.New().String()
}

// transcriptBody picks the human-readable text of a payload.
func transcriptBody(p Payload) string {
	if p.Body != "" {
		return p.Body
	}
	return p.Caption
}
