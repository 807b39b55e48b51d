package webhook

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tidechat/chatflow/pkg/chatflow"
)

type handledEvent struct {
	conversationID string
	event          chatflow.IncomingEvent
}

// fakeStepper records handed-off events.
type fakeStepper struct {
	events []handledEvent
	err    error
}

func (s *fakeStepper) HandleEvent(_ context.Context, conversationID string, event chatflow.IncomingEvent) (chatflow.Outcome, error) {
	s.events = append(s.events, handledEvent{conversationID: conversationID, event: event})
	return chatflow.OutcomeAdvanced, s.err
}

type fakeTranscript struct {
	msgs []chatflow.Message
}

func (t *fakeTranscript) Append(_ context.Context, _ string, msg chatflow.Message) error {
	t.msgs = append(t.msgs, msg)
	return nil
}

func newTestRouter(stepper Stepper, transcripts chatflow.TranscriptStore) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	NewHandler(stepper, transcripts, "verify-me", nil).Register(router)
	return router
}

func TestVerify(t *testing.T) {
	router := newTestRouter(&fakeStepper{}, nil)

	t.Run("valid handshake echoes challenge", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet,
			"/webhook?hub.mode=subscribe&hub.verify_token=verify-me&hub.challenge=12345", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "12345", w.Body.String())
	})

	t.Run("wrong token is forbidden", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet,
			"/webhook?hub.mode=subscribe&hub.verify_token=wrong&hub.challenge=12345", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}

const textNotification = `{
  "object": "whatsapp_business_account",
  "entry": [{
    "id": "entry-1",
    "changes": [{
      "field": "messages",
      "value": {
        "messaging_product": "whatsapp",
        "messages": [{
          "from": "15550001111",
          "id": "wamid.in1",
          "type": "text",
          "text": {"body": "Hi there"}
        }]
      }
    }]
  }]
}`

func TestReceive_TextMessage(t *testing.T) {
	stepper := &fakeStepper{}
	transcripts := &fakeTranscript{}
	router := newTestRouter(stepper, transcripts)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(textNotification))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	require.Len(t, stepper.events, 1)
	assert.Equal(t, "15550001111", stepper.events[0].conversationID)
	assert.Equal(t, "Hi there", stepper.events[0].event.Content)
	assert.Nil(t, stepper.events[0].event.Interactive)

	require.Len(t, transcripts.msgs, 1)
	assert.Equal(t, "wamid.in1", transcripts.msgs[0].ID)
	assert.Equal(t, chatflow.DirectionUser, transcripts.msgs[0].Direction)
	assert.Equal(t, "Hi there", transcripts.msgs[0].Body)
}

func TestReceive_ButtonReply(t *testing.T) {
	const notification = `{
	  "entry": [{"changes": [{"field": "messages", "value": {"messages": [{
	    "from": "15550001111",
	    "id": "wamid.in2",
	    "type": "interactive",
	    "interactive": {"type": "button_reply", "button_reply": {"id": "n1_option_1", "title": "Option 1"}}
	  }]}}]}]
	}`

	stepper := &fakeStepper{}
	router := newTestRouter(stepper, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(notification))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	require.Len(t, stepper.events, 1)

	ev := stepper.events[0].event
	require.NotNil(t, ev.Interactive)
	assert.Equal(t, chatflow.InteractiveButton, ev.Interactive.Type)
	assert.Equal(t, "Option 1", ev.Interactive.ButtonText)
}

func TestReceive_ListReply(t *testing.T) {
	const notification = `{
	  "entry": [{"changes": [{"field": "messages", "value": {"messages": [{
	    "from": "15550001111",
	    "id": "wamid.in3",
	    "type": "interactive",
	    "interactive": {"type": "list_reply", "list_reply": {"id": "n1_pricing", "title": "Pricing", "description": "See plans"}}
	  }]}}]}]
	}`

	stepper := &fakeStepper{}
	router := newTestRouter(stepper, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(notification))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Len(t, stepper.events, 1)
	ev := stepper.events[0].event
	require.NotNil(t, ev.Interactive)
	assert.Equal(t, chatflow.InteractiveList, ev.Interactive.Type)
	assert.Equal(t, "Pricing", ev.Interactive.ListItemTitle)
	assert.Equal(t, "See plans", ev.Interactive.ListItemDescription)
}

func TestReceive_IgnoresNonMessageChanges(t *testing.T) {
	const notification = `{
	  "entry": [{"changes": [{"field": "statuses", "value": {}}]}]
	}`

	stepper := &fakeStepper{}
	router := newTestRouter(stepper, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(notification))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, stepper.events)
}

func TestReceive_MalformedJSON(t *testing.T) {
	router := newTestRouter(&fakeStepper{}, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestReceive_EngineErrorStillAcknowledged(t *testing.T) {
	stepper := &fakeStepper{err: assert.AnError}
	router := newTestRouter(stepper, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(textNotification))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMessageToEvent_TemplateButton(t *testing.T) {
	msg := message{
		From:   "15550001111",
		Button: &templateButton{Text: "Yes please", Payload: "YES"},
	}
	ev := msg.toEvent()

	assert.Equal(t, "Yes please", ev.Content)
	require.NotNil(t, ev.Interactive)
	assert.Equal(t, chatflow.InteractiveButton, ev.Interactive.Type)
}

func TestMessageToEvent_UnsupportedType(t *testing.T) {
	ev := message{From: "15550001111", Type: "audio"}.toEvent()
	assert.Empty(t, ev.Content)
	assert.Nil(t, ev.Interactive)
}
