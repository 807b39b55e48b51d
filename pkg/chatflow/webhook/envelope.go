package webhook

import "github.com/tidechat/chatflow/pkg/chatflow"

// envelope is the Cloud API webhook notification shape, trimmed to the
// fields the engine needs.
type envelope struct {
	Object string  `json:"object"`
	Entry  []entry `json:"entry"`
}

type entry struct {
	ID      string   `json:"id"`
	Changes []change `json:"changes"`
}

type change struct {
	Field string `json:"field"`
	Value value  `json:"value"`
}

type value struct {
	MessagingProduct string    `json:"messaging_product"`
	Contacts         []contact `json:"contacts"`
	Messages         []message `json:"messages"`
}

type contact struct {
	WaID    string `json:"wa_id"`
	Profile struct {
		Name string `json:"name"`
	} `json:"profile"`
}

type message struct {
	From        string              `json:"from"`
	ID          string              `json:"id"`
	Timestamp   string              `json:"timestamp"`
	Type        string              `json:"type"`
	Text        *textReply          `json:"text,omitempty"`
	Button      *templateButton     `json:"button,omitempty"`
	Interactive *interactiveMessage `json:"interactive,omitempty"`
}

type textReply struct {
	Body string `json:"body"`
}

// templateButton is the quick-reply button of a template message.
type templateButton struct {
	Text    string `json:"text"`
	Payload string `json:"payload"`
}

type interactiveMessage struct {
	Type        string       `json:"type"`
	ButtonReply *buttonReply `json:"button_reply,omitempty"`
	ListReply   *listReply   `json:"list_reply,omitempty"`
}

type buttonReply struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

type listReply struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// toEvent maps one inbound Cloud API message onto the engine's event shape.
func (m message) toEvent() chatflow.IncomingEvent {
	ev := chatflow.IncomingEvent{}

	switch {
	case m.Interactive != nil && m.Interactive.ButtonReply != nil:
		ev.Content = m.Interactive.ButtonReply.Title
		ev.Interactive = &chatflow.Interactive{
			Type:       chatflow.InteractiveButton,
			ButtonText: m.Interactive.ButtonReply.Title,
		}
	case m.Interactive != nil && m.Interactive.ListReply != nil:
		ev.Content = m.Interactive.ListReply.Title
		ev.Interactive = &chatflow.Interactive{
			Type:                chatflow.InteractiveList,
			ListItemTitle:       m.Interactive.ListReply.Title,
			ListItemDescription: m.Interactive.ListReply.Description,
		}
	case m.Button != nil:
		ev.Content = m.Button.Text
		ev.Interactive = &chatflow.Interactive{
			Type:       chatflow.InteractiveButton,
			ButtonText: m.Button.Text,
		}
	case m.Text != nil:
		ev.Content = m.Text.Body
	}

	return ev
}
