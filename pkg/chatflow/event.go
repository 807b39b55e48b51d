package chatflow

import "strings"

// InteractiveType distinguishes button replies from list replies.
type InteractiveType string

// Interactive reply types.
const (
	InteractiveButton InteractiveType = "button"
	InteractiveList   InteractiveType = "list"
)

// Interactive carries the structured part of a button or list reply.
type Interactive struct {
	Type                InteractiveType
	ButtonText          string
	ListItemTitle       string
	ListItemDescription string
}

// IncomingEvent is one inbound message for a conversation.
type IncomingEvent struct {
	Content     string
	Interactive *Interactive
}

// IsInteractive reports whether the event is a button or list reply.
func (ev IncomingEvent) IsInteractive() bool {
	if ev.Interactive == nil {
		return false
	}
	return ev.Interactive.Type == InteractiveButton || ev.Interactive.Type == InteractiveList
}

// ResolveInput extracts the single normalized effective input of an event.
// Button replies resolve to the button title, list replies to the selected
// item title (never its description), everything else to the text content.
// The result is lowercased and trimmed, and the same value is used for both
// condition evaluation and edge matching within one step.
func ResolveInput(ev IncomingEvent) string {
	raw := ev.Content
	if ev.Interactive != nil {
		switch ev.Interactive.Type {
		case InteractiveButton:
			raw = ev.Interactive.ButtonText
		case InteractiveList:
			raw = ev.Interactive.ListItemTitle
		}
	}
	return strings.ToLower(strings.TrimSpace(raw))
}
