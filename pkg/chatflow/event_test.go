package chatflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveInput(t *testing.T) {
	testCases := []struct {
		name string
		ev   IncomingEvent
		want string
	}{
		{"plain text", IncomingEvent{Content: "Hello"}, "hello"},
		{"trims and lowercases", IncomingEvent{Content: "  Talk To Sales  "}, "talk to sales"},
		{"empty", IncomingEvent{}, ""},
		{
			"button reply resolves to title",
			IncomingEvent{
				Content:     "ignored",
				Interactive: &Interactive{Type: InteractiveButton, ButtonText: "Option 1"},
			},
			"option 1",
		},
		{
			"list reply resolves to item title",
			IncomingEvent{
				Interactive: &Interactive{
					Type:                InteractiveList,
					ListItemTitle:       "Pricing",
					ListItemDescription: "See our plans",
				},
			},
			"pricing",
		},
		{
			"unknown interactive type falls back to content",
			IncomingEvent{
				Content:     "Raw Text",
				Interactive: &Interactive{Type: InteractiveType("nfc")},
			},
			"raw text",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ResolveInput(tc.ev))
		})
	}
}

func TestIncomingEvent_IsInteractive(t *testing.T) {
	assert.False(t, IncomingEvent{Content: "hi"}.IsInteractive())
	assert.False(t, IncomingEvent{Interactive: &Interactive{Type: "nfc"}}.IsInteractive())
	assert.True(t, IncomingEvent{Interactive: &Interactive{Type: InteractiveButton}}.IsInteractive())
	assert.True(t, IncomingEvent{Interactive: &Interactive{Type: InteractiveList}}.IsInteractive())
}
