// Package whatsapp implements the outbound messaging gateway against the
// WhatsApp Cloud API.
package whatsapp

import "github.com/tidechat/chatflow/pkg/chatflow"

// sendRequest is the Cloud API /messages request envelope.
type sendRequest struct {
	MessagingProduct string       `json:"messaging_product"`
	RecipientType    string       `json:"recipient_type"`
	To               string       `json:"to"`
	Type             string       `json:"type"`
	Text             *textBody    `json:"text,omitempty"`
	Image            *mediaBody   `json:"image,omitempty"`
	Video            *mediaBody   `json:"video,omitempty"`
	Document         *mediaBody   `json:"document,omitempty"`
	Interactive      *interactive `json:"interactive,omitempty"`
}

type textBody struct {
	Body string `json:"body"`
}

type mediaBody struct {
	ID      string `json:"id,omitempty"`
	Link    string `json:"link,omitempty"`
	Caption string `json:"caption,omitempty"`
}

type interactive struct {
	Type   string    `json:"type"`
	Body   *textBody `json:"body,omitempty"`
	Action *action   `json:"action"`
}

type action struct {
	Buttons  []replyButton `json:"buttons,omitempty"`
	Button   string        `json:"button,omitempty"`
	Sections []listSection `json:"sections,omitempty"`
}

type replyButton struct {
	Type  string `json:"type"`
	Reply reply  `json:"reply"`
}

type reply struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

type listSection struct {
	Title string    `json:"title,omitempty"`
	Rows  []listRow `json:"rows"`
}

type listRow struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

// sendResponse is the Cloud API /messages success envelope.
type sendResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
}

// apiError is the Cloud API error envelope.
type apiError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    int    `json:"code"`
	} `json:"error"`
}

// buildRequest maps a rendered engine payload onto the Cloud API wire shape.
func buildRequest(to string, p chatflow.Payload) sendRequest {
	req := sendRequest{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		To:               to,
	}

	switch p.Type {
	case chatflow.PayloadImage:
		req.Type = "image"
		req.Image = &mediaBody{ID: p.MediaID, Caption: p.Caption}
	case chatflow.PayloadVideo:
		req.Type = "video"
		req.Video = &mediaBody{ID: p.MediaID, Caption: p.Caption}
	case chatflow.PayloadDocument:
		req.Type = "document"
		req.Document = &mediaBody{ID: p.MediaID, Caption: p.Caption}

	case chatflow.PayloadButtons:
		buttons := make([]replyButton, 0, len(p.Buttons))
		for _, b := range p.Buttons {
			buttons = append(buttons, replyButton{
				Type:  "reply",
				Reply: reply{ID: b.ID, Title: b.Title},
			})
		}
		req.Type = "interactive"
		req.Interactive = &interactive{
			Type:   "button",
			Body:   &textBody{Body: p.Body},
			Action: &action{Buttons: buttons},
		}

	case chatflow.PayloadList:
		sections := make([]listSection, 0, len(p.Sections))
		for _, s := range p.Sections {
			rows := make([]listRow, 0, len(s.Rows))
			for _, r := range s.Rows {
				rows = append(rows, listRow{ID: r.ID, Title: r.Title, Description: r.Description})
			}
			sections = append(sections, listSection{Title: s.Title, Rows: rows})
		}
		req.Type = "interactive"
		req.Interactive = &interactive{
			Type:   "list",
			Body:   &textBody{Body: p.Body},
			Action: &action{Button: p.ButtonLabel, Sections: sections},
		}

	default:
		req.Type = "text"
		req.Text = &textBody{Body: p.Body}
	}

	return req
}
