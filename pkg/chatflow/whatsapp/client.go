package whatsapp

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/tidechat/chatflow/pkg/chatflow"
)

// DefaultBaseURL is the Cloud API endpoint.
const DefaultBaseURL = "https://graph.facebook.com/v19.0"

// Config configures a Client.
type Config struct {
	// Token is the Cloud API bearer token.
	Token string
	// PhoneNumberID is the sending phone number id, not the phone number itself.
	PhoneNumberID string
	// BaseURL overrides the Cloud API endpoint, mainly for tests.
	BaseURL string
	// Timeout bounds one send attempt. Defaults to 15s.
	Timeout time.Duration
}

// Client sends rendered payloads through the WhatsApp Cloud API.
// It does not retry; retry and backoff policy is configured on the HTTP
// client, not in the flow engine.
type Client struct {
	http          *resty.Client
	phoneNumberID string
}

// Compile-time interface check.
var _ chatflow.Gateway = (*Client)(nil)

// NewClient creates a Cloud API gateway client.
func NewClient(conf Config) *Client {
	baseURL := conf.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	timeout := conf.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}

	http := resty.New().
		SetBaseURL(baseURL).
		SetAuthToken(conf.Token).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json")

	return &Client{http: http, phoneNumberID: conf.PhoneNumberID}
}

// Send implements chatflow.Gateway.
func (c *Client) Send(ctx context.Context, to chatflow.Recipient, p chatflow.Payload) (chatflow.Delivery, error) {
	var ok sendResponse
	var apiErr apiError

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(buildRequest(to.PhoneNumber, p)).
		SetResult(&ok).
		SetError(&apiErr).
		Post("/" + c.phoneNumberID + "/messages")
	if err != nil {
		return chatflow.Delivery{}, fmt.Errorf("cloud api request: %w", err)
	}
	if resp.IsError() {
		return chatflow.Delivery{}, fmt.Errorf("cloud api status %d: %s", resp.StatusCode(), apiErr.Error.Message)
	}

	if len(ok.Messages) > 0 {
		return chatflow.Delivery{MessageID: ok.Messages[0].ID}, nil
	}
	return chatflow.Delivery{}, nil
}
