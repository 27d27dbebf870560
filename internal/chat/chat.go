// Package chat posts messages to a Slack channel and to slash-command response URLs.
package chat

import (
	"context"
	"fmt"
	"net/http"

	"github.com/slack-go/slack"
)

// Client wraps the Slack Web API for channel notifications.
type Client struct {
	api *slack.Client
}

func NewClient(token string, options ...slack.Option) *Client {
	return &Client{api: slack.New(token, options...)}
}

// PostMessage posts text to channel.
func (c *Client) PostMessage(ctx context.Context, channel, text string) error {
	if _, _, err := c.api.PostMessageContext(ctx, channel, slack.MsgOptionText(text, false)); err != nil {
		return fmt.Errorf("failed to post to %s: %w", channel, err)
	}
	return nil
}

// Responder answers slash commands through their response_url.
type Responder struct {
	httpClient *http.Client
}

func NewResponder(httpClient *http.Client) *Responder {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Responder{httpClient: httpClient}
}

// Respond posts msg to the response URL Slack supplied with the command.
func (r *Responder) Respond(ctx context.Context, responseURL string, msg *slack.WebhookMessage) error {
	if responseURL == "" {
		return fmt.Errorf("no response url")
	}
	if err := slack.PostWebhookCustomHTTPContext(ctx, responseURL, r.httpClient, msg); err != nil {
		return fmt.Errorf("failed to respond: %w", err)
	}
	return nil
}
