package command

import (
	"fmt"

	"github.com/slack-go/slack"
)

// HelpMessage is sent for `help` and for an empty command.
func HelpMessage() *slack.WebhookMessage {
	return &slack.WebhookMessage{
		Attachments: []slack.Attachment{
			{
				MarkdownIn: []string{"text"},
				Color:      "#4b36a6",
				Pretext:    "These are the available Google commands:",
				Text: " `/google suspend [email]` Suspend John Doe\n " +
					"`/google unsuspend [email]` Unsuspend John Doe\n " +
					"`/google offboard [email]` Offboard John Doe ",
			},
		},
	}
}

// AckMessage tells the invoker a push is on its way.
func AckMessage() *slack.WebhookMessage {
	return TextMessage("Please approve the duo push and your request will be processed")
}

func InsufficientPermissionsMessage(a Action) *slack.WebhookMessage {
	return TextMessage(fmt.Sprintf("Insufficient Permissions to execute %s", a))
}

func NoArgumentMessage() *slack.WebhookMessage {
	return TextMessage("No user argument provided")
}

func UserNotFoundMessage(target string) *slack.WebhookMessage {
	return TextMessage(fmt.Sprintf("%q user not found", target))
}

// TextMessage is a plain text callback payload.
func TextMessage(text string) *slack.WebhookMessage {
	return &slack.WebhookMessage{Text: text}
}
