package notify

import (
	"context"
	"fmt"

	"github.com/dropDatabas3/hellopair/internal/domain/pairing"
	"github.com/dropDatabas3/hellopair/internal/slack"
)

// Slack abre un DM grupal con los miembros y publica el texto.
type Slack struct {
	client *slack.Client
}

func NewSlack(client *slack.Client) *Slack {
	return &Slack{client: client}
}

func (n *Slack) Send(ctx context.Context, msg pairing.Message) error {
	if len(msg.Targets) == 0 {
		return fmt.Errorf("notify: slack: %w: no targets", pairing.ErrDelivery)
	}
	users := make([]string, len(msg.Targets))
	for i, p := range msg.Targets {
		users[i] = string(p)
	}

	channel, err := n.client.OpenConversation(ctx, string(msg.Tenant), users)
	if err != nil {
		return deliveryErr("slack", err)
	}
	if err := n.client.PostMessage(ctx, string(msg.Tenant), channel, msg.Text); err != nil {
		return deliveryErr("slack", err)
	}
	return nil
}
