// Package notify implementa pairing.Notifier.
//
// Adapters:
//   - slack: conversations.open con todos los miembros + chat.postMessage
//   - smtp: un email a los miembros con email resuelto (go-mail)
//   - log: solo escribe el mensaje en el logger (dev)
//
// Todos los fallos envuelven pairing.ErrDelivery.
package notify

import (
	"context"
	"fmt"

	"github.com/dropDatabas3/hellopair/internal/domain/pairing"
	"github.com/dropDatabas3/hellopair/internal/observability/logger"
	"github.com/dropDatabas3/hellopair/internal/slack"
)

// Deps son las dependencias que puede necesitar un adapter.
type Deps struct {
	Slack *slack.Client
	SMTP  SMTPConfig
}

// New construye el Notifier del driver dado.
func New(driver string, deps Deps) (pairing.Notifier, error) {
	switch driver {
	case "slack":
		if deps.Slack == nil {
			return nil, fmt.Errorf("notify: slack driver requires a client")
		}
		return NewSlack(deps.Slack), nil
	case "smtp":
		if deps.SMTP.Host == "" || deps.SMTP.From == "" {
			return nil, fmt.Errorf("notify: smtp driver requires host and from")
		}
		return NewSMTP(deps.SMTP), nil
	case "", "log":
		return Log{}, nil
	default:
		return nil, fmt.Errorf("notify: unknown driver %q", driver)
	}
}

func deliveryErr(adapter string, err error) error {
	return fmt.Errorf("notify: %s: %w: %w", adapter, pairing.ErrDelivery, err)
}

// Log escribe el mensaje en el logger.
type Log struct{}

func (Log) Send(ctx context.Context, msg pairing.Message) error {
	if len(msg.Targets) == 0 {
		return fmt.Errorf("notify: log: %w: no targets", pairing.ErrDelivery)
	}
	logger.From(ctx).Info("notification",
		logger.Component("notify"),
		logger.TenantID(msg.Tenant),
		logger.Participants(msg.Targets),
		logger.String("subject", msg.Subject),
		logger.String("text", msg.Text),
	)
	return nil
}
