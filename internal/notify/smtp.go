package notify

import (
	"context"
	"crypto/tls"
	"fmt"

	mail "github.com/go-mail/mail"

	"github.com/dropDatabas3/hellopair/internal/domain/pairing"
	"github.com/dropDatabas3/hellopair/internal/observability/logger"
)

const defaultSubject = "You've been paired!"

// SMTPConfig parámetros del servidor SMTP.
type SMTPConfig struct {
	Host               string
	Port               int
	From               string
	User               string
	Pass               string
	TLSMode            string // "auto" | "starttls" | "ssl" | "none"
	InsecureSkipVerify bool
}

// SMTP envía un email a todos los miembros con email resuelto.
type SMTP struct {
	cfg SMTPConfig
	// send es reemplazable en tests.
	send func(*mail.Message) error
}

func NewSMTP(cfg SMTPConfig) *SMTP {
	if cfg.TLSMode == "" {
		cfg.TLSMode = "auto"
	}
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	s := &SMTP{cfg: cfg}
	s.send = s.dialAndSend
	return s
}

func (s *SMTP) Send(ctx context.Context, msg pairing.Message) error {
	var to []string
	for _, p := range msg.Targets {
		if id, ok := msg.Identities[p]; ok && id.Email != "" {
			to = append(to, id.Email)
		}
	}
	if len(to) == 0 {
		return fmt.Errorf("notify: smtp: %w: no member has an email", pairing.ErrDelivery)
	}
	if err := ctx.Err(); err != nil {
		return deliveryErr("smtp", err)
	}

	subject := msg.Subject
	if subject == "" {
		subject = defaultSubject
	}

	m := mail.NewMessage()
	m.SetHeader("From", s.cfg.From)
	m.SetHeader("To", to...)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", msg.Text)

	log := logger.From(ctx).With(
		logger.Component("notify"),
		logger.String("host", s.cfg.Host),
		logger.Int("port", s.cfg.Port),
		logger.TenantID(msg.Tenant),
	)
	log.Debug("sending email", logger.Count(len(to)), logger.String("tls_mode", s.cfg.TLSMode))

	if err := s.send(m); err != nil {
		log.Error("smtp send failed", logger.Err(err))
		return deliveryErr("smtp", err)
	}
	return nil
}

func (s *SMTP) dialAndSend(m *mail.Message) error {
	d := mail.NewDialer(s.cfg.Host, s.cfg.Port, s.cfg.User, s.cfg.Pass)
	d.TLSConfig = &tls.Config{
		ServerName:         s.cfg.Host,
		InsecureSkipVerify: s.cfg.InsecureSkipVerify, // solo dev
	}
	switch s.cfg.TLSMode {
	case "ssl":
		d.SSL = true
	case "none":
		d.TLSConfig = &tls.Config{InsecureSkipVerify: s.cfg.InsecureSkipVerify}
		d.StartTLSPolicy = mail.NoStartTLS
	default:
		// auto/starttls: go-mail negocia STARTTLS si el server lo ofrece
	}
	return d.DialAndSend(m)
}
