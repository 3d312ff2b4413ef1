package mail

import (
	"context"
	"time"

	"github.com/pkg/errors"
	gomail "github.com/wneessen/go-mail"
)

// SMTPConfig is satisfied by config.Config
type SMTPConfig interface {
	GetSmtpHost() string
	GetSmtpPort() int
	GetSmtpAccount() string
	GetSmtpPassword() string
	GetSmtpFrom() string
	GetSmtpTimeout() time.Duration
}

var _ Sender = (*SMTPSender)(nil)

// SMTPSender sends plain-text mail over an authenticated, TLS-protected SMTP submission port
type SMTPSender struct {
	client *gomail.Client
	from   string
}

func NewSMTPSender(cfg SMTPConfig) (*SMTPSender, error) {
	if cfg.GetSmtpFrom() == "" {
		return nil, errors.New("[NewSMTPSender] sender address is required")
	}
	client, err := gomail.NewClient(cfg.GetSmtpHost(),
		gomail.WithPort(cfg.GetSmtpPort()),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(cfg.GetSmtpAccount()),
		gomail.WithPassword(cfg.GetSmtpPassword()),
		gomail.WithTLSPortPolicy(gomail.TLSMandatory),
		gomail.WithTimeout(cfg.GetSmtpTimeout()),
	)
	if err != nil {
		return nil, errors.Wrap(err, "[NewSMTPSender] gomail.NewClient")
	}
	return &SMTPSender{client: client, from: cfg.GetSmtpFrom()}, nil
}

func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	m, err := buildMsg(s.from, msg)
	if err != nil {
		return err
	}
	if err := s.client.DialAndSendWithContext(ctx, m); err != nil {
		return errors.Wrap(err, "[SMTPSender.Send] DialAndSendWithContext")
	}
	return nil
}

func buildMsg(from string, msg Message) (*gomail.Msg, error) {
	m := gomail.NewMsg()
	if err := m.From(from); err != nil {
		return nil, errors.Wrap(err, "[buildMsg] From")
	}
	if err := m.To(msg.To); err != nil {
		return nil, errors.Wrap(err, "[buildMsg] To")
	}
	m.Subject(msg.Subject)
	m.SetBodyString(gomail.TypeTextPlain, msg.Body)
	return m, nil
}
