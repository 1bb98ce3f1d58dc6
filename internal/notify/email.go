package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/wneessen/go-mail"
	"go.uber.org/multierr"
)

type EmailConfig struct {
	Server   string
	Port     int
	Username string
	Password string
	UseTLS   bool
	From     string
}

// Email sends plain-text mail through one SMTP server, one message per recipient.
type Email struct {
	cfg    EmailConfig
	client *mail.Client
}

// NewEmail returns nil when no server is configured.
func NewEmail(cfg EmailConfig) (*Email, error) {
	if cfg.Server == "" {
		return nil, nil
	}
	if cfg.From == "" {
		return nil, errors.New("email: sender address is required")
	}
	opts := []mail.Option{mail.WithPort(cfg.Port)}
	if cfg.UseTLS {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.NoTLS))
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}
	c, err := mail.NewClient(cfg.Server, opts...)
	if err != nil {
		return nil, fmt.Errorf("email client: %w", err)
	}
	return &Email{cfg: cfg, client: c}, nil
}

func (e *Email) Mail(ctx context.Context, to []string, subject, body string) error {
	if e == nil {
		return errors.New("email disabled")
	}
	var msgs []*mail.Msg
	var err error
	for _, rcpt := range to {
		m, buildErr := e.message(rcpt, subject, body)
		if buildErr != nil {
			err = multierr.Append(err, buildErr)
			continue
		}
		msgs = append(msgs, m)
	}
	if len(msgs) == 0 {
		return err
	}
	if sendErr := e.client.DialAndSendWithContext(ctx, msgs...); sendErr != nil {
		err = multierr.Append(err, fmt.Errorf("smtp send: %w", sendErr))
	}
	return err
}

func (e *Email) message(to, subject, body string) (*mail.Msg, error) {
	m := mail.NewMsg()
	if err := m.From(e.cfg.From); err != nil {
		return nil, fmt.Errorf("from %q: %w", e.cfg.From, err)
	}
	if err := m.To(to); err != nil {
		return nil, fmt.Errorf("to %q: %w", to, err)
	}
	m.Subject(subject)
	m.SetBodyString(mail.TypeTextPlain, body)
	return m, nil
}
