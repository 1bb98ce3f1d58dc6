package notify

import (
	"context"

	"go.uber.org/multierr"
)

// Notifier delivers a titled message to a fixed audience.
type Notifier interface {
	Send(ctx context.Context, title, text string) error
}

// Mailer delivers a message to an explicit list of recipients.
type Mailer interface {
	Mail(ctx context.Context, to []string, subject, body string) error
}

type Multi []Notifier

// Send fans out to every notifier and returns all failures combined.
func (m Multi) Send(ctx context.Context, title, text string) error {
	var err error
	for _, n := range m {
		if n == nil {
			continue
		}
		err = multierr.Append(err, n.Send(ctx, title, text))
	}
	return err
}

// Recipients turns a Mailer into a Notifier with a fixed audience.
type Recipients struct {
	Mailer Mailer
	To     []string
}

func (r Recipients) Send(ctx context.Context, title, text string) error {
	if r.Mailer == nil || len(r.To) == 0 {
		return nil
	}
	return r.Mailer.Mail(ctx, r.To, title, text)
}

// Discard is used when no mail server is configured.
type Discard struct{}

func (Discard) Send(context.Context, string, string) error           { return nil }
func (Discard) Mail(context.Context, []string, string, string) error { return nil }
