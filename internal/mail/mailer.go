// Package mail delivers transactional email over SMTP.
package mail

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	gomail "github.com/wneessen/go-mail"

	"github.com/videocave/backend/internal/apperr"
	"github.com/videocave/backend/internal/config"
	"github.com/videocave/backend/internal/logging"
)

// Message is a single outgoing email.
type Message struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

type sender interface {
	DialAndSendWithContext(ctx context.Context, messages ...*gomail.Msg) error
}

// SMTPMailer sends messages through an SMTP relay. Delivery is awaited; a
// failed send is reported to the caller as apperr.ErrDispatch.
type SMTPMailer struct {
	from   string
	client sender
}

// NewSMTPMailer builds a mailer from cfg.
func NewSMTPMailer(cfg config.SMTPConfig) (*SMTPMailer, error) {
	if strings.TrimSpace(cfg.Host) == "" {
		return nil, errors.New("smtp mailer: host is required")
	}
	if strings.TrimSpace(cfg.From) == "" {
		return nil, errors.New("smtp mailer: from address is required")
	}

	opts := []gomail.Option{
		gomail.WithPort(cfg.Port),
		gomail.WithTimeout(15 * time.Second),
		gomail.WithTLSPolicy(gomail.TLSOpportunistic),
	}
	if cfg.Username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(cfg.Username),
			gomail.WithPassword(cfg.Password),
		)
	}

	client, err := gomail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("smtp mailer: %w", err)
	}
	return &SMTPMailer{from: cfg.From, client: client}, nil
}

// Send delivers msg and waits for the relay to accept it.
func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	ctx, span := logging.StartSpan(ctx, "mail.Send")
	defer span.End()

	out, err := m.build(msg)
	if err != nil {
		return err
	}

	if err := m.client.DialAndSendWithContext(ctx, out); err != nil {
		logging.FromContext(ctx).Error("mail delivery failed", "subject", msg.Subject, "error", err)
		return apperr.Wrap(apperr.ErrDispatch, "failed to send email", err)
	}
	return nil
}

func (m *SMTPMailer) build(msg Message) (*gomail.Msg, error) {
	if strings.TrimSpace(msg.To) == "" {
		return nil, apperr.New(apperr.ErrInvalidArgument, "email recipient is required")
	}

	out := gomail.NewMsg()
	if err := out.From(m.from); err != nil {
		return nil, fmt.Errorf("set sender: %w", err)
	}
	if err := out.To(msg.To); err != nil {
		return nil, apperr.Wrap(apperr.ErrInvalidArgument, "invalid email recipient", err)
	}
	out.Subject(msg.Subject)
	if msg.Text != "" {
		out.SetBodyString(gomail.TypeTextPlain, msg.Text)
		if msg.HTML != "" {
			out.AddAlternativeString(gomail.TypeTextHTML, msg.HTML)
		}
	} else {
		out.SetBodyString(gomail.TypeTextHTML, msg.HTML)
	}
	return out, nil
}
