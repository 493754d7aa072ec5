// utils/email.go
package utils

import (
	"context"
	"errors"
	"fmt"

	"go-storefront/logger"

	"github.com/keighl/postmark"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// Message is one outgoing email
type Message struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

// Mailer delivers email
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// PostmarkMailer sends email through Postmark
type PostmarkMailer struct {
	client *postmark.Client
	from   string
}

// NewPostmarkMailer initializes a Postmark-backed mailer
func NewPostmarkMailer(apiToken, from string) *PostmarkMailer {
	return &PostmarkMailer{client: postmark.NewClient(apiToken, ""), from: from}
}

func (m *PostmarkMailer) Send(_ context.Context, msg Message) error {
	_, err := m.client.SendEmail(postmark.Email{
		From:     m.from,
		To:       msg.To,
		Subject:  msg.Subject,
		HtmlBody: msg.HTML,
		TextBody: msg.Text,
	})
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

// SendGridMailer sends email through SendGrid
type SendGridMailer struct {
	client *sendgrid.Client
	from   string
}

// NewSendGridMailer initializes a SendGrid-backed mailer
func NewSendGridMailer(apiKey, from string) *SendGridMailer {
	return &SendGridMailer{client: sendgrid.NewSendClient(apiKey), from: from}
}

func (m *SendGridMailer) Send(ctx context.Context, msg Message) error {
	email := mail.NewSingleEmail(
		mail.NewEmail("", m.from),
		msg.Subject,
		mail.NewEmail("", msg.To),
		msg.Text,
		msg.HTML,
	)
	resp, err := m.client.SendWithContext(ctx, email)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("failed to send email: sendgrid status %d: %s", resp.StatusCode, resp.Body)
	}
	return nil
}

// LogMailer writes emails to the log instead of sending them; used in development
type LogMailer struct {
	log *logger.Logger
}

func NewLogMailer(log *logger.Logger) *LogMailer {
	return &LogMailer{log: log.WithComponent("mailer")}
}

func (m *LogMailer) Send(_ context.Context, msg Message) error {
	if msg.To == "" {
		return errors.New("email has no recipient")
	}
	m.log.Info("Email sent", "to", msg.To, "subject", msg.Subject, "bytes", len(msg.HTML))
	return nil
}

// NewMailer picks the mailer for provider
func NewMailer(provider, postmarkToken, sendgridKey, from string, log *logger.Logger) (Mailer, error) {
	switch provider {
	case "postmark":
		return NewPostmarkMailer(postmarkToken, from), nil
	case "sendgrid":
		return NewSendGridMailer(sendgridKey, from), nil
	case "", "log":
		return NewLogMailer(log), nil
	default:
		return nil, fmt.Errorf("unknown email provider %q", provider)
	}
}
