package utils

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/keighl/postmark"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"go-storefront/config"
	"go-storefront/models"
)

// Message is a single outbound email.
type Message struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

// Mailer delivers email through some provider.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// NewMailer picks the provider named in the configuration.
func NewMailer(cfg config.EmailConfig, logger *slog.Logger) (Mailer, error) {
	switch cfg.Provider {
	case "postmark":
		return NewPostmarkMailer(cfg.PostmarkToken, cfg.Sender), nil
	case "sendgrid":
		return NewSendgridMailer(cfg.SendgridKey, cfg.Sender), nil
	case "log", "":
		return &LogMailer{logger: logger}, nil
	}
	return nil, fmt.Errorf("unknown email provider %q", cfg.Provider)
}

// PostmarkMailer handles sending emails using Postmark
type PostmarkMailer struct {
	client *postmark.Client
	from   string
}

func NewPostmarkMailer(serverToken, from string) *PostmarkMailer {
	return &PostmarkMailer{client: postmark.NewClient(serverToken, ""), from: from}
}

// Send ignores ctx; the postmark client has no context support.
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

type SendgridMailer struct {
	client *sendgrid.Client
	from   *mail.Email
}

func NewSendgridMailer(apiKey, from string) *SendgridMailer {
	return &SendgridMailer{client: sendgrid.NewSendClient(apiKey), from: mail.NewEmail("", from)}
}

func (m *SendgridMailer) Send(ctx context.Context, msg Message) error {
	message := mail.NewSingleEmail(m.from, msg.Subject, mail.NewEmail("", msg.To), msg.Text, msg.HTML)
	resp, err := m.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("failed to send email: sendgrid status %d", resp.StatusCode)
	}
	return nil
}

// LogMailer writes messages to the log instead of delivering them.
type LogMailer struct {
	logger *slog.Logger
}

func (m *LogMailer) Send(_ context.Context, msg Message) error {
	m.logger.Info("email not delivered (log provider)", "to", msg.To, "subject", msg.Subject)
	return nil
}

// PasswordResetMessage builds the reset-link email.
func PasswordResetMessage(to, clientURL, token string) Message {
	link := fmt.Sprintf("%s/reset-password/%s", strings.TrimRight(clientURL, "/"), token)
	return Message{
		To:      to,
		Subject: "Password Reset Request",
		HTML: fmt.Sprintf(
			"<h2>Password Reset Request</h2><p>Click the link below to reset your password. This link expires in 15 minutes.</p><a href=\"%s\">Reset Password</a><p>If you didn't request this, please ignore this email.</p>",
			link,
		),
		Text: fmt.Sprintf("Reset your password: %s\nIf you didn't request this, please ignore this email.", link),
	}
}

// OrderConfirmationMessage builds the email sent when an order is placed.
func OrderConfirmationMessage(to, name string, order *models.Order) Message {
	text := fmt.Sprintf(
		"Dear %s,\n\nThank you for your purchase! Your order %s has been placed successfully.\n\nTotal Amount: %s\nPayment Method: %s\n\nThank you for shopping with us!\n",
		name, order.OrderNumber, order.TotalAmount.StringFixed(2), order.PaymentMethod,
	)
	return Message{
		To:      to,
		Subject: "Order Confirmation",
		HTML:    strings.ReplaceAll(text, "\n", "<br>"),
		Text:    text,
	}
}

// OrderStatusMessage builds the email sent after an admin status change.
func OrderStatusMessage(to, name string, order *models.Order) Message {
	text := fmt.Sprintf(
		"Dear %s,\n\nYour order %s is now '%s' with payment status '%s'.\n\nThank you for shopping with us!\n",
		name, order.OrderNumber, order.OrderStatus, order.PaymentStatus,
	)
	return Message{
		To:      to,
		Subject: "Order Status Updated",
		HTML:    strings.ReplaceAll(text, "\n", "<br>"),
		Text:    text,
	}
}
