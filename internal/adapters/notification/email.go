package notification

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/resend/resend-go/v2"
)

// EmailClient sends transactional email through Resend.
type EmailClient struct {
	client *resend.Client
	from   string
	logger *slog.Logger
}

// NewEmailClient creates a Resend-backed email sender.
func NewEmailClient(apiKey, from string, logger *slog.Logger) *EmailClient {
	if logger == nil {
		logger = slog.Default()
	}
	return &EmailClient{client: resend.NewClient(apiKey), from: from, logger: logger}
}

func (c *EmailClient) SendEmail(ctx context.Context, to, subject, html string) error {
	params := &resend.SendEmailRequest{
		From:    c.from,
		To:      []string{to},
		Subject: subject,
		Html:    html,
	}
	sent, err := c.client.Emails.SendWithContext(ctx, params)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	c.logger.Debug("Email sent", slog.String("email_id", sent.Id), slog.String("subject", subject))
	return nil
}
