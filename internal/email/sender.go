// Package email delivers transactional client mail over SMTP.
package email

import "context"

// Sender is the outbound mail port. The notification relay renders nothing
// itself; it picks the right method per event.
type Sender interface {
	SendRequestReceivedEmail(ctx context.Context, toEmail, trackingCode, trackingURL string) error
	SendStatusUpdateEmail(ctx context.Context, toEmail, trackingCode, statusLabel, trackingURL string) error
	SendSearchDelayedEmail(ctx context.Context, toEmail, trackingCode, trackingURL string) error
}

// NopSender drops all mail. Used when email delivery is disabled.
type NopSender struct{}

func (NopSender) SendRequestReceivedEmail(context.Context, string, string, string) error {
	return nil
}

func (NopSender) SendStatusUpdateEmail(context.Context, string, string, string, string) error {
	return nil
}

func (NopSender) SendSearchDelayedEmail(context.Context, string, string, string) error {
	return nil
}
