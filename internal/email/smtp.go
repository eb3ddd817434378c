package email

import (
	"context"
	"fmt"
	"net"
	"time"

	"serrupro_backend/platform/config"

	gomail "github.com/wneessen/go-mail"
)

// SMTPSender implements the Sender interface using a direct SMTP connection
// via go-mail.
type SMTPSender struct {
	host      string
	port      int
	username  string
	password  string
	fromName  string
	fromEmail string
}

// NewSMTPSender creates an SMTPSender from the email configuration.
func NewSMTPSender(cfg config.EmailConfig) *SMTPSender {
	return &SMTPSender{
		host:      cfg.GetSMTPHost(),
		port:      cfg.GetSMTPPort(),
		username:  cfg.GetSMTPUsername(),
		password:  cfg.GetSMTPPassword(),
		fromName:  cfg.GetEmailFromName(),
		fromEmail: cfg.GetEmailFromAddress(),
	}
}

func (s *SMTPSender) send(ctx context.Context, toEmail, subject, htmlContent string) error {
	msg := gomail.NewMsg()
	if err := msg.FromFormat(s.fromName, s.fromEmail); err != nil {
		return fmt.Errorf("smtp from: %w", err)
	}
	if err := msg.To(toEmail); err != nil {
		return fmt.Errorf("smtp to: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextHTML, htmlContent)

	client, err := gomail.NewClient(s.host,
		gomail.WithPort(s.port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(s.username),
		gomail.WithPassword(s.password),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
		gomail.WithTimeout(15*time.Second),
		gomail.WithDialContextFunc(func(dctx context.Context, _ string, addr string) (net.Conn, error) {
			return (&net.Dialer{}).DialContext(dctx, "tcp4", addr)
		}),
	)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}

	return nil
}

func (s *SMTPSender) SendRequestReceivedEmail(ctx context.Context, toEmail, trackingCode, trackingURL string) error {
	subject := fmt.Sprintf(subjectRequestReceivedFmt, trackingCode)
	content, err := renderEmailTemplate("request_received.html", requestReceivedEmailData{
		baseEmailData: baseEmailData{
			Title:    "Demande enregistrée",
			Heading:  "Demande enregistrée",
			CTALabel: "Suivre ma demande",
			CTAURL:   trackingURL,
		},
		TrackingCode: trackingCode,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, subject, content)
}

func (s *SMTPSender) SendStatusUpdateEmail(ctx context.Context, toEmail, trackingCode, statusLabel, trackingURL string) error {
	subject := fmt.Sprintf(subjectStatusUpdateFmt, trackingCode)
	content, err := renderEmailTemplate("status_update.html", statusUpdateEmailData{
		baseEmailData: baseEmailData{
			Title:    "Mise à jour de votre demande",
			Heading:  "Mise à jour de votre demande",
			CTALabel: "Suivre ma demande",
			CTAURL:   trackingURL,
		},
		TrackingCode: trackingCode,
		StatusLabel:  statusLabel,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, subject, content)
}

func (s *SMTPSender) SendSearchDelayedEmail(ctx context.Context, toEmail, trackingCode, trackingURL string) error {
	subject := fmt.Sprintf(subjectSearchDelayedFmt, trackingCode)
	content, err := renderEmailTemplate("search_delayed.html", searchDelayedEmailData{
		baseEmailData: baseEmailData{
			Title:    "Recherche en cours",
			Heading:  "Recherche en cours",
			CTALabel: "Suivre ma demande",
			CTAURL:   trackingURL,
		},
		TrackingCode: trackingCode,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, subject, content)
}

var _ Sender = (*SMTPSender)(nil)
