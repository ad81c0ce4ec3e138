package email

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"github.com/knowtix/billing-service/internal/domain"
	"github.com/knowtix/billing-service/internal/models"
	"gopkg.in/gomail.v2"
)

// SMTPConfig configures the outbound mail server.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	// ContactEmail receives contact-form notifications.
	ContactEmail string
}

// Sender delivers contact-form notifications.
type Sender interface {
	SendContactNotification(ctx context.Context, msg models.ContactMessage) error
}

var contactTemplate = template.Must(template.New("contact").Parse(`<html>
<body>
	<h2>New Contact Form Submission</h2>
	<p><strong>Name:</strong> {{.FullName}}</p>
	<p><strong>Email:</strong> {{.Email}}</p>
	<p><strong>Phone:</strong> {{.Phone}}</p>
	<p><strong>Message:</strong></p>
	<p>{{.Message}}</p>
</body>
</html>`))

// SMTPEmailService sends mail with gomail.
type SMTPEmailService struct {
	config SMTPConfig
	dialer *gomail.Dialer
	// sender replaces the dialer when set.
	sender gomail.Sender
}

// NewSMTPEmailService dials the SMTP server once per message.
func NewSMTPEmailService(config SMTPConfig) *SMTPEmailService {
	return &SMTPEmailService{
		config: config,
		dialer: gomail.NewDialer(config.Host, config.Port, config.Username, config.Password),
	}
}

// NewEmailServiceWithSender is used by tests to capture messages.
func NewEmailServiceWithSender(config SMTPConfig, sender gomail.Sender) *SMTPEmailService {
	return &SMTPEmailService{config: config, sender: sender}
}

func (s *SMTPEmailService) SendContactNotification(ctx context.Context, msg models.ContactMessage) error {
	if s.config.Host == "" || s.config.ContactEmail == "" {
		return fmt.Errorf("email: EMAIL_SERVER_HOST/CONTACT_EMAIL: %w", domain.ErrNotConfigured)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	var html bytes.Buffer
	if err := contactTemplate.Execute(&html, msg); err != nil {
		return fmt.Errorf("email: render contact template: %w", err)
	}
	plain := fmt.Sprintf("New Contact Form Submission\n\nName: %s\nEmail: %s\nPhone: %s\n\n%s\n",
		msg.FullName, msg.Email, msg.Phone, msg.Message)

	return s.send(s.config.ContactEmail, msg.Email, ContactSubject(msg.FullName), html.String(), plain)
}

// ContactSubject is the subject line of a contact notification.
func ContactSubject(fullName string) string {
	return "New Contact Form Submission from " + fullName
}

func (s *SMTPEmailService) send(to, replyTo, subject, htmlBody, plainBody string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.config.From)
	m.SetHeader("To", to)
	if replyTo != "" {
		m.SetHeader("Reply-To", replyTo)
	}
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", plainBody)
	m.AddAlternative("text/html", htmlBody)

	var err error
	if s.sender != nil {
		err = gomail.Send(s.sender, m)
	} else {
		err = s.dialer.DialAndSend(m)
	}
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}
