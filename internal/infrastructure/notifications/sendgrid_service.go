package notifications

import (
	"fmt"
	"log"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/healthsync/healthsync/domain"
)

// SendGridServiceImpl implements domain.NotificationService
type SendGridServiceImpl struct {
	apiKey    string
	fromName  string
	fromEmail string
}

// NewSendGridService creates a new SendGrid notification service
func NewSendGridService(apiKey, fromName, fromEmail string) domain.NotificationService {
	return &SendGridServiceImpl{
		apiKey:    apiKey,
		fromName:  fromName,
		fromEmail: fromEmail,
	}
}

// SendEmail implements domain.NotificationService
func (s *SendGridServiceImpl) SendEmail(to, subject, body string) error {
	// If credentials are not configured, log instead of sending
	if s.apiKey == "" {
		log.Printf("[MOCK EMAIL] To: %s, Subject: %s, Body: %s", to, subject, body)
		return nil
	}

	from := mail.NewEmail(s.fromName, s.fromEmail)
	recipient := mail.NewEmail("", to)
	message := mail.NewSingleEmail(from, subject, recipient, body, "")

	client := sendgrid.NewSendClient(s.apiKey)
	response, err := client.Send(message)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	if response.StatusCode >= 400 {
		return fmt.Errorf("failed to send email, status code: %d", response.StatusCode)
	}
	return nil
}
