package service

import (
	"context"
	"html"
	"strings"

	"github.com/knowtix/billing-service/internal/email"
	"github.com/knowtix/billing-service/internal/models"
	"github.com/knowtix/billing-service/internal/repository"
	"github.com/knowtix/billing-service/pkg/logger"
	"github.com/microcosm-cc/bluemonday"
)

// ContactRequest is the body of POST /api/contact.
type ContactRequest struct {
	FullName string `json:"fullName" validate:"required"`
	Email    string `json:"email" validate:"required"`
	Phone    string `json:"phone" validate:"required"`
	Message  string `json:"message" validate:"required"`
}

// ContactService stores contact-form submissions and notifies the team.
type ContactService interface {
	Submit(ctx context.Context, req ContactRequest) (*models.ContactMessage, error)
}

type contactService struct {
	contacts repository.ContactRepository
	mailer   email.Sender
	policy   *bluemonday.Policy
	log      *logger.Logger
}

func NewContactService(contacts repository.ContactRepository, mailer email.Sender, log *logger.Logger) ContactService {
	return &contactService{
		contacts: contacts,
		mailer:   mailer,
		policy:   bluemonday.StrictPolicy(),
		log:      log,
	}
}

// Submit persists the message and then emails it. A failed email is logged
// and does not fail the submission.
func (s *contactService) Submit(ctx context.Context, req ContactRequest) (*models.ContactMessage, error) {
	msg := &models.ContactMessage{
		FullName: s.clean(req.FullName),
		Email:    strings.TrimSpace(req.Email),
		Phone:    s.clean(req.Phone),
		Message:  s.clean(req.Message),
	}

	if err := s.contacts.Create(ctx, msg); err != nil {
		return nil, err
	}

	if s.mailer != nil {
		if err := s.mailer.SendContactNotification(ctx, *msg); err != nil {
			s.log.Errorw("Failed to send contact notification", "contactID", msg.ID, "error", err)
		}
	}
	return msg, nil
}

// clean strips markup and keeps the plain text. Escaping happens when the
// email template is rendered.
func (s *contactService) clean(v string) string {
	return strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(v)))
}
