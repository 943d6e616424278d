package services

import (
	"context"
	"log/slog"
	"strings"

	"github.com/texperia/registration/models"
	"github.com/texperia/registration/repositories"
	"github.com/texperia/registration/utils"
	"github.com/texperia/registration/validation"
)

type ContactService interface {
	Submit(ctx context.Context, input ContactInput) (*models.Contact, error)
	List(ctx context.Context, unreadOnly bool) ([]models.Contact, error)
	MarkRead(ctx context.Context, id int) error
}

type ContactInput struct {
	Name    string `json:"name" validate:"required,min=2,max=100"`
	Email   string `json:"email" validate:"required,email"`
	Message string `json:"message" validate:"required,min=10,max=1000"`
}

type contactService struct {
	contactRepo repositories.ContactRepository
	notifier    Notifier
	validator   *validation.Validator
	logger      *slog.Logger
}

func NewContactService(contactRepo repositories.ContactRepository, notifier Notifier, validator *validation.Validator, logger *slog.Logger) ContactService {
	return &contactService{
		contactRepo: contactRepo,
		notifier:    notifier,
		validator:   validator,
		logger:      logger,
	}
}

func (s *contactService) Submit(ctx context.Context, input ContactInput) (*models.Contact, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Email = utils.NormalizeEmail(input.Email)
	input.Message = strings.TrimSpace(input.Message)
	if err := validateInput(s.validator, input); err != nil {
		return nil, err
	}

	contact := &models.Contact{
		Name:    input.Name,
		Email:   input.Email,
		Message: input.Message,
	}
	if err := s.contactRepo.Create(ctx, contact); err != nil {
		return nil, err
	}

	// Письмо администратору уходит асинхронно.
	s.notifier.ContactReceived(ctx, *contact)
	s.logger.InfoContext(ctx, "Contact message received", slog.Int("contact_id", contact.ID))
	return contact, nil
}

func (s *contactService) List(ctx context.Context, unreadOnly bool) ([]models.Contact, error) {
	return s.contactRepo.List(ctx, unreadOnly)
}

func (s *contactService) MarkRead(ctx context.Context, id int) error {
	return mapRepositoryError(s.contactRepo.MarkRead(ctx, id))
}
