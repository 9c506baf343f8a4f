package service

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/bdms/donor-directory/internal/core/domain"
	"github.com/bdms/donor-directory/internal/core/ports"
)

// ContactService implements the contact-message log.
type ContactService struct {
	repo ports.ContactRepository
	log  zerolog.Logger
}

func NewContactService(repo ports.ContactRepository, log zerolog.Logger) *ContactService {
	return &ContactService{repo: repo, log: log}
}

// Add stores a new contact-form message.
func (s *ContactService) Add(ctx context.Context, name, email, message string) (*domain.ContactMessage, error) {
	var fields []string
	if name == "" {
		fields = append(fields, "name")
	}
	if email == "" {
		fields = append(fields, "email")
	}
	if message == "" {
		fields = append(fields, "message")
	}
	if len(fields) > 0 {
		return nil, domain.NewValidationError("required", fields...)
	}

	saved, err := s.repo.Insert(ctx, &domain.ContactMessage{Name: name, Email: email, Message: message})
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("message_id", saved.ID).Msg("contact message received")
	return saved, nil
}

// List returns all messages, newest first.
func (s *ContactService) List(ctx context.Context) ([]*domain.ContactMessage, error) {
	return s.repo.List(ctx)
}

// Delete removes a message from the log.
func (s *ContactService) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}
