package ports

import (
	"context"

	"github.com/bdms/donor-directory/internal/core/domain"
)

// ContactRepository defines persistence for contact-form messages.
type ContactRepository interface {
	Insert(ctx context.Context, m *domain.ContactMessage) (*domain.ContactMessage, error)
	// List returns all messages, newest first.
	List(ctx context.Context) ([]*domain.ContactMessage, error)
	Delete(ctx context.Context, id string) error
}

// ContactService defines the contact-message log operations.
type ContactService interface {
	Add(ctx context.Context, name, email, message string) (*domain.ContactMessage, error)
	List(ctx context.Context) ([]*domain.ContactMessage, error)
	Delete(ctx context.Context, id string) error
}
