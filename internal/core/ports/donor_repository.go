package ports

import (
	"context"
	"time"

	"github.com/bdms/donor-directory/internal/core/domain"
)

// DonorFilter carries the optional search constraints.
// BloodGroup is an exact match; City and District are case-insensitive
// substring matches. Zero values impose no constraint.
type DonorFilter struct {
	BloodGroup string
	City       string
	District   string
}

// DonorUpdate carries a partial update; nil fields are left untouched.
// Handle is deliberately absent: it is immutable after creation.
type DonorUpdate struct {
	FullName         *string
	Email            *string
	BloodGroup       *string
	Phone            *string
	City             *string
	District         *string
	LastDonationDate *time.Time
	Location         *domain.Coordinates
}

// DonorRepository defines persistence operations for donor records.
// Implementations must enforce handle/email uniqueness atomically with the
// write itself (a unique constraint, not a separate pre-query), so that
// concurrent creates or updates can never leave duplicate keys behind.
type DonorRepository interface {
	Create(ctx context.Context, d *domain.Donor) (*domain.Donor, error)
	FindByID(ctx context.Context, id string) (*domain.Donor, error)
	FindByHandle(ctx context.Context, handle string) (*domain.Donor, error)
	Search(ctx context.Context, filter DonorFilter) ([]*domain.Donor, error)
	// List returns all donors ordered by creation time, newest first.
	List(ctx context.Context) ([]*domain.Donor, error)
	Update(ctx context.Context, id string, upd DonorUpdate) (*domain.Donor, error)
	Delete(ctx context.Context, id string) error
}
