package ports

import (
	"context"
	"time"
)

// CoordinatesInput holds geographic coordinates in decimal degrees.
type CoordinatesInput struct {
	Lat float64
	Lng float64
}

// RegisterDonorInput carries all data needed to register a new donor.
type RegisterDonorInput struct {
	FullName         string
	Handle           string
	Email            string
	Secret           string
	BloodGroup       string
	Phone            string
	City             string
	District         string
	LastDonationDate *time.Time
	Location         *CoordinatesInput
}

// UpdateDonorInput carries a partial profile update; nil fields are untouched.
// Handle is present only so that attempts to change it can be rejected
// explicitly rather than silently ignored.
type UpdateDonorInput struct {
	Handle           *string
	FullName         *string
	Email            *string
	BloodGroup       *string
	Phone            *string
	City             *string
	District         *string
	LastDonationDate *time.Time
	Location         *CoordinatesInput
}

// DonorView is the public representation of a donor record. It never
// carries the credential hash.
type DonorView struct {
	ID               string
	FullName         string
	Handle           string
	Email            string
	BloodGroup       string
	Phone            string
	City             string
	District         string
	LastDonationDate *time.Time
	Location         *CoordinatesInput
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// SearchInput is the donor search query. All fields are optional.
type SearchInput struct {
	BloodGroup string
	City       string
	District   string
	Caller     *CoordinatesInput
}

// SearchMatch pairs a donor view with its distance from the caller, in
// kilometres. DistanceKm is nil when either side has no location.
type SearchMatch struct {
	Donor      DonorView
	DistanceKm *float64
}

// DonorService defines the directory façade consumed by transports.
type DonorService interface {
	Register(ctx context.Context, input RegisterDonorInput) (*DonorView, error)
	// Authenticate returns the donor's public view and a signed session
	// token. Unknown handle and wrong secret are indistinguishable to the
	// caller.
	Authenticate(ctx context.Context, handle, secret string) (*DonorView, string, error)
	Profile(ctx context.Context, id string) (*DonorView, error)
	// Search filters donors and, when a caller location is given, orders
	// results by ascending distance with locationless donors last.
	Search(ctx context.Context, input SearchInput) ([]SearchMatch, error)
	List(ctx context.Context) ([]DonorView, error)
	Update(ctx context.Context, id string, input UpdateDonorInput) (*DonorView, error)
	Delete(ctx context.Context, id string) error
}
