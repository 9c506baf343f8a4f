package service

import (
	"context"
	"errors"
	"math"

	"github.com/rs/zerolog"

	"github.com/bdms/donor-directory/internal/core/domain"
	"github.com/bdms/donor-directory/internal/core/geo"
	"github.com/bdms/donor-directory/internal/core/ports"
)

// LoginLimiter abstracts the brute-force throttle (Redis).
type LoginLimiter interface {
	// Allow reports whether another login attempt for handle is permitted.
	Allow(ctx context.Context, handle string) (bool, error)
}

// DonorService implements the directory façade: registration, login,
// proximity search, and profile management.
type DonorService struct {
	repo    ports.DonorRepository
	tokens  *TokenIssuer
	limiter LoginLimiter
	log     zerolog.Logger
}

// NewDonorService wires the façade. limiter may be nil, in which case
// login attempts are not throttled.
func NewDonorService(repo ports.DonorRepository, tokens *TokenIssuer, limiter LoginLimiter, log zerolog.Logger) *DonorService {
	return &DonorService{repo: repo, tokens: tokens, limiter: limiter, log: log}
}

// Register hashes the secret, persists a new donor record under the
// uniqueness guarantee, and returns its public view.
func (s *DonorService) Register(ctx context.Context, input ports.RegisterDonorInput) (*ports.DonorView, error) {
	if fields := missingFields(input); len(fields) > 0 {
		return nil, domain.NewValidationError("required", fields...)
	}
	if !domain.BloodGroup(input.BloodGroup).Valid() {
		return nil, domain.NewValidationError("unknown blood group", "blood_group")
	}

	hash, err := HashSecret(input.Secret)
	if err != nil {
		return nil, err
	}

	donor := &domain.Donor{
		FullName:         input.FullName,
		Handle:           input.Handle,
		Email:            input.Email,
		CredentialHash:   hash,
		BloodGroup:       domain.BloodGroup(input.BloodGroup),
		Phone:            input.Phone,
		City:             input.City,
		District:         input.District,
		LastDonationDate: input.LastDonationDate,
		Location:         toCoordinates(input.Location),
	}

	created, err := s.repo.Create(ctx, donor)
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("donor_id", created.ID).Str("handle", created.Handle).Msg("donor registered")
	view := toView(created)
	return &view, nil
}

// Authenticate verifies the handle/secret pair and mints a session token.
// Unknown handle and wrong secret both surface as ErrInvalidCredentials so
// callers cannot probe which handles exist.
func (s *DonorService) Authenticate(ctx context.Context, handle, secret string) (*ports.DonorView, string, error) {
	if handle == "" || secret == "" {
		return nil, "", domain.NewValidationError("required", "handle", "secret")
	}

	if s.limiter != nil {
		ok, err := s.limiter.Allow(ctx, handle)
		if err != nil {
			// The throttle is advisory: a limiter outage must not lock
			// everyone out.
			s.log.Warn().Err(err).Msg("login limiter unavailable")
		} else if !ok {
			return nil, "", domain.ErrTooManyAttempts
		}
	}

	donor, err := s.repo.FindByHandle(ctx, handle)
	if err != nil {
		if errors.Is(err, domain.ErrDonorNotFound) {
			return nil, "", domain.ErrInvalidCredentials
		}
		return nil, "", err
	}

	if !VerifySecret(secret, donor.CredentialHash) {
		return nil, "", domain.ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(donor.ID)
	if err != nil {
		return nil, "", err
	}

	s.log.Info().Str("donor_id", donor.ID).Msg("donor authenticated")
	view := toView(donor)
	return &view, token, nil
}

// Profile returns the public view of a single donor.
func (s *DonorService) Profile(ctx context.Context, id string) (*ports.DonorView, error) {
	donor, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	view := toView(donor)
	return &view, nil
}

// Search filters donors by blood group / city / district, then ranks by
// proximity when a caller location is supplied.
func (s *DonorService) Search(ctx context.Context, input ports.SearchInput) ([]ports.SearchMatch, error) {
	if input.BloodGroup != "" && !domain.BloodGroup(input.BloodGroup).Valid() {
		return nil, domain.NewValidationError("unknown blood group", "blood_group")
	}

	donors, err := s.repo.Search(ctx, ports.DonorFilter{
		BloodGroup: input.BloodGroup,
		City:       input.City,
		District:   input.District,
	})
	if err != nil {
		return nil, err
	}

	ranked := geo.Rank(donors, toCoordinates(input.Caller))
	matches := make([]ports.SearchMatch, 0, len(ranked))
	for _, m := range ranked {
		match := ports.SearchMatch{Donor: toView(m.Donor)}
		if m.DistanceKm != nil {
			d := roundKm(*m.DistanceKm)
			match.DistanceKm = &d
		}
		matches = append(matches, match)
	}
	return matches, nil
}

// List returns all donors, newest first.
func (s *DonorService) List(ctx context.Context) ([]ports.DonorView, error) {
	donors, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	views := make([]ports.DonorView, 0, len(donors))
	for _, d := range donors {
		views = append(views, toView(d))
	}
	return views, nil
}

// Update applies a partial profile update. The handle is immutable; email
// changes are re-validated against the uniqueness constraint within the
// same write.
func (s *DonorService) Update(ctx context.Context, id string, input ports.UpdateDonorInput) (*ports.DonorView, error) {
	if input.BloodGroup != nil && !domain.BloodGroup(*input.BloodGroup).Valid() {
		return nil, domain.NewValidationError("unknown blood group", "blood_group")
	}
	if input.Handle != nil {
		current, err := s.repo.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if *input.Handle != current.Handle {
			return nil, domain.NewValidationError("handle is immutable", "handle")
		}
	}

	updated, err := s.repo.Update(ctx, id, ports.DonorUpdate{
		FullName:         input.FullName,
		Email:            input.Email,
		BloodGroup:       input.BloodGroup,
		Phone:            input.Phone,
		City:             input.City,
		District:         input.District,
		LastDonationDate: input.LastDonationDate,
		Location:         toCoordinates(input.Location),
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("donor_id", id).Msg("donor updated")
	view := toView(updated)
	return &view, nil
}

// Delete removes a donor record. Deleting an unknown id reports not found.
func (s *DonorService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info().Str("donor_id", id).Msg("donor deleted")
	return nil
}

func missingFields(input ports.RegisterDonorInput) []string {
	var fields []string
	for _, f := range []struct {
		name, value string
	}{
		{"full_name", input.FullName},
		{"handle", input.Handle},
		{"email", input.Email},
		{"secret", input.Secret},
		{"blood_group", input.BloodGroup},
		{"phone", input.Phone},
		{"city", input.City},
		{"district", input.District},
	} {
		if f.value == "" {
			fields = append(fields, f.name)
		}
	}
	return fields
}

func toCoordinates(in *ports.CoordinatesInput) *domain.Coordinates {
	if in == nil {
		return nil
	}
	return &domain.Coordinates{Lat: in.Lat, Lng: in.Lng}
}

func toView(d *domain.Donor) ports.DonorView {
	view := ports.DonorView{
		ID:               d.ID,
		FullName:         d.FullName,
		Handle:           d.Handle,
		Email:            d.Email,
		BloodGroup:       string(d.BloodGroup),
		Phone:            d.Phone,
		City:             d.City,
		District:         d.District,
		LastDonationDate: d.LastDonationDate,
		CreatedAt:        d.CreatedAt,
		UpdatedAt:        d.UpdatedAt,
	}
	if d.Location != nil {
		view.Location = &ports.CoordinatesInput{Lat: d.Location.Lat, Lng: d.Location.Lng}
	}
	return view
}

// roundKm rounds a distance to two decimals for presentation.
func roundKm(km float64) float64 {
	return math.Round(km*100) / 100
}
