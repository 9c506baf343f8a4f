package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/bdms/donor-directory/internal/core/domain"
	"github.com/bdms/donor-directory/internal/core/ports"
)

// ---------------------------------------------------------------------------
// In-memory stub repository
// ---------------------------------------------------------------------------

type stubDonorRepo struct {
	mu    sync.Mutex
	seq   int
	order []string
	byID  map[string]*domain.Donor
}

func newStubDonorRepo() *stubDonorRepo {
	return &stubDonorRepo{byID: make(map[string]*domain.Donor)}
}

func cloneDonor(d *domain.Donor) *domain.Donor {
	if d == nil {
		return nil
	}
	clone := *d
	if d.Location != nil {
		loc := *d.Location
		clone.Location = &loc
	}
	return &clone
}

// Create mirrors the real Mongo repository: the uniqueness check and the
// insert happen under one lock, so concurrent duplicates cannot both win.
func (r *stubDonorRepo) Create(_ context.Context, d *domain.Donor) (*domain.Donor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.byID {
		if existing.Handle == d.Handle {
			return nil, domain.ErrDuplicateHandle
		}
		if existing.Email == d.Email {
			return nil, domain.ErrDuplicateEmail
		}
	}

	r.seq++
	clone := cloneDonor(d)
	clone.ID = fmt.Sprintf("donor_%d", r.seq)
	now := time.Now().UTC()
	clone.CreatedAt = now
	clone.UpdatedAt = now
	r.byID[clone.ID] = clone
	r.order = append(r.order, clone.ID)
	return cloneDonor(clone), nil
}

func (r *stubDonorRepo) FindByID(_ context.Context, id string) (*domain.Donor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrDonorNotFound
	}
	return cloneDonor(d), nil
}

func (r *stubDonorRepo) FindByHandle(_ context.Context, handle string) (*domain.Donor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range r.byID {
		if d.Handle == handle {
			return cloneDonor(d), nil
		}
	}
	return nil, domain.ErrDonorNotFound
}

func (r *stubDonorRepo) Search(_ context.Context, filter ports.DonorFilter) ([]*domain.Donor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Donor
	for _, id := range r.order {
		d, ok := r.byID[id]
		if !ok {
			continue
		}
		if filter.BloodGroup != "" && string(d.BloodGroup) != filter.BloodGroup {
			continue
		}
		if filter.City != "" && !strings.Contains(strings.ToLower(d.City), strings.ToLower(filter.City)) {
			continue
		}
		if filter.District != "" && !strings.Contains(strings.ToLower(d.District), strings.ToLower(filter.District)) {
			continue
		}
		out = append(out, cloneDonor(d))
	}
	return out, nil
}

func (r *stubDonorRepo) List(_ context.Context) ([]*domain.Donor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.Donor, 0, len(r.order))
	for i := len(r.order) - 1; i >= 0; i-- {
		if d, ok := r.byID[r.order[i]]; ok {
			out = append(out, cloneDonor(d))
		}
	}
	return out, nil
}

func (r *stubDonorRepo) Update(_ context.Context, id string, upd ports.DonorUpdate) (*domain.Donor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrDonorNotFound
	}
	if upd.Email != nil {
		for otherID, other := range r.byID {
			if otherID != id && other.Email == *upd.Email {
				return nil, domain.ErrDuplicateEmail
			}
		}
		d.Email = *upd.Email
	}
	if upd.FullName != nil {
		d.FullName = *upd.FullName
	}
	if upd.BloodGroup != nil {
		d.BloodGroup = domain.BloodGroup(*upd.BloodGroup)
	}
	if upd.Phone != nil {
		d.Phone = *upd.Phone
	}
	if upd.City != nil {
		d.City = *upd.City
	}
	if upd.District != nil {
		d.District = *upd.District
	}
	if upd.LastDonationDate != nil {
		d.LastDonationDate = upd.LastDonationDate
	}
	if upd.Location != nil {
		loc := *upd.Location
		d.Location = &loc
	}
	d.UpdatedAt = time.Now().UTC()
	return cloneDonor(d), nil
}

func (r *stubDonorRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[id]; !ok {
		return domain.ErrDonorNotFound
	}
	delete(r.byID, id)
	return nil
}

type stubLimiter struct {
	allow bool
	err   error
}

func (l *stubLimiter) Allow(context.Context, string) (bool, error) {
	return l.allow, l.err
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func newTestService(repo ports.DonorRepository, limiter LoginLimiter) *DonorService {
	return NewDonorService(repo, NewTokenIssuer("test-secret", time.Hour), limiter, zerolog.Nop())
}

func validInput(handle, email string) ports.RegisterDonorInput {
	return ports.RegisterDonorInput{
		FullName:   "Alice Example",
		Handle:     handle,
		Email:      email,
		Secret:     "p@ssw0rd1",
		BloodGroup: "O+",
		Phone:      "9876543210",
		City:       "Bengaluru",
		District:   "Bengaluru Urban",
		Location:   &ports.CoordinatesInput{Lat: 12.97, Lng: 77.59},
	}
}

// ---------------------------------------------------------------------------
// Register
// ---------------------------------------------------------------------------

func TestDonorService_Register_Success(t *testing.T) {
	repo := newStubDonorRepo()
	svc := newTestService(repo, nil)

	view, err := svc.Register(context.Background(), validInput("alice", "a@x.com"))
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if view.ID == "" {
		t.Fatal("expected an assigned id")
	}
	if view.Handle != "alice" || view.Email != "a@x.com" || view.BloodGroup != "O+" {
		t.Fatalf("unexpected view: %+v", view)
	}
	if view.Location == nil || view.Location.Lat != 12.97 {
		t.Fatalf("expected location preserved, got %+v", view.Location)
	}

	stored, err := repo.FindByID(context.Background(), view.ID)
	if err != nil {
		t.Fatalf("FindByID returned error: %v", err)
	}
	if stored.CredentialHash == "" || stored.CredentialHash == "p@ssw0rd1" {
		t.Fatal("secret must be stored as a hash")
	}
	if !VerifySecret("p@ssw0rd1", stored.CredentialHash) {
		t.Fatal("stored hash should verify against the original secret")
	}
}

func TestDonorService_Register_MissingFields(t *testing.T) {
	svc := newTestService(newStubDonorRepo(), nil)

	input := validInput("alice", "a@x.com")
	input.Phone = ""
	input.City = ""

	_, err := svc.Register(context.Background(), input)
	var ve *domain.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if len(ve.Fields) != 2 || ve.Fields[0] != "phone" || ve.Fields[1] != "city" {
		t.Fatalf("expected fields [phone city], got %v", ve.Fields)
	}
}

func TestDonorService_Register_InvalidBloodGroup(t *testing.T) {
	svc := newTestService(newStubDonorRepo(), nil)

	input := validInput("alice", "a@x.com")
	input.BloodGroup = "C+"

	_, err := svc.Register(context.Background(), input)
	var ve *domain.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestDonorService_Register_ShortSecret(t *testing.T) {
	svc := newTestService(newStubDonorRepo(), nil)

	input := validInput("alice", "a@x.com")
	input.Secret = "short"

	_, err := svc.Register(context.Background(), input)
	var ve *domain.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestDonorService_Register_DuplicateHandle(t *testing.T) {
	svc := newTestService(newStubDonorRepo(), nil)

	if _, err := svc.Register(context.Background(), validInput("alice", "a@x.com")); err != nil {
		t.Fatalf("first Register returned error: %v", err)
	}
	_, err := svc.Register(context.Background(), validInput("alice", "b@x.com"))
	if !errors.Is(err, domain.ErrDuplicateHandle) {
		t.Fatalf("expected ErrDuplicateHandle, got %v", err)
	}
	_, err = svc.Register(context.Background(), validInput("bob", "a@x.com"))
	if !errors.Is(err, domain.ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}
}

func TestDonorService_Register_ConcurrentDuplicates(t *testing.T) {
	repo := newStubDonorRepo()
	svc := newTestService(repo, nil)

	const attempts = 10
	var wg sync.WaitGroup
	results := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			input := validInput("alice", fmt.Sprintf("a%d@x.com", i))
			_, err := svc.Register(context.Background(), input)
			results <- err
		}(i)
	}
	wg.Wait()
	close(results)

	successes := 0
	for err := range results {
		if err == nil {
			successes++
		} else if !errors.Is(err, domain.ErrDuplicateHandle) {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if successes != 1 {
		t.Fatalf("expected exactly one successful create, got %d", successes)
	}
}

// ---------------------------------------------------------------------------
// Authenticate
// ---------------------------------------------------------------------------

func TestDonorService_Authenticate_EndToEnd(t *testing.T) {
	svc := newTestService(newStubDonorRepo(), nil)

	registered, err := svc.Register(context.Background(), validInput("alice", "a@x.com"))
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}

	view, token, err := svc.Authenticate(context.Background(), "alice", "p@ssw0rd1")
	if err != nil {
		t.Fatalf("Authenticate returned error: %v", err)
	}
	if view.ID != registered.ID {
		t.Fatalf("expected donor %s, got %s", registered.ID, view.ID)
	}

	subject, err := svc.tokens.Validate(token)
	if err != nil {
		t.Fatalf("token should validate: %v", err)
	}
	if subject != registered.ID {
		t.Fatalf("token subject %s, expected %s", subject, registered.ID)
	}
}

func TestDonorService_Authenticate_NoCredentialOracle(t *testing.T) {
	svc := newTestService(newStubDonorRepo(), nil)

	if _, err := svc.Register(context.Background(), validInput("alice", "a@x.com")); err != nil {
		t.Fatalf("Register returned error: %v", err)
	}

	// Wrong secret and unknown handle must be indistinguishable.
	_, _, wrongSecret := svc.Authenticate(context.Background(), "alice", "wrong-secret")
	_, _, unknownHandle := svc.Authenticate(context.Background(), "nobody", "p@ssw0rd1")

	if !errors.Is(wrongSecret, domain.ErrInvalidCredentials) {
		t.Fatalf("wrong secret: expected ErrInvalidCredentials, got %v", wrongSecret)
	}
	if !errors.Is(unknownHandle, domain.ErrInvalidCredentials) {
		t.Fatalf("unknown handle: expected ErrInvalidCredentials, got %v", unknownHandle)
	}
	if wrongSecret.Error() != unknownHandle.Error() {
		t.Fatalf("error shapes differ: %q vs %q", wrongSecret, unknownHandle)
	}
}

func TestDonorService_Authenticate_Throttled(t *testing.T) {
	svc := newTestService(newStubDonorRepo(), &stubLimiter{allow: false})

	_, _, err := svc.Authenticate(context.Background(), "alice", "p@ssw0rd1")
	if !errors.Is(err, domain.ErrTooManyAttempts) {
		t.Fatalf("expected ErrTooManyAttempts, got %v", err)
	}
}

func TestDonorService_Authenticate_LimiterOutageFailsOpen(t *testing.T) {
	repo := newStubDonorRepo()
	svc := newTestService(repo, &stubLimiter{err: errors.New("redis down")})

	if _, err := svc.Register(context.Background(), validInput("alice", "a@x.com")); err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if _, _, err := svc.Authenticate(context.Background(), "alice", "p@ssw0rd1"); err != nil {
		t.Fatalf("limiter outage should not block login, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// Search
// ---------------------------------------------------------------------------

func TestDonorService_Search_RanksByProximity(t *testing.T) {
	svc := newTestService(newStubDonorRepo(), nil)
	caller := ports.CoordinatesInput{Lat: 12.9716, Lng: 77.5946}

	register := func(handle string, lat float64) {
		t.Helper()
		input := validInput(handle, handle+"@x.com")
		input.Location = &ports.CoordinatesInput{Lat: lat, Lng: caller.Lng}
		if _, err := svc.Register(context.Background(), input); err != nil {
			t.Fatalf("Register %s returned error: %v", handle, err)
		}
	}
	// ~10 km, ~2 km, and 0 km away, registered farthest first.
	register("far", caller.Lat+0.09)
	register("near", caller.Lat+0.018)
	register("here", caller.Lat)

	matches, err := svc.Search(context.Background(), ports.SearchInput{
		BloodGroup: "O+",
		Caller:     &caller,
	})
	if err != nil {
		t.Fatalf("Search returned error: %v", err)
	}
	if len(matches) != 3 {
		t.Fatalf("expected 3 matches, got %d", len(matches))
	}

	for i, want := range []string{"here", "near", "far"} {
		if matches[i].Donor.Handle != want {
			t.Fatalf("position %d: expected %s, got %s", i, want, matches[i].Donor.Handle)
		}
		if matches[i].DistanceKm == nil {
			t.Fatalf("position %d: expected a distance", i)
		}
	}
	if *matches[0].DistanceKm != 0 {
		t.Fatalf("expected zero distance for co-located donor, got %f", *matches[0].DistanceKm)
	}
}

func TestDonorService_Search_LocationlessAfterRanked(t *testing.T) {
	svc := newTestService(newStubDonorRepo(), nil)
	caller := ports.CoordinatesInput{Lat: 12.9716, Lng: 77.5946}

	noLoc := validInput("nowhere", "n@x.com")
	noLoc.Location = nil
	if _, err := svc.Register(context.Background(), noLoc); err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	withLoc := validInput("here", "h@x.com")
	withLoc.Location = &caller
	if _, err := svc.Register(context.Background(), withLoc); err != nil {
		t.Fatalf("Register returned error: %v", err)
	}

	matches, err := svc.Search(context.Background(), ports.SearchInput{Caller: &caller})
	if err != nil {
		t.Fatalf("Search returned error: %v", err)
	}
	if matches[0].Donor.Handle != "here" || matches[1].Donor.Handle != "nowhere" {
		t.Fatalf("locationless donor should come last: %s, %s", matches[0].Donor.Handle, matches[1].Donor.Handle)
	}
	if matches[1].DistanceKm != nil {
		t.Fatal("locationless donor should carry no distance")
	}
}

func TestDonorService_Search_CaseInsensitiveCityFilter(t *testing.T) {
	svc := newTestService(newStubDonorRepo(), nil)

	if _, err := svc.Register(context.Background(), validInput("alice", "a@x.com")); err != nil {
		t.Fatalf("Register returned error: %v", err)
	}

	matches, err := svc.Search(context.Background(), ports.SearchInput{City: "bengal"})
	if err != nil {
		t.Fatalf("Search returned error: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected substring city match, got %d results", len(matches))
	}
}

func TestDonorService_Search_RejectsUnknownBloodGroup(t *testing.T) {
	svc := newTestService(newStubDonorRepo(), nil)

	_, err := svc.Search(context.Background(), ports.SearchInput{BloodGroup: "X+"})
	var ve *domain.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// Update / Delete / List
// ---------------------------------------------------------------------------

func TestDonorService_Update_HandleIsImmutable(t *testing.T) {
	svc := newTestService(newStubDonorRepo(), nil)

	view, err := svc.Register(context.Background(), validInput("alice", "a@x.com"))
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}

	newHandle := "someone-else"
	_, err = svc.Update(context.Background(), view.ID, ports.UpdateDonorInput{Handle: &newHandle})
	var ve *domain.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}

	// Echoing back the current handle is not a change.
	same := "alice"
	city := "Mysuru"
	updated, err := svc.Update(context.Background(), view.ID, ports.UpdateDonorInput{Handle: &same, City: &city})
	if err != nil {
		t.Fatalf("Update returned error: %v", err)
	}
	if updated.City != "Mysuru" || updated.Handle != "alice" {
		t.Fatalf("unexpected view after update: %+v", updated)
	}
}

func TestDonorService_Update_DuplicateEmail(t *testing.T) {
	svc := newTestService(newStubDonorRepo(), nil)

	if _, err := svc.Register(context.Background(), validInput("alice", "a@x.com")); err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	bob, err := svc.Register(context.Background(), validInput("bob", "b@x.com"))
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}

	taken := "a@x.com"
	_, err = svc.Update(context.Background(), bob.ID, ports.UpdateDonorInput{Email: &taken})
	if !errors.Is(err, domain.ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}

	// Prior state must survive the failed update.
	profile, err := svc.Profile(context.Background(), bob.ID)
	if err != nil {
		t.Fatalf("Profile returned error: %v", err)
	}
	if profile.Email != "b@x.com" {
		t.Fatalf("failed update must not change email, got %s", profile.Email)
	}
}

func TestDonorService_Delete_SecondCallReportsNotFound(t *testing.T) {
	svc := newTestService(newStubDonorRepo(), nil)

	view, err := svc.Register(context.Background(), validInput("alice", "a@x.com"))
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}

	if err := svc.Delete(context.Background(), view.ID); err != nil {
		t.Fatalf("first Delete returned error: %v", err)
	}
	if err := svc.Delete(context.Background(), view.ID); !errors.Is(err, domain.ErrDonorNotFound) {
		t.Fatalf("second Delete: expected ErrDonorNotFound, got %v", err)
	}
}

func TestDonorService_List_NewestFirst(t *testing.T) {
	svc := newTestService(newStubDonorRepo(), nil)

	for _, handle := range []string{"first", "second", "third"} {
		if _, err := svc.Register(context.Background(), validInput(handle, handle+"@x.com")); err != nil {
			t.Fatalf("Register %s returned error: %v", handle, err)
		}
	}

	views, err := svc.List(context.Background())
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(views) != 3 {
		t.Fatalf("expected 3 donors, got %d", len(views))
	}
	for i, want := range []string{"third", "second", "first"} {
		if views[i].Handle != want {
			t.Fatalf("position %d: expected %s, got %s", i, want, views[i].Handle)
		}
	}
}
