package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// BloodGroup is one of the eight ABO/Rh types.
type BloodGroup string

const (
	BloodAPositive  BloodGroup = "A+"
	BloodANegative  BloodGroup = "A-"
	BloodBPositive  BloodGroup = "B+"
	BloodBNegative  BloodGroup = "B-"
	BloodABPositive BloodGroup = "AB+"
	BloodABNegative BloodGroup = "AB-"
	BloodOPositive  BloodGroup = "O+"
	BloodONegative  BloodGroup = "O-"
)

var bloodGroups = map[BloodGroup]struct{}{
	BloodAPositive: {}, BloodANegative: {},
	BloodBPositive: {}, BloodBNegative: {},
	BloodABPositive: {}, BloodABNegative: {},
	BloodOPositive: {}, BloodONegative: {},
}

// Valid reports whether b is one of the eight enumerated blood groups.
func (b BloodGroup) Valid() bool {
	_, ok := bloodGroups[b]
	return ok
}

var ErrDonorNotFound = errors.New("donor not found")
var ErrDuplicateHandle = errors.New("handle already taken")
var ErrDuplicateEmail = errors.New("email already registered")
var ErrInvalidCredentials = errors.New("invalid credentials")
var ErrTooManyAttempts = errors.New("too many login attempts")
var ErrTokenExpired = errors.New("token expired")
var ErrTokenInvalid = errors.New("invalid token")
var ErrStorageUnavailable = errors.New("storage unavailable")

// ValidationError reports malformed or missing input, naming the offending
// fields so callers can fix their request.
type ValidationError struct {
	Fields []string
	Reason string
}

func (e *ValidationError) Error() string {
	msg := "invalid fields: " + strings.Join(e.Fields, ", ")
	if e.Reason != "" {
		msg += " (" + e.Reason + ")"
	}
	return msg
}

// NewValidationError builds a ValidationError for the given fields.
func NewValidationError(reason string, fields ...string) error {
	return &ValidationError{Fields: fields, Reason: reason}
}

// Coordinates represents a geographic point in decimal degrees.
type Coordinates struct {
	Lat float64 `json:"lat" bson:"lat"`
	Lng float64 `json:"lng" bson:"lng"`
}

func (c Coordinates) String() string {
	return fmt.Sprintf("(%.4f, %.4f)", c.Lat, c.Lng)
}

// Donor is the core aggregate: one registered donor identity.
// Handle and Email are globally unique; Handle is immutable after creation.
// CredentialHash never leaves the service boundary.
type Donor struct {
	ID               string
	FullName         string
	Handle           string
	Email            string
	CredentialHash   string
	BloodGroup       BloodGroup
	Phone            string
	City             string
	District         string
	LastDonationDate *time.Time
	Location         *Coordinates
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
