package handler

import (
	"time"

	"github.com/bdms/donor-directory/internal/core/ports"
)

// errorResponse is the standard error envelope returned on all 4xx/5xx responses.
type errorResponse struct {
	Error string `json:"error"`
}

// --- Request types ---

type coordinatesRequest struct {
	Lat *float64 `json:"lat" validate:"required,gte=-90,lte=90"`
	Lng *float64 `json:"lng" validate:"required,gte=-180,lte=180"`
}

type registerDonorRequest struct {
	FullName         string              `json:"full_name"   validate:"required"`
	Handle           string              `json:"handle"      validate:"required"`
	Email            string              `json:"email"       validate:"required,email"`
	Secret           string              `json:"secret"      validate:"required,min=8"`
	BloodGroup       string              `json:"blood_group" validate:"required,oneof=A+ A- B+ B- AB+ AB- O+ O-"`
	Phone            string              `json:"phone"       validate:"required"`
	City             string              `json:"city"        validate:"required"`
	District         string              `json:"district"    validate:"required"`
	LastDonationDate string              `json:"last_donation_date,omitempty"`
	Location         *coordinatesRequest `json:"location,omitempty"`
}

type loginRequest struct {
	Handle string `json:"handle" validate:"required"`
	Secret string `json:"secret" validate:"required"`
}

type searchDonorsRequest struct {
	BloodGroup string              `json:"blood_group,omitempty" validate:"omitempty,oneof=A+ A- B+ B- AB+ AB- O+ O-"`
	City       string              `json:"city,omitempty"`
	District   string              `json:"district,omitempty"`
	Location   *coordinatesRequest `json:"location,omitempty"`
}

type updateDonorRequest struct {
	Handle           *string             `json:"handle,omitempty"`
	FullName         *string             `json:"full_name,omitempty"`
	Email            *string             `json:"email,omitempty" validate:"omitempty,email"`
	BloodGroup       *string             `json:"blood_group,omitempty" validate:"omitempty,oneof=A+ A- B+ B- AB+ AB- O+ O-"`
	Phone            *string             `json:"phone,omitempty"`
	City             *string             `json:"city,omitempty"`
	District         *string             `json:"district,omitempty"`
	LastDonationDate *string             `json:"last_donation_date,omitempty"`
	Location         *coordinatesRequest `json:"location,omitempty"`
}

// --- Response types ---
// These are owned by the transport layer so the JSON contract is not
// coupled to internal service changes. The credential hash has no field
// here, by construction.

type coordinatesResponse struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type donorResponse struct {
	ID               string               `json:"id"`
	FullName         string               `json:"full_name"`
	Handle           string               `json:"handle"`
	Email            string               `json:"email"`
	BloodGroup       string               `json:"blood_group"`
	Phone            string               `json:"phone"`
	City             string               `json:"city"`
	District         string               `json:"district"`
	LastDonationDate *time.Time           `json:"last_donation_date,omitempty"`
	Location         *coordinatesResponse `json:"location,omitempty"`
	CreatedAt        time.Time            `json:"created_at"`
	UpdatedAt        time.Time            `json:"updated_at"`
}

type loginResponse struct {
	Token string        `json:"token"`
	Donor donorResponse `json:"donor"`
}

type searchMatchResponse struct {
	donorResponse
	DistanceKm *float64 `json:"distance_km,omitempty"`
}

type searchDonorsResponse struct {
	Donors []searchMatchResponse `json:"donors"`
	Count  int                   `json:"count"`
}

func toDonorResponse(v ports.DonorView) donorResponse {
	resp := donorResponse{
		ID:               v.ID,
		FullName:         v.FullName,
		Handle:           v.Handle,
		Email:            v.Email,
		BloodGroup:       v.BloodGroup,
		Phone:            v.Phone,
		City:             v.City,
		District:         v.District,
		LastDonationDate: v.LastDonationDate,
		CreatedAt:        v.CreatedAt,
		UpdatedAt:        v.UpdatedAt,
	}
	if v.Location != nil {
		resp.Location = &coordinatesResponse{Lat: v.Location.Lat, Lng: v.Location.Lng}
	}
	return resp
}

func toCoordinatesInput(req *coordinatesRequest) *ports.CoordinatesInput {
	if req == nil {
		return nil
	}
	return &ports.CoordinatesInput{Lat: *req.Lat, Lng: *req.Lng}
}
