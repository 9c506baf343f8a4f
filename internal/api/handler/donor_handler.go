package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/bdms/donor-directory/internal/api/metrics"
	"github.com/bdms/donor-directory/internal/core/domain"
	"github.com/bdms/donor-directory/internal/core/ports"
)

// dateLayouts accepted for last_donation_date; HTML date inputs send the
// bare form.
var dateLayouts = []string{time.RFC3339, "2006-01-02"}

// DonorHandler handles HTTP requests for donor directory operations.
type DonorHandler struct {
	service ports.DonorService
}

func NewDonorHandler(service ports.DonorService) *DonorHandler {
	return &DonorHandler{service: service}
}

// Register handles POST /v1/donors.
//
// @Summary      Register a new donor
// @Tags         donors
// @Accept       json
// @Produce      json
// @Param        body  body      registerDonorRequest  true  "Donor registration details"
// @Success      201   {object}  donorResponse
// @Failure      400   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Router       /v1/donors [post]
func (h *DonorHandler) Register(c echo.Context) error {
	var req registerDonorRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	lastDonation, err := parseDate(req.LastDonationDate)
	if err != nil {
		return err
	}

	view, err := h.service.Register(c.Request().Context(), ports.RegisterDonorInput{
		FullName:         req.FullName,
		Handle:           req.Handle,
		Email:            req.Email,
		Secret:           req.Secret,
		BloodGroup:       req.BloodGroup,
		Phone:            req.Phone,
		City:             req.City,
		District:         req.District,
		LastDonationDate: lastDonation,
		Location:         toCoordinatesInput(req.Location),
	})
	if err != nil {
		return err
	}

	metrics.RegistrationsTotal.WithLabelValues(view.BloodGroup).Inc()
	return c.JSON(http.StatusCreated, toDonorResponse(*view))
}

// Login handles POST /v1/donors/login.
//
// @Summary      Authenticate a donor
// @Tags         donors
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Login credentials"
// @Success      200   {object}  loginResponse
// @Failure      401   {object}  errorResponse
// @Failure      429   {object}  errorResponse
// @Router       /v1/donors/login [post]
func (h *DonorHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	view, token, err := h.service.Authenticate(c.Request().Context(), req.Handle, req.Secret)
	if err != nil {
		if errors.Is(err, domain.ErrTooManyAttempts) {
			metrics.LoginsTotal.WithLabelValues("throttled").Inc()
		} else {
			metrics.LoginsTotal.WithLabelValues("failure").Inc()
		}
		return err
	}

	metrics.LoginsTotal.WithLabelValues("success").Inc()
	return c.JSON(http.StatusOK, loginResponse{Token: token, Donor: toDonorResponse(*view)})
}

// List handles GET /v1/donors.
//
// @Summary      List all donors, newest first
// @Tags         donors
// @Produce      json
// @Success      200  {array}  donorResponse
// @Router       /v1/donors [get]
func (h *DonorHandler) List(c echo.Context) error {
	views, err := h.service.List(c.Request().Context())
	if err != nil {
		return err
	}

	resp := make([]donorResponse, 0, len(views))
	for _, v := range views {
		resp = append(resp, toDonorResponse(v))
	}
	return c.JSON(http.StatusOK, resp)
}

// Search handles POST /v1/donors/search.
//
// @Summary      Search donors by blood group and location
// @Tags         donors
// @Accept       json
// @Produce      json
// @Param        body  body      searchDonorsRequest  true  "Search filters"
// @Success      200   {object}  searchDonorsResponse
// @Failure      400   {object}  errorResponse
// @Router       /v1/donors/search [post]
func (h *DonorHandler) Search(c echo.Context) error {
	var req searchDonorsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	start := time.Now()
	matches, err := h.service.Search(c.Request().Context(), ports.SearchInput{
		BloodGroup: req.BloodGroup,
		City:       req.City,
		District:   req.District,
		Caller:     toCoordinatesInput(req.Location),
	})
	if err != nil {
		return err
	}
	metrics.SearchDuration.Observe(time.Since(start).Seconds())
	ranked := "false"
	if req.Location != nil {
		ranked = "true"
	}
	metrics.SearchesTotal.WithLabelValues(ranked).Inc()

	resp := searchDonorsResponse{Donors: make([]searchMatchResponse, 0, len(matches)), Count: len(matches)}
	for _, m := range matches {
		resp.Donors = append(resp.Donors, searchMatchResponse{
			donorResponse: toDonorResponse(m.Donor),
			DistanceKm:    m.DistanceKm,
		})
	}
	return c.JSON(http.StatusOK, resp)
}

// Get handles GET /v1/donors/:id.
//
// @Summary      Get a donor profile by id
// @Tags         donors
// @Produce      json
// @Param        id  path      string  true  "Donor id"
// @Success      200  {object}  donorResponse
// @Failure      404  {object}  errorResponse
// @Router       /v1/donors/{id} [get]
func (h *DonorHandler) Get(c echo.Context) error {
	view, err := h.service.Profile(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toDonorResponse(*view))
}

// Update handles PUT /v1/donors/:id. The bearer token's subject must match
// the donor being updated.
//
// @Summary      Update a donor profile
// @Tags         donors
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string              true  "Donor id"
// @Param        body  body      updateDonorRequest  true  "Fields to change"
// @Success      200   {object}  donorResponse
// @Failure      400   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Router       /v1/donors/{id} [put]
func (h *DonorHandler) Update(c echo.Context) error {
	id := c.Param("id")
	subject, _ := c.Get("subject").(string)
	if subject != id {
		return echo.NewHTTPError(http.StatusForbidden, "token does not match donor")
	}

	var req updateDonorRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	var lastDonation *time.Time
	if req.LastDonationDate != nil {
		parsed, err := parseDate(*req.LastDonationDate)
		if err != nil {
			return err
		}
		lastDonation = parsed
	}

	view, err := h.service.Update(c.Request().Context(), id, ports.UpdateDonorInput{
		Handle:           req.Handle,
		FullName:         req.FullName,
		Email:            req.Email,
		BloodGroup:       req.BloodGroup,
		Phone:            req.Phone,
		City:             req.City,
		District:         req.District,
		LastDonationDate: lastDonation,
		Location:         toCoordinatesInput(req.Location),
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toDonorResponse(*view))
}

// Delete handles DELETE /v1/donors/:id (admin only).
//
// @Summary      Delete a donor record
// @Tags         donors
// @Produce      json
// @Security     AdminKey
// @Param        id  path      string  true  "Donor id"
// @Success      200  {object}  map[string]string
// @Failure      404  {object}  errorResponse
// @Router       /v1/donors/{id} [delete]
func (h *DonorHandler) Delete(c echo.Context) error {
	if err := h.service.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "deleted"})
}

// parseDate parses an optional donation date in RFC 3339 or bare
// YYYY-MM-DD form.
func parseDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			utc := t.UTC()
			return &utc, nil
		}
	}
	return nil, echo.NewHTTPError(http.StatusBadRequest, "last_donation_date must be RFC 3339 or YYYY-MM-DD")
}
