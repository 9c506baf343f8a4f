package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/bdms/donor-directory/internal/core/domain"
	"github.com/bdms/donor-directory/internal/core/ports"
)

// ContactHandler handles the contact-message log endpoints.
type ContactHandler struct {
	service ports.ContactService
}

func NewContactHandler(service ports.ContactService) *ContactHandler {
	return &ContactHandler{service: service}
}

type addMessageRequest struct {
	Name    string `json:"name"    validate:"required"`
	Email   string `json:"email"   validate:"required,email"`
	Message string `json:"message" validate:"required"`
}

type messageResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// Add handles POST /v1/contacts.
//
// @Summary      Leave a contact message
// @Tags         contacts
// @Accept       json
// @Produce      json
// @Param        body  body      addMessageRequest  true  "Message"
// @Success      201   {object}  messageResponse
// @Failure      400   {object}  errorResponse
// @Router       /v1/contacts [post]
func (h *ContactHandler) Add(c echo.Context) error {
	var req addMessageRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	saved, err := h.service.Add(c.Request().Context(), req.Name, req.Email, req.Message)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toMessageResponse(saved))
}

// List handles GET /v1/contacts (admin only).
//
// @Summary      List contact messages, newest first
// @Tags         contacts
// @Produce      json
// @Security     AdminKey
// @Success      200  {array}  messageResponse
// @Router       /v1/contacts [get]
func (h *ContactHandler) List(c echo.Context) error {
	messages, err := h.service.List(c.Request().Context())
	if err != nil {
		return err
	}

	resp := make([]messageResponse, 0, len(messages))
	for _, m := range messages {
		resp = append(resp, toMessageResponse(m))
	}
	return c.JSON(http.StatusOK, resp)
}

// Delete handles DELETE /v1/contacts/:id (admin only).
//
// @Summary      Delete a contact message
// @Tags         contacts
// @Produce      json
// @Security     AdminKey
// @Param        id  path      string  true  "Message id"
// @Success      200  {object}  map[string]string
// @Failure      404  {object}  errorResponse
// @Router       /v1/contacts/{id} [delete]
func (h *ContactHandler) Delete(c echo.Context) error {
	if err := h.service.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "deleted"})
}

func toMessageResponse(m *domain.ContactMessage) messageResponse {
	return messageResponse{
		ID:        m.ID,
		Name:      m.Name,
		Email:     m.Email,
		Message:   m.Message,
		CreatedAt: m.CreatedAt,
	}
}
