package handlers

import (
	"github.com/gofiber/fiber/v2"

	"alfredoptarigan/resumatch/internal/models"
	"alfredoptarigan/resumatch/internal/services"
)

type ContactHandler struct {
	contacts services.ContactService
}

func NewContactHandler(contacts services.ContactService) *ContactHandler {
	return &ContactHandler{contacts: contacts}
}

func (h *ContactHandler) HandleSubmit(c *fiber.Ctx) error {
	var req models.ContactRequest
	if err := c.BodyParser(&req); err != nil {
		return NewAppError(fiber.StatusBadRequest, "invalid request body", err)
	}

	if _, err := h.contacts.Submit(c.UserContext(), req); err != nil {
		return err
	}

	return c.JSON(models.MessageResponse{
		Message: "Contact form submitted successfully. We'll get back to you soon!",
	})
}
