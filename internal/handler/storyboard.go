package handler

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/narriq/api/internal/model"
	"github.com/narriq/api/internal/service"
	"github.com/narriq/api/pkg/response"
)

type StoryboardHandler struct {
	service   *service.StoryboardService
	validator *validator.Validate
}

func NewStoryboardHandler(svc *service.StoryboardService, v *validator.Validate) *StoryboardHandler {
	return &StoryboardHandler{
		service:   svc,
		validator: v,
	}
}

// FromSketch handles POST /api/sketch-to-storyboard. It always answers 200
// with a usable storyboard; a failed vision call degrades to the fallback.
func (h *StoryboardHandler) FromSketch(c *fiber.Ctx) error {
	var req model.StoryboardRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}
	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	return response.OK(c, h.service.FromSketch(c.Context(), &req))
}
