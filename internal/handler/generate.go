package handler

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/narriq/api/internal/model"
	"github.com/narriq/api/internal/service"
	"github.com/narriq/api/pkg/response"
)

type GenerateHandler struct {
	service   *service.ProjectService
	validator *validator.Validate
}

func NewGenerateHandler(svc *service.ProjectService, v *validator.Validate) *GenerateHandler {
	return &GenerateHandler{
		service:   svc,
		validator: v,
	}
}

// Generate handles POST /api/generate
func (h *GenerateHandler) Generate(c *fiber.Ctx) error {
	var req model.GenerateRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	// The url-or-googleMapsId requirement spans two fields, so it lives here
	// rather than in struct tags.
	if req.URL == "" && req.GoogleMapsID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Either url or googleMapsId must be provided",
		})
	}

	result, err := h.service.CreateProject(c.Context(), &req)
	if err != nil {
		return response.ServiceError(c, err.Error())
	}

	return response.OK(c, result)
}
