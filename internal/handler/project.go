package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/narriq/api/internal/service"
	"github.com/narriq/api/pkg/response"
)

type ProjectHandler struct {
	service *service.ProjectService
}

func NewProjectHandler(svc *service.ProjectService) *ProjectHandler {
	return &ProjectHandler{service: svc}
}

// Get handles GET /api/project/:projectId
//
// A 404 means unknown or still processing: the skeleton appears at request
// time, so absence after that implies a never-issued id or a cleaned project.
func (h *ProjectHandler) Get(c *fiber.Ctx) error {
	projectID := c.Params("projectId")
	if projectID == "" {
		return response.ValidationError(c, "Project ID is required", nil)
	}

	result, err := h.service.GetProject(c.Context(), projectID)
	if err != nil {
		if errors.Is(err, service.ErrProjectNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error":     "Project not found",
				"projectId": projectID,
			})
		}
		return response.ServiceError(c, err.Error())
	}

	return response.OK(c, result)
}

// Events handles GET /api/project/:projectId/events — the per-project step
// journal, the place to look when a project sits in pending too long.
func (h *ProjectHandler) Events(c *fiber.Ctx) error {
	projectID := c.Params("projectId")
	if projectID == "" {
		return response.ValidationError(c, "Project ID is required", nil)
	}

	entries, err := h.service.Journal(c.Context(), projectID)
	if err != nil {
		return response.ServiceError(c, err.Error())
	}

	return response.OK(c, fiber.Map{
		"projectId": projectID,
		"events":    entries,
	})
}

// Analytics handles GET /api/analytics and GET /api/analytics/:projectId
func (h *ProjectHandler) Analytics(c *fiber.Ctx) error {
	projectID := c.Params("projectId")
	if projectID == "" {
		overview, err := h.service.AllAnalytics(c.Context())
		if err != nil {
			return response.ServiceError(c, err.Error())
		}
		return response.OK(c, overview)
	}

	report, err := h.service.ProjectAnalytics(c.Context(), projectID)
	if err != nil {
		return response.ServiceError(c, err.Error())
	}
	if report == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error":     "Analytics not found",
			"projectId": projectID,
		})
	}
	return response.OK(c, report)
}
