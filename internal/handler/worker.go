package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/narriq/api/internal/model"
	"github.com/narriq/api/internal/service"
	"github.com/narriq/api/internal/websocket"
	"github.com/narriq/api/pkg/response"
)

// WorkerHandler receives the render worker's progress callbacks and mirrors
// them onto the websocket hub.
type WorkerHandler struct {
	service   *service.RenderService
	hub       *websocket.Hub
	validator *validator.Validate
}

func NewWorkerHandler(svc *service.RenderService, hub *websocket.Hub, v *validator.Validate) *WorkerHandler {
	return &WorkerHandler{
		service:   svc,
		hub:       hub,
		validator: v,
	}
}

// Progress handles POST /api/worker/progress/:jobId
func (h *WorkerHandler) Progress(c *fiber.Ctx) error {
	jobID := c.Params("jobId")
	if jobID == "" {
		return response.ValidationError(c, "Job ID is required", nil)
	}

	var req model.WorkerProgressReport
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}
	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	if err := h.service.ReportProgress(c.Context(), jobID, req.Progress, req.Message); err != nil {
		return h.jobError(c, jobID, err)
	}

	h.hub.BroadcastProgress(jobID, req.Progress, model.JobStatusProcessing, req.Message)
	return response.OK(c, fiber.Map{"ok": true})
}

// Complete handles POST /api/worker/complete/:jobId
func (h *WorkerHandler) Complete(c *fiber.Ctx) error {
	jobID := c.Params("jobId")
	if jobID == "" {
		return response.ValidationError(c, "Job ID is required", nil)
	}

	var req model.WorkerCompleteReport
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}
	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	if err := h.service.CompleteJob(c.Context(), jobID, req.OutputURL); err != nil {
		return h.jobError(c, jobID, err)
	}

	h.hub.BroadcastComplete(jobID, req.OutputURL)
	return response.OK(c, fiber.Map{"ok": true})
}

// Failed handles POST /api/worker/failed/:jobId
func (h *WorkerHandler) Failed(c *fiber.Ctx) error {
	jobID := c.Params("jobId")
	if jobID == "" {
		return response.ValidationError(c, "Job ID is required", nil)
	}

	var req model.WorkerFailedReport
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}
	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	if err := h.service.FailJob(c.Context(), jobID, req.Error); err != nil {
		return h.jobError(c, jobID, err)
	}

	h.hub.BroadcastError(jobID, "RENDER_FAILED", req.Error)
	return response.OK(c, fiber.Map{"ok": true})
}

func (h *WorkerHandler) jobError(c *fiber.Ctx, jobID string, err error) error {
	switch {
	case errors.Is(err, service.ErrJobNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Render job not found"})
	case errors.Is(err, service.ErrJobTerminal):
		return response.Conflict(c, "Render job already finished")
	}
	return response.ServiceError(c, err.Error())
}
