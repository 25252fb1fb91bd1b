package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/smartdirector/api/internal/model"
	"github.com/smartdirector/api/internal/service"
	"github.com/smartdirector/api/internal/store"
	"github.com/smartdirector/api/pkg/response"
)

type RenderHandler struct {
	service   *service.RenderService
	validator *validator.Validate
}

func NewRenderHandler(svc *service.RenderService, v *validator.Validate) *RenderHandler {
	return &RenderHandler{
		service:   svc,
		validator: v,
	}
}

// Start handles POST /api/projects/:project/render
func (h *RenderHandler) Start(c *fiber.Ctx) error {
	var req model.RenderStartRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	task, err := h.service.StartRender(c.Params("project"), &req)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return response.NotFound(c, "Project or shot not found")
		}
		return projectLoadError(c, err)
	}

	return response.Accepted(c, model.RenderStartResponse{
		TaskID:    task.ID,
		State:     task.State,
		Model:     task.Model,
		CreatedAt: task.CreatedAt,
	})
}

// Status handles GET /api/projects/:project/render/status/:taskId
func (h *RenderHandler) Status(c *fiber.Ctx) error {
	taskID := c.Params("taskId")
	if taskID == "" {
		return response.ValidationError(c, "Task ID is required", nil)
	}

	task, err := h.service.Status(c.Params("project"), taskID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return response.NotFound(c, "Task not found")
		}
		return projectLoadError(c, err)
	}

	return response.OK(c, statusResponse(task))
}

// Result handles GET /api/projects/:project/render/result/:taskId
func (h *RenderHandler) Result(c *fiber.Ctx) error {
	taskID := c.Params("taskId")
	if taskID == "" {
		return response.ValidationError(c, "Task ID is required", nil)
	}

	candidate, err := h.service.Result(c.Params("project"), taskID)
	if err != nil {
		if errors.Is(err, service.ErrTaskNotCompleted) {
			return response.TaskFailed(c, "Task has not completed yet", nil)
		}
		if errors.Is(err, store.ErrNotFound) {
			return response.NotFound(c, "Task or candidate not found")
		}
		return projectLoadError(c, err)
	}

	return response.OK(c, candidate)
}

// Cancel handles POST /api/projects/:project/render/cancel/:taskId
func (h *RenderHandler) Cancel(c *fiber.Ctx) error {
	taskID := c.Params("taskId")
	if taskID == "" {
		return response.ValidationError(c, "Task ID is required", nil)
	}

	task, err := h.service.Cancel(c.Params("project"), taskID)
	if err != nil {
		if errors.Is(err, service.ErrTaskNotCancellable) {
			return response.Conflict(c, "Task is already terminal")
		}
		if errors.Is(err, store.ErrNotFound) {
			return response.NotFound(c, "Task not found")
		}
		return projectLoadError(c, err)
	}

	return response.OK(c, statusResponse(task))
}

// Stats handles GET /api/render/stats
func (h *RenderHandler) Stats(c *fiber.Ctx) error {
	return response.OK(c, h.service.Stats())
}

func statusResponse(task *model.Task) model.RenderStatusResponse {
	return model.RenderStatusResponse{
		TaskID:     task.ID,
		Type:       task.Type,
		State:      task.State,
		Model:      task.Model,
		Progress:   task.Progress,
		Error:      task.Error,
		OutputRefs: task.OutputRefs,
		CreatedAt:  task.CreatedAt,
		UpdatedAt:  task.UpdatedAt,
	}
}
