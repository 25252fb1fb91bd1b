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

type ProjectHandler struct {
	service   *service.ProjectService
	validator *validator.Validate
}

func NewProjectHandler(svc *service.ProjectService, v *validator.Validate) *ProjectHandler {
	return &ProjectHandler{
		service:   svc,
		validator: v,
	}
}

// Create handles POST /api/projects
func (h *ProjectHandler) Create(c *fiber.Ctx) error {
	var req model.ProjectCreateRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	project, err := h.service.CreateProject(&req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidProjectName) {
			return response.ValidationError(c, "Invalid project name", nil)
		}
		if errors.Is(err, store.ErrProjectExists) {
			return response.Conflict(c, "Project already exists")
		}
		return response.ServiceError(c, err.Error())
	}

	return response.Created(c, project)
}

// List handles GET /api/projects
func (h *ProjectHandler) List(c *fiber.Ctx) error {
	summaries, err := h.service.ListProjects()
	if err != nil {
		return response.ServiceError(c, err.Error())
	}
	return response.OK(c, summaries)
}

// Get handles GET /api/projects/:project
func (h *ProjectHandler) Get(c *fiber.Ctx) error {
	project, err := h.service.GetProject(c.Params("project"))
	if err != nil {
		return projectLoadError(c, err)
	}
	return response.OK(c, project)
}

// RebuildIndex handles POST /api/projects/:project/rebuild-index
func (h *ProjectHandler) RebuildIndex(c *fiber.Ctx) error {
	project, err := h.service.RebuildIndex(c.Params("project"))
	if err != nil {
		return projectLoadError(c, err)
	}
	return response.OK(c, project)
}

func projectLoadError(c *fiber.Ctx, err error) error {
	if errors.Is(err, service.ErrInvalidProjectName) {
		return response.ValidationError(c, "Invalid project name", nil)
	}
	if errors.Is(err, store.ErrNotFound) {
		return response.NotFound(c, "Project not found")
	}
	return response.ServiceError(c, err.Error())
}
