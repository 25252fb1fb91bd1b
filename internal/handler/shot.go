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

type ShotHandler struct {
	service   *service.ProjectService
	validator *validator.Validate
}

func NewShotHandler(svc *service.ProjectService, v *validator.Validate) *ShotHandler {
	return &ShotHandler{
		service:   svc,
		validator: v,
	}
}

// Create handles POST /api/projects/:project/shots
func (h *ShotHandler) Create(c *fiber.Ctx) error {
	var req model.ShotCreateRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	shot, err := h.service.CreateShot(c.Params("project"), &req)
	if err != nil {
		return projectLoadError(c, err)
	}

	return response.Created(c, shot)
}

// Get handles GET /api/projects/:project/shots/:shotId
func (h *ShotHandler) Get(c *fiber.Ctx) error {
	shot, err := h.service.GetShot(c.Params("project"), c.Params("shotId"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return response.NotFound(c, "Shot not found")
		}
		return projectLoadError(c, err)
	}
	return response.OK(c, shot)
}

// Update handles PUT /api/projects/:project/shots/:shotId
func (h *ShotHandler) Update(c *fiber.Ctx) error {
	var req model.ShotUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	shot, err := h.service.UpdateShot(c.Params("project"), c.Params("shotId"), &req)
	if err != nil {
		if errors.Is(err, service.ErrCandidateMismatch) {
			return response.ValidationError(c, err.Error(), nil)
		}
		if errors.Is(err, store.ErrNotFound) {
			return response.NotFound(c, "Shot or candidate not found")
		}
		return projectLoadError(c, err)
	}
	return response.OK(c, shot)
}

// ListCandidates handles GET /api/projects/:project/shots/:shotId/candidates
func (h *ShotHandler) ListCandidates(c *fiber.Ctx) error {
	candidates, err := h.service.ListCandidates(c.Params("project"), c.Params("shotId"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return response.NotFound(c, "Shot not found")
		}
		return projectLoadError(c, err)
	}
	return response.OK(c, candidates)
}
