package handler

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/smartdirector/api/internal/model"
	"github.com/smartdirector/api/internal/service"
	"github.com/smartdirector/api/pkg/response"
)

type AssetHandler struct {
	service   *service.ProjectService
	validator *validator.Validate
}

func NewAssetHandler(svc *service.ProjectService, v *validator.Validate) *AssetHandler {
	return &AssetHandler{
		service:   svc,
		validator: v,
	}
}

// Import handles POST /api/projects/:project/assets
func (h *AssetHandler) Import(c *fiber.Ctx) error {
	var req model.AssetImportRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	asset, err := h.service.ImportAsset(c.Params("project"), &req)
	if err != nil {
		return projectLoadError(c, err)
	}

	return response.Created(c, asset)
}
