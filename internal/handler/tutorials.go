package handler

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/ejanapp/api/internal/model"
	"github.com/ejanapp/api/internal/service"
	"github.com/ejanapp/api/pkg/response"
)

type TutorialsHandler struct {
	service        *service.TutorialService
	validator      *validator.Validate
	requestTimeout time.Duration
}

func NewTutorialsHandler(svc *service.TutorialService, v *validator.Validate, requestTimeout time.Duration) *TutorialsHandler {
	return &TutorialsHandler{
		service:        svc,
		validator:      v,
		requestTimeout: requestTimeout,
	}
}

// Generate handles POST /api/tutorials/generate
// @Summary      Generate a tutorial
// @Description  Structure a style into steps, generate step images and queue step videos
// @Tags         Tutorials
// @Accept       json
// @Produce      json
// @Param        request body model.TutorialGenerateRequest true "Generate request"
// @Success      200 {object} model.Tutorial
// @Failure      400 {object} response.ErrorResponse
// @Failure      429 {object} response.ErrorResponse
// @Failure      502 {object} response.ErrorResponse
// @Router       /api/tutorials/generate [post]
func (h *TutorialsHandler) Generate(c *fiber.Ctx) error {
	var req model.TutorialGenerateRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	// The synchronous phase is bounded; queued video work has its own
	// lifetime and survives this deadline.
	ctx, cancel := context.WithTimeout(c.Context(), h.requestTimeout)
	defer cancel()

	result, err := h.service.GenerateTutorial(ctx, &req)
	if err != nil {
		var vErr *model.ValidationError
		if errors.As(err, &vErr) {
			return response.ValidationError(c, vErr.Message, map[string]string{vErr.Field: vErr.Message})
		}
		var sErr *model.StructuringError
		if errors.As(err, &sErr) {
			return response.StructuringError(c, sErr.Error())
		}
		return response.AIError(c, err.Error())
	}

	return response.OK(c, result)
}

// Get handles GET /api/tutorials/:tutorialId
// @Summary      Get a tutorial
// @Description  Return the full tutorial record with steps
// @Tags         Tutorials
// @Produce      json
// @Param        tutorialId path string true "Tutorial ID"
// @Success      200 {object} model.Tutorial
// @Failure      404 {object} response.ErrorResponse
// @Router       /api/tutorials/{tutorialId} [get]
func (h *TutorialsHandler) Get(c *fiber.Ctx) error {
	tutorialID := c.Params("tutorialId")

	result, err := h.service.GetTutorial(c.Context(), tutorialID)
	if err != nil {
		if errors.Is(err, model.ErrTutorialNotFound) {
			return response.NotFound(c, "Tutorial not found")
		}
		return response.ServiceError(c, err.Error())
	}

	return response.OK(c, result)
}

// Status handles GET /api/tutorials/:tutorialId/status
// @Summary      Get tutorial progress
// @Description  Derive per-step and overall progress from stored objects
// @Tags         Tutorials
// @Produce      json
// @Param        tutorialId path string true "Tutorial ID"
// @Success      200 {object} model.TutorialStatusResponse
// @Failure      404 {object} response.ErrorResponse
// @Router       /api/tutorials/{tutorialId}/status [get]
func (h *TutorialsHandler) Status(c *fiber.Ctx) error {
	tutorialID := c.Params("tutorialId")

	result, err := h.service.GetStatus(c.Context(), tutorialID)
	if err != nil {
		if errors.Is(err, model.ErrTutorialNotFound) {
			return response.NotFound(c, "Tutorial not found")
		}
		return response.ServiceError(c, err.Error())
	}

	return response.OK(c, result)
}
