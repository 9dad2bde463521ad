package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/edura/edura-go-api/internal/dto"
	"github.com/edura/edura-go-api/internal/models"
	"github.com/edura/edura-go-api/internal/service"
	"github.com/edura/edura-go-api/internal/utils"
)

// AppealHandler manages the appeal lifecycle endpoints.
type AppealHandler struct {
	service service.AppealService
	logger  zerolog.Logger
}

// NewAppealHandler builds an appeal handler instance.
func NewAppealHandler(service service.AppealService, logger zerolog.Logger) *AppealHandler {
	return &AppealHandler{
		service: service,
		logger:  logger.With().Str("component", "appeal_handler").Logger(),
	}
}

// RegisterSubmissionRoutes attaches the open route under submissions.
func (h *AppealHandler) RegisterSubmissionRoutes(router fiber.Router) {
	router.Post("/:id/appeals", h.open)
}

// Register attaches the thread routes to the appeals group.
func (h *AppealHandler) Register(router fiber.Router) {
	router.Post("/:id/comments", h.comment)
}

// RegisterInstructor attaches the instructor-only resolution route.
func (h *AppealHandler) RegisterInstructor(router fiber.Router) {
	router.Post("/:id/resolve", h.resolve)
}

func (h *AppealHandler) open(c *fiber.Ctx) error {
	submissionID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.AppealOpenRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	appeal, err := h.service.Open(c.Context(), submissionID, userIDFromContext(c), payload.Comment)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "appeal opened", appeal)
}

func (h *AppealHandler) comment(c *fiber.Ctx) error {
	appealID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.AppealCommentRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	role := userRoleFromContext(c)
	if role == "" {
		role = models.AppealRoleStudent
	}

	appeal, err := h.service.AddComment(c.Context(), appealID, userIDFromContext(c), role, payload.Body)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "comment added", appeal)
}

func (h *AppealHandler) resolve(c *fiber.Ctx) error {
	appealID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.AppealResolveRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	appeal, err := h.service.Resolve(c.Context(), appealID, userIDFromContext(c), payload.Comment, payload.NewScore)
	if err != nil {
		return h.handleError(c, err)
	}

	requestLogger(h.logger, c).Info().
		Uint("appeal_id", appealID).
		Bool("score_overridden", payload.NewScore != nil).
		Msg("appeal resolved")

	return utils.SendSuccess(c, "appeal resolved", appeal)
}

func (h *AppealHandler) handleError(c *fiber.Ctx, err error) error {
	var validationErrors validator.ValidationErrors
	switch {
	case errors.Is(err, service.ErrSubmissionNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "submission not found")
	case errors.Is(err, service.ErrAppealNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "appeal not found")
	case errors.Is(err, service.ErrNotGraded):
		return utils.SendError(c, fiber.StatusConflict, "submission has not been graded")
	case errors.Is(err, service.ErrAppealAlreadyOpen):
		return utils.SendError(c, fiber.StatusConflict, "an unresolved appeal already exists")
	case errors.Is(err, service.ErrAppealLimitReached):
		return utils.SendError(c, fiber.StatusConflict, "submission appeal already consumed")
	case errors.Is(err, service.ErrAppealClosed):
		return utils.SendError(c, fiber.StatusConflict, "appeal thread is closed")
	case errors.Is(err, service.ErrEmptyComment):
		return utils.SendError(c, fiber.StatusBadRequest, "comment must not be empty")
	case errors.Is(err, service.ErrScoreOutOfRange):
		return utils.SendError(c, fiber.StatusBadRequest, "score outside grading scale")
	case errors.As(err, &validationErrors):
		return utils.SendError(c, fiber.StatusBadRequest, validationErrors.Error())
	default:
		h.logger.Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
