package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/edura/edura-go-api/internal/service"
	"github.com/edura/edura-go-api/internal/utils"
)

// OverviewHandler serves the term-partitioned grade overview.
type OverviewHandler struct {
	service service.TermScopeService
	logger  zerolog.Logger
}

// NewOverviewHandler builds an overview handler instance.
func NewOverviewHandler(service service.TermScopeService, logger zerolog.Logger) *OverviewHandler {
	return &OverviewHandler{
		service: service,
		logger:  logger.With().Str("component", "overview_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group.
func (h *OverviewHandler) Register(router fiber.Router) {
	router.Get("/:id/courses/:courseId/grade-overview", h.gradeOverview)
}

func (h *OverviewHandler) gradeOverview(c *fiber.Ctx) error {
	studentID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	courseID, err := parseUintParam(c, "courseId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	overview, err := h.service.GradeOverview(c.Context(), studentID, courseID)
	if err != nil {
		h.logger.Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}

	return utils.SendSuccess(c, "grade overview retrieved", overview)
}
