package router

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/edura/edura-go-api/internal/config"
	"github.com/edura/edura-go-api/internal/handler"
	"github.com/edura/edura-go-api/internal/middleware"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	AssignmentHandler *handler.AssignmentHandler
	SubmissionHandler *handler.SubmissionHandler
	GradingHandler    *handler.GradingHandler
	AppealHandler     *handler.AppealHandler
	OverviewHandler   *handler.OverviewHandler
	JWTMiddleware     fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	// Common v1 group for health & headers
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// Use provided JWT middleware, or a no-op if nil
	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	instructorOnly := middleware.RequireRole("instructor")

	// Assignments
	if deps.AssignmentHandler != nil {
		assignments := app.Group("/api/v2/assignments", jwtMiddleware)
		deps.AssignmentHandler.Register(assignments)

		instructorAssignments := app.Group("/api/v2/assignments", jwtMiddleware, instructorOnly)
		deps.AssignmentHandler.RegisterInstructor(instructorAssignments)
	}

	// Submissions, grading, and appeal opening
	if deps.SubmissionHandler != nil {
		submissions := app.Group("/api/v2/submissions", jwtMiddleware,
			middleware.RateLimit("submissions", 60, time.Minute))
		deps.SubmissionHandler.Register(submissions)

		if deps.AppealHandler != nil {
			deps.AppealHandler.RegisterSubmissionRoutes(submissions)
		}
		if deps.GradingHandler != nil {
			grading := app.Group("/api/v2/submissions", jwtMiddleware, instructorOnly)
			deps.GradingHandler.Register(grading)
		}
	}

	// Appeal threads
	if deps.AppealHandler != nil {
		appeals := app.Group("/api/v2/appeals", jwtMiddleware)
		deps.AppealHandler.Register(appeals)

		instructorAppeals := app.Group("/api/v2/appeals", jwtMiddleware, instructorOnly)
		deps.AppealHandler.RegisterInstructor(instructorAppeals)
	}

	// Grade overview
	if deps.OverviewHandler != nil {
		students := app.Group("/api/v2/students", jwtMiddleware)
		deps.OverviewHandler.Register(students)
	}
}
