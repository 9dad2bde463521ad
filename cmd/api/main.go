package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/edura/edura-go-api/internal/config"
	"github.com/edura/edura-go-api/internal/database"
	"github.com/edura/edura-go-api/internal/handler"
	"github.com/edura/edura-go-api/internal/middleware"
	"github.com/edura/edura-go-api/internal/models"
	"github.com/edura/edura-go-api/internal/repository"
	"github.com/edura/edura-go-api/internal/router"
	"github.com/edura/edura-go-api/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(
		&models.Assignment{},
		&models.Question{},
		&models.QuestionOption{},
		&models.Submission{},
		&models.Appeal{},
		&models.AppealComment{},
		&models.Enrollment{},
		&models.GradeAuditLog{},
	); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	redisClient, err := database.ConnectRedis(cfg.RedisURL)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()

	// NATS is optional; grade events still go out over redis without it.
	var natsConn *nats.Conn
	if cfg.NatsURL != "" {
		natsConn, err = database.ConnectNATS(cfg.NatsURL)
		if err != nil {
			logger.Warn().Err(err).Msg("failed to connect to nats, grade events degrade to redis only")
		} else {
			defer natsConn.Close()
		}
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	assignmentRepo := repository.NewAssignmentRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	appealRepo := repository.NewAppealRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	events := service.NewGradeEventPublisher(redisClient, natsConn, "edura.events", logger)

	gradingService := service.NewGradingService(submissionRepo, events, logger)
	assignmentService := service.NewAssignmentService(assignmentRepo, validate, cfg.GradeScaleMax, logger)
	submissionService := service.NewSubmissionService(submissionRepo, assignmentRepo, enrollmentRepo, gradingService, validate, logger)
	appealService := service.NewAppealService(db, appealRepo, submissionRepo, events, validate, cfg.AllowRepeatAppeals, logger)
	termScopeService := service.NewTermScopeService(submissionRepo, enrollmentRepo, redisClient, cfg.OverviewCacheTTL, logger)

	assignmentHandler := handler.NewAssignmentHandler(assignmentService, logger)
	submissionHandler := handler.NewSubmissionHandler(submissionService, logger)
	gradingHandler := handler.NewGradingHandler(gradingService, logger)
	appealHandler := handler.NewAppealHandler(appealService, logger)
	overviewHandler := handler.NewOverviewHandler(termScopeService, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		AssignmentHandler: assignmentHandler,
		SubmissionHandler: submissionHandler,
		GradingHandler:    gradingHandler,
		AppealHandler:     appealHandler,
		OverviewHandler:   overviewHandler,
		JWTMiddleware:     middleware.JWTProtected(cfg.JWTSecret),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app)
}

func waitForShutdown(app *fiber.App) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
