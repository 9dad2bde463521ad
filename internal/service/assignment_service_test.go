package service_test

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/edura/edura-go-api/internal/dto"
	"github.com/edura/edura-go-api/internal/models"
	"github.com/edura/edura-go-api/internal/repository"
	"github.com/edura/edura-go-api/internal/service"
)

func setupAssignmentService(t *testing.T) (service.AssignmentService, *gorm.DB) {
	t.Helper()

	db := openTestDB(t)
	validate := validator.New(validator.WithRequiredStructEnabled())
	logger := zerolog.New(io.Discard)

	svc := service.NewAssignmentService(repository.NewAssignmentRepository(db), validate, 10, logger)

	return svc, db
}

func quizCreatePayload(dueAt time.Time) dto.AssignmentCreateRequest {
	return dto.AssignmentCreateRequest{
		CourseID: 10,
		Title:    "Algebra Quiz",
		Kind:     models.AssignmentKindQuiz,
		DueAt:    dueAt.Format(time.RFC3339),
		Questions: []dto.QuestionInput{
			{
				Prompt:           "2+2?",
				CorrectOptionKey: "B",
				Options: []dto.OptionInput{
					{Key: "A", Text: "3"},
					{Key: "B", Text: "4"},
				},
			},
		},
	}
}

func TestCreateQuizAssignment(t *testing.T) {
	svc, _ := setupAssignmentService(t)

	created, err := svc.Create(context.Background(), quizCreatePayload(time.Now().Add(24*time.Hour)), 7)
	require.NoError(t, err)
	require.NotZero(t, created.ID)
	require.Equal(t, models.AssignmentKindQuiz, created.Kind)
	require.Equal(t, 10.0, created.MaxScore)
	require.Len(t, created.Questions, 1)
	require.Len(t, created.Questions[0].Options, 2)
}

func TestCreateAssignmentRejectsPastDue(t *testing.T) {
	svc, _ := setupAssignmentService(t)

	_, err := svc.Create(context.Background(), quizCreatePayload(time.Now().Add(-time.Hour)), 7)
	require.ErrorIs(t, err, service.ErrInvalidPayload)
}

func TestCreateQuizStructureValidation(t *testing.T) {
	svc, _ := setupAssignmentService(t)
	due := time.Now().Add(24 * time.Hour)

	t.Run("quiz without questions", func(t *testing.T) {
		payload := quizCreatePayload(due)
		payload.Questions = nil
		_, err := svc.Create(context.Background(), payload, 7)
		require.ErrorIs(t, err, service.ErrInvalidQuiz)
	})

	t.Run("correct key missing from options", func(t *testing.T) {
		payload := quizCreatePayload(due)
		payload.Questions[0].CorrectOptionKey = "Z"
		_, err := svc.Create(context.Background(), payload, 7)
		require.ErrorIs(t, err, service.ErrInvalidQuiz)
	})

	t.Run("duplicate option keys", func(t *testing.T) {
		payload := quizCreatePayload(due)
		payload.Questions[0].Options = []dto.OptionInput{
			{Key: "A", Text: "3"},
			{Key: "A", Text: "4"},
		}
		_, err := svc.Create(context.Background(), payload, 7)
		require.ErrorIs(t, err, service.ErrInvalidQuiz)
	})

	t.Run("essay with questions", func(t *testing.T) {
		payload := quizCreatePayload(due)
		payload.Kind = models.AssignmentKindEssay
		_, err := svc.Create(context.Background(), payload, 7)
		require.ErrorIs(t, err, service.ErrInvalidQuiz)
	})
}

func TestExtendDueOnlyMovesForward(t *testing.T) {
	svc, _ := setupAssignmentService(t)
	due := time.Now().Add(24 * time.Hour).Truncate(time.Second)

	created, err := svc.Create(context.Background(), quizCreatePayload(due), 7)
	require.NoError(t, err)

	_, err = svc.ExtendDue(context.Background(), created.ID, dto.AssignmentDueUpdateRequest{
		DueAt: due.Add(-time.Hour).Format(time.RFC3339),
	}, 7)
	require.ErrorIs(t, err, service.ErrInvalidPayload)

	extended, err := svc.ExtendDue(context.Background(), created.ID, dto.AssignmentDueUpdateRequest{
		DueAt: due.Add(48 * time.Hour).Format(time.RFC3339),
	}, 7)
	require.NoError(t, err)
	require.True(t, extended.DueAt.After(due))
}

func TestExtendDueUnknownAssignment(t *testing.T) {
	svc, _ := setupAssignmentService(t)

	_, err := svc.ExtendDue(context.Background(), 999, dto.AssignmentDueUpdateRequest{
		DueAt: time.Now().Add(time.Hour).Format(time.RFC3339),
	}, 7)
	require.ErrorIs(t, err, service.ErrAssignmentNotFound)
}

func TestListAssignmentsByCourseAndKind(t *testing.T) {
	svc, db := setupAssignmentService(t)
	seedEssayAssignment(t, db, 10, time.Now().Add(time.Hour))
	seedQuizAssignment(t, db, 10, time.Now().Add(time.Hour))
	seedEssayAssignment(t, db, 99, time.Now().Add(time.Hour))

	courseID := uint(10)
	kind := models.AssignmentKindQuiz

	all, err := svc.List(context.Background(), repository.AssignmentFilter{CourseID: &courseID})
	require.NoError(t, err)
	require.Len(t, all, 2)

	quizzes, err := svc.List(context.Background(), repository.AssignmentFilter{CourseID: &courseID, Kind: &kind})
	require.NoError(t, err)
	require.Len(t, quizzes, 1)
	require.Equal(t, models.AssignmentKindQuiz, quizzes[0].Kind)
}
