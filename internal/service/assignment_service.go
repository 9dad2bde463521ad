package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/edura/edura-go-api/internal/dto"
	"github.com/edura/edura-go-api/internal/models"
	"github.com/edura/edura-go-api/internal/repository"
)

// ErrInvalidQuiz indicates a quiz definition violating the structural invariants.
var ErrInvalidQuiz = errors.New("quiz structure is invalid")

// AssignmentService manages assignment definitions.
type AssignmentService interface {
	Create(ctx context.Context, payload dto.AssignmentCreateRequest, instructorID uint) (dto.AssignmentResponse, error)
	ExtendDue(ctx context.Context, id uint, payload dto.AssignmentDueUpdateRequest, instructorID uint) (dto.AssignmentResponse, error)
	Get(ctx context.Context, id uint) (dto.AssignmentResponse, error)
	List(ctx context.Context, filter repository.AssignmentFilter) ([]dto.AssignmentResponse, error)
}

type assignmentService struct {
	assignments  repository.AssignmentRepository
	validator    *validator.Validate
	defaultScale float64
	logger       zerolog.Logger
	now          func() time.Time
}

// NewAssignmentService constructs an AssignmentService instance. defaultScale
// is the grading scale applied when a payload omits max_score.
func NewAssignmentService(assignments repository.AssignmentRepository, validate *validator.Validate, defaultScale float64, logger zerolog.Logger) AssignmentService {
	if defaultScale <= 0 {
		defaultScale = models.DefaultMaxScore
	}

	return &assignmentService{
		assignments:  assignments,
		validator:    validate,
		defaultScale: defaultScale,
		logger:       logger.With().Str("component", "assignment_service").Logger(),
		now:          time.Now,
	}
}

func (s *assignmentService) Create(ctx context.Context, payload dto.AssignmentCreateRequest, instructorID uint) (dto.AssignmentResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.AssignmentResponse{}, err
	}

	dueAt, err := time.Parse(time.RFC3339, payload.DueAt)
	if err != nil {
		return dto.AssignmentResponse{}, fmt.Errorf("%w: invalid due date: %v", ErrInvalidPayload, err)
	}
	if dueAt.Before(s.now()) {
		return dto.AssignmentResponse{}, fmt.Errorf("%w: due date is in the past", ErrInvalidPayload)
	}

	questions, err := buildQuestions(payload)
	if err != nil {
		return dto.AssignmentResponse{}, err
	}

	maxScore := payload.MaxScore
	if maxScore <= 0 {
		maxScore = s.defaultScale
	}

	assignment := models.Assignment{
		CourseID:    payload.CourseID,
		Title:       payload.Title,
		Description: payload.Description,
		Kind:        payload.Kind,
		DueAt:       dueAt,
		MaxScore:    maxScore,
		Questions:   questions,
	}

	if err := s.assignments.Create(ctx, &assignment); err != nil {
		return dto.AssignmentResponse{}, err
	}

	s.logger.Info().
		Uint("assignment_id", assignment.ID).
		Uint("instructor_id", instructorID).
		Str("kind", assignment.Kind).
		Msg("assignment created")

	return dto.NewAssignmentResponse(assignment), nil
}

// ExtendDue pushes the deadline out. Extension is the only supported due
// date mutation; moving a deadline earlier would retroactively invalidate
// accepted submissions.
func (s *assignmentService) ExtendDue(ctx context.Context, id uint, payload dto.AssignmentDueUpdateRequest, instructorID uint) (dto.AssignmentResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.AssignmentResponse{}, err
	}

	dueAt, err := time.Parse(time.RFC3339, payload.DueAt)
	if err != nil {
		return dto.AssignmentResponse{}, fmt.Errorf("%w: invalid due date: %v", ErrInvalidPayload, err)
	}

	assignment, err := s.assignments.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.AssignmentResponse{}, ErrAssignmentNotFound
		}
		return dto.AssignmentResponse{}, err
	}

	if !dueAt.After(assignment.DueAt) {
		return dto.AssignmentResponse{}, fmt.Errorf("%w: new due date must extend the deadline", ErrInvalidPayload)
	}

	assignment.DueAt = dueAt
	if err := s.assignments.Update(ctx, &assignment); err != nil {
		return dto.AssignmentResponse{}, err
	}

	s.logger.Info().
		Uint("assignment_id", assignment.ID).
		Uint("instructor_id", instructorID).
		Time("due_at", dueAt).
		Msg("assignment deadline extended")

	return dto.NewAssignmentResponse(assignment), nil
}

func (s *assignmentService) Get(ctx context.Context, id uint) (dto.AssignmentResponse, error) {
	assignment, err := s.assignments.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.AssignmentResponse{}, ErrAssignmentNotFound
		}
		return dto.AssignmentResponse{}, err
	}

	return dto.NewAssignmentResponse(assignment), nil
}

func (s *assignmentService) List(ctx context.Context, filter repository.AssignmentFilter) ([]dto.AssignmentResponse, error) {
	assignments, err := s.assignments.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	return dto.NewAssignmentResponseSlice(assignments), nil
}

// buildQuestions enforces the quiz structural invariants: at least one
// question, each with at least two options and exactly one correct key that
// matches an existing option.
func buildQuestions(payload dto.AssignmentCreateRequest) ([]models.Question, error) {
	if payload.Kind != models.AssignmentKindQuiz {
		if len(payload.Questions) > 0 {
			return nil, fmt.Errorf("%w: essay assignments carry no questions", ErrInvalidQuiz)
		}
		return nil, nil
	}

	if len(payload.Questions) == 0 {
		return nil, fmt.Errorf("%w: a quiz needs at least one question", ErrInvalidQuiz)
	}

	questions := make([]models.Question, 0, len(payload.Questions))
	for i, input := range payload.Questions {
		if len(input.Options) < 2 {
			return nil, fmt.Errorf("%w: question %d needs at least two options", ErrInvalidQuiz, i+1)
		}

		keys := make(map[string]struct{}, len(input.Options))
		options := make([]models.QuestionOption, 0, len(input.Options))
		for _, option := range input.Options {
			if _, dup := keys[option.Key]; dup {
				return nil, fmt.Errorf("%w: question %d repeats option key %q", ErrInvalidQuiz, i+1, option.Key)
			}
			keys[option.Key] = struct{}{}
			options = append(options, models.QuestionOption{Key: option.Key, Text: option.Text})
		}

		if _, ok := keys[input.CorrectOptionKey]; !ok {
			return nil, fmt.Errorf("%w: question %d has no option %q", ErrInvalidQuiz, i+1, input.CorrectOptionKey)
		}

		questions = append(questions, models.Question{
			Position:         i + 1,
			Prompt:           input.Prompt,
			CorrectOptionKey: input.CorrectOptionKey,
			Options:          options,
		})
	}

	return questions, nil
}
