package service

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/edura/edura-go-api/internal/dto"
	"github.com/edura/edura-go-api/internal/models"
	"github.com/edura/edura-go-api/internal/observability"
	"github.com/edura/edura-go-api/internal/repository"
)

// ErrScoreOutOfRange indicates a score outside the assignment grading scale.
var ErrScoreOutOfRange = errors.New("score outside grading scale")

// ErrInvalidState indicates an operation not valid for the submission's current state.
var ErrInvalidState = errors.New("operation not valid in current state")

// GradingService attaches and revises scores on submissions. Every mutation,
// visible as an in-place overwrite of the submission score, also appends an
// entry to the grade audit log; the score and its audit row commit together
// or not at all.
type GradingService interface {
	AutoGrade(ctx context.Context, submission *models.Submission, assignment models.Assignment) error
	ManualGrade(ctx context.Context, submissionID uint, score float64, instructorID uint) (dto.SubmissionResponse, error)
	OverrideGrade(ctx context.Context, submissionID uint, newScore float64, instructorID uint) (dto.SubmissionResponse, error)
}

type gradingService struct {
	submissions repository.SubmissionRepository
	events      GradeEventPublisher
	logger      zerolog.Logger
	now         func() time.Time
}

// NewGradingService constructs the grading service.
func NewGradingService(submissions repository.SubmissionRepository, events GradeEventPublisher, logger zerolog.Logger) GradingService {
	if events == nil {
		events = NewNoopGradeEventPublisher()
	}

	return &gradingService{
		submissions: submissions,
		events:      events,
		logger:      logger.With().Str("component", "grading_service").Logger(),
		now:         time.Now,
	}
}

// AutoGrade scores a quiz submission against the assignment's correct option
// keys. Unanswered questions count as incorrect. Deterministic: the same
// answers always produce the same score.
func (s *gradingService) AutoGrade(ctx context.Context, submission *models.Submission, assignment models.Assignment) error {
	if !assignment.IsQuiz() {
		return ErrInvalidState
	}
	if len(assignment.Questions) == 0 {
		return ErrInvalidState
	}

	selected := make(map[uint]string, len(assignment.Questions))
	for _, answer := range submission.AnswerList() {
		selected[answer.QuestionID] = answer.SelectedOptionKey
	}

	correct := 0
	for _, question := range assignment.Questions {
		if selected[question.ID] == question.CorrectOptionKey {
			correct++
		}
	}

	score := float64(correct) / float64(len(assignment.Questions)) * assignment.Scale()

	return s.applyGrade(ctx, submission, score, nil, models.GradeReasonAuto)
}

func (s *gradingService) ManualGrade(ctx context.Context, submissionID uint, score float64, instructorID uint) (dto.SubmissionResponse, error) {
	tracer := otel.Tracer("github.com/edura/edura-go-api/internal/service/grading")
	ctx, span := tracer.Start(ctx, "grading.manual")
	span.SetAttributes(
		attribute.Int64("grading.submission_id", int64(submissionID)),
		attribute.Int64("grading.instructor_id", int64(instructorID)),
		attribute.Float64("grading.score", score),
	)
	defer span.End()

	submission, err := s.submissions.GetByID(ctx, submissionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			span.SetStatus(codes.Error, "submission_not_found")
			return dto.SubmissionResponse{}, ErrSubmissionNotFound
		}
		span.RecordError(err)
		return dto.SubmissionResponse{}, err
	}

	if submission.IsFrozen() {
		span.SetStatus(codes.Error, "submission_frozen")
		return dto.SubmissionResponse{}, ErrInvalidState
	}

	if score < 0 || score > submission.Assignment.Scale() {
		span.SetStatus(codes.Error, "score_out_of_range")
		return dto.SubmissionResponse{}, ErrScoreOutOfRange
	}

	actor := instructorID
	if err := s.applyGrade(ctx, &submission, score, &actor, models.GradeReasonManual); err != nil {
		span.RecordError(err)
		return dto.SubmissionResponse{}, err
	}

	return dto.NewSubmissionResponse(submission), nil
}

// OverrideGrade revises a score as part of an appeal resolution. Validation
// matches ManualGrade; the audit entry records the appeal override reason so
// the revision stays traceable to the dispute.
func (s *gradingService) OverrideGrade(ctx context.Context, submissionID uint, newScore float64, instructorID uint) (dto.SubmissionResponse, error) {
	tracer := otel.Tracer("github.com/edura/edura-go-api/internal/service/grading")
	ctx, span := tracer.Start(ctx, "grading.override")
	span.SetAttributes(
		attribute.Int64("grading.submission_id", int64(submissionID)),
		attribute.Int64("grading.instructor_id", int64(instructorID)),
		attribute.Float64("grading.score", newScore),
	)
	defer span.End()

	submission, err := s.submissions.GetByID(ctx, submissionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			span.SetStatus(codes.Error, "submission_not_found")
			return dto.SubmissionResponse{}, ErrSubmissionNotFound
		}
		span.RecordError(err)
		return dto.SubmissionResponse{}, err
	}

	if newScore < 0 || newScore > submission.Assignment.Scale() {
		span.SetStatus(codes.Error, "score_out_of_range")
		return dto.SubmissionResponse{}, ErrScoreOutOfRange
	}

	actor := instructorID
	if err := s.applyGrade(ctx, &submission, newScore, &actor, models.GradeReasonAppealOverride); err != nil {
		span.RecordError(err)
		return dto.SubmissionResponse{}, err
	}

	return dto.NewSubmissionResponse(submission), nil
}

func (s *gradingService) applyGrade(ctx context.Context, submission *models.Submission, score float64, actorID *uint, reason string) error {
	var oldScore *float64
	if submission.Score != nil {
		prior := *submission.Score
		oldScore = &prior
	}

	rounded := math.Round(score*10) / 10
	gradedAt := s.now()

	submission.Score = &rounded
	submission.GradedAt = &gradedAt
	submission.GradedBy = actorID
	if submission.Status == models.SubmissionStatusSubmitted {
		submission.Status = models.SubmissionStatusGraded
	}

	entry := models.GradeAuditLog{
		SubmissionID: submission.ID,
		OldScore:     oldScore,
		NewScore:     rounded,
		ActorID:      actorID,
		Reason:       reason,
		Metadata: datatypes.JSONMap{
			"assignment_id": submission.AssignmentID,
			"student_id":    submission.StudentID,
			"version":       submission.Version,
		},
	}
	if err := s.submissions.UpdateWithAudit(ctx, submission, &entry); err != nil {
		return err
	}

	s.events.Publish(ctx, GradeEvent{
		Type:         GradeEventChanged,
		SubmissionID: submission.ID,
		AssignmentID: submission.AssignmentID,
		StudentID:    submission.StudentID,
		OldScore:     oldScore,
		NewScore:     &rounded,
		Reason:       reason,
		At:           gradedAt,
	})

	observability.GradesRecorded().WithLabelValues(reason).Inc()

	s.logger.Info().
		Uint("submission_id", submission.ID).
		Float64("score", rounded).
		Str("reason", reason).
		Msg("grade recorded")

	return nil
}
