package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"gorm.io/gorm"

	"github.com/edura/edura-go-api/internal/dto"
	"github.com/edura/edura-go-api/internal/models"
	"github.com/edura/edura-go-api/internal/observability"
	"github.com/edura/edura-go-api/internal/repository"
)

// ErrAppealNotFound indicates the appeal could not be located.
var ErrAppealNotFound = errors.New("appeal not found")

// ErrNotGraded indicates the submission carries no grade to dispute.
var ErrNotGraded = errors.New("submission has not been graded")

// ErrAppealAlreadyOpen indicates an unresolved appeal exists for the submission.
var ErrAppealAlreadyOpen = errors.New("an unresolved appeal already exists")

// ErrAppealClosed indicates the appeal reached a terminal status.
var ErrAppealClosed = errors.New("appeal thread is closed")

// ErrEmptyComment indicates a comment was blank after trimming.
var ErrEmptyComment = errors.New("comment must not be empty")

// ErrAppealLimitReached indicates the one-appeal-per-submission policy was exhausted.
var ErrAppealLimitReached = errors.New("submission appeal already consumed")

// AppealService owns the appeal sub-lifecycle attached to graded
// submissions: opening, the comment thread, and terminal resolution.
type AppealService interface {
	Open(ctx context.Context, submissionID, studentID uint, comment string) (dto.AppealResponse, error)
	AddComment(ctx context.Context, appealID, authorID uint, authorRole, body string) (dto.AppealResponse, error)
	Resolve(ctx context.Context, appealID, instructorID uint, comment string, newScore *float64) (dto.AppealResponse, error)
}

type appealService struct {
	db          *gorm.DB
	appeals     repository.AppealRepository
	submissions repository.SubmissionRepository
	events      GradeEventPublisher
	validator   *validator.Validate
	sanitizer   *bluemonday.Policy
	allowRepeat bool
	logger      zerolog.Logger
	now         func() time.Time
}

// NewAppealService constructs the appeal service. The db handle scopes the
// resolve write-set to a single transaction. allowRepeat lifts the default
// one-appeal-per-submission policy.
func NewAppealService(db *gorm.DB, appeals repository.AppealRepository, submissions repository.SubmissionRepository, events GradeEventPublisher, validate *validator.Validate, allowRepeat bool, logger zerolog.Logger) AppealService {
	if events == nil {
		events = NewNoopGradeEventPublisher()
	}

	return &appealService{
		db:          db,
		appeals:     appeals,
		submissions: submissions,
		events:      events,
		validator:   validate,
		sanitizer:   bluemonday.StrictPolicy(),
		allowRepeat: allowRepeat,
		logger:      logger.With().Str("component", "appeal_service").Logger(),
		now:         time.Now,
	}
}

func (s *appealService) Open(ctx context.Context, submissionID, studentID uint, comment string) (dto.AppealResponse, error) {
	submission, err := s.submissions.GetByID(ctx, submissionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.AppealResponse{}, ErrSubmissionNotFound
		}
		return dto.AppealResponse{}, err
	}

	if !submission.IsGraded() {
		return dto.AppealResponse{}, ErrNotGraded
	}

	if _, open := submission.OpenAppeal(); open {
		return dto.AppealResponse{}, ErrAppealAlreadyOpen
	}
	if len(submission.Appeals) > 0 && !s.allowRepeat {
		return dto.AppealResponse{}, ErrAppealLimitReached
	}

	clean := s.cleanComment(comment)
	if clean == "" {
		return dto.AppealResponse{}, ErrEmptyComment
	}

	openedAt := s.now()
	appeal := models.Appeal{
		SubmissionID: submission.ID,
		Status:       models.AppealStatusOpen,
		CreatedAt:    openedAt,
		Comments: []models.AppealComment{{
			AuthorID:   studentID,
			AuthorRole: models.AppealRoleStudent,
			Body:       clean,
			CreatedAt:  openedAt,
		}},
	}

	if err := s.appeals.Create(ctx, &appeal); err != nil {
		return dto.AppealResponse{}, err
	}

	// Opening the dispute freezes the submission against resubmission.
	submission.Status = models.SubmissionStatusAppealed
	if err := s.submissions.Update(ctx, &submission); err != nil {
		return dto.AppealResponse{}, err
	}

	observability.Appeals().WithLabelValues("opened").Inc()
	s.logger.Info().
		Uint("appeal_id", appeal.ID).
		Uint("submission_id", submission.ID).
		Msg("appeal opened")

	return dto.NewAppealResponse(appeal), nil
}

func (s *appealService) AddComment(ctx context.Context, appealID, authorID uint, authorRole, body string) (dto.AppealResponse, error) {
	if err := s.validator.Var(authorRole, "oneof=student instructor"); err != nil {
		return dto.AppealResponse{}, err
	}

	appeal, err := s.appeals.GetByID(ctx, appealID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.AppealResponse{}, ErrAppealNotFound
		}
		return dto.AppealResponse{}, err
	}

	if !appeal.IsOpen() {
		return dto.AppealResponse{}, ErrAppealClosed
	}

	clean := s.cleanComment(body)
	if clean == "" {
		return dto.AppealResponse{}, ErrEmptyComment
	}

	comment := models.AppealComment{
		AppealID:   appeal.ID,
		AuthorID:   authorID,
		AuthorRole: authorRole,
		Body:       clean,
		CreatedAt:  s.now(),
	}
	if err := s.appeals.AddComment(ctx, &comment); err != nil {
		return dto.AppealResponse{}, err
	}

	updated, err := s.appeals.GetByID(ctx, appeal.ID)
	if err != nil {
		return dto.AppealResponse{}, err
	}

	observability.Appeals().WithLabelValues("commented").Inc()

	return dto.NewAppealResponse(updated), nil
}

func (s *appealService) Resolve(ctx context.Context, appealID, instructorID uint, comment string, newScore *float64) (dto.AppealResponse, error) {
	tracer := otel.Tracer("github.com/edura/edura-go-api/internal/service/appeal")
	ctx, span := tracer.Start(ctx, "appeal.resolve")
	span.SetAttributes(
		attribute.Int64("appeal.id", int64(appealID)),
		attribute.Int64("appeal.instructor_id", int64(instructorID)),
	)
	defer span.End()

	appeal, err := s.appeals.GetByID(ctx, appealID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			span.SetStatus(codes.Error, "appeal_not_found")
			return dto.AppealResponse{}, ErrAppealNotFound
		}
		span.RecordError(err)
		return dto.AppealResponse{}, err
	}

	if !appeal.IsOpen() {
		span.SetStatus(codes.Error, "appeal_closed")
		return dto.AppealResponse{}, ErrAppealClosed
	}

	clean := s.cleanComment(comment)
	if clean == "" {
		span.SetStatus(codes.Error, "empty_comment")
		return dto.AppealResponse{}, ErrEmptyComment
	}

	submission, err := s.submissions.GetByID(ctx, appeal.SubmissionID)
	if err != nil {
		span.RecordError(err)
		return dto.AppealResponse{}, err
	}

	if newScore != nil && (*newScore < 0 || *newScore > submission.Assignment.Scale()) {
		span.SetStatus(codes.Error, "score_out_of_range")
		return dto.AppealResponse{}, ErrScoreOutOfRange
	}

	// The terminal claim, the resolution comment, the optional override and
	// the submission status flip commit together. Claiming the status first
	// still serializes concurrent resolves: the loser observes zero affected
	// rows and the whole transaction rolls back. A closed appeal must never
	// surface without its resolution comment.
	resolvedAt := s.now()
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txAppeals := repository.NewAppealRepository(tx)
		txSubmissions := repository.NewSubmissionRepository(tx)

		if err := txAppeals.Close(ctx, appeal.ID, models.AppealStatusResolved, instructorID, resolvedAt); err != nil {
			return err
		}

		resolution := models.AppealComment{
			AppealID:   appeal.ID,
			AuthorID:   instructorID,
			AuthorRole: models.AppealRoleInstructor,
			Body:       clean,
			CreatedAt:  resolvedAt,
		}
		if err := txAppeals.AddComment(ctx, &resolution); err != nil {
			return err
		}

		if newScore != nil {
			grading := NewGradingService(txSubmissions, NewNoopGradeEventPublisher(), s.logger)
			if _, err := grading.OverrideGrade(ctx, submission.ID, *newScore, instructorID); err != nil {
				return err
			}
		}

		settled, err := txSubmissions.GetByID(ctx, submission.ID)
		if err != nil {
			return err
		}
		settled.Status = models.SubmissionStatusResolved
		return txSubmissions.Update(ctx, &settled)
	})
	if txErr != nil {
		if errors.Is(txErr, repository.ErrVersionConflict) {
			span.SetStatus(codes.Error, "appeal_closed")
			return dto.AppealResponse{}, ErrAppealClosed
		}
		span.RecordError(txErr)
		return dto.AppealResponse{}, txErr
	}

	s.events.Publish(ctx, GradeEvent{
		Type:         GradeEventAppealResolved,
		SubmissionID: submission.ID,
		AssignmentID: submission.AssignmentID,
		StudentID:    submission.StudentID,
		OldScore:     submission.Score,
		NewScore:     newScore,
		Reason:       models.GradeReasonAppealOverride,
		At:           resolvedAt,
	})

	observability.Appeals().WithLabelValues("resolved").Inc()
	s.logger.Info().
		Uint("appeal_id", appeal.ID).
		Uint("submission_id", submission.ID).
		Bool("score_overridden", newScore != nil).
		Msg("appeal resolved")

	updated, err := s.appeals.GetByID(ctx, appeal.ID)
	if err != nil {
		return dto.AppealResponse{}, err
	}

	return dto.NewAppealResponse(updated), nil
}

// cleanComment strips markup and surrounding whitespace from user-authored text.
func (s *appealService) cleanComment(text string) string {
	return strings.TrimSpace(s.sanitizer.Sanitize(text))
}
