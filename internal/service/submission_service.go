package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/edura/edura-go-api/internal/dto"
	"github.com/edura/edura-go-api/internal/models"
	"github.com/edura/edura-go-api/internal/observability"
	"github.com/edura/edura-go-api/internal/repository"
)

// ErrAssignmentNotFound indicates the assignment could not be located.
var ErrAssignmentNotFound = errors.New("assignment not found")

// ErrSubmissionNotFound indicates a submission could not be located.
var ErrSubmissionNotFound = errors.New("submission not found")

// ErrDeadlinePassed indicates the assignment deadline rejected the write.
var ErrDeadlinePassed = errors.New("assignment deadline has passed")

// ErrInvalidPayload indicates the payload shape does not match the assignment kind.
var ErrInvalidPayload = errors.New("payload does not match assignment")

// ErrNotEnrolled indicates the student has no enrollment for the course.
var ErrNotEnrolled = errors.New("student is not enrolled in the course")

// SubmissionService owns the submit/resubmit lifecycle. A (assignment,
// student) pair has at most one live submission; submitting again mutates it
// in place instead of creating a second record.
type SubmissionService interface {
	Submit(ctx context.Context, payload dto.SubmitRequest) (dto.SubmissionResponse, error)
	Resubmit(ctx context.Context, submissionID uint, payload dto.ResubmitRequest) (dto.SubmissionResponse, error)
	Get(ctx context.Context, submissionID uint) (dto.SubmissionResponse, error)
	ListByAssignment(ctx context.Context, assignmentID uint) ([]dto.SubmissionResponse, error)
	ListByStudentAndCourse(ctx context.Context, studentID, courseID uint) ([]dto.SubmissionResponse, error)
}

type submissionService struct {
	submissions repository.SubmissionRepository
	assignments repository.AssignmentRepository
	enrollments repository.EnrollmentRepository
	grading     GradingService
	validator   *validator.Validate
	logger      zerolog.Logger
	now         func() time.Time
}

// NewSubmissionService constructs a SubmissionService instance.
func NewSubmissionService(submissions repository.SubmissionRepository, assignments repository.AssignmentRepository, enrollments repository.EnrollmentRepository, grading GradingService, validate *validator.Validate, logger zerolog.Logger) SubmissionService {
	return &submissionService{
		submissions: submissions,
		assignments: assignments,
		enrollments: enrollments,
		grading:     grading,
		validator:   validate,
		logger:      logger.With().Str("component", "submission_service").Logger(),
		now:         time.Now,
	}
}

func (s *submissionService) Submit(ctx context.Context, payload dto.SubmitRequest) (dto.SubmissionResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.SubmissionResponse{}, err
	}

	assignment, err := s.assignments.GetByID(ctx, payload.AssignmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SubmissionResponse{}, ErrAssignmentNotFound
		}
		return dto.SubmissionResponse{}, err
	}

	if !CanSubmit(assignment, s.now()) {
		return dto.SubmissionResponse{}, ErrDeadlinePassed
	}

	content, answers, err := validatePayloadShape(assignment, payload.Content, payload.Answers)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}

	// A live submission for this pair redirects to resubmit semantics.
	existing, err := s.submissions.GetByPair(ctx, payload.AssignmentID, payload.StudentID)
	if err == nil {
		return s.applyResubmit(ctx, existing, assignment, content, answers)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return dto.SubmissionResponse{}, err
	}

	term, err := s.snapshotTerm(ctx, payload.StudentID, assignment.CourseID)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}

	submission := models.Submission{
		AssignmentID: assignment.ID,
		StudentID:    payload.StudentID,
		CourseID:     assignment.CourseID,
		Status:       models.SubmissionStatusSubmitted,
		Content:      content,
		SubmittedAt:  s.now(),
		Term:         term,
		Version:      1,
	}
	submission.SetAnswers(answers)

	if err := s.submissions.Create(ctx, &submission); err != nil {
		return dto.SubmissionResponse{}, err
	}

	if assignment.IsQuiz() {
		if err := s.grading.AutoGrade(ctx, &submission, assignment); err != nil {
			return dto.SubmissionResponse{}, err
		}
	}

	created, err := s.submissions.GetByID(ctx, submission.ID)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}

	observability.Submissions().WithLabelValues(assignment.Kind, "submit").Inc()
	s.logger.Info().
		Uint("submission_id", created.ID).
		Uint("assignment_id", assignment.ID).
		Str("term", term).
		Msg("submission created")

	return dto.NewSubmissionResponse(created), nil
}

func (s *submissionService) Resubmit(ctx context.Context, submissionID uint, payload dto.ResubmitRequest) (dto.SubmissionResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.SubmissionResponse{}, err
	}

	submission, err := s.submissions.GetByID(ctx, submissionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SubmissionResponse{}, ErrSubmissionNotFound
		}
		return dto.SubmissionResponse{}, err
	}

	assignment, err := s.assignments.GetByID(ctx, submission.AssignmentID)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}

	// Checked against the original assignment deadline; resubmission earns
	// no grace window.
	if !CanSubmit(assignment, s.now()) {
		return dto.SubmissionResponse{}, ErrDeadlinePassed
	}

	content, answers, err := validatePayloadShape(assignment, payload.Content, payload.Answers)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}

	return s.applyResubmit(ctx, submission, assignment, content, answers)
}

func (s *submissionService) applyResubmit(ctx context.Context, submission models.Submission, assignment models.Assignment, content string, answers []models.AnswerSelection) (dto.SubmissionResponse, error) {
	if submission.IsFrozen() {
		return dto.SubmissionResponse{}, ErrInvalidState
	}

	expected := submission.Version
	submission.Content = content
	submission.SetAnswers(answers)
	submission.Version = expected + 1
	submission.SubmittedAt = s.now()

	if err := s.submissions.UpdateVersioned(ctx, &submission, expected); err != nil {
		return dto.SubmissionResponse{}, err
	}

	// Quizzes are re-scored on every resubmission, overwriting the previous
	// grade. Essay grades are left untouched so instructor-entered scores
	// never reset silently.
	if assignment.IsQuiz() {
		if err := s.grading.AutoGrade(ctx, &submission, assignment); err != nil {
			return dto.SubmissionResponse{}, err
		}
	}

	updated, err := s.submissions.GetByID(ctx, submission.ID)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}

	observability.Submissions().WithLabelValues(assignment.Kind, "resubmit").Inc()
	s.logger.Info().
		Uint("submission_id", updated.ID).
		Int("version", updated.Version).
		Msg("submission replaced")

	return dto.NewSubmissionResponse(updated), nil
}

func (s *submissionService) Get(ctx context.Context, submissionID uint) (dto.SubmissionResponse, error) {
	submission, err := s.submissions.GetByID(ctx, submissionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SubmissionResponse{}, ErrSubmissionNotFound
		}
		return dto.SubmissionResponse{}, err
	}

	return dto.NewSubmissionResponse(submission), nil
}

func (s *submissionService) ListByAssignment(ctx context.Context, assignmentID uint) ([]dto.SubmissionResponse, error) {
	submissions, err := s.submissions.ListByAssignment(ctx, assignmentID)
	if err != nil {
		return nil, err
	}

	return dto.NewSubmissionResponseSlice(submissions), nil
}

func (s *submissionService) ListByStudentAndCourse(ctx context.Context, studentID, courseID uint) ([]dto.SubmissionResponse, error) {
	submissions, err := s.submissions.ListByStudentAndCourse(ctx, studentID, courseID)
	if err != nil {
		return nil, err
	}

	return dto.NewSubmissionResponseSlice(submissions), nil
}

// snapshotTerm records the enrollment term active at submission time. The
// latest enrollment for the course wins.
func (s *submissionService) snapshotTerm(ctx context.Context, studentID, courseID uint) (string, error) {
	history, err := s.enrollments.ListByStudentAndCourse(ctx, studentID, courseID)
	if err != nil {
		return "", err
	}

	latest, ok := LatestEnrollment(history, courseID)
	if !ok {
		return "", ErrNotEnrolled
	}

	return latest.Term, nil
}

// validatePayloadShape enforces the tagged-union payload contract: essay
// submissions carry content, quiz submissions carry answers referencing only
// questions and option keys that exist on the assignment.
func validatePayloadShape(assignment models.Assignment, content *string, answers []dto.AnswerInput) (string, []models.AnswerSelection, error) {
	if assignment.IsQuiz() {
		if content != nil {
			return "", nil, fmt.Errorf("%w: quiz submissions carry answers, not content", ErrInvalidPayload)
		}

		seen := make(map[uint]struct{}, len(answers))
		selections := make([]models.AnswerSelection, 0, len(answers))
		for _, answer := range answers {
			question, ok := assignment.QuestionByID(answer.QuestionID)
			if !ok {
				return "", nil, fmt.Errorf("%w: unknown question %d", ErrInvalidPayload, answer.QuestionID)
			}
			if !question.HasOption(answer.SelectedOptionKey) {
				return "", nil, fmt.Errorf("%w: unknown option %q for question %d", ErrInvalidPayload, answer.SelectedOptionKey, answer.QuestionID)
			}
			if _, dup := seen[answer.QuestionID]; dup {
				return "", nil, fmt.Errorf("%w: duplicate answer for question %d", ErrInvalidPayload, answer.QuestionID)
			}
			seen[answer.QuestionID] = struct{}{}
			selections = append(selections, models.AnswerSelection{
				QuestionID:        answer.QuestionID,
				SelectedOptionKey: answer.SelectedOptionKey,
			})
		}

		return "", selections, nil
	}

	if len(answers) > 0 {
		return "", nil, fmt.Errorf("%w: essay submissions carry content, not answers", ErrInvalidPayload)
	}
	if content == nil || strings.TrimSpace(*content) == "" {
		return "", nil, fmt.Errorf("%w: essay content is required", ErrInvalidPayload)
	}

	return *content, nil, nil
}
