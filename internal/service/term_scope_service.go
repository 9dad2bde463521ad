package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/edura/edura-go-api/internal/dto"
	"github.com/edura/edura-go-api/internal/models"
	"github.com/edura/edura-go-api/internal/repository"
)

// TermScope classifies a submission's term relative to the student's latest
// enrollment for the course.
type TermScope string

// Possible term scopes.
const (
	TermScopeCurrent  TermScope = "current"
	TermScopePrevious TermScope = "previous"
)

// LatestEnrollment picks the enrollment with the most recent enrolledAt for
// the given course. Ties are broken by insertion order (a later record wins),
// which should not occur given the uniqueness of (student, course, term).
func LatestEnrollment(history []models.Enrollment, courseID uint) (models.Enrollment, bool) {
	var latest models.Enrollment
	found := false
	for _, enrollment := range history {
		if enrollment.CourseID != courseID {
			continue
		}
		if !found || !enrollment.EnrolledAt.Before(latest.EnrolledAt) {
			latest = enrollment
			found = true
		}
	}

	return latest, found
}

// Classify compares the submission's snapshotted term against the student's
// latest enrollment term for the course. The second return value is false
// when no enrollment exists at all: such orphaned submissions belong to
// neither partition.
func Classify(submission models.Submission, history []models.Enrollment) (TermScope, bool) {
	latest, ok := LatestEnrollment(history, submission.CourseID)
	if !ok {
		return "", false
	}

	if submission.Term == latest.Term {
		return TermScopeCurrent, true
	}

	return TermScopePrevious, true
}

// Partition applies Classify to every submission. Orphaned submissions are
// dropped rather than defaulted into either bucket.
func Partition(submissions []models.Submission, history []models.Enrollment) (current []models.Submission, previous map[string][]models.Submission) {
	previous = make(map[string][]models.Submission)
	for _, submission := range submissions {
		scope, ok := Classify(submission, history)
		if !ok {
			continue
		}
		if scope == TermScopeCurrent {
			current = append(current, submission)
			continue
		}
		previous[submission.Term] = append(previous[submission.Term], submission)
	}

	return current, previous
}

// TermScopeService serves the read side of grade overviews: submissions
// partitioned by term with per-term aggregates.
type TermScopeService interface {
	GradeOverview(ctx context.Context, studentID, courseID uint) (dto.GradeOverviewResponse, error)
}

type termScopeService struct {
	submissions repository.SubmissionRepository
	enrollments repository.EnrollmentRepository
	cache       *redis.Client
	cacheTTL    time.Duration
	logger      zerolog.Logger
}

// NewTermScopeService builds the overview aggregator.
func NewTermScopeService(submissions repository.SubmissionRepository, enrollments repository.EnrollmentRepository, cache *redis.Client, ttl time.Duration, logger zerolog.Logger) TermScopeService {
	return &termScopeService{
		submissions: submissions,
		enrollments: enrollments,
		cache:       cache,
		cacheTTL:    ttl,
		logger:      logger.With().Str("component", "term_scope_service").Logger(),
	}
}

func (s *termScopeService) GradeOverview(ctx context.Context, studentID, courseID uint) (dto.GradeOverviewResponse, error) {
	cacheKey := fmt.Sprintf("overview:student:%d:course:%d", studentID, courseID)

	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, cacheKey).Result(); err == nil {
			var response dto.GradeOverviewResponse
			if unmarshalErr := json.Unmarshal([]byte(cached), &response); unmarshalErr == nil {
				s.logger.Debug().Uint("student_id", studentID).Msg("overview cache hit")
				return response, nil
			}
		} else if err != redis.Nil {
			s.logger.Warn().Err(err).Msg("failed to read overview cache")
		}
	}

	history, err := s.enrollments.ListByStudentAndCourse(ctx, studentID, courseID)
	if err != nil {
		return dto.GradeOverviewResponse{}, err
	}

	submissions, err := s.submissions.ListByStudentAndCourse(ctx, studentID, courseID)
	if err != nil {
		return dto.GradeOverviewResponse{}, err
	}

	response := buildOverview(studentID, courseID, submissions, history)

	if s.cache != nil {
		if payload, err := json.Marshal(response); err == nil {
			if err := s.cache.Set(ctx, cacheKey, payload, s.cacheTTL).Err(); err != nil {
				s.logger.Warn().Err(err).Msg("failed to store overview cache")
			}
		}
	}

	return response, nil
}

func buildOverview(studentID, courseID uint, submissions []models.Submission, history []models.Enrollment) dto.GradeOverviewResponse {
	response := dto.GradeOverviewResponse{
		StudentID: studentID,
		CourseID:  courseID,
	}

	if latest, ok := LatestEnrollment(history, courseID); ok {
		response.CurrentTerm = latest.Term
	}

	current, previous := Partition(submissions, history)
	response.Current = dto.NewSubmissionResponseSlice(current)

	terms := make([]string, 0, len(previous))
	for term := range previous {
		terms = append(terms, term)
	}
	sort.Strings(terms)

	for _, term := range terms {
		group := previous[term]
		response.Previous = append(response.Previous, dto.TermGroup{
			Term:         term,
			Count:        len(group),
			AverageScore: averageScore(group),
			Items:        dto.NewSubmissionResponseSlice(group),
		})
	}

	return response
}

// averageScore averages over graded submissions only; nil when none are graded.
func averageScore(submissions []models.Submission) *float64 {
	var total float64
	graded := 0
	for _, submission := range submissions {
		if submission.Score != nil {
			total += *submission.Score
			graded++
		}
	}

	if graded == 0 {
		return nil
	}

	average := total / float64(graded)
	return &average
}
