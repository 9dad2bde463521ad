package service_test

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/edura/edura-go-api/internal/models"
	"github.com/edura/edura-go-api/internal/repository"
	"github.com/edura/edura-go-api/internal/service"
)

func setupGradingService(t *testing.T) (service.GradingService, repository.GradeAuditRepository, *gorm.DB) {
	t.Helper()

	db := openTestDB(t)
	logger := zerolog.New(io.Discard)

	submissionRepo := repository.NewSubmissionRepository(db)
	auditRepo := repository.NewGradeAuditRepository(db)
	grading := service.NewGradingService(submissionRepo, nil, logger)

	return grading, auditRepo, db
}

func seedGradedEssaySubmission(t *testing.T, db *gorm.DB, score *float64) models.Submission {
	t.Helper()

	assignment := seedEssayAssignment(t, db, 10, time.Now().Add(time.Hour))
	submission := models.Submission{
		AssignmentID: assignment.ID,
		StudentID:    1,
		CourseID:     assignment.CourseID,
		Status:       models.SubmissionStatusSubmitted,
		Content:      "essay body",
		SubmittedAt:  time.Now(),
		Term:         "2026-spring",
		Version:      1,
	}
	if score != nil {
		now := time.Now()
		submission.Status = models.SubmissionStatusGraded
		submission.Score = score
		submission.GradedAt = &now
	}
	require.NoError(t, db.Create(&submission).Error)

	return submission
}

func TestAutoGradeIsDeterministic(t *testing.T) {
	grading, _, db := setupGradingService(t)
	assignment := seedQuizAssignment(t, db, 10, time.Now().Add(time.Hour))

	submission := models.Submission{
		AssignmentID: assignment.ID,
		StudentID:    1,
		CourseID:     assignment.CourseID,
		Status:       models.SubmissionStatusSubmitted,
		SubmittedAt:  time.Now(),
		Term:         "2026-spring",
		Version:      1,
	}
	submission.SetAnswers([]models.AnswerSelection{
		{QuestionID: assignment.Questions[0].ID, SelectedOptionKey: "A"},
		{QuestionID: assignment.Questions[1].ID, SelectedOptionKey: "A"},
		{QuestionID: assignment.Questions[2].ID, SelectedOptionKey: "A"},
		{QuestionID: assignment.Questions[3].ID, SelectedOptionKey: "B"},
	})
	require.NoError(t, db.Create(&submission).Error)

	require.NoError(t, grading.AutoGrade(context.Background(), &submission, assignment))
	require.NotNil(t, submission.Score)
	require.Equal(t, 7.5, *submission.Score)
	require.Nil(t, submission.GradedBy)
	require.Equal(t, models.SubmissionStatusGraded, submission.Status)

	// Re-scoring the same answers yields the same result.
	require.NoError(t, grading.AutoGrade(context.Background(), &submission, assignment))
	require.Equal(t, 7.5, *submission.Score)
}

func TestAutoGradeRejectsNonQuiz(t *testing.T) {
	grading, _, db := setupGradingService(t)
	assignment := seedEssayAssignment(t, db, 10, time.Now().Add(time.Hour))

	submission := models.Submission{AssignmentID: assignment.ID}
	err := grading.AutoGrade(context.Background(), &submission, assignment)
	require.ErrorIs(t, err, service.ErrInvalidState)
}

func TestManualGradeOutOfRange(t *testing.T) {
	grading, _, db := setupGradingService(t)
	submission := seedGradedEssaySubmission(t, db, nil)

	_, err := grading.ManualGrade(context.Background(), submission.ID, 10.5, 7)
	require.ErrorIs(t, err, service.ErrScoreOutOfRange)

	_, err = grading.ManualGrade(context.Background(), submission.ID, -0.5, 7)
	require.ErrorIs(t, err, service.ErrScoreOutOfRange)
}

func TestManualGradeUnknownSubmission(t *testing.T) {
	grading, _, _ := setupGradingService(t)

	_, err := grading.ManualGrade(context.Background(), 999, 5, 7)
	require.ErrorIs(t, err, service.ErrSubmissionNotFound)
}

func TestManualGradeRecordsAuditTrail(t *testing.T) {
	grading, audits, db := setupGradingService(t)
	submission := seedGradedEssaySubmission(t, db, nil)

	graded, err := grading.ManualGrade(context.Background(), submission.ID, 6, 7)
	require.NoError(t, err)
	require.NotNil(t, graded.Grade)
	require.Equal(t, 6.0, graded.Grade.Score)
	require.Equal(t, "7", graded.Grade.GradedBy)

	// Re-grading overwrites the visible score but appends to the trail.
	regraded, err := grading.ManualGrade(context.Background(), submission.ID, 8, 7)
	require.NoError(t, err)
	require.Equal(t, 8.0, regraded.Grade.Score)

	entries, err := audits.ListBySubmission(context.Background(), submission.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	require.Nil(t, entries[0].OldScore)
	require.Equal(t, 6.0, entries[0].NewScore)
	require.Equal(t, models.GradeReasonManual, entries[0].Reason)

	require.NotNil(t, entries[1].OldScore)
	require.Equal(t, 6.0, *entries[1].OldScore)
	require.Equal(t, 8.0, entries[1].NewScore)
}

func TestManualGradeFailsWhenAuditWriteFails(t *testing.T) {
	grading, _, db := setupGradingService(t)
	submission := seedGradedEssaySubmission(t, db, nil)

	// With the audit table gone the trail insert fails; the grade must
	// roll back with it rather than commit unaudited.
	require.NoError(t, db.Migrator().DropTable(&models.GradeAuditLog{}))

	_, err := grading.ManualGrade(context.Background(), submission.ID, 6, 7)
	require.Error(t, err)

	var reloaded models.Submission
	require.NoError(t, db.First(&reloaded, submission.ID).Error)
	require.Nil(t, reloaded.Score)
	require.Equal(t, models.SubmissionStatusSubmitted, reloaded.Status)
}

func TestManualGradeFrozenSubmission(t *testing.T) {
	grading, _, db := setupGradingService(t)
	score := 5.0
	submission := seedGradedEssaySubmission(t, db, &score)

	require.NoError(t, db.Model(&models.Submission{}).
		Where("id = ?", submission.ID).
		Update("status", models.SubmissionStatusAppealed).Error)

	_, err := grading.ManualGrade(context.Background(), submission.ID, 9, 7)
	require.ErrorIs(t, err, service.ErrInvalidState)
}

func TestOverrideGradeAllowsFrozenSubmission(t *testing.T) {
	grading, audits, db := setupGradingService(t)
	score := 5.0
	submission := seedGradedEssaySubmission(t, db, &score)

	require.NoError(t, db.Model(&models.Submission{}).
		Where("id = ?", submission.ID).
		Update("status", models.SubmissionStatusAppealed).Error)

	overridden, err := grading.OverrideGrade(context.Background(), submission.ID, 8.5, 7)
	require.NoError(t, err)
	require.Equal(t, 8.5, overridden.Grade.Score)

	entries, err := audits.ListBySubmission(context.Background(), submission.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, models.GradeReasonAppealOverride, entries[0].Reason)
	require.NotNil(t, entries[0].OldScore)
	require.Equal(t, 5.0, *entries[0].OldScore)
}
