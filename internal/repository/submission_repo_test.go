package repository_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/edura/edura-go-api/internal/models"
	"github.com/edura/edura-go-api/internal/repository"
)

func openRepoDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Assignment{},
		&models.Question{},
		&models.QuestionOption{},
		&models.Submission{},
		&models.Appeal{},
		&models.AppealComment{},
		&models.GradeAuditLog{},
	))

	return db
}

func seedSubmission(t *testing.T, db *gorm.DB) models.Submission {
	t.Helper()

	assignment := models.Assignment{
		CourseID: 10,
		Title:    "Essay",
		Kind:     models.AssignmentKindEssay,
		DueAt:    time.Now().Add(time.Hour),
	}
	require.NoError(t, db.Create(&assignment).Error)

	submission := models.Submission{
		AssignmentID: assignment.ID,
		StudentID:    1,
		CourseID:     10,
		Status:       models.SubmissionStatusSubmitted,
		Content:      "v1",
		SubmittedAt:  time.Now(),
		Term:         "2026-spring",
		Version:      1,
	}
	require.NoError(t, db.Create(&submission).Error)

	return submission
}

func TestUpdateVersionedAppliesOnMatchingVersion(t *testing.T) {
	db := openRepoDB(t)
	repo := repository.NewSubmissionRepository(db)
	submission := seedSubmission(t, db)

	submission.Content = "v2"
	submission.Version = 2
	require.NoError(t, repo.UpdateVersioned(context.Background(), &submission, 1))

	stored, err := repo.GetByID(context.Background(), submission.ID)
	require.NoError(t, err)
	require.Equal(t, "v2", stored.Content)
	require.Equal(t, 2, stored.Version)
}

func TestUpdateVersionedRejectsStaleVersion(t *testing.T) {
	db := openRepoDB(t)
	repo := repository.NewSubmissionRepository(db)
	submission := seedSubmission(t, db)

	// A concurrent writer already advanced the row.
	winner := submission
	winner.Content = "winner"
	winner.Version = 2
	require.NoError(t, repo.UpdateVersioned(context.Background(), &winner, 1))

	loser := submission
	loser.Content = "loser"
	loser.Version = 2
	err := repo.UpdateVersioned(context.Background(), &loser, 1)
	require.ErrorIs(t, err, repository.ErrVersionConflict)

	stored, err := repo.GetByID(context.Background(), submission.ID)
	require.NoError(t, err)
	require.Equal(t, "winner", stored.Content)
}

func TestUpdateWithAuditPersistsBoth(t *testing.T) {
	db := openRepoDB(t)
	repo := repository.NewSubmissionRepository(db)
	submission := seedSubmission(t, db)

	score := 6.0
	submission.Score = &score
	submission.Status = models.SubmissionStatusGraded
	entry := models.GradeAuditLog{
		SubmissionID: submission.ID,
		NewScore:     score,
		Reason:       models.GradeReasonManual,
	}
	require.NoError(t, repo.UpdateWithAudit(context.Background(), &submission, &entry))

	stored, err := repo.GetByID(context.Background(), submission.ID)
	require.NoError(t, err)
	require.Equal(t, 6.0, *stored.Score)

	var trail int64
	require.NoError(t, db.Model(&models.GradeAuditLog{}).
		Where("submission_id = ?", submission.ID).
		Count(&trail).Error)
	require.EqualValues(t, 1, trail)
}

func TestUpdateWithAuditRollsBackOnAuditFailure(t *testing.T) {
	db := openRepoDB(t)
	repo := repository.NewSubmissionRepository(db)
	submission := seedSubmission(t, db)

	require.NoError(t, db.Migrator().DropTable(&models.GradeAuditLog{}))

	score := 6.0
	mutated := submission
	mutated.Score = &score
	mutated.Status = models.SubmissionStatusGraded
	entry := models.GradeAuditLog{
		SubmissionID: submission.ID,
		NewScore:     score,
		Reason:       models.GradeReasonManual,
	}
	err := repo.UpdateWithAudit(context.Background(), &mutated, &entry)
	require.Error(t, err)

	stored, err := repo.GetByID(context.Background(), submission.ID)
	require.NoError(t, err)
	require.Nil(t, stored.Score)
	require.Equal(t, models.SubmissionStatusSubmitted, stored.Status)
}

func TestGetByPair(t *testing.T) {
	db := openRepoDB(t)
	repo := repository.NewSubmissionRepository(db)
	submission := seedSubmission(t, db)

	found, err := repo.GetByPair(context.Background(), submission.AssignmentID, submission.StudentID)
	require.NoError(t, err)
	require.Equal(t, submission.ID, found.ID)

	_, err = repo.GetByPair(context.Background(), submission.AssignmentID, 999)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
