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

	"github.com/edura/edura-go-api/internal/models"
	"github.com/edura/edura-go-api/internal/repository"
	"github.com/edura/edura-go-api/internal/service"
)

type appealFixture struct {
	appeals     service.AppealService
	submissions repository.SubmissionRepository
	audits      repository.GradeAuditRepository
	db          *gorm.DB
}

func setupAppealService(t *testing.T, allowRepeat bool) appealFixture {
	t.Helper()

	db := openTestDB(t)
	validate := validator.New(validator.WithRequiredStructEnabled())
	logger := zerolog.New(io.Discard)

	submissionRepo := repository.NewSubmissionRepository(db)
	appealRepo := repository.NewAppealRepository(db)
	auditRepo := repository.NewGradeAuditRepository(db)

	appeals := service.NewAppealService(db, appealRepo, submissionRepo, nil, validate, allowRepeat, logger)

	return appealFixture{
		appeals:     appeals,
		submissions: submissionRepo,
		audits:      auditRepo,
		db:          db,
	}
}

func (f appealFixture) seedGraded(t *testing.T, score float64) models.Submission {
	t.Helper()

	submission := seedGradedEssaySubmission(t, f.db, &score)
	return submission
}

func TestOpenAppealRequiresGrade(t *testing.T) {
	f := setupAppealService(t, false)
	submission := seedGradedEssaySubmission(t, f.db, nil)

	_, err := f.appeals.Open(context.Background(), submission.ID, 1, "please review")
	require.ErrorIs(t, err, service.ErrNotGraded)
}

func TestOpenAppealRejectsEmptyComment(t *testing.T) {
	f := setupAppealService(t, false)
	submission := f.seedGraded(t, 5)

	_, err := f.appeals.Open(context.Background(), submission.ID, 1, "   ")
	require.ErrorIs(t, err, service.ErrEmptyComment)

	// Markup-only comments sanitize down to nothing.
	_, err = f.appeals.Open(context.Background(), submission.ID, 1, "<script>alert(1)</script>")
	require.ErrorIs(t, err, service.ErrEmptyComment)
}

func TestOpenAppealFreezesSubmission(t *testing.T) {
	f := setupAppealService(t, false)
	submission := f.seedGraded(t, 5)

	appeal, err := f.appeals.Open(context.Background(), submission.ID, 1, "the rubric was misapplied")
	require.NoError(t, err)
	require.Equal(t, models.AppealStatusOpen, appeal.Status)
	require.Len(t, appeal.Comments, 1)
	require.Equal(t, models.AppealRoleStudent, appeal.Comments[0].Role)

	frozen, err := f.submissions.GetByID(context.Background(), submission.ID)
	require.NoError(t, err)
	require.Equal(t, models.SubmissionStatusAppealed, frozen.Status)
	require.True(t, frozen.IsFrozen())
}

func TestOpenAppealTwiceRejected(t *testing.T) {
	f := setupAppealService(t, false)
	submission := f.seedGraded(t, 5)

	_, err := f.appeals.Open(context.Background(), submission.ID, 1, "first")
	require.NoError(t, err)

	_, err = f.appeals.Open(context.Background(), submission.ID, 1, "second")
	require.ErrorIs(t, err, service.ErrAppealAlreadyOpen)
}

func TestAddCommentToThread(t *testing.T) {
	f := setupAppealService(t, false)
	submission := f.seedGraded(t, 5)

	appeal, err := f.appeals.Open(context.Background(), submission.ID, 1, "initial complaint")
	require.NoError(t, err)

	updated, err := f.appeals.AddComment(context.Background(), appeal.ID, 7, models.AppealRoleInstructor, "looking into it")
	require.NoError(t, err)
	require.Len(t, updated.Comments, 2)
	require.Equal(t, models.AppealRoleInstructor, updated.Comments[1].Role)
	require.Equal(t, "looking into it", updated.Comments[1].Text)
}

func TestAddCommentRejectsUnknownRole(t *testing.T) {
	f := setupAppealService(t, false)
	submission := f.seedGraded(t, 5)

	appeal, err := f.appeals.Open(context.Background(), submission.ID, 1, "complaint")
	require.NoError(t, err)

	_, err = f.appeals.AddComment(context.Background(), appeal.ID, 7, "admin", "hi")
	require.Error(t, err)
}

func TestResolveAppealWithScoreOverride(t *testing.T) {
	f := setupAppealService(t, false)
	submission := f.seedGraded(t, 5)

	appeal, err := f.appeals.Open(context.Background(), submission.ID, 1, "undercounted")
	require.NoError(t, err)

	newScore := 8.5
	resolved, err := f.appeals.Resolve(context.Background(), appeal.ID, 7, "agreed, recounted", &newScore)
	require.NoError(t, err)
	require.Equal(t, models.AppealStatusResolved, resolved.Status)
	require.NotNil(t, resolved.ResolvedAt)
	require.Len(t, resolved.Comments, 2)

	settled, err := f.submissions.GetByID(context.Background(), submission.ID)
	require.NoError(t, err)
	require.Equal(t, models.SubmissionStatusResolved, settled.Status)
	require.NotNil(t, settled.Score)
	require.Equal(t, 8.5, *settled.Score)

	entries, err := f.audits.ListBySubmission(context.Background(), submission.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, models.GradeReasonAppealOverride, entries[0].Reason)
	require.NotNil(t, entries[0].OldScore)
	require.Equal(t, 5.0, *entries[0].OldScore)
	require.Equal(t, 8.5, entries[0].NewScore)
}

func TestResolveAppealWithoutScoreKeepsGrade(t *testing.T) {
	f := setupAppealService(t, false)
	submission := f.seedGraded(t, 5)

	appeal, err := f.appeals.Open(context.Background(), submission.ID, 1, "please recheck")
	require.NoError(t, err)

	resolved, err := f.appeals.Resolve(context.Background(), appeal.ID, 7, "grade stands", nil)
	require.NoError(t, err)
	require.Equal(t, models.AppealStatusResolved, resolved.Status)

	settled, err := f.submissions.GetByID(context.Background(), submission.ID)
	require.NoError(t, err)
	require.Equal(t, models.SubmissionStatusResolved, settled.Status)
	require.Equal(t, 5.0, *settled.Score)

	entries, err := f.audits.ListBySubmission(context.Background(), submission.ID)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestResolveRollsBackWhenOverrideFails(t *testing.T) {
	f := setupAppealService(t, false)
	submission := f.seedGraded(t, 5)

	appeal, err := f.appeals.Open(context.Background(), submission.ID, 1, "undercounted")
	require.NoError(t, err)

	// The override's audit insert fails mid-resolve; the terminal claim and
	// the resolution comment must roll back with it. A resolved appeal with
	// no instructor comment must never be observable.
	require.NoError(t, f.db.Migrator().DropTable(&models.GradeAuditLog{}))

	newScore := 8.5
	_, err = f.appeals.Resolve(context.Background(), appeal.ID, 7, "agreed, recounted", &newScore)
	require.Error(t, err)

	var status string
	require.NoError(t, f.db.Model(&models.Appeal{}).
		Where("id = ?", appeal.ID).
		Pluck("status", &status).Error)
	require.Equal(t, models.AppealStatusOpen, status)

	var comments int64
	require.NoError(t, f.db.Model(&models.AppealComment{}).
		Where("appeal_id = ?", appeal.ID).
		Count(&comments).Error)
	require.EqualValues(t, 1, comments)

	frozen, err := f.submissions.GetByID(context.Background(), submission.ID)
	require.NoError(t, err)
	require.Equal(t, models.SubmissionStatusAppealed, frozen.Status)
	require.Equal(t, 5.0, *frozen.Score)

	// The thread is still open, so resolving without an override succeeds.
	resolved, err := f.appeals.Resolve(context.Background(), appeal.ID, 7, "grade stands", nil)
	require.NoError(t, err)
	require.Equal(t, models.AppealStatusResolved, resolved.Status)
	require.Len(t, resolved.Comments, 2)
}

func TestResolveRejectsOutOfRangeScore(t *testing.T) {
	f := setupAppealService(t, false)
	submission := f.seedGraded(t, 5)

	appeal, err := f.appeals.Open(context.Background(), submission.ID, 1, "complaint")
	require.NoError(t, err)

	tooHigh := 11.0
	_, err = f.appeals.Resolve(context.Background(), appeal.ID, 7, "comment", &tooHigh)
	require.ErrorIs(t, err, service.ErrScoreOutOfRange)
}

func TestClosedThreadIsImmutable(t *testing.T) {
	f := setupAppealService(t, false)
	submission := f.seedGraded(t, 5)

	appeal, err := f.appeals.Open(context.Background(), submission.ID, 1, "complaint")
	require.NoError(t, err)

	_, err = f.appeals.Resolve(context.Background(), appeal.ID, 7, "grade stands", nil)
	require.NoError(t, err)

	_, err = f.appeals.AddComment(context.Background(), appeal.ID, 1, models.AppealRoleStudent, "but wait")
	require.ErrorIs(t, err, service.ErrAppealClosed)

	_, err = f.appeals.Resolve(context.Background(), appeal.ID, 7, "again", nil)
	require.ErrorIs(t, err, service.ErrAppealClosed)
}

func TestRepeatAppealPolicy(t *testing.T) {
	t.Run("default denies a second appeal", func(t *testing.T) {
		f := setupAppealService(t, false)
		submission := f.seedGraded(t, 5)

		appeal, err := f.appeals.Open(context.Background(), submission.ID, 1, "first")
		require.NoError(t, err)
		_, err = f.appeals.Resolve(context.Background(), appeal.ID, 7, "grade stands", nil)
		require.NoError(t, err)

		_, err = f.appeals.Open(context.Background(), submission.ID, 1, "second")
		require.ErrorIs(t, err, service.ErrAppealLimitReached)
	})

	t.Run("allow_repeat lifts the limit", func(t *testing.T) {
		f := setupAppealService(t, true)
		submission := f.seedGraded(t, 5)

		appeal, err := f.appeals.Open(context.Background(), submission.ID, 1, "first")
		require.NoError(t, err)
		_, err = f.appeals.Resolve(context.Background(), appeal.ID, 7, "grade stands", nil)
		require.NoError(t, err)

		second, err := f.appeals.Open(context.Background(), submission.ID, 1, "second")
		require.NoError(t, err)
		require.Equal(t, models.AppealStatusOpen, second.Status)
	})
}

func TestResolutionCommentTimestampMatchesClosure(t *testing.T) {
	f := setupAppealService(t, false)
	submission := f.seedGraded(t, 5)

	appeal, err := f.appeals.Open(context.Background(), submission.ID, 1, "complaint")
	require.NoError(t, err)

	resolved, err := f.appeals.Resolve(context.Background(), appeal.ID, 7, "final word", nil)
	require.NoError(t, err)
	require.NotNil(t, resolved.ResolvedAt)

	last := resolved.Comments[len(resolved.Comments)-1]
	require.False(t, last.At.After(*resolved.ResolvedAt))
	require.WithinDuration(t, *resolved.ResolvedAt, last.At, time.Second)
}
