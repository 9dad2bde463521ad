package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/edura/edura-go-api/internal/models"
)

// ErrVersionConflict indicates a concurrent writer updated the submission first.
var ErrVersionConflict = errors.New("submission modified concurrently")

// SubmissionRepository defines data operations for submissions.
type SubmissionRepository interface {
	GetByID(ctx context.Context, id uint) (models.Submission, error)
	GetByPair(ctx context.Context, assignmentID, studentID uint) (models.Submission, error)
	ListByAssignment(ctx context.Context, assignmentID uint) ([]models.Submission, error)
	ListByStudentAndCourse(ctx context.Context, studentID, courseID uint) ([]models.Submission, error)
	Create(ctx context.Context, submission *models.Submission) error
	Update(ctx context.Context, submission *models.Submission) error
	UpdateVersioned(ctx context.Context, submission *models.Submission, expectedVersion int) error
	UpdateWithAudit(ctx context.Context, submission *models.Submission, entry *models.GradeAuditLog) error
}

type submissionRepository struct {
	db *gorm.DB
}

// NewSubmissionRepository instantiates the repository.
func NewSubmissionRepository(db *gorm.DB) SubmissionRepository {
	return &submissionRepository{db: db}
}

func (r *submissionRepository) baseQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.Submission{}).
		Preload("Assignment").
		Preload("Assignment.Questions").
		Preload("Assignment.Questions.Options").
		Preload("Appeals", func(db *gorm.DB) *gorm.DB {
			return db.Order("appeals.created_at ASC")
		}).
		Preload("Appeals.Comments", func(db *gorm.DB) *gorm.DB {
			return db.Order("appeal_comments.created_at ASC")
		})
}

func (r *submissionRepository) GetByID(ctx context.Context, id uint) (models.Submission, error) {
	var submission models.Submission
	if err := r.baseQuery(ctx).First(&submission, id).Error; err != nil {
		return models.Submission{}, err
	}

	return submission, nil
}

func (r *submissionRepository) GetByPair(ctx context.Context, assignmentID, studentID uint) (models.Submission, error) {
	var submission models.Submission
	if err := r.baseQuery(ctx).
		Where("assignment_id = ?", assignmentID).
		Where("student_id = ?", studentID).
		First(&submission).Error; err != nil {
		return models.Submission{}, err
	}

	return submission, nil
}

func (r *submissionRepository) ListByAssignment(ctx context.Context, assignmentID uint) ([]models.Submission, error) {
	var submissions []models.Submission
	if err := r.baseQuery(ctx).
		Where("assignment_id = ?", assignmentID).
		Order("id ASC").
		Find(&submissions).Error; err != nil {
		return nil, err
	}

	return submissions, nil
}

func (r *submissionRepository) ListByStudentAndCourse(ctx context.Context, studentID, courseID uint) ([]models.Submission, error) {
	var submissions []models.Submission
	if err := r.baseQuery(ctx).
		Where("student_id = ?", studentID).
		Where("course_id = ?", courseID).
		Order("id ASC").
		Find(&submissions).Error; err != nil {
		return nil, err
	}

	return submissions, nil
}

func (r *submissionRepository) Create(ctx context.Context, submission *models.Submission) error {
	return r.db.WithContext(ctx).Create(submission).Error
}

func (r *submissionRepository) Update(ctx context.Context, submission *models.Submission) error {
	return r.db.WithContext(ctx).Save(submission).Error
}

// UpdateWithAudit persists a grade mutation and its audit entry in one
// transaction. A visible score change without its audit row must never
// commit.
func (r *submissionRepository) UpdateWithAudit(ctx context.Context, submission *models.Submission, entry *models.GradeAuditLog) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(submission).Error; err != nil {
			return err
		}
		return tx.Create(entry).Error
	})
}

// UpdateVersioned applies the mutation only if the stored row still carries
// expectedVersion, so concurrent resubmits for the same pair serialize
// without engine-level locks.
func (r *submissionRepository) UpdateVersioned(ctx context.Context, submission *models.Submission, expectedVersion int) error {
	result := r.db.WithContext(ctx).Model(&models.Submission{}).
		Where("id = ? AND version = ?", submission.ID, expectedVersion).
		Select("status", "content", "answers", "submitted_at", "version", "score", "graded_at", "graded_by").
		Updates(submission)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrVersionConflict
	}

	return nil
}
