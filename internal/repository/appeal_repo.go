package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/edura/edura-go-api/internal/models"
)

// AppealRepository defines data operations for appeals and their threads.
type AppealRepository interface {
	GetByID(ctx context.Context, id uint) (models.Appeal, error)
	ListBySubmission(ctx context.Context, submissionID uint) ([]models.Appeal, error)
	Create(ctx context.Context, appeal *models.Appeal) error
	AddComment(ctx context.Context, comment *models.AppealComment) error
	Close(ctx context.Context, id uint, status string, resolvedBy uint, resolvedAt time.Time) error
}

type appealRepository struct {
	db *gorm.DB
}

// NewAppealRepository instantiates the repository.
func NewAppealRepository(db *gorm.DB) AppealRepository {
	return &appealRepository{db: db}
}

func (r *appealRepository) baseQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.Appeal{}).
		Preload("Comments", func(db *gorm.DB) *gorm.DB {
			return db.Order("appeal_comments.created_at ASC")
		})
}

func (r *appealRepository) GetByID(ctx context.Context, id uint) (models.Appeal, error) {
	var appeal models.Appeal
	if err := r.baseQuery(ctx).First(&appeal, id).Error; err != nil {
		return models.Appeal{}, err
	}

	return appeal, nil
}

func (r *appealRepository) ListBySubmission(ctx context.Context, submissionID uint) ([]models.Appeal, error) {
	var appeals []models.Appeal
	if err := r.baseQuery(ctx).
		Where("submission_id = ?", submissionID).
		Order("created_at ASC").
		Find(&appeals).Error; err != nil {
		return nil, err
	}

	return appeals, nil
}

func (r *appealRepository) Create(ctx context.Context, appeal *models.Appeal) error {
	return r.db.WithContext(ctx).Create(appeal).Error
}

func (r *appealRepository) AddComment(ctx context.Context, comment *models.AppealComment) error {
	return r.db.WithContext(ctx).Create(comment).Error
}

// Close flips the appeal into a terminal status. The status guard makes the
// open → terminal transition linearizable: a second concurrent resolve sees
// zero affected rows and reports ErrVersionConflict.
func (r *appealRepository) Close(ctx context.Context, id uint, status string, resolvedBy uint, resolvedAt time.Time) error {
	result := r.db.WithContext(ctx).Model(&models.Appeal{}).
		Where("id = ? AND status = ?", id, models.AppealStatusOpen).
		Updates(map[string]interface{}{
			"status":      status,
			"resolved_by": resolvedBy,
			"resolved_at": resolvedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrVersionConflict
	}

	return nil
}
