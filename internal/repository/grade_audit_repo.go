package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/edura/edura-go-api/internal/models"
)

// GradeAuditRepository reads grade mutation history. Entries are written
// through SubmissionRepository.UpdateWithAudit so they commit with the
// grade they describe.
type GradeAuditRepository interface {
	ListBySubmission(ctx context.Context, submissionID uint) ([]models.GradeAuditLog, error)
}

type gradeAuditRepository struct {
	db *gorm.DB
}

// NewGradeAuditRepository instantiates the repository.
func NewGradeAuditRepository(db *gorm.DB) GradeAuditRepository {
	return &gradeAuditRepository{db: db}
}

func (r *gradeAuditRepository) ListBySubmission(ctx context.Context, submissionID uint) ([]models.GradeAuditLog, error) {
	var entries []models.GradeAuditLog
	if err := r.db.WithContext(ctx).
		Where("submission_id = ?", submissionID).
		Order("created_at ASC, id ASC").
		Find(&entries).Error; err != nil {
		return nil, err
	}

	return entries, nil
}
