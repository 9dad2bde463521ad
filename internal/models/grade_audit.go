package models

import (
	"time"

	"gorm.io/datatypes"
)

// Reasons recorded with every grade mutation.
const (
	GradeReasonAuto           = "auto"
	GradeReasonManual         = "manual"
	GradeReasonAppealOverride = "appeal_override"
)

// GradeAuditLog is the append-only trail of grade mutations. The visible
// score on a submission is overwritten in place; this table never is.
type GradeAuditLog struct {
	ID           uint              `gorm:"primaryKey" json:"id"`
	SubmissionID uint              `gorm:"not null;index" json:"submission_id"`
	OldScore     *float64          `json:"old_score"`
	NewScore     float64           `gorm:"not null" json:"new_score"`
	ActorID      *uint             `json:"actor_id"`
	Reason       string            `gorm:"size:32;not null" json:"reason"`
	Metadata     datatypes.JSONMap `gorm:"type:json" json:"metadata"`
	CreatedAt    time.Time         `json:"created_at"`
}
