package models

import "time"

// Appeal statuses. An appeal never returns to open once closed.
const (
	AppealStatusOpen     = "open"
	AppealStatusResolved = "resolved"
	AppealStatusRejected = "rejected"
)

// Comment author roles.
const (
	AppealRoleStudent    = "student"
	AppealRoleInstructor = "instructor"
)

// Appeal is a bounded negotiation thread a student opens against a grade.
type Appeal struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	SubmissionID uint            `gorm:"not null;index" json:"submission_id"`
	Status       string          `gorm:"size:16;not null" json:"status"`
	CreatedAt    time.Time       `json:"created_at"`
	ResolvedAt   *time.Time      `json:"resolved_at"`
	ResolvedBy   *uint           `json:"resolved_by"`
	Comments     []AppealComment `gorm:"foreignKey:AppealID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"comments,omitempty"`
}

// IsOpen reports whether the thread still accepts comments.
func (a Appeal) IsOpen() bool {
	return a.Status == AppealStatusOpen
}

// AppealComment is a single entry in an appeal thread.
type AppealComment struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	AppealID   uint      `gorm:"not null;index" json:"appeal_id"`
	AuthorID   uint      `gorm:"not null" json:"author_id"`
	AuthorRole string    `gorm:"size:16;not null" json:"author_role"`
	Body       string    `gorm:"type:text;not null" json:"body"`
	CreatedAt  time.Time `json:"created_at"`
}
