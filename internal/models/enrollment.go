package models

import "time"

// Enrollment captures a student's registration to a course within a term.
// Rows are fed from the enrollment service and read-only for this engine.
type Enrollment struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	StudentID  uint      `gorm:"not null;uniqueIndex:idx_enrollment_scope" json:"student_id"`
	CourseID   uint      `gorm:"not null;uniqueIndex:idx_enrollment_scope" json:"course_id"`
	Term       string    `gorm:"size:32;not null;uniqueIndex:idx_enrollment_scope" json:"term"`
	EnrolledAt time.Time `gorm:"not null" json:"enrolled_at"`
	CreatedAt  time.Time `json:"created_at"`
}
