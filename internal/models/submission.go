package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// Submission lifecycle statuses.
const (
	// SubmissionStatusSubmitted indicates work has been handed in but not graded.
	SubmissionStatusSubmitted = "submitted"
	// SubmissionStatusGraded indicates a score has been attached.
	SubmissionStatusGraded = "graded"
	// SubmissionStatusAppealed indicates an open appeal froze the submission.
	SubmissionStatusAppealed = "appealed"
	// SubmissionStatusResolved indicates the appeal reached a terminal outcome.
	SubmissionStatusResolved = "resolved"
)

// AnswerSelection pairs a quiz question with the option key a student picked.
type AnswerSelection struct {
	QuestionID        uint   `json:"question_id"`
	SelectedOptionKey string `json:"selected_option_key"`
}

// Submission is a student's live attempt at an assignment. There is at most
// one row per (assignment, student) pair; resubmission mutates it in place.
type Submission struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	AssignmentID uint           `gorm:"not null;uniqueIndex:idx_submission_pair" json:"assignment_id"`
	StudentID    uint           `gorm:"not null;uniqueIndex:idx_submission_pair" json:"student_id"`
	CourseID     uint           `gorm:"not null;index" json:"course_id"`
	Status       string         `gorm:"size:32;not null" json:"status"`
	Content      string         `gorm:"type:text" json:"content,omitempty"`
	Answers      datatypes.JSON `gorm:"type:json" json:"-"`
	SubmittedAt  time.Time      `gorm:"not null" json:"submitted_at"`
	Term         string         `gorm:"size:32;not null" json:"term"`
	Version      int            `gorm:"not null;default:1" json:"version"`
	Score        *float64       `json:"score"`
	GradedAt     *time.Time     `json:"graded_at"`
	GradedBy     *uint          `json:"graded_by"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	Assignment   Assignment     `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"assignment"`
	Appeals      []Appeal       `gorm:"foreignKey:SubmissionID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"appeals,omitempty"`
}

// IsGraded reports whether a score has been attached.
func (s Submission) IsGraded() bool {
	return s.Score != nil
}

// IsFrozen reports whether an appeal has locked the submission against resubmission.
func (s Submission) IsFrozen() bool {
	return s.Status == SubmissionStatusAppealed || s.Status == SubmissionStatusResolved
}

// OpenAppeal returns the unresolved appeal attached to the submission, if any.
func (s Submission) OpenAppeal() (Appeal, bool) {
	for _, appeal := range s.Appeals {
		if appeal.IsOpen() {
			return appeal, true
		}
	}
	return Appeal{}, false
}

// SetAnswers serializes the answer selections into the JSON storage column.
func (s *Submission) SetAnswers(answers []AnswerSelection) {
	data, err := json.Marshal(answers)
	if err != nil {
		s.Answers = datatypes.JSON([]byte("[]"))
		return
	}
	s.Answers = datatypes.JSON(data)
}

// AnswerList deserializes the stored answer selections.
func (s Submission) AnswerList() []AnswerSelection {
	if len(s.Answers) == 0 {
		return nil
	}

	var answers []AnswerSelection
	if err := json.Unmarshal(s.Answers, &answers); err != nil {
		return nil
	}

	return answers
}
