package models

import "time"

// Assignment kinds supported by the grading engine.
const (
	// AssignmentKindEssay marks free-text assignments graded by an instructor.
	AssignmentKindEssay = "essay"
	// AssignmentKindQuiz marks multiple-choice assignments graded automatically.
	AssignmentKindQuiz = "quiz"
)

// DefaultMaxScore is the grading scale ceiling applied when an assignment does not set one.
const DefaultMaxScore = 10.0

// Assignment represents a gradable unit of work within a course.
type Assignment struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	CourseID    uint       `gorm:"not null;index" json:"course_id"`
	Title       string     `gorm:"size:255;not null" json:"title"`
	Description string     `gorm:"type:text" json:"description"`
	Kind        string     `gorm:"size:16;not null" json:"kind"`
	DueAt       time.Time  `gorm:"not null" json:"due_at"`
	MaxScore    float64    `json:"max_score"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	Questions   []Question `gorm:"foreignKey:AssignmentID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"questions,omitempty"`
}

// IsPastDue returns true when the assignment deadline has already passed.
func (a Assignment) IsPastDue(reference time.Time) bool {
	return reference.After(a.DueAt)
}

// IsQuiz reports whether the assignment is auto-graded.
func (a Assignment) IsQuiz() bool {
	return a.Kind == AssignmentKindQuiz
}

// Scale returns the grading scale ceiling for this assignment.
func (a Assignment) Scale() float64 {
	if a.MaxScore <= 0 {
		return DefaultMaxScore
	}
	return a.MaxScore
}

// QuestionByID looks up a question belonging to this assignment.
func (a Assignment) QuestionByID(id uint) (Question, bool) {
	for _, question := range a.Questions {
		if question.ID == id {
			return question, true
		}
	}
	return Question{}, false
}
