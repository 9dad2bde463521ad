package models

// Question is a single multiple-choice item on a quiz assignment.
type Question struct {
	ID               uint             `gorm:"primaryKey" json:"id"`
	AssignmentID     uint             `gorm:"not null;index" json:"assignment_id"`
	Position         int              `gorm:"not null" json:"position"`
	Prompt           string           `gorm:"type:text;not null" json:"prompt"`
	CorrectOptionKey string           `gorm:"size:8;not null" json:"-"`
	Options          []QuestionOption `gorm:"foreignKey:QuestionID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"options,omitempty"`
}

// HasOption reports whether the given key identifies one of the question's options.
func (q Question) HasOption(key string) bool {
	for _, option := range q.Options {
		if option.Key == key {
			return true
		}
	}
	return false
}

// QuestionOption is one selectable answer, addressed by a stable key such as "A".
type QuestionOption struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	QuestionID uint   `gorm:"not null;index" json:"question_id"`
	Key        string `gorm:"size:8;not null" json:"key"`
	Text       string `gorm:"type:text;not null" json:"text"`
}
