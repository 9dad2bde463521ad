package dto

import (
	"strconv"
	"time"

	"github.com/edura/edura-go-api/internal/models"
)

// AnswerInput pairs a question with the option key a student selected.
type AnswerInput struct {
	QuestionID        uint   `json:"question_id" validate:"required,gt=0"`
	SelectedOptionKey string `json:"selected_option_key" validate:"required,max=8"`
}

// SubmitRequest is the payload for handing in work. Content and Answers are
// mutually exclusive; which one is required follows the assignment kind.
type SubmitRequest struct {
	AssignmentID uint          `json:"assignment_id" validate:"required,gt=0"`
	StudentID    uint          `json:"student_id" validate:"required,gt=0"`
	Content      *string       `json:"content"`
	Answers      []AnswerInput `json:"answers" validate:"omitempty,dive"`
}

// ResubmitRequest replaces the payload of an existing live submission.
type ResubmitRequest struct {
	Content *string       `json:"content"`
	Answers []AnswerInput `json:"answers" validate:"omitempty,dive"`
}

// ManualGradeRequest carries an instructor-entered score.
type ManualGradeRequest struct {
	Score float64 `json:"score"`
}

// GradeResponse is the nested grade view on a submission.
type GradeResponse struct {
	Score    float64    `json:"score"`
	GradedAt *time.Time `json:"graded_at"`
	GradedBy string     `json:"graded_by"`
}

// SubmissionResponse is returned to API clients when viewing submissions.
type SubmissionResponse struct {
	ID           uint                     `json:"id"`
	AssignmentID uint                     `json:"assignment_id"`
	StudentID    uint                     `json:"student_id"`
	CourseID     uint                     `json:"course_id"`
	Status       string                   `json:"status"`
	Content      string                   `json:"content,omitempty"`
	Answers      []models.AnswerSelection `json:"answers,omitempty"`
	SubmittedAt  time.Time                `json:"submitted_at"`
	Term         string                   `json:"term"`
	Version      int                      `json:"version"`
	Grade        *GradeResponse           `json:"grade"`
	Appeals      []AppealResponse         `json:"appeals,omitempty"`
	Assignment   AssignmentLite           `json:"assignment"`
	CreatedAt    time.Time                `json:"created_at"`
	UpdatedAt    time.Time                `json:"updated_at"`
}

// AssignmentLite summarizes an assignment in submission responses.
type AssignmentLite struct {
	ID    uint      `json:"id"`
	Title string    `json:"title"`
	Kind  string    `json:"kind"`
	DueAt time.Time `json:"due_at"`
}

// GradedByLabel renders the grading actor: "system" for auto-graded quizzes,
// the instructor id otherwise.
func GradedByLabel(id *uint) string {
	if id == nil {
		return "system"
	}
	return strconv.FormatUint(uint64(*id), 10)
}

// NewSubmissionResponse converts a Submission model into a DTO.
func NewSubmissionResponse(model models.Submission) SubmissionResponse {
	response := SubmissionResponse{
		ID:           model.ID,
		AssignmentID: model.AssignmentID,
		StudentID:    model.StudentID,
		CourseID:     model.CourseID,
		Status:       model.Status,
		Content:      model.Content,
		Answers:      model.AnswerList(),
		SubmittedAt:  model.SubmittedAt,
		Term:         model.Term,
		Version:      model.Version,
		CreatedAt:    model.CreatedAt,
		UpdatedAt:    model.UpdatedAt,
	}

	if model.Score != nil {
		response.Grade = &GradeResponse{
			Score:    *model.Score,
			GradedAt: model.GradedAt,
			GradedBy: GradedByLabel(model.GradedBy),
		}
	}

	if model.Assignment.ID != 0 {
		response.Assignment = AssignmentLite{
			ID:    model.Assignment.ID,
			Title: model.Assignment.Title,
			Kind:  model.Assignment.Kind,
			DueAt: model.Assignment.DueAt,
		}
	}

	if len(model.Appeals) > 0 {
		appeals := make([]AppealResponse, 0, len(model.Appeals))
		for _, appeal := range model.Appeals {
			appeals = append(appeals, NewAppealResponse(appeal))
		}
		response.Appeals = appeals
	}

	return response
}

// NewSubmissionResponseSlice converts submission models into DTOs.
func NewSubmissionResponseSlice(items []models.Submission) []SubmissionResponse {
	responses := make([]SubmissionResponse, 0, len(items))
	for _, submission := range items {
		responses = append(responses, NewSubmissionResponse(submission))
	}

	return responses
}
