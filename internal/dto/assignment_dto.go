package dto

import (
	"time"

	"github.com/edura/edura-go-api/internal/models"
)

// OptionInput describes one selectable answer when creating a quiz question.
type OptionInput struct {
	Key  string `json:"key" validate:"required,max=8"`
	Text string `json:"text" validate:"required"`
}

// QuestionInput describes one question when creating a quiz assignment.
type QuestionInput struct {
	Prompt           string        `json:"prompt" validate:"required"`
	Options          []OptionInput `json:"options" validate:"required,min=2,dive"`
	CorrectOptionKey string        `json:"correct_option_key" validate:"required"`
}

// AssignmentCreateRequest describes the payload for creating an assignment.
type AssignmentCreateRequest struct {
	CourseID    uint            `json:"course_id" validate:"required,gt=0"`
	Title       string          `json:"title" validate:"required,min=3,max=255"`
	Description string          `json:"description"`
	Kind        string          `json:"kind" validate:"required,oneof=essay quiz"`
	DueAt       string          `json:"due_at" validate:"required"`
	MaxScore    float64         `json:"max_score" validate:"omitempty,gt=0"`
	Questions   []QuestionInput `json:"questions" validate:"omitempty,dive"`
}

// AssignmentDueUpdateRequest extends an assignment deadline. Extension is an
// explicit instructor action, never implicit.
type AssignmentDueUpdateRequest struct {
	DueAt string `json:"due_at" validate:"required"`
}

// OptionResponse serializes a question option.
type OptionResponse struct {
	Key  string `json:"key"`
	Text string `json:"text"`
}

// QuestionResponse serializes a question without leaking the correct key.
type QuestionResponse struct {
	ID       uint             `json:"id"`
	Position int              `json:"position"`
	Prompt   string           `json:"prompt"`
	Options  []OptionResponse `json:"options"`
}

// AssignmentResponse is returned to API clients when viewing assignments.
type AssignmentResponse struct {
	ID          uint               `json:"id"`
	CourseID    uint               `json:"course_id"`
	Title       string             `json:"title"`
	Description string             `json:"description"`
	Kind        string             `json:"kind"`
	DueAt       time.Time          `json:"due_at"`
	MaxScore    float64            `json:"max_score"`
	Questions   []QuestionResponse `json:"questions,omitempty"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

// NewAssignmentResponse converts an Assignment model into a DTO.
func NewAssignmentResponse(model models.Assignment) AssignmentResponse {
	response := AssignmentResponse{
		ID:          model.ID,
		CourseID:    model.CourseID,
		Title:       model.Title,
		Description: model.Description,
		Kind:        model.Kind,
		DueAt:       model.DueAt,
		MaxScore:    model.Scale(),
		CreatedAt:   model.CreatedAt,
		UpdatedAt:   model.UpdatedAt,
	}

	for _, question := range model.Questions {
		options := make([]OptionResponse, 0, len(question.Options))
		for _, option := range question.Options {
			options = append(options, OptionResponse{Key: option.Key, Text: option.Text})
		}
		response.Questions = append(response.Questions, QuestionResponse{
			ID:       question.ID,
			Position: question.Position,
			Prompt:   question.Prompt,
			Options:  options,
		})
	}

	return response
}

// NewAssignmentResponseSlice converts assignment models into DTOs.
func NewAssignmentResponseSlice(items []models.Assignment) []AssignmentResponse {
	responses := make([]AssignmentResponse, 0, len(items))
	for _, assignment := range items {
		responses = append(responses, NewAssignmentResponse(assignment))
	}

	return responses
}
