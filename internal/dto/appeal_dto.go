package dto

import (
	"time"

	"github.com/edura/edura-go-api/internal/models"
)

// AppealOpenRequest opens an appeal against a graded submission. The comment
// is the student's appeal content and may not be blank.
type AppealOpenRequest struct {
	Comment string `json:"comment"`
}

// AppealCommentRequest appends to an open appeal thread.
type AppealCommentRequest struct {
	Body string `json:"body"`
}

// AppealResolveRequest terminates an appeal. NewScore is optional; omitting
// it acknowledges the appeal without touching the grade.
type AppealResolveRequest struct {
	Comment  string   `json:"comment"`
	NewScore *float64 `json:"new_score"`
}

// AppealCommentResponse serializes one entry of an appeal thread.
type AppealCommentResponse struct {
	By   uint      `json:"by"`
	Role string    `json:"role"`
	Text string    `json:"text"`
	At   time.Time `json:"at"`
}

// AppealResponse is returned to API clients when viewing appeals.
type AppealResponse struct {
	ID           uint                    `json:"appeal_id"`
	SubmissionID uint                    `json:"submission_id"`
	Status       string                  `json:"status"`
	Comments     []AppealCommentResponse `json:"comments"`
	CreatedAt    time.Time               `json:"created_at"`
	ResolvedAt   *time.Time              `json:"resolved_at"`
}

// NewAppealResponse converts an Appeal model into a DTO.
func NewAppealResponse(model models.Appeal) AppealResponse {
	comments := make([]AppealCommentResponse, 0, len(model.Comments))
	for _, comment := range model.Comments {
		comments = append(comments, AppealCommentResponse{
			By:   comment.AuthorID,
			Role: comment.AuthorRole,
			Text: comment.Body,
			At:   comment.CreatedAt,
		})
	}

	return AppealResponse{
		ID:           model.ID,
		SubmissionID: model.SubmissionID,
		Status:       model.Status,
		Comments:     comments,
		CreatedAt:    model.CreatedAt,
		ResolvedAt:   model.ResolvedAt,
	}
}
