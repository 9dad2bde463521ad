package dto

// TermGroup aggregates the submissions of one previous term.
type TermGroup struct {
	Term         string               `json:"term"`
	Count        int                  `json:"count"`
	AverageScore *float64             `json:"average_score"`
	Items        []SubmissionResponse `json:"items"`
}

// GradeOverviewResponse partitions a student's course submissions into the
// current term and per-term groups of previous enrollments.
type GradeOverviewResponse struct {
	StudentID   uint                 `json:"student_id"`
	CourseID    uint                 `json:"course_id"`
	CurrentTerm string               `json:"current_term"`
	Current     []SubmissionResponse `json:"current"`
	Previous    []TermGroup          `json:"previous"`
}
