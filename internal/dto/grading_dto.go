package dto

import (
	"time"

	"github.com/avalos-dev/assignment-reviewer/internal/models"
)

// UploadRequest captures the optional form fields accompanying an uploaded
// document. The file itself travels as multipart content.
type UploadRequest struct {
	Rubric  string `form:"rubric" validate:"omitempty,max=64"`
	ReplyTo string `form:"reply_to" validate:"omitempty,email"`
}

// CriterionScoreResponse mirrors a single rubric criterion evaluation.
type CriterionScoreResponse struct {
	Criterion     string  `json:"criterion"`
	Score         float64 `json:"score"`
	Justification string  `json:"justification"`
	Detail        string  `json:"detail,omitempty"`
}

// GradingResponse is returned after a synchronous grading of an upload.
type GradingResponse struct {
	ArtifactID     string                   `json:"artifact_id"`
	FileName       string                   `json:"file_name"`
	StudentName    string                   `json:"student_name"`
	OverallGrade   string                   `json:"overall_grade"`
	Feedback       string                   `json:"feedback"`
	CriteriaScores []CriterionScoreResponse `json:"criteria_scores"`
}

// ResultResponse is a single persisted grading record.
type ResultResponse struct {
	Name           string                   `json:"name"`
	Email          string                   `json:"email"`
	Course         string                   `json:"course"`
	FileName       string                   `json:"file_name"`
	GradeOutput    string                   `json:"grade_output"`
	Timestamp      time.Time                `json:"timestamp"`
	CriteriaScores []CriterionScoreResponse `json:"criteria_scores"`
}

// ReprocessResponse reports how many staged documents a reprocess run handled.
type ReprocessResponse struct {
	Processed int `json:"processed"`
}

// NewGradingResponse converts an engine result for API consumers.
func NewGradingResponse(artifactID, fileName string, result models.GradingResult) GradingResponse {
	return GradingResponse{
		ArtifactID:     artifactID,
		FileName:       fileName,
		StudentName:    result.StudentName,
		OverallGrade:   result.OverallGrade,
		Feedback:       result.Feedback,
		CriteriaScores: newCriterionScores(result.CriteriaScores),
	}
}

// NewResultResponse converts a stored record for API consumers.
func NewResultResponse(record models.StoredResult) ResultResponse {
	return ResultResponse{
		Name:           record.Name,
		Email:          record.Email,
		Course:         record.Course,
		FileName:       record.FileName,
		GradeOutput:    record.GradeOutput,
		Timestamp:      record.Timestamp,
		CriteriaScores: newCriterionScores(record.CriteriaScores),
	}
}

// NewResultResponseSlice converts stored records preserving append order.
func NewResultResponseSlice(records []models.StoredResult) []ResultResponse {
	responses := make([]ResultResponse, 0, len(records))
	for _, record := range records {
		responses = append(responses, NewResultResponse(record))
	}
	return responses
}

func newCriterionScores(scores []models.CriterionScore) []CriterionScoreResponse {
	out := make([]CriterionScoreResponse, 0, len(scores))
	for _, score := range scores {
		out = append(out, CriterionScoreResponse{
			Criterion:     score.Criterion,
			Score:         score.Score,
			Justification: score.Justification,
			Detail:        score.Detail,
		})
	}
	return out
}
