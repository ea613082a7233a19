package models

import "time"

// Unknown is the sentinel used for hint and result fields that could not be
// determined. Downstream formatting must tolerate it, never a missing field.
const Unknown = "Unknown"

// ParsedHints carries best-effort structured fields recovered from
// submission text. Every field is populated; absent data becomes Unknown.
type ParsedHints struct {
	Name   string
	Course string
	Email  string
}

// Criterion is a single weighted rubric entry.
type Criterion struct {
	Title       string  `yaml:"title" json:"title"`
	Description string  `yaml:"description" json:"description,omitempty"`
	MaxPoints   float64 `yaml:"max_points" json:"max_points"`
}

// Rubric is a named, immutable set of grading criteria. A rubric with zero
// criteria is valid.
type Rubric struct {
	Name     string      `json:"name"`
	Criteria []Criterion `json:"criteria"`
}

// CriterionScore is the per-criterion portion of a grading result.
type CriterionScore struct {
	Criterion     string  `json:"criterion"`
	Score         float64 `json:"score"`
	Justification string  `json:"justification"`
	Detail        string  `json:"detail,omitempty"`
}

// GradingResult is the structured output of the grading engine. All fields
// are always populated: the engine substitutes defaults for anything the
// model left out, so consumers never see a partially absent result.
type GradingResult struct {
	StudentName    string           `json:"student_name"`
	OverallGrade   string           `json:"overall_grade"`
	Feedback       string           `json:"feedback"`
	CriteriaScores []CriterionScore `json:"criteria_scores"`
}

// StoredResult is the denormalized record persisted for each completed
// grading. Records are append-only and never mutated.
type StoredResult struct {
	Name           string           `json:"name"`
	Email          string           `json:"email"`
	Course         string           `json:"course"`
	FileName       string           `json:"file_name"`
	GradeOutput    string           `json:"grade_output"`
	Timestamp      time.Time        `json:"timestamp"`
	CriteriaScores []CriterionScore `json:"criteria_scores"`
}
