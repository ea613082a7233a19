// Package grader turns submission text and a named rubric into a structured
// grading result by way of an external chat model. The model's output is a
// hard contract boundary: whatever comes back is validated against the
// grading result schema before anything downstream sees it.
package grader

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/avalos-dev/assignment-reviewer/internal/models"
	"github.com/avalos-dev/assignment-reviewer/pkg/ai"
)

// ErrorKind tags the failure mode of a grading attempt. Callers branch on
// the kind, never on error text.
type ErrorKind string

const (
	// KindRubricMissing means the requested rubric does not exist; no model
	// call was made.
	KindRubricMissing ErrorKind = "rubric_missing"
	// KindEngineUnavailable covers transport failures and timeouts reaching
	// the model.
	KindEngineUnavailable ErrorKind = "engine_unavailable"
	// KindMalformedResponse means the model answered with something that is
	// not a schema-conforming grading result.
	KindMalformedResponse ErrorKind = "malformed_response"
)

// GradingError is the tagged failure variant of a grading attempt. The raw
// model response is retained for diagnostics on malformed output and must
// never be shown to submitters.
type GradingError struct {
	Kind        ErrorKind
	Detail      string
	RawResponse string
}

func (e *GradingError) Error() string {
	return fmt.Sprintf("grading failed (%s): %s", e.Kind, e.Detail)
}

// Transient reports whether the failure is worth retrying on a later cycle.
func (e *GradingError) Transient() bool {
	return e.Kind == KindEngineUnavailable
}

// RubricStore resolves named rubrics.
type RubricStore interface {
	Load(name string) (models.Rubric, error)
}

const resultSchemaJSON = `{
	"type": "object",
	"properties": {
		"student_name": {"type": "string"},
		"overall_grade": {"type": ["string", "number"]},
		"feedback": {"type": "string"},
		"criteria_scores": {
			"type": "array",
			"items": {
				"type": "object",
				"properties": {
					"criterion": {"type": "string"},
					"score": {"type": ["number", "string"]},
					"justification": {"type": "string"},
					"detail": {"type": "string"}
				}
			}
		}
	}
}`

var resultSchema = func() *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("grading_result.json", strings.NewReader(resultSchemaJSON)); err != nil {
		panic(err)
	}
	return compiler.MustCompile("grading_result.json")
}()

// Engine grades submission text against a named rubric. It is stateless per
// invocation and safe for concurrent use.
type Engine struct {
	rubrics RubricStore
	client  ai.Client
	logger  zerolog.Logger
}

// NewEngine constructs a grading engine.
func NewEngine(rubrics RubricStore, client ai.Client, logger zerolog.Logger) *Engine {
	return &Engine{
		rubrics: rubrics,
		client:  client,
		logger:  logger.With().Str("component", "grading_engine").Logger(),
	}
}

// Grade runs one grading attempt. Exactly one of the result and the error is
// meaningful; the error, when non-nil, always carries a kind tag. Empty
// submission text is still sent to the model.
func (e *Engine) Grade(ctx context.Context, text, rubricName string) (models.GradingResult, *GradingError) {
	rubric, err := e.rubrics.Load(rubricName)
	if err != nil {
		e.logger.Warn().Str("rubric", rubricName).Err(err).Msg("rubric not found")
		return models.GradingResult{}, &GradingError{
			Kind:   KindRubricMissing,
			Detail: fmt.Sprintf("rubric %q is not defined", rubricName),
		}
	}

	response, err := e.client.Complete(ctx, systemPrompt(), userPrompt(rubric, text))
	if err != nil {
		e.logger.Error().Str("rubric", rubric.Name).Err(err).Msg("model call failed")
		return models.GradingResult{}, &GradingError{
			Kind:   KindEngineUnavailable,
			Detail: err.Error(),
		}
	}

	result, gerr := parseResult(response)
	if gerr != nil {
		e.logger.Error().Str("rubric", rubric.Name).Str("detail", gerr.Detail).Msg("malformed model response")
		return models.GradingResult{}, gerr
	}

	return result, nil
}

func systemPrompt() string {
	return "You are a strict but fair assignment grader. Respond with a single JSON object " +
		"with exactly these fields: student_name (string), overall_grade (string, e.g. \"24/30\"), " +
		"feedback (string with detailed feedback on where points were lost), and criteria_scores " +
		"(array of objects with criterion, score, justification and detail fields, one per rubric " +
		"criterion, in rubric order). Do not wrap the JSON in markdown or add any other text."
}

func userPrompt(rubric models.Rubric, text string) string {
	builder := strings.Builder{}
	builder.WriteString("Here is the grading rubric \"")
	builder.WriteString(rubric.Name)
	builder.WriteString("\":\n")
	if len(rubric.Criteria) == 0 {
		builder.WriteString("(no per-criterion scoring structure is defined; grade holistically and return an empty criteria_scores array)\n")
	}
	for _, criterion := range rubric.Criteria {
		builder.WriteString("- ")
		builder.WriteString(criterion.Title)
		if criterion.Description != "" {
			builder.WriteString(" (")
			builder.WriteString(criterion.Description)
			builder.WriteString(")")
		}
		builder.WriteString(": ")
		builder.WriteString(strconv.FormatFloat(criterion.MaxPoints, 'f', -1, 64))
		builder.WriteString(" points\n")
	}
	builder.WriteString("\nRead the following student assignment and grade it against the rubric.\n")
	builder.WriteString("---\nStudent Submission:\n")
	builder.WriteString(text)
	builder.WriteString("\n---\nReturn JSON.")
	return builder.String()
}

// stripFences removes a surrounding markdown code fence, which some models
// emit even when asked for bare JSON.
func stripFences(content string) string {
	content = strings.TrimSpace(content)
	if !strings.HasPrefix(content, "```") {
		return content
	}

	lines := strings.Split(content, "\n")
	endIdx := len(lines) - 1
	for i := len(lines) - 1; i > 0; i-- {
		if strings.TrimSpace(lines[i]) == "```" {
			endIdx = i
			break
		}
	}
	return strings.Join(lines[1:endIdx], "\n")
}

func parseResult(response string) (models.GradingResult, *GradingError) {
	content := stripFences(response)

	var doc any
	if err := json.Unmarshal([]byte(content), &doc); err != nil {
		return models.GradingResult{}, &GradingError{
			Kind:        KindMalformedResponse,
			Detail:      fmt.Sprintf("response is not valid JSON: %v", err),
			RawResponse: response,
		}
	}

	if err := resultSchema.Validate(doc); err != nil {
		return models.GradingResult{}, &GradingError{
			Kind:        KindMalformedResponse,
			Detail:      fmt.Sprintf("response does not match the grading result schema: %v", err),
			RawResponse: response,
		}
	}

	fields, ok := doc.(map[string]any)
	if !ok {
		return models.GradingResult{}, &GradingError{
			Kind:        KindMalformedResponse,
			Detail:      "response is not a JSON object",
			RawResponse: response,
		}
	}

	return resultFromFields(fields), nil
}

// resultFromFields applies default substitutions so a schema-valid but
// partially populated response still yields a usable result.
func resultFromFields(fields map[string]any) models.GradingResult {
	result := models.GradingResult{
		StudentName:    models.Unknown,
		OverallGrade:   "N/A",
		Feedback:       "",
		CriteriaScores: []models.CriterionScore{},
	}

	if name := stringValue(fields["student_name"]); name != "" {
		result.StudentName = name
	}
	if grade := stringValue(fields["overall_grade"]); grade != "" {
		result.OverallGrade = grade
	}
	result.Feedback = stringValue(fields["feedback"])

	scores, _ := fields["criteria_scores"].([]any)
	for _, entry := range scores {
		item, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		result.CriteriaScores = append(result.CriteriaScores, models.CriterionScore{
			Criterion:     stringValue(item["criterion"]),
			Score:         numberValue(item["score"]),
			Justification: stringValue(item["justification"]),
			Detail:        stringValue(item["detail"]),
		})
	}

	return result
}

func stringValue(v any) string {
	switch value := v.(type) {
	case string:
		return strings.TrimSpace(value)
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64)
	default:
		return ""
	}
}

func numberValue(v any) float64 {
	switch value := v.(type) {
	case float64:
		return value
	case string:
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err == nil {
			return parsed
		}
	}
	return 0
}
