package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/avalos-dev/assignment-reviewer/internal/dto"
	"github.com/avalos-dev/assignment-reviewer/internal/grader"
	"github.com/avalos-dev/assignment-reviewer/internal/handler"
	"github.com/avalos-dev/assignment-reviewer/internal/models"
	"github.com/avalos-dev/assignment-reviewer/internal/pipeline"
	"github.com/avalos-dev/assignment-reviewer/internal/staging"
)

type fakeGradingRunner struct {
	outcome     pipeline.Outcome
	submissions []models.Submission
}

func (f *fakeGradingRunner) Process(_ context.Context, sub models.Submission) pipeline.Outcome {
	f.submissions = append(f.submissions, sub)
	outcome := f.outcome
	outcome.ArtifactID = sub.ArtifactID
	return outcome
}

func (f *fakeGradingRunner) ProcessBatch(ctx context.Context, subs []models.Submission) []pipeline.Outcome {
	outcomes := make([]pipeline.Outcome, 0, len(subs))
	for _, sub := range subs {
		outcomes = append(outcomes, f.Process(ctx, sub))
	}
	return outcomes
}

type fakeResultReader struct {
	records []models.StoredResult
	err     error
}

func (f *fakeResultReader) ReadAll(context.Context) ([]models.StoredResult, error) {
	return f.records, f.err
}

func setupGradingApp(t *testing.T, runner handler.GradingRunner, reader handler.ResultReader) (*fiber.App, *staging.Area) {
	t.Helper()

	area, err := staging.NewArea(t.TempDir(), zerolog.New(io.Discard))
	require.NoError(t, err)

	validate := validator.New(validator.WithRequiredStructEnabled())
	gradingHandler := handler.NewGradingHandler(runner, reader, area, validate, zerolog.New(io.Discard))

	app := fiber.New()
	gradingHandler.Register(app.Group("/api/v1"))

	return app, area
}

func uploadRequest(t *testing.T, fileName string, content []byte, fields map[string]string) *http.Request {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for key, value := range fields {
		require.NoError(t, writer.WriteField(key, value))
	}
	part, err := writer.CreateFormFile("file", fileName)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest("POST", "/api/v1/submissions", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

var pdfBytes = []byte("%PDF-1.4\n1 0 obj\n<< >>\nendobj\ntrailer\n<< >>\n%%EOF")

func TestGradingHandlerUploadSuccess(t *testing.T) {
	runner := &fakeGradingRunner{outcome: pipeline.Outcome{
		Done: true,
		Grading: &models.GradingResult{
			StudentName:  "Ada Lovelace",
			OverallGrade: "27/30",
			Feedback:     "Well argued.",
			CriteriaScores: []models.CriterionScore{
				{Criterion: "Clarity", Score: 9, Justification: "Readable throughout."},
			},
		},
		Result: &models.StoredResult{Name: "Ada Lovelace"},
	}}

	app, area := setupGradingApp(t, runner, &fakeResultReader{})

	req := uploadRequest(t, "essay.pdf", pdfBytes, map[string]string{"rubric": "essay"})
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var payload struct {
		Success bool                `json:"success"`
		Data    dto.GradingResponse `json:"data"`
		Message string              `json:"message"`
	}
	decodeGradingResponse(t, resp, &payload)
	require.True(t, payload.Success)
	require.Equal(t, "submission graded", payload.Message)
	require.Equal(t, "Ada Lovelace", payload.Data.StudentName)
	require.Equal(t, "27/30", payload.Data.OverallGrade)
	require.Len(t, payload.Data.CriteriaScores, 1)

	require.Len(t, runner.submissions, 1)
	require.Equal(t, models.SourceUpload, runner.submissions[0].Source)
	require.Equal(t, "essay", runner.submissions[0].RubricName)
	require.Equal(t, pdfBytes, runner.submissions[0].RawBytes)

	// terminal outcomes release the staged copy
	names, err := area.List()
	require.NoError(t, err)
	require.Empty(t, names)
}

func TestGradingHandlerUploadRejectsNonPDF(t *testing.T) {
	app, _ := setupGradingApp(t, &fakeGradingRunner{}, &fakeResultReader{})

	req := uploadRequest(t, "notes.txt", []byte("plain text"), nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusUnsupportedMediaType, resp.StatusCode)
}

func TestGradingHandlerUploadRequiresFile(t *testing.T) {
	app, _ := setupGradingApp(t, &fakeGradingRunner{}, &fakeResultReader{})

	req := httptest.NewRequest("POST", "/api/v1/submissions", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestGradingHandlerUploadUnknownRubric(t *testing.T) {
	runner := &fakeGradingRunner{outcome: pipeline.Outcome{
		FailedStage: pipeline.StageGrading,
		GradingKind: grader.KindRubricMissing,
		Reason:      "rubric not found",
	}}
	app, _ := setupGradingApp(t, runner, &fakeResultReader{})

	req := uploadRequest(t, "essay.pdf", pdfBytes, map[string]string{"rubric": "nonexistent"})
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestGradingHandlerUploadEngineUnavailableKeepsStagedFile(t *testing.T) {
	runner := &fakeGradingRunner{outcome: pipeline.Outcome{
		FailedStage: pipeline.StageGrading,
		GradingKind: grader.KindEngineUnavailable,
		Transient:   true,
		Reason:      "model timeout",
	}}
	app, area := setupGradingApp(t, runner, &fakeResultReader{})

	req := uploadRequest(t, "essay.pdf", pdfBytes, nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadGateway, resp.StatusCode)

	// transient failures stay staged so a reprocess can retry them
	names, err := area.List()
	require.NoError(t, err)
	require.Len(t, names, 1)
}

func TestGradingHandlerListResults(t *testing.T) {
	reader := &fakeResultReader{records: []models.StoredResult{
		{Name: "Ada Lovelace", Email: "ada@example.com", Course: "CS101", FileName: "essay.pdf", GradeOutput: "Grade: 27/30", Timestamp: time.Now().UTC()},
		{Name: "Unknown", Email: "Unknown", Course: "Unknown", FileName: "scan.pdf", GradeOutput: "Grade: N/A", Timestamp: time.Now().UTC()},
	}}
	app, _ := setupGradingApp(t, &fakeGradingRunner{}, reader)

	resp, err := app.Test(httptest.NewRequest("GET", "/api/v1/results", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var payload struct {
		Success bool                 `json:"success"`
		Data    []dto.ResultResponse `json:"data"`
	}
	decodeGradingResponse(t, resp, &payload)
	require.True(t, payload.Success)
	require.Len(t, payload.Data, 2)
	require.Equal(t, "Ada Lovelace", payload.Data[0].Name)
	require.Equal(t, "Unknown", payload.Data[1].Name)
}

func TestGradingHandlerReprocess(t *testing.T) {
	runner := &fakeGradingRunner{outcome: pipeline.Outcome{
		Done:   true,
		Result: &models.StoredResult{},
		Grading: &models.GradingResult{
			OverallGrade: "25/30",
		},
	}}
	app, area := setupGradingApp(t, runner, &fakeResultReader{})

	_, err := area.Save("first.pdf", pdfBytes)
	require.NoError(t, err)
	_, err = area.Save("second.pdf", pdfBytes)
	require.NoError(t, err)

	resp, err := app.Test(httptest.NewRequest("POST", "/api/v1/reprocess", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var payload struct {
		Success bool                  `json:"success"`
		Data    dto.ReprocessResponse `json:"data"`
	}
	decodeGradingResponse(t, resp, &payload)
	require.True(t, payload.Success)
	require.Equal(t, 2, payload.Data.Processed)
	require.Len(t, runner.submissions, 2)

	names, err := area.List()
	require.NoError(t, err)
	require.Empty(t, names)
}

func TestGradingHandlerReprocessEmptyStaging(t *testing.T) {
	runner := &fakeGradingRunner{}
	app, _ := setupGradingApp(t, runner, &fakeResultReader{})

	resp, err := app.Test(httptest.NewRequest("POST", "/api/v1/reprocess", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var payload struct {
		Data dto.ReprocessResponse `json:"data"`
	}
	decodeGradingResponse(t, resp, &payload)
	require.Zero(t, payload.Data.Processed)
	require.Empty(t, runner.submissions)
}

func decodeGradingResponse(t *testing.T, resp *http.Response, target interface{}) {
	t.Helper()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	require.NoError(t, json.Unmarshal(body, target))
}
