package handler

import (
	"context"
	"io"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/avalos-dev/assignment-reviewer/internal/dto"
	"github.com/avalos-dev/assignment-reviewer/internal/grader"
	"github.com/avalos-dev/assignment-reviewer/internal/models"
	"github.com/avalos-dev/assignment-reviewer/internal/pipeline"
	"github.com/avalos-dev/assignment-reviewer/internal/staging"
	"github.com/avalos-dev/assignment-reviewer/internal/utils"
)

// GradingRunner drives a submission through extraction, grading, persistence
// and notification.
type GradingRunner interface {
	Process(ctx context.Context, sub models.Submission) pipeline.Outcome
	ProcessBatch(ctx context.Context, subs []models.Submission) []pipeline.Outcome
}

// ResultReader exposes the persisted grading records.
type ResultReader interface {
	ReadAll(ctx context.Context) ([]models.StoredResult, error)
}

// GradingHandler manages upload, results and reprocess endpoints.
type GradingHandler struct {
	runner    GradingRunner
	results   ResultReader
	area      *staging.Area
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewGradingHandler builds a grading handler instance.
func NewGradingHandler(runner GradingRunner, results ResultReader, area *staging.Area, validator *validator.Validate, logger zerolog.Logger) *GradingHandler {
	return &GradingHandler{
		runner:    runner,
		results:   results,
		area:      area,
		validator: validator,
		logger:    logger.With().Str("component", "grading_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group.
func (h *GradingHandler) Register(router fiber.Router) {
	router.Post("/submissions", h.upload)
	router.Get("/results", h.list)
	router.Post("/reprocess", h.reprocess)
}

func (h *GradingHandler) upload(c *fiber.Ctx) error {
	var payload dto.UploadRequest
	payload.Rubric = c.FormValue("rubric")
	payload.ReplyTo = c.FormValue("reply_to")
	if err := h.validator.Struct(payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "file is required")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "file could not be opened")
	}
	defer file.Close()

	data := make([]byte, fileHeader.Size)
	if _, err := io.ReadFull(file, data); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "file could not be read")
	}

	if detected := mimetype.Detect(data); !detected.Is("application/pdf") {
		return utils.SendError(c, fiber.StatusUnsupportedMediaType, "only PDF documents are accepted")
	}

	staged, err := h.area.Save(fileHeader.Filename, data)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to stage upload")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}

	sub := models.Submission{
		ArtifactID: uuid.NewString(),
		FileName:   staged,
		Source:     models.SourceUpload,
		ReplyTo:    payload.ReplyTo,
		RubricName: payload.Rubric,
		RawBytes:   data,
	}

	outcome := h.runner.Process(c.UserContext(), sub)
	if outcome.Terminal() {
		if err := h.area.Remove(staged); err != nil {
			h.logger.Warn().Err(err).Str("file", staged).Msg("failed to remove staged upload")
		}
	}

	return h.respond(c, sub, outcome)
}

func (h *GradingHandler) respond(c *fiber.Ctx, sub models.Submission, outcome pipeline.Outcome) error {
	if outcome.Grading != nil {
		response := dto.NewGradingResponse(sub.ArtifactID, sub.FileName, *outcome.Grading)
		if outcome.FailedStage == pipeline.StagePersistence {
			h.logger.Error().Str("artifact_id", sub.ArtifactID).Str("reason", outcome.Reason).Msg("graded but not persisted")
			return utils.SendError(c, fiber.StatusInternalServerError, "grading completed but the result could not be stored")
		}
		return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "submission graded", response)
	}

	switch outcome.GradingKind {
	case grader.KindRubricMissing:
		return utils.SendError(c, fiber.StatusNotFound, "rubric not found")
	case grader.KindEngineUnavailable:
		return utils.SendError(c, fiber.StatusBadGateway, "grading engine unavailable")
	case grader.KindMalformedResponse:
		return utils.SendError(c, fiber.StatusBadGateway, "grading engine returned an unusable response")
	default:
		h.logger.Error().Str("artifact_id", sub.ArtifactID).Str("reason", outcome.Reason).Msg("submission processing failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}

func (h *GradingHandler) list(c *fiber.Ctx) error {
	records, err := h.results.ReadAll(c.UserContext())
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to read results")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}

	return utils.SendSuccess(c, "results retrieved", dto.NewResultResponseSlice(records))
}

func (h *GradingHandler) reprocess(c *fiber.Ctx) error {
	names, err := h.area.List()
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to scan staging area")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}

	subs := make([]models.Submission, 0, len(names))
	for _, name := range names {
		data, err := h.area.Read(name)
		if err != nil {
			h.logger.Warn().Err(err).Str("file", name).Msg("skipping unreadable staged file")
			continue
		}
		subs = append(subs, models.Submission{
			ArtifactID: uuid.NewString(),
			FileName:   name,
			Source:     models.SourceUpload,
			RawBytes:   data,
		})
	}

	outcomes := h.runner.ProcessBatch(c.UserContext(), subs)

	processed := 0
	for i, outcome := range outcomes {
		if outcome.Done {
			processed++
		}
		if outcome.Terminal() {
			if err := h.area.Remove(subs[i].FileName); err != nil {
				h.logger.Warn().Err(err).Str("file", subs[i].FileName).Msg("failed to remove staged file")
			}
		}
	}

	return utils.SendSuccess(c, "reprocess completed", dto.ReprocessResponse{Processed: processed})
}
