package handlers

import (
	"errors"
	"fmt"
	"io"

	"github.com/gofiber/fiber/v2"

	"alfredoptarigan/resumatch/internal/models"
	"alfredoptarigan/resumatch/internal/repositories"
	"alfredoptarigan/resumatch/internal/services"
)

type AnalysisHandler struct {
	analyses    services.AnalysisService
	maxFileSize int64
}

func NewAnalysisHandler(analyses services.AnalysisService, maxFileSize int64) *AnalysisHandler {
	return &AnalysisHandler{analyses: analyses, maxFileSize: maxFileSize}
}

// HandleAnalyze expects a multipart form with a "resume" file and a "job_description" field.
func (h *AnalysisHandler) HandleAnalyze(c *fiber.Ctx) error {
	file, err := c.FormFile("resume")
	if err != nil {
		return services.ErrMissingResume
	}

	if h.maxFileSize > 0 && file.Size > h.maxFileSize {
		return NewAppError(fiber.StatusBadRequest, fmt.Sprintf("resume file too large, max size: %d bytes", h.maxFileSize), nil)
	}

	src, err := file.Open()
	if err != nil {
		return NewAppError(fiber.StatusBadRequest, "failed to read uploaded file", err)
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		return NewAppError(fiber.StatusBadRequest, "failed to read uploaded file", err)
	}

	analysis, err := h.analyses.Analyze(c.UserContext(), models.AnalysisRequest{
		Document:       data,
		Filename:       file.Filename,
		JobDescription: c.FormValue("job_description"),
		UserID:         currentUserID(c),
	})
	if err != nil {
		return err
	}

	return c.JSON(analysis)
}

func (h *AnalysisHandler) HandleList(c *fiber.Ctx) error {
	analyses, err := h.analyses.List(c.UserContext(), currentUserID(c))
	if err != nil {
		return err
	}
	return c.JSON(analyses)
}

func (h *AnalysisHandler) HandleGet(c *fiber.Ctx) error {
	analysis, err := h.analyses.Get(c.UserContext(), c.Params("id"), currentUserID(c))
	if err != nil {
		return analysisLookupError(err)
	}
	return c.JSON(analysis)
}

func (h *AnalysisHandler) HandleDelete(c *fiber.Ctx) error {
	if err := h.analyses.Delete(c.UserContext(), c.Params("id"), currentUserID(c)); err != nil {
		return analysisLookupError(err)
	}
	return c.JSON(models.MessageResponse{Message: "Analysis deleted successfully"})
}

// analysisLookupError answers identically for missing records and records owned by someone else.
func analysisLookupError(err error) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return NewAppError(fiber.StatusNotFound, "Analysis not found", err)
	}
	return err
}
