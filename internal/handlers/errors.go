package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"alfredoptarigan/resumatch/internal/logger"
	"alfredoptarigan/resumatch/internal/models"
	"alfredoptarigan/resumatch/internal/repositories"
	"alfredoptarigan/resumatch/internal/services"
)

const (
	msgUnauthenticated = "Not authenticated"
	msgNotFound        = "Not found"
	msgAnalysisFailed  = "Analysis failed, please try again later"
	msgInternal        = "Internal server error"
)

// AppError carries an HTTP status and a caller-facing message. Messages of
// 5xx errors are replaced with a generic one before they leave the server.
type AppError struct {
	StatusCode int
	Message    string
	Cause      error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func NewAppError(statusCode int, message string, cause error) *AppError {
	return &AppError{StatusCode: statusCode, Message: message, Cause: cause}
}

// NewErrorHandler maps domain errors to HTTP responses for fiber.Config.ErrorHandler.
func NewErrorHandler(log *zap.Logger) fiber.ErrorHandler {
	log = logger.OrNop(log)

	return func(c *fiber.Ctx, err error) error {
		status, msg := normalizeError(err)

		fields := []zap.Field{
			zap.Int("status", status),
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Error(err),
		}
		switch {
		case status >= fiber.StatusInternalServerError:
			log.Error("request failed", fields...)
		case status == fiber.StatusUnauthorized:
			log.Debug("request rejected", fields...)
		}

		return c.Status(status).JSON(models.ErrorResponse{Error: msg, Code: status})
	}
}

func normalizeError(err error) (int, string) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		if appErr.StatusCode <= 0 || appErr.StatusCode >= fiber.StatusInternalServerError {
			return fiber.StatusInternalServerError, msgInternal
		}
		return appErr.StatusCode, appErr.Message
	}

	var (
		parseErr      *services.DocumentParseError
		validationErr *services.ValidationError
		oracleErr     *services.OracleError
		fiberErr      *fiber.Error
	)

	switch {
	case services.IsAuthError(err):
		return fiber.StatusUnauthorized, msgUnauthenticated
	case errors.Is(err, services.ErrUnsupportedFormat),
		errors.Is(err, services.ErrEmptyDocument),
		errors.Is(err, services.ErrMissingResume),
		errors.Is(err, services.ErrMissingJobDesc),
		errors.Is(err, services.ErrSessionIDRequired):
		return fiber.StatusBadRequest, err.Error()
	case errors.As(err, &parseErr), errors.As(err, &validationErr):
		return fiber.StatusBadRequest, err.Error()
	case errors.Is(err, repositories.ErrNotFound):
		return fiber.StatusNotFound, msgNotFound
	case errors.As(err, &oracleErr):
		return fiber.StatusInternalServerError, msgAnalysisFailed
	case errors.As(err, &fiberErr):
		if fiberErr.Code >= fiber.StatusInternalServerError {
			return fiber.StatusInternalServerError, msgInternal
		}
		return fiberErr.Code, fiberErr.Message
	default:
		return fiber.StatusInternalServerError, msgInternal
	}
}
