package accounts

import (
	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
)

const (
	messageAuthFailure = "invalid credentials or token"
	messageNotFound    = "not found"
	messageInternal    = "internal server error"
)

// ErrorBody is the JSON error payload
type ErrorBody struct {
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

type errorEnvelope struct {
	Error ErrorBody `json:"error"`
}

// StatusForError maps an error to its HTTP status and public body.
// Authentication and authorization failures share one generic 400 so the
// response never tells which check failed.
func StatusForError(err error) (int, ErrorBody) {
	var fiberErr *fiber.Error
	if goerrors.As(err, &fiberErr) {
		return fiberErr.Code, ErrorBody{Message: fiberErr.Message}
	}

	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return fiber.StatusInternalServerError, ErrorBody{Message: messageInternal}
	}

	switch richErr.Category {
	case goerrors.CategoryValidation, goerrors.CategoryBadInput:
		return fiber.StatusBadRequest, ErrorBody{
			Message: richErr.Message,
			Fields:  richErr.ValidationMap(),
		}
	case goerrors.CategoryAuth, goerrors.CategoryAuthz:
		return fiber.StatusBadRequest, ErrorBody{Message: messageAuthFailure}
	case goerrors.CategoryNotFound:
		return fiber.StatusNotFound, ErrorBody{Message: messageNotFound}
	default:
		return fiber.StatusInternalServerError, ErrorBody{Message: messageInternal}
	}
}

// WriteError logs err and writes its public representation.
func WriteError(c *fiber.Ctx, logger Logger, err error) error {
	status, body := StatusForError(err)
	logError(c, logger, status, err)
	return c.Status(status).JSON(errorEnvelope{Error: body})
}

// NewErrorHandler returns a fiber ErrorHandler using the same mapping as
// the controller.
func NewErrorHandler(logger Logger) fiber.ErrorHandler {
	if logger == nil {
		logger = defLogger()
	}
	return func(c *fiber.Ctx, err error) error {
		return WriteError(c, logger, err)
	}
}

func logError(c *fiber.Ctx, logger Logger, status int, err error) {
	if logger == nil {
		logger = defLogger()
	}

	args := []any{
		"status", status,
		"method", c.Method(),
		"path", c.Path(),
		"error", err.Error(),
	}
	for _, attr := range goerrors.ToSlogAttributes(err) {
		args = append(args, attr)
	}

	if status >= fiber.StatusInternalServerError {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) && len(richErr.Metadata) > 0 {
			args = append(args, "details", print.MaybePrettyJSON(richErr.Metadata))
		}
		logger.Error("request failed", args...)
		return
	}
	logger.Info("request rejected", args...)
}
