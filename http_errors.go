package account

import (
	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
)

const msgUnexpected = "An unexpected error occurred."

// ErrorResponse is the JSON error body
type ErrorResponse struct {
	Detail string            `json:"detail"`
	Errors map[string]string `json:"errors,omitempty"`
}

// StatusForError maps an error category onto an HTTP status
func StatusForError(err error) int {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		var fe *fiber.Error
		if goerrors.As(err, &fe) {
			return fe.Code
		}
		return fiber.StatusInternalServerError
	}

	switch richErr.Category {
	case goerrors.CategoryValidation,
		goerrors.CategoryBadInput,
		goerrors.CategoryAuth,
		goerrors.CategoryConflict:
		return fiber.StatusBadRequest
	case goerrors.CategoryNotFound:
		return fiber.StatusNotFound
	case goerrors.CategoryAuthz:
		return fiber.StatusForbidden
	case goerrors.CategoryRateLimit:
		return fiber.StatusTooManyRequests
	default:
		return fiber.StatusInternalServerError
	}
}

// NewErrorResponse builds the body for err. Internal errors never leak
// their message.
func NewErrorResponse(err error) (int, ErrorResponse) {
	status := StatusForError(err)
	if status >= fiber.StatusInternalServerError {
		return status, ErrorResponse{Detail: msgUnexpected}
	}

	var fe *fiber.Error
	if goerrors.As(err, &fe) {
		return status, ErrorResponse{Detail: fe.Message}
	}

	var richErr *goerrors.Error
	goerrors.As(err, &richErr)

	resp := ErrorResponse{Detail: richErr.Message}
	if fields, ok := goerrors.GetValidationErrors(err); ok && len(fields) > 0 {
		resp.Errors = make(map[string]string, len(fields))
		for _, f := range fields {
			resp.Errors[f.Field] = f.Message
		}
		// a single field error reads better as the detail
		if len(fields) == 1 {
			resp.Detail = fields[0].Message
		}
	}

	return status, resp
}

// ErrorHandler returns the fiber app error handler, it renders errors
// that escape the router, unknown routes included
func ErrorHandler(logger Logger) fiber.ErrorHandler {
	logger = normalizeLogger(logger)
	return func(c *fiber.Ctx, err error) error {
		status, resp := errorResponse(logger, c.Method(), c.Path(), err)
		return c.Status(status).JSON(resp)
	}
}

// RouteErrorHandler renders handler errors as JSON error bodies
func RouteErrorHandler(logger Logger) router.ErrorHandler {
	logger = normalizeLogger(logger)
	return func(c router.Context, err error) error {
		status, resp := errorResponse(logger, c.Method(), c.Path(), err)
		return c.JSON(status, resp)
	}
}

func errorResponse(logger Logger, method, path string, err error) (int, ErrorResponse) {
	status, resp := NewErrorResponse(err)
	if status >= fiber.StatusInternalServerError {
		logger.Error("%s %s failed: %v", method, path, err)
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) && len(richErr.Metadata) > 0 {
			logger.Debug("error metadata: %s", print.MaybePrettyJSON(richErr.Metadata))
		}
	}
	return status, resp
}
