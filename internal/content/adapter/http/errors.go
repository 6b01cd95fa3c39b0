package http

import (
	"github.com/gofiber/fiber/v2"

	"sitecontent/internal/shared/errors"
)

// ErrorResponse is the JSON body of every error reply.
type ErrorResponse struct {
	Error   string                 `json:"error"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// respondError maps err to its HTTP status and writes an ErrorResponse.
func respondError(c *fiber.Ctx, err error) error {
	body := ErrorResponse{Error: string(errors.ErrorTypeInternal), Message: err.Error()}
	if app, ok := errors.AsAppError(err); ok {
		body.Error = string(app.Type)
		body.Message = app.Message
		body.Details = app.Details
	}
	if fe, ok := err.(*fiber.Error); ok {
		return c.Status(fe.Code).JSON(ErrorResponse{Error: "HTTP_ERROR", Message: fe.Message})
	}
	return c.Status(errors.HTTPStatus(err)).JSON(body)
}

// ErrorHandler is the Fiber error handler for the content API.
func ErrorHandler(c *fiber.Ctx, err error) error {
	return respondError(c, err)
}
