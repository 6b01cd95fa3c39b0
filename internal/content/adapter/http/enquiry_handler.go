package http

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"sitecontent/internal/content/domain/model"
	"sitecontent/internal/shared/errors"
)

// EnquiryResponse is the reply to an enquiry submission.
type EnquiryResponse struct {
	Success   bool   `json:"success"`
	MessageID string `json:"messageId,omitempty"`
	Message   string `json:"message,omitempty"`
	Error     string `json:"error,omitempty"`
}

// SendEnquiry validates an enquiry and mails it to the sales inbox.
func (h *Handler) SendEnquiry(c *fiber.Ctx) error {
	var e model.Enquiry
	if err := c.BodyParser(&e); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(EnquiryResponse{Error: "Invalid enquiry payload"})
	}
	if h.deps.Enquiries == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(EnquiryResponse{Error: "Email delivery is not configured"})
	}

	id, err := h.deps.Enquiries.Submit(c.UserContext(), e)
	switch {
	case err == nil:
		return c.JSON(EnquiryResponse{Success: true, MessageID: id, Message: "Enquiry sent successfully"})
	case errors.IsValidation(err):
		app, _ := errors.AsAppError(err)
		return c.Status(fiber.StatusBadRequest).JSON(EnquiryResponse{Error: app.Message})
	case errors.IsConfiguration(err):
		return c.Status(fiber.StatusServiceUnavailable).JSON(EnquiryResponse{Error: "Email delivery is not configured"})
	default:
		h.log.Error("enquiry delivery failed",
			zap.String("customer", e.ContactDetails.Name),
			zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(EnquiryResponse{
			Error: "Failed to send enquiry. Please try again or contact us directly.",
		})
	}
}
