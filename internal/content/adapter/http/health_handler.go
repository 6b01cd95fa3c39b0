package http

import (
	"github.com/gofiber/fiber/v2"

	"sitecontent/internal/content/domain/model"
)

// APIHealth is the liveness check the site front end polls.
func (h *Handler) APIHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":    "OK",
		"timestamp": h.now().UTC().Format(timeLayout),
		"service":   h.deps.ServiceName,
	})
}

// Health reports the store subscription state. It answers 503 when the
// client has errored or closed.
func (h *Handler) Health(c *fiber.Ctx) error {
	body := fiber.Map{
		"status":    "healthy",
		"timestamp": h.now().UTC().Format(timeLayout),
		"service":   h.deps.ServiceName,
	}
	status := fiber.StatusOK
	if h.deps.Client != nil {
		state := h.deps.Client.State()
		snap := h.deps.Client.Snapshot()
		body["store"] = fiber.Map{
			"state":   state,
			"version": snap.Version,
			"loading": snap.Loading,
			"error":   snap.Error,
		}
		if state == model.StateErrored || state == model.StateClosed {
			body["status"] = "unhealthy"
			status = fiber.StatusServiceUnavailable
		}
	}
	if h.deps.Editor != nil {
		body["sessions"] = h.deps.Editor.SessionCount()
	}
	if h.deps.Assets != nil {
		body["assets"] = h.deps.Assets.Names()
	}
	return c.Status(status).JSON(body)
}
