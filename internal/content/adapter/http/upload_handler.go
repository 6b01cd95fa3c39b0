package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"sitecontent/internal/content/domain/model"
	"sitecontent/internal/shared/errors"
)

type uploadRequest struct {
	DataURL      string `json:"dataUrl"`
	Folder       string `json:"folder"`
	PublicID     string `json:"publicId"`
	ResourceType string `json:"resourceType"`
}

// UploadResponse mirrors the asset host's upload result field names.
type UploadResponse struct {
	SecureURL    string `json:"secure_url"`
	PublicID     string `json:"public_id"`
	ResourceType string `json:"resource_type"`
	Format       string `json:"format"`
}

// uploadError is the flat error body the browser upload widgets expect.
type uploadError struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func allowUploadCORS(c *fiber.Ctx) {
	c.Set(fiber.HeaderAccessControlAllowOrigin, "*")
	c.Set(fiber.HeaderAccessControlAllowMethods, "POST, OPTIONS")
	c.Set(fiber.HeaderAccessControlAllowHeaders, "Content-Type, Accept")
}

// preflight handles the method checks shared by the browser upload routes.
// It reports whether the handler should continue.
func preflight(c *fiber.Ctx) (bool, error) {
	allowUploadCORS(c)
	switch c.Method() {
	case fiber.MethodOptions:
		return false, c.SendStatus(fiber.StatusNoContent)
	case fiber.MethodPost:
		return true, nil
	default:
		return false, c.Status(fiber.StatusMethodNotAllowed).JSON(uploadError{Error: "Method not allowed"})
	}
}

func parseUploadRequest(c *fiber.Ctx) uploadRequest {
	var req uploadRequest
	if len(c.Body()) > 0 {
		_ = c.BodyParser(&req)
	}
	return req
}

// UploadImage uploads a base64 data URL to the asset host.
func (h *Handler) UploadImage(c *fiber.Ctx) error {
	if ok, err := preflight(c); !ok {
		return err
	}
	req := parseUploadRequest(c)
	if h.deps.Uploader == nil || !h.deps.Uploader.Configured() {
		return c.Status(fiber.StatusServiceUnavailable).JSON(uploadError{Error: "Cloudinary not configured on server"})
	}
	if !strings.HasPrefix(req.DataURL, "data:") {
		return c.Status(fiber.StatusBadRequest).JSON(uploadError{Error: "Invalid payload: expected dataUrl (base64 data URL)"})
	}

	res, err := h.deps.Uploader.UploadDataURL(c.UserContext(), req.DataURL, model.UploadOptions{
		Folder:       req.Folder,
		PublicID:     req.PublicID,
		ResourceType: req.ResourceType,
	})
	if err != nil {
		h.log.Error("asset upload failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(uploadError{Error: "Cloudinary upload failed", Details: err.Error()})
	}
	return c.JSON(UploadResponse{
		SecureURL:    res.URL,
		PublicID:     res.PublicID,
		ResourceType: res.ResourceType,
		Format:       res.Format,
	})
}

// SignUpload returns signed parameters for a direct browser upload.
func (h *Handler) SignUpload(c *fiber.Ctx) error {
	if ok, err := preflight(c); !ok {
		return err
	}
	req := parseUploadRequest(c)
	if h.deps.Signer == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(uploadError{Error: "Cloudinary not configured on server"})
	}
	params, err := h.deps.Signer.Sign(model.UploadOptions{
		Folder:       req.Folder,
		PublicID:     req.PublicID,
		ResourceType: req.ResourceType,
	})
	if errors.IsConfiguration(err) {
		return c.Status(fiber.StatusServiceUnavailable).JSON(uploadError{Error: "Cloudinary not configured on server"})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(uploadError{Error: "Cloudinary sign failed", Details: err.Error()})
	}
	return c.JSON(params)
}
