package http

import (
	"io"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"sitecontent/internal/content/domain/model"
	"sitecontent/internal/content/usecase"
	"sitecontent/internal/shared/errors"
	"sitecontent/internal/shared/utils"
)

// maxUploadBytes bounds one staged file.
const maxUploadBytes = 20 << 20

// Edit is one staged field change.
type Edit struct {
	Path  string      `json:"path"`
	Value interface{} `json:"value"`
}

// StageEditsRequest is either a single {path, value} edit or a batch under
// edits. A batch is applied in order and all-or-nothing.
type StageEditsRequest struct {
	Path  string      `json:"path,omitempty"`
	Value interface{} `json:"value,omitempty"`
	Edits []Edit      `json:"edits,omitempty"`
}

func (r StageEditsRequest) fieldEdits() []usecase.FieldEdit {
	edits := make([]usecase.FieldEdit, 0, len(r.Edits)+1)
	if r.Path != "" {
		edits = append(edits, usecase.FieldEdit{Path: r.Path, Value: r.Value})
	}
	for _, e := range r.Edits {
		edits = append(edits, usecase.FieldEdit{Path: e.Path, Value: e.Value})
	}
	return edits
}

// StageUploadResponse returns the preview reference for a staged file.
type StageUploadResponse struct {
	Slot       string `json:"slot"`
	PreviewRef string `json:"previewRef"`
}

func (h *Handler) session(c *fiber.Ctx) (*usecase.EditSession, error) {
	if h.deps.Editor == nil {
		return nil, errors.NewConfigurationError("editor not configured")
	}
	return h.deps.Editor.Session(c.Params("id"))
}

// OpenSession starts an edit session on the current content.
func (h *Handler) OpenSession(c *fiber.Ctx) error {
	if h.deps.Editor == nil {
		return respondError(c, errors.NewConfigurationError("editor not configured"))
	}
	s := h.deps.Editor.Open()
	h.log.Info("edit session opened",
		zap.String("session_id", s.ID()),
		zap.String("subject", utils.GetSubjectOrDefault(c.UserContext(), "anonymous")))
	return c.Status(fiber.StatusCreated).JSON(s.View())
}

// GetSession returns the session's draft, staged files and status.
func (h *Handler) GetSession(c *fiber.Ctx) error {
	s, err := h.session(c)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(s.View())
}

// CloseSession discards a session.
func (h *Handler) CloseSession(c *fiber.Ctx) error {
	if h.deps.Editor == nil {
		return respondError(c, errors.NewConfigurationError("editor not configured"))
	}
	if err := h.deps.Editor.CloseSession(c.Params("id")); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// StageEdits applies field edits to the draft.
func (h *Handler) StageEdits(c *fiber.Ctx) error {
	s, err := h.session(c)
	if err != nil {
		return respondError(c, err)
	}
	var req StageEditsRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, errors.NewValidationError("invalid request body").WithCause(err))
	}
	if err := s.StageEdits(req.fieldEdits()); err != nil {
		return respondError(c, err)
	}
	return c.JSON(s.View())
}

// StageUpload stages the multipart "file" for the slot in the slot query.
func (h *Handler) StageUpload(c *fiber.Ctx) error {
	s, err := h.session(c)
	if err != nil {
		return respondError(c, err)
	}
	slot := c.Query("slot")
	if slot == "" {
		return respondError(c, errors.NewValidationError("slot is required"))
	}
	fh, err := c.FormFile("file")
	if err != nil {
		return respondError(c, errors.NewValidationError("multipart field \"file\" is required").WithCause(err))
	}
	if fh.Size > maxUploadBytes {
		return respondError(c, errors.NewValidationError("file too large").WithDetail("limit", maxUploadBytes))
	}
	f, err := fh.Open()
	if err != nil {
		return respondError(c, errors.NewInternalError("cannot read upload").WithCause(err))
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return respondError(c, errors.NewInternalError("cannot read upload").WithCause(err))
	}

	ref, err := s.StageUpload(slot, model.StagedFile{
		Name:        fh.Filename,
		ContentType: fh.Header.Get(fiber.HeaderContentType),
		Data:        data,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(StageUploadResponse{Slot: slot, PreviewRef: ref})
}

// Unstage drops the staged file for a slot and restores the slot's value.
func (h *Handler) Unstage(c *fiber.Ctx) error {
	s, err := h.session(c)
	if err != nil {
		return respondError(c, err)
	}
	if err := s.Unstage(c.Query("slot")); err != nil {
		return respondError(c, err)
	}
	return c.JSON(s.View())
}

// NextGallerySlot returns the first free gallery index for a product.
func (h *Handler) NextGallerySlot(c *fiber.Ctx) error {
	s, err := h.session(c)
	if err != nil {
		return respondError(c, err)
	}
	idx, err := s.NextFreeGallerySlot(c.Query("product"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"index": idx})
}

// ResetSession rebases the draft on the live content and drops staged files.
func (h *Handler) ResetSession(c *fiber.Ctx) error {
	s, err := h.session(c)
	if err != nil {
		return respondError(c, err)
	}
	if err := s.Reset(); err != nil {
		return respondError(c, err)
	}
	return c.JSON(s.View())
}

// CommitSession uploads staged files and writes the draft.
func (h *Handler) CommitSession(c *fiber.Ctx) error {
	s, err := h.session(c)
	if err != nil {
		return respondError(c, err)
	}
	if err := s.Commit(c.UserContext()); err != nil {
		h.log.Warn("commit failed", zap.String("session_id", s.ID()), zap.Error(err))
		return respondError(c, err)
	}
	h.log.Info("content committed",
		zap.String("session_id", s.ID()),
		zap.String("subject", utils.GetSubjectOrDefault(c.UserContext(), "anonymous")))
	return c.JSON(s.View())
}
