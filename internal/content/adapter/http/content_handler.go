package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"sitecontent/internal/content/domain/model"
	"sitecontent/internal/shared/docpath"
	"sitecontent/internal/shared/errors"
)

// ContentResponse is the resolved content plus the live status.
type ContentResponse struct {
	Content   *model.SiteContent `json:"content"`
	Loading   bool               `json:"loading"`
	Error     string             `json:"error,omitempty"`
	Version   uint64             `json:"version"`
	UpdatedAt string             `json:"updatedAt,omitempty"`
}

func (h *Handler) contentResponse() ContentResponse {
	resp := ContentResponse{}
	if h.deps.Reader != nil {
		resp.Content = h.deps.Reader.Resolved()
		st := h.deps.Reader.Status()
		resp.Loading, resp.Error = st.Loading, st.Error
	}
	if h.deps.Client != nil {
		snap := h.deps.Client.Snapshot()
		resp.Version = snap.Version
		if !snap.UpdatedAt.IsZero() {
			resp.UpdatedAt = snap.UpdatedAt.UTC().Format(timeLayout)
		}
	}
	return resp
}

const timeLayout = "2006-01-02T15:04:05.000Z07:00"

// GetContent returns the live content, falling back to defaults per field.
func (h *Handler) GetContent(c *fiber.Ctx) error {
	if h.deps.Reader == nil {
		return respondError(c, errors.NewConfigurationError("content reader not configured"))
	}
	return c.JSON(h.contentResponse())
}

// GetPageCopy returns the copy block for one page.
func (h *Handler) GetPageCopy(c *fiber.Ctx) error {
	if h.deps.Reader == nil {
		return respondError(c, errors.NewConfigurationError("content reader not configured"))
	}
	page := c.Params("page")
	pageCopy := h.deps.Reader.PageCopy(page)
	if pageCopy == nil {
		return respondError(c, errors.NewNotFoundError("page copy "+page))
	}
	return c.JSON(pageCopy)
}

// GetCategory returns one product category by slug.
func (h *Handler) GetCategory(c *fiber.Ctx) error {
	if h.deps.Reader == nil {
		return respondError(c, errors.NewConfigurationError("content reader not configured"))
	}
	slug := c.Params("category")
	cat, ok := h.deps.Reader.Category(slug)
	if !ok {
		return respondError(c, errors.NewNotFoundError("category "+slug))
	}
	return c.JSON(cat)
}

// GetProduct returns one product within a category.
func (h *Handler) GetProduct(c *fiber.Ctx) error {
	if h.deps.Reader == nil {
		return respondError(c, errors.NewConfigurationError("content reader not configured"))
	}
	cat, prod := c.Params("category"), c.Params("product")
	p, ok := h.deps.Reader.Product(cat, prod)
	if !ok {
		return respondError(c, errors.NewNotFoundError("product "+cat+"/"+prod))
	}
	return c.JSON(p)
}

func documentPathParam(c *fiber.Ctx) (string, error) {
	path := strings.Trim(c.Params("*"), "/")
	if err := docpath.ValidateDocumentPath(path); err != nil {
		return "", err
	}
	return path, nil
}

// GetDocument returns the raw stored document as a DocumentChange.
func (h *Handler) GetDocument(c *fiber.Ctx) error {
	if h.deps.Store == nil {
		return respondError(c, errors.NewConfigurationError("document store not configured"))
	}
	path, err := documentPathParam(c)
	if err != nil {
		return respondError(c, err)
	}
	doc, err := h.deps.Store.Get(c.UserContext(), path)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(model.DocumentChange{Exists: true, Data: doc, UpdateTime: h.now().UTC()})
}

// PutDocument replaces the whole document at the path.
func (h *Handler) PutDocument(c *fiber.Ctx) error {
	if h.deps.Store == nil {
		return respondError(c, errors.NewConfigurationError("document store not configured"))
	}
	path, err := documentPathParam(c)
	if err != nil {
		return respondError(c, err)
	}
	var doc model.Document
	if err := c.BodyParser(&doc); err != nil || doc == nil {
		return respondError(c, errors.NewValidationError("request body must be a JSON object"))
	}
	if err := h.deps.Store.Set(c.UserContext(), path, doc); err != nil {
		h.log.Error("document write failed", zap.String("path", path), zap.Error(err))
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Sitemap renders sitemap.xml from the resolved content.
func (h *Handler) Sitemap(c *fiber.Ctx) error {
	var content *model.SiteContent
	if h.deps.Reader != nil {
		content = h.deps.Reader.Resolved()
	}
	body, err := h.deps.SiteURL.Sitemap(c.BaseURL(), content, h.now())
	if err != nil {
		return respondError(c, errors.WrapError(err, "sitemap generation failed"))
	}
	c.Set(fiber.HeaderContentType, "application/xml; charset=utf-8")
	return c.Send(body)
}
