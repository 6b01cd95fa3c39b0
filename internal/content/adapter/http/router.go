package http

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"sitecontent/internal/content/adapter/security"
	"sitecontent/internal/content/asset"
	"sitecontent/internal/content/domain/model"
	"sitecontent/internal/content/domain/repository"
	"sitecontent/internal/content/siteurl"
	"sitecontent/internal/content/usecase"
	"sitecontent/internal/shared/eventbus"
	"sitecontent/internal/shared/logger"
)

// DataURLUploader uploads browser-encoded files for the upload endpoint.
type DataURLUploader interface {
	UploadDataURL(ctx context.Context, dataURL string, opts model.UploadOptions) (*model.UploadResult, error)
	Configured() bool
}

// Deps are the collaborators the HTTP layer serves. Nil optional fields turn
// the matching routes into 503 responses, except Tokens which leaves admin
// routes open.
type Deps struct {
	Client       *usecase.StoreClient
	Reader       *usecase.SiteReader
	Store        repository.DocumentStore
	Editor       *usecase.Editor
	Uploader     DataURLUploader
	Signer       repository.UploadSigner
	Enquiries    *usecase.EnquiryService
	Tokens       *security.TokenService
	Bus          eventbus.EventBusInterface
	Assets       *asset.Registry
	SiteURL      *siteurl.Resolver
	Log          logger.Logger
	DocumentPath string
	ServiceName  string
	// EnquiryLimit caps enquiries per client per minute; zero disables it.
	EnquiryLimit int
	// PingInterval and PongWait drive the WebSocket heartbeat. Zero values
	// mean 25s and 60s; PingInterval must stay below PongWait.
	PingInterval time.Duration
	PongWait     time.Duration
}

// Handler serves the content API.
type Handler struct {
	deps       Deps
	middleware *Middleware
	log        logger.Logger
	now        func() time.Time
}

// NewHandler creates the content API handler.
func NewHandler(deps Deps) *Handler {
	if deps.Log == nil {
		deps.Log = logger.NewNop()
	}
	if deps.SiteURL == nil {
		deps.SiteURL = siteurl.New("")
	}
	if deps.PongWait <= 0 {
		deps.PongWait = wsPongWait
	}
	if deps.PingInterval <= 0 {
		deps.PingInterval = wsPingInterval
	}
	if deps.PingInterval >= deps.PongWait {
		deps.PingInterval = deps.PongWait * 9 / 10
	}
	if deps.ServiceName == "" {
		deps.ServiceName = "Global XT Enquiry API"
	}
	return &Handler{
		deps:       deps,
		middleware: NewMiddleware(deps.Tokens, deps.Log),
		log:        deps.Log.WithComponent("http"),
		now:        time.Now,
	}
}

// RegisterRoutes mounts every route on app.
func (h *Handler) RegisterRoutes(app *fiber.App) {
	m := h.middleware
	app.Use(m.RequestID(), m.RequestContext(), m.SecurityHeaders())

	app.All("/api/upload-image", h.UploadImage)
	app.All("/api/cloudinary-sign", h.SignUpload)

	app.Use(m.CORS())

	app.Get("/health", h.Health)
	app.Get("/api/health", h.APIHealth)
	app.Get("/sitemap.xml", h.Sitemap)

	api := app.Group("/api")
	api.Get("/content", h.GetContent)
	api.Get("/content/pages/:page", h.GetPageCopy)
	api.Get("/content/categories/:category", h.GetCategory)
	api.Get("/content/categories/:category/products/:product", h.GetProduct)
	api.Get("/documents/*", h.GetDocument)
	api.Put("/documents/*", m.RequireAdmin(), h.PutDocument)

	if h.deps.EnquiryLimit > 0 {
		api.Post("/send-enquiry", m.RateLimiter(h.deps.EnquiryLimit, time.Minute), h.SendEnquiry)
	} else {
		api.Post("/send-enquiry", h.SendEnquiry)
	}

	admin := api.Group("/admin", m.RequireAdmin())
	admin.Post("/sessions", h.OpenSession)
	admin.Get("/sessions/:id", h.GetSession)
	admin.Delete("/sessions/:id", h.CloseSession)
	admin.Put("/sessions/:id/edits", h.StageEdits)
	admin.Put("/sessions/:id/uploads", h.StageUpload)
	admin.Delete("/sessions/:id/uploads", h.Unstage)
	admin.Get("/sessions/:id/gallery-slot", h.NextGallerySlot)
	admin.Post("/sessions/:id/reset", h.ResetSession)
	admin.Post("/sessions/:id/commit", h.CommitSession)

	h.registerWebSocketRoutes(app)
}
