package content

import (
	"context"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	contenthttp "sitecontent/internal/content/adapter/http"
	"sitecontent/internal/content/adapter/mail"
	"sitecontent/internal/content/adapter/persistence/memory"
	"sitecontent/internal/content/adapter/persistence/mongodb"
	"sitecontent/internal/content/adapter/persistence/redis"
	"sitecontent/internal/content/adapter/persistence/remote"
	"sitecontent/internal/content/adapter/security"
	"sitecontent/internal/content/adapter/upload"
	"sitecontent/internal/content/asset"
	"sitecontent/internal/content/config"
	"sitecontent/internal/content/defaults"
	"sitecontent/internal/content/domain/model"
	"sitecontent/internal/content/domain/repository"
	"sitecontent/internal/content/normalize"
	"sitecontent/internal/content/siteurl"
	"sitecontent/internal/content/usecase"
	"sitecontent/internal/shared/errors"
	"sitecontent/internal/shared/eventbus"
	"sitecontent/internal/shared/logger"
)

// ContentModule wires the content document, its readers and the admin
// pipeline behind the HTTP surface.
type ContentModule struct {
	cfg      *config.Config
	log      logger.Logger
	bus      *eventbus.EventBus
	store    repository.DocumentStore
	storeErr error

	normalizer *normalize.Normalizer
	client     *usecase.StoreClient
	reader     *usecase.SiteReader
	editor     *usecase.Editor
	enquiries  *usecase.EnquiryService
	uploader   *upload.Client
	signer     *upload.Signer
	tokens     *security.TokenService
	handler    *contenthttp.Handler
}

// OpenStore connects the store selected by CONTENT_STORE.
func OpenStore(ctx context.Context, cfg *config.Config, log logger.Logger) (repository.DocumentStore, error) {
	if err := cfg.StoreError(); err != nil {
		return nil, err
	}
	switch cfg.Content.StoreKind {
	case config.StoreMongoDB:
		s, err := mongodb.Connect(ctx, cfg.Mongo.URI, cfg.Mongo.Database, cfg.Mongo.Collection, log)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.StoreRedis:
		s, err := redis.Connect(ctx, cfg.Redis.RedisOptions(), cfg.Redis.KeyPrefix, log)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.StoreRemote:
		s, err := remote.NewStore(cfg.Remote, log)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return memory.NewStore(), nil
	}
}

// NewContentModule builds the module. A store that cannot be opened does not
// fail construction: the client starts errored and readers serve defaults.
func NewContentModule(ctx context.Context, cfg *config.Config, log logger.Logger) (*ContentModule, error) {
	if log == nil {
		log = logger.NewNop()
	}
	log = log.WithComponent("content")

	m := &ContentModule{cfg: cfg, log: log, bus: eventbus.NewEventBus(log)}

	store, err := OpenStore(ctx, cfg, log)
	if err != nil {
		log.Error("content store unavailable, serving defaults",
			zap.String("store", cfg.Content.StoreKind),
			zap.Error(err))
		m.storeErr = err
	} else {
		m.store = store
	}

	assets := asset.DefaultRegistry()
	resolver := asset.NewResolver(assets, asset.WithSiteOrigin(cfg.Content.SiteURL))
	m.normalizer = normalize.New(resolver)

	normalizedDefaults, err := usecase.NormalizedDefaults(defaults.Document(), m.normalizer)
	if err != nil {
		return nil, fmt.Errorf("failed to normalize bundled defaults: %w", err)
	}

	var cloudMap defaults.CloudinaryMap
	if cfg.Content.CloudinaryMapFile != "" {
		if cloudMap, err = defaults.LoadCloudinaryMap(cfg.Content.CloudinaryMapFile); err != nil {
			log.Warn("cloudinary map not loaded", zap.String("file", cfg.Content.CloudinaryMapFile), zap.Error(err))
		}
	}

	m.client = usecase.NewStoreClient(m.store, m.normalizer, m.bus, log, usecase.StoreClientConfig{
		DocumentPath: cfg.Content.DocumentPath,
		Seed: usecase.SeedConfig{
			Enabled: cfg.Content.AutoSeed,
			Payload: func() model.Document { return defaults.SeedPayload(cloudMap) },
			Timeout: cfg.Content.SeedTimeout,
		},
		ConfigErr: m.storeErr,
	})
	m.reader = usecase.NewSiteReader(m.client, normalizedDefaults)

	rules, err := usecase.CompilePublishRules(cfg.Content.PublishRules)
	if err != nil {
		return nil, err
	}

	m.uploader = upload.NewClient(cfg.Cloudinary, log)
	m.signer = upload.NewSigner(cfg.Cloudinary)
	if !m.uploader.Configured() {
		log.Warn("asset host not configured, uploads will be rejected")
	}

	m.editor = usecase.NewEditor(m.store, m.uploader, m.client, rules, m.bus, log, usecase.EditorConfig{
		DocumentPath: cfg.Content.DocumentPath,
		Concurrency:  cfg.Content.UploadConcurrency,
		GallerySlots: cfg.Content.GallerySlots,
		UploadFolder: m.cfg.Cloudinary.DefaultFolder,
	}, defaults.Document)

	var mailer repository.Mailer
	if cfg.Mail.Configured() {
		mailer = mail.NewMailer(cfg.Mail, log)
	} else {
		log.Warn("mail not configured, enquiries will be rejected")
	}
	m.enquiries = usecase.NewEnquiryService(mailer, log)

	if cfg.Content.AdminJWTSecret != "" {
		m.tokens, err = security.NewTokenService(cfg.Content.AdminJWTSecret, cfg.Content.AdminJWTIssuer, cfg.Content.AdminTokenTTL)
		if err != nil {
			return nil, fmt.Errorf("failed to create token service: %w", err)
		}
	} else {
		log.Warn("ADMIN_JWT_SECRET not set, admin routes are open")
	}

	m.handler = contenthttp.NewHandler(contenthttp.Deps{
		Client:       m.client,
		Reader:       m.reader,
		Store:        m.store,
		Editor:       m.editor,
		Uploader:     m.uploader,
		Signer:       m.signer,
		Enquiries:    m.enquiries,
		Tokens:       m.tokens,
		Bus:          m.bus,
		Assets:       assets,
		SiteURL:      siteurl.New(cfg.Content.SiteURL),
		Log:          log,
		DocumentPath: cfg.Content.DocumentPath,
		EnquiryLimit: cfg.Server.EnquiryRateLimit,
		PingInterval: cfg.Server.WSPingInterval,
		PongWait:     cfg.Server.WSPongWait,
	})
	return m, nil
}

// Start subscribes to the content document. A configuration error is
// returned but leaves the module serving defaults.
func (m *ContentModule) Start(ctx context.Context) error {
	return m.client.Start(ctx)
}

// RegisterRoutes mounts the content API.
func (m *ContentModule) RegisterRoutes(app *fiber.App) {
	m.handler.RegisterRoutes(app)
}

// Client returns the store client.
func (m *ContentModule) Client() *usecase.StoreClient { return m.client }

// Reader returns the site reader.
func (m *ContentModule) Reader() *usecase.SiteReader { return m.reader }

// Editor returns the admin editor.
func (m *ContentModule) Editor() *usecase.Editor { return m.editor }

// Store returns the document store, or nil when it could not be opened.
func (m *ContentModule) Store() repository.DocumentStore { return m.store }

// Tokens returns the admin token service, or nil when admin auth is off.
func (m *ContentModule) Tokens() *security.TokenService { return m.tokens }

// HealthCheck fails when the content subscription is not live.
func (m *ContentModule) HealthCheck(ctx context.Context) error {
	switch m.client.State() {
	case model.StateErrored:
		snap := m.client.Snapshot()
		return errors.NewInfrastructureError("content subscription errored").WithDetail("error", snap.Error)
	case model.StateClosed:
		return errors.NewInfrastructureError("content subscription closed")
	}
	return nil
}

// Stop closes the subscription and the store.
func (m *ContentModule) Stop(ctx context.Context) error {
	m.client.Close()
	if m.store != nil {
		return m.store.Close(ctx)
	}
	return nil
}
