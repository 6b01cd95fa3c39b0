package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"

	"sitecontent/internal/content/adapter/mail"
	"sitecontent/internal/content/adapter/persistence/remote"
	"sitecontent/internal/content/adapter/upload"
	"sitecontent/internal/shared/errors"
	"sitecontent/internal/shared/logger"
)

// Store kinds.
const (
	StoreMemory  = "memory"
	StoreMongoDB = "mongodb"
	StoreRedis   = "redis"
	StoreRemote  = "remote"
)

// ServerConfig holds server configuration
type ServerConfig struct {
	Host         string        `env:"SERVER_HOST" envDefault:"localhost"`
	Port         string        `env:"SERVER_PORT" envDefault:"3001"`
	ReadTimeout  time.Duration `env:"SERVER_READ_TIMEOUT" envDefault:"30s"`
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" envDefault:"60s"`
	// EnquiryRateLimit caps enquiries per client per minute; zero disables it.
	EnquiryRateLimit int `env:"ENQUIRY_RATE_LIMIT" envDefault:"10"`
	// WebSocket heartbeat: the server pings every WSPingInterval and drops
	// a peer that has been silent for WSPongWait.
	WSPingInterval time.Duration `env:"WS_PING_INTERVAL" envDefault:"25s"`
	WSPongWait     time.Duration `env:"WS_PONG_WAIT" envDefault:"60s"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string { return fmt.Sprintf("%s:%s", s.Host, s.Port) }

// ContentConfig configures the content document and the editor.
type ContentConfig struct {
	StoreKind         string        `env:"CONTENT_STORE" envDefault:"memory"`
	DocumentPath      string        `env:"CONTENT_DOCUMENT_PATH" envDefault:"content/site"`
	AutoSeed          bool          `env:"AUTO_SEED" envDefault:"false"`
	SeedTimeout       time.Duration `env:"SEED_TIMEOUT" envDefault:"15s"`
	CloudinaryMapFile string        `env:"CLOUDINARY_MAP_FILE"`
	SiteURL           string        `env:"SITE_URL"`
	UploadConcurrency int           `env:"UPLOAD_CONCURRENCY" envDefault:"3"`
	GallerySlots      int           `env:"GALLERY_SLOTS" envDefault:"10"`
	PublishRules      []string      `env:"PUBLISH_RULES" envSeparator:";"`
	AdminJWTSecret    string        `env:"ADMIN_JWT_SECRET"`
	AdminJWTIssuer    string        `env:"ADMIN_JWT_ISSUER" envDefault:"sitecontent"`
	AdminTokenTTL     time.Duration `env:"ADMIN_TOKEN_TTL" envDefault:"12h"`
}

// MongoConfig configures the MongoDB store. Change streams need a replica set.
type MongoConfig struct {
	URI        string `env:"MONGODB_URI"`
	Database   string `env:"MONGODB_DATABASE" envDefault:"sitecontent"`
	Collection string `env:"MONGODB_COLLECTION" envDefault:"documents"`
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Host            string `env:"REDIS_HOST" envDefault:"localhost"`
	Port            string `env:"REDIS_PORT" envDefault:"6379"`
	Password        string `env:"REDIS_PASSWORD"`
	Database        int    `env:"REDIS_DB" envDefault:"0"`
	MaxRetries      int    `env:"REDIS_MAX_RETRIES" envDefault:"3"`
	PoolSize        int    `env:"REDIS_POOL_SIZE" envDefault:"10"`
	MinIdleConns    int    `env:"REDIS_MIN_IDLE_CONNS" envDefault:"2"`
	ConnMaxIdleTime string `env:"REDIS_CONN_MAX_IDLE_TIME" envDefault:"30m"`
	ConnMaxLifetime string `env:"REDIS_CONN_MAX_LIFETIME" envDefault:"1h"`
	EnableTLS       bool   `env:"REDIS_TLS" envDefault:"false"`
	KeyPrefix       string `env:"REDIS_KEY_PREFIX" envDefault:"sitecontent:"`
}

// GetAddr returns host:port.
func (r RedisConfig) GetAddr() string { return fmt.Sprintf("%s:%s", r.Host, r.Port) }

// Config is the full application configuration.
type Config struct {
	Server     ServerConfig
	Content    ContentConfig
	Mongo      MongoConfig
	Redis      RedisConfig
	Remote     remote.Config
	Cloudinary upload.Config
	Mail       mail.Config
	Log        logger.Config
}

// Load reads .env when present, then the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return Parse()
}

// Parse reads configuration from the environment only.
func Parse() (*Config, error) {
	cfg := &Config{}
	for name, target := range map[string]interface{}{
		"server":     &cfg.Server,
		"content":    &cfg.Content,
		"mongodb":    &cfg.Mongo,
		"redis":      &cfg.Redis,
		"remote":     &cfg.Remote,
		"cloudinary": &cfg.Cloudinary,
		"mail":       &cfg.Mail,
		"log":        &cfg.Log,
	} {
		if err := env.Parse(target); err != nil {
			return nil, errors.NewValidationError(fmt.Sprintf("failed to load %s configuration: %v", name, err))
		}
	}
	cfg.Content.StoreKind = strings.ToLower(strings.TrimSpace(cfg.Content.StoreKind))
	cfg.Content.PublishRules = nonBlank(cfg.Content.PublishRules)
	if cfg.Content.UploadConcurrency <= 0 {
		cfg.Content.UploadConcurrency = 3
	}
	if cfg.Content.GallerySlots <= 0 {
		cfg.Content.GallerySlots = 10
	}
	return cfg, nil
}

func nonBlank(in []string) []string {
	out := in[:0]
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// StoreError reports why the selected store cannot be used, or nil. The
// content client treats a non-nil result as a configuration failure.
func (c *Config) StoreError() error {
	switch c.Content.StoreKind {
	case StoreMemory:
		return nil
	case StoreMongoDB:
		if strings.TrimSpace(c.Mongo.URI) == "" {
			return errors.NewConfigurationError("MONGODB_URI is required for the mongodb content store")
		}
		return nil
	case StoreRedis:
		if strings.TrimSpace(c.Redis.Host) == "" {
			return errors.NewConfigurationError("REDIS_HOST is required for the redis content store")
		}
		return nil
	case StoreRemote:
		if !c.Remote.Configured() {
			return errors.NewConfigurationError("REMOTE_STORE_URL is required for the remote content store")
		}
		return nil
	default:
		return errors.NewConfigurationError(fmt.Sprintf("unknown content store %q", c.Content.StoreKind)).
			WithDetail("allowed", []string{StoreMemory, StoreMongoDB, StoreRedis, StoreRemote})
	}
}
