package upload

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	"sitecontent/internal/content/domain/model"
	"sitecontent/internal/content/domain/repository"
	"sitecontent/internal/shared/errors"
)

const (
	DefaultAPIBase = "https://api.cloudinary.com/v1_1"
	DefaultFolder  = "global-xt-uploads"
)

// Config holds the asset host credentials.
type Config struct {
	CloudName     string        `env:"CLOUDINARY_CLOUD_NAME"`
	APIKey        string        `env:"CLOUDINARY_API_KEY"`
	APISecret     string        `env:"CLOUDINARY_API_SECRET"`
	DefaultFolder string        `env:"CLOUDINARY_FOLDER" envDefault:"global-xt-uploads"`
	APIBase       string        `env:"CLOUDINARY_API_BASE"`
	Timeout       time.Duration `env:"CLOUDINARY_TIMEOUT" envDefault:"60s"`
}

// Configured reports whether every credential is present.
func (c Config) Configured() bool {
	return c.CloudName != "" && c.APIKey != "" && c.APISecret != ""
}

func (c Config) withDefaults() Config {
	if c.DefaultFolder == "" {
		c.DefaultFolder = DefaultFolder
	}
	if c.APIBase == "" {
		c.APIBase = DefaultAPIBase
	}
	c.APIBase = strings.TrimRight(c.APIBase, "/")
	if c.Timeout <= 0 {
		c.Timeout = 60 * time.Second
	}
	return c
}

func notConfigured() error {
	return errors.NewConfigurationError("asset host is not configured on server").WithCause(errors.ErrStoreNotConfigured)
}

// Signer signs upload parameters with the API secret.
type Signer struct {
	cfg Config
	now func() time.Time
}

var _ repository.UploadSigner = (*Signer)(nil)

func NewSigner(cfg Config) *Signer {
	return &Signer{cfg: cfg.withDefaults(), now: time.Now}
}

// Sign returns the signed parameter set for a direct upload. The signed
// fields are timestamp, folder, overwrite=true and, when given, public_id and
// resource_type.
func (s *Signer) Sign(opts model.UploadOptions) (*model.SignedParams, error) {
	if !s.cfg.Configured() {
		return nil, notConfigured()
	}
	folder := opts.Folder
	if folder == "" {
		folder = s.cfg.DefaultFolder
	}
	ts := s.now().Unix()
	params := map[string]string{
		"timestamp": fmt.Sprint(ts),
		"folder":    folder,
		"overwrite": "true",
	}
	if opts.PublicID != "" {
		params["public_id"] = opts.PublicID
	}
	if opts.ResourceType != "" {
		params["resource_type"] = opts.ResourceType
	}
	return &model.SignedParams{
		CloudName:    s.cfg.CloudName,
		APIKey:       s.cfg.APIKey,
		Timestamp:    ts,
		Folder:       folder,
		PublicID:     opts.PublicID,
		ResourceType: opts.ResourceType,
		Signature:    SignParams(params, s.cfg.APISecret),
	}, nil
}

// SignParams computes the request signature: the SHA-1 hex digest of the
// non-empty parameters sorted by key as "k=v" joined with "&", followed by
// the secret.
func SignParams(params map[string]string, secret string) string {
	keys := make([]string, 0, len(params))
	for k, v := range params {
		if v != "" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	pairs := make([]string, len(keys))
	for i, k := range keys {
		pairs[i] = k + "=" + params[k]
	}
	sum := sha1.Sum([]byte(strings.Join(pairs, "&") + secret))
	return hex.EncodeToString(sum[:])
}
