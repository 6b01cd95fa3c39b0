package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/textproto"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"sitecontent/internal/content/domain/model"
	"sitecontent/internal/content/domain/repository"
	"sitecontent/internal/shared/errors"
	"sitecontent/internal/shared/logger"
)

// Client uploads files to a Cloudinary-compatible asset host with signed
// requests.
type Client struct {
	cfg    Config
	signer *Signer
	http   *fasthttp.Client
	logger logger.Logger
}

var _ repository.AssetUploader = (*Client)(nil)

func NewClient(cfg Config, log logger.Logger) *Client {
	cfg = cfg.withDefaults()
	if log == nil {
		log = logger.NewNop()
	}
	return &Client{
		cfg:    cfg,
		signer: NewSigner(cfg),
		http: &fasthttp.Client{
			Name:                "sitecontent-uploader",
			MaxConnsPerHost:     16,
			ReadTimeout:         cfg.Timeout,
			WriteTimeout:        cfg.Timeout,
			MaxResponseBodySize: 4 << 20,
		},
		logger: log.WithComponent("asset-uploader"),
	}
}

// Configured reports whether uploads can be attempted.
func (c *Client) Configured() bool { return c.cfg.Configured() }

// uploadResponse is the host's reply. Errors come back as {"error":{"message"}}.
type uploadResponse struct {
	SecureURL    string `json:"secure_url"`
	URL          string `json:"url"`
	PublicID     string `json:"public_id"`
	ResourceType string `json:"resource_type"`
	Format       string `json:"format"`
	Error        *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Upload sends file as a multipart upload.
func (c *Client) Upload(ctx context.Context, file model.StagedFile, opts model.UploadOptions) (*model.UploadResult, error) {
	if opts.ResourceType == "" {
		opts.ResourceType = ResourceTypeFor(file.ContentType)
	}
	return c.send(ctx, opts, func(w *multipart.Writer) error {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, file.Name))
		ct := file.ContentType
		if ct == "" {
			ct = "application/octet-stream"
		}
		h.Set("Content-Type", ct)
		part, err := w.CreatePart(h)
		if err != nil {
			return err
		}
		_, err = part.Write(file.Data)
		return err
	})
}

// UploadDataURL uploads a base64 data URL, which the host accepts as the
// file field directly.
func (c *Client) UploadDataURL(ctx context.Context, dataURL string, opts model.UploadOptions) (*model.UploadResult, error) {
	if !strings.HasPrefix(dataURL, "data:") {
		return nil, errors.NewValidationError("expected a base64 data URL")
	}
	if opts.ResourceType == "" {
		opts.ResourceType = ResourceTypeForDataURL(dataURL)
	}
	return c.send(ctx, opts, func(w *multipart.Writer) error {
		return w.WriteField("file", dataURL)
	})
}

func (c *Client) send(ctx context.Context, opts model.UploadOptions, writeFile func(*multipart.Writer) error) (*model.UploadResult, error) {
	if !c.cfg.Configured() {
		return nil, notConfigured()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	resourceType := opts.ResourceType
	if resourceType == "" {
		resourceType = "image"
	}
	// resource_type is carried by the endpoint path, not the signed form.
	signed, err := c.signer.Sign(model.UploadOptions{Folder: opts.Folder, PublicID: opts.PublicID})
	if err != nil {
		return nil, err
	}

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	if err := writeFile(w); err != nil {
		return nil, errors.WrapError(err, "building upload form")
	}
	fields := [][2]string{
		{"api_key", signed.APIKey},
		{"timestamp", fmt.Sprint(signed.Timestamp)},
		{"signature", signed.Signature},
		{"folder", signed.Folder},
		{"overwrite", "true"},
	}
	if signed.PublicID != "" {
		fields = append(fields, [2]string{"public_id", signed.PublicID})
	}
	for _, f := range fields {
		if err := w.WriteField(f[0], f[1]); err != nil {
			return nil, errors.WrapError(err, "building upload form")
		}
	}
	if err := w.Close(); err != nil {
		return nil, errors.WrapError(err, "building upload form")
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	endpoint := fmt.Sprintf("%s/%s/%s/upload", c.cfg.APIBase, c.cfg.CloudName, resourceType)
	req.SetRequestURI(endpoint)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType(w.FormDataContentType())
	req.SetBody(body.Bytes())

	deadline := time.Now().Add(c.cfg.Timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	started := time.Now()
	if err := c.http.DoDeadline(req, resp, deadline); err != nil {
		c.logger.Warn("asset upload request failed", zap.String("endpoint", endpoint), zap.Error(err))
		return nil, errors.NewInfrastructureError("asset host request failed").WithCause(fmt.Errorf("%w: %v", errors.ErrUploadFailed, err))
	}

	var parsed uploadResponse
	_ = json.Unmarshal(resp.Body(), &parsed)
	status := resp.StatusCode()
	if status < 200 || status > 299 {
		msg := fmt.Sprintf("status %d", status)
		if parsed.Error != nil && parsed.Error.Message != "" {
			msg += ": " + parsed.Error.Message
		}
		c.logger.Warn("asset host rejected upload", zap.Int("status", status), zap.String("detail", msg))
		return nil, errors.NewInfrastructureError("asset host rejected upload").
			WithCause(fmt.Errorf("%w: %s", errors.ErrUploadFailed, msg)).
			WithDetail("status", status)
	}

	url := parsed.SecureURL
	if url == "" {
		url = parsed.URL
	}
	if url == "" {
		return nil, errors.NewInfrastructureError("asset host response has no URL").WithCause(errors.ErrUploadFailed)
	}
	c.logger.Info("asset uploaded",
		zap.String("publicId", parsed.PublicID),
		zap.String("resourceType", parsed.ResourceType),
		zap.Duration("took", time.Since(started)))
	return &model.UploadResult{
		URL:          url,
		PublicID:     parsed.PublicID,
		ResourceType: parsed.ResourceType,
		Format:       parsed.Format,
	}, nil
}

// ResourceTypeFor maps a MIME type to the host's resource type.
func ResourceTypeFor(contentType string) string {
	switch {
	case strings.HasPrefix(contentType, "image/"):
		return "image"
	case strings.HasPrefix(contentType, "video/"):
		return "video"
	default:
		return "auto"
	}
}

// ResourceTypeForDataURL infers the resource type from a data URL's MIME.
func ResourceTypeForDataURL(dataURL string) string {
	mime := strings.TrimPrefix(dataURL, "data:")
	if i := strings.IndexAny(mime, ";,"); i >= 0 {
		mime = mime[:i]
	}
	return ResourceTypeFor(mime)
}
