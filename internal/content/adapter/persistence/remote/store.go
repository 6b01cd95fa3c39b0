// Package remote reaches a content document held by another sitecontent
// server: reads and writes over the REST API, changes over its WebSocket
// document stream.
package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/fasthttp/websocket"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"sitecontent/internal/content/domain/model"
	"sitecontent/internal/content/domain/repository"
	"sitecontent/internal/shared/docpath"
	"sitecontent/internal/shared/errors"
	"sitecontent/internal/shared/logger"
)

// Config points the store at a remote server.
type Config struct {
	BaseURL string `env:"REMOTE_STORE_URL"`
	// Token is an admin bearer token; reads work without one.
	Token            string        `env:"REMOTE_STORE_TOKEN"`
	Timeout          time.Duration `env:"REMOTE_STORE_TIMEOUT" envDefault:"15s"`
	HandshakeTimeout time.Duration `env:"REMOTE_STORE_HANDSHAKE_TIMEOUT" envDefault:"10s"`
}

// Configured reports whether a base URL is set.
func (c Config) Configured() bool { return strings.TrimSpace(c.BaseURL) != "" }

// streamMessage is the envelope the server pushes on /ws/documents.
type streamMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type streamError struct {
	Message string `json:"message"`
}

// Store implements repository.DocumentStore against a remote server.
type Store struct {
	cfg    Config
	base   string
	wsBase string
	http   *fasthttp.Client
	dialer *websocket.Dialer
	log    logger.Logger

	mu     sync.Mutex
	subs   map[*subscription]struct{}
	closed bool
}

var _ repository.DocumentStore = (*Store)(nil)

// NewStore creates a store for cfg.BaseURL, which must be an http(s) URL.
func NewStore(cfg Config, log logger.Logger) (*Store, error) {
	if log == nil {
		log = logger.NewNop()
	}
	u, err := url.Parse(strings.TrimSuffix(strings.TrimSpace(cfg.BaseURL), "/"))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, errors.NewConfigurationError("remote store URL must be an http(s) URL").
			WithCause(errors.ErrStoreNotConfigured).
			WithDetail("url", cfg.BaseURL)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = 10 * time.Second
	}
	ws := *u
	ws.Scheme = "ws"
	if u.Scheme == "https" {
		ws.Scheme = "wss"
	}
	return &Store{
		cfg:    cfg,
		base:   u.String(),
		wsBase: ws.String(),
		http: &fasthttp.Client{
			Name:                "sitecontent-remote",
			MaxConnsPerHost:     8,
			ReadTimeout:         cfg.Timeout,
			WriteTimeout:        cfg.Timeout,
			MaxResponseBodySize: 16 << 20,
		},
		dialer: &websocket.Dialer{HandshakeTimeout: cfg.HandshakeTimeout},
		log:    log.WithComponent("remote-store"),
		subs:   make(map[*subscription]struct{}),
	}, nil
}

func (s *Store) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Store) deadline(ctx context.Context) time.Time {
	d := time.Now().Add(s.cfg.Timeout)
	if cd, ok := ctx.Deadline(); ok && cd.Before(d) {
		return cd
	}
	return d
}

func (s *Store) do(ctx context.Context, method, path string, body []byte) (int, []byte, error) {
	if s.isClosed() {
		return 0, nil, errors.NewInfrastructureError("remote store closed")
	}
	if err := ctx.Err(); err != nil {
		return 0, nil, err
	}
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(s.base + "/api/documents/" + path)
	req.Header.SetMethod(method)
	req.Header.Set(fasthttp.HeaderAccept, "application/json")
	if s.cfg.Token != "" {
		req.Header.Set(fasthttp.HeaderAuthorization, "Bearer "+s.cfg.Token)
	}
	if body != nil {
		req.Header.SetContentType("application/json")
		req.SetBody(body)
	}
	if err := s.http.DoDeadline(req, resp, s.deadline(ctx)); err != nil {
		s.log.Warn("remote request failed", zap.String("method", method), zap.String("path", path), zap.Error(err))
		return 0, nil, errors.NewInfrastructureError("remote store unreachable").WithCause(err)
	}
	out := append([]byte(nil), resp.Body()...)
	return resp.StatusCode(), out, nil
}

// statusError maps a non-success reply to an application error.
func statusError(status int, body []byte, path string) error {
	var reply struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	_ = json.Unmarshal(body, &reply)
	msg := reply.Message
	if msg == "" {
		msg = fmt.Sprintf("remote store returned status %d", status)
	}
	switch {
	case status == fasthttp.StatusNotFound:
		return errors.NewDocumentMissingError(path)
	case status == fasthttp.StatusUnauthorized || status == fasthttp.StatusForbidden:
		return errors.NewAuthenticationError(msg).WithCause(errors.ErrUnauthorized)
	case status == fasthttp.StatusServiceUnavailable:
		return errors.NewConfigurationError(msg)
	case status >= 400 && status < 500:
		return errors.NewValidationError(msg).WithDetail("status", status)
	default:
		return errors.NewInfrastructureError(msg).WithDetail("status", status)
	}
}

// Get returns the document at path.
func (s *Store) Get(ctx context.Context, path string) (model.Document, error) {
	if err := docpath.ValidateDocumentPath(path); err != nil {
		return nil, err
	}
	status, body, err := s.do(ctx, fasthttp.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	if status != fasthttp.StatusOK {
		return nil, statusError(status, body, path)
	}
	var change model.DocumentChange
	if err := json.Unmarshal(body, &change); err != nil {
		return nil, errors.NewInfrastructureError("malformed remote document").WithCause(err)
	}
	if !change.Exists || change.Data == nil {
		return nil, errors.NewDocumentMissingError(path)
	}
	return change.Data, nil
}

// Set replaces the whole document at path. It needs an admin token.
func (s *Store) Set(ctx context.Context, path string, doc model.Document) error {
	if err := docpath.ValidateDocumentPath(path); err != nil {
		return err
	}
	if doc == nil {
		doc = model.Document{}
	}
	body, err := json.Marshal(doc)
	if err != nil {
		return errors.NewValidationError("document is not JSON encodable").WithCause(err)
	}
	status, reply, err := s.do(ctx, fasthttp.MethodPut, path, body)
	if err != nil {
		return err
	}
	if status != fasthttp.StatusNoContent && status != fasthttp.StatusOK {
		return statusError(status, reply, path)
	}
	return nil
}

// Subscribe opens the document stream. The server's first message is the
// current state and is delivered before Subscribe returns.
func (s *Store) Subscribe(ctx context.Context, path string, onChange func(model.DocumentChange), onError func(error)) (func(), error) {
	if err := docpath.ValidateDocumentPath(path); err != nil {
		return nil, err
	}
	if s.isClosed() {
		return nil, errors.NewInfrastructureError("remote store closed")
	}

	q := url.Values{"path": {path}}
	if s.cfg.Token != "" {
		q.Set("token", s.cfg.Token)
	}
	conn, _, err := s.dialer.DialContext(ctx, s.wsBase+"/ws/documents?"+q.Encode(), nil)
	if err != nil {
		return nil, errors.NewConfigurationError("remote document stream unavailable").WithCause(err)
	}

	sub := &subscription{store: s, conn: conn, path: path, onChange: onChange, onError: onError}
	_ = conn.SetReadDeadline(time.Now().Add(s.cfg.Timeout))
	first, err := sub.next()
	if err != nil {
		_ = conn.Close()
		return nil, errors.NewConfigurationError("remote document stream failed").WithCause(err)
	}
	_ = conn.SetReadDeadline(time.Time{})

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		_ = conn.Close()
		return nil, errors.NewInfrastructureError("remote store closed")
	}
	s.subs[sub] = struct{}{}
	s.mu.Unlock()

	onChange(first)
	go sub.run()
	s.log.Debug("remote subscription opened", zap.String("path", path))
	return sub.stop, nil
}

// Close ends every subscription. It is safe to call more than once.
func (s *Store) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	subs := make([]*subscription, 0, len(s.subs))
	for sub := range s.subs {
		subs = append(subs, sub)
	}
	s.mu.Unlock()

	for _, sub := range subs {
		sub.stop()
	}
	s.http.CloseIdleConnections()
	return nil
}

func (s *Store) forget(sub *subscription) {
	s.mu.Lock()
	delete(s.subs, sub)
	s.mu.Unlock()
}
