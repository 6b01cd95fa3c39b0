package usecase

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"sitecontent/internal/content/document"
	"sitecontent/internal/content/domain/model"
	"sitecontent/internal/content/domain/repository"
	"sitecontent/internal/shared/errors"
	"sitecontent/internal/shared/eventbus"
	"sitecontent/internal/shared/logger"
)

// PreviewScheme prefixes transient preview references for staged files.
const PreviewScheme = "blob:"

// ContentSource is the part of the store client the editor needs.
type ContentSource interface {
	Source() model.Document
	Adopt(doc model.Document)
}

// EditorConfig configures the mutation pipeline.
type EditorConfig struct {
	DocumentPath string
	// Concurrency bounds parallel uploads during a commit.
	Concurrency  int
	GallerySlots int
	UploadFolder string
}

// Editor runs admin edit sessions: local drafts, deferred uploads and a single
// whole-document write per commit.
type Editor struct {
	store    repository.DocumentStore
	uploader repository.AssetUploader
	client   ContentSource
	rules    *PublishRules
	bus      eventbus.EventBusInterface
	log      logger.Logger
	cfg      EditorConfig
	fallback func() model.Document

	mu       sync.RWMutex
	sessions map[string]*EditSession
	now      func() time.Time
}

// NewEditor creates an editor. fallback supplies the starting draft when the
// live snapshot has no content; it may be nil.
func NewEditor(store repository.DocumentStore, uploader repository.AssetUploader, client ContentSource, rules *PublishRules, bus eventbus.EventBusInterface, log logger.Logger, cfg EditorConfig, fallback func() model.Document) *Editor {
	if log == nil {
		log = logger.NewNop()
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 3
	}
	if cfg.GallerySlots <= 0 {
		cfg.GallerySlots = DefaultGallerySlots
	}
	return &Editor{
		store:    store,
		uploader: uploader,
		client:   client,
		rules:    rules,
		bus:      bus,
		log:      log.WithComponent("editor"),
		cfg:      cfg,
		fallback: fallback,
		sessions: make(map[string]*EditSession),
		now:      time.Now,
	}
}

// Open starts an edit session on an owned copy of the current content.
func (e *Editor) Open() *EditSession {
	s := &EditSession{
		id:     uuid.NewString(),
		editor: e,
		status: model.EditIdle,
	}
	s.rebase(e.startingDocument())

	e.mu.Lock()
	e.sessions[s.id] = s
	e.mu.Unlock()

	e.log.Info("edit session opened", zap.String("session", s.id))
	return s
}

// Session looks up an open session.
func (e *Editor) Session(id string) (*EditSession, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	s, ok := e.sessions[id]
	if !ok {
		return nil, errors.NewNotFoundError("edit session").WithCause(errors.ErrSessionNotFound).WithDetail("session", id)
	}
	return s, nil
}

// CloseSession discards a session and its staged files.
func (e *Editor) CloseSession(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.sessions[id]; !ok {
		return errors.NewNotFoundError("edit session").WithCause(errors.ErrSessionNotFound).WithDetail("session", id)
	}
	delete(e.sessions, id)
	return nil
}

// SessionCount reports the number of open sessions.
func (e *Editor) SessionCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.sessions)
}

func (e *Editor) startingDocument() model.Document {
	if e.client != nil {
		if doc := e.client.Source(); doc != nil {
			return doc
		}
	}
	if e.fallback != nil {
		return e.fallback()
	}
	return model.Document{}
}

// publish uploads staged files into working, cleans and checks the result,
// and writes it as a whole. Nothing is written unless every upload succeeded.
func (e *Editor) publish(ctx context.Context, s *EditSession, working model.Document, staged []*model.StagedUpload) (model.Document, error) {
	if e.store == nil {
		return nil, errors.NewConfigurationError("content store is not configured")
	}

	if len(staged) > 0 {
		if e.uploader == nil {
			return nil, errors.NewConfigurationError("asset uploads are not configured")
		}
		urls := make([]string, len(staged))
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(e.cfg.Concurrency)
		for i, up := range staged {
			i, up := i, up
			g.Go(func() error {
				res, err := e.uploader.Upload(gctx, up.File, model.UploadOptions{
					Folder:   e.cfg.UploadFolder,
					PublicID: AssetPublicID(up.File),
				})
				if err == nil && (res == nil || res.URL == "") {
					err = fmt.Errorf("asset host returned no URL")
				}
				if err != nil {
					e.log.Warn("upload failed", zap.String("session", s.id), zap.String("slot", up.Slot), zap.Error(err))
					return errors.NewUploadError(up.Slot, err)
				}
				urls[i] = res.URL
				s.uploadDone()
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
		for i, up := range staged {
			if err := document.SetPath(working, up.Slot, urls[i]); err != nil {
				return nil, err
			}
		}
	}

	CleanCatalog(working, e.cfg.GallerySlots)
	doc := document.Sanitize(working)
	if ref := findPreviewRef(doc); ref != "" {
		return nil, errors.NewValidationError("document still references a local preview").WithDetail("preview", ref)
	}
	if err := e.rules.Check(doc); err != nil {
		return nil, err
	}
	if err := e.store.Set(ctx, e.cfg.DocumentPath, doc); err != nil {
		e.log.Error("content write failed", zap.String("session", s.id), zap.Error(err))
		return nil, errors.NewCommitError("writing content document failed").WithCause(err)
	}

	if e.client != nil {
		e.client.Adopt(doc)
	}
	if e.bus != nil {
		e.bus.PublishAndForget(ctx, eventbus.NewBasicEventWithSource(eventbus.EventTypeContentCommitted, e.cfg.DocumentPath, "editor"))
	}
	e.log.Info("content committed", zap.String("session", s.id), zap.Int("uploads", len(staged)))
	return doc, nil
}

func findPreviewRef(v interface{}) string {
	switch t := v.(type) {
	case string:
		if strings.HasPrefix(t, PreviewScheme) {
			return t
		}
	case map[string]interface{}:
		for _, item := range t {
			if ref := findPreviewRef(item); ref != "" {
				return ref
			}
		}
	case []interface{}:
		for _, item := range t {
			if ref := findPreviewRef(item); ref != "" {
				return ref
			}
		}
	}
	return ""
}
