package usecase

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"sitecontent/internal/content/document"
	"sitecontent/internal/content/domain/model"
	"sitecontent/internal/content/domain/repository"
	"sitecontent/internal/content/normalize"
	"sitecontent/internal/shared/errors"
	"sitecontent/internal/shared/eventbus"
	"sitecontent/internal/shared/logger"
)

// SnapshotSource exposes the current content snapshot to readers.
type SnapshotSource interface {
	Snapshot() model.Snapshot
}

// SeedConfig controls the one-time write of default content into an empty store.
type SeedConfig struct {
	Enabled bool
	Payload func() model.Document
	Timeout time.Duration
}

// StoreClientConfig configures a StoreClient.
type StoreClientConfig struct {
	DocumentPath string
	Seed         SeedConfig
	// ConfigErr, when set, means the backing store is unusable and the client
	// goes straight to the errored state.
	ConfigErr error
}

// StoreClient owns the subscription to the content document and the
// authoritative snapshot derived from it.
type StoreClient struct {
	store      repository.DocumentStore
	normalizer *normalize.Normalizer
	bus        eventbus.EventBusInterface
	log        logger.Logger
	cfg        StoreClientConfig

	// seq orders snapshot updates together with their events.
	seq         sync.Mutex
	mu          sync.RWMutex
	state       model.ClientState
	snap        model.Snapshot
	source      model.Document
	changed     chan struct{}
	unsubscribe func()
	closeOnce   sync.Once
}

// NewStoreClient creates a client in the uninitialized state. store may be
// nil, which behaves like a configuration error on Start.
func NewStoreClient(store repository.DocumentStore, normalizer *normalize.Normalizer, bus eventbus.EventBusInterface, log logger.Logger, cfg StoreClientConfig) *StoreClient {
	if log == nil {
		log = logger.NewNop()
	}
	if cfg.Seed.Timeout == 0 {
		cfg.Seed.Timeout = 10 * time.Second
	}
	return &StoreClient{
		store:      store,
		normalizer: normalizer,
		bus:        bus,
		log:        log.WithComponent("store_client"),
		cfg:        cfg,
		state:      model.StateUninitialized,
		snap:       model.Snapshot{Loading: true},
		changed:    make(chan struct{}),
	}
}

// Start seeds the document if asked to, then subscribes to it. A store that
// cannot be reached or is not configured leaves the client errored for good;
// the error is returned for logging but readers see it through the snapshot.
func (c *StoreClient) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.state != model.StateUninitialized {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	if c.store == nil || c.cfg.ConfigErr != nil {
		err := c.cfg.ConfigErr
		if err == nil {
			err = errors.NewConfigurationError("content store is not configured")
		}
		c.fail(ctx, err)
		return err
	}

	if c.cfg.Seed.Enabled {
		c.seed(ctx)
	}

	unsubscribe, err := c.store.Subscribe(ctx, c.cfg.DocumentPath, c.onChange, c.onError)
	if err != nil {
		err = errors.NewConfigurationError("content store unreachable").WithCause(err)
		c.fail(ctx, err)
		return err
	}

	c.mu.Lock()
	if c.state == model.StateClosed {
		c.mu.Unlock()
		unsubscribe()
		return nil
	}
	c.unsubscribe = unsubscribe
	if c.state == model.StateUninitialized {
		c.state = model.StateSubscribed
	}
	c.mu.Unlock()

	c.log.Info("subscribed to content document", zap.String("path", c.cfg.DocumentPath))
	return nil
}

// seed writes the default payload when the document does not exist yet.
// Failures are logged and never block the subscription.
func (c *StoreClient) seed(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Seed.Timeout)
	defer cancel()

	_, err := c.store.Get(ctx, c.cfg.DocumentPath)
	if err == nil {
		return
	}
	if !errors.IsDocumentMissing(err) {
		c.log.Warn("seed check failed", zap.String("path", c.cfg.DocumentPath), zap.Error(err))
		return
	}
	if c.cfg.Seed.Payload == nil {
		return
	}
	if err := c.store.Set(ctx, c.cfg.DocumentPath, c.cfg.Seed.Payload()); err != nil {
		c.log.Warn("seeding content document failed", zap.String("path", c.cfg.DocumentPath), zap.Error(err))
		return
	}
	c.log.Info("seeded content document", zap.String("path", c.cfg.DocumentPath))
	c.publish(ctx, eventbus.EventTypeSeeded, c.cfg.DocumentPath)
}

func (c *StoreClient) onChange(change model.DocumentChange) {
	if !change.Exists {
		c.apply(context.Background(), nil, errors.ErrDocumentMissing.Error(), change.UpdateTime)
		return
	}
	c.apply(context.Background(), change.Data, "", change.UpdateTime)
}

func (c *StoreClient) onError(err error) {
	c.log.Error("content subscription failed", zap.String("path", c.cfg.DocumentPath), zap.Error(err))
	c.fail(context.Background(), err)
}

// Adopt installs doc as the authoritative snapshot after a successful write,
// ahead of the store's own notification.
func (c *StoreClient) Adopt(doc model.Document) {
	c.apply(context.Background(), doc, "", time.Now())
}

func (c *StoreClient) apply(ctx context.Context, data model.Document, errMsg string, at time.Time) {
	c.seq.Lock()
	defer c.seq.Unlock()

	next := model.Snapshot{Error: errMsg, UpdatedAt: at}
	var source model.Document
	if data != nil {
		source = document.Clone(data)
		normalized := c.normalizer.Document(source)
		content, err := document.Decode(normalized)
		if err != nil {
			c.log.Warn("content document has unexpected shape", zap.Error(err))
			next.Error = err.Error()
			source = nil
		} else {
			next.Content = content
			next.Document = normalized
		}
	}

	c.mu.Lock()
	if c.state == model.StateClosed {
		c.mu.Unlock()
		return
	}
	next.Version = c.snap.Version + 1
	c.snap = next
	c.source = source
	close(c.changed)
	c.changed = make(chan struct{})
	c.mu.Unlock()

	c.publish(ctx, eventbus.EventTypeSnapshotChanged, next)
}

func (c *StoreClient) fail(ctx context.Context, err error) {
	c.seq.Lock()
	defer c.seq.Unlock()

	c.mu.Lock()
	if c.state == model.StateClosed {
		c.mu.Unlock()
		return
	}
	c.state = model.StateErrored
	c.snap = model.Snapshot{
		Error:     err.Error(),
		Version:   c.snap.Version + 1,
		UpdatedAt: time.Now(),
	}
	c.source = nil
	close(c.changed)
	c.changed = make(chan struct{})
	snap := c.snap
	c.mu.Unlock()

	c.publish(ctx, eventbus.EventTypeSnapshotChanged, snap)
}

func (c *StoreClient) publish(ctx context.Context, eventType string, data interface{}) {
	if c.bus == nil {
		return
	}
	if err := c.bus.Publish(ctx, eventbus.NewBasicEventWithSource(eventType, data, "store_client")); err != nil {
		c.log.Warn("event handler failed", zap.String("eventType", eventType), zap.Error(err))
	}
}

// Snapshot returns the current snapshot. Its maps are shared and read-only.
func (c *StoreClient) Snapshot() model.Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snap
}

// Source returns an owned copy of the stored document behind the current
// snapshot, before asset resolution. It is nil when there is no content.
func (c *StoreClient) Source() model.Document {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return document.Clone(c.source)
}

// State reports the client lifecycle state.
func (c *StoreClient) State() model.ClientState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// WaitForVersion blocks until the snapshot version reaches at least v.
func (c *StoreClient) WaitForVersion(ctx context.Context, v uint64) (model.Snapshot, error) {
	for {
		c.mu.RLock()
		snap, ch := c.snap, c.changed
		c.mu.RUnlock()
		if snap.Version >= v {
			return snap, nil
		}
		select {
		case <-ch:
		case <-ctx.Done():
			return snap, ctx.Err()
		}
	}
}

// Close cancels the subscription. It is safe to call more than once and on a
// client that never subscribed.
func (c *StoreClient) Close() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		unsubscribe := c.unsubscribe
		c.unsubscribe = nil
		c.state = model.StateClosed
		c.mu.Unlock()

		if unsubscribe != nil {
			unsubscribe()
		}
		c.log.Info("content subscription closed", zap.String("path", c.cfg.DocumentPath))
	})
}
