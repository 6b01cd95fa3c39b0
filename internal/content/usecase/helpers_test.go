package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"sitecontent/internal/content/adapter/persistence/memory"
	"sitecontent/internal/content/asset"
	"sitecontent/internal/content/domain/model"
	"sitecontent/internal/content/normalize"
	"sitecontent/internal/shared/eventbus"
	"sitecontent/internal/shared/logger"
)

const testPath = "content/site"

func testNormalizer() *normalize.Normalizer {
	return normalize.New(asset.NewResolver(asset.DefaultRegistry()))
}

func waitVersion(t *testing.T, c *StoreClient, v uint64) model.Snapshot {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	snap, err := c.WaitForVersion(ctx, v)
	require.NoError(t, err)
	return snap
}

func newClient(store *memory.Store, cfg StoreClientConfig) *StoreClient {
	if cfg.DocumentPath == "" {
		cfg.DocumentPath = testPath
	}
	return NewStoreClient(store, testNormalizer(), eventbus.NewEventBus(logger.NewNop()), logger.NewNop(), cfg)
}

// faultyStore wraps the memory store and injects failures.
type faultyStore struct {
	*memory.Store

	mu           sync.Mutex
	setErr       error
	subscribeErr error
	setCalls     int
	setStarted   chan struct{}
	setGate      chan struct{}
}

func newFaultyStore() *faultyStore {
	return &faultyStore{Store: memory.NewStore()}
}

func (f *faultyStore) Set(ctx context.Context, path string, doc model.Document) error {
	f.mu.Lock()
	f.setCalls++
	err, started, gate := f.setErr, f.setStarted, f.setGate
	f.mu.Unlock()
	if started != nil {
		started <- struct{}{}
	}
	if gate != nil {
		<-gate
	}
	if err != nil {
		return err
	}
	return f.Store.Set(ctx, path, doc)
}

func (f *faultyStore) Subscribe(ctx context.Context, path string, onChange func(model.DocumentChange), onError func(error)) (func(), error) {
	if f.subscribeErr != nil {
		return nil, f.subscribeErr
	}
	return f.Store.Subscribe(ctx, path, onChange, onError)
}

func (f *faultyStore) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.setCalls
}

var errWriteRejected = errors.New("write rejected")
