package usecase

import (
	"context"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"sitecontent/internal/content/adapter/persistence/memory"
	"sitecontent/internal/content/defaults"
	"sitecontent/internal/content/domain/model"
	"sitecontent/internal/shared/errors"
	"sitecontent/internal/shared/eventbus"
	"sitecontent/internal/shared/logger"
)

func TestStoreClient_NotConfigured(t *testing.T) {
	c := NewStoreClient(nil, testNormalizer(), nil, logger.NewNop(), StoreClientConfig{DocumentPath: testPath})
	assert.True(t, c.Snapshot().Loading)

	err := c.Start(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsConfiguration(err))

	snap := c.Snapshot()
	assert.Equal(t, model.StateErrored, c.State())
	assert.Nil(t, snap.Content)
	assert.False(t, snap.Loading)
	assert.NotEmpty(t, snap.Error)

	// stays errored, no retry
	assert.NoError(t, c.Start(context.Background()))
	assert.Equal(t, model.StateErrored, c.State())

	c.Close()
	c.Close()
	assert.Equal(t, model.StateClosed, c.State())
}

func TestStoreClient_ConfigErrorFromSettings(t *testing.T) {
	store := memory.NewStore()
	cfgErr := errors.NewConfigurationError("MONGODB_URI is required")
	c := newClient(store, StoreClientConfig{ConfigErr: cfgErr})

	err := c.Start(context.Background())
	assert.Equal(t, cfgErr, err)
	assert.Equal(t, model.StateErrored, c.State())
	assert.Contains(t, c.Snapshot().Error, "MONGODB_URI")
	assert.Equal(t, 0, store.SubscriberCount(testPath))
}

func TestStoreClient_SubscribeFailure(t *testing.T) {
	store := newFaultyStore()
	store.subscribeErr = assert.AnError
	c := NewStoreClient(store, testNormalizer(), nil, logger.NewNop(), StoreClientConfig{DocumentPath: testPath})

	err := c.Start(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsConfiguration(err))
	assert.Equal(t, model.StateErrored, c.State())
	assert.False(t, c.Snapshot().Loading)
}

func TestStoreClient_DocumentMissing(t *testing.T) {
	defer goleak.VerifyNone(t)

	c := newClient(memory.NewStore(), StoreClientConfig{})
	require.NoError(t, c.Start(context.Background()))
	defer c.Close()

	snap := waitVersion(t, c, 1)
	assert.Equal(t, model.StateSubscribed, c.State())
	assert.Nil(t, snap.Content)
	assert.False(t, snap.Loading)
	assert.Equal(t, "document missing", snap.Error)
	assert.Nil(t, c.Source())
}

func TestStoreClient_AutoSeed(t *testing.T) {
	defer goleak.VerifyNone(t)

	store := memory.NewStore()
	c := newClient(store, StoreClientConfig{
		Seed: SeedConfig{Enabled: true, Payload: func() model.Document { return defaults.SeedPayload(nil) }},
	})
	require.NoError(t, c.Start(context.Background()))
	defer c.Close()

	snap := waitVersion(t, c, 1)
	require.NotNil(t, snap.Content)
	assert.Empty(t, snap.Error)

	want := testNormalizer().Document(defaults.SeedPayload(nil))
	if diff := cmp.Diff(want, snap.Document); diff != "" {
		t.Fatalf("seeded snapshot mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "/assets/ginger.jpg", snap.Content.ProductCategories[0].Products[0].Image)

	stored, err := store.Get(context.Background(), testPath)
	require.NoError(t, err)
	assert.Equal(t, "ginger.jpg", stored["productCategories"].([]interface{})[0].(map[string]interface{})["products"].([]interface{})[0].(map[string]interface{})["image"])
	assert.Equal(t, stored, c.Source())
}

func TestStoreClient_SeedSkippedWhenDocumentExists(t *testing.T) {
	defer goleak.VerifyNone(t)

	store := newFaultyStore()
	require.NoError(t, store.Store.Set(context.Background(), testPath, model.Document{"companyInfo": map[string]interface{}{"name": "Existing"}}))
	c := NewStoreClient(store, testNormalizer(), nil, logger.NewNop(), StoreClientConfig{
		DocumentPath: testPath,
		Seed:         SeedConfig{Enabled: true, Payload: defaults.Document},
	})
	require.NoError(t, c.Start(context.Background()))
	defer c.Close()

	snap := waitVersion(t, c, 1)
	assert.Equal(t, "Existing", snap.Content.CompanyInfo.Name)
	assert.Equal(t, 0, store.calls())
}

func TestStoreClient_SeedFailureIsNotSurfaced(t *testing.T) {
	defer goleak.VerifyNone(t)

	store := newFaultyStore()
	store.setErr = errWriteRejected
	c := NewStoreClient(store, testNormalizer(), nil, logger.NewNop(), StoreClientConfig{
		DocumentPath: testPath,
		Seed:         SeedConfig{Enabled: true, Payload: defaults.Document},
	})
	require.NoError(t, c.Start(context.Background()))
	defer c.Close()

	snap := waitVersion(t, c, 1)
	assert.Equal(t, model.StateSubscribed, c.State())
	assert.Equal(t, "document missing", snap.Error)
	assert.Equal(t, 1, store.calls())
}

func TestStoreClient_AppliesChangesInOrder(t *testing.T) {
	defer goleak.VerifyNone(t)

	store := memory.NewStore()
	bus := eventbus.NewEventBus(logger.NewNop())
	var mu sync.Mutex
	var names []string
	bus.Subscribe(eventbus.EventTypeSnapshotChanged, func(ctx context.Context, e eventbus.Event) error {
		snap := e.Data().(model.Snapshot)
		mu.Lock()
		defer mu.Unlock()
		if snap.Content != nil {
			names = append(names, snap.Content.CompanyInfo.Name)
		} else {
			names = append(names, snap.Error)
		}
		return nil
	})

	c := NewStoreClient(store, testNormalizer(), bus, logger.NewNop(), StoreClientConfig{DocumentPath: testPath})
	require.NoError(t, c.Start(context.Background()))
	defer c.Close()
	waitVersion(t, c, 1)

	ctx := context.Background()
	for _, n := range []string{"one", "two", "three"} {
		require.NoError(t, store.Set(ctx, testPath, model.Document{"companyInfo": map[string]interface{}{"name": n}}))
	}
	require.NoError(t, store.Delete(ctx, testPath))

	snap := waitVersion(t, c, 5)
	assert.Nil(t, snap.Content)
	assert.Equal(t, "document missing", snap.Error)
	assert.Equal(t, uint64(5), snap.Version)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"document missing", "one", "two", "three", "document missing"}, names)
}

func TestStoreClient_SubscriptionError(t *testing.T) {
	defer goleak.VerifyNone(t)

	store := memory.NewStore()
	require.NoError(t, store.Set(context.Background(), testPath, model.Document{"companyInfo": map[string]interface{}{"name": "A"}}))
	c := newClient(store, StoreClientConfig{})
	require.NoError(t, c.Start(context.Background()))
	defer c.Close()
	require.NotNil(t, waitVersion(t, c, 1).Content)

	store.FailSubscribers(testPath, assert.AnError)

	snap := waitVersion(t, c, 2)
	assert.Equal(t, model.StateErrored, c.State())
	assert.Nil(t, snap.Content)
	assert.False(t, snap.Loading)
	assert.Equal(t, assert.AnError.Error(), snap.Error)
}

func TestStoreClient_Adopt(t *testing.T) {
	defer goleak.VerifyNone(t)

	c := newClient(memory.NewStore(), StoreClientConfig{})
	require.NoError(t, c.Start(context.Background()))
	defer c.Close()
	waitVersion(t, c, 1)

	c.Adopt(model.Document{"heroSlides": []interface{}{map[string]interface{}{"id": "x", "image": "hero_quality.jpg"}}})

	snap := c.Snapshot()
	require.NotNil(t, snap.Content)
	assert.Empty(t, snap.Error)
	assert.Equal(t, "/assets/hero_quality.jpg", snap.Content.HeroSlides[0].Image)
	assert.Equal(t, "hero_quality.jpg", c.Source()["heroSlides"].([]interface{})[0].(map[string]interface{})["image"])
}

func TestStoreClient_CloseStopsDelivery(t *testing.T) {
	defer goleak.VerifyNone(t)

	store := memory.NewStore()
	c := newClient(store, StoreClientConfig{})
	require.NoError(t, c.Start(context.Background()))
	waitVersion(t, c, 1)

	c.Close()
	c.Close()
	assert.Equal(t, model.StateClosed, c.State())
	assert.Equal(t, 0, store.SubscriberCount(testPath))

	require.NoError(t, store.Set(context.Background(), testPath, model.Document{"a": "b"}))
	assert.Equal(t, uint64(1), c.Snapshot().Version)
}

func TestStoreClient_CloseBeforeStart(t *testing.T) {
	c := newClient(memory.NewStore(), StoreClientConfig{})
	c.Close()
	assert.Equal(t, model.StateClosed, c.State())
	assert.NoError(t, c.Start(context.Background()))
	assert.Equal(t, model.StateClosed, c.State())
}
