package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"sitecontent/internal/content/domain/model"
	apperrors "sitecontent/internal/shared/errors"
)

type recorder struct {
	mu      sync.Mutex
	changes []model.DocumentChange
	errs    []error
	got     chan struct{}
}

func newRecorder() *recorder {
	return &recorder{got: make(chan struct{}, 64)}
}

func (r *recorder) onChange(c model.DocumentChange) {
	r.mu.Lock()
	r.changes = append(r.changes, c)
	r.mu.Unlock()
	r.got <- struct{}{}
}

func (r *recorder) onError(err error) {
	r.mu.Lock()
	r.errs = append(r.errs, err)
	r.mu.Unlock()
	r.got <- struct{}{}
}

func (r *recorder) wait(t *testing.T, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-r.got:
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for notification %d", i+1)
		}
	}
}

func TestStore_GetSetReplace(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	_, err := s.Get(ctx, "content/site")
	assert.True(t, apperrors.IsDocumentMissing(err))

	require.NoError(t, s.Set(ctx, "content/site", model.Document{"a": 1, "b": 2}))
	require.NoError(t, s.Set(ctx, "/content/site", model.Document{"c": 3}))

	doc, err := s.Get(ctx, "content/site")
	require.NoError(t, err)
	assert.Equal(t, model.Document{"c": 3}, doc)

	doc["c"] = 4
	again, _ := s.Get(ctx, "content/site")
	assert.Equal(t, 3, again["c"])

	assert.Error(t, s.Set(ctx, "content", model.Document{}))
}

func TestStore_SubscribeDeliversInOrder(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := NewStore()
	ctx := context.Background()
	rec := newRecorder()

	unsubscribe, err := s.Subscribe(ctx, "content/site", rec.onChange, rec.onError)
	require.NoError(t, err)
	rec.wait(t, 1)

	for i := 0; i < 5; i++ {
		require.NoError(t, s.Set(ctx, "content/site", model.Document{"n": i}))
	}
	require.NoError(t, s.Delete(ctx, "content/site"))
	rec.wait(t, 6)

	rec.mu.Lock()
	require.Len(t, rec.changes, 7)
	assert.False(t, rec.changes[0].Exists)
	for i := 0; i < 5; i++ {
		assert.Equal(t, i, rec.changes[i+1].Data["n"])
	}
	assert.False(t, rec.changes[6].Exists)
	rec.mu.Unlock()

	unsubscribe()
	unsubscribe()
	assert.Equal(t, 0, s.SubscriberCount("content/site"))
}

func TestStore_SubscribeExistingDocument(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := NewStore()
	ctx := context.Background()
	require.NoError(t, s.Set(ctx, "content/site", model.Document{"x": "y"}))

	rec := newRecorder()
	unsubscribe, err := s.Subscribe(ctx, "content/site", rec.onChange, rec.onError)
	require.NoError(t, err)
	defer unsubscribe()
	rec.wait(t, 1)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.True(t, rec.changes[0].Exists)
	assert.Equal(t, "y", rec.changes[0].Data["x"])
}

func TestStore_FailSubscribers(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := NewStore()
	rec := newRecorder()
	_, err := s.Subscribe(context.Background(), "content/site", rec.onChange, rec.onError)
	require.NoError(t, err)
	rec.wait(t, 1)

	boom := errors.New("connection reset")
	s.FailSubscribers("content/site", boom)
	rec.wait(t, 1)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	require.Len(t, rec.errs, 1)
	assert.Equal(t, boom, rec.errs[0])
}

func TestStore_Close(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := NewStore()
	ctx := context.Background()
	rec := newRecorder()
	_, err := s.Subscribe(ctx, "content/site", rec.onChange, rec.onError)
	require.NoError(t, err)

	require.NoError(t, s.Close(ctx))
	assert.Error(t, s.Set(ctx, "content/site", model.Document{}))
	_, err = s.Subscribe(ctx, "content/site", rec.onChange, rec.onError)
	assert.Error(t, err)
}
