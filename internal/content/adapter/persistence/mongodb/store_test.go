package mongodb

import (
	"context"
	stderrors "errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"sitecontent/internal/content/domain/model"
	"sitecontent/internal/shared/errors"
	"sitecontent/internal/shared/logger"
)

// mockCollection keeps raw BSON per _id and fans replace/delete events out
// to open change streams, so the store's decoding runs against real BSON.
type mockCollection struct {
	mu       sync.Mutex
	docs     map[string][]byte
	streams  []*mockStream
	watchErr error
	// backlog is queued on each new stream, as if written before the watch
	backlog []bson.M
}

func newMockCollection() *mockCollection {
	return &mockCollection{docs: make(map[string][]byte)}
}

type rawResult struct {
	raw []byte
	err error
}

func (r rawResult) Decode(v interface{}) error {
	if r.err != nil {
		return r.err
	}
	return bson.Unmarshal(r.raw, v)
}

func idOf(filter interface{}) string {
	id, _ := filter.(bson.M)["_id"].(string)
	return id
}

func (m *mockCollection) FindOne(ctx context.Context, filter interface{}) SingleResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.docs[idOf(filter)]
	if !ok {
		return rawResult{err: mongo.ErrNoDocuments}
	}
	return rawResult{raw: raw}
}

func (m *mockCollection) ReplaceOne(ctx context.Context, filter interface{}, replacement interface{}, opts ...*options.ReplaceOptions) error {
	raw, err := bson.Marshal(replacement)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	id := idOf(filter)
	_, existed := m.docs[id]
	m.docs[id] = raw
	op := "replace"
	if !existed {
		op = "insert"
	}
	var full bson.Raw = raw
	m.emitLocked(bson.M{"operationType": op, "documentKey": bson.M{"_id": id}, "fullDocument": full})
	return nil
}

func (m *mockCollection) DeleteOne(ctx context.Context, filter interface{}) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := idOf(filter)
	if _, ok := m.docs[id]; !ok {
		return 0, nil
	}
	delete(m.docs, id)
	m.emitLocked(bson.M{"operationType": "delete", "documentKey": bson.M{"_id": id}})
	return 1, nil
}

func (m *mockCollection) Watch(ctx context.Context, pipeline interface{}, opts ...*options.ChangeStreamOptions) (ChangeStream, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.watchErr != nil {
		return nil, m.watchErr
	}
	s := &mockStream{events: make(chan []byte, 16)}
	for _, ev := range m.backlog {
		raw, err := bson.Marshal(ev)
		if err != nil {
			return nil, err
		}
		s.push(raw)
	}
	m.streams = append(m.streams, s)
	return s, nil
}

func (m *mockCollection) emitLocked(ev bson.M) {
	raw, err := bson.Marshal(ev)
	if err != nil {
		panic(err)
	}
	for _, s := range m.streams {
		s.push(raw)
	}
}

// failStreams ends every open stream with err.
func (m *mockCollection) failStreams(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.streams {
		s.fail(err)
	}
}

type mockStream struct {
	mu      sync.Mutex
	events  chan []byte
	current []byte
	err     error
	ended   bool
	closed  bool
}

func (s *mockStream) push(raw []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ended {
		s.events <- raw
	}
}

func (s *mockStream) fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ended {
		s.err = err
		s.ended = true
		close(s.events)
	}
}

func (s *mockStream) Next(ctx context.Context) bool {
	select {
	case raw, ok := <-s.events:
		if !ok {
			return false
		}
		s.current = raw
		return true
	case <-ctx.Done():
		return false
	}
}

func (s *mockStream) Decode(v interface{}) error { return bson.Unmarshal(s.current, v) }

func (s *mockStream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *mockStream) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

const path = "content/site"

func siteDoc() model.Document {
	return model.Document{
		"companyInfo": map[string]interface{}{"name": "Global XT", "founded": 2012},
		"heroSlides": []interface{}{
			map[string]interface{}{"title": "Quality", "image": "image1.jpg"},
		},
		"rating": 4.5,
		"active": true,
	}
}

func TestStore_GetSetRoundTrip(t *testing.T) {
	col := newMockCollection()
	s := NewStore(col, logger.NewNop())
	ctx := context.Background()

	_, err := s.Get(ctx, path)
	assert.True(t, errors.IsDocumentMissing(err))

	require.NoError(t, s.Set(ctx, path, siteDoc()))
	got, err := s.Get(ctx, path)
	require.NoError(t, err)
	if diff := cmp.Diff(siteDoc(), got); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}

	// a replace keeps no fields from the earlier document
	require.NoError(t, s.Set(ctx, path, model.Document{"companyInfo": map[string]interface{}{"name": "New"}}))
	got, err = s.Get(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, model.Document{"companyInfo": map[string]interface{}{"name": "New"}}, got)

	assert.ErrorIs(t, s.Set(ctx, "content", model.Document{}), errors.ErrInvalidPath)
}

func TestStore_Delete(t *testing.T) {
	s := NewStore(newMockCollection(), nil)
	ctx := context.Background()
	assert.True(t, errors.IsDocumentMissing(s.Delete(ctx, path)))
	require.NoError(t, s.Set(ctx, path, siteDoc()))
	require.NoError(t, s.Delete(ctx, path))
	_, err := s.Get(ctx, path)
	assert.True(t, errors.IsDocumentMissing(err))
}

func collect(t *testing.T) (func(model.DocumentChange), func(error), chan model.DocumentChange, chan error) {
	t.Helper()
	changes := make(chan model.DocumentChange, 16)
	errs := make(chan error, 1)
	return func(c model.DocumentChange) { changes <- c }, func(err error) { errs <- err }, changes, errs
}

func next(t *testing.T, ch chan model.DocumentChange) model.DocumentChange {
	t.Helper()
	select {
	case c := <-ch:
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("no change delivered")
		return model.DocumentChange{}
	}
}

func TestStore_SubscribeDeliversInitialAndChanges(t *testing.T) {
	col := newMockCollection()
	s := NewStore(col, logger.NewNop())
	ctx := context.Background()

	onChange, onError, changes, errs := collect(t)
	unsubscribe, err := s.Subscribe(ctx, path, onChange, onError)
	require.NoError(t, err)
	defer unsubscribe()

	assert.False(t, next(t, changes).Exists)

	require.NoError(t, s.Set(ctx, path, siteDoc()))
	c := next(t, changes)
	assert.True(t, c.Exists)
	assert.Equal(t, siteDoc(), c.Data)
	assert.False(t, c.UpdateTime.IsZero())

	require.NoError(t, s.Delete(ctx, path))
	assert.False(t, next(t, changes).Exists)

	select {
	case err := <-errs:
		t.Fatalf("unexpected error: %v", err)
	default:
	}
}

func TestStore_SubscribeExistingDocument(t *testing.T) {
	col := newMockCollection()
	s := NewStore(col, nil)
	require.NoError(t, s.Set(context.Background(), path, siteDoc()))

	onChange, onError, changes, _ := collect(t)
	unsubscribe, err := s.Subscribe(context.Background(), path, onChange, onError)
	require.NoError(t, err)
	defer unsubscribe()

	c := next(t, changes)
	assert.True(t, c.Exists)
	assert.Equal(t, "Global XT", c.Data["companyInfo"].(map[string]interface{})["name"])
}

func TestStore_SubscribeSkipsEventsOlderThanInitialRead(t *testing.T) {
	col := newMockCollection()
	s := NewStore(col, nil)
	ctx := context.Background()
	require.NoError(t, s.Set(ctx, path, siteDoc()))

	var current MongoDocument
	require.NoError(t, col.FindOne(ctx, bson.M{"_id": path}).Decode(&current))
	event := func(name string, at time.Time) bson.M {
		return bson.M{
			"operationType": "replace",
			"documentKey":   bson.M{"_id": path},
			"fullDocument": bson.M{
				"_id":        path,
				"data":       bson.M{"companyInfo": bson.M{"name": name}},
				"updateTime": at,
			},
		}
	}
	col.backlog = []bson.M{
		event("Older", current.UpdateTime.Add(-time.Minute)),
		event("Global XT", current.UpdateTime),
	}

	onChange, onError, changes, errs := collect(t)
	unsubscribe, err := s.Subscribe(ctx, path, onChange, onError)
	require.NoError(t, err)
	defer unsubscribe()

	first := next(t, changes)
	assert.Equal(t, "Global XT", first.Data["companyInfo"].(map[string]interface{})["name"])
	assert.Equal(t, current.UpdateTime, first.UpdateTime)

	time.Sleep(5 * time.Millisecond)
	require.NoError(t, s.Set(ctx, path, model.Document{"companyInfo": map[string]interface{}{"name": "Newer"}}))
	c := next(t, changes)
	assert.Equal(t, "Newer", c.Data["companyInfo"].(map[string]interface{})["name"])

	select {
	case c := <-changes:
		t.Fatalf("unexpected change: %+v", c)
	case err := <-errs:
		t.Fatalf("unexpected error: %v", err)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestStore_StreamFailureReportsError(t *testing.T) {
	col := newMockCollection()
	s := NewStore(col, nil)
	onChange, onError, changes, errs := collect(t)
	unsubscribe, err := s.Subscribe(context.Background(), path, onChange, onError)
	require.NoError(t, err)
	defer unsubscribe()
	next(t, changes)

	col.failStreams(stderrors.New("replica set lost"))
	select {
	case err := <-errs:
		assert.Contains(t, err.Error(), "replica set lost")
	case <-time.After(2 * time.Second):
		t.Fatal("stream failure not reported")
	}
}

func TestStore_WatchUnavailable(t *testing.T) {
	col := newMockCollection()
	col.watchErr = stderrors.New("change streams need a replica set")
	s := NewStore(col, nil)

	_, err := s.Subscribe(context.Background(), path, func(model.DocumentChange) {}, nil)
	assert.True(t, errors.IsConfiguration(err))
}

func TestStore_UnsubscribeAndClose(t *testing.T) {
	col := newMockCollection()
	s := NewStore(col, nil)
	onChange, onError, changes, errs := collect(t)

	unsubscribe, err := s.Subscribe(context.Background(), path, onChange, onError)
	require.NoError(t, err)
	next(t, changes)
	unsubscribe()
	unsubscribe()

	require.NoError(t, s.Set(context.Background(), path, siteDoc()))
	select {
	case c := <-changes:
		t.Fatalf("change after unsubscribe: %+v", c)
	case <-time.After(50 * time.Millisecond):
	}

	_, err = s.Subscribe(context.Background(), path, onChange, onError)
	require.NoError(t, err)
	next(t, changes)
	require.NoError(t, s.Close(context.Background()))
	require.NoError(t, s.Close(context.Background()))

	_, err = s.Subscribe(context.Background(), path, onChange, onError)
	assert.True(t, errors.IsConfiguration(err))
	assert.Empty(t, errs)
}

func TestFromBSON(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	raw, err := bson.Marshal(bson.M{"data": bson.M{
		"n":     int32(3),
		"big":   int64(1) << 40,
		"when":  at,
		"list":  bson.A{"a", bson.M{"k": "v"}},
		"inner": bson.D{{Key: "x", Value: 1.5}},
	}})
	require.NoError(t, err)
	var stored MongoDocument
	require.NoError(t, bson.Unmarshal(raw, &stored))

	got := fromBSON(stored.Data)
	assert.Equal(t, model.Document{
		"n":     3,
		"big":   1 << 40,
		"when":  at,
		"list":  []interface{}{"a", map[string]interface{}{"k": "v"}},
		"inner": map[string]interface{}{"x": 1.5},
	}, got)
}
