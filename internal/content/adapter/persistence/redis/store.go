package redis

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"sitecontent/internal/content/domain/model"
	"sitecontent/internal/content/domain/repository"
	"sitecontent/internal/shared/docpath"
	"sitecontent/internal/shared/errors"
	"sitecontent/internal/shared/logger"
)

const (
	DefaultKeyPrefix = "sitecontent:"
	// streamMaxLen bounds each change stream; subscribers only need the tail.
	streamMaxLen = 100
	blockTimeout = time.Second
)

// Store keeps each content document as a JSON string and appends every write
// to a Redis Stream. Subscribers tail the stream, so no write made after a
// subscriber read the current value is missed.
type Store struct {
	client *redis.Client
	prefix string
	logger logger.Logger

	mu       sync.Mutex
	watchers map[*watch]struct{}
	closed   bool
	owned    bool
}

type watch struct {
	cancel context.CancelFunc
	done   chan struct{}
}

var _ repository.DocumentStore = (*Store)(nil)

// NewStore creates a store on client. Keys are namespaced by prefix.
func NewStore(client *redis.Client, prefix string, log logger.Logger) *Store {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Store{
		client:   client,
		prefix:   prefix,
		logger:   log.WithComponent("redis-store"),
		watchers: make(map[*watch]struct{}),
	}
}

// Connect opens a client, pings it and returns a store that closes the
// client on Close.
func Connect(ctx context.Context, opts *redis.Options, prefix string, log logger.Logger) (*Store, error) {
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.NewConfigurationError("Redis is unreachable").WithCause(err)
	}
	s := NewStore(client, prefix, log)
	s.owned = true
	s.logger.Info("connected to Redis", zap.String("addr", opts.Addr), zap.Int("db", opts.DB))
	return s, nil
}

func (s *Store) docKey(path string) string    { return s.prefix + "doc:" + docpath.Key(path, ":") }
func (s *Store) streamKey(path string) string { return s.prefix + "changes:" + docpath.Key(path, ":") }

func (s *Store) Get(ctx context.Context, path string) (model.Document, error) {
	if err := docpath.ValidateDocumentPath(path); err != nil {
		return nil, err
	}
	raw, err := s.client.Get(ctx, s.docKey(path)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, errors.NewDocumentMissingError(path)
		}
		return nil, errors.NewInfrastructureError("reading content document failed").WithCause(err)
	}
	return decodeDocument(raw)
}

// Set replaces the document and records the write on the change stream in
// one transaction.
func (s *Store) Set(ctx context.Context, path string, doc model.Document) error {
	if err := docpath.ValidateDocumentPath(path); err != nil {
		return err
	}
	if doc == nil {
		doc = model.Document{}
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return errors.NewValidationError("content document is not JSON encodable").WithCause(err)
	}
	now := time.Now().UTC()
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.docKey(path), data, 0)
		pipe.XAdd(ctx, &redis.XAddArgs{
			Stream: s.streamKey(path),
			MaxLen: streamMaxLen,
			Approx: true,
			Values: map[string]interface{}{
				"type":       "set",
				"data":       data,
				"updateTime": now.UnixNano(),
			},
		})
		return nil
	})
	if err != nil {
		s.logger.Error("content write failed", zap.String("path", path), zap.Error(err))
		return errors.NewInfrastructureError("writing content document failed").WithCause(err)
	}
	s.logger.Debug("content document replaced", zap.String("path", path), zap.Int("bytes", len(data)))
	return nil
}

// Delete removes the document and records the deletion.
func (s *Store) Delete(ctx context.Context, path string) error {
	if err := docpath.ValidateDocumentPath(path); err != nil {
		return err
	}
	var del *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		del = pipe.Del(ctx, s.docKey(path))
		pipe.XAdd(ctx, &redis.XAddArgs{
			Stream: s.streamKey(path),
			MaxLen: streamMaxLen,
			Approx: true,
			Values: map[string]interface{}{"type": "delete", "updateTime": time.Now().UTC().UnixNano()},
		})
		return nil
	})
	if err != nil {
		return errors.NewInfrastructureError("deleting content document failed").WithCause(err)
	}
	if del.Val() == 0 {
		return errors.NewDocumentMissingError(path)
	}
	return nil
}

func (s *Store) Subscribe(ctx context.Context, path string, onChange func(model.DocumentChange), onError func(error)) (func(), error) {
	if err := docpath.ValidateDocumentPath(path); err != nil {
		return nil, err
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, errors.NewConfigurationError("content store is closed").WithCause(errors.ErrStoreNotConfigured)
	}
	s.mu.Unlock()

	stream := s.streamKey(path)
	lastID := "0-0"
	tail, err := s.client.XRevRangeN(ctx, stream, "+", "-", 1).Result()
	if err != nil {
		return nil, errors.NewConfigurationError("content store unreachable").WithCause(err)
	}
	if len(tail) > 0 {
		lastID = tail[0].ID
	}

	initial, err := s.Get(ctx, path)
	switch {
	case err == nil:
		onChange(model.DocumentChange{Exists: true, Data: initial})
	case errors.IsDocumentMissing(err):
		onChange(model.DocumentChange{Exists: false})
	default:
		return nil, err
	}

	wctx, cancel := context.WithCancel(context.Background())
	w := &watch{cancel: cancel, done: make(chan struct{})}
	s.mu.Lock()
	s.watchers[w] = struct{}{}
	s.mu.Unlock()

	go s.tail(wctx, path, stream, lastID, w, onChange, onError)

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			<-w.done
			s.mu.Lock()
			delete(s.watchers, w)
			s.mu.Unlock()
		})
	}, nil
}

func (s *Store) tail(ctx context.Context, path, stream, lastID string, w *watch, onChange func(model.DocumentChange), onError func(error)) {
	defer close(w.done)
	for {
		res, err := s.client.XRead(ctx, &redis.XReadArgs{
			Streams: []string{stream, lastID},
			Count:   streamMaxLen,
			Block:   blockTimeout,
		}).Result()
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			if err == redis.Nil {
				continue
			}
			s.logger.Error("change stream read failed", zap.String("path", path), zap.Error(err))
			if onError != nil {
				onError(errors.NewInfrastructureError("content subscription failed").WithCause(err))
			}
			return
		}
		for _, sr := range res {
			for _, msg := range sr.Messages {
				lastID = msg.ID
				change, err := parseChange(msg)
				if err != nil {
					s.logger.Warn("undecodable change message", zap.String("id", msg.ID), zap.Error(err))
					continue
				}
				onChange(change)
			}
		}
	}
}

// Close stops every subscriber and closes the client when the store opened it.
func (s *Store) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	watchers := make([]*watch, 0, len(s.watchers))
	for w := range s.watchers {
		watchers = append(watchers, w)
	}
	s.watchers = map[*watch]struct{}{}
	s.mu.Unlock()

	for _, w := range watchers {
		w.cancel()
		<-w.done
	}
	if s.owned {
		return s.client.Close()
	}
	return nil
}

func parseChange(msg redis.XMessage) (model.DocumentChange, error) {
	var change model.DocumentChange
	if ts, ok := msg.Values["updateTime"].(string); ok {
		if n, err := strconv.ParseInt(ts, 10, 64); err == nil {
			change.UpdateTime = time.Unix(0, n).UTC()
		}
	}
	switch msg.Values["type"] {
	case "delete":
		return change, nil
	case "set":
		raw, _ := msg.Values["data"].(string)
		doc, err := decodeDocument(raw)
		if err != nil {
			return change, err
		}
		change.Exists = true
		change.Data = doc
		return change, nil
	}
	return change, stderrors.New("unknown change type")
}

func decodeDocument(raw string) (model.Document, error) {
	var doc model.Document
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, errors.NewInfrastructureError("stored content is not valid JSON").WithCause(err)
	}
	if doc == nil {
		doc = model.Document{}
	}
	return doc, nil
}
