package mongodb

import (
	"context"
	stderrors "errors"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"sitecontent/internal/content/document"
	"sitecontent/internal/content/domain/model"
	"sitecontent/internal/content/domain/repository"
	"sitecontent/internal/shared/docpath"
	"sitecontent/internal/shared/errors"
	"sitecontent/internal/shared/logger"
)

// MongoDocument is the stored shape of a content document. The document path
// is the primary key.
type MongoDocument struct {
	ID         string    `bson:"_id"`
	Data       bson.M    `bson:"data"`
	UpdateTime time.Time `bson:"updateTime"`
}

// changeEvent is the subset of a change stream event the store reads.
type changeEvent struct {
	OperationType string              `bson:"operationType"`
	FullDocument  *MongoDocument      `bson:"fullDocument"`
	ClusterTime   primitive.Timestamp `bson:"clusterTime"`
}

// Store keeps each content document as one MongoDB document and watches it
// through a change stream. Change streams need a replica set.
type Store struct {
	col    Collection
	client *mongo.Client
	logger logger.Logger

	mu       sync.Mutex
	watchers map[*watch]struct{}
	closed   bool
}

type watch struct {
	cancel context.CancelFunc
	done   chan struct{}
}

var _ repository.DocumentStore = (*Store)(nil)

// NewStore creates a store over col.
func NewStore(col Collection, log logger.Logger) *Store {
	if log == nil {
		log = logger.NewNop()
	}
	return &Store{
		col:      col,
		logger:   log.WithComponent("mongodb-store"),
		watchers: make(map[*watch]struct{}),
	}
}

// Connect dials MongoDB, checks the connection and returns a store over
// database.collection. Close disconnects the client.
func Connect(ctx context.Context, uri, database, collection string, log logger.Logger) (*Store, error) {
	if uri == "" {
		return nil, errors.NewConfigurationError("MONGODB_URI is not set").WithCause(errors.ErrStoreNotConfigured)
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, errors.NewConfigurationError("connecting to MongoDB failed").WithCause(err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, errors.NewConfigurationError("MongoDB is unreachable").WithCause(err)
	}
	s := NewStore(driverCollection{col: client.Database(database).Collection(collection)}, log)
	s.client = client
	s.logger.Info("connected to MongoDB", zap.String("database", database), zap.String("collection", collection))
	return s, nil
}

func (s *Store) Get(ctx context.Context, path string) (model.Document, error) {
	if err := docpath.ValidateDocumentPath(path); err != nil {
		return nil, err
	}
	stored, err := s.read(ctx, path)
	if err != nil {
		return nil, err
	}
	return fromBSON(stored.Data), nil
}

func (s *Store) read(ctx context.Context, path string) (MongoDocument, error) {
	var stored MongoDocument
	if err := s.col.FindOne(ctx, bson.M{"_id": path}).Decode(&stored); err != nil {
		if stderrors.Is(err, mongo.ErrNoDocuments) {
			return MongoDocument{}, errors.NewDocumentMissingError(path)
		}
		return MongoDocument{}, errors.NewInfrastructureError("reading content document failed").WithCause(err)
	}
	return stored, nil
}

func (s *Store) Set(ctx context.Context, path string, doc model.Document) error {
	if err := docpath.ValidateDocumentPath(path); err != nil {
		return err
	}
	replacement := MongoDocument{
		ID:         path,
		Data:       bson.M(document.Clone(doc)),
		UpdateTime: time.Now().UTC(),
	}
	if replacement.Data == nil {
		replacement.Data = bson.M{}
	}
	if err := s.col.ReplaceOne(ctx, bson.M{"_id": path}, replacement, options.Replace().SetUpsert(true)); err != nil {
		s.logger.Error("content write failed", zap.String("path", path), zap.Error(err))
		return errors.NewInfrastructureError("writing content document failed").WithCause(err)
	}
	s.logger.Debug("content document replaced", zap.String("path", path))
	return nil
}

// Delete removes the document at path.
func (s *Store) Delete(ctx context.Context, path string) error {
	deleted, err := s.col.DeleteOne(ctx, bson.M{"_id": path})
	if err != nil {
		return errors.NewInfrastructureError("deleting content document failed").WithCause(err)
	}
	if deleted == 0 {
		return errors.NewDocumentMissingError(path)
	}
	return nil
}

// Subscribe opens a change stream on path, then delivers the current state.
// Opening the stream first means no write between the read and the watch is
// lost. Events whose document is not newer than that read are skipped.
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

	pipeline := mongo.Pipeline{{{Key: "$match", Value: bson.M{"documentKey._id": path}}}}
	opts := options.ChangeStream().SetFullDocument(options.UpdateLookup)

	wctx, cancel := context.WithCancel(context.Background())
	stream, err := s.col.Watch(ctx, pipeline, opts)
	if err != nil {
		cancel()
		return nil, errors.NewConfigurationError("opening change stream failed").WithCause(err)
	}

	initial, err := s.read(ctx, path)
	switch {
	case err == nil:
		onChange(model.DocumentChange{Exists: true, Data: fromBSON(initial.Data), UpdateTime: initial.UpdateTime})
	case errors.IsDocumentMissing(err):
		onChange(model.DocumentChange{Exists: false})
	default:
		cancel()
		_ = stream.Close(context.Background())
		return nil, err
	}

	w := &watch{cancel: cancel, done: make(chan struct{})}
	s.mu.Lock()
	s.watchers[w] = struct{}{}
	s.mu.Unlock()

	go s.run(wctx, path, stream, w, initial.UpdateTime, onChange, onError)

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

func (s *Store) run(ctx context.Context, path string, stream ChangeStream, w *watch, seen time.Time, onChange func(model.DocumentChange), onError func(error)) {
	defer close(w.done)
	defer stream.Close(context.Background())

	for stream.Next(ctx) {
		var ev changeEvent
		if err := stream.Decode(&ev); err != nil {
			s.logger.Warn("undecodable change event", zap.String("path", path), zap.Error(err))
			continue
		}
		change, ok := toChange(ev)
		if !ok {
			continue
		}
		if change.Exists {
			if !change.UpdateTime.After(seen) {
				s.logger.Debug("skipping stale change event", zap.String("path", path), zap.Time("updateTime", change.UpdateTime))
				continue
			}
			seen = change.UpdateTime
		}
		onChange(change)
	}
	if ctx.Err() != nil {
		return
	}
	err := stream.Err()
	if err == nil {
		err = stderrors.New("change stream ended")
	}
	s.logger.Error("change stream failed", zap.String("path", path), zap.Error(err))
	if onError != nil {
		onError(errors.NewInfrastructureError("content subscription failed").WithCause(err))
	}
}

func toChange(ev changeEvent) (model.DocumentChange, bool) {
	switch ev.OperationType {
	case "delete":
		return model.DocumentChange{Exists: false}, true
	case "insert", "replace", "update":
		if ev.FullDocument == nil {
			// update lookup found the document already gone
			return model.DocumentChange{Exists: false}, true
		}
		return model.DocumentChange{
			Exists:     true,
			Data:       fromBSON(ev.FullDocument.Data),
			UpdateTime: ev.FullDocument.UpdateTime,
		}, true
	}
	return model.DocumentChange{}, false
}

// Close stops every watcher and disconnects the client when the store owns it.
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
	if s.client != nil {
		return s.client.Disconnect(ctx)
	}
	return nil
}

// fromBSON converts decoded BSON into plain JSON-shaped Go values.
func fromBSON(m bson.M) model.Document {
	if m == nil {
		return model.Document{}
	}
	out := make(model.Document, len(m))
	for k, v := range m {
		out[k] = fromBSONValue(v)
	}
	return out
}

func fromBSONValue(v interface{}) interface{} {
	switch t := v.(type) {
	case bson.M:
		return map[string]interface{}(fromBSON(t))
	case map[string]interface{}:
		return map[string]interface{}(fromBSON(bson.M(t)))
	case bson.D:
		out := make(map[string]interface{}, len(t))
		for _, e := range t {
			out[e.Key] = fromBSONValue(e.Value)
		}
		return out
	case bson.A:
		out := make([]interface{}, len(t))
		for i, item := range t {
			out[i] = fromBSONValue(item)
		}
		return out
	case int32:
		return int(t)
	case int64:
		return int(t)
	case primitive.DateTime:
		return t.Time().UTC()
	case primitive.ObjectID:
		return t.Hex()
	default:
		return v
	}
}
