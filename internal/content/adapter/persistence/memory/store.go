// Package memory is an in-process DocumentStore used in development and tests.
package memory

import (
	"context"
	"sync"
	"time"

	"sitecontent/internal/content/document"
	"sitecontent/internal/content/domain/model"
	"sitecontent/internal/content/domain/repository"
	"sitecontent/internal/shared/docpath"
	"sitecontent/internal/shared/errors"
)

type entry struct {
	data    model.Document
	updated time.Time
}

// Store keeps documents in a map and fans changes out to subscribers.
type Store struct {
	mu       sync.RWMutex
	docs     map[string]entry
	watchers map[string]map[*watcher]struct{}
	closed   bool
	now      func() time.Time
}

var _ repository.DocumentStore = (*Store)(nil)

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		docs:     make(map[string]entry),
		watchers: make(map[string]map[*watcher]struct{}),
		now:      time.Now,
	}
}

func key(path string) string {
	return docpath.BuildPath(docpath.Segments(path)...)
}

// Get returns a copy of the document at path.
func (s *Store) Get(ctx context.Context, path string) (model.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.docs[key(path)]
	if !ok {
		return nil, errors.NewDocumentMissingError(path)
	}
	return document.Clone(e.data), nil
}

// Set replaces the document at path and notifies subscribers.
func (s *Store) Set(ctx context.Context, path string, doc model.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := docpath.ValidateDocumentPath(path); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.NewInfrastructureError("memory store is closed")
	}
	e := entry{data: document.Clone(doc), updated: s.now()}
	s.docs[key(path)] = e
	s.notifyLocked(key(path), model.DocumentChange{Exists: true, Data: e.data, UpdateTime: e.updated})
	return nil
}

// Delete removes the document at path and notifies subscribers.
func (s *Store) Delete(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[key(path)]; !ok {
		return errors.NewDocumentMissingError(path)
	}
	delete(s.docs, key(path))
	s.notifyLocked(key(path), model.DocumentChange{Exists: false, UpdateTime: s.now()})
	return nil
}

// Subscribe delivers the current state of path and then every change.
func (s *Store) Subscribe(ctx context.Context, path string, onChange func(model.DocumentChange), onError func(error)) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := docpath.ValidateDocumentPath(path); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, errors.NewInfrastructureError("memory store is closed")
	}

	k := key(path)
	w := newWatcher(onChange, onError)
	if s.watchers[k] == nil {
		s.watchers[k] = make(map[*watcher]struct{})
	}
	s.watchers[k][w] = struct{}{}

	first := model.DocumentChange{UpdateTime: s.now()}
	if e, ok := s.docs[k]; ok {
		first = model.DocumentChange{Exists: true, Data: e.data, UpdateTime: e.updated}
	}
	w.push(first)
	go w.run()

	return func() {
		s.mu.Lock()
		delete(s.watchers[k], w)
		s.mu.Unlock()
		w.stop()
	}, nil
}

// FailSubscribers ends every subscription on path with err.
func (s *Store) FailSubscribers(path string, err error) {
	s.mu.Lock()
	k := key(path)
	ws := s.watchers[k]
	delete(s.watchers, k)
	s.mu.Unlock()
	for w := range ws {
		w.fail(err)
	}
}

// SubscriberCount reports the live subscriptions on path.
func (s *Store) SubscriberCount(path string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.watchers[key(path)])
}

// Close stops all subscriptions.
func (s *Store) Close(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	all := s.watchers
	s.watchers = make(map[string]map[*watcher]struct{})
	s.mu.Unlock()
	for _, ws := range all {
		for w := range ws {
			w.stop()
		}
	}
	return nil
}

func (s *Store) notifyLocked(k string, change model.DocumentChange) {
	for w := range s.watchers[k] {
		c := change
		c.Data = document.Clone(change.Data)
		w.push(c)
	}
}
