package repository

import (
	"context"

	"sitecontent/internal/content/domain/model"
)

// DocumentStore is the remote document service holding the content document.
type DocumentStore interface {
	// Get returns the document at path, or an error satisfying
	// errors.IsDocumentMissing when it does not exist.
	Get(ctx context.Context, path string) (model.Document, error)

	// Set replaces the whole document at path. It never merges.
	Set(ctx context.Context, path string, doc model.Document) error

	// Subscribe delivers the current state of the document followed by every
	// later change, in order, one callback at a time. onError is called at most
	// once and ends the subscription. The returned function stops delivery and
	// is safe to call more than once.
	Subscribe(ctx context.Context, path string, onChange func(model.DocumentChange), onError func(error)) (func(), error)

	// Close releases connections held by the store.
	Close(ctx context.Context) error
}
