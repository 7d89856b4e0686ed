package storage

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("storage: not found")

// KeyValue is the local durable store: one serialized value per key.
type KeyValue interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// Collection is the remote document store holding task documents.
type Collection interface {
	// Add inserts a document and returns the id assigned by the collection.
	Add(ctx context.Context, in TaskDocument) (string, error)
	Update(ctx context.Context, id string, patch TaskPatch) error
	Delete(ctx context.Context, id string) error
	// Watch emits the full collection ordered by start time: once on
	// subscription and again after every change by any writer. The channel
	// is closed when ctx is done.
	Watch(ctx context.Context) (<-chan []TaskDocument, error)
}
