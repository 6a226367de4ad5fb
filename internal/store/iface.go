// Package store persists model descriptor records on PostgreSQL, keyed by
// model identifier with last-writer-wins upsert semantics.
package store

import (
	"context"
	"errors"
)

// ErrNotFound reports a model absent from the store and, for resolver
// callers, the hub.
var ErrNotFound = errors.New("model not found")

// Store defines the interface for model record operations.
// The concrete *Repository satisfies this interface. Use this interface
// as a dependency in consumers to enable testing with mocks.
type Store interface {
	GetModel(ctx context.Context, modelID string) (*ModelRecord, error)
	UpsertModel(ctx context.Context, rec *ModelRecord) error
	TouchModel(ctx context.Context, modelID string) error
	ListModels(ctx context.Context, limit, offset int) ([]ModelRecord, error)
	SearchModels(ctx context.Context, query string, limit int) ([]ModelRecord, error)
	DeleteModel(ctx context.Context, modelID string) error
}

// Compile-time check that *Repository implements Store.
var _ Store = (*Repository)(nil)
