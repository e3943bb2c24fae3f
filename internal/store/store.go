// Package store is the persistent entity store: a key-value/document store
// addressed by entity type + string key. The engine never iterates or
// queries by content, only by key; a missing entity is expected control
// flow, not an error.
package store

import (
	"context"

	"github.com/defigods/futures-indexer/internal/entity"
)

// Ref addresses one stored entity.
type Ref struct {
	Type entity.Type
	Key  string
}

// Store is the interface the engine persists through.
type Store interface {
	// Load returns the entity for (typ, key), or ok=false if absent.
	Load(ctx context.Context, typ entity.Type, key string) (entity.Entity, bool, error)

	// Upsert creates or replaces the entity under its own key.
	Upsert(ctx context.Context, e entity.Entity) error

	// Apply commits the upserts and deletes atomically: either every
	// mutation persists or none do. The engine flushes each event's write
	// set through a single Apply call.
	Apply(ctx context.Context, upserts []entity.Entity, deletes []Ref) error

	// Delete removes the entity for (typ, key). Deleting an absent key is
	// not an error.
	Delete(ctx context.Context, typ entity.Type, key string) error

	// ListKeys returns every stored key of a type. Used at startup to
	// recover the watched market set; the engine itself never lists.
	ListKeys(ctx context.Context, typ entity.Type) ([]string, error)
}
