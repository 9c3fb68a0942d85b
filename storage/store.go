// Package storage provides the persistence layer: a key-value object store
// with in-memory and SQLite implementations, plus the bounded per-chapter
// stores built on top of it.
//
// Information Hiding:
// - Storage backends hidden behind the ObjectStore interface
// - Eviction and capacity bookkeeping encapsulated in the bounded stores

package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a key has no stored value.
var ErrNotFound = errors.New("storage: not found")

// ObjectStore is a key-value store for JSON-encoded domain objects.
// Implementations are safe for concurrent use.
type ObjectStore interface {
	// Get returns the value for key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	// Put stores value under key, replacing any existing value.
	Put(ctx context.Context, key string, value []byte) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// QueryByPrefix returns all values whose key starts with prefix,
	// in ascending key order.
	QueryByPrefix(ctx context.Context, prefix string) ([][]byte, error)
}
