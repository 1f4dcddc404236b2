// Package storage provides the key-value blob store used for all
// persisted per-user state. Keys follow the "user:{id}:{section}"
// convention; values are JSON documents.
package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a key has no stored value.
var ErrNotFound = errors.New("storage: key not found")

// Store is the persistence collaborator. Failures are returned to the
// caller as-is; the store performs no retries of its own.
type Store interface {
	// Get unmarshals the value stored under key into dest.
	// Returns ErrNotFound when the key is absent.
	Get(ctx context.Context, key string, dest any) error
	// Set marshals value and stores it under key, replacing any
	// previous value.
	Set(ctx context.Context, key string, value any) error
	// ListKeys returns all keys beginning with prefix, sorted.
	ListKeys(ctx context.Context, prefix string) ([]string, error)
}
