// Package objstore abstracts the blob store holding raw document payloads.
// The integrity core never interprets content; it only fetches bytes to
// hash them when anchoring upload and version actions.
package objstore

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a key does not exist.
var ErrNotFound = errors.New("object not found")

// Store is the object-store collaborator interface.
type Store interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	Copy(ctx context.Context, srcKey, dstKey string) error
}
