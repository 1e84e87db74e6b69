// Package metadata stores small string values of the local client database
// under fixed keys.
package metadata

import (
	"context"
	"errors"
)

var ErrKeyNotFound = errors.New("metadata key not found")

type Repository interface {
	// Get returns ErrKeyNotFound when key is absent.
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	// Delete removes keys; absent keys are ignored.
	Delete(ctx context.Context, keys ...string) error
}
