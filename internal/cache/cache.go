package cache

import (
	"context"
	"errors"
)

// Cache stores JSON-encodable values by key.
type Cache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}) error
	Delete(ctx context.Context, keys ...string) error
	// DeletePrefix removes every key that starts with prefix.
	DeletePrefix(ctx context.Context, prefix string) error
}

var ErrCacheMiss = errors.New("cache miss")
