package cache

import (
	"context"
	"time"

	"github.com/matzehuels/trialviz/pkg/observability"
)

type observed struct {
	Cache
}

// Observe reports the hits, misses and writes of c to the registered
// observability cache hooks.
func Observe(c Cache) Cache {
	if _, ok := c.(observed); ok {
		return c
	}
	return observed{c}
}

func (o observed) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, ok, err := o.Cache.Get(ctx, key)
	if err == nil {
		if ok {
			observability.Cache().OnCacheHit(ctx, KeyType(key))
		} else {
			observability.Cache().OnCacheMiss(ctx, KeyType(key))
		}
	}
	return data, ok, err
}

func (o observed) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	err := o.Cache.Set(ctx, key, data, ttl)
	if err == nil {
		observability.Cache().OnCacheSet(ctx, KeyType(key), len(data))
	}
	return err
}
