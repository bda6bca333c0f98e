package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// Fetcher routes data retrieval through a Store. Concurrent fetches of the
// same key within one process share a single compute call.
type Fetcher struct {
	store *Store
	group singleflight.Group
}

// NewFetcher returns a Fetcher backed by store.
func NewFetcher(store *Store) *Fetcher {
	return &Fetcher{store: store}
}

// Store returns the underlying store.
func (f *Fetcher) Store() *Store {
	return f.store
}

// Fetch returns the value cached under key, or calls compute, stores its
// result for ttl and returns it. compute is never called on a hit. An empty
// result (empty list, zero struct) is cached and returned like any other.
func Fetch[T any](
	ctx context.Context,
	f *Fetcher,
	key string,
	ttl time.Duration,
	compute func(context.Context) (T, error),
) (T, error) {
	var zero T
	log := zerolog.Ctx(ctx)

	if raw, ok := f.store.Get(key); ok {
		var v T
		err := json.Unmarshal(raw, &v)
		if err == nil {
			log.Debug().Str("key", key).Msg("cache hit")
			return v, nil
		}
		log.Debug().Err(err).Str("key", key).Msg("cached value does not decode, refetching")
	}

	res, err, shared := f.group.Do(key, func() (any, error) {
		v, computeErr := compute(ctx)
		if computeErr != nil {
			return nil, computeErr
		}
		raw, marshalErr := json.Marshal(v)
		if marshalErr != nil {
			return nil, fmt.Errorf("encoding %s for cache: %w", key, marshalErr)
		}
		return f.store.Set(key, raw, ttl), nil
	})
	if err != nil {
		return zero, err
	}

	log.Debug().Str("key", key).Bool("shared", shared).Msg("cache miss")

	var v T
	if decodeErr := json.Unmarshal(res.(json.RawMessage), &v); decodeErr != nil {
		return zero, fmt.Errorf("decoding %s: %w", key, decodeErr)
	}
	return v, nil
}
