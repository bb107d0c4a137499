package stores

import (
	"context"
	"time"

	"github.com/dgraph-io/ristretto"

	"github.com/oarkflow/ability"
)

// RistrettoCacheStore is an in-process CacheStore with admission control and
// cost-based eviction, for deployments holding abilities for many users.
type RistrettoCacheStore struct {
	cache *ristretto.Cache
}

// NewRistrettoCacheStore builds a store sized by the usual ristretto knobs
// (counters ~10x expected entries, maxCost = total cost ceiling, bufferItems 64).
func NewRistrettoCacheStore(numCounters, maxCost, bufferItems int64) (*RistrettoCacheStore, error) {
	c, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: numCounters,
		MaxCost:     maxCost,
		BufferItems: bufferItems,
	})
	if err != nil {
		return nil, err
	}
	return &RistrettoCacheStore{cache: c}, nil
}

func (s *RistrettoCacheStore) Get(_ context.Context, key string) (*ability.Ability, bool) {
	v, ok := s.cache.Get(key)
	if !ok {
		return nil, false
	}
	ab, ok := v.(*ability.Ability)
	return ab, ok
}

func (s *RistrettoCacheStore) Set(_ context.Context, key string, ab *ability.Ability, ttl time.Duration) {
	s.cache.SetWithTTL(key, ab, int64(ab.Len())+1, ttl)
	// ristretto applies sets asynchronously; wait so a Set is visible to the
	// next Get, which the cache-aside contract relies on
	s.cache.Wait()
}

func (s *RistrettoCacheStore) Delete(_ context.Context, key string) {
	s.cache.Del(key)
}

func (s *RistrettoCacheStore) Clear(_ context.Context) {
	s.cache.Clear()
}
