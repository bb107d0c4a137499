package stores

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/oarkflow/ability"
)

// RedisCacheStore keeps compiled abilities in Redis so decision caches
// survive process restarts and are shared across replicas. Values are the
// serialized rule list; TTL handling is delegated to Redis key expiry.
type RedisCacheStore struct {
	client *redis.Client
	prefix string
}

func NewRedisCacheStore(client *redis.Client) *RedisCacheStore {
	return &RedisCacheStore{client: client, prefix: "ability:"}
}

func (s *RedisCacheStore) key(key string) string { return s.prefix + key }

func (s *RedisCacheStore) Get(ctx context.Context, key string) (*ability.Ability, bool) {
	data, err := s.client.Get(ctx, s.key(key)).Bytes()
	if err != nil {
		return nil, false
	}
	ab, err := ability.UnmarshalAbility(data)
	if err != nil {
		// corrupted payload: treat as miss, the next Set overwrites it
		return nil, false
	}
	return ab, true
}

func (s *RedisCacheStore) Set(ctx context.Context, key string, ab *ability.Ability, ttl time.Duration) {
	data, err := ability.MarshalAbility(ab)
	if err != nil {
		return
	}
	s.client.Set(ctx, s.key(key), data, ttl)
}

func (s *RedisCacheStore) Delete(ctx context.Context, key string) {
	s.client.Del(ctx, s.key(key))
}

func (s *RedisCacheStore) Clear(ctx context.Context) {
	iter := s.client.Scan(ctx, 0, s.prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		s.client.Del(ctx, iter.Val())
	}
}
