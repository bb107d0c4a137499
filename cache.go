package ability

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/oarkflow/ability/logger"
)

// ============================================================================
// ABILITY CACHE
// ============================================================================

// DefaultTTL is the absolute lifetime of a cached ability.
const DefaultTTL = 300 * time.Second

// RuleSource supplies the raw permission rows for a role. An empty slice with
// a nil error means the role genuinely has no rules; a non-nil error means the
// fetch itself failed and is surfaced as ErrRuleSourceUnavailable.
type RuleSource interface {
	FetchRules(ctx context.Context, roleID int64) ([]RuleInput, error)
}

// RuleSourceFunc adapts a plain function to the RuleSource interface.
type RuleSourceFunc func(ctx context.Context, roleID int64) ([]RuleInput, error)

func (f RuleSourceFunc) FetchRules(ctx context.Context, roleID int64) ([]RuleInput, error) {
	return f(ctx, roleID)
}

// CacheStore is the key-value collaborator holding compiled abilities. It may
// be in-process (memory, ristretto) or external (redis). Entries written with
// a positive ttl expire absolutely from write time; a read of an expired entry
// behaves as a miss.
type CacheStore interface {
	Get(ctx context.Context, key string) (*Ability, bool)
	Set(ctx context.Context, key string, ab *Ability, ttl time.Duration)
	Delete(ctx context.Context, key string)
	Clear(ctx context.Context)
}

// Cache materializes compiled abilities per (user, role) on demand. Concurrent
// misses for the same key coalesce into a single upstream fetch; all waiters
// see the one result or the one error. An Invalidate racing an in-flight miss
// lets that compile finish and land; the entry is then stale for at most one
// TTL (Invalidate also forgets the in-flight key so later callers refetch).
type Cache struct {
	source RuleSource
	store  CacheStore
	ttl    time.Duration
	group  singleflight.Group
	logger logger.Logger
}

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithTTL overrides the entry lifetime (default 300s).
func WithTTL(d time.Duration) CacheOption {
	return func(c *Cache) { c.ttl = d }
}

// WithCacheStore swaps the backing key-value store.
func WithCacheStore(s CacheStore) CacheOption {
	return func(c *Cache) { c.store = s }
}

// WithCacheLogger installs a Logger on the cache.
func WithCacheLogger(l logger.Logger) CacheOption {
	return func(c *Cache) { c.logger = l }
}

func NewCache(source RuleSource, opts ...CacheOption) *Cache {
	c := &Cache{
		source: source,
		store:  NewMemoryCacheStore(),
		ttl:    DefaultTTL,
		logger: logger.NewNullLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func cacheKey(userID, roleID int64) string {
	return strconv.FormatInt(userID, 10) + ":" + strconv.FormatInt(roleID, 10)
}

// Get returns the compiled ability for (userID, roleID), compiling from
// freshly fetched rows on miss or expiry. Compile errors (InvalidRuleError)
// and fetch errors (ErrRuleSourceUnavailable) propagate to every coalesced
// caller; nothing is cached on failure.
func (c *Cache) Get(ctx context.Context, userID, roleID int64) (*Ability, error) {
	key := cacheKey(userID, roleID)
	if ab, ok := c.store.Get(ctx, key); ok {
		return ab, nil
	}
	v, err, _ := c.group.Do(key, func() (any, error) {
		// another coalesced caller may have populated the store already
		if ab, ok := c.store.Get(ctx, key); ok {
			return ab, nil
		}
		rows, err := c.source.FetchRules(ctx, roleID)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrRuleSourceUnavailable, err)
		}
		ab, err := Compile(rows)
		if err != nil {
			return nil, err
		}
		c.store.Set(ctx, key, ab, c.ttl)
		c.logger.Debug("ability compiled", "user_id", userID, "role_id", roleID, "rules", ab.Len())
		return ab, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Ability), nil
}

// Invalidate drops the entry for (userID, roleID); the next Get recompiles.
// Call it whenever the role's permission rows change.
func (c *Cache) Invalidate(ctx context.Context, userID, roleID int64) {
	key := cacheKey(userID, roleID)
	c.group.Forget(key)
	c.store.Delete(ctx, key)
	c.logger.Debug("ability invalidated", "user_id", userID, "role_id", roleID)
}

// InvalidateAll clears every entry (bulk permission edits).
func (c *Cache) InvalidateAll(ctx context.Context) {
	c.store.Clear(ctx)
	c.logger.Debug("ability cache cleared")
}

// ============================================================================
// IN-MEMORY CACHE STORE
// ============================================================================

type memoryEntry struct {
	ability   *Ability
	expiresAt time.Time // zero = no expiry
}

// MemoryCacheStore is the default in-process CacheStore: a mutex-guarded map
// with absolute per-entry expiry. Entries are immutable once written; only the
// map itself is locked.
type MemoryCacheStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemoryCacheStore() *MemoryCacheStore {
	return &MemoryCacheStore{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

func (s *MemoryCacheStore) Get(_ context.Context, key string) (*Ability, bool) {
	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if !e.expiresAt.IsZero() && s.now().After(e.expiresAt) {
		s.mu.Lock()
		// a concurrent Set may have refreshed the key between the read above
		// and this delete; only drop the generation we saw expire
		if cur, ok := s.entries[key]; ok && cur.expiresAt.Equal(e.expiresAt) {
			delete(s.entries, key)
		}
		s.mu.Unlock()
		return nil, false
	}
	return e.ability, true
}

func (s *MemoryCacheStore) Set(_ context.Context, key string, ab *Ability, ttl time.Duration) {
	e := memoryEntry{ability: ab}
	if ttl > 0 {
		e.expiresAt = s.now().Add(ttl)
	}
	s.mu.Lock()
	s.entries[key] = e
	s.mu.Unlock()
}

func (s *MemoryCacheStore) Delete(_ context.Context, key string) {
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
}

func (s *MemoryCacheStore) Clear(_ context.Context) {
	s.mu.Lock()
	s.entries = make(map[string]memoryEntry)
	s.mu.Unlock()
}
