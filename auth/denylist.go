package auth

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/allegro/bigcache/v3"
	"github.com/cespare/xxhash/v2"
)

type (
	// Denylist remembers revoked token ids until the token would have
	// expired anyway.
	Denylist interface {
		Revoke(ctx context.Context, tokenID string, until time.Time) error
		Revoked(ctx context.Context, tokenID string) (bool, error)
	}

	memDenylist struct {
		cache *bigcache.BigCache
		now   func() time.Time
	}
)

// InMemoryDenylist keeps revocations in process memory. Entries are
// evicted after ttl, which should match the token lifetime.
func InMemoryDenylist(ttl time.Duration, now func() time.Time) (Denylist, error) {
	if now == nil {
		now = time.Now
	}
	cache, err := bigcache.NewBigCache(denylistConfig(ttl))
	if err != nil {
		return nil, fmt.Errorf("unable to create token denylist, cause %w", err)
	}
	return &memDenylist{cache: cache, now: now}, nil
}

func (m *memDenylist) Revoke(ctx context.Context, tokenID string, until time.Time) error {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(until.Unix()))
	err := m.cache.Set(denylistKey(tokenID), buf[:])
	if err != nil {
		return fmt.Errorf("unable to revoke token, cause %w", err)
	}
	return nil
}

func (m *memDenylist) Revoked(ctx context.Context, tokenID string) (bool, error) {
	buf, err := m.cache.Get(denylistKey(tokenID))
	if errors.Is(err, bigcache.ErrEntryNotFound) {
		return false, nil
	} else if err != nil {
		return false, fmt.Errorf("unable to check token denylist, cause %w", err)
	}
	if len(buf) != 8 {
		return false, nil
	}
	until := time.Unix(int64(binary.BigEndian.Uint64(buf)), 0)
	return m.now().Before(until), nil
}

// denylistConfig sizes the cache for small entries (8 bytes of expiry per
// token id) instead of the 500 byte default, and caps it in memory.
func denylistConfig(ttl time.Duration) bigcache.Config {
	cfg := bigcache.DefaultConfig(ttl)
	cfg.Shards = 16
	cfg.MaxEntriesInWindow = 16 * 1024
	cfg.MaxEntrySize = 16
	cfg.HardMaxCacheSize = 32
	cfg.Verbose = false
	cfg.CleanWindow = time.Minute
	return cfg
}

func denylistKey(tokenID string) string {
	return strconv.FormatUint(xxhash.Sum64String(tokenID), 16)
}
