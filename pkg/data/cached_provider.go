package data

import (
	"context"
	"sync"
	"time"

	"github.com/ducminhle1904/market-sentinel-bot/internal/frame"
)

type cacheEntry struct {
	frame    *frame.Frame
	fetched  time.Time
	lifetime time.Duration
}

func (e cacheEntry) fresh(now time.Time) bool {
	return now.Sub(e.fetched) < e.lifetime
}

// CachedProvider wraps another Provider with a per-request in-memory cache.
// Entries expire after one bar interval, so a monitor polling faster than
// its candle interval reuses the same frame.
type CachedProvider struct {
	provider Provider
	mu       sync.RWMutex
	cache    map[string]cacheEntry
	now      func() time.Time
}

// NewCachedProvider wraps a provider with caching.
func NewCachedProvider(provider Provider) *CachedProvider {
	return &CachedProvider{
		provider: provider,
		cache:    make(map[string]cacheEntry),
		now:      time.Now,
	}
}

func (p *CachedProvider) Name() string { return "cached " + p.provider.Name() }

// Fetch returns a cached frame when fresh, delegating otherwise. Frames are
// immutable so sharing across callers is safe.
func (p *CachedProvider) Fetch(ctx context.Context, req Request) (*frame.Frame, error) {
	key := req.Key()
	now := p.now()

	p.mu.RLock()
	entry, ok := p.cache[key]
	p.mu.RUnlock()
	if ok && entry.fresh(now) {
		return entry.frame, nil
	}

	f, err := p.provider.Fetch(ctx, req)
	if err != nil {
		// Serve a stale frame over a hard failure when one exists.
		if ok {
			return entry.frame, nil
		}
		return nil, err
	}

	lifetime := req.Interval.Duration()
	if lifetime <= 0 {
		lifetime = time.Minute
	}
	p.mu.Lock()
	p.cache[key] = cacheEntry{frame: f, fetched: now, lifetime: lifetime}
	p.mu.Unlock()
	return f, nil
}

// Clear empties the cache.
func (p *CachedProvider) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cache = make(map[string]cacheEntry)
}

// Size returns the number of cached entries.
func (p *CachedProvider) Size() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.cache)
}
