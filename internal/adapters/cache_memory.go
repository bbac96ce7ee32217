package adapters

import (
	"context"
	"sync"
	"time"

	"pysetupinfo/internal/ports"
	"pysetupinfo/internal/types"
)

// MemoryCacheAdapter keeps resolutions for the lifetime of the process.
// A zero TTL keeps entries until they are deleted.
type MemoryCacheAdapter struct {
	TTL time.Duration

	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

type memoryEntry struct {
	info    types.SetupInfo
	expires time.Time
}

func NewMemoryCacheAdapter(ttl time.Duration) *MemoryCacheAdapter {
	return &MemoryCacheAdapter{TTL: ttl, entries: map[string]memoryEntry{}, now: time.Now}
}

func (c *MemoryCacheAdapter) Get(_ context.Context, key string) (types.SetupInfo, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	if !ok {
		return types.SetupInfo{}, false, nil
	}
	if !entry.expires.IsZero() && !c.now().Before(entry.expires) {
		delete(c.entries, key)
		return types.SetupInfo{}, false, nil
	}
	return entry.info, true, nil
}

func (c *MemoryCacheAdapter) Set(_ context.Context, key string, info types.SetupInfo) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry := memoryEntry{info: info}
	if c.TTL > 0 {
		entry.expires = c.now().Add(c.TTL)
	}
	c.entries[key] = entry
	return nil
}

func (c *MemoryCacheAdapter) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	return nil
}

var _ ports.ResolutionCachePort = (*MemoryCacheAdapter)(nil)
