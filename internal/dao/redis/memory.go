package redis

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	value    string
	expireAt time.Time
}

// MemoryCache 进程内 CacheService，单节点部署或未启用 Redis 时使用
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[Key]memoryEntry
	now     func() time.Time
}

// NewMemoryCache 过期项在读取时惰性清理
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[Key]memoryEntry), now: time.Now}
}

func (m *MemoryCache) Get(_ context.Context, key Key) (string, bool, error) {
	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok {
		return "", false, nil
	}
	if !e.expireAt.IsZero() && !m.now().Before(e.expireAt) {
		m.mu.Lock()
		delete(m.entries, key)
		m.mu.Unlock()
		return "", false, nil
	}
	return e.value, true, nil
}

// Set ttl<=0 表示不过期
func (m *MemoryCache) Set(_ context.Context, key Key, value string, ttl time.Duration) error {
	e := memoryEntry{value: value}
	if ttl > 0 {
		e.expireAt = m.now().Add(ttl)
	}
	m.mu.Lock()
	m.entries[key] = e
	m.mu.Unlock()
	return nil
}

func (m *MemoryCache) Delete(_ context.Context, keys ...Key) error {
	m.mu.Lock()
	for _, k := range keys {
		delete(m.entries, k)
	}
	m.mu.Unlock()
	return nil
}

// Len 当前条目数（含未清理的过期条目）
func (m *MemoryCache) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

var _ CacheService = (*MemoryCache)(nil)
