package cache

import (
	"context"
	"sync"
	"time"
)

// Item represents a cached value with expiration
type Item struct {
	Value      string
	Expiration int64
}

// Expired checks if the cache item has expired
func (item Item) Expired(now int64) bool {
	return item.Expiration > 0 && now > item.Expiration
}

// Memory is a thread-safe in-process Store
type Memory struct {
	items     map[string]Item
	mu        sync.RWMutex
	maxItems  int
	now       func() time.Time
	stop      chan struct{}
	closeOnce sync.Once
}

// NewMemory creates an in-memory store holding at most maxItems entries.
// When cleanupInterval > 0 expired entries are purged in the background
// until Close is called.
func NewMemory(maxItems int, cleanupInterval time.Duration) *Memory {
	m := &Memory{
		items:    make(map[string]Item),
		maxItems: maxItems,
		now:      time.Now,
		stop:     make(chan struct{}),
	}
	if cleanupInterval > 0 {
		go m.startCleanupTimer(cleanupInterval)
	}
	return m
}

// Get implements Store
func (m *Memory) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	item, found := m.items[key]
	if !found || item.Expired(m.now().UnixNano()) {
		return "", false, nil
	}
	return item.Value, true, nil
}

// Set implements Store. A zero ttl never expires.
func (m *Memory) Set(_ context.Context, key, value string, ttl time.Duration) error {
	var exp int64
	if ttl > 0 {
		exp = m.now().Add(ttl).UnixNano()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.items[key]; !exists && m.maxItems > 0 && len(m.items) >= m.maxItems {
		m.evictOldest()
	}
	m.items[key] = Item{Value: value, Expiration: exp}
	return nil
}

// Delete implements Store
func (m *Memory) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.items, key)
	}
	return nil
}

// Count returns the number of entries, expired ones included
func (m *Memory) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}

// Close stops the background cleanup
func (m *Memory) Close() {
	m.closeOnce.Do(func() { close(m.stop) })
}

func (m *Memory) startCleanupTimer(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.deleteExpired()
		case <-m.stop:
			return
		}
	}
}

func (m *Memory) deleteExpired() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now().UnixNano()
	for k, v := range m.items {
		if v.Expired(now) {
			delete(m.items, k)
		}
	}
}

// evictOldest removes the entry closest to expiry; entries without
// expiration go first
func (m *Memory) evictOldest() {
	var oldestKey string
	var oldest int64
	first := true
	for k, v := range m.items {
		if first || v.Expiration < oldest {
			oldestKey, oldest, first = k, v.Expiration, false
		}
	}
	if !first {
		delete(m.items, oldestKey)
	}
}
