// Package cache provides the short-lived process-wide memoization used to
// absorb dashboard refresh bursts. It is not a durability layer; losing
// every entry on restart is fine.
package cache

import (
    "sync"
    "time"
)

type entry struct {
    value     any
    expiresAt time.Time
}

type TTL struct {
    mu   sync.Mutex
    data map[string]entry
}

func New() *TTL {
    return &TTL{data: map[string]entry{}}
}

// Get returns the live value for key. Expired entries are removed on read.
func (c *TTL) Get(key string) (any, bool) {
    now := time.Now()
    c.mu.Lock()
    defer c.mu.Unlock()
    e, ok := c.data[key]
    if !ok { return nil, false }
    if !e.expiresAt.After(now) {
        delete(c.data, key)
        return nil, false
    }
    return e.value, true
}

// Set stores value with absolute expiry now+ttl. Concurrent writers for the
// same key race benignly; last write wins.
func (c *TTL) Set(key string, value any, ttl time.Duration) {
    c.mu.Lock()
    defer c.mu.Unlock()
    c.data[key] = entry{value: value, expiresAt: time.Now().Add(ttl)}
}

func (c *TTL) Clear() {
    c.mu.Lock()
    defer c.mu.Unlock()
    c.data = map[string]entry{}
}
