package scheduling

import (
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// SlotCache keeps generated slot lists per doctor and civil date. Entries
// expire after the TTL and are dropped whenever the doctor's calendar changes.
// A nil *SlotCache is a disabled cache.
//
// Each doctor has a generation that InvalidateDoctor bumps. A caller reads the
// generation before loading from the store and passes it to Put, so a result
// computed before a concurrent write is never stored after that write.
type SlotCache struct {
	lru *expirable.LRU[string, []Slot]

	mu          sync.Mutex
	generations map[string]uint64
}

// NewSlotCache returns nil when size is not positive.
func NewSlotCache(size int, ttl time.Duration) *SlotCache {
	if size <= 0 {
		return nil
	}
	return &SlotCache{
		lru:         expirable.NewLRU[string, []Slot](size, nil, ttl),
		generations: make(map[string]uint64),
	}
}

func slotCacheKey(doctorID, date string) string {
	return doctorID + "|" + date
}

func (c *SlotCache) Get(doctorID, date string) ([]Slot, bool) {
	if c == nil {
		return nil, false
	}
	slots, ok := c.lru.Get(slotCacheKey(doctorID, date))
	if !ok {
		return nil, false
	}
	return append([]Slot{}, slots...), true
}

// Generation returns the doctor's current generation.
func (c *SlotCache) Generation(doctorID string) uint64 {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generations[doctorID]
}

// Put stores slots computed at generation gen. It reports false and stores
// nothing when the doctor was invalidated since.
func (c *SlotCache) Put(doctorID, date string, gen uint64, slots []Slot) bool {
	if c == nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generations[doctorID] != gen {
		return false
	}
	c.lru.Add(slotCacheKey(doctorID, date), append([]Slot{}, slots...))
	return true
}

// InvalidateDoctor drops every cached date of the doctor.
func (c *SlotCache) InvalidateDoctor(doctorID string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generations[doctorID]++
	prefix := doctorID + "|"
	for _, key := range c.lru.Keys() {
		if strings.HasPrefix(key, prefix) {
			c.lru.Remove(key)
		}
	}
}
