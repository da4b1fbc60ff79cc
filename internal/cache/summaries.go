package cache

import (
	"container/list"
	"sync"
	"time"

	"cartera/internal/core"
)

// SummaryCache keeps recently served MonthlyData values in memory with TTL
// and size-based LRU eviction.
type SummaryCache struct {
	mu      sync.Mutex
	maxSize int
	ttl     time.Duration
	items   map[string]*list.Element
	lru     *list.List
}

type entry struct {
	key       string
	data      core.MonthlyData
	expiresAt time.Time
}

func NewSummaryCache(maxSize int, ttl time.Duration) *SummaryCache {
	return &SummaryCache{
		maxSize: maxSize,
		ttl:     ttl,
		items:   make(map[string]*list.Element),
		lru:     list.New(),
	}
}

func (c *SummaryCache) Get(key string) (core.MonthlyData, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, exists := c.items[key]
	if !exists {
		return core.MonthlyData{}, false
	}

	item := elem.Value.(*entry)
	if time.Now().After(item.expiresAt) {
		c.removeElement(elem)
		return core.MonthlyData{}, false
	}

	c.lru.MoveToFront(elem)
	return item.data, true
}

func (c *SummaryCache) Set(key string, data core.MonthlyData) {
	c.mu.Lock()
	defer c.mu.Unlock()

	item := &entry{key: key, data: data, expiresAt: time.Now().Add(c.ttl)}

	if elem, exists := c.items[key]; exists {
		elem.Value = item
		c.lru.MoveToFront(elem)
		return
	}

	elem := c.lru.PushFront(item)
	c.items[key] = elem

	if c.lru.Len() > c.maxSize {
		if oldest := c.lru.Back(); oldest != nil {
			c.removeElement(oldest)
		}
	}
}

func (c *SummaryCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, exists := c.items[key]; exists {
		c.removeElement(elem)
	}
}

// DeleteRouteYear drops every cached month of one route-year, mirroring a
// full invalidation of the persistent store.
func (c *SummaryCache) DeleteRouteYear(routeID string, year int) {
	for month := 1; month <= 12; month++ {
		c.Delete(Key(routeID, year, month))
	}
}

func (c *SummaryCache) removeElement(elem *list.Element) {
	item := elem.Value.(*entry)
	delete(c.items, item.key)
	c.lru.Remove(elem)
}

// CleanExpired removes all expired entries and returns the removed count.
func (c *SummaryCache) CleanExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	var toRemove []*list.Element
	for elem := c.lru.Front(); elem != nil; elem = elem.Next() {
		if now.After(elem.Value.(*entry).expiresAt) {
			toRemove = append(toRemove, elem)
		}
	}
	for _, elem := range toRemove {
		c.removeElement(elem)
	}
	return len(toRemove)
}

func (c *SummaryCache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}
