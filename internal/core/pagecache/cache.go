package pagecache

import (
	"container/list"
	"context"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/smtools/confgraph/internal/core/model"
)

// Loader fetches a page representation from upstream.
type Loader func(ctx context.Context) (*model.Page, error)

// Cache retains completed page representations across calls, keyed by
// page ID, with fixed capacity and least-recently-used eviction.
// Creation is serialized per key: concurrent requests for the same page
// share one upstream fetch.
type Cache struct {
	mu       sync.Mutex
	capacity int
	entries  map[string]*list.Element
	order    *list.List // front = most recently used
	group    singleflight.Group
}

type entry struct {
	key  string
	page *model.Page
}

func New(capacity int) *Cache {
	if capacity < 1 {
		capacity = 1
	}
	return &Cache{
		capacity: capacity,
		entries:  make(map[string]*list.Element),
		order:    list.New(),
	}
}

// Get returns the cached page for id or loads it via load. A failed load
// is not cached, so the next Get retries.
func (c *Cache) Get(ctx context.Context, id string, load Loader) (*model.Page, error) {
	if page, ok := c.lookup(id); ok {
		return page, nil
	}

	v, err, _ := c.group.Do(id, func() (any, error) {
		if page, ok := c.lookup(id); ok {
			return page, nil
		}
		page, err := load(ctx)
		if err != nil {
			return nil, err
		}
		c.store(id, page)
		return page, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*model.Page), nil
}

// Len reports the number of cached pages.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache) lookup(id string) (*model.Page, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.entries[id]
	if !ok {
		return nil, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*entry).page, true
}

func (c *Cache) store(id string, page *model.Page) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[id]; ok {
		el.Value.(*entry).page = page
		c.order.MoveToFront(el)
		return
	}

	c.entries[id] = c.order.PushFront(&entry{key: id, page: page})
	for len(c.entries) > c.capacity {
		oldest := c.order.Back()
		if oldest == nil {
			break
		}
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*entry).key)
	}
}
