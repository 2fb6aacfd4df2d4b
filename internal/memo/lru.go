package memo

import "container/list"

// #region lru

// Evaluation results are large and few; a handful of entries covers
// the repeated-experiment access pattern.
const defaultCapacity = 4

type lruEntry struct {
	key    string
	result *Result
}

// lru is a fixed-capacity least-recently-used map. Not safe for
// concurrent use; the core is single-threaded by contract.
type lru struct {
	capacity int
	order    *list.List // front = most recent
	items    map[string]*list.Element
}

func newLRU(capacity int) *lru {
	if capacity < 1 {
		capacity = 1
	}
	return &lru{
		capacity: capacity,
		order:    list.New(),
		items:    make(map[string]*list.Element),
	}
}

func (c *lru) get(key string) (*Result, bool) {
	el, ok := c.items[key]
	if !ok {
		return nil, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*lruEntry).result, true
}

func (c *lru) put(key string, r *Result) {
	if el, ok := c.items[key]; ok {
		el.Value.(*lruEntry).result = r
		c.order.MoveToFront(el)
		return
	}
	c.items[key] = c.order.PushFront(&lruEntry{key: key, result: r})
	if c.order.Len() > c.capacity {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.items, oldest.Value.(*lruEntry).key)
	}
}

// #endregion lru
