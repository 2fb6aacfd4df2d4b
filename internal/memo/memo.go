// Package memo caches evaluated rows across repeated experiment runs.
// A small in-memory LRU sits in front of an optional sqlite-backed
// disk cache; callers consult it around evaluator runs with a key
// derived from the dataset identity and the feature list. The
// evaluator itself never sees the cache.
package memo

import (
	"crypto/md5"
	"encoding/gob"
	"encoding/hex"
	"strings"

	"github.com/danielpatrickdp/featurevec/internal/evaluator"
	"github.com/danielpatrickdp/featurevec/internal/feature"
)

// #region result

// Result is one cached evaluation outcome: the surviving rows plus
// the training-stats artifact explaining the omissions.
type Result struct {
	Rows  []evaluator.Row
	Stats evaluator.Artifact
}

func init() {
	// Row values travel through gob as interfaces; register the
	// concrete kinds a flattener accepts.
	gob.Register(float64(0))
	gob.Register(int(0))
	gob.Register("")
	gob.Register([]float64(nil))
	gob.Register([]int(nil))
	gob.Register([]string(nil))
	gob.Register([]any(nil))
}

// #endregion result

// #region key

// Key derives a cache key from a stable dataset identity, the feature
// list and a caller-supplied disambiguator. Two runs share a key only
// when all three match.
func Key(datasetID string, features []feature.Feature, salt string) string {
	var b strings.Builder
	b.WriteString(datasetID)
	for _, f := range features {
		b.WriteByte(0)
		b.WriteString(f.Name())
	}
	b.WriteByte(0)
	b.WriteString(salt)
	sum := md5.Sum([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// #endregion key

// #region cache

// Cache layers the LRU over the optional disk cache.
type Cache struct {
	lru  *lru
	disk *DiskCache
}

// Option configures a Cache.
type Option func(*Cache)

// WithCapacity overrides the LRU entry budget.
func WithCapacity(n int) Option {
	return func(c *Cache) { c.lru = newLRU(n) }
}

// WithDisk attaches a disk cache behind the LRU.
func WithDisk(d *DiskCache) Option {
	return func(c *Cache) { c.disk = d }
}

// New creates a cache with the default LRU capacity and no disk
// layer.
func New(opts ...Option) *Cache {
	c := &Cache{lru: newLRU(defaultCapacity)}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get looks the key up, LRU first, then disk. A disk hit is promoted
// into the LRU.
func (c *Cache) Get(key string) (*Result, bool, error) {
	if r, ok := c.lru.get(key); ok {
		return r, true, nil
	}
	if c.disk == nil {
		return nil, false, nil
	}
	r, ok, err := c.disk.Get(key)
	if err != nil || !ok {
		return nil, false, err
	}
	c.lru.put(key, r)
	return r, true, nil
}

// Put stores the result in both layers.
func (c *Cache) Put(key string, r *Result) error {
	c.lru.put(key, r)
	if c.disk == nil {
		return nil
	}
	return c.disk.Put(key, r)
}

// Evaluate returns the cached result for key, or computes it with fn
// and stores it. fn's error is returned uncached.
func (c *Cache) Evaluate(key string, fn func() (*Result, error)) (*Result, error) {
	if r, ok, err := c.Get(key); err != nil {
		return nil, err
	} else if ok {
		return r, nil
	}
	r, err := fn()
	if err != nil {
		return nil, err
	}
	if err := c.Put(key, r); err != nil {
		return nil, err
	}
	return r, nil
}

// #endregion cache
