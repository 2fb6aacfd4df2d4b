package memo

import (
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielpatrickdp/featurevec/internal/evaluator"
	"github.com/danielpatrickdp/featurevec/internal/feature"
)

// #region fixtures

func sampleResult(tag string) *Result {
	return &Result{
		Rows: []evaluator.Row{{1.0, tag}, {2.0, tag}},
		Stats: evaluator.Artifact{
			DiscardedSampleIDs: []string{"s9"},
			ExcludedFeatures:   []string{"broken"},
		},
	}
}

// #endregion fixtures

// #region key

func TestKey_Derivation(t *testing.T) {
	fs := []feature.Feature{feature.Field("a"), feature.Field("b")}
	base := Key("ds1", fs, "")

	assert.Len(t, base, 32) // md5 hex
	assert.Equal(t, base, Key("ds1", fs, ""))

	assert.NotEqual(t, base, Key("ds2", fs, ""))
	assert.NotEqual(t, base, Key("ds1", fs[:1], ""))
	assert.NotEqual(t, base, Key("ds1", fs, "salted"))

	// Feature order matters: the key identifies a column layout.
	reversed := []feature.Feature{feature.Field("b"), feature.Field("a")}
	assert.NotEqual(t, base, Key("ds1", reversed, ""))
}

// #endregion key

// #region lru

func TestLRU_EvictsLeastRecentlyUsed(t *testing.T) {
	c := newLRU(2)
	c.put("k1", sampleResult("r1"))
	c.put("k2", sampleResult("r2"))

	// Touch k1 so k2 is the eviction candidate.
	_, ok := c.get("k1")
	require.True(t, ok)

	c.put("k3", sampleResult("r3"))

	_, ok = c.get("k2")
	assert.False(t, ok, "k2 should have been evicted")
	_, ok = c.get("k1")
	assert.True(t, ok)
	_, ok = c.get("k3")
	assert.True(t, ok)
}

func TestLRU_UpdateDoesNotGrow(t *testing.T) {
	c := newLRU(2)
	c.put("k1", sampleResult("r1"))
	c.put("k2", sampleResult("r2"))
	c.put("k1", sampleResult("r1b"))

	r, ok := c.get("k2")
	assert.True(t, ok, "updating k1 must not evict k2")
	_ = r

	r, ok = c.get("k1")
	require.True(t, ok)
	assert.Equal(t, "r1b", r.Rows[0][1])
}

// #endregion lru

// #region disk

func TestDiskCache_Roundtrip(t *testing.T) {
	disk, err := OpenDisk(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	defer disk.Close()

	_, ok, err := disk.Get("missing")
	require.NoError(t, err)
	assert.False(t, ok)

	want := sampleResult("disk")
	require.NoError(t, disk.Put("k1", want))

	got, ok, err := disk.Get("k1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, want.Rows, got.Rows)
	assert.Equal(t, want.Stats, got.Stats)
}

func TestDiskCache_RowValueKinds(t *testing.T) {
	disk, err := OpenDisk(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	defer disk.Close()

	want := &Result{Rows: []evaluator.Row{
		{1.5, "label", []float64{1, 2}, []string{"a"}, []any{3.0}},
	}}
	require.NoError(t, disk.Put("k1", want))

	got, ok, err := disk.Get("k1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, want.Rows, got.Rows)
}

// #endregion disk

// #region layered

func TestCache_DiskHitPromotedToLRU(t *testing.T) {
	disk, err := OpenDisk(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	defer disk.Close()
	require.NoError(t, disk.Put("k1", sampleResult("cold")))

	c := New(WithDisk(disk))
	got, ok, err := c.Get("k1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "cold", got.Rows[0][1])

	// Second lookup is served by the LRU.
	_, ok = c.lru.get("k1")
	assert.True(t, ok)
}

func TestCache_Evaluate(t *testing.T) {
	c := New()
	calls := 0
	fn := func() (*Result, error) {
		calls++
		return sampleResult("computed"), nil
	}

	r, err := c.Evaluate("k1", fn)
	require.NoError(t, err)
	assert.Equal(t, "computed", r.Rows[0][1])
	assert.Equal(t, 1, calls)

	_, err = c.Evaluate("k1", fn)
	require.NoError(t, err)
	assert.Equal(t, 1, calls, "second call must hit the cache")
}

func TestCache_EvaluateErrorNotCached(t *testing.T) {
	c := New()
	boom := errors.New("boom")
	calls := 0

	_, err := c.Evaluate("k1", func() (*Result, error) {
		calls++
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)

	r, err := c.Evaluate("k1", func() (*Result, error) {
		calls++
		return sampleResult("ok"), nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", r.Rows[0][1])
	assert.Equal(t, 2, calls)
}

func TestCache_CapacityOption(t *testing.T) {
	c := New(WithCapacity(1))
	for i := 0; i < 3; i++ {
		require.NoError(t, c.Put(fmt.Sprintf("k%d", i), sampleResult("r")))
	}
	_, ok, err := c.Get("k0")
	require.NoError(t, err)
	assert.False(t, ok)
	_, ok, err = c.Get("k2")
	require.NoError(t, err)
	assert.True(t, ok)
}

// #endregion layered
