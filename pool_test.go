// Copyright 2025 The Strata Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package router

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContextPoolTierSelection(t *testing.T) {
	t.Parallel()

	cp := NewContextPool(MustNew())

	small := cp.Get(paramSlots)
	require.NotNil(t, small)
	assert.Nil(t, small.Params, "inline-capacity contexts carry no overflow map")
	cp.Put(small)

	large := cp.Get(paramSlots + 1)
	require.NotNil(t, large)
	assert.NotNil(t, large.Params)
	cp.Put(large)

	stats := cp.Stats()
	assert.Equal(t, uint64(1), stats.SmallHits)
	assert.Equal(t, uint64(1), stats.LargeHits)
}

func TestContextPoolLargeTierIsSticky(t *testing.T) {
	t.Parallel()

	cp := NewContextPool(MustNew())

	// A small-tier context that overflows its inline slots graduates to
	// the large tier on Put, keeping its map for the next wide request.
	c := cp.Get(1)
	for i := range paramSlots + 2 {
		c.setParam(string(rune('a'+i)), "v")
	}
	require.NotNil(t, c.Params)
	cp.Put(c)

	got := cp.Get(paramSlots + 1)
	assert.NotNil(t, got.Params)
	assert.Empty(t, got.Params, "reset clears entries but keeps the map")
}

func TestContextPoolPutResets(t *testing.T) {
	t.Parallel()

	cp := NewContextPool(MustNew())

	c := cp.Get(1)
	c.setParam("id", "7")
	c.Set("key", "value")
	cp.Put(c)

	c = cp.Get(1)
	assert.Empty(t, c.Param("id"))
	_, found := c.Get("key")
	assert.False(t, found)
}

func TestContextPoolWarmup(t *testing.T) {
	t.Parallel()

	cp := NewContextPool(MustNew())
	cp.Warmup()

	// Warmed contexts are usable straight away and bound to the router.
	c := cp.Get(1)
	assert.NotNil(t, c)
	cp.Put(c)

	cp.Warmup(&WarmupConfig{SmallContexts: 2, LargeContexts: 1})
}

func TestContextPoolStats(t *testing.T) {
	t.Parallel()

	cp := NewContextPool(MustNew())

	for range 3 {
		cp.Put(cp.Get(1))
	}
	cp.Get(paramSlots + 1)

	stats := cp.Stats()
	assert.Equal(t, uint64(4), stats.TotalGets)
	assert.Equal(t, uint64(3), stats.TotalPuts)
	assert.Equal(t, uint64(3), stats.SmallHits)
	assert.Equal(t, uint64(1), stats.LargeHits)
	assert.InDelta(t, 0.75, stats.HitRate, 0.0001)
	assert.InDelta(t, 75.0, stats.SmallPct, 0.0001)
	assert.InDelta(t, 25.0, stats.LargePct, 0.0001)

	cp.ResetStats()
	assert.Equal(t, PoolStats{}, cp.Stats())
}

func TestDefaultWarmupConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultWarmupConfig()
	assert.Equal(t, 20, cfg.SmallContexts)
	assert.Equal(t, 5, cfg.LargeContexts)
}
