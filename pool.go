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
	"sync"
	"sync/atomic"
)

// globalContextPool backs request serving. Every request borrows a
// context here and returns it after the chain finishes.
var globalContextPool = sync.Pool{
	New: func() any {
		return &Context{}
	},
}

// getContextFromGlobalPool retrieves a Context from the global pool.
// The type assertion is checked so that pool corruption surfaces as a
// clear panic instead of an opaque one at the assert site.
func getContextFromGlobalPool() *Context {
	ctx, ok := globalContextPool.Get().(*Context)
	if !ok {
		panic("router: pool corruption - globalContextPool returned non-Context type")
	}
	return ctx
}

// releaseGlobalContext resets a context and returns it to the global
// pool. All context cleanup funnels through here.
//
//	c := getContextFromGlobalPool()
//	defer releaseGlobalContext(c)
func releaseGlobalContext(c *Context) {
	c.reset()
	globalContextPool.Put(c)
}

// PoolStats holds statistics about context pool effectiveness.
type PoolStats struct {
	SmallHits uint64  // Gets served from the small tier
	LargeHits uint64  // Gets served from the large tier
	TotalGets uint64  // Total Get calls
	TotalPuts uint64  // Total Put calls
	HitRate   float64 // Puts per Get; below 1.0 means contexts are leaking
	SmallPct  float64 // Share of gets served small
	LargePct  float64 // Share of gets served large
}

// ContextPool pools contexts in two tiers matching the context's
// parameter storage: the small tier holds contexts that only ever used
// the inline parameter arrays, the large tier holds contexts whose
// overflow map has been allocated. Keeping the tiers separate means a
// burst of wide routes cannot leave every pooled context dragging a map
// along.
//
// The router serves requests from an internal pool on its own;
// ContextPool is for code that drives dispatch by hand, such as
// adapters embedding the router inside another framework.
type ContextPool struct {
	smallPool sync.Pool
	largePool sync.Pool
	router    *Router

	smallHits atomic.Uint64
	largeHits atomic.Uint64
	totalGets atomic.Uint64
	totalPuts atomic.Uint64
}

// NewContextPool creates a context pool bound to router.
func NewContextPool(router *Router) *ContextPool {
	cp := &ContextPool{router: router}

	cp.smallPool = sync.Pool{
		New: func() any {
			return &Context{router: router}
		},
	}

	cp.largePool = sync.Pool{
		New: func() any {
			return &Context{
				router: router,
				Params: make(map[string]string, 2*paramSlots),
			}
		},
	}

	return cp
}

// Get returns a context sized for the expected number of path
// parameters. Counts that fit the inline arrays come from the small
// tier; wider routes get a context with the overflow map already
// allocated.
func (cp *ContextPool) Get(paramCount int32) *Context {
	cp.totalGets.Add(1)

	if paramCount <= paramSlots {
		cp.smallHits.Add(1)
		return cp.smallPool.Get().(*Context)
	}
	cp.largeHits.Add(1)
	return cp.largePool.Get().(*Context)
}

// Put resets a context and returns it to its tier. The tier is decided
// by whether the overflow map was ever allocated; reset keeps the map,
// so a context stays in the large tier once it graduates.
func (cp *ContextPool) Put(ctx *Context) {
	cp.totalPuts.Add(1)

	large := ctx.Params != nil
	ctx.reset()

	if large {
		cp.largePool.Put(ctx)
	} else {
		cp.smallPool.Put(ctx)
	}
}

// WarmupConfig sets how many contexts Warmup preallocates per tier.
// Defaults suit typical REST traffic where nearly all routes fit the
// inline parameter arrays.
type WarmupConfig struct {
	SmallContexts int // default: 20
	LargeContexts int // default: 5
}

// DefaultWarmupConfig returns the default warmup configuration.
func DefaultWarmupConfig() *WarmupConfig {
	return &WarmupConfig{
		SmallContexts: 20,
		LargeContexts: 5,
	}
}

// Warmup preallocates contexts so the pool is populated before the
// first burst of traffic. The GC may still reclaim pooled items later;
// call again if warm pools matter after an idle period.
//
//	pool.Warmup(&router.WarmupConfig{SmallContexts: 50, LargeContexts: 2})
func (cp *ContextPool) Warmup(cfg ...*WarmupConfig) {
	config := DefaultWarmupConfig()
	if len(cfg) > 0 && cfg[0] != nil {
		config = cfg[0]
	}

	var wg sync.WaitGroup
	wg.Add(2)

	// Get everything before putting anything back, otherwise the pool
	// hands out the same context N times and stays size one.
	go func() {
		defer wg.Done()
		contexts := make([]*Context, 0, config.SmallContexts)
		for range config.SmallContexts {
			contexts = append(contexts, cp.smallPool.Get().(*Context))
		}
		for _, c := range contexts {
			cp.smallPool.Put(c)
		}
	}()

	go func() {
		defer wg.Done()
		contexts := make([]*Context, 0, config.LargeContexts)
		for range config.LargeContexts {
			contexts = append(contexts, cp.largePool.Get().(*Context))
		}
		for _, c := range contexts {
			cp.largePool.Put(c)
		}
	}()

	wg.Wait()
}

// Stats returns pool effectiveness counters. A HitRate near 1.0 means
// contexts are coming back; well below that, Put calls are being missed
// somewhere.
func (cp *ContextPool) Stats() PoolStats {
	smallHits := cp.smallHits.Load()
	largeHits := cp.largeHits.Load()
	totalGets := cp.totalGets.Load()
	totalPuts := cp.totalPuts.Load()

	var hitRate, smallPct, largePct float64
	if totalGets > 0 {
		hitRate = float64(totalPuts) / float64(totalGets)
		smallPct = float64(smallHits) / float64(totalGets) * 100
		largePct = float64(largeHits) / float64(totalGets) * 100
	}

	return PoolStats{
		SmallHits: smallHits,
		LargeHits: largeHits,
		TotalGets: totalGets,
		TotalPuts: totalPuts,
		HitRate:   hitRate,
		SmallPct:  smallPct,
		LargePct:  largePct,
	}
}

// ResetStats zeroes all statistics counters.
func (cp *ContextPool) ResetStats() {
	cp.smallHits.Store(0)
	cp.largeHits.Store(0)
	cp.totalGets.Store(0)
	cp.totalPuts.Store(0)
}
