// Package expdecay implements an exponential decay model for region scores.
package expdecay

import (
	"math"
	"sort"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/arjunmehra/digipin-gateway/internal/hotness"
)

// shardCount must stay a power of two so the hash can be masked.
const shardCount = 64

// Tracker scores regions with an exponential half-life decay. Writes hit
// one of shardCount locks chosen by hash, so concurrent requests over
// different regions rarely contend.
type Tracker struct {
	HalfLife time.Duration

	now    func() time.Time
	shards []*shard
}

type shard struct {
	mu sync.RWMutex
	m  map[string]*counter
}

type counter struct {
	score float64
	last  time.Time
}

var (
	_ hotness.Interface = (*Tracker)(nil)
	_ hotness.Ranker    = (*Tracker)(nil)
)

func New(halfLife time.Duration) *Tracker {
	if halfLife <= 0 {
		halfLife = time.Minute
	}
	t := &Tracker{
		HalfLife: halfLife,
		now:      time.Now,
		shards:   make([]*shard, shardCount),
	}
	for i := range t.shards {
		t.shards[i] = &shard{m: make(map[string]*counter)}
	}
	return t
}

func (t *Tracker) Inc(region string) {
	if region == "" {
		return
	}
	sh := t.shardFor(region)
	now := t.now()

	sh.mu.Lock()
	defer sh.mu.Unlock()

	c, ok := sh.m[region]
	if !ok {
		sh.m[region] = &counter{score: 1, last: now}
		return
	}
	// decay what is already there, then count this hit
	c.score = decay(c.score, now.Sub(c.last).Seconds(), t.HalfLife.Seconds()) + 1
	c.last = now
}

// Score reads the region's score decayed to the current moment. The
// stored value is not rewritten; reads stay under the shared lock.
func (t *Tracker) Score(region string) float64 {
	if region == "" {
		return 0
	}
	sh := t.shardFor(region)

	sh.mu.RLock()
	c, ok := sh.m[region]
	if !ok {
		sh.mu.RUnlock()
		return 0
	}
	score, last := c.score, c.last
	sh.mu.RUnlock()

	return decay(score, t.now().Sub(last).Seconds(), t.HalfLife.Seconds())
}

func (t *Tracker) Reset(regions ...string) {
	for _, region := range regions {
		if region == "" {
			continue
		}
		sh := t.shardFor(region)
		sh.mu.Lock()
		delete(sh.m, region)
		sh.mu.Unlock()
	}
}

// TopN snapshots every tracked region with decay applied as of now and
// returns the n highest scores. Ties break by region name so the
// ordering is stable.
func (t *Tracker) TopN(n int) []hotness.Entry {
	if n <= 0 {
		return nil
	}
	out := t.snapshot()
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Region < out[j].Region
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// Size reports how many regions are currently tracked. Decayed entries
// are never swept, so this counts everything incremented since the last
// Reset.
func (t *Tracker) Size() int {
	total := 0
	for _, sh := range t.shards {
		sh.mu.RLock()
		total += len(sh.m)
		sh.mu.RUnlock()
	}
	return total
}

func (t *Tracker) snapshot() []hotness.Entry {
	now := t.now()
	hl := t.HalfLife.Seconds()

	var out []hotness.Entry
	for _, sh := range t.shards {
		sh.mu.RLock()
		for region, c := range sh.m {
			out = append(out, hotness.Entry{
				Region: region,
				Score:  decay(c.score, now.Sub(c.last).Seconds(), hl),
			})
		}
		sh.mu.RUnlock()
	}
	return out
}

func (t *Tracker) shardFor(region string) *shard {
	return t.shards[xxhash.Sum64String(region)&(shardCount-1)]
}

// decay halves score once per halfLife elapsed, both in seconds.
func decay(score, dt, halfLife float64) float64 {
	if score == 0 || dt <= 0 || halfLife <= 0 {
		return score
	}
	return score * math.Exp(-math.Ln2/halfLife*dt)
}
