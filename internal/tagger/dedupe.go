package tagger

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// seqDedupe drops replays and out-of-order events per device id.
type seqDedupe struct {
	mu  sync.Mutex
	lru *lru.Cache[string, uint64]
}

func newSeqDedupe(size int) *seqDedupe {
	if size <= 0 {
		size = 8192
	}
	c, _ := lru.New[string, uint64](size)
	return &seqDedupe{lru: c}
}

// returns true if seq is greater than the last seen for id
func (d *seqDedupe) shouldApply(id string, seq uint64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if last, ok := d.lru.Get(id); ok {
		if seq <= last {
			return false
		}
	}
	d.lru.Add(id, seq)
	return true
}
