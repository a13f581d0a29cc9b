package expdecay

import (
	"math"
	"sync"
	"testing"
	"time"
)

// testClock is a hand-wound clock; tests advance it explicitly so decay
// is deterministic.
type testClock struct{ t time.Time }

func (c *testClock) wind(d time.Duration) { c.t = c.t.Add(d) }
func (c *testClock) read() time.Time      { return c.t }

func newTracker(hl time.Duration) (*Tracker, *testClock) {
	clk := &testClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	tr := New(hl)
	tr.now = clk.read
	return tr, clk
}

func near(t *testing.T, got, want, eps float64) {
	t.Helper()
	if math.Abs(got-want) > eps {
		t.Fatalf("got %g, want %g within %g", got, want, eps)
	}
}

func TestScore_AccumulatesWithoutElapsedTime(t *testing.T) {
	tr, _ := newTracker(time.Minute)

	for i := 1; i <= 3; i++ {
		tr.Inc("39J")
		near(t, tr.Score("39J"), float64(i), 1e-9)
	}
	if got := tr.Score("K45"); got != 0 {
		t.Fatalf("untouched region score=%g want 0", got)
	}
}

func TestScore_HalvesEachHalfLife(t *testing.T) {
	const hl = 10 * time.Second
	tr, clk := newTracker(hl)

	tr.Inc("39J")

	clk.wind(hl)
	near(t, tr.Score("39J"), 0.5, 1e-6)

	clk.wind(hl)
	near(t, tr.Score("39J"), 0.25, 1e-6)

	// reading must not rewrite the stored value
	near(t, tr.Score("39J"), 0.25, 1e-6)
}

func TestInc_DecaysBeforeAdding(t *testing.T) {
	const hl = 10 * time.Second
	tr, clk := newTracker(hl)

	tr.Inc("39J")
	clk.wind(hl)
	tr.Inc("39J")

	// the first hit decayed to 0.5 before the second landed
	near(t, tr.Score("39J"), 1.5, 1e-6)
}

func TestInc_ParallelSameRegion(t *testing.T) {
	tr, _ := newTracker(time.Hour)

	const n = 512
	var wg sync.WaitGroup
	wg.Add(n)
	for range n {
		go func() {
			defer wg.Done()
			tr.Inc("K45")
		}()
	}
	wg.Wait()

	near(t, tr.Score("K45"), n, 1e-9)
	if tr.Size() != 1 {
		t.Fatalf("Size=%d want 1", tr.Size())
	}
}

func TestReset_ClearsOnlyNamedRegions(t *testing.T) {
	tr, _ := newTracker(time.Minute)

	tr.Inc("39J")
	tr.Inc("K45")

	tr.Reset("39J", "")

	if got := tr.Score("39J"); got != 0 {
		t.Fatalf("39J score=%g want 0 after reset", got)
	}
	if got := tr.Score("K45"); got != 1 {
		t.Fatalf("K45 score=%g want 1, reset must not touch it", got)
	}
}

func TestSize_CountsDistinctRegions(t *testing.T) {
	tr, _ := newTracker(time.Minute)
	if got := tr.Size(); got != 0 {
		t.Fatalf("empty tracker Size=%d want 0", got)
	}

	tr.Inc("39J")
	tr.Inc("39J")
	tr.Inc("K45")
	if got := tr.Size(); got != 2 {
		t.Fatalf("Size=%d want 2", got)
	}

	tr.Reset("39J")
	if got := tr.Size(); got != 1 {
		t.Fatalf("Size after Reset=%d want 1", got)
	}
}

func TestTopN_RanksWithDecayApplied(t *testing.T) {
	const hl = 2 * time.Second
	tr, clk := newTracker(hl)

	for range 3 {
		tr.Inc("39J")
	}
	tr.Inc("K45")
	tr.Inc("K45")
	tr.Inc("LMP")

	top := tr.TopN(2)
	if len(top) != 2 {
		t.Fatalf("len=%d want 2", len(top))
	}
	if top[0].Region != "39J" || top[1].Region != "K45" {
		t.Fatalf("order wrong: %+v", top)
	}
	near(t, top[0].Score, 3, 1e-9)
	near(t, top[1].Score, 2, 1e-9)

	// the snapshot decays too
	clk.wind(hl)
	top = tr.TopN(3)
	if len(top) != 3 {
		t.Fatalf("len=%d want 3", len(top))
	}
	near(t, top[0].Score, 1.5, 1e-6)
	near(t, top[2].Score, 0.5, 1e-6)
}

func TestTopN_TieBreaksByRegionName(t *testing.T) {
	tr, _ := newTracker(time.Minute)

	tr.Inc("K45")
	tr.Inc("39J")

	top := tr.TopN(10)
	if len(top) != 2 {
		t.Fatalf("len=%d want 2", len(top))
	}
	if top[0].Region != "39J" || top[1].Region != "K45" {
		t.Fatalf("equal scores must sort by name: %+v", top)
	}
}

func TestTopN_NonPositiveN(t *testing.T) {
	tr, _ := newTracker(time.Minute)
	tr.Inc("39J")

	if got := tr.TopN(0); got != nil {
		t.Fatalf("TopN(0)=%v want nil", got)
	}
	if got := tr.TopN(-5); got != nil {
		t.Fatalf("TopN(-5)=%v want nil", got)
	}
}

func TestDecay_Edges(t *testing.T) {
	if got := decay(0, 10, 60); got != 0 {
		t.Fatalf("zero score must stay zero, got %g", got)
	}
	if got := decay(5, 0, 60); got != 5 {
		t.Fatalf("no elapsed time must not decay, got %g", got)
	}
	if got := decay(5, 10, 0); got != 5 {
		t.Fatalf("non-positive half-life must not decay, got %g", got)
	}
}
