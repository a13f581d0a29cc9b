// Package hotness tracks how often each DIGIPIN region is requested.
package hotness

import "strings"

type Interface interface {
	Inc(region string)
	Score(region string) float64
	Reset(regions ...string)
}

// RegionOf extracts the first n symbols of a canonical pin. Those
// symbols name the coarse grid region used as the tracking key.
func RegionOf(pin string, n int) string {
	if n <= 0 {
		return ""
	}
	var b strings.Builder
	b.Grow(n)
	for i := 0; i < len(pin) && b.Len() < n; i++ {
		if pin[i] == '-' {
			continue
		}
		b.WriteByte(pin[i])
	}
	return b.String()
}

// Entry is one region with its decay-adjusted score.
type Entry struct {
	Region string
	Score  float64
}

// Ranker reports the hottest regions in descending score order.
type Ranker interface {
	TopN(n int) []Entry
}
