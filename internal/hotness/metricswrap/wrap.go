// Package metricswrap instruments a hotness tracker with Prometheus
// gauges and sampled threshold logging.
package metricswrap

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/rs/zerolog"

	"github.com/arjunmehra/digipin-gateway/internal/hotness"
	"github.com/arjunmehra/digipin-gateway/internal/logger"
	"github.com/arjunmehra/digipin-gateway/internal/observability"
)

type Sizer interface{ Size() int }

// WithMetrics keeps the hot_regions gauge in step with the wrapped
// tracker and logs regions that cross HOT_THRESHOLD. Log lines are
// sampled by LOG_HOTNESS_SAMPLE so one hot region cannot flood stdout.
type WithMetrics struct {
	inner     hotness.Interface
	tier      string
	threshold float64
	sample    float64
	log       zerolog.Logger
}

func New(inner hotness.Interface, tier string) *WithMetrics {
	if tier == "" {
		tier = "topN"
	}
	return &WithMetrics{
		inner:     inner,
		tier:      tier,
		threshold: envFloat("HOT_THRESHOLD", 0),
		sample:    envFloat("LOG_HOTNESS_SAMPLE", 0.01),
		log:       logger.Build(logger.Config{Level: "info", Component: "hotness"}, nil),
	}
}

func (w *WithMetrics) Inc(region string) {
	w.inner.Inc(region)
	if w.threshold > 0 {
		if score := w.inner.Score(region); score >= w.threshold && w.sampled(region) {
			w.log.Info().
				Str("event", "hotness_threshold").
				Str("tier", w.tier).
				Float64("score", score).
				Str("region_hash", fmt.Sprintf("%016x", xxhash.Sum64String(region))).
				Msg("region crossed hotness threshold")
		}
	}
	w.syncGauge()
}

func (w *WithMetrics) Score(region string) float64 { return w.inner.Score(region) }

func (w *WithMetrics) Reset(regions ...string) {
	w.inner.Reset(regions...)
	w.syncGauge()
}

// TopN delegates to the wrapped tracker when it can rank.
func (w *WithMetrics) TopN(n int) []hotness.Entry {
	r, ok := w.inner.(hotness.Ranker)
	if !ok {
		return nil
	}
	return r.TopN(n)
}

func (w *WithMetrics) Size() int {
	s, ok := w.inner.(Sizer)
	if !ok {
		return 0
	}
	return s.Size()
}

func (w *WithMetrics) syncGauge() {
	if s, ok := w.inner.(Sizer); ok {
		observability.SetHotRegionsGauge(w.tier, s.Size())
	}
}

// sampled admits a stable share of regions, chosen by hash so a given
// region either always logs or never does.
func (w *WithMetrics) sampled(region string) bool {
	if w.sample >= 1 {
		return true
	}
	if w.sample <= 0 {
		return false
	}
	h := xxhash.Sum64String(region)
	return float64(h%100000)/100000 < w.sample
}

func envFloat(key string, def float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}
