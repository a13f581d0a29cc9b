package metrics

import (
	"strings"
	"testing"

	"github.com/arjunmehra/digipin-gateway/internal/observability"
)

// Every observability instrument registered on a provider registry must
// come out of a single scrape with the expected series names and labels.
func TestObservabilityInstruments_ExportThroughProvider(t *testing.T) {
	p := Init(BuildInfo{Version: "test"})
	observability.Init(p.Registerer(), true)

	observability.ObserveHTTP("GET", "/v1/decode", 200, 0.0004)
	observability.ObserveCodecOp("decode", nil)
	observability.ObserveCacheOp("get", nil, 0.002)
	observability.AddCacheHits(3)
	observability.AddCacheMisses(1)
	observability.IncBatchJob("accepted")
	observability.AddBatchItems("ok", 7)
	observability.SetHotRegionsGauge("topN", 42)
	observability.IncTaggerEvent("tagged")
	observability.IncTaggerError("decode")
	observability.SetTaggerLagSeconds(1.5)

	body := scrapeBody(t, p)
	for _, want := range []string{
		`http_requests_total{method="GET",route="/v1/decode",status="200"} 1`,
		`http_request_duration_seconds_bucket`,
		`codec_op_total{op="decode",status="ok"} 1`,
		`cache_op_total{op="get",status="ok"} 1`,
		`redis_operation_duration_seconds_count{op="get"} 1`,
		`cache_hits_total 3`,
		`cache_misses_total 1`,
		`batch_jobs_total{status="accepted"} 1`,
		`batch_items_total{result="ok"} 7`,
		`hot_regions{tier="topN"} 42`,
		`tagger_events_total{result="tagged"} 1`,
		`tagger_errors_total{kind="decode"} 1`,
		`tagger_lag_seconds 1.5`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("scrape missing %q; got:\n%s", want, body)
		}
	}
}
