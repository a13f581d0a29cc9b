package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func scrapeBody(t *testing.T, p *Provider) string {
	t.Helper()
	rr := httptest.NewRecorder()
	p.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("scrape status=%d", rr.Code)
	}
	return rr.Body.String()
}

func TestInit_StandardCollectorsAndBuildInfo(t *testing.T) {
	p := Init(BuildInfo{Version: "test", Revision: "r", Branch: "b", BuildDate: "now"})

	body := scrapeBody(t, p)
	for _, want := range []string{
		"go_goroutines",
		"process_start_time_seconds",
		`app_build_info{`,
		`version="test"`,
		`revision="r"`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("scrape missing %q; got:\n%s", want, body)
		}
	}
}

func TestRegister_AddsCollectorToScrape(t *testing.T) {
	p := Init(BuildInfo{})

	g := prometheus.NewGauge(prometheus.GaugeOpts{Name: "test_gauge", Help: "smoke"})
	p.Register(g)
	g.Set(42)

	if v := testutil.ToFloat64(g); v != 42 {
		t.Fatalf("gauge=%v want 42", v)
	}
	if !strings.Contains(scrapeBody(t, p), "test_gauge 42") {
		t.Fatal("registered gauge not exported")
	}
}

func TestInit_DefaultVersionIsDev(t *testing.T) {
	if body := scrapeBody(t, Init(BuildInfo{})); !strings.Contains(body, `version="dev"`) {
		t.Fatalf("expected version=dev; got:\n%s", body)
	}
}
