// Package metrics owns the Prometheus registry for the gateway.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// BuildInfo labels the app_build_info gauge. Zero values are fine; an
// empty Version is reported as "dev".
type BuildInfo struct {
	Version   string
	Revision  string
	Branch    string
	BuildDate string
}

func (b BuildInfo) labels() prometheus.Labels {
	v := b.Version
	if v == "" {
		v = "dev"
	}
	return prometheus.Labels{
		"version":    v,
		"revision":   b.Revision,
		"branch":     b.Branch,
		"build_date": b.BuildDate,
	}
}

// Provider wraps a private registry so tests can run many of them without
// default-registry collisions.
type Provider struct {
	reg *prometheus.Registry
}

// Init assembles a registry preloaded with the Go runtime and process
// collectors plus the build info gauge.
func Init(b BuildInfo) *Provider {
	p := &Provider{reg: prometheus.NewRegistry()}
	p.Register(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		buildInfoGauge(b),
	)
	return p
}

func buildInfoGauge(b BuildInfo) prometheus.Collector {
	g := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "app_build_info",
		Help: "Constant 1, labeled with the binary's build metadata.",
	}, []string{"version", "revision", "branch", "build_date"})
	g.With(b.labels()).Set(1)
	return g
}

func (p *Provider) Handler() http.Handler {
	return promhttp.HandlerFor(p.reg, promhttp.HandlerOpts{})
}

func (p *Provider) Register(cs ...prometheus.Collector) {
	p.reg.MustRegister(cs...)
}

func (p *Provider) Registerer() prometheus.Registerer { return p.reg }
