//go:build unix

package daemon

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// File read outcomes recorded by fide_file_reads_total.
const (
	outcomeOK       = "ok"
	outcomeRejected = "rejected"
	outcomeError    = "error"
)

// metrics holds the daemon's collectors. Each daemon owns its registry so
// several instances can coexist in one process.
type metrics struct {
	reg *prometheus.Registry

	projectsCreated *prometheus.CounterVec
	createFailures  prometheus.Counter
	fileReads       *prometheus.CounterVec
	boards          prometheus.Gauge
	httpRequests    *prometheus.CounterVec
}

func newMetrics() *metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &metrics{
		reg: reg,
		projectsCreated: f.NewCounterVec(prometheus.CounterOpts{
			Name: "fide_projects_created_total",
			Help: "Projects scaffolded, by board.",
		}, []string{"board"}),
		createFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "fide_project_create_failures_total",
			Help: "Project creation requests that failed.",
		}),
		fileReads: f.NewCounterVec(prometheus.CounterOpts{
			Name: "fide_file_reads_total",
			Help: "Project file reads, by outcome.",
		}, []string{"outcome"}),
		boards: f.NewGauge(prometheus.GaugeOpts{
			Name: "fide_boards",
			Help: "Boards in the catalog at the last scan.",
		}),
		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "fide_http_requests_total",
			Help: "HTTP requests handled, by route pattern and status code.",
		}, []string{"route", "code"}),
	}
}

func (m *metrics) handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}
