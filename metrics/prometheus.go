package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector exposes a Registry as a single labelled Prometheus counter family
type Collector struct {
	reg  *Registry
	desc *prometheus.Desc
}

func NewCollector(reg *Registry) *Collector {
	return &Collector{
		reg: reg,
		desc: prometheus.NewDesc(
			"pizza_events_total",
			"Service event counters by name.",
			[]string{"counter"}, nil,
		),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.desc
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	for _, s := range c.reg.Snapshot() {
		ch <- prometheus.MustNewConstMetric(c.desc, prometheus.CounterValue, float64(s.Value), s.Name)
	}
}

// Handler serves reg in the Prometheus exposition format
func Handler(reg *Registry) http.Handler {
	pr := prometheus.NewRegistry()
	pr.MustRegister(NewCollector(reg))
	return promhttp.HandlerFor(pr, promhttp.HandlerOpts{})
}
