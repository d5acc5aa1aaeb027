package metrics

import "github.com/prometheus/client_golang/prometheus"

// CartMetrics counts lifecycle transitions and swallowed tracking failures.
type CartMetrics struct {
	transitions *prometheus.CounterVec
	failures    *prometheus.CounterVec
}

// NewCartMetrics registers the cart metrics on the provided registerer.
func NewCartMetrics(reg prometheus.Registerer) *CartMetrics {
	if reg == nil {
		return &CartMetrics{}
	}
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cartwatch_cart_transitions_total",
		Help: "Cart records moved into a status, by trigger.",
	}, []string{"status", "trigger"})
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cartwatch_tracking_failures_total",
		Help: "Storefront tracking callbacks that failed and were swallowed.",
	}, []string{"event"})
	reg.MustRegister(transitions, failures)
	return &CartMetrics{transitions: transitions, failures: failures}
}

// AddTransitions adds n transitions into status caused by trigger.
func (c *CartMetrics) AddTransitions(status, trigger string, n int64) {
	if c == nil || c.transitions == nil || n <= 0 {
		return
	}
	c.transitions.WithLabelValues(normalizeLabel(status), normalizeLabel(trigger)).Add(float64(n))
}

// IncTrackingFailure counts a failed tracking callback.
func (c *CartMetrics) IncTrackingFailure(event string) {
	if c == nil || c.failures == nil {
		return
	}
	c.failures.WithLabelValues(normalizeLabel(event)).Inc()
}

// ExportMetrics counts export runs by format and outcome.
type ExportMetrics struct {
	runs *prometheus.CounterVec
	rows *prometheus.CounterVec
}

// NewExportMetrics registers the export metrics on the provided registerer.
func NewExportMetrics(reg prometheus.Registerer) *ExportMetrics {
	if reg == nil {
		return &ExportMetrics{}
	}
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cartwatch_export_runs_total",
		Help: "Export runs by format, trigger and result.",
	}, []string{"format", "trigger", "result"})
	rows := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cartwatch_export_records_total",
		Help: "Cart records written to export files.",
	}, []string{"format"})
	reg.MustRegister(runs, rows)
	return &ExportMetrics{runs: runs, rows: rows}
}

// ObserveRun records a finished export run.
func (e *ExportMetrics) ObserveRun(format, trigger, result string, records int) {
	if e == nil || e.runs == nil {
		return
	}
	e.runs.WithLabelValues(normalizeLabel(format), normalizeLabel(trigger), normalizeLabel(result)).Inc()
	if records > 0 {
		e.rows.WithLabelValues(normalizeLabel(format)).Add(float64(records))
	}
}
