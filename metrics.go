package evcs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	// Registry is the dedicated Prometheus registry for solver runs
	Registry = prometheus.NewRegistry()
	// SolvesTotal counts finished solves by backend and status
	SolvesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "evcs_solves_total", Help: "Finished solves by backend and status."},
		[]string{"backend", "status"},
	)
	// SolveDuration records wall time of solves in seconds
	SolveDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "evcs_solve_duration_seconds", Help: "Solve wall time in seconds.", Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 60, 300}},
		[]string{"backend", "status"},
	)
	// BnBNodes counts explored branch-and-bound nodes
	BnBNodes = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "evcs_bnb_nodes_total", Help: "Explored branch-and-bound nodes."},
		[]string{"backend"},
	)
	// ModelVariables is the size of the last solved model by variable kind
	ModelVariables = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{Name: "evcs_model_variables", Help: "Variables of the last solved model."},
		[]string{"kind"},
	)
)

// RegisterDefault registers the collectors to Registry once.
func RegisterDefault() {
	regOnce.Do(func() {
		Registry.MustRegister(SolvesTotal)
		Registry.MustRegister(SolveDuration)
		Registry.MustRegister(BnBNodes)
		Registry.MustRegister(ModelVariables)
		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}

var regOnce sync.Once

// WriteMetrics dumps Registry in the text exposition format, for the
// node_exporter textfile collector.
func WriteMetrics(path string) error {
	RegisterDefault()
	return prometheus.WriteToTextfile(path, Registry)
}
