package builder

import "github.com/prometheus/client_golang/prometheus"

var (
	buildsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qgraph_builds_total",
			Help: "Number of MakeGraph calls by result.",
		},
		[]string{"result"},
	)
	quantaEmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qgraph_quanta_emitted_total",
			Help: "Number of quanta added to graphs, by task label.",
		},
		[]string{"task"},
	)
	quantaSkipped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qgraph_quanta_skipped_total",
			Help: "Number of quanta skipped because all their outputs already exist, by task label.",
		},
		[]string{"task"},
	)
	buildDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "qgraph_build_duration_seconds",
			Help:    "Time taken by MakeGraph.",
			Buckets: prometheus.DefBuckets,
		},
	)
)

func init() {
	prometheus.MustRegister(
		buildsTotal,
		quantaEmitted,
		quantaSkipped,
		buildDuration,
	)
}

// resultLabel classifies a build outcome for qgraph_builds_total.
func resultLabel(err error) string {
	switch err.(type) {
	case nil:
		return "success"
	case *UserExpressionError:
		return "user_expression_error"
	case *OutputExistsError:
		return "output_exists"
	case *GraphBuilderError:
		return "graph_builder_error"
	default:
		return "collaborator_error"
	}
}
