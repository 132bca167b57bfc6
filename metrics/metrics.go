// Package metrics holds the Prometheus collectors of document export and
// import, and a Progress counter which callers may poll.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Keys for axmltools metrics.
const (
	Fail = "fail"
	Ok   = "ok"
)

// Collectors of the exporter.
var (
	ExportPagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "axmltools_export_pages_total",
		Help: "Cumulative number of exported pages, by status.",
	}, []string{"status"})
	ExportRowsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "axmltools_export_rows_total",
		Help: "Cumulative number of root rows exported, by table.",
	}, []string{"table"})
	ExportSubtreesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "axmltools_export_subtrees_total",
		Help: "Cumulative number of sub-trees populated, by dispatch (async or inline).",
	}, []string{"dispatch"})
	ExportDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "axmltools_export_duration_seconds",
		Help:    "Duration of complete document exports.",
		Buckets: prometheus.ExponentialBuckets(0.01, 4, 8),
	})
)

// Collectors of the importer.
var (
	ImportRowsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "axmltools_import_rows_total",
		Help: "Cumulative number of rows inserted, by table.",
	}, []string{"table"})
	ImportBatchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "axmltools_import_batches_total",
		Help: "Cumulative number of insert batches, by status.",
	}, []string{"status"})
	ImportClearsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "axmltools_import_compensating_clears_total",
		Help: "Cumulative number of table sets cleared after a failed import.",
	})
)

// Dispatch labels of ExportSubtreesTotal.
const (
	Async  = "async"
	Inline = "inline"
)

// StatusOf maps an error to its status label.
func StatusOf(err error) string {
	if err != nil {
		return Fail
	}
	return Ok
}
