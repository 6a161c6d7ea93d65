package core

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/JonMunkholm/lpcsv/internal/competency"
)

var (
	importsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lpcsv",
		Subsystem: "import",
		Name:      "runs_total",
		Help:      "Total number of framework imports broken down by result code.",
	}, []string{"result"})

	importDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "lpcsv",
		Subsystem: "import",
		Name:      "duration_seconds",
		Help:      "Duration of framework imports that reached the store.",
		Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
	})

	importedRows = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lpcsv",
		Subsystem: "import",
		Name:      "rows_total",
		Help:      "Competency rows seen by imports broken down by outcome.",
	}, []string{"outcome"})

	exportsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lpcsv",
		Subsystem: "export",
		Name:      "runs_total",
		Help:      "Total number of framework exports broken down by result code.",
	}, []string{"result"})

	activeSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "lpcsv",
		Subsystem: "import",
		Name:      "sessions_active",
		Help:      "Prepared imports waiting for confirmation.",
	})
)

// resultLabel is "ok" or the user error code, keeping label cardinality
// bounded by the code table.
func resultLabel(err error) string {
	if err == nil {
		return "ok"
	}
	return MapError(err).Code
}

func recordImport(res *competency.Result, err error, elapsed time.Duration) {
	importsTotal.WithLabelValues(resultLabel(err)).Inc()
	if res == nil {
		return
	}
	importDuration.Observe(elapsed.Seconds())
	importedRows.WithLabelValues("created").Add(float64(res.Created))
	importedRows.WithLabelValues("skipped").Add(float64(res.Skipped))
	importedRows.WithLabelValues("orphaned").Add(float64(res.Orphaned))
	importedRows.WithLabelValues("duplicate").Add(float64(res.Duplicates))
}

func recordExport(err error) {
	exportsTotal.WithLabelValues(resultLabel(err)).Inc()
}
