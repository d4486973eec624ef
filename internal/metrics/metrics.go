package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RecordsProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cardbatch_records_processed_total",
		Help: "Total number of transactions routed past validation.",
	})

	RecordsQuarantined = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cardbatch_records_quarantined_total",
		Help: "Total number of transactions quarantined by validation.",
	})

	AlertsRaised = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cardbatch_alerts_raised_total",
		Help: "Total number of detection alerts, labelled by rule type.",
	}, []string{"alert_type"})

	SinkFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cardbatch_sink_failures_total",
		Help: "Total number of failed sink writes, labelled by sink.",
	}, []string{"sink"})

	RunsFinished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cardbatch_runs_finished_total",
		Help: "Total number of batch runs reaching a terminal status.",
	}, []string{"status"})

	RunDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "cardbatch_run_duration_seconds",
		Help:    "End-to-end batch run duration in seconds.",
		Buckets: []float64{1, 5, 15, 60, 300, 900, 1800, 3600},
	})
)
