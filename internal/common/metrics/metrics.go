// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	DocumentsScanned = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "verifier_documents_scanned_total",
			Help: "Total number of documents run through the security scanner",
		},
		[]string{"risk_level"},
	)

	DocumentsQuarantined = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "verifier_documents_quarantined_total",
			Help: "Total number of documents blocked by the quarantine gate",
		},
	)

	PayloadsParsed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "verifier_payloads_parsed_total",
			Help: "Total number of QR payloads parsed",
		},
		[]string{"status"},
	)

	VerdictsEmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "verifier_verdicts_total",
			Help: "Total number of reconciliation verdicts by outcome",
		},
		[]string{"verdict"},
	)

	FetchAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "verifier_reference_fetch_attempts_total",
			Help: "Total number of reference fetch attempts",
		},
		[]string{"result"},
	)

	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "verifier_stage_duration_seconds",
			Help: "Duration of each pipeline stage in seconds",
		},
		[]string{"stage"},
	)

	DocumentsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "verifier_documents_active",
			Help: "Number of documents currently being processed",
		},
	)
)
