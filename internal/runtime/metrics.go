package runtime

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	MetricsNamespace = "hashmint"
	subsystem        = "runtime"
)

var (
	transactionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Subsystem: subsystem,
			Name:      "transactions_total",
			Help:      "Total number of executed transactions",
		},
		[]string{"program", "status"}, // status: "success", "rejected", "error"
	)

	transactionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: MetricsNamespace,
			Subsystem: subsystem,
			Name:      "transaction_duration_seconds",
			Help:      "Time taken to execute and commit a transaction",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"program"},
	)

	eventsEmittedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Subsystem: subsystem,
			Name:      "events_emitted_total",
			Help:      "Total number of events published by committed transactions",
		},
		[]string{"program"},
	)

	currentSlot = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: MetricsNamespace,
			Subsystem: subsystem,
			Name:      "slot",
			Help:      "Slot observed by the last executed transaction",
		},
	)
)
