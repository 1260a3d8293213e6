package miner

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/eigerco/hashmint/internal/runtime"
)

const subsystem = "miner"

var (
	hashesFoundTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: runtime.MetricsNamespace,
			Subsystem: subsystem,
			Name:      "hashes_found_total",
			Help:      "Total number of digests matching the hash pattern",
		},
		[]string{"kind"},
	)

	superhashesFoundTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: runtime.MetricsNamespace,
			Subsystem: subsystem,
			Name:      "superhashes_found_total",
			Help:      "Total number of digests matching the superhash pattern",
		},
		[]string{"kind"},
	)

	pointsAwardedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: runtime.MetricsNamespace,
			Subsystem: subsystem,
			Name:      "points_awarded_total",
			Help:      "Total number of points awarded to miners",
		},
		[]string{"kind"},
	)

	ampGauge = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: runtime.MetricsNamespace,
			Subsystem: subsystem,
			Name:      "amp",
			Help:      "Current amplifier of the pool",
		},
		[]string{"kind"},
	)
)
