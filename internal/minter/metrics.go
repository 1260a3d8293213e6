package minter

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/eigerco/hashmint/internal/runtime"
)

const subsystem = "minter"

var (
	mintRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: runtime.MetricsNamespace,
			Subsystem: subsystem,
			Name:      "mint_requests_total",
			Help:      "Total number of committed mint requests",
		},
		[]string{"kind", "outcome"}, // outcome: "minted", "nothing"
	)

	unitsMintedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: runtime.MetricsNamespace,
			Subsystem: subsystem,
			Name:      "units_minted_total",
			Help:      "Total number of token units minted",
		},
		[]string{"kind"},
	)
)
