package app

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var poolClaimsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "textcircle",
		Subsystem: "number_pool",
		Name:      "claims_total",
		Help:      "Pool claim attempts by outcome.",
	},
	[]string{"outcome"}, // "assigned", "exhausted", "error"
)
