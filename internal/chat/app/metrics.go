package app

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	routeResultsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "textcircle",
			Subsystem: "router",
			Name:      "results_total",
			Help:      "Inbound routing decisions by outcome.",
		},
		[]string{"result"}, // "dedicated", "prefixed", "single_group", "ambiguous", "unknown_group", "unknown_sender", "not_a_member", "error"
	)

	messagesAcceptedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "textcircle",
			Subsystem: "fanout",
			Name:      "messages_accepted_total",
			Help:      "Messages durably recorded and handed to fanout.",
		},
	)

	fanoutSendsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "textcircle",
			Subsystem: "fanout",
			Name:      "sends_total",
			Help:      "Per-recipient outbound sends by outcome.",
		},
		[]string{"outcome"}, // "delivered", "failed"
	)
)
