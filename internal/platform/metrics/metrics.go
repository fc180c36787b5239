package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ConnectionsOpen tracks live websocket connections across all identities.
	ConnectionsOpen = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "concord_connections_open",
		Help: "Number of currently open websocket connections.",
	})

	// EventsPublished counts events handed to a hub, by event type.
	EventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "concord_events_published_total",
		Help: "Events published to broadcast hubs.",
	}, []string{"type"})

	// DeliveryFailures counts per-recipient sends that failed. A failed
	// send is treated the same as a recipient that already disconnected.
	DeliveryFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "concord_delivery_failures_total",
		Help: "Per-recipient event deliveries that failed.",
	})

	// GroupJoinsRejected counts join attempts refused by the membership gate.
	GroupJoinsRejected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "concord_group_joins_rejected_total",
		Help: "Group join attempts rejected by the membership gate.",
	})
)
